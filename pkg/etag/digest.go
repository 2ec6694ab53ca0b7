package etag

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"hash"
	"io"

	"lukechampine.com/blake3"
)

// Digester derives content fingerprints from body bytes.
//
// Contract:
// - Determinism: identical bytes must always produce the identical tag.
// - Collision resistance: distinct bodies must essentially never produce
//   equal tags, since a tag match is treated as "body unchanged".
// - Concurrency: New must be safe for concurrent use; each returned
//   Digest is owned by a single body and is not.
type Digester interface {
	// New returns a fresh accumulator for a single body.
	New() Digest
}

// Digest accumulates the bytes of one body. Write never fails.
type Digest interface {
	io.Writer

	// Fingerprint finalizes the accumulated bytes into an entity tag.
	Fingerprint() ETag
}

// BLAKE3 returns the default Digester: the base64-encoded BLAKE3-256 hash
// of the exact body bytes, issued as a strong tag.
func BLAKE3() Digester {
	return blake3Digester{}
}

type blake3Digester struct{}

func (blake3Digester) New() Digest {
	return &blake3Digest{h: blake3.New(32, nil)}
}

type blake3Digest struct {
	h *blake3.Hasher
}

func (d *blake3Digest) Write(p []byte) (int, error) {
	return d.h.Write(p)
}

func (d *blake3Digest) Fingerprint() ETag {
	return ETag{Token: base64.StdEncoding.EncodeToString(d.h.Sum(nil))}
}

// SHA256 returns a Digester producing hex-encoded SHA-256 strong tags,
// for deployments that prefer a standard-library hash.
func SHA256() Digester {
	return sha256Digester{}
}

type sha256Digester struct{}

func (sha256Digester) New() Digest {
	return &hashDigest{h: sha256.New()}
}

type hashDigest struct {
	h hash.Hash
}

func (d *hashDigest) Write(p []byte) (int, error) {
	return d.h.Write(p)
}

func (d *hashDigest) Fingerprint() ETag {
	return ETag{Token: hex.EncodeToString(d.h.Sum(nil))}
}
