// Package etag implements entity-tag values, conditional-request header
// parsing, and the digest strategies that derive a tag from body bytes.
package etag

import (
	"strings"
)

// ETag is an entity tag identifying one exact version of a response body.
// The zero value is "no tag".
type ETag struct {
	// Token is the opaque tag value without quotes or weak prefix.
	Token string

	// Weak marks the tag as a weak validator (W/ prefix on the wire).
	Weak bool
}

// IsZero reports whether the tag is unset.
func (t ETag) IsZero() bool {
	return t.Token == ""
}

// String renders the wire form of the tag, e.g. `"abc"` or `W/"abc"`.
func (t ETag) String() string {
	if t.Weak {
		return `W/"` + t.Token + `"`
	}
	return `"` + t.Token + `"`
}

// StrongMatch reports whether t and o match under strong comparison:
// byte-identical tokens and neither tag weak.
func (t ETag) StrongMatch(o ETag) bool {
	return !t.Weak && !o.Weak && t.Token == o.Token
}

// WeakMatch reports whether t and o match under weak comparison:
// identical tokens ignoring weakness.
func (t ETag) WeakMatch(o ETag) bool {
	return t.Token == o.Token
}

// Parse parses a single entity tag in wire form. The quoted form and the
// W/ weak prefix are handled per RFC 9110; a bare unquoted token is
// accepted leniently. Returns ok == false for values that cannot be a tag.
func Parse(s string) (ETag, bool) {
	s = strings.TrimSpace(s)
	var weak bool
	if strings.HasPrefix(s, "W/") || strings.HasPrefix(s, "w/") {
		weak = true
		s = s[2:]
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "" || strings.Contains(s, `"`) {
		return ETag{}, false
	}
	return ETag{Token: s, Weak: weak}, true
}

// Conditional is the parsed conditional-validator (If-None-Match) header
// of a single request: the set of tags the client already holds.
type Conditional struct {
	// Any is set when the client presented the "*" wildcard, which
	// matches any stored tag.
	Any bool

	// Tags are the presented entity tags, in header order.
	Tags []ETag
}

// Empty reports whether the client presented no conditional info.
func (c Conditional) Empty() bool {
	return !c.Any && len(c.Tags) == 0
}

// Match reports whether tag matches any presented tag. Strong comparison
// is used unless weakOK is set. The zero tag never matches.
func (c Conditional) Match(tag ETag, weakOK bool) bool {
	if tag.IsZero() {
		return false
	}
	if c.Any {
		return true
	}
	for _, p := range c.Tags {
		if weakOK {
			if p.WeakMatch(tag) {
				return true
			}
		} else if p.StrongMatch(tag) {
			return true
		}
	}
	return false
}

// ParseIfNoneMatch parses the If-None-Match header values of a request
// into the set of presented tags. Each value is a comma-separated list of
// quoted tags; elements that do not parse are skipped, never an error, so
// a malformed header degrades to "no conditional info".
func ParseIfNoneMatch(values []string) Conditional {
	var c Conditional
	for _, v := range values {
		for _, elem := range strings.Split(v, ",") {
			elem = strings.TrimSpace(elem)
			if elem == "" {
				continue
			}
			if elem == "*" {
				c.Any = true
				continue
			}
			if tag, ok := Parse(elem); ok {
				c.Tags = append(c.Tags, tag)
			}
		}
	}
	return c
}
