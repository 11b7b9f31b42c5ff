package types

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// ContentHash generates a short hash for deduplication.
func ContentHash(s string) string {
	h := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", h[:8])
}

// NormalizeURL lowercases the scheme and host and strips fragments and
// trailing slashes so that trivially different spellings of the same URL
// dedup to one key.
func NormalizeURL(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "#"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSuffix(s, "/")

	// Lowercase scheme and host only; path and query stay case-sensitive.
	if i := strings.Index(s, "://"); i >= 0 {
		rest := s[i+3:]
		if j := strings.IndexAny(rest, "/?"); j >= 0 {
			return strings.ToLower(s[:i+3]+rest[:j]) + rest[j:]
		}
		return strings.ToLower(s)
	}
	return s
}
