// Package fingerprint derives stable, filesystem-safe keys for media assets
// from cheap signals, without reading file contents.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const (
	maxKeyLen = 64
	suffixLen = 16
)

// Compute returns a fingerprint for an asset built from its URI, modification
// time and a size-or-duration proxy. Identical inputs always produce the same
// output; changing any field produces a different output. The result is safe
// to use as a cache key or filename.
//
// This is a change-detection fingerprint, not a content digest: it never
// reads the file, so a rewrite that preserves URI, mtime and size goes
// unnoticed.
func Compute(uri string, modTime int64, sizeOrDuration float64) string {
	return SafeKey(fmt.Sprintf("%s-%d-%.3f", uri, modTime, sizeOrDuration))
}

// SafeKey sanitizes raw into a length-bounded key of [A-Za-z0-9_] with a
// sha256-derived suffix. The suffix is always appended so two distinct raw
// strings that sanitize to the same prefix still yield distinct keys.
func SafeKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	suffix := hex.EncodeToString(sum[:])[:suffixLen]

	prefix := Sanitize(raw)
	if max := maxKeyLen - suffixLen - 1; len(prefix) > max {
		prefix = prefix[:max]
	}
	return prefix + "_" + suffix
}

// Sanitize replaces every character outside [A-Za-z0-9] with an underscore.
func Sanitize(s string) string {
	b := []byte(s)
	for i, c := range b {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		default:
			b[i] = '_'
		}
	}
	return string(b)
}
