package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// Fingerprint computes a deterministic hash over a set of labeled parts.
// Parts are sorted by label so callers do not have to care about ordering.
func Fingerprint(parts map[string]string) Hash {
	labels := make([]string, 0, len(parts))
	for label := range parts {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	var b strings.Builder
	for _, label := range labels {
		fmt.Fprintf(&b, "%s=%s|", label, parts[label])
	}
	return NewHash([]byte(b.String()))
}
