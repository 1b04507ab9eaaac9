package store

import (
	"bytes"

	"github.com/jamesainslie/reconcile/pkg/reconcile/types"
)

// Key prefixes for different data types
const (
	prefixRecord = "f:" // File records, keyed by tree and path
	prefixHash   = "h:" // Digest index, keyed by digest, tree, and path
)

// KeySeparator separates key segments. Paths cannot contain NUL, so the
// separator also prevents prefix bleed between sibling paths.
const KeySeparator = '\x00'

// recordKey builds the key for a file record.
// Format: f:<tree>\x00<path>
func recordKey(tree types.TreeID, path string) []byte {
	return []byte(prefixRecord + string(tree) + string(KeySeparator) + path)
}

// recordPrefix returns the prefix covering every record of a tree.
func recordPrefix(tree types.TreeID) []byte {
	return []byte(prefixRecord + string(tree) + string(KeySeparator))
}

// hashKey builds the digest index key for a record.
// Format: h:<digest>\x00<tree>\x00<path>
func hashKey(digest string, tree types.TreeID, path string) []byte {
	return []byte(prefixHash + digest + string(KeySeparator) + string(tree) + string(KeySeparator) + path)
}

// hashPrefix returns the prefix covering every index entry for a digest.
// A partial digest yields a prefix covering every digest it begins.
func hashPrefix(digest string) []byte {
	if types.ValidDigest(digest) {
		return []byte(prefixHash + digest + string(KeySeparator))
	}
	return []byte(prefixHash + digest)
}

// parseHashKey extracts digest, tree, and path from a digest index key.
func parseHashKey(key []byte) (digest string, tree types.TreeID, path string, ok bool) {
	rest := bytes.TrimPrefix(key, []byte(prefixHash))
	if len(rest) == len(key) {
		return "", "", "", false
	}
	first := bytes.IndexByte(rest, KeySeparator)
	if first == -1 {
		return "", "", "", false
	}
	second := bytes.IndexByte(rest[first+1:], KeySeparator)
	if second == -1 {
		return "", "", "", false
	}
	second += first + 1
	return string(rest[:first]), types.TreeID(rest[first+1 : second]), string(rest[second+1:]), true
}
