// Package ruleset tracks the set of prefixes currently held by a table.
// The tries themselves only ever hold the *last* matching slot state
// (leaf-pushing has no notion of "which prefixes are present"), so add and
// delete need a side index to answer existence questions and to maintain
// spec's num_prefixes counter (I5).
package ruleset

import (
	"encoding/hex"
	"strconv"

	"github.com/MuriloChianfa/liblpm-go/internal/entry"
)

// Key canonically identifies a masked (prefix, length) pair.
type Key string

// Canon masks bits down to l significant bits and returns a canonical key.
// bits beyond l are ignored, matching spec's "bits beyond prefix_len must
// be zero" contract without requiring the caller to have already masked.
func Canon(bits []byte, l int) Key {
	nbytes := (l + 7) / 8
	masked := make([]byte, nbytes)
	copy(masked, bits[:min(nbytes, len(bits))])
	if rem := l % 8; rem != 0 {
		masked[nbytes-1] &= ^byte(0xFF >> uint(rem))
	}
	return Key(strconv.Itoa(l) + "/" + hex.EncodeToString(masked))
}

// Set is a side-table of currently-present prefixes and their next-hops.
type Set struct {
	m map[Key]entry.NextHop
}

// New returns an empty Set.
func New() *Set {
	return &Set{m: make(map[Key]entry.NextHop)}
}

// Upsert records k -> nh, reporting whether k already existed.
func (s *Set) Upsert(k Key, nh entry.NextHop) (existed bool) {
	_, existed = s.m[k]
	s.m[k] = nh
	return existed
}

// Delete removes k, reporting whether it existed.
func (s *Set) Delete(k Key) (existed bool) {
	_, existed = s.m[k]
	delete(s.m, k)
	return existed
}

// Has reports whether k is currently present.
func (s *Set) Has(k Key) bool {
	_, ok := s.m[k]
	return ok
}

// Len returns the number of distinct prefixes currently present.
func (s *Set) Len() int {
	return len(s.m)
}

// LongestMatch returns the next-hop of the longest prefix of length at
// most maxLen present in the set whose bits match the given address bits,
// walking lengths from maxLen down to 1 (length 0, the default route, is
// deliberately excluded: it is never leaf-pushed into a trie's slots, so
// it must not be re-expanded as one). Used on delete to restore a
// shadowed, still-present prefix's coverage over the slot range a
// more-specific deleted prefix leaf-pushed over.
func (s *Set) LongestMatch(bits []byte, maxLen int) (entry.NextHop, uint8, bool) {
	for l := maxLen; l >= 1; l-- {
		if nh, ok := s.m[Canon(bits, l)]; ok {
			return nh, uint8(l), true
		}
	}
	return 0, 0, false
}
