// Package wide16 implements E3: a 65,536-entry wide root consuming the
// first 16 bits of an IPv6 address, with 8-bit-stride interior nodes for
// the remaining 112 bits. Grounded in the teacher's
// lpm_create_ipv6_wide16 naming (liblpm/cgo.go) and spec §4.5.
package wide16

import (
	"unsafe"

	"github.com/MuriloChianfa/liblpm-go/internal/arena"
	"github.com/MuriloChianfa/liblpm-go/internal/bitops"
	"github.com/MuriloChianfa/liblpm-go/internal/entry"
	"github.com/MuriloChianfa/liblpm-go/internal/lpmerr"
	"github.com/MuriloChianfa/liblpm-go/internal/ruleset"
	"github.com/MuriloChianfa/liblpm-go/internal/stats"
	"github.com/MuriloChianfa/liblpm-go/internal/stride"
)

const maxBits = 128

// Table is the IPv6 wide-16 trie: a 64Ki-entry root plus an 8-bit-stride
// tail shared with engine/stride8's node layout.
type Table struct {
	root       [1 << 16]entry.Slot
	tail       *arena.Arena[stride.Node]
	hasDefault bool
	defaultNH  entry.NextHop
	rules      *ruleset.Set
}

// New creates an empty IPv6 wide-16 trie.
func New() (*Table, error) {
	return &Table{
		tail:  arena.New[stride.Node](4),
		rules: ruleset.New(),
	}, nil
}

// Add inserts (bits, l) -> nh.
func (t *Table) Add(bits []byte, l int, nh entry.NextHop) error {
	if l < 0 || l > maxBits {
		return lpmerr.ErrBadPrefixLen
	}
	key := ruleset.Canon(bits, l)
	if l == 0 {
		t.hasDefault = true
		t.defaultNH = nh
		t.rules.Upsert(key, nh)
		return nil
	}
	idx16 := bitops.Bits16(bits, 0)
	if l <= 16 {
		base, count := bitops.ExpandRange(idx16, 16, l)
		for i := base; i < base+count; i++ {
			t.root[i].Expand(nh, uint8(l))
		}
		t.rules.Upsert(key, nh)
		return nil
	}

	child := t.root[idx16].Child()
	if child == 0 {
		idx, err := t.tail.Alloc()
		if err != nil {
			if err == arena.ErrOutOfSpace {
				return lpmerr.ErrOutOfSpace
			}
			return err
		}
		t.root[idx16].SetChild(idx)
		child = idx
	}
	node, depth, err := stride.WalkAdd(t.tail, child, 16, l, bits)
	if err != nil {
		if err == arena.ErrOutOfSpace {
			return lpmerr.ErrOutOfSpace
		}
		return err
	}
	stride.Expand(t.tail, node, depth, l, bits, nh)
	t.rules.Upsert(key, nh)
	return nil
}

// Delete removes (bits, l).
func (t *Table) Delete(bits []byte, l int) error {
	if l < 0 || l > maxBits {
		return lpmerr.ErrBadPrefixLen
	}
	key := ruleset.Canon(bits, l)
	if l == 0 {
		if !t.hasDefault {
			return lpmerr.ErrNotFound
		}
		t.hasDefault = false
		t.defaultNH = 0
		t.rules.Delete(key)
		return nil
	}
	if !t.rules.Has(key) {
		return lpmerr.ErrNotFound
	}

	idx16 := bitops.Bits16(bits, 0)
	if l <= 16 {
		base, count := bitops.ExpandRange(idx16, 16, l)
		covNH, covLen, covOK := t.rules.LongestMatch(bits, l-1)
		for i := base; i < base+count; i++ {
			t.root[i].Retract(uint8(l), covNH, covLen, covOK)
		}
		t.rules.Delete(key)
		return nil
	}

	child := t.root[idx16].Child()
	if child == 0 {
		return lpmerr.ErrNotFound
	}
	node, depth, ok := stride.WalkFind(t.tail, child, 16, l, bits)
	if !ok {
		return lpmerr.ErrNotFound
	}
	covNH, covLen, covOK := t.rules.LongestMatch(bits, l-1)
	stride.Retract(t.tail, node, depth, l, bits, covNH, covLen, covOK)
	t.rules.Delete(key)
	return nil
}

// Lookup returns the longest-prefix-match next-hop for a 16-byte address.
func (t *Table) Lookup(addr []byte) entry.NextHop {
	idx16 := bitops.Bits16(addr, 0)
	root := t.root[idx16]
	best := entry.InvalidNextHop
	if root.Valid() {
		best = root.Hop()
	}
	if child := root.Child(); child != 0 {
		best = stride.Lookup(t.tail, child, 16, maxBits, addr, best)
	}
	if best.IsValid() {
		return best
	}
	if t.hasDefault {
		return t.defaultNH
	}
	return entry.InvalidNextHop
}

// LookupBatch performs a K-wide software-pipelined lookup: the root step
// is taken once per lane up front (it never has a deeper stride-8 sibling
// to pipeline against), then the 8-bit tail is walked lockstep as in
// engine/stride8.
func (t *Table) LookupBatch(addrs [][]byte, results []entry.NextHop) {
	const laneWidth = 8
	n := len(addrs)
	var lanes [laneWidth]stride.Lane
	for base := 0; base < n; base += laneWidth {
		end := base + laneWidth
		if end > n {
			end = n
		}
		width := end - base
		for i := 0; i < width; i++ {
			addr := addrs[base+i]
			idx16 := bitops.Bits16(addr, 0)
			root := t.root[idx16]
			best := entry.InvalidNextHop
			if root.Valid() {
				best = root.Hop()
			}
			child := root.Child()
			lanes[i] = stride.Lane{Node: child, Depth: 16, Best: best, Done: child == 0}
		}
		for {
			active := false
			for i := 0; i < width; i++ {
				if lanes[i].Done {
					continue
				}
				active = true
				stride.Step(t.tail, &lanes[i], addrs[base+i], maxBits)
			}
			if !active {
				break
			}
		}
		for i := 0; i < width; i++ {
			best := lanes[i].Best
			if !best.IsValid() && t.hasDefault {
				best = t.defaultNH
			}
			results[base+i] = best
		}
	}
}

// Stats reports diagnostics for the table.
func (t *Table) Stats() stats.Stats {
	return stats.Stats{
		NumPrefixes: t.rules.Len(),
		NumNodes:    int(t.tail.Used()),
		BytesUsed:   len(t.root)*int(unsafe.Sizeof(entry.Slot{})) + t.tail.Cap()*arena.NodeSize[stride.Node](),
	}
}
