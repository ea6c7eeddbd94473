// Package stride8 implements E2 (IPv4, 4 levels of 8-bit stride) and E4
// (IPv6, 16 levels of 8-bit stride): a uniform multibit trie with 256-entry
// nodes, leaf-pushed at the terminal byte. Grounded in the teacher's
// lpm_create_ipv4_8stride / lpm_create_ipv6_8stride naming (liblpm/cgo.go)
// and spec §4.4/§4.6.
package stride8

import (
	"github.com/MuriloChianfa/liblpm-go/internal/arena"
	"github.com/MuriloChianfa/liblpm-go/internal/entry"
	"github.com/MuriloChianfa/liblpm-go/internal/lpmerr"
	"github.com/MuriloChianfa/liblpm-go/internal/ruleset"
	"github.com/MuriloChianfa/liblpm-go/internal/stats"
	"github.com/MuriloChianfa/liblpm-go/internal/stride"
)

// Table is an 8-bit-stride multibit trie. addrBytes is 4 for IPv4, 16 for
// IPv6; every other operation is identical between the two.
type Table struct {
	arena      *arena.Arena[stride.Node]
	root       uint32
	addrBytes  int
	maxBits    int
	hasDefault bool
	defaultNH  entry.NextHop
	rules      *ruleset.Set
}

// NewIPv4 creates E2: a 4-level, 8-bit-stride IPv4 trie.
func NewIPv4() (*Table, error) {
	return newTable(4)
}

// NewIPv6 creates E4: a 16-level, 8-bit-stride IPv6 trie.
func NewIPv6() (*Table, error) {
	return newTable(16)
}

func newTable(addrBytes int) (*Table, error) {
	a := arena.New[stride.Node](4)
	root, err := a.Alloc()
	if err != nil {
		return nil, err
	}
	return &Table{
		arena:     a,
		root:      root,
		addrBytes: addrBytes,
		maxBits:   addrBytes * 8,
		rules:     ruleset.New(),
	}, nil
}

// Add inserts (bits, l) -> nh, per spec §4.1's leaf-pushing expansion.
func (t *Table) Add(bits []byte, l int, nh entry.NextHop) error {
	if l < 0 || l > t.maxBits {
		return lpmerr.ErrBadPrefixLen
	}
	key := ruleset.Canon(bits, l)
	if l == 0 {
		t.hasDefault = true
		t.defaultNH = nh
		t.rules.Upsert(key, nh)
		return nil
	}
	node, depth, err := stride.WalkAdd(t.arena, t.root, 0, l, bits)
	if err != nil {
		if err == arena.ErrOutOfSpace {
			return lpmerr.ErrOutOfSpace
		}
		return err
	}
	stride.Expand(t.arena, node, depth, l, bits, nh)
	t.rules.Upsert(key, nh)
	return nil
}

// Delete removes (bits, l), per spec §4.8.
func (t *Table) Delete(bits []byte, l int) error {
	if l < 0 || l > t.maxBits {
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
	node, depth, ok := stride.WalkFind(t.arena, t.root, 0, l, bits)
	if !ok {
		return lpmerr.ErrNotFound
	}
	covNH, covLen, covOK := t.rules.LongestMatch(bits, l-1)
	stride.Retract(t.arena, node, depth, l, bits, covNH, covLen, covOK)
	t.rules.Delete(key)
	return nil
}

// Lookup returns the longest-prefix-match next-hop for addr; on a miss it
// returns the table's default route if one is set, else InvalidNextHop.
func (t *Table) Lookup(addr []byte) entry.NextHop {
	best := stride.Lookup(t.arena, t.root, 0, t.maxBits, addr, entry.InvalidNextHop)
	if best.IsValid() {
		return best
	}
	if t.hasDefault {
		return t.defaultNH
	}
	return entry.InvalidNextHop
}

// LookupBatch performs a K-wide software-pipelined lookup of addrs into
// results (len(results) must be >= len(addrs)), per spec §4.7.
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
			lanes[i] = stride.Lane{Node: t.root, Best: entry.InvalidNextHop}
		}
		for {
			active := false
			for i := 0; i < width; i++ {
				if lanes[i].Done {
					continue
				}
				active = true
				stride.Step(t.arena, &lanes[i], addrs[base+i], t.maxBits)
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
		NumNodes:    int(t.arena.Used()),
		BytesUsed:   t.arena.Cap() * arena.NodeSize[stride.Node](),
	}
}
