// Package dir24 implements E1: the IPv4 DIR-24-8 scheme — a flat
// 16,777,216-entry first level (tbl24) indexed by the top 24 bits of the
// address, plus a pool of 256-entry extension groups (tbl8) for prefixes
// longer than /24. Grounded in the teacher's lpm_create_ipv4_dir24 naming
// (liblpm/cgo.go) and spec §4.3.
package dir24

import (
	"unsafe"

	"github.com/MuriloChianfa/liblpm-go/internal/arena"
	"github.com/MuriloChianfa/liblpm-go/internal/bitops"
	"github.com/MuriloChianfa/liblpm-go/internal/entry"
	"github.com/MuriloChianfa/liblpm-go/internal/lpmerr"
	"github.com/MuriloChianfa/liblpm-go/internal/ruleset"
	"github.com/MuriloChianfa/liblpm-go/internal/stats"
)

const (
	extFlag   uint32 = 1 << 31 // tbl24 only: entry is a tbl8 group pointer
	validFlag uint32 = 1 << 30 // tbl24 (unextended) and tbl8: next-hop is live
	groupMask uint32 = 0x00FF_FFFF
	nhMask    uint32 = 0x3FFF_FFFF

	tbl24Size = 1 << 24
)

// tbl24Entry is a single slot of the 16M-entry first level.
type tbl24Entry struct {
	raw      uint32
	ownerLen uint8
}

// tbl8Entry is a single slot of a 256-entry extension group.
type tbl8Entry struct {
	raw      uint32
	ownerLen uint8
}

type tbl8Group struct {
	entries [256]tbl8Entry
}

// Table is the DIR-24-8 engine.
type Table struct {
	tbl24      []tbl24Entry
	tbl8       *arena.Arena[tbl8Group]
	hasDefault bool
	defaultNH  entry.NextHop
	rules      *ruleset.Set
}

// New creates an empty DIR-24-8 IPv4 trie.
func New() (*Table, error) {
	return &Table{
		tbl24: make([]tbl24Entry, tbl24Size),
		tbl8:  arena.New[tbl8Group](4),
		rules: ruleset.New(),
	}, nil
}

// expandTbl24 leaf-pushes nh into an unextended tbl24 entry, honoring the
// per-slot owner length (callers never invoke this on an extended entry).
func expandTbl24(e *tbl24Entry, nh entry.NextHop, l int) {
	if e.raw&validFlag == 0 || uint8(l) >= e.ownerLen {
		e.raw = validFlag | (uint32(nh) & nhMask)
		e.ownerLen = uint8(l)
	}
}

func isValid24(e *tbl24Entry) bool {
	return e.raw&extFlag == 0 && e.raw&validFlag != 0
}

func expandTbl8(e *tbl8Entry, nh entry.NextHop, l int) {
	if e.raw&validFlag == 0 || uint8(l) >= e.ownerLen {
		e.raw = validFlag | (uint32(nh) & nhMask)
		e.ownerLen = uint8(l)
	}
}

// Add inserts (bits, l) -> nh, per spec §4.3.
func (t *Table) Add(bits []byte, l int, nh entry.NextHop) error {
	if l < 0 || l > 32 {
		return lpmerr.ErrBadPrefixLen
	}
	key := ruleset.Canon(bits, l)
	if l == 0 {
		t.hasDefault = true
		t.defaultNH = nh
		t.rules.Upsert(key, nh)
		return nil
	}

	top24 := bitops.Bits24(bits)

	if l <= 24 {
		base, count := bitops.ExpandRange(top24, 24, l)
		for i := base; i < base+count; i++ {
			e := &t.tbl24[i]
			if e.raw&extFlag != 0 {
				group := t.tbl8.At(e.raw & groupMask)
				for j := range group.entries {
					expandTbl8(&group.entries[j], nh, l)
				}
				continue
			}
			expandTbl24(e, nh, l)
		}
		t.rules.Upsert(key, nh)
		return nil
	}

	// l in (24, 32]: top24 fully identifies the single tbl24 entry to
	// extend.
	e := &t.tbl24[top24]
	var group *tbl8Group
	if e.raw&extFlag == 0 {
		idx, err := t.tbl8.Alloc()
		if err != nil {
			if err == arena.ErrOutOfSpace {
				return lpmerr.ErrOutOfSpace
			}
			return err
		}
		group = t.tbl8.At(idx)
		if isValid24(e) {
			migratedNH := e.raw & nhMask
			for j := range group.entries {
				group.entries[j] = tbl8Entry{raw: validFlag | migratedNH, ownerLen: e.ownerLen}
			}
		}
		// Re-fetch: Alloc may have grown the arena and relocated the
		// group, but e still points at tbl24 (never relocated), so only
		// group needs refreshing.
		e.raw = extFlag | (idx & groupMask)
	} else {
		group = t.tbl8.At(e.raw & groupMask)
	}

	byte3 := uint32(bitops.Byte(bits, 3))
	base, count := bitops.ExpandRange(byte3, 8, l-24)
	for i := base; i < base+count; i++ {
		expandTbl8(&group.entries[i], nh, l)
	}
	t.rules.Upsert(key, nh)
	return nil
}

// Delete removes (bits, l), per spec §4.3/§4.8.
func (t *Table) Delete(bits []byte, l int) error {
	if l < 0 || l > 32 {
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

	top24 := bitops.Bits24(bits)

	if l <= 24 {
		base, count := bitops.ExpandRange(top24, 24, l)
		covNH, covLen, covOK := t.rules.LongestMatch(bits, l-1)
		for i := base; i < base+count; i++ {
			e := &t.tbl24[i]
			if e.raw&extFlag != 0 {
				group := t.tbl8.At(e.raw & groupMask)
				for j := range group.entries {
					retractTbl8(&group.entries[j], l, covNH, covLen, covOK)
				}
				continue
			}
			retractTbl24(e, l, covNH, covLen, covOK)
		}
		t.rules.Delete(key)
		return nil
	}

	e := &t.tbl24[top24]
	if e.raw&extFlag == 0 {
		return lpmerr.ErrNotFound
	}
	group := t.tbl8.At(e.raw & groupMask)
	byte3 := uint32(bitops.Byte(bits, 3))
	base, count := bitops.ExpandRange(byte3, 8, l-24)
	covNH, covLen, covOK := t.rules.LongestMatch(bits, l-1)
	for i := base; i < base+count; i++ {
		retractTbl8(&group.entries[i], l, covNH, covLen, covOK)
	}
	t.rules.Delete(key)
	return nil
}

// retractTbl24 undoes expandTbl24 for a deleted prefix of length l,
// restoring (covNH, covLen) — the next-most-specific surviving prefix
// covering this entry, found via the rules side-table — if covOK, so a
// shorter prefix this one had shadowed reappears instead of becoming a
// miss.
func retractTbl24(e *tbl24Entry, l int, covNH entry.NextHop, covLen uint8, covOK bool) {
	if e.raw&validFlag == 0 || e.ownerLen != uint8(l) {
		return
	}
	if covOK {
		e.raw = validFlag | (uint32(covNH) & nhMask)
		e.ownerLen = covLen
	} else {
		e.raw = 0
		e.ownerLen = 0
	}
}

func retractTbl8(e *tbl8Entry, l int, covNH entry.NextHop, covLen uint8, covOK bool) {
	if e.raw&validFlag == 0 || e.ownerLen != uint8(l) {
		return
	}
	if covOK {
		e.raw = validFlag | (uint32(covNH) & nhMask)
		e.ownerLen = covLen
	} else {
		e.raw = 0
		e.ownerLen = 0
	}
}

// Lookup returns the longest-prefix-match next-hop for a 4-byte address.
func (t *Table) Lookup(addr []byte) entry.NextHop {
	idx := bitops.Bits24(addr)
	e := t.tbl24[idx]
	var best entry.NextHop = entry.InvalidNextHop
	if e.raw&extFlag != 0 {
		group := t.tbl8.At(e.raw & groupMask)
		ge := group.entries[bitops.Byte(addr, 3)]
		if ge.raw&validFlag != 0 {
			best = entry.NextHop(ge.raw & nhMask)
		}
	} else if e.raw&validFlag != 0 {
		best = entry.NextHop(e.raw & nhMask)
	}
	if best.IsValid() {
		return best
	}
	if t.hasDefault {
		return t.defaultNH
	}
	return entry.InvalidNextHop
}

// LookupBatch looks up each 4-byte address in turn via Lookup; it is not
// lane-pipelined. Each address takes one tbl24 step and, only if extended, one
// tbl8 step — DIR-24-8's whole point is that this is at most two memory
// accesses, so there is no deeper lockstep loop to pipeline here.
func (t *Table) LookupBatch(addrs [][]byte, results []entry.NextHop) {
	for i, addr := range addrs {
		results[i] = t.Lookup(addr)
	}
}

// Stats reports diagnostics for the table.
func (t *Table) Stats() stats.Stats {
	return stats.Stats{
		NumPrefixes: t.rules.Len(),
		NumNodes:    int(t.tbl8.Used()),
		BytesUsed:   len(t.tbl24)*int(unsafe.Sizeof(tbl24Entry{})) + t.tbl8.Cap()*arena.NodeSize[tbl8Group](),
	}
}
