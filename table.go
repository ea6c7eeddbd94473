package liblpm

import (
	"encoding/binary"
	"net/netip"

	"github.com/MuriloChianfa/liblpm-go/engine/dir24"
	"github.com/MuriloChianfa/liblpm-go/engine/stride8"
	"github.com/MuriloChianfa/liblpm-go/engine/wide16"
	"github.com/MuriloChianfa/liblpm-go/internal/entry"
)

// engineTable is the common surface every concrete engine package
// implements; Table is a thin dispatcher over whichever one it was
// constructed with.
type engineTable interface {
	Add(bits []byte, l int, nh entry.NextHop) error
	Delete(bits []byte, l int) error
	Lookup(addr []byte) entry.NextHop
	LookupBatch(addrs [][]byte, results []entry.NextHop)
	Stats() Stats
}

// Variant identifies which of the four engines a Table was created with.
type Variant int

const (
	IPv4Dir24 Variant = iota
	IPv4Stride8
	IPv6Wide16
	IPv6Stride8
)

// Table is an LPM routing table backed by one of the four engines. The
// zero value is not usable; construct with one of the NewTable*
// constructors.
//
// A Table is safe for concurrent readers (Lookup/LookupBatch) as long as
// no Insert/Delete runs concurrently with them or with each other — see
// SafeTable for a mutex-guarded wrapper.
type Table struct {
	eng     engineTable
	variant Variant
	isIPv4  bool
	closed  bool
}

// NewTableIPv4Dir24 creates an IPv4 routing table using the DIR-24-8
// algorithm (E1): ~1-2 memory accesses per lookup.
func NewTableIPv4Dir24() (*Table, error) {
	t, err := dir24.New()
	if err != nil {
		return nil, err
	}
	return &Table{eng: t, variant: IPv4Dir24, isIPv4: true}, nil
}

// NewTableIPv4Stride8 creates an IPv4 routing table using the uniform
// 8-bit-stride trie (E2).
func NewTableIPv4Stride8() (*Table, error) {
	t, err := stride8.NewIPv4()
	if err != nil {
		return nil, err
	}
	return &Table{eng: t, variant: IPv4Stride8, isIPv4: true}, nil
}

// NewTableIPv4 creates a new IPv4 routing table using the default
// algorithm (DIR-24-8).
func NewTableIPv4() (*Table, error) {
	return NewTableIPv4Dir24()
}

// NewTableIPv6Wide16 creates an IPv6 routing table using the wide-16 root
// plus 8-bit-stride tail (E3): optimal for common /16, /32, /48 boundaries.
func NewTableIPv6Wide16() (*Table, error) {
	t, err := wide16.New()
	if err != nil {
		return nil, err
	}
	return &Table{eng: t, variant: IPv6Wide16, isIPv4: false}, nil
}

// NewTableIPv6Stride8 creates an IPv6 routing table using the uniform
// 8-bit-stride trie (E4).
func NewTableIPv6Stride8() (*Table, error) {
	t, err := stride8.NewIPv6()
	if err != nil {
		return nil, err
	}
	return &Table{eng: t, variant: IPv6Stride8, isIPv4: false}, nil
}

// NewTableIPv6 creates a new IPv6 routing table using the default
// algorithm (wide-16).
func NewTableIPv6() (*Table, error) {
	return NewTableIPv6Wide16()
}

// Variant reports which engine this table was constructed with.
func (t *Table) Variant() Variant {
	return t.variant
}

// Close releases the table. After Close, no further operations are
// permitted. It is idempotent.
func (t *Table) Close() error {
	t.closed = true
	t.eng = nil
	return nil
}

func (t *Table) checkVersion(addr netip.Addr) error {
	if t.isIPv4 && !addr.Is4() {
		return ErrInvalidPrefix
	}
	if !t.isIPv4 && !addr.Is6() {
		return ErrInvalidPrefix
	}
	return nil
}

// Insert adds a prefix route to the table with the given next hop. The
// prefix must match the table's IP version.
func (t *Table) Insert(prefix netip.Prefix, nextHop NextHop) error {
	if t.closed {
		return ErrTableClosed
	}
	if !prefix.IsValid() {
		return ErrInvalidPrefix
	}
	if err := t.checkVersion(prefix.Addr()); err != nil {
		return err
	}
	bits, l, err := prefixToBytes(prefix)
	if err != nil {
		return err
	}
	return t.eng.Add(bits, l, nextHop)
}

// Delete removes a prefix route from the table.
func (t *Table) Delete(prefix netip.Prefix) error {
	if t.closed {
		return ErrTableClosed
	}
	if !prefix.IsValid() {
		return ErrInvalidPrefix
	}
	if err := t.checkVersion(prefix.Addr()); err != nil {
		return err
	}
	bits, l, err := prefixToBytes(prefix)
	if err != nil {
		return err
	}
	return t.eng.Delete(bits, l)
}

// Lookup performs a longest-prefix match for addr. found is false iff the
// returned next hop is InvalidNextHop.
func (t *Table) Lookup(addr netip.Addr) (nh NextHop, found bool) {
	if t.closed {
		return InvalidNextHop, false
	}
	if err := t.checkVersion(addr); err != nil {
		return InvalidNextHop, false
	}
	bits, err := addrToBytes(addr)
	if err != nil {
		return InvalidNextHop, false
	}
	nh = t.eng.Lookup(bits)
	return nh, nh.IsValid()
}

// LookupIPv4U32 is the IPv4 fast path named in spec §6: addr is the
// address in big-endian byte order packed into a uint32 (i.e.
// binary.BigEndian.Uint32(addrBytes), NOT the host's native integer
// value for that address — the same convention LookupBatchRaw uses).
func (t *Table) LookupIPv4U32(addr uint32) NextHop {
	if t.closed || !t.isIPv4 {
		return InvalidNextHop
	}
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], addr)
	return t.eng.Lookup(b[:])
}

// LookupBatch performs a lookup for each address in addrs. results[i] is
// always the lookup of addrs[i]; lanes never interact.
func (t *Table) LookupBatch(addrs []netip.Addr) ([]NextHop, error) {
	if t.closed {
		return nil, ErrTableClosed
	}
	if len(addrs) == 0 {
		return []NextHop{}, nil
	}
	raw := make([][]byte, len(addrs))
	for i, addr := range addrs {
		if err := t.checkVersion(addr); err != nil {
			raw[i] = nil
			continue
		}
		b, err := addrToBytes(addr)
		if err != nil {
			raw[i] = nil
			continue
		}
		raw[i] = b
	}
	results := make([]NextHop, len(addrs))
	// Addresses of the wrong version (nil raw) have no defined behavior in
	// the underlying engine; resolve them to a miss up front and only hand
	// the engine the well-formed lanes.
	valid := make([][]byte, 0, len(addrs))
	index := make([]int, 0, len(addrs))
	for i, b := range raw {
		if b == nil {
			results[i] = InvalidNextHop
			continue
		}
		valid = append(valid, b)
		index = append(index, i)
	}
	sub := make([]NextHop, len(valid))
	t.eng.LookupBatch(valid, sub)
	for j, i := range index {
		results[i] = sub[j]
	}
	return results, nil
}

// Stats returns diagnostics about the table.
func (t *Table) Stats() (Stats, error) {
	if t.closed {
		return Stats{}, ErrTableClosed
	}
	return t.eng.Stats(), nil
}
