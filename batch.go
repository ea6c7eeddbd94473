package liblpm

import (
	"encoding/binary"
	"errors"
	"net/netip"
)

// ErrNotIPv4 is returned by the IPv4-only raw batch helpers when called on
// an IPv6 table.
var ErrNotIPv4 = errors.New("lpm: operation only supported for IPv4 tables")

// LookupBatchRaw performs batch lookups using pre-converted uint32
// addresses in big-endian byte order (see LookupIPv4U32), writing into a
// caller-provided results buffer. This is the zero-netip-conversion path,
// carried from the teacher's BatchTable.LookupBatchRaw.
func (t *Table) LookupBatchRaw(addrsU32 []uint32, results []NextHop) error {
	if t.closed {
		return ErrTableClosed
	}
	if !t.isIPv4 {
		return ErrNotIPv4
	}
	if len(results) < len(addrsU32) {
		return errors.New("lpm: results slice too small")
	}
	raw := make([][]byte, len(addrsU32))
	bufs := make([][4]byte, len(addrsU32))
	for i, a := range addrsU32 {
		binary.BigEndian.PutUint32(bufs[i][:], a)
		raw[i] = bufs[i][:]
	}
	t.eng.LookupBatch(raw, results[:len(addrsU32)])
	return nil
}

// PreallocatedBatchLookup performs batch lookups using caller-provided
// scratch buffers for the address bytes and a caller-provided results
// buffer. It still allocates its per-call lane index and sub-result
// slices, so it is not allocation-free; carried from the teacher's
// BatchTable.PreallocatedBatchLookup.
func (t *Table) PreallocatedBatchLookup(addrs []netip.Addr, scratch [][]byte, results []NextHop) error {
	if t.closed {
		return ErrTableClosed
	}
	if len(scratch) < len(addrs) || len(results) < len(addrs) {
		return errors.New("lpm: buffer too small")
	}
	valid := make([][]byte, 0, len(addrs))
	index := make([]int, 0, len(addrs))
	for i, addr := range addrs {
		if err := t.checkVersion(addr); err != nil {
			results[i] = InvalidNextHop
			continue
		}
		b, err := addrToBytes(addr)
		if err != nil {
			results[i] = InvalidNextHop
			continue
		}
		copy(scratch[i][:len(b)], b)
		valid = append(valid, scratch[i][:len(b)])
		index = append(index, i)
	}
	sub := make([]NextHop, len(valid))
	t.eng.LookupBatch(valid, sub)
	for j, i := range index {
		results[i] = sub[j]
	}
	return nil
}
