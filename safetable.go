package liblpm

import (
	"net/netip"
	"sync"
)

// SafeTable is a mutex-guarded wrapper around Table, for callers that
// cannot otherwise guarantee spec §5's "no mutator concurrent with any
// other operation" rule. Carried from the teacher's SafeTable
// (liblpm/liblpm.go).
type SafeTable struct {
	table *Table
	mu    sync.RWMutex
}

// NewSafeTableIPv4 wraps a new default-algorithm IPv4 table.
func NewSafeTableIPv4() (*SafeTable, error) {
	t, err := NewTableIPv4()
	if err != nil {
		return nil, err
	}
	return &SafeTable{table: t}, nil
}

// NewSafeTableIPv6 wraps a new default-algorithm IPv6 table.
func NewSafeTableIPv6() (*SafeTable, error) {
	t, err := NewTableIPv6()
	if err != nil {
		return nil, err
	}
	return &SafeTable{table: t}, nil
}

// Close releases the underlying table.
func (st *SafeTable) Close() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.table.Close()
}

// Insert adds a prefix route, holding the write lock.
func (st *SafeTable) Insert(prefix netip.Prefix, nextHop NextHop) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.table.Insert(prefix, nextHop)
}

// Delete removes a prefix route, holding the write lock.
func (st *SafeTable) Delete(prefix netip.Prefix) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.table.Delete(prefix)
}

// Lookup performs a lookup, holding the read lock.
func (st *SafeTable) Lookup(addr netip.Addr) (NextHop, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.table.Lookup(addr)
}

// LookupBatch performs a batch lookup, holding the read lock.
func (st *SafeTable) LookupBatch(addrs []netip.Addr) ([]NextHop, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.table.LookupBatch(addrs)
}

// Stats returns diagnostics, holding the read lock.
func (st *SafeTable) Stats() (Stats, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.table.Stats()
}
