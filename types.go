package liblpm

import (
	"net/netip"

	"github.com/MuriloChianfa/liblpm-go/internal/entry"
	"github.com/MuriloChianfa/liblpm-go/internal/lpmerr"
	"github.com/MuriloChianfa/liblpm-go/internal/stats"
)

// Common errors, carried from the teacher's error-sentinel style and
// extended with the kinds spec §7 names.
var (
	ErrInvalidPrefix  = lpmerr.ErrInvalidPrefix
	ErrInvalidAddress = lpmerr.ErrInvalidAddress
	ErrTableClosed    = lpmerr.ErrTableClosed
	ErrNotFound       = lpmerr.ErrNotFound
	ErrOutOfMemory    = lpmerr.ErrOutOfMemory
	ErrOutOfSpace     = lpmerr.ErrOutOfSpace
	ErrBadPrefixLen   = lpmerr.ErrBadPrefixLen
)

// NextHop is a routing next-hop identifier: an opaque, unsigned 30-bit
// forwarding ID.
type NextHop = entry.NextHop

// InvalidNextHop is returned when no route matches a lookup.
const InvalidNextHop = entry.InvalidNextHop

// Stats reports diagnostics for a table.
type Stats = stats.Stats

// prefixToBytes converts a netip.Prefix to its big-endian byte
// representation and bit length.
func prefixToBytes(prefix netip.Prefix) ([]byte, int, error) {
	if !prefix.IsValid() {
		return nil, 0, ErrInvalidPrefix
	}
	addr := prefix.Addr()
	bits := prefix.Bits()
	if addr.Is4() {
		b := addr.As4()
		return b[:], bits, nil
	}
	if addr.Is6() {
		b := addr.As16()
		return b[:], bits, nil
	}
	return nil, 0, ErrInvalidPrefix
}

// addrToBytes converts a netip.Addr to its big-endian byte representation.
func addrToBytes(addr netip.Addr) ([]byte, error) {
	if !addr.IsValid() {
		return nil, ErrInvalidAddress
	}
	if addr.Is4() {
		b := addr.As4()
		return b[:], nil
	}
	if addr.Is6() {
		b := addr.As16()
		return b[:], nil
	}
	return nil, ErrInvalidAddress
}
