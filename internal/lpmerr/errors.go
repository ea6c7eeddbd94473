// Package lpmerr holds the sentinel errors shared by the engines and the
// public facade, so both sides of the API can compare against the same
// error values with errors.Is.
package lpmerr

import "errors"

// Common errors, carried from the teacher's error-sentinel style
// (liblpm/types.go) and extended with the kinds spec.md §7 names.
var (
	ErrInvalidPrefix  = errors.New("lpm: invalid prefix")
	ErrInvalidAddress = errors.New("lpm: invalid address")
	ErrTableClosed    = errors.New("lpm: table is closed")
	ErrNotFound       = errors.New("lpm: route not found")
	ErrOutOfMemory    = errors.New("lpm: out of memory")
	ErrOutOfSpace     = errors.New("lpm: arena exhausted")
	ErrBadPrefixLen   = errors.New("lpm: invalid prefix length")
)
