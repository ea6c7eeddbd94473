// Package stride implements the uniform 8-bit stride walk shared by the
// stride-8 tries (E2, E4) and by the interior levels of the wide-16 trie
// (E3): a 256-slot node, descended one byte at a time, with leaf-pushing
// expansion at the terminal byte. Both engine packages call into this one
// so the walk, allocation-safety, and leaf-pushing rules are implemented
// exactly once.
package stride

import (
	"github.com/MuriloChianfa/liblpm-go/internal/arena"
	"github.com/MuriloChianfa/liblpm-go/internal/bitops"
	"github.com/MuriloChianfa/liblpm-go/internal/entry"
)

// Node is a 256-entry 8-bit-stride trie node.
type Node struct {
	Slots [256]entry.Slot
}

// WalkAdd descends full 8-bit strides from (node, depth) while the prefix
// has more than one stride of bits left, allocating child nodes as
// needed. It returns the node and depth at which the terminal expansion
// must happen.
//
// A pointer into the arena is never held across an Alloc call: each step
// reads a slot by value, allocates if necessary, then re-fetches a fresh
// pointer to attach the child. This is the load-bearing rule for safety
// against arena growth relocating the backing slice.
func WalkAdd(a *arena.Arena[Node], node uint32, depth, l int, bits []byte) (uint32, int, error) {
	for l-depth > 8 {
		b := bitops.Byte(bits, depth/8)
		child := a.At(node).Slots[b].Child()
		if child == 0 {
			idx, err := a.Alloc()
			if err != nil {
				return 0, 0, err
			}
			a.At(node).Slots[b].SetChild(idx)
			child = idx
		}
		node = child
		depth += 8
	}
	return node, depth, nil
}

// WalkFind mirrors WalkAdd without allocating, for delete and existence
// checks: a missing child means the prefix was never inserted along this
// path.
func WalkFind(a *arena.Arena[Node], node uint32, depth, l int, bits []byte) (uint32, int, bool) {
	for l-depth > 8 {
		b := bitops.Byte(bits, depth/8)
		child := a.At(node).Slots[b].Child()
		if child == 0 {
			return 0, 0, false
		}
		node = child
		depth += 8
	}
	return node, depth, true
}

// Expand leaf-pushes nh into the terminal node's slot range for a prefix
// of length l ending within this stride (depth <= l <= depth+8).
func Expand(a *arena.Arena[Node], node uint32, depth, l int, bits []byte, nh entry.NextHop) {
	remaining := l - depth
	b := bitops.Byte(bits, depth/8)
	base, count := bitops.ExpandRange(uint32(b), 8, remaining)
	n := a.At(node)
	for i := base; i < base+count; i++ {
		n.Slots[i].Expand(nh, uint8(l))
	}
}

// Retract undoes the Expand for a deleted prefix of length l over the
// terminal node's slot range, restoring cov — the next-most-specific
// surviving prefix covering the same range, found by the caller via the
// rules side-table — into any slot that deleted prefix actually owned.
// covOK false means no surviving prefix covers the range and retracted
// slots become misses. A cov no longer than depth ends in an ancestor
// node, whose slot on this path still carries it, so the retracted slots
// are left invalid and Lookup falls back to that ancestor slot.
func Retract(a *arena.Arena[Node], node uint32, depth, l int, bits []byte, cov entry.NextHop, covLen uint8, covOK bool) {
	if covOK && int(covLen) <= depth {
		covOK = false
	}
	remaining := l - depth
	b := bitops.Byte(bits, depth/8)
	base, count := bitops.ExpandRange(uint32(b), 8, remaining)
	n := a.At(node)
	for i := base; i < base+count; i++ {
		n.Slots[i].Retract(uint8(l), cov, covLen, covOK)
	}
}

// Lookup walks from (node, depth) to maxBits, updating best at every valid
// slot seen and following children until one is absent. It is the single
// unrolled-walk kernel of spec §4.7: the deepest VALID slot on the path
// wins because leaf-pushing never needs to reconsider an ancestor.
func Lookup(a *arena.Arena[Node], node uint32, depth, maxBits int, addr []byte, best entry.NextHop) entry.NextHop {
	for depth < maxBits {
		b := addr[depth/8]
		s := a.At(node).Slots[b]
		if s.Valid() {
			best = s.Hop()
		}
		child := s.Child()
		if child == 0 {
			break
		}
		node = child
		depth += 8
	}
	return best
}

// Lane is one in-flight address of a software-pipelined batch lookup: the
// node/depth/best triple that Lookup would otherwise keep on the Go stack,
// externalized so K of them can be advanced one stride step at a time.
type Lane struct {
	Node  uint32
	Depth int
	Best  entry.NextHop
	Done  bool
}

// Step advances one lane by a single stride, mirroring the per-step body
// of Lookup. Real prefetch instructions are out of this module's scope
// (spec §1 excludes "runtime CPU-feature dispatch glue"); this gives the
// batch kernel the same K-wide, lockstep, lane-masked shape described in
// spec §4.7 without them.
func Step(a *arena.Arena[Node], ln *Lane, addr []byte, maxBits int) {
	if ln.Done {
		return
	}
	b := addr[ln.Depth/8]
	s := a.At(ln.Node).Slots[b]
	if s.Valid() {
		ln.Best = s.Hop()
	}
	child := s.Child()
	ln.Depth += 8
	if child == 0 || ln.Depth >= maxBits {
		ln.Done = true
		return
	}
	ln.Node = child
}
