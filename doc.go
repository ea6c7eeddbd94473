// Package liblpm implements a longest-prefix-match engine for IPv4 and
// IPv6 routing tables. Given a set of (prefix, prefix_length, next_hop)
// rules and a query address, Lookup returns the next-hop of the most
// specific prefix covering the address, or InvalidNextHop on a miss.
//
// Four interchangeable engines are available, one per NewTable*
// constructor:
//
//   - NewTableIPv4Dir24: IPv4 DIR-24-8, a flat 16M-entry first level plus
//     256-entry extension groups for prefixes longer than /24.
//   - NewTableIPv4Stride8: IPv4, a uniform 8-bit-stride multibit trie.
//   - NewTableIPv6Wide16: IPv6, a 16-bit-stride root plus 8-bit-stride
//     interior nodes.
//   - NewTableIPv6Stride8: IPv6, a uniform 8-bit-stride multibit trie.
//
// All four engines implement identical lookup semantics; they differ only
// in memory/lookup-latency trade-offs. A Table is safe for concurrent
// readers as long as no mutator runs concurrently; use SafeTable when
// Insert/Delete and Lookup may overlap across goroutines.
package liblpm
