package liblpm

import (
	"encoding/binary"
	"net/netip"
	"testing"
)

// TestSimpleIPv4InsertLookup tests basic IPv4 functionality.
func TestSimpleIPv4InsertLookup(t *testing.T) {
	table, err := NewTableIPv4()
	if err != nil {
		t.Fatalf("Failed to create IPv4 table: %v", err)
	}
	defer table.Close()

	prefix := netip.MustParsePrefix("192.168.0.0/16")
	if err := table.Insert(prefix, 100); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}

	addr := netip.MustParseAddr("192.168.1.1")
	nh, found := table.Lookup(addr)
	if !found || nh != 100 {
		t.Errorf("Expected nh=100, got nh=%d, found=%v", nh, found)
	}

	addr2 := netip.MustParseAddr("10.0.0.1")
	if _, found2 := table.Lookup(addr2); found2 {
		t.Error("Should not find route outside range")
	}
}

// TestInsertAndLookupIPv6 tests basic insert and lookup for IPv6.
func TestInsertAndLookupIPv6(t *testing.T) {
	table, err := NewTableIPv6()
	if err != nil {
		t.Fatalf("Failed to create IPv6 table: %v", err)
	}
	defer table.Close()

	prefix := netip.MustParsePrefix("2001:db8::/32")
	if err := table.Insert(prefix, 200); err != nil {
		t.Fatalf("Failed to insert prefix: %v", err)
	}

	addr := netip.MustParseAddr("2001:db8::1")
	nh, found := table.Lookup(addr)
	if !found || nh != 200 {
		t.Errorf("Expected next hop 200, got %d (found=%v)", nh, found)
	}

	addr2 := netip.MustParseAddr("2001:db9::1")
	if _, found2 := table.Lookup(addr2); found2 {
		t.Error("Should not find route for 2001:db9::1")
	}
}

// TestScenarioS1IPv4LPM is spec.md §8 Scenario S1.
func TestScenarioS1IPv4LPM(t *testing.T) {
	for _, variant := range allIPv4Variants(t) {
		table := variant.table
		insertIPv4(t, table, "10.0.0.0/8", 100)
		insertIPv4(t, table, "10.1.0.0/16", 200)
		insertIPv4(t, table, "10.1.2.0/24", 300)
		insertIPv4(t, table, "10.1.2.3/32", 400)

		cases := map[string]NextHop{
			"10.1.2.3":    400,
			"10.1.2.4":    300,
			"10.1.3.1":    200,
			"10.2.0.0":    100,
			"192.168.1.1": InvalidNextHop,
		}
		for addr, want := range cases {
			got, _ := table.Lookup(netip.MustParseAddr(addr))
			if got != want {
				t.Errorf("%s: lookup(%s) = %d, want %d", variant.name, addr, got, want)
			}
		}
		table.Close()
	}
}

// TestScenarioS2DefaultRoute is spec.md §8 Scenario S2.
func TestScenarioS2DefaultRoute(t *testing.T) {
	for _, variant := range allIPv4Variants(t) {
		table := variant.table
		insertIPv4(t, table, "0.0.0.0/0", 999)
		insertIPv4(t, table, "10.0.0.0/8", 100)
		insertIPv4(t, table, "192.168.0.0/16", 200)

		cases := map[string]NextHop{
			"10.1.2.3":    100,
			"192.168.1.1": 200,
			"8.8.8.8":     999,
			"172.16.0.1":  999,
		}
		for addr, want := range cases {
			got, _ := table.Lookup(netip.MustParseAddr(addr))
			if got != want {
				t.Errorf("%s: lookup(%s) = %d, want %d", variant.name, addr, got, want)
			}
		}
		table.Close()
	}
}

// TestScenarioS3Delete is spec.md §8 Scenario S3.
func TestScenarioS3Delete(t *testing.T) {
	for _, variant := range allIPv4Variants(t) {
		table := variant.table
		insertIPv4(t, table, "10.0.0.0/8", 100)
		insertIPv4(t, table, "10.1.0.0/16", 200)
		insertIPv4(t, table, "10.1.2.0/24", 300)
		insertIPv4(t, table, "10.1.2.3/32", 400)

		if err := table.Delete(netip.MustParsePrefix("10.1.2.3/32")); err != nil {
			t.Fatalf("%s: delete /32: %v", variant.name, err)
		}
		if got, _ := table.Lookup(netip.MustParseAddr("10.1.2.3")); got != 300 {
			t.Errorf("%s: after delete /32, lookup(10.1.2.3) = %d, want 300", variant.name, got)
		}

		if err := table.Delete(netip.MustParsePrefix("10.1.2.0/24")); err != nil {
			t.Fatalf("%s: delete /24: %v", variant.name, err)
		}
		if got, _ := table.Lookup(netip.MustParseAddr("10.1.2.3")); got != 200 {
			t.Errorf("%s: after delete /24, lookup(10.1.2.3) = %d, want 200", variant.name, got)
		}
		table.Close()
	}
}

// TestScenarioS4IPv6LPM is spec.md §8 Scenario S4.
func TestScenarioS4IPv6LPM(t *testing.T) {
	for _, variant := range allIPv6Variants(t) {
		table := variant.table
		insertIPv6(t, table, "2001::/16", 100)
		insertIPv6(t, table, "2001:db8::/32", 200)
		insertIPv6(t, table, "2001:db8:0:1::/64", 300)

		cases := map[string]NextHop{
			"2001:db8:0:1::1": 300,
			"2001:db8:0:2::1": 200,
			"2001:0e00::1":    100,
			"2002::1":         InvalidNextHop,
		}
		for addr, want := range cases {
			got, _ := table.Lookup(netip.MustParseAddr(addr))
			if got != want {
				t.Errorf("%s: lookup(%s) = %d, want %d", variant.name, addr, got, want)
			}
		}
		table.Close()
	}
}

// TestOverlappingPrefixes tests longest prefix match with overlapping prefixes.
func TestOverlappingPrefixes(t *testing.T) {
	table, err := NewTableIPv4()
	if err != nil {
		t.Fatalf("Failed to create IPv4 table: %v", err)
	}
	defer table.Close()

	insertIPv4(t, table, "10.0.0.0/8", 100)
	insertIPv4(t, table, "10.1.0.0/16", 200)
	insertIPv4(t, table, "10.1.1.0/24", 300)

	tests := []struct {
		addr string
		want NextHop
	}{
		{"10.1.1.1", 300},
		{"10.1.2.1", 200},
		{"10.2.0.1", 100},
		{"11.0.0.1", InvalidNextHop},
	}
	for _, tt := range tests {
		nh, found := table.Lookup(netip.MustParseAddr(tt.addr))
		if tt.want == InvalidNextHop {
			if found {
				t.Errorf("%s should not match, got %d", tt.addr, nh)
			}
			continue
		}
		if !found || nh != tt.want {
			t.Errorf("lookup(%s) = %d (found=%v), want %d", tt.addr, nh, found, tt.want)
		}
	}
}

// TestDelete tests prefix deletion.
func TestDelete(t *testing.T) {
	table, err := NewTableIPv4()
	if err != nil {
		t.Fatalf("Failed to create IPv4 table: %v", err)
	}
	defer table.Close()

	prefix := netip.MustParsePrefix("192.168.0.0/16")
	insertIPv4(t, table, "192.168.0.0/16", 100)

	addr := netip.MustParseAddr("192.168.1.1")
	if nh, found := table.Lookup(addr); !found || nh != 100 {
		t.Fatal("route should exist after insert")
	}

	if err := table.Delete(prefix); err != nil {
		t.Fatalf("failed to delete prefix: %v", err)
	}
	if _, found := table.Lookup(addr); found {
		t.Error("route should not exist after delete")
	}
}

// TestDeleteNotFound tests Testable Property 6: idempotence of delete.
func TestDeleteNotFound(t *testing.T) {
	table, err := NewTableIPv4()
	if err != nil {
		t.Fatalf("Failed to create IPv4 table: %v", err)
	}
	defer table.Close()

	prefix := netip.MustParsePrefix("10.0.0.0/8")
	if err := table.Delete(prefix); err != ErrNotFound {
		t.Errorf("Delete of absent prefix: got %v, want ErrNotFound", err)
	}

	insertIPv4(t, table, "10.0.0.0/8", 100)
	if err := table.Delete(prefix); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := table.Delete(prefix); err != ErrNotFound {
		t.Errorf("second delete of now-absent prefix: got %v, want ErrNotFound", err)
	}
}

// TestLookupBatchIPv4 tests batch lookup for IPv4.
func TestLookupBatchIPv4(t *testing.T) {
	table, err := NewTableIPv4()
	if err != nil {
		t.Fatalf("Failed to create IPv4 table: %v", err)
	}
	defer table.Close()

	insertIPv4(t, table, "10.0.0.0/8", 100)
	insertIPv4(t, table, "192.168.0.0/16", 200)
	insertIPv4(t, table, "172.16.0.0/12", 300)

	addrs := []netip.Addr{
		netip.MustParseAddr("10.1.1.1"),
		netip.MustParseAddr("192.168.1.1"),
		netip.MustParseAddr("172.16.1.1"),
		netip.MustParseAddr("8.8.8.8"),
	}
	results, err := table.LookupBatch(addrs)
	if err != nil {
		t.Fatalf("batch lookup failed: %v", err)
	}
	expected := []NextHop{100, 200, 300, InvalidNextHop}
	for i, exp := range expected {
		if results[i] != exp {
			t.Errorf("addr %s: expected %d, got %d", addrs[i], exp, results[i])
		}
	}
}

// TestLookupBatchIPv6 tests batch lookup for IPv6.
func TestLookupBatchIPv6(t *testing.T) {
	table, err := NewTableIPv6()
	if err != nil {
		t.Fatalf("Failed to create IPv6 table: %v", err)
	}
	defer table.Close()

	insertIPv6(t, table, "2001:db8::/32", 100)
	insertIPv6(t, table, "2001:db9::/32", 200)

	addrs := []netip.Addr{
		netip.MustParseAddr("2001:db8::1"),
		netip.MustParseAddr("2001:db9::1"),
		netip.MustParseAddr("2001:dba::1"),
	}
	results, err := table.LookupBatch(addrs)
	if err != nil {
		t.Fatalf("batch lookup failed: %v", err)
	}
	expected := []NextHop{100, 200, InvalidNextHop}
	for i, exp := range expected {
		if results[i] != exp {
			t.Errorf("addr %s: expected %d, got %d", addrs[i], exp, results[i])
		}
	}
}

// TestLookupIPv4U32 exercises spec.md §6's fast path and cross-checks it
// against Lookup for the same address.
func TestLookupIPv4U32(t *testing.T) {
	table, err := NewTableIPv4()
	if err != nil {
		t.Fatalf("Failed to create IPv4 table: %v", err)
	}
	defer table.Close()

	insertIPv4(t, table, "10.0.0.0/8", 42)

	addr := netip.MustParseAddr("10.1.2.3")
	want, _ := table.Lookup(addr)

	b := addr.As4()
	u32 := binary.BigEndian.Uint32(b[:])
	if got := table.LookupIPv4U32(u32); got != want {
		t.Errorf("LookupIPv4U32 = %d, want %d (matching Lookup)", got, want)
	}

	// IPv6 table: fast path must refuse rather than misinterpret bytes.
	v6, err := NewTableIPv6()
	if err != nil {
		t.Fatalf("Failed to create IPv6 table: %v", err)
	}
	defer v6.Close()
	if got := v6.LookupIPv4U32(u32); got != InvalidNextHop {
		t.Errorf("LookupIPv4U32 on IPv6 table = %d, want InvalidNextHop", got)
	}
}

// TestClose tests that operations fail after Close().
func TestClose(t *testing.T) {
	table, err := NewTableIPv4()
	if err != nil {
		t.Fatalf("Failed to create IPv4 table: %v", err)
	}

	if err := table.Close(); err != nil {
		t.Fatalf("failed to close table: %v", err)
	}

	prefix := netip.MustParsePrefix("192.168.0.0/16")
	if err := table.Insert(prefix, 100); err != ErrTableClosed {
		t.Errorf("Insert after close: got %v, want ErrTableClosed", err)
	}

	addr := netip.MustParseAddr("192.168.1.1")
	if _, found := table.Lookup(addr); found {
		t.Error("Lookup should fail on closed table")
	}

	if err := table.Close(); err != nil {
		t.Errorf("second Close() should not error: %v", err)
	}
}

// TestInvalidPrefixes tests error handling for cross-version prefixes.
func TestInvalidPrefixes(t *testing.T) {
	table, err := NewTableIPv4()
	if err != nil {
		t.Fatalf("Failed to create IPv4 table: %v", err)
	}
	defer table.Close()

	ipv6Prefix := netip.MustParsePrefix("2001:db8::/32")
	if err := table.Insert(ipv6Prefix, 100); err != ErrInvalidPrefix {
		t.Errorf("Insert IPv6 prefix into IPv4 table: got %v, want ErrInvalidPrefix", err)
	}

	ipv6Addr := netip.MustParseAddr("2001:db8::1")
	if _, found := table.Lookup(ipv6Addr); found {
		t.Error("Should not find IPv6 address in IPv4 table")
	}
}

// TestVariant checks that each NewTable* constructor reports its engine
// through Variant().
func TestVariant(t *testing.T) {
	cases := []struct {
		ctor func() (*Table, error)
		want Variant
	}{
		{NewTableIPv4Dir24, IPv4Dir24},
		{NewTableIPv4Stride8, IPv4Stride8},
		{NewTableIPv6Wide16, IPv6Wide16},
		{NewTableIPv6Stride8, IPv6Stride8},
	}
	for _, tc := range cases {
		table, err := tc.ctor()
		if err != nil {
			t.Fatalf("constructor failed: %v", err)
		}
		if table.Variant() != tc.want {
			t.Errorf("Variant() = %v, want %v", table.Variant(), tc.want)
		}
		table.Close()
	}
}

// TestSafeTableConcurrency runs concurrent readers against a SafeTable.
func TestSafeTableConcurrency(t *testing.T) {
	table, err := NewSafeTableIPv4()
	if err != nil {
		t.Fatalf("Failed to create safe table: %v", err)
	}
	defer table.Close()

	if err := table.Insert(netip.MustParsePrefix("10.0.0.0/8"), 100); err != nil {
		t.Fatalf("Failed to insert prefix: %v", err)
	}

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			addr := netip.MustParseAddr("10.1.1.1")
			for j := 0; j < 100; j++ {
				nh, found := table.Lookup(addr)
				if !found || nh != 100 {
					t.Errorf("concurrent lookup failed: found=%v, nh=%d", found, nh)
				}
			}
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}

// TestStats checks that Stats.NumPrefixes tracks I5 across add/delete,
// including the default route.
func TestStats(t *testing.T) {
	table, err := NewTableIPv4()
	if err != nil {
		t.Fatalf("Failed to create IPv4 table: %v", err)
	}
	defer table.Close()

	insertIPv4(t, table, "0.0.0.0/0", 1)
	insertIPv4(t, table, "10.0.0.0/8", 2)
	insertIPv4(t, table, "10.1.0.0/16", 3)

	st, err := table.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.NumPrefixes != 3 {
		t.Errorf("NumPrefixes = %d, want 3", st.NumPrefixes)
	}

	if err := table.Delete(netip.MustParsePrefix("10.1.0.0/16")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	st, _ = table.Stats()
	if st.NumPrefixes != 2 {
		t.Errorf("NumPrefixes after delete = %d, want 2", st.NumPrefixes)
	}

	if _, err := table.Stats(); err != nil {
		t.Fatalf("Stats: %v", err)
	}
	table.Close()
	if _, err := table.Stats(); err != ErrTableClosed {
		t.Errorf("Stats on closed table: got %v, want ErrTableClosed", err)
	}
}

// --- test helpers ---

type namedTable struct {
	name  string
	table *Table
}

func allIPv4Variants(t *testing.T) []namedTable {
	t.Helper()
	ctors := []struct {
		name string
		new  func() (*Table, error)
	}{
		{"dir24", NewTableIPv4Dir24},
		{"stride8", NewTableIPv4Stride8},
	}
	out := make([]namedTable, 0, len(ctors))
	for _, c := range ctors {
		tbl, err := c.new()
		if err != nil {
			t.Fatalf("%s: constructor failed: %v", c.name, err)
		}
		out = append(out, namedTable{c.name, tbl})
	}
	return out
}

func allIPv6Variants(t *testing.T) []namedTable {
	t.Helper()
	ctors := []struct {
		name string
		new  func() (*Table, error)
	}{
		{"wide16", NewTableIPv6Wide16},
		{"stride8", NewTableIPv6Stride8},
	}
	out := make([]namedTable, 0, len(ctors))
	for _, c := range ctors {
		tbl, err := c.new()
		if err != nil {
			t.Fatalf("%s: constructor failed: %v", c.name, err)
		}
		out = append(out, namedTable{c.name, tbl})
	}
	return out
}

func insertIPv4(t *testing.T, table *Table, prefix string, nh NextHop) {
	t.Helper()
	if err := table.Insert(netip.MustParsePrefix(prefix), nh); err != nil {
		t.Fatalf("insert %s: %v", prefix, err)
	}
}

func insertIPv6(t *testing.T, table *Table, prefix string, nh NextHop) {
	t.Helper()
	if err := table.Insert(netip.MustParsePrefix(prefix), nh); err != nil {
		t.Fatalf("insert %s: %v", prefix, err)
	}
}
