package router

import (
	"testing"

	"github.com/opencanbus/canlink/pkg/can"
)

// TestTable_InsertAndFind tests insertion-ordered lookup
func TestTable_InsertAndFind(t *testing.T) {
	table := NewTable()

	if table.Len() != 0 {
		t.Errorf("Expected empty table, got %d routes", table.Len())
	}
	if _, ok := table.Find(0x100); ok {
		t.Error("Expected Find on empty table to miss")
	}

	a := table.Insert(0x100, nil)
	b := table.Insert(0x120, nil)
	c := table.Insert(0x123, nil)

	if table.Len() != 3 {
		t.Errorf("Expected 3 routes, got %d", table.Len())
	}

	for _, tc := range []struct {
		id   uint32
		want *Route
	}{
		{0x100, a},
		{0x120, b},
		{0x123, c},
	} {
		got, ok := table.Find(tc.id)
		if !ok {
			t.Errorf("Expected Find(0x%X) to hit", tc.id)
			continue
		}
		if got != tc.want {
			t.Errorf("Expected Find(0x%X) to return the inserted route", tc.id)
		}
	}

	if _, ok := table.Find(0x999); ok {
		t.Error("Expected Find(0x999) to miss")
	}
}

// TestTable_FirstMatchWins verifies duplicate identifiers resolve to
// the earliest insertion
func TestTable_FirstMatchWins(t *testing.T) {
	table := NewTable()
	first := table.Insert(0x42, nil)
	table.Insert(0x42, nil)

	got, ok := table.Find(0x42)
	if !ok || got != first {
		t.Error("Expected Find to return the earliest-inserted duplicate")
	}
}

// TestTable_AddressStability verifies handles stay valid as the table
// grows
func TestTable_AddressStability(t *testing.T) {
	table := NewTable()

	handles := make([]*Route, 0, 8)
	for id := uint32(0); id < 8; id++ {
		handles = append(handles, table.Insert(id, nil))
	}

	// Grow the table well past its original size
	for id := uint32(100); id < 200; id++ {
		table.Insert(id, nil)
	}

	for id, handle := range handles {
		found, ok := table.Find(uint32(id))
		if !ok || found != handle {
			t.Errorf("Expected handle for id %d to remain the table's route", id)
		}
		if handle.ID() != uint32(id) {
			t.Errorf("Expected handle id %d, got %d", id, handle.ID())
		}
	}
}

// TestTable_RoutesOrder verifies the snapshot preserves insertion order
func TestTable_RoutesOrder(t *testing.T) {
	table := NewTable()
	ids := []uint32{0x123, 0x100, 0x120}
	for _, id := range ids {
		table.Insert(id, nil)
	}

	routes := table.Routes()
	if len(routes) != len(ids) {
		t.Fatalf("Expected %d routes, got %d", len(ids), len(routes))
	}
	for i, route := range routes {
		if route.ID() != ids[i] {
			t.Errorf("Expected route %d to have id 0x%X, got 0x%X", i, ids[i], route.ID())
		}
	}
}

// TestTable_Each verifies iteration and early termination
func TestTable_Each(t *testing.T) {
	table := NewTable()
	for id := uint32(0); id < 5; id++ {
		table.Insert(id, nil)
	}

	visited := 0
	table.Each(func(*Route) bool {
		visited++
		return visited < 3
	})
	if visited != 3 {
		t.Errorf("Expected iteration to stop after 3 routes, visited %d", visited)
	}

	all := 0
	table.Each(func(*Route) bool {
		all++
		return true
	})
	if all != 5 {
		t.Errorf("Expected full iteration over 5 routes, visited %d", all)
	}
}

// TestTable_NilHandlerPlaceholder verifies nil handlers become callable
// no-ops
func TestTable_NilHandlerPlaceholder(t *testing.T) {
	table := NewTable()
	route := table.Insert(0x15, nil)

	if route.Handler() == nil {
		t.Fatal("Expected a non-nil placeholder handler")
	}
	// Must not panic
	route.Handler()(can.Message{ID: 0x15})
}
