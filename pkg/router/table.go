package router

import (
	"github.com/opencanbus/canlink/pkg/can"
)

// Table is an append-only, insertion-ordered collection of routes.
//
// Storage is an intrusive singly linked list: every route is a
// separate heap allocation and the table holds only head/tail
// metadata. Growing the table therefore never relocates existing
// routes, and moving the table between routers moves only the
// metadata, which is what keeps outstanding *Route handles valid.
//
// A contiguous growable backing array is deliberately not used here:
// the table's contract is address stability of its elements, not
// lookup speed. Lookup is a linear scan, acceptable because route
// counts on a bus are small (typically well under a hundred).
type Table struct {
	head *Route
	tail *Route
	size int
}

// NewTable creates an empty route table.
func NewTable() *Table {
	return &Table{}
}

// Insert appends a new route for the given identifier and returns its
// handle. A nil handler registers the no-op placeholder. Duplicate
// identifiers are not rejected; the earliest insertion wins on lookup.
func (t *Table) Insert(id uint32, handler can.Handler) *Route {
	if handler == nil {
		handler = nop
	}
	route := &Route{id: id, handler: handler}

	if t.tail == nil {
		t.head = route
	} else {
		t.tail.next = route
	}
	t.tail = route
	t.size++
	return route
}

// Find returns the first route whose identifier equals id, in
// insertion order, or (nil, false) if none matches.
func (t *Table) Find(id uint32) (*Route, bool) {
	for route := t.head; route != nil; route = route.next {
		if route.id == id {
			return route, true
		}
	}
	return nil, false
}

// Len returns the number of routes in the table.
func (t *Table) Len() int {
	return t.size
}

// Routes returns the routes as a snapshot slice in insertion order.
// The routes themselves are shared; the slice is not.
func (t *Table) Routes() []*Route {
	routes := make([]*Route, 0, t.size)
	for route := t.head; route != nil; route = route.next {
		routes = append(routes, route)
	}
	return routes
}

// Each calls fn for every route in insertion order until fn returns
// false.
func (t *Table) Each(fn func(*Route) bool) {
	for route := t.head; route != nil; route = route.next {
		if !fn(route) {
			return
		}
	}
}
