package router

import (
	"errors"

	"github.com/opencanbus/canlink/pkg/can"
)

var (
	// ErrNilTransceiver is returned when a Router is constructed
	// without a driver.
	ErrNilTransceiver = errors.New("transceiver cannot be nil")

	// ErrRouterReleased is returned by operations on a router that has
	// been closed or transferred from.
	ErrRouterReleased = errors.New("router has been released")
)

// Router owns a route table and the receive-callback registration of
// one transceiver. See the package documentation for the lifecycle
// protocol and the (absent) concurrency guarantees.
type Router struct {
	bus   can.Transceiver
	table *Table

	// released is the registration-ownership token: it flips when the
	// table (and with it the registration duty) moves away in Transfer
	// or is dropped in Close. A released router never calls OnReceive.
	released bool
}

// New creates a Router over the given transceiver and registers its
// dispatch as the driver's receive callback. The driver observes
// exactly one OnReceive call.
func New(bus can.Transceiver) (*Router, error) {
	if bus == nil {
		return nil, ErrNilTransceiver
	}

	r := &Router{
		bus:   bus,
		table: NewTable(),
	}
	bus.OnReceive(r.dispatch)
	return r, nil
}

// AddMessageCallback registers interest in an identifier and returns
// the route's handle. With no handler argument the route carries a
// no-op placeholder to be filled in later via Route.SetHandler; with
// one, that handler is attached directly. Additional handler arguments
// are ignored.
//
// Duplicate identifiers are accepted without complaint; dispatch
// always picks the earliest-inserted match, so a later duplicate is
// permanently shadowed.
func (r *Router) AddMessageCallback(id uint32, handler ...can.Handler) (*Route, error) {
	if r.released {
		return nil, ErrRouterReleased
	}

	var h can.Handler
	if len(handler) > 0 {
		h = handler[0]
	}
	return r.table.Insert(id, h), nil
}

// Bus returns the transmit-only accessor for the underlying
// transceiver. Sending through it bypasses the route table entirely.
func (r *Router) Bus() *Bus {
	return &Bus{bus: r.bus}
}

// Handlers returns the registered routes in insertion order, primarily
// for introspection and tests. A released router has no routes.
func (r *Router) Handlers() []*Route {
	if r.released {
		return nil
	}
	return r.table.Routes()
}

// Table exposes the route table for read access. It returns nil on a
// released router.
func (r *Router) Table() *Table {
	if r.released {
		return nil
	}
	return r.table
}

// Released reports whether this router has been closed or transferred
// from.
func (r *Router) Released() bool {
	return r.released
}

// Transfer moves the route table to a freshly allocated Router and
// re-registers the driver callback bound to it. Outstanding *Route
// handles remain valid: only the table metadata moves, never the
// routes. The source becomes released — its table is logically empty,
// registrations on it fail, and its Close will not touch the driver.
//
// The driver observes exactly one OnReceive call, and must guarantee
// that no stale invocation of the old callback overlaps the new one.
func (r *Router) Transfer() (*Router, error) {
	if r.released {
		return nil, ErrRouterReleased
	}

	dst := &Router{
		bus:   r.bus,
		table: r.table,
	}
	r.bus.OnReceive(dst.dispatch)

	r.table = nil
	r.released = true
	return dst, nil
}

// Close clears the driver's receive callback and drops the route
// table, ending the lifetime of every route handle issued by this
// router. Close on a released router is a no-op: the registration
// responsibility moved with the table, or was already discharged.
// Close never fails; the error return satisfies io.Closer.
func (r *Router) Close() error {
	if r.released {
		return nil
	}

	// Clear before tearing down the table so no dispatch can fire
	// into a dropped table.
	r.bus.OnReceive(nil)
	r.table = nil
	r.released = true
	return nil
}

// dispatch routes one received frame: first identifier match in
// insertion order wins, no match drops the frame silently. It runs on
// the driver's delivery context and never blocks or fails outward.
func (r *Router) dispatch(msg can.Message) {
	if r.released {
		return
	}
	if route, ok := r.table.Find(msg.ID); ok {
		route.handler(msg)
	}
}
