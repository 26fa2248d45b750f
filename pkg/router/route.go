package router

import (
	"github.com/opencanbus/canlink/pkg/can"
)

// nop is the placeholder handler stored for routes registered without
// one. Keeping it non-nil lets dispatch invoke unconditionally.
func nop(can.Message) {}

// Route is a stable association between one identifier and one
// handler. Routes are created by Table.Insert (usually via
// Router.AddMessageCallback) and live until the owning table is
// dropped; a *Route never moves, so it stays dereferenceable across
// later insertions and across Router.Transfer.
//
// Re-registration under the same identifier is handler replacement via
// SetHandler; routes are never removed.
type Route struct {
	id      uint32
	handler can.Handler
	next    *Route
}

// ID returns the identifier this route matches.
func (r *Route) ID() uint32 {
	return r.id
}

// Handler returns the route's current handler. It is never nil; routes
// registered without a handler carry a no-op.
func (r *Route) Handler() can.Handler {
	return r.handler
}

// SetHandler replaces the route's handler. A nil handler installs the
// no-op placeholder.
func (r *Route) SetHandler(handler can.Handler) {
	if handler == nil {
		handler = nop
	}
	r.handler = handler
}
