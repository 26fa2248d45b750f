// Package router dispatches received CAN frames to per-identifier
// handlers registered with a Router.
//
// A Router binds to a can.Transceiver at construction time by
// registering its dispatch function as the driver's receive callback.
// Callers register interest in an identifier with AddMessageCallback
// and get back a *Route handle; when the driver delivers a frame, the
// router scans its table in insertion order and invokes the first
// matching route's handler with the frame. Frames that match no route
// are dropped silently. Transmission goes through the capability-
// limited accessor returned by Bus, which exposes only Send.
//
// The route table is an append-only linked list of individually
// allocated routes, so a *Route stays valid for the life of the table
// no matter how many routes are added afterwards and no matter which
// Router currently owns the table.
//
// Lifecycle protocol. Exactly one Router owns the driver registration
// at a time:
//   - New registers the router's dispatch with the driver.
//   - Transfer hands the table to a new Router and re-registers the
//     dispatch bound to it; the source becomes released and must not
//     be used for registration or dispatch again.
//   - Close clears the driver registration and drops the table. A
//     released router's Close never touches the registration — that
//     responsibility moved with the table.
//
// Routers are used by pointer and must not be copied: a copy would
// create two owners racing over the same driver callback slot.
//
// The router performs no locking, no blocking, and no I/O of its own;
// dispatch runs on whatever execution context the driver delivers
// frames from. Callers must ensure registration, Transfer, and Close
// do not run concurrently with dispatch; either keep everything on one
// goroutine or supply external synchronization (see internal/gateway
// for the latter).
package router
