package transceiver

import (
	"sync"

	"github.com/opencanbus/canlink/pkg/can"
)

// VirtualBus is an in-memory shared bus connecting any number of
// endpoints. A frame sent on one endpoint is delivered synchronously
// to the registered handler of every other endpoint, modelling the
// broadcast nature of a physical CAN bus.
type VirtualBus struct {
	mu        sync.Mutex
	endpoints []*Endpoint
}

// NewVirtualBus creates an empty virtual bus.
func NewVirtualBus() *VirtualBus {
	return &VirtualBus{}
}

// Open attaches a named endpoint to the bus and returns it. The name
// is for diagnostics only.
func (b *VirtualBus) Open(name string) *Endpoint {
	b.mu.Lock()
	defer b.mu.Unlock()

	ep := &Endpoint{bus: b, name: name}
	b.endpoints = append(b.endpoints, ep)
	return ep
}

// broadcast delivers a frame to every endpoint except the sender.
// Handlers run outside all locks.
func (b *VirtualBus) broadcast(from *Endpoint, message can.Message) {
	b.mu.Lock()
	receivers := make([]*Endpoint, 0, len(b.endpoints))
	for _, ep := range b.endpoints {
		if ep != from {
			receivers = append(receivers, ep)
		}
	}
	b.mu.Unlock()

	for _, ep := range receivers {
		ep.deliver(message)
	}
}

// Endpoint is one attachment point on a VirtualBus, implementing
// can.Transceiver. Sending before BusOn fails with can.ErrBusOff.
type Endpoint struct {
	bus  *VirtualBus
	name string

	mu            sync.Mutex
	settings      can.Settings
	busOn         bool
	handler       can.Handler
	registrations int
}

// Name returns the endpoint's diagnostic name.
func (e *Endpoint) Name() string {
	return e.name
}

// Configure validates and stores the settings.
func (e *Endpoint) Configure(settings can.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.settings = settings
	return nil
}

// BusOn activates the endpoint on the bus.
func (e *Endpoint) BusOn() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.busOn = true
	return nil
}

// Send broadcasts the frame to every other endpoint on the bus.
func (e *Endpoint) Send(message can.Message) error {
	e.mu.Lock()
	busOn := e.busOn
	e.mu.Unlock()

	if !busOn {
		return can.ErrBusOff
	}
	e.bus.broadcast(e, message)
	return nil
}

// OnReceive registers the receive handler, replacing any previous one.
func (e *Endpoint) OnReceive(handler can.Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registrations++
	e.handler = handler
}

// ReceiveRegistrations returns how many times OnReceive has been
// called on this endpoint.
func (e *Endpoint) ReceiveRegistrations() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registrations
}

// deliver hands a broadcast frame to this endpoint's handler, if one
// is registered.
func (e *Endpoint) deliver(message can.Message) {
	e.mu.Lock()
	handler := e.handler
	e.mu.Unlock()

	if handler != nil {
		handler(message)
	}
}

// Verify that Endpoint implements the Transceiver interface at compile time
var _ can.Transceiver = (*Endpoint)(nil)
