package can

// Handler is the callable invoked with each received frame. Handlers
// run synchronously on whatever execution context the driver delivers
// frames from, so they must complete in bounded, short time and must
// not block.
type Handler func(Message)

// Transceiver is the driver contract for a CAN bus peripheral.
//
// Exactly one receive handler is live per transceiver at a time: each
// OnReceive call replaces the previous registration, and the driver
// must never invoke a handler that has been replaced. OnReceive(nil)
// clears the registration, after which received frames are discarded
// by the driver.
type Transceiver interface {
	// Configure applies bus settings. Drivers reject settings they
	// cannot honor with ErrNotSupported or a driver-defined error;
	// callers above the driver forward such errors unmodified.
	Configure(settings Settings) error

	// BusOn activates the transceiver on the bus. Sending before
	// BusOn fails with ErrBusOff on drivers that model bus state.
	BusOn() error

	// Send places a frame on the bus. Errors propagate to the caller
	// untranslated.
	Send(message Message) error

	// OnReceive registers the handler invoked for every received
	// frame, replacing any previous registration.
	OnReceive(handler Handler)
}
