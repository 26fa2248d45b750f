package can

import "errors"

var (
	// ErrNotSupported is returned by a driver when a requested
	// configuration or operation is outside its capabilities.
	ErrNotSupported = errors.New("operation not supported by transceiver")

	// ErrSendFailed is returned by a driver when a frame could not be
	// placed on the bus.
	ErrSendFailed = errors.New("frame transmission failed")

	// ErrBusOff is returned when the transceiver is not active on the
	// bus (BusOn has not been called or the controller went bus-off).
	ErrBusOff = errors.New("transceiver is not on the bus")

	// ErrInvalidID is returned when an identifier exceeds the 29-bit
	// identifier space.
	ErrInvalidID = errors.New("identifier out of range")

	// ErrPayloadTooLong is returned when frame data exceeds MaxPayload.
	ErrPayloadTooLong = errors.New("payload exceeds frame capacity")
)
