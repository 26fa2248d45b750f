// Package can defines the contract between the canlink router and a
// CAN bus transceiver driver.
//
// This package holds the core abstractions shared by every driver:
//   - Message: a CAN frame (identifier, fixed-capacity payload, length)
//   - Settings: bus configuration accepted or rejected by a driver
//   - Transceiver: the driver interface (configure, bus-on, send,
//     receive-callback registration)
//   - Handler: the unary dispatch callable invoked per received frame
//
// The interfaces use Go idioms:
//   - Explicit error returns following Go conventions
//   - Sentinel errors for errors.Is matching
//   - Value semantics for Message and Settings (both are comparable
//     with ==, which is also how frame equality is defined)
//
// Drivers own all concurrency. A Transceiver may invoke the registered
// Handler from any execution context it likes (interrupt-style
// goroutine, polling loop, network stream); callers that register
// routes while frames are arriving must supply their own
// synchronization discipline.
//
// Example usage:
//
//	settings := can.Settings{BaudRate: 250_000}
//	if err := bus.Configure(settings); err != nil {
//		return err
//	}
//
//	msg, err := can.NewMessage(0x111, []byte{0xAA, 0xBB, 0xCC})
//	if err != nil {
//		return err
//	}
//	if err := bus.Send(msg); err != nil {
//		return err
//	}
//
// This package is part of the canlink system for CAN frame routing.
package can
