package router

import (
	"github.com/opencanbus/canlink/pkg/can"
)

// Bus is a capability-restricting view over a transceiver that exposes
// only transmission. Holders of a Bus can send frames but cannot
// reconfigure the driver or disturb the router's receive registration.
type Bus struct {
	bus can.Transceiver
}

// Send forwards the frame to the transceiver unmodified. Any error the
// driver raises propagates to the caller untranslated.
func (b *Bus) Send(message can.Message) error {
	return b.bus.Send(message)
}
