package transceiver

import (
	"errors"
	"testing"

	"github.com/opencanbus/canlink/pkg/can"
	"github.com/opencanbus/canlink/pkg/router"
)

// TestVirtualBus_Broadcast tests that frames reach every endpoint
// except the sender
func TestVirtualBus_Broadcast(t *testing.T) {
	bus := NewVirtualBus()
	a := bus.Open("a")
	b := bus.Open("b")
	c := bus.Open("c")

	var gotA, gotB, gotC []can.Message
	a.OnReceive(func(msg can.Message) { gotA = append(gotA, msg) })
	b.OnReceive(func(msg can.Message) { gotB = append(gotB, msg) })
	c.OnReceive(func(msg can.Message) { gotC = append(gotC, msg) })

	if err := a.BusOn(); err != nil {
		t.Fatalf("Expected no error from BusOn, got: %v", err)
	}

	frame, _ := can.NewMessage(0x111, []byte{0xAA, 0xBB})
	if err := a.Send(frame); err != nil {
		t.Fatalf("Expected no error sending, got: %v", err)
	}

	if len(gotA) != 0 {
		t.Errorf("Expected sender to not hear its own frame, got %v", gotA)
	}
	if len(gotB) != 1 || gotB[0] != frame {
		t.Errorf("Expected endpoint b to receive %v, got %v", frame, gotB)
	}
	if len(gotC) != 1 || gotC[0] != frame {
		t.Errorf("Expected endpoint c to receive %v, got %v", frame, gotC)
	}
}

// TestVirtualBus_SendBeforeBusOn tests the bus-off guard
func TestVirtualBus_SendBeforeBusOn(t *testing.T) {
	bus := NewVirtualBus()
	ep := bus.Open("cold")

	frame, _ := can.NewMessage(0x15, nil)
	if err := ep.Send(frame); !errors.Is(err, can.ErrBusOff) {
		t.Errorf("Expected ErrBusOff before BusOn, got: %v", err)
	}
}

// TestVirtualBus_TwoRouters wires a router onto each end of the bus
// and checks end-to-end dispatch
func TestVirtualBus_TwoRouters(t *testing.T) {
	bus := NewVirtualBus()
	left := bus.Open("left")
	right := bus.Open("right")

	leftRouter, err := router.New(left)
	if err != nil {
		t.Fatalf("Expected no error creating left router, got: %v", err)
	}
	defer leftRouter.Close()

	rightRouter, err := router.New(right)
	if err != nil {
		t.Fatalf("Expected no error creating right router, got: %v", err)
	}
	defer rightRouter.Close()

	if err := left.BusOn(); err != nil {
		t.Fatalf("BusOn failed: %v", err)
	}
	if err := right.BusOn(); err != nil {
		t.Fatalf("BusOn failed: %v", err)
	}

	var rightGot []can.Message
	rightRouter.AddMessageCallback(0x100, func(msg can.Message) {
		rightGot = append(rightGot, msg)
	})

	frame, _ := can.NewMessage(0x100, []byte{0xDE, 0xAD})
	if err := leftRouter.Bus().Send(frame); err != nil {
		t.Fatalf("Expected no error sending, got: %v", err)
	}

	if len(rightGot) != 1 || rightGot[0] != frame {
		t.Errorf("Expected right router to dispatch %v once, got %v", frame, rightGot)
	}

	// An identifier the right router never registered drops silently
	other, _ := can.NewMessage(0x999, nil)
	if err := leftRouter.Bus().Send(other); err != nil {
		t.Fatalf("Expected no error sending, got: %v", err)
	}
	if len(rightGot) != 1 {
		t.Errorf("Expected unmatched frame to be dropped, got %v", rightGot)
	}
}
