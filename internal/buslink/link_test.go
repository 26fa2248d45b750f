package buslink

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opencanbus/canlink/internal/transceiver"
	"github.com/opencanbus/canlink/pkg/can"
)

// startTestServer serves a BusLink server over a VirtualBus endpoint
// on an ephemeral port and returns its address plus the bus.
func startTestServer(t *testing.T) (string, *transceiver.VirtualBus, *Server) {
	t.Helper()

	bus := transceiver.NewVirtualBus()
	serverEndpoint := bus.Open("server")
	require.NoError(t, serverEndpoint.BusOn())

	server, err := NewServer(&Config{
		NodeID:        "gw-server",
		ListenAddress: "127.0.0.1:0",
	}, serverEndpoint)
	require.NoError(t, err)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go server.Serve(lis) //nolint:errcheck // ends when the server stops

	t.Cleanup(func() {
		server.Close()
	})
	return lis.Addr().String(), bus, server
}

// TestLink_TransmitReachesBus sends a frame through the client and
// expects it on a local endpoint of the server's bus
func TestLink_TransmitReachesBus(t *testing.T) {
	addr, bus, _ := startTestServer(t)

	var mu sync.Mutex
	var received []can.Message
	local := bus.Open("local")
	local.OnReceive(func(msg can.Message) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, msg)
	})

	client, err := Dial(&Config{NodeID: "gw-client", TargetAddress: addr})
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, client.BusOn())

	frame, err := can.NewMessage(0x111, []byte{0xAA, 0xBB, 0xCC})
	require.NoError(t, err)
	require.NoError(t, client.Send(frame))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	require.Equal(t, frame, received[0])
}

// TestLink_FramesStreamDelivers feeds the server's bus and expects the
// client's registered handler to observe the frame
func TestLink_FramesStreamDelivers(t *testing.T) {
	addr, bus, _ := startTestServer(t)

	client, err := Dial(&Config{NodeID: "gw-client", TargetAddress: addr})
	require.NoError(t, err)
	defer client.Close()

	var mu sync.Mutex
	var received []can.Message
	client.OnReceive(func(msg can.Message) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, msg)
	})
	require.NoError(t, client.BusOn())

	frame, err := can.NewMessage(0x123, []byte{0xEE, 0xFF})
	require.NoError(t, err)

	local := bus.Open("local")
	require.NoError(t, local.BusOn())

	// The client's stream is established asynchronously; keep sending
	// until a frame makes it through.
	require.Eventually(t, func() bool {
		require.NoError(t, local.Send(frame))
		mu.Lock()
		defer mu.Unlock()
		return len(received) > 0
	}, 10*time.Second, 100*time.Millisecond, "expected a streamed frame")

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, frame, received[0])
}

// TestLink_SendBeforeBusOn verifies the client's bus-off guard
func TestLink_SendBeforeBusOn(t *testing.T) {
	addr, _, _ := startTestServer(t)

	client, err := Dial(&Config{NodeID: "gw-client", TargetAddress: addr})
	require.NoError(t, err)
	defer client.Close()

	frame, err := can.NewMessage(0x15, nil)
	require.NoError(t, err)
	require.ErrorIs(t, client.Send(frame), can.ErrBusOff)
}

// TestLink_TransmitRejectsOversizedPayload verifies the server-side
// payload cap
func TestLink_TransmitRejectsOversizedPayload(t *testing.T) {
	bus := transceiver.NewVirtualBus()
	endpoint := bus.Open("server")
	require.NoError(t, endpoint.BusOn())

	server, err := NewServer(&Config{
		NodeID:        "gw-server",
		ListenAddress: "127.0.0.1:0",
		MaxFrameBytes: 2,
	}, endpoint)
	require.NoError(t, err)
	defer server.Close()

	_, err = server.Transmit(context.Background(), &Frame{ID: 0x15, Data: []byte{1, 2, 3}})
	require.Error(t, err)
}
