package buslink

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/opencanbus/canlink/pkg/can"
)

// Client is a can.Transceiver backed by a remote BusLink server: Send
// becomes a Transmit RPC and received frames arrive over the Frames
// stream. It lets a router dispatch frames from a bus attached to
// another gateway as if the bus were local.
type Client struct {
	config *Config
	conn   *grpc.ClientConn
	log    *logrus.Entry

	mu       sync.Mutex
	settings can.Settings
	handler  can.Handler
	cancel   context.CancelFunc
	busOn    bool
	closed   bool
}

// Dial connects to the remote server named by config.TargetAddress.
// The connection is established lazily; BusOn starts frame reception.
func Dial(config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.TargetAddress == "" {
		return nil, errors.New("target address cannot be empty")
	}

	configCopy := *config
	configCopy.SetDefaults()

	conn, err := grpc.NewClient(configCopy.TargetAddress,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{})),
	)
	if err != nil {
		return nil, err
	}

	return &Client{
		config: &configCopy,
		conn:   conn,
		log: logrus.WithFields(logrus.Fields{
			"component": "buslink",
			"node":      configCopy.NodeID,
			"target":    configCopy.TargetAddress,
		}),
	}, nil
}

// Configure validates and stores the settings locally. The remote
// gateway owns the physical bus configuration; settings here affect
// only this attachment.
func (c *Client) Configure(settings can.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings = settings
	return nil
}

// BusOn starts consuming the remote frame stream. Idempotent.
func (c *Client) BusOn() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errors.New("buslink client is closed")
	}
	if c.busOn {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.busOn = true
	go c.consume(ctx)
	return nil
}

// Send transmits one frame through the remote gateway. Remote errors
// propagate to the caller.
func (c *Client) Send(message can.Message) error {
	c.mu.Lock()
	if !c.busOn {
		c.mu.Unlock()
		return can.ErrBusOff
	}
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.config.DialTimeout)
	defer cancel()

	frame := frameFromMessage(message)
	var ack TransmitAck
	return c.conn.Invoke(ctx, transmitMethod, &frame, &ack)
}

// OnReceive registers the receive handler, replacing any previous one.
func (c *Client) OnReceive(handler can.Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = handler
}

// Close stops frame reception and releases the connection. Idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.busOn = false
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return c.conn.Close()
}

// consume opens the Frames stream and delivers received frames to the
// registered handler, redialing with a delay until the context ends.
func (c *Client) consume(ctx context.Context) {
	for {
		if err := c.streamFrames(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.WithError(err).Debug("frame stream ended, redialing")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.config.DialTimeout):
		}
	}
}

func (c *Client) streamFrames(ctx context.Context) error {
	stream, err := c.conn.NewStream(ctx, &busLinkServiceDesc.Streams[0], framesMethod)
	if err != nil {
		return err
	}
	if err := stream.SendMsg(&SubscribeRequest{Subscriber: c.config.NodeID}); err != nil {
		return err
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}

	for {
		frame := new(Frame)
		if err := stream.RecvMsg(frame); err != nil {
			return err
		}

		msg, err := frame.Message()
		if err != nil {
			c.log.WithError(err).Warn("dropping malformed remote frame")
			continue
		}

		c.mu.Lock()
		handler := c.handler
		c.mu.Unlock()
		if handler != nil {
			handler(msg)
		}
	}
}

// Verify that Client implements the Transceiver interface at compile time
var _ can.Transceiver = (*Client)(nil)
