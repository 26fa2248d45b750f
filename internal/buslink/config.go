package buslink

import (
	"errors"
	"time"

	"github.com/opencanbus/canlink/pkg/can"
)

// Config holds configuration for the BusLink component, shared by the
// serving and dialing sides.
type Config struct {
	// NodeID identifies this gateway on the link, for diagnostics and
	// subscription bookkeeping.
	NodeID string

	// ListenAddress is where a Server accepts remote gateways.
	ListenAddress string

	// TargetAddress is the remote Server a Client dials.
	TargetAddress string

	// DialTimeout bounds each Transmit RPC and the stream (re)dial.
	DialTimeout time.Duration

	// SendQueueSize is the per-subscriber frame buffer; a subscriber
	// that falls behind by more than this many frames loses the
	// oldest ones.
	SendQueueSize int

	// MaxFrameBytes caps accepted frame payloads.
	MaxFrameBytes int
}

// Validate checks the fields every side needs.
func (c *Config) Validate() error {
	if c.NodeID == "" {
		return errors.New("node ID cannot be empty")
	}
	return nil
}

// SetDefaults sets sensible default values for unset configuration fields
func (c *Config) SetDefaults() {
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.SendQueueSize <= 0 {
		c.SendQueueSize = 64
	}
	if c.MaxFrameBytes <= 0 {
		c.MaxFrameBytes = can.MaxPayload
	}
}
