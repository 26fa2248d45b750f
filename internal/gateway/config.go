package gateway

import (
	"errors"
	"fmt"

	"github.com/opencanbus/canlink/internal/buslink"
	"github.com/opencanbus/canlink/pkg/can"
)

var (
	// ErrEmptyNodeID is returned when node ID is empty
	ErrEmptyNodeID = errors.New("node ID cannot be empty")
)

// Config represents configuration for a Gateway
type Config struct {
	// NodeID uniquely identifies this gateway
	NodeID string

	// Settings is the bus configuration applied at Start. Zero fields
	// are filled with defaults.
	Settings can.Settings

	// MaxFramesPerID bounds the per-identifier frame history; <= 0
	// selects the framelog default.
	MaxFramesPerID int

	// BusLinkConfig configures the optional BusLink component; nil
	// means no link is exposed.
	BusLinkConfig *buslink.Config
}

// NewConfig creates a new Gateway configuration with safe defaults
func NewConfig(nodeID string) *Config {
	return &Config{
		NodeID: nodeID,
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	if c.NodeID == "" {
		return ErrEmptyNodeID
	}

	settings := c.Settings
	settings.SetDefaults()
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid bus settings: %w", err)
	}

	if c.BusLinkConfig != nil {
		if err := c.BusLinkConfig.Validate(); err != nil {
			return fmt.Errorf("invalid BusLink config: %w", err)
		}
	}
	return nil
}

// WithSettings sets the bus settings
func (c *Config) WithSettings(settings can.Settings) *Config {
	c.Settings = settings
	return c
}

// WithMaxFramesPerID sets the frame history bound
func (c *Config) WithMaxFramesPerID(max int) *Config {
	c.MaxFramesPerID = max
	return c
}

// WithBusLinkConfig sets the BusLink configuration
func (c *Config) WithBusLinkConfig(config *buslink.Config) *Config {
	c.BusLinkConfig = config
	return c
}
