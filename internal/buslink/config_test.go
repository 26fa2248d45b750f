package buslink

import (
	"testing"
	"time"

	"github.com/opencanbus/canlink/pkg/can"
)

// TestConfig_Validate tests required fields
func TestConfig_Validate(t *testing.T) {
	valid := &Config{NodeID: "gw-1"}
	if err := valid.Validate(); err != nil {
		t.Errorf("Expected valid config to pass, got: %v", err)
	}

	missing := &Config{}
	if err := missing.Validate(); err == nil {
		t.Error("Expected error for empty node ID")
	}
}

// TestConfig_SetDefaults tests default filling
func TestConfig_SetDefaults(t *testing.T) {
	c := &Config{NodeID: "gw-1"}
	c.SetDefaults()

	if c.DialTimeout != 5*time.Second {
		t.Errorf("Expected default dial timeout 5s, got %v", c.DialTimeout)
	}
	if c.SendQueueSize != 64 {
		t.Errorf("Expected default send queue 64, got %d", c.SendQueueSize)
	}
	if c.MaxFrameBytes != can.MaxPayload {
		t.Errorf("Expected default max frame bytes %d, got %d", can.MaxPayload, c.MaxFrameBytes)
	}

	// Explicit values survive
	custom := &Config{NodeID: "gw-1", DialTimeout: time.Second, SendQueueSize: 8, MaxFrameBytes: 4}
	custom.SetDefaults()
	if custom.DialTimeout != time.Second || custom.SendQueueSize != 8 || custom.MaxFrameBytes != 4 {
		t.Errorf("SetDefaults overwrote explicit values: %+v", custom)
	}
}
