package discovery

import "context"

// GatewayNode describes a remote gateway a bus link client can dial
type GatewayNode interface {
	// ID returns the gateway's node identifier
	ID() string
	// Address returns the gateway's bus link listen address
	Address() string
	// IsHealthy reports whether the gateway is believed reachable
	IsHealthy() bool
}

// Discovery defines the interface for gateway discovery mechanisms
type Discovery interface {
	// FindGateways discovers and returns available gateway nodes
	FindGateways(ctx context.Context) ([]GatewayNode, error)
}
