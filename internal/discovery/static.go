package discovery

import (
	"context"
	"strings"
)

// StaticDiscovery implements Discovery using a static list of seed addresses
type StaticDiscovery struct {
	seeds []string
}

// staticGatewayNode implements GatewayNode for static seed entries
type staticGatewayNode struct {
	id      string
	address string
}

func (n *staticGatewayNode) ID() string      { return n.id }
func (n *staticGatewayNode) Address() string { return n.address }
func (n *staticGatewayNode) IsHealthy() bool { return true } // Static discovery assumes healthy

// NewStaticDiscovery creates a new static discovery service with the given seeds.
// Each seed is either "host:port" or "id@host:port".
func NewStaticDiscovery(seeds []string) *StaticDiscovery {
	return &StaticDiscovery{
		seeds: seeds,
	}
}

// FindGateways returns gateway nodes from the static seed list
func (s *StaticDiscovery) FindGateways(ctx context.Context) ([]GatewayNode, error) {
	gateways := make([]GatewayNode, 0, len(s.seeds))
	for _, seed := range s.seeds {
		seed = strings.TrimSpace(seed)
		if seed == "" {
			continue
		}

		id, address := seed, seed
		if at := strings.Index(seed, "@"); at >= 0 {
			id, address = seed[:at], seed[at+1:]
		}

		gateways = append(gateways, &staticGatewayNode{
			id:      id,
			address: address,
		})
	}
	return gateways, nil
}
