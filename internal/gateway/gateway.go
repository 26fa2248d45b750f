package gateway

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/opencanbus/canlink/internal/framelog"
	"github.com/opencanbus/canlink/pkg/can"
	"github.com/opencanbus/canlink/pkg/router"
)

// Gateway orchestrates a transceiver, a frame router, and a frame
// history into one managed node. It is what the daemon and the HTTP
// API operate on.
//
// The gateway serializes registration and lifecycle transitions behind
// its own lock, supplying the external synchronization discipline the
// router requires; frame dispatch itself stays on the driver's
// delivery context and is never blocked by the gateway.
type Gateway struct {
	mu     sync.RWMutex
	config *Config
	log    *logrus.Entry

	// Core components
	bus    can.Transceiver
	router *router.Router
	frames *framelog.Log

	// State management
	started bool
	closed  bool

	// Live subscribers, keyed by identifier then subscription ID.
	// Guarded by subMu, not mu: delivery happens on the driver's
	// dispatch context and must not contend with lifecycle calls.
	subMu     sync.RWMutex
	subs      map[uint32]map[uint64]chan framelog.Entry
	nextSubID uint64
	watched   map[uint32]bool

	// Counters (atomic)
	framesSent       uint64
	framesDispatched uint64
}

// Stats is a point-in-time snapshot of gateway activity.
type Stats struct {
	NodeID           string `json:"nodeId"`
	Routes           int    `json:"routes"`
	FramesSent       uint64 `json:"framesSent"`
	FramesDispatched uint64 `json:"framesDispatched"`
	FramesLogged     int    `json:"framesLogged"`
}

// HealthStatus reports component health for monitoring.
type HealthStatus struct {
	Healthy         bool   `json:"healthy"`
	RouterHealthy   bool   `json:"routerHealthy"`
	FrameLogHealthy bool   `json:"frameLogHealthy"`
	Routes          int    `json:"routes"`
	Message         string `json:"message"`
}

// NewGateway creates a gateway over the given transceiver. It builds
// the router (registering the dispatch callback with the driver) and
// the frame history, but does not touch bus configuration until Start.
func NewGateway(config *Config, bus can.Transceiver) (*Gateway, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if bus == nil {
		return nil, fmt.Errorf("transceiver cannot be nil")
	}

	frameRouter, err := router.New(bus)
	if err != nil {
		return nil, fmt.Errorf("failed to create router: %w", err)
	}

	return &Gateway{
		config:  config,
		bus:     bus,
		router:  frameRouter,
		frames:  framelog.NewLog(config.MaxFramesPerID),
		subs:    make(map[uint32]map[uint64]chan framelog.Entry),
		watched: make(map[uint32]bool),
		log: logrus.WithFields(logrus.Fields{
			"component": "gateway",
			"node":      config.NodeID,
		}),
	}, nil
}

// Start configures the transceiver and activates it on the bus.
// Idempotent while the gateway is open.
func (g *Gateway) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return fmt.Errorf("cannot start closed gateway")
	}
	if g.started {
		return nil // Already started, idempotent
	}

	settings := g.config.Settings
	settings.SetDefaults()
	if err := g.bus.Configure(settings); err != nil {
		return fmt.Errorf("failed to configure transceiver: %w", err)
	}
	if err := g.bus.BusOn(); err != nil {
		return fmt.Errorf("failed to activate bus: %w", err)
	}

	g.started = true
	g.log.WithField("baud_rate", settings.BaudRate).Info("gateway started")
	return nil
}

// Stop deactivates the gateway without releasing it; routes and frame
// history survive a Stop/Start cycle. Idempotent.
func (g *Gateway) Stop(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.started {
		return nil // Not started, idempotent
	}

	g.started = false
	g.log.Info("gateway stopped")
	return nil
}

// Close releases the gateway: the router clears the driver's receive
// registration, then the frame history is dropped. Idempotent.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil // Already closed, idempotent
	}

	if err := g.router.Close(); err != nil {
		return fmt.Errorf("failed to close router: %w", err)
	}
	if err := g.frames.Close(); err != nil {
		return fmt.Errorf("failed to close frame log: %w", err)
	}

	// Release live subscribers so streaming loops terminate.
	g.subMu.Lock()
	for _, chans := range g.subs {
		for _, ch := range chans {
			close(ch)
		}
	}
	g.subs = make(map[uint32]map[uint64]chan framelog.Entry)
	g.subMu.Unlock()

	g.started = false
	g.closed = true
	g.log.Info("gateway closed")
	return nil
}

// Send transmits a frame on the bus through the router's transmit
// accessor. Driver errors propagate unchanged.
func (g *Gateway) Send(message can.Message) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.closed {
		return fmt.Errorf("cannot send on closed gateway")
	}
	if !g.started {
		return fmt.Errorf("cannot send on stopped gateway")
	}

	if err := g.router.Bus().Send(message); err != nil {
		return err
	}
	atomic.AddUint64(&g.framesSent, 1)
	return nil
}

// Watch registers interest in an identifier. Matching frames are
// recorded in the gateway's frame history, retrievable via ReadFrames,
// and mirrored to live subscribers of that identifier. The returned
// route handle stays valid for the gateway's lifetime.
func (g *Gateway) Watch(id uint32) (*router.Route, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.watchLocked(id)
}

func (g *Gateway) watchLocked(id uint32) (*router.Route, error) {
	if g.closed {
		return nil, fmt.Errorf("cannot watch on closed gateway")
	}

	route, err := g.router.AddMessageCallback(id, func(msg can.Message) {
		entry := g.frames.Append(msg)
		atomic.AddUint64(&g.framesDispatched, 1)
		g.notifySubscribers(id, entry)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add route: %w", err)
	}

	g.subMu.Lock()
	g.watched[id] = true
	g.subMu.Unlock()

	g.log.WithField("id", fmt.Sprintf("0x%X", id)).Info("watching identifier")
	return route, nil
}

// Subscribe returns a channel of live frames for an identifier. A route
// is installed if the identifier is not already watched; the existing
// route feeds the subscription otherwise (duplicate routes would never
// fire, first match wins). The cancel function releases the
// subscription and closes the channel.
func (g *Gateway) Subscribe(id uint32, buffer int) (<-chan framelog.Entry, func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil, nil, fmt.Errorf("cannot subscribe on closed gateway")
	}
	if buffer <= 0 {
		buffer = 64
	}

	g.subMu.Lock()
	alreadyWatched := g.watched[id]
	g.subMu.Unlock()

	if !alreadyWatched {
		if _, err := g.watchLocked(id); err != nil {
			return nil, nil, err
		}
	}

	ch := make(chan framelog.Entry, buffer)

	g.subMu.Lock()
	g.nextSubID++
	subID := g.nextSubID
	if g.subs[id] == nil {
		g.subs[id] = make(map[uint64]chan framelog.Entry)
	}
	g.subs[id][subID] = ch
	g.subMu.Unlock()

	cancel := func() {
		g.subMu.Lock()
		defer g.subMu.Unlock()
		if _, ok := g.subs[id][subID]; !ok {
			return
		}
		delete(g.subs[id], subID)
		close(ch)
	}

	return ch, cancel, nil
}

// notifySubscribers mirrors a captured frame to the identifier's live
// subscribers. Runs on the driver's dispatch context, so delivery never
// blocks: a full subscriber drops its oldest frame instead.
func (g *Gateway) notifySubscribers(id uint32, entry framelog.Entry) {
	g.subMu.RLock()
	defer g.subMu.RUnlock()

	for _, ch := range g.subs[id] {
		select {
		case ch <- entry:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- entry:
			default:
			}
		}
	}
}

// Routes returns the registered routes in insertion order.
func (g *Gateway) Routes() []*router.Route {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.router.Handlers()
}

// ReadFrames returns recorded frames for an identifier starting at the
// given offset; maxCount of zero means no limit.
func (g *Gateway) ReadFrames(id uint32, offset int64, maxCount int) ([]framelog.Entry, error) {
	return g.frames.Read(id, offset, maxCount)
}

// Stats returns a snapshot of activity counters.
func (g *Gateway) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	routes := 0
	if !g.closed {
		routes = len(g.router.Handlers())
	}
	return Stats{
		NodeID:           g.config.NodeID,
		Routes:           routes,
		FramesSent:       atomic.LoadUint64(&g.framesSent),
		FramesDispatched: atomic.LoadUint64(&g.framesDispatched),
		FramesLogged:     g.frames.Total(),
	}
}

// Health returns the overall health status of this gateway.
func (g *Gateway) Health() HealthStatus {
	g.mu.RLock()
	defer g.mu.RUnlock()

	healthy := !g.closed
	routes := 0
	if healthy {
		routes = len(g.router.Handlers())
	}

	message := "ok"
	if g.closed {
		message = "gateway is closed"
	} else if !g.started {
		message = "gateway is stopped"
	}

	return HealthStatus{
		Healthy:         healthy && g.started,
		RouterHealthy:   healthy && !g.router.Released(),
		FrameLogHealthy: healthy,
		Routes:          routes,
		Message:         message,
	}
}

// Router exposes the underlying router, primarily for tests and the
// daemon's advanced wiring.
func (g *Gateway) Router() *router.Router {
	return g.router
}

// NodeID returns this gateway's identifier.
func (g *Gateway) NodeID() string {
	return g.config.NodeID
}

var _ io.Closer = (*Gateway)(nil)
