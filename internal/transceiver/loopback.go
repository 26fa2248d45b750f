package transceiver

import (
	"fmt"
	"sync"

	"github.com/opencanbus/canlink/pkg/can"
)

// Loopback is an in-memory can.Transceiver for tests, examples, and
// the daemon's standalone mode. It records configured settings and
// sent frames, counts receive-callback registrations, and can echo
// sent frames back into the registered handler.
//
// It is safe for concurrent use. Handlers are invoked without holding
// the transceiver's lock, so a handler may call back into the
// transceiver (for example to send a reply).
type Loopback struct {
	mu            sync.Mutex
	settings      can.Settings
	configured    bool
	busOn         bool
	handler       can.Handler
	registrations int
	sent          []can.Message
	echo          bool
	nextErr       error
}

// NewLoopback creates a loopback transceiver. Echo is off by default:
// sent frames are only recorded unless SetEcho(true) is called.
func NewLoopback() *Loopback {
	return &Loopback{}
}

// Configure validates and stores the settings. A failure armed with
// FailNext is returned after the settings are recorded, mirroring a
// driver that rejects applied settings.
func (l *Loopback) Configure(settings can.Settings) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.settings = settings
	if err := l.takeArmedError(); err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("%w: %w", can.ErrNotSupported, err)
	}
	l.configured = true
	return nil
}

// BusOn activates the transceiver.
func (l *Loopback) BusOn() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.busOn = true
	return nil
}

// Send records the frame and, in echo mode, feeds it back into the
// registered handler. An armed failure is returned after the frame is
// recorded.
func (l *Loopback) Send(message can.Message) error {
	l.mu.Lock()
	l.sent = append(l.sent, message)
	err := l.takeArmedError()
	echo := l.echo
	handler := l.handler
	l.mu.Unlock()

	if err != nil {
		return err
	}
	if echo && handler != nil {
		handler(message)
	}
	return nil
}

// OnReceive registers the receive handler, replacing any previous one.
// nil clears the registration. Every call is counted.
func (l *Loopback) OnReceive(handler can.Handler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.registrations++
	l.handler = handler
}

// Inject delivers a frame to the currently registered handler, as if
// it had arrived from the bus. Frames injected while no handler is
// registered are discarded.
func (l *Loopback) Inject(message can.Message) {
	l.mu.Lock()
	handler := l.handler
	l.mu.Unlock()

	if handler != nil {
		handler(message)
	}
}

// SetEcho switches echo mode: when on, Send loops the frame back into
// the registered handler.
func (l *Loopback) SetEcho(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.echo = on
}

// FailNext arms a one-shot error returned by the next Configure or
// Send call.
func (l *Loopback) FailNext(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextErr = err
}

// ReceiveRegistrations returns how many times OnReceive has been
// called, including clears.
func (l *Loopback) ReceiveRegistrations() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.registrations
}

// Sent returns a copy of every frame sent so far, in order.
func (l *Loopback) Sent() []can.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	sent := make([]can.Message, len(l.sent))
	copy(sent, l.sent)
	return sent
}

// LastSent returns the most recently sent frame, if any.
func (l *Loopback) LastSent() (can.Message, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.sent) == 0 {
		return can.Message{}, false
	}
	return l.sent[len(l.sent)-1], true
}

// Settings returns the most recently configured settings.
func (l *Loopback) Settings() can.Settings {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.settings
}

// takeArmedError consumes the one-shot error. Caller holds the lock.
func (l *Loopback) takeArmedError() error {
	err := l.nextErr
	l.nextErr = nil
	return err
}

// Verify that Loopback implements the Transceiver interface at compile time
var _ can.Transceiver = (*Loopback)(nil)
