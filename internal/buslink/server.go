package buslink

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/opencanbus/canlink/pkg/can"
)

// Server exposes a local transceiver to remote gateways: Transmit RPCs
// go onto the local bus, and every frame the local transceiver
// receives fans out to all connected Frames streams.
//
// The Server owns its transceiver's receive-callback slot; give it a
// dedicated bus attachment (for example its own VirtualBus endpoint)
// rather than one shared with a router.
type Server struct {
	config     *Config
	bus        can.Transceiver
	grpcServer *grpc.Server
	log        *logrus.Entry

	mu          sync.Mutex
	subscribers map[uint64]chan Frame
	nextSubID   uint64
	closed      bool
}

// NewServer creates a BusLink server over the given transceiver and
// registers for its received frames.
func NewServer(config *Config, bus can.Transceiver) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.ListenAddress == "" {
		return nil, errors.New("listen address cannot be empty")
	}
	if bus == nil {
		return nil, errors.New("transceiver cannot be nil")
	}

	configCopy := *config
	configCopy.SetDefaults()

	s := &Server{
		config:      &configCopy,
		bus:         bus,
		subscribers: make(map[uint64]chan Frame),
		log: logrus.WithFields(logrus.Fields{
			"component": "buslink",
			"node":      configCopy.NodeID,
		}),
	}

	grpcServer := grpc.NewServer(grpc.ForceServerCodec(jsonCodec{}))
	grpcServer.RegisterService(&busLinkServiceDesc, s)
	s.grpcServer = grpcServer

	bus.OnReceive(s.fanout)
	return s, nil
}

// Serve accepts remote gateways on the listener until Stop or Close.
func (s *Server) Serve(lis net.Listener) error {
	s.log.WithField("address", lis.Addr().String()).Info("buslink serving")
	return s.grpcServer.Serve(lis)
}

// ListenAndServe listens on the configured address and serves.
func (s *Server) ListenAndServe() error {
	lis, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

// Transmit forwards one remote frame onto the local bus. Driver errors
// propagate to the caller unmodified.
func (s *Server) Transmit(ctx context.Context, frame *Frame) (*TransmitAck, error) {
	if len(frame.Data) > s.config.MaxFrameBytes {
		return nil, status.Errorf(codes.InvalidArgument,
			"frame payload of %d bytes exceeds limit of %d", len(frame.Data), s.config.MaxFrameBytes)
	}

	msg, err := frame.Message()
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := s.bus.Send(msg); err != nil {
		return nil, err
	}
	return &TransmitAck{Accepted: true}, nil
}

// Frames streams every frame the local bus receives to the subscriber
// until the stream's context ends.
func (s *Server) Frames(req *SubscribeRequest, stream BusLink_FramesServer) error {
	ch, id, err := s.subscribe()
	if err != nil {
		return err
	}
	defer s.unsubscribe(id)

	s.log.WithField("subscriber", req.Subscriber).Info("frame stream opened")
	defer s.log.WithField("subscriber", req.Subscriber).Info("frame stream closed")

	for {
		select {
		case <-stream.Context().Done():
			return stream.Context().Err()
		case frame := <-ch:
			if err := stream.Send(&frame); err != nil {
				return err
			}
		}
	}
}

// Stop stops serving and disconnects all streams.
func (s *Server) Stop() {
	s.grpcServer.Stop()
}

// Close releases the server: it clears the transceiver registration,
// stops serving, and drops all subscribers. Idempotent.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.subscribers = make(map[uint64]chan Frame)
	s.mu.Unlock()

	s.bus.OnReceive(nil)
	s.grpcServer.Stop()
	return nil
}

// fanout delivers one locally received frame to every subscriber.
// Subscribers that have fallen behind lose their oldest buffered frame
// rather than stalling the bus.
func (s *Server) fanout(msg can.Message) {
	frame := frameFromMessage(msg)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subscribers {
		for {
			select {
			case ch <- frame:
			default:
				select {
				case <-ch:
				default:
				}
				continue
			}
			break
		}
	}
}

func (s *Server) subscribe() (chan Frame, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, 0, errors.New("buslink server is closed")
	}
	id := s.nextSubID
	s.nextSubID++
	ch := make(chan Frame, s.config.SendQueueSize)
	s.subscribers[id] = ch
	return ch, id, nil
}

func (s *Server) unsubscribe(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscribers, id)
}
