package buslink

import (
	"context"

	"google.golang.org/grpc"
)

const (
	serviceName    = "canlink.BusLink"
	transmitMethod = "/canlink.BusLink/Transmit"
	framesMethod   = "/canlink.BusLink/Frames"
)

// BusLinkServer is the server contract for the link service: Transmit
// forwards one frame onto the local bus, Frames streams every frame
// the local bus receives to the subscriber.
type BusLinkServer interface {
	Transmit(ctx context.Context, frame *Frame) (*TransmitAck, error)
	Frames(req *SubscribeRequest, stream BusLink_FramesServer) error
}

// BusLink_FramesServer is the send side of the Frames stream.
type BusLink_FramesServer interface {
	Send(*Frame) error
	grpc.ServerStream
}

type busLinkFramesServer struct {
	grpc.ServerStream
}

func (s *busLinkFramesServer) Send(f *Frame) error {
	return s.ServerStream.SendMsg(f)
}

func _BusLink_Transmit_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(Frame)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BusLinkServer).Transmit(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: transmitMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BusLinkServer).Transmit(ctx, req.(*Frame))
	}
	return interceptor(ctx, in, info, handler)
}

func _BusLink_Frames_Handler(srv interface{}, stream grpc.ServerStream) error {
	req := new(SubscribeRequest)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(BusLinkServer).Frames(req, &busLinkFramesServer{stream})
}

// busLinkServiceDesc wires the BusLink service by hand; see wire.go
// for the codec choice.
var busLinkServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*BusLinkServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Transmit",
			Handler:    _BusLink_Transmit_Handler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Frames",
			Handler:       _BusLink_Frames_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "canlink/buslink",
}
