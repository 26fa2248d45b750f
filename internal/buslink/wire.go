package buslink

import (
	"encoding/json"

	"github.com/opencanbus/canlink/pkg/can"
)

// Frame is the wire representation of a CAN frame on the link.
// Data carries only the in-use payload bytes.
type Frame struct {
	ID   uint32 `json:"id"`
	Data []byte `json:"data,omitempty"`
}

// TransmitAck acknowledges a Transmit RPC.
type TransmitAck struct {
	Accepted bool `json:"accepted"`
}

// SubscribeRequest opens a Frames stream.
type SubscribeRequest struct {
	Subscriber string `json:"subscriber"`
}

// frameFromMessage converts a local frame to its wire form.
func frameFromMessage(m can.Message) Frame {
	return Frame{ID: m.ID, Data: m.Data()}
}

// Message converts the wire frame back to a local frame, revalidating
// identifier range and payload length.
func (f Frame) Message() (can.Message, error) {
	return can.NewMessage(f.ID, f.Data)
}

// jsonCodec is the grpc encoding.Codec used on the link. The service
// is defined by a hand-rolled ServiceDesc rather than generated
// protobuf code, so frames travel as JSON.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return "json"
}
