package can

import "fmt"

const (
	// MaxPayload is the payload capacity of a classic CAN frame in bytes.
	MaxPayload = 8

	// MaxID is the largest valid identifier: 29 bits, the extended
	// (29-bit) identifier space. Standard 11-bit identifiers are a
	// subset of this range.
	MaxID uint32 = 0x1FFFFFFF
)

// Message represents a single CAN frame: an identifier, a
// fixed-capacity payload, and the number of payload bytes in use.
//
// Message is a comparable value type. Two messages are equal exactly
// when their identifier, payload bytes, and length are equal, which is
// the equality used for dispatch matching and in tests.
type Message struct {
	// ID is the frame identifier that dispatch matches against.
	ID uint32

	// Payload holds the frame data. Bytes past Length are zero.
	Payload [MaxPayload]byte

	// Length is the number of Payload bytes in use (0..MaxPayload).
	Length uint8
}

// NewMessage creates a Message with the given identifier and data.
// It returns ErrInvalidID if id exceeds the 29-bit identifier space
// and ErrPayloadTooLong if data exceeds MaxPayload bytes.
func NewMessage(id uint32, data []byte) (Message, error) {
	if id > MaxID {
		return Message{}, fmt.Errorf("id 0x%X exceeds 29-bit identifier space: %w", id, ErrInvalidID)
	}
	if len(data) > MaxPayload {
		return Message{}, fmt.Errorf("payload of %d bytes exceeds %d byte frame capacity: %w",
			len(data), MaxPayload, ErrPayloadTooLong)
	}

	msg := Message{
		ID:     id,
		Length: uint8(len(data)),
	}
	copy(msg.Payload[:], data)
	return msg, nil
}

// Data returns the in-use portion of the payload.
// The returned slice aliases a copy, so mutating it does not affect
// the message.
func (m Message) Data() []byte {
	data := make([]byte, m.Length)
	copy(data, m.Payload[:m.Length])
	return data
}

// String renders the frame for logs and test failures.
func (m Message) String() string {
	return fmt.Sprintf("can.Message{ID: 0x%X, Data: % X}", m.ID, m.Payload[:m.Length])
}
