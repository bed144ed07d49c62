// Package hub fans websocket broadcasts out to every connected
// dashboard client over a channel-based registry.
package hub

// MessageType selects the websocket frame format.
type MessageType int

const (
	// JSONMessage carries a JSON-encoded payload.
	JSONMessage MessageType = iota
	// BinaryMessage carries raw bytes.
	BinaryMessage
)

// Message is a single broadcast payload.
type Message struct {
	Type MessageType
	Data []byte
}

// NewJSONMessage wraps pre-encoded JSON bytes.
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}

// NewBinaryMessage wraps raw bytes.
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}
