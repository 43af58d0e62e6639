// Package hub fans messages out to websocket clients: preview frames, loop
// status snapshots and command acknowledgements.
package hub

// MessageType indicates the websocket message format
type MessageType int

const (
	// JSONMessage is a JSON-encoded message
	JSONMessage MessageType = iota
	// BinaryMessage is raw binary data (JPEG preview frames)
	BinaryMessage
	// TextMessage is a plain text line
	TextMessage
)

// Message is one websocket frame
type Message struct {
	Type MessageType
	Data []byte
}

// NewJSONMessage creates a JSON message from pre-encoded bytes
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}

// NewBinaryMessage creates a binary message
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}

// NewTextMessage creates a text message
func NewTextMessage(s string) Message {
	return Message{Type: TextMessage, Data: []byte(s)}
}
