package websocket

// Message defines the structure for websocket messages.
type Message struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
}

// NewErrorMessage creates a JSON-encoded error message.
func NewErrorMessage(message string) []byte {
	return mustEncode(Message{Action: "error", Payload: map[string]string{"message": message}})
}

// NewPongMessage creates the reply to a client ping.
func NewPongMessage() []byte {
	return mustEncode(Message{Action: "pong"})
}
