package protocol

import (
	"fmt"
)

// validClientTypes is the set of allowed client→server message types.
var validClientTypes = map[string]bool{
	TypePacketSend:    true,
	TypeStatusRequest: true,
}

// ValidateClientMessage decodes and validates a raw client message.
// Returns the parsed message and any validation error.
func ValidateClientMessage(enc Encoding, raw []byte) (*ClientMessage, error) {
	var msg ClientMessage
	if err := Unmarshal(enc, raw, &msg); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", enc, err)
	}

	if msg.Type == "" {
		return nil, fmt.Errorf("missing 'type' field")
	}

	if !validClientTypes[msg.Type] {
		return nil, fmt.Errorf("unknown message type: %s", msg.Type)
	}

	if msg.Type == TypePacketSend {
		if msg.Payload.ID == "" {
			return nil, fmt.Errorf("missing required field 'id' in %s payload", msg.Type)
		}
		msg.Payload = msg.Payload.WithDefaults()
	}

	return &msg, nil
}

// NewErrorMessage creates an error message ready to send to the client.
func NewErrorMessage(code, message string) *Message {
	return NewMessage(TypeError, ErrorPayload{
		Code:    code,
		Message: message,
	})
}
