package protocol

import (
	"time"

	"github.com/GonnyTech/canDrive-Pro/internal/frame"
)

// Message is the envelope for all server-originated WebSocket messages.
type Message struct {
	Type      string    `json:"type"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage creates a server-originated message with the current timestamp.
func NewMessage(msgType string, payload any) *Message {
	return &Message{
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// Server → Client message types.
const (
	TypePacket       = "can_packet"
	TypeStatusUpdate = "status.update"
	TypeError        = "error"
)

// Client → Server message types.
const (
	TypePacketSend    = "packet.send"
	TypeStatusRequest = "status.request"
)

// Error codes.
const (
	ErrInvalidMessage = "INVALID_MESSAGE"
	ErrNotConnected   = "NOT_CONNECTED"
	ErrSendFailed     = "SEND_FAILED"
)

// Server → Client payloads.

// PacketPayload is one sniffed frame. Timestamp is seconds since the start
// of the sniffing session.
type PacketPayload struct {
	Timestamp float64 `json:"timestamp"`
	ID        string  `json:"id"`
	Ext       string  `json:"ext"`
	RTR       string  `json:"rtr"`
	Data      string  `json:"data"`
	Label     string  `json:"label"`
}

// PacketFromFrame converts a recorded frame to its wire payload.
func PacketFromFrame(f frame.Frame) PacketPayload {
	return PacketPayload{
		Timestamp: f.Elapsed.Seconds(),
		ID:        f.ID,
		Ext:       f.Ext,
		RTR:       f.RTR,
		Data:      f.Data,
		Label:     f.Label,
	}
}

type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Client → Server payloads.

// SendPacketPayload asks the server to transmit a frame. Empty ext and rtr
// flags default to "00".
type SendPacketPayload struct {
	ID   string `json:"id"`
	Ext  string `json:"ext"`
	RTR  string `json:"rtr"`
	Data string `json:"data"`
}

// WithDefaults fills the optional flag fields.
func (p SendPacketPayload) WithDefaults() SendPacketPayload {
	if p.Ext == "" {
		p.Ext = "00"
	}
	if p.RTR == "" {
		p.RTR = "00"
	}
	return p
}

// ClientMessage is a decoded client→server message. Payload is only
// meaningful for packet.send.
type ClientMessage struct {
	Type    string            `json:"type"`
	Payload SendPacketPayload `json:"payload"`
}
