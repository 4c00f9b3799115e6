package session

import (
	"errors"
	"time"
)

// State represents the connection lifecycle state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnected    State = "connected"
	StateSniffing     State = "sniffing"
)

var (
	// ErrTransportUnavailable means the transport could not be opened.
	ErrTransportUnavailable = errors.New("transport unavailable")
	// ErrDisconnect means closing the transport failed. The manager is
	// disconnected regardless.
	ErrDisconnect = errors.New("disconnect failed")
	// ErrTransport means a write to the transport failed.
	ErrTransport = errors.New("transport error")
	// ErrNotConnected means the operation needs an open connection.
	ErrNotConnected = errors.New("not connected")
	// ErrInvalidTransition means the requested transition is not valid
	// from the current state.
	ErrInvalidTransition = errors.New("invalid state transition")
)

const (
	DefaultBaudRate         = 115200
	DefaultReadTimeout      = 100 * time.Millisecond
	DefaultRingCapacity     = 1000
	DefaultSubscriberBuffer = 100
	DefaultOutboxSize       = 64
)

// Config tunes a Manager. Zero fields take the defaults above.
type Config struct {
	ReadTimeout      time.Duration
	RingCapacity     int
	SubscriberBuffer int
	OutboxSize       int
}

func (c Config) withDefaults() Config {
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.RingCapacity <= 0 {
		c.RingCapacity = DefaultRingCapacity
	}
	if c.SubscriberBuffer <= 0 {
		c.SubscriberBuffer = DefaultSubscriberBuffer
	}
	if c.OutboxSize <= 0 {
		c.OutboxSize = DefaultOutboxSize
	}
	return c
}

// Status is a point-in-time view of the manager.
type Status struct {
	State        State     `json:"state"`
	ConnectionID string    `json:"connectionId,omitempty"`
	Port         string    `json:"port,omitempty"`
	BaudRate     int       `json:"baudrate,omitempty"`
	SessionStart time.Time `json:"sessionStart,omitzero"`
	Frames       int       `json:"frames"`
	Identifiers  int       `json:"identifiers"`
	Subscribers  int       `json:"subscribers"`
	LastError    string    `json:"lastError,omitempty"`
}
