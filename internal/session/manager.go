package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/GonnyTech/canDrive-Pro/internal/frame"
	"github.com/GonnyTech/canDrive-Pro/internal/transport"
)

// Manager owns the transport connection and drives the
// disconnected → connected → sniffing lifecycle. Transitions are serialized;
// each connection runs exactly one reader and one writer goroutine.
type Manager struct {
	mu     sync.Mutex // serializes transitions and guards state
	state  State
	conn   atomic.Pointer[connection]
	opener transport.Opener
	cfg    Config
	store  *Store
	subs   *Registry
	now    func() time.Time
}

type connection struct {
	id     string
	port   string
	baud   int
	handle transport.Port
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	outbox chan sendRequest

	errMu   sync.Mutex
	lastErr error
}

func (c *connection) setErr(err error) {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	c.lastErr = err
}

func (c *connection) err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.lastErr
}

// NewManager creates a disconnected manager.
func NewManager(opener transport.Opener, cfg Config) *Manager {
	cfg = cfg.withDefaults()
	return &Manager{
		state:  StateDisconnected,
		opener: opener,
		cfg:    cfg,
		store:  NewStore(cfg.RingCapacity),
		subs:   NewRegistry(cfg.SubscriberBuffer),
		now:    time.Now,
	}
}

// ScanPorts lists the transports that can be passed to Connect.
func (m *Manager) ScanPorts() ([]string, error) {
	return m.opener.Ports()
}

// Connect opens the named port and starts ingestion and dispatch. An
// existing connection is torn down first. A baud rate of zero or less uses
// DefaultBaudRate.
func (m *Manager) Connect(port string, baud int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateDisconnected {
		if err := m.disconnectLocked(); err != nil {
			log.Warn().Err(err).Msg("implicit disconnect before connect")
		}
	}
	if baud <= 0 {
		baud = DefaultBaudRate
	}

	handle, err := m.opener.Open(port, baud, m.cfg.ReadTimeout)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransportUnavailable, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &connection{
		id:     uuid.New().String(),
		port:   port,
		baud:   baud,
		handle: handle,
		ctx:    ctx,
		cancel: cancel,
		outbox: make(chan sendRequest, m.cfg.OutboxSize),
	}
	c.wg.Add(2)
	go m.readLoop(c)
	go m.writeLoop(c)

	m.conn.Store(c)
	m.state = StateConnected
	log.Info().Str("port", port).Int("baud", baud).Str("connection", c.id).Msg("connected")
	return nil
}

// Disconnect stops ingestion and dispatch and closes the transport. The
// manager always ends up disconnected; an error wrapping ErrDisconnect
// reports a failed close.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disconnectLocked()
}

func (m *Manager) disconnectLocked() error {
	c := m.conn.Swap(nil)
	m.state = StateDisconnected
	m.store.End()
	if c == nil {
		return nil
	}

	c.cancel()
	closeErr := c.handle.Close()
	c.wg.Wait()

	if closeErr != nil {
		log.Error().Err(closeErr).Str("port", c.port).Msg("transport close failed")
		return fmt.Errorf("%w: %w", ErrDisconnect, closeErr)
	}
	log.Info().Str("port", c.port).Str("connection", c.id).Msg("disconnected")
	return nil
}

// StartSniffing begins a new session: the frame buffer and counts are
// reset, labels are kept.
func (m *Manager) StartSniffing() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateConnected:
		m.store.Begin(m.now())
		m.state = StateSniffing
		log.Info().Msg("sniffing started")
		return nil
	case StateSniffing:
		return fmt.Errorf("%w: already sniffing", ErrInvalidTransition)
	default:
		return fmt.Errorf("%w: %w", ErrInvalidTransition, ErrNotConnected)
	}
}

// StopSniffing stops recording. The session stays queryable until the next
// StartSniffing.
func (m *Manager) StopSniffing() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateSniffing {
		return fmt.Errorf("%w: not sniffing", ErrInvalidTransition)
	}
	m.store.End()
	m.state = StateConnected
	log.Info().Msg("sniffing stopped")
	return nil
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Status returns a snapshot of the connection and session.
func (m *Manager) Status() Status {
	m.mu.Lock()
	st := Status{State: m.state}
	c := m.conn.Load()
	m.mu.Unlock()

	if c != nil {
		st.ConnectionID = c.id
		st.Port = c.port
		st.BaudRate = c.baud
		if err := c.err(); err != nil {
			st.LastError = err.Error()
		}
	}
	stats := m.store.stats()
	st.SessionStart = stats.start
	st.Frames = stats.frames
	st.Identifiers = stats.identifiers
	st.Subscribers = m.subs.Len()
	return st
}

// Recent returns the newest limit frames of the current session.
func (m *Manager) Recent(limit int) []frame.Frame { return m.store.Recent(limit) }

// IdentifierCounts returns a copy of the per-identifier frame counts.
func (m *Manager) IdentifierCounts() map[string]int { return m.store.IdentifierCounts() }

// Labels returns a copy of the label table.
func (m *Manager) Labels() map[string]string { return m.store.Labels() }

// SetLabels replaces the label table used to annotate new frames.
func (m *Manager) SetLabels(labels map[string]string) {
	m.store.SetLabels(labels)
	log.Info().Int("labels", len(labels)).Msg("label table updated")
}

// Subscribe registers an observer for frames recorded while sniffing.
func (m *Manager) Subscribe() *Subscription { return m.subs.Subscribe() }

// Unsubscribe removes an observer.
func (m *Manager) Unsubscribe(id string) { m.subs.Unsubscribe(id) }

// Shutdown disconnects and removes every subscriber.
func (m *Manager) Shutdown() error {
	err := m.Disconnect()
	m.subs.Close()
	return err
}
