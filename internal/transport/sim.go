package transport

import (
	"bytes"
	"fmt"
	"slices"
	"sync"
	"time"
)

// Sim is an in-memory Opener. Tests inject wire lines into its ports; with
// loopback enabled, whatever is written to a port is read back from it, which
// lets the server run end-to-end without an adapter attached.
type Sim struct {
	mu       sync.Mutex
	names    []string
	loopback bool
	busy     map[string]bool
	ports    map[string]*SimPort
}

// NewSim creates a simulator exposing the given port names.
func NewSim(loopback bool, names ...string) *Sim {
	return &Sim{
		names:    names,
		loopback: loopback,
		busy:     make(map[string]bool),
		ports:    make(map[string]*SimPort),
	}
}

// Open opens a simulated port. Unknown names, busy ports and ports that are
// still open fail the same way a real device would.
func (s *Sim) Open(name string, baud int, readTimeout time.Duration) (Port, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !slices.Contains(s.names, name) {
		return nil, fmt.Errorf("port %s not found", name)
	}
	if s.busy[name] {
		return nil, fmt.Errorf("port %s is busy", name)
	}
	if p, ok := s.ports[name]; ok && !p.isClosed() {
		return nil, fmt.Errorf("port %s is busy", name)
	}

	p := &SimPort{
		name:        name,
		baud:        baud,
		readTimeout: readTimeout,
		loopback:    s.loopback,
		notify:      make(chan struct{}, 1),
		closed:      make(chan struct{}),
	}
	s.ports[name] = p
	return p, nil
}

// Ports returns the configured port names.
func (s *Sim) Ports() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.names), nil
}

// SetBusy makes subsequent opens of name fail.
func (s *Sim) SetBusy(name string, busy bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy[name] = busy
}

// Port returns the most recently opened port for name, or nil.
func (s *Sim) Port(name string) *SimPort {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ports[name]
}

// SimPort is a port opened by Sim.
type SimPort struct {
	name        string
	baud        int
	readTimeout time.Duration
	loopback    bool

	mu       sync.Mutex
	pending  []byte
	written  bytes.Buffer
	writeErr error
	closeErr error

	notify    chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
}

// Baud returns the baud rate the port was opened with.
func (p *SimPort) Baud() int { return p.baud }

// Inject queues raw bytes to be read from the port.
func (p *SimPort) Inject(data string) {
	p.mu.Lock()
	p.pending = append(p.pending, data...)
	p.mu.Unlock()
	p.wake()
}

// Written returns everything written to the port so far.
func (p *SimPort) Written() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.String()
}

// Pending returns the number of injected bytes not yet read.
func (p *SimPort) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// FailWrites makes subsequent writes return err. A nil err clears it.
func (p *SimPort) FailWrites(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeErr = err
}

// FailClose makes Close return err after closing the port.
func (p *SimPort) FailClose(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeErr = err
}

// Read returns pending bytes, or (0, nil) once the read timeout elapses.
func (p *SimPort) Read(b []byte) (int, error) {
	var timeout <-chan time.Time
	if p.readTimeout > 0 {
		timer := time.NewTimer(p.readTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		p.mu.Lock()
		if p.isClosed() {
			p.mu.Unlock()
			return 0, ErrPortClosed
		}
		if len(p.pending) > 0 {
			n := copy(b, p.pending)
			p.pending = p.pending[n:]
			p.mu.Unlock()
			return n, nil
		}
		p.mu.Unlock()

		select {
		case <-p.notify:
		case <-p.closed:
			return 0, ErrPortClosed
		case <-timeout:
			return 0, nil
		}
	}
}

// Write records data, and reads it back when loopback is enabled.
func (p *SimPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	if p.isClosed() {
		p.mu.Unlock()
		return 0, ErrPortClosed
	}
	if p.writeErr != nil {
		err := p.writeErr
		p.mu.Unlock()
		return 0, err
	}
	p.written.Write(b)
	if p.loopback {
		p.pending = append(p.pending, b...)
	}
	p.mu.Unlock()

	if p.loopback {
		p.wake()
	}
	return len(b), nil
}

// Close unblocks pending reads. Closing twice is a no-op.
func (p *SimPort) Close() error {
	p.closeOnce.Do(func() { close(p.closed) })
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeErr
}

func (p *SimPort) isClosed() bool {
	select {
	case <-p.closed:
		return true
	default:
		return false
	}
}

func (p *SimPort) wake() {
	select {
	case p.notify <- struct{}{}:
	default:
	}
}
