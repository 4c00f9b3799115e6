// Package transport opens the communication channel to the canDrive adapter.
//
// A Port is a byte stream with a bounded read timeout: Read returns (0, nil)
// when no data arrived within the timeout, so readers can observe
// cancellation without blocking indefinitely.
package transport

import (
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

// ErrPortClosed is returned by operations on a closed port.
var ErrPortClosed = errors.New("port closed")

// Port is an open transport handle.
type Port interface {
	io.ReadWriteCloser
}

// Opener opens ports and enumerates the ones available.
type Opener interface {
	Open(name string, baud int, readTimeout time.Duration) (Port, error)
	Ports() ([]string, error)
}

// Serial opens real serial devices.
type Serial struct{}

// Open opens a serial device in 8N1 mode.
func (Serial) Open(name string, baud int, readTimeout time.Duration) (Port, error) {
	p, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, describe(name, err)
	}
	if err := p.SetReadTimeout(readTimeout); err != nil {
		p.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", name, err)
	}
	return &serialPort{Port: p}, nil
}

// Ports lists the serial devices known to the OS.
func (Serial) Ports() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	if ports == nil {
		ports = []string{}
	}
	return ports, nil
}

// serialPort maps the library's closed-port error onto ErrPortClosed.
type serialPort struct {
	serial.Port
}

func (p *serialPort) Read(b []byte) (int, error) {
	n, err := p.Port.Read(b)
	return n, mapClosed(err)
}

func (p *serialPort) Write(b []byte) (int, error) {
	n, err := p.Port.Write(b)
	return n, mapClosed(err)
}

func mapClosed(err error) error {
	var pe *serial.PortError
	if errors.As(err, &pe) && pe.Code() == serial.PortClosed {
		return ErrPortClosed
	}
	return err
}

func describe(name string, err error) error {
	var pe *serial.PortError
	if errors.As(err, &pe) {
		switch pe.Code() {
		case serial.PortBusy:
			return fmt.Errorf("port %s is busy: %w", name, err)
		case serial.PortNotFound:
			return fmt.Errorf("port %s not found: %w", name, err)
		case serial.PermissionDenied:
			return fmt.Errorf("permission denied on %s: %w", name, err)
		}
	}
	return fmt.Errorf("open %s: %w", name, err)
}
