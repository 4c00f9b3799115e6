package session

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/GonnyTech/canDrive-Pro/internal/frame"
	"github.com/GonnyTech/canDrive-Pro/internal/metrics"
)

type sendRequest struct {
	line   string
	result chan error
}

// Send encodes a frame and writes it to the transport. Concurrent callers
// are serialized onto the connection's single writer. Write failures are
// returned as ErrTransport and are not retried.
func (m *Manager) Send(ctx context.Context, id, ext, rtr, data string) error {
	c := m.conn.Load()
	if c == nil {
		return ErrNotConnected
	}

	req := sendRequest{
		line:   frame.Encode(id, ext, rtr, data),
		result: make(chan error, 1),
	}

	select {
	case c.outbox <- req:
	case <-c.ctx.Done():
		return ErrNotConnected
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.result:
		return err
	case <-c.ctx.Done():
		// The writer may have finished just before shutdown.
		select {
		case err := <-req.result:
			return err
		default:
			return ErrNotConnected
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// writeLoop drains the outbox onto the transport.
func (m *Manager) writeLoop(c *connection) {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		case req := <-c.outbox:
			_, err := io.WriteString(c.handle, req.line)
			if err != nil {
				log.Warn().Err(err).Str("port", c.port).Msg("transport write failed")
				err = fmt.Errorf("%w: %w", ErrTransport, err)
			}
			metrics.FrameSent(err == nil)
			req.result <- err
		}
	}
}
