package session

import (
	"bytes"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/GonnyTech/canDrive-Pro/internal/frame"
	"github.com/GonnyTech/canDrive-Pro/internal/metrics"
	"github.com/GonnyTech/canDrive-Pro/internal/transport"
)

const (
	readChunkSize = 512
	maxLineLength = 4096
)

// readLoop reads wire lines from the transport until the connection is
// cancelled or the transport fails.
func (m *Manager) readLoop(c *connection) {
	defer c.wg.Done()

	buf := make([]byte, readChunkSize)
	lines := lineSplitter{max: maxLineLength}

	for {
		if c.ctx.Err() != nil {
			return
		}

		n, err := c.handle.Read(buf)
		if n > 0 {
			lines.feed(buf[:n], m.ingest)
		}
		if err == nil {
			continue
		}

		if c.ctx.Err() != nil || errors.Is(err, transport.ErrPortClosed) {
			return
		}
		log.Error().Err(err).Str("port", c.port).Msg("transport read failed, ingestion stopped")
		c.setErr(err)
		return
	}
}

// ingest decodes one line and, while a session is recording, stores and
// publishes the frame. Malformed lines are dropped.
func (m *Manager) ingest(line string) {
	f, err := frame.Decode(line)
	if err != nil {
		metrics.LineMalformed()
		log.Debug().Err(err).Str("line", line).Msg("dropping line")
		return
	}
	metrics.LineDecoded()

	recorded, ok := m.store.Record(f, m.now())
	if !ok {
		return
	}
	metrics.FrameRecorded()
	m.subs.Publish(recorded)
}

// lineSplitter reassembles newline-terminated lines from a byte stream.
// Lines longer than max are discarded whole.
type lineSplitter struct {
	buf      []byte
	max      int
	overflow bool
}

func (ls *lineSplitter) feed(data []byte, emit func(string)) {
	for len(data) > 0 {
		i := bytes.IndexByte(data, '\n')
		chunk := data
		if i >= 0 {
			chunk = data[:i]
		}

		if !ls.overflow {
			if len(ls.buf)+len(chunk) > ls.max {
				ls.overflow = true
				ls.buf = ls.buf[:0]
			} else {
				ls.buf = append(ls.buf, chunk...)
			}
		}
		if i < 0 {
			return
		}

		if ls.overflow {
			metrics.LineOverflow()
			log.Debug().Int("max", ls.max).Msg("dropping overlong line")
		} else {
			emit(string(ls.buf))
		}
		ls.buf = ls.buf[:0]
		ls.overflow = false
		data = data[i+1:]
	}
}
