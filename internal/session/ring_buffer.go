package session

import "github.com/GonnyTech/canDrive-Pro/internal/frame"

// RingBuffer is a fixed-capacity circular buffer of frames. The oldest frame
// is overwritten once the buffer is full. It is not safe for concurrent use;
// Store serializes access.
type RingBuffer struct {
	buf      []frame.Frame
	capacity int
	pos      int // next write position
	full     bool
}

// NewRingBuffer creates a ring buffer with the given capacity.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &RingBuffer{
		buf:      make([]frame.Frame, capacity),
		capacity: capacity,
	}
}

// Write adds a frame to the ring buffer.
func (rb *RingBuffer) Write(f frame.Frame) {
	rb.buf[rb.pos] = f
	rb.pos = (rb.pos + 1) % rb.capacity
	if rb.pos == 0 {
		rb.full = true
	}
}

// Len returns the number of buffered frames.
func (rb *RingBuffer) Len() int {
	if rb.full {
		return rb.capacity
	}
	return rb.pos
}

// ReadAll returns all frames in the buffer in arrival order.
func (rb *RingBuffer) ReadAll() []frame.Frame {
	return rb.Last(rb.capacity)
}

// Last returns the newest n frames in arrival order.
func (rb *RingBuffer) Last(n int) []frame.Frame {
	size := rb.Len()
	if n > size {
		n = size
	}
	if n <= 0 {
		return []frame.Frame{}
	}

	result := make([]frame.Frame, n)
	start := (rb.pos - n + rb.capacity) % rb.capacity
	if start+n <= rb.capacity {
		copy(result, rb.buf[start:start+n])
		return result
	}
	copied := copy(result, rb.buf[start:])
	copy(result[copied:], rb.buf[:n-copied])
	return result
}

// Reset empties the buffer.
func (rb *RingBuffer) Reset() {
	clear(rb.buf)
	rb.pos = 0
	rb.full = false
}
