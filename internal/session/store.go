package session

import (
	"maps"
	"sync"
	"time"

	"github.com/GonnyTech/canDrive-Pro/internal/frame"
)

// Store holds the rolling state of the current sniffing session: recent
// frames, per-identifier counts and the label table. Labels outlive
// sessions. Every read returns a copy.
type Store struct {
	mu     sync.RWMutex
	ring   *RingBuffer
	counts map[string]int
	labels map[string]string
	start  time.Time
	active bool
	total  int
}

// NewStore creates an empty store keeping at most capacity frames.
func NewStore(capacity int) *Store {
	return &Store{
		ring:   NewRingBuffer(capacity),
		counts: make(map[string]int),
		labels: make(map[string]string),
	}
}

// Begin discards the previous session and starts recording a new one.
func (s *Store) Begin(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ring.Reset()
	s.counts = make(map[string]int)
	s.start = now
	s.total = 0
	s.active = true
}

// End stops recording. The session data stays readable.
func (s *Store) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
}

// Record stamps and stores f if a session is active. It reports false and
// leaves the store untouched otherwise.
func (s *Store) Record(f frame.Frame, now time.Time) (frame.Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return frame.Frame{}, false
	}

	f.Elapsed = max(now.Sub(s.start), 0)
	f.Label = s.labels[f.ID]
	s.ring.Write(f)
	s.counts[f.ID]++
	s.total++
	return f, true
}

// Recent returns the newest limit frames in arrival order. A limit of zero
// or less returns the whole buffer.
func (s *Store) Recent(limit int) []frame.Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		return s.ring.ReadAll()
	}
	return s.ring.Last(limit)
}

// IdentifierCounts returns a copy of the per-identifier frame counts.
func (s *Store) IdentifierCounts() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.counts)
}

// Labels returns a copy of the label table.
func (s *Store) Labels() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.labels)
}

// SetLabels replaces the label table. Frames already recorded keep the
// label they were stamped with.
func (s *Store) SetLabels(labels map[string]string) {
	next := maps.Clone(labels)
	if next == nil {
		next = make(map[string]string)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.labels = next
}

// Active reports whether a session is recording.
func (s *Store) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

type storeStats struct {
	start       time.Time
	frames      int
	identifiers int
}

func (s *Store) stats() storeStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return storeStats{start: s.start, frames: s.total, identifiers: len(s.counts)}
}
