package session

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/GonnyTech/canDrive-Pro/internal/frame"
	"github.com/GonnyTech/canDrive-Pro/internal/metrics"
)

// Subscription receives published frames on C. C is closed when the
// subscription is removed, either by Unsubscribe or because the subscriber
// fell behind.
type Subscription struct {
	ID string
	C  <-chan frame.Frame

	ch chan frame.Frame
}

// Registry fans frames out to subscribers without ever blocking the
// publisher.
type Registry struct {
	mu      sync.RWMutex
	subs    map[string]*Subscription
	bufSize int
}

// NewRegistry creates a registry whose subscribers buffer bufSize frames.
func NewRegistry(bufSize int) *Registry {
	if bufSize < 1 {
		bufSize = 1
	}
	return &Registry{
		subs:    make(map[string]*Subscription),
		bufSize: bufSize,
	}
}

// Subscribe registers a new subscriber.
func (r *Registry) Subscribe() *Subscription {
	ch := make(chan frame.Frame, r.bufSize)
	sub := &Subscription{ID: uuid.New().String(), C: ch, ch: ch}

	r.mu.Lock()
	r.subs[sub.ID] = sub
	r.mu.Unlock()

	metrics.SubscriberAdded()
	return sub
}

// Unsubscribe removes a subscriber and closes its channel. Unknown IDs are
// ignored.
func (r *Registry) Unsubscribe(id string) {
	r.mu.Lock()
	sub, ok := r.subs[id]
	if ok {
		delete(r.subs, id)
		close(sub.ch)
	}
	r.mu.Unlock()

	if ok {
		metrics.SubscriberRemoved()
	}
}

// Publish delivers f to every subscriber. A subscriber whose buffer is full
// is dropped.
func (r *Registry) Publish(f frame.Frame) {
	var slow []string

	r.mu.RLock()
	for id, sub := range r.subs {
		select {
		case sub.ch <- f:
		default:
			slow = append(slow, id)
		}
	}
	r.mu.RUnlock()

	for _, id := range slow {
		log.Warn().Str("subscriber", id).Msg("subscriber fell behind, dropping")
		metrics.SubscriberDropped()
		r.Unsubscribe(id)
	}
}

// Len returns the number of subscribers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// Close removes every subscriber.
func (r *Registry) Close() {
	r.mu.Lock()
	subs := r.subs
	r.subs = make(map[string]*Subscription)
	for _, sub := range subs {
		close(sub.ch)
	}
	r.mu.Unlock()

	for range subs {
		metrics.SubscriberRemoved()
	}
}
