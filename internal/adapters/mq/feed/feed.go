// Package feed fans committed leaderboard changes out to live subscribers.
//
// Publishing never blocks: a subscriber whose buffer is full misses the
// event. Subscribers that need a consistent view re-read the leaderboard.
package feed

import (
	"context"
	"sync"

	"github.com/okian/highscores/internal/domain/model"
	"github.com/okian/highscores/pkg/metrics"
)

// Default feed configuration constants.
const (
	defaultBufferSize = 64
)

// Event is the payload type flowing through the feed.
type Event = model.ChangeEvent

// Hub is an in-process pub/sub hub for change events.
type Hub struct {
	mu         sync.RWMutex
	subs       map[uint64]chan Event
	next       uint64
	bufferSize int
	closed     bool
}

// NewHub creates a hub with configuration options.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		subs:       make(map[uint64]chan Event),
		bufferSize: defaultBufferSize,
	}
	for _, opt := range opts {
		opt(h)
	}
	metrics.UpdateFeedSubscribers(0)
	return h
}

// Subscribe registers a new subscriber. The returned channel is closed by
// Unsubscribe or Close.
func (h *Hub) Subscribe() (uint64, <-chan Event, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0, nil, ErrClosed
	}
	h.next++
	id := h.next
	ch := make(chan Event, h.bufferSize)
	h.subs[id] = ch
	metrics.UpdateFeedSubscribers(len(h.subs))
	return id, ch, nil
}

// Unsubscribe removes a subscriber and closes its channel. Unknown ids are ignored.
func (h *Hub) Unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
		metrics.UpdateFeedSubscribers(len(h.subs))
	}
}

// Publish delivers ev to every subscriber with room in its buffer.
func (h *Hub) Publish(_ context.Context, ev Event) {
	// Sends happen under the read lock so Unsubscribe cannot close a
	// channel mid-send; they are non-blocking so the lock is held briefly.
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
			metrics.RecordFeedEvent("delivered")
		default:
			metrics.RecordFeedEvent("dropped")
		}
	}
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close disconnects every subscriber and rejects new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
	h.closed = true
	metrics.UpdateFeedSubscribers(0)
	return nil
}
