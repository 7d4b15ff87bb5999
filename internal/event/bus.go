package event

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// defaultBuffer is the subscriber channel depth used when Subscribe is
// called with a non-positive buffer.
const defaultBuffer = 16

// Bus fans events out to all subscribers. Delivery is non-blocking: a
// subscriber that stops draining its channel loses events rather than
// stalling the publisher.
type Bus struct {
	mu   sync.RWMutex
	subs map[string]chan Event
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string]chan Event)}
}

// Subscribe registers a new subscriber and returns its id and receive
// channel. The channel is closed by Unsubscribe.
func (b *Bus) Subscribe(buffer int) (string, <-chan Event) {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	id := uuid.NewString()
	ch := make(chan Event, buffer)
	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()
	return id, ch
}

// Unsubscribe removes the subscriber and closes its channel. Unknown ids
// are a no-op.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.subs[id]
	if !ok {
		return
	}
	delete(b.subs, id)
	close(ch)
}

// Publish delivers ev to every subscriber without blocking.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			slog.Warn("event subscriber full, dropping", "subscriber", id, "type", ev.Type)
		}
	}
}

// Len returns the current subscriber count.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
