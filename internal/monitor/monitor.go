// Package monitor turns raw clipboard-change signals into typed content
// items, deduplicating repeats and suppressing the daemon's own writes so
// that only genuine local changes flow downstream.
package monitor

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/clipkeep/clipkeep/internal/clip"
	"github.com/clipkeep/clipkeep/internal/content"
	"github.com/clipkeep/clipkeep/internal/event"
)

// ErrEmptyOrUnsupported is returned by ReadNow when the clipboard holds no
// readable representation.
var ErrEmptyOrUnsupported = errors.New("clipboard is empty or unsupported")

// subscriberBuffer is the per-subscriber channel depth. Slow subscribers
// lose items once the buffer fills; detection never blocks on them.
const subscriberBuffer = 16

// readPriority is the fixed order applied when the clipboard carries
// several representations at once: a file list wins over an image, an image
// wins over text.
var readPriority = [...]content.Kind{content.KindFile, content.KindImage, content.KindText}

// Monitor watches a clip.Backend and emits one content.Item per genuine
// clipboard change.
type Monitor struct {
	backend clip.Backend
	bus     *event.Bus

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
	lastFP  string
	subs    map[string]chan content.Item
}

// New wraps backend. Changes are fanned out to subscribers; read failures
// are also published on bus.
func New(backend clip.Backend, bus *event.Bus) *Monitor {
	return &Monitor{
		backend: backend,
		bus:     bus,
		subs:    make(map[string]chan content.Item),
	}
}

// Subscribe registers a listener for genuine clipboard changes. The channel
// is buffered; items are dropped, not queued, once it fills.
func (m *Monitor) Subscribe() (string, <-chan content.Item) {
	id := uuid.NewString()
	ch := make(chan content.Item, subscriberBuffer)
	m.mu.Lock()
	m.subs[id] = ch
	m.mu.Unlock()
	return id, ch
}

// Unsubscribe removes a listener and closes its channel.
func (m *Monitor) Unsubscribe(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.subs[id]
	if !ok {
		return
	}
	delete(m.subs, id)
	close(ch)
}

// Start begins the detection loop. Calling Start while running is a no-op.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.running = true
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go m.loop(m.stop, m.done)
	slog.Info("clipboard monitor started", "backend", m.backend.Name())
}

// Stop halts the detection loop and waits for it to exit, so no further
// items are emitted after Stop returns. Calling Stop while stopped is a
// no-op.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	stop, done := m.stop, m.done
	m.mu.Unlock()

	close(stop)
	<-done
	slog.Info("clipboard monitor stopped")
}

func (m *Monitor) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	watch := m.backend.Watch()
	for {
		select {
		case <-stop:
			return
		case <-watch:
			m.handleChange()
		}
	}
}

// handleChange reads the clipboard and emits the content if it is genuinely
// new: not a repeat of the last emission and not one of our own writes.
func (m *Monitor) handleChange() {
	item, err := m.read()
	if err != nil {
		if errors.Is(err, ErrEmptyOrUnsupported) {
			slog.Debug("clipboard change without readable content")
			return
		}
		slog.Warn("clipboard read failed", "err", err)
		m.bus.Publish(event.Errorf("clipboard read failed: %v", err))
		return
	}

	m.mu.Lock()
	if item.Fingerprint == m.lastFP {
		m.mu.Unlock()
		slog.Debug("repeated clipboard content suppressed", "kind", item.Kind)
		return
	}
	m.lastFP = item.Fingerprint
	// Send while holding mu so Unsubscribe cannot close a channel mid-fanout.
	for _, ch := range m.subs {
		select {
		case ch <- item:
		default:
			slog.Warn("monitor subscriber full, dropping", "kind", item.Kind)
		}
	}
	m.mu.Unlock()

	slog.Debug("clipboard changed", "kind", item.Kind, "bytes", item.Size())
	m.bus.Publish(event.Changed(item.Kind))
}

// ReadNow reads the current clipboard on demand using the same priority
// order as the detection loop.
func (m *Monitor) ReadNow() (content.Item, error) {
	return m.read()
}

// WriteNow writes item to the system clipboard. The item's fingerprint is
// recorded before the write so the change notification it triggers is not
// re-emitted as a local change.
func (m *Monitor) WriteNow(item content.Item) error {
	m.mu.Lock()
	prev := m.lastFP
	m.lastFP = item.Fingerprint
	m.mu.Unlock()

	if err := m.backend.Write(item); err != nil {
		m.mu.Lock()
		if m.lastFP == item.Fingerprint {
			m.lastFP = prev
		}
		m.mu.Unlock()
		return fmt.Errorf("clipboard write: %w", err)
	}
	return nil
}

func (m *Monitor) read() (content.Item, error) {
	items, err := m.backend.Read()
	if err != nil {
		return content.Item{}, err
	}
	return pick(items)
}

// pick applies the fixed kind priority to a backend snapshot.
func pick(items []content.Item) (content.Item, error) {
	for _, kind := range readPriority {
		for _, it := range items {
			if it.Kind == kind && !it.Empty() {
				return it, nil
			}
		}
	}
	return content.Item{}, ErrEmptyOrUnsupported
}

// Backend exposes the wrapped backend's name for status reporting.
func (m *Monitor) Backend() string { return m.backend.Name() }
