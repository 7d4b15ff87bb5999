// Package syncer keeps the local clipboard loosely consistent with the
// remote endpoint. The server-assigned index is the only ordering token:
// whoever pushed last wins, and a device applies a pulled value only when
// its index exceeds everything the device has already seen.
package syncer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/clipkeep/clipkeep/internal/content"
	"github.com/clipkeep/clipkeep/internal/event"
	"github.com/clipkeep/clipkeep/internal/history"
	"github.com/clipkeep/clipkeep/internal/remote"
)

// DefaultInterval between automatic sync cycles.
const DefaultInterval = 3 * time.Second

// ErrSyncInFlight is returned by SyncNow when a cycle is already running.
var ErrSyncInFlight = errors.New("sync already in progress")

// Clipboard is the slice of the monitor the engine needs.
type Clipboard interface {
	ReadNow() (content.Item, error)
	WriteNow(content.Item) error
}

// Options configure the engine.
type Options struct {
	// Interval between automatic cycles. Zero selects DefaultInterval.
	Interval time.Duration
	// Kinds marks which content kinds are pushed on local changes. A nil
	// map enables all kinds.
	Kinds map[content.Kind]bool
}

// Engine owns the periodic sync cycle and the push-on-change path.
type Engine struct {
	state  *State
	remote *remote.Client
	store  history.Store
	clips  Clipboard
	bus    *event.Bus

	interval atomic.Int64 // nanoseconds

	kindsMu sync.RWMutex
	kinds   map[content.Kind]bool

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New constructs an Engine. All collaborators must be non-nil.
func New(state *State, rc *remote.Client, store history.Store, clips Clipboard,
	bus *event.Bus, opts Options) *Engine {
	e := &Engine{
		state:  state,
		remote: rc,
		store:  store,
		clips:  clips,
		bus:    bus,
	}
	e.SetInterval(opts.Interval)
	e.SetKinds(opts.Kinds)
	return e
}

// SetInterval changes the automatic cycle interval. The new value takes
// effect after the next tick.
func (e *Engine) SetInterval(d time.Duration) {
	if d <= 0 {
		d = DefaultInterval
	}
	e.interval.Store(int64(d))
}

// Interval returns the current automatic cycle interval.
func (e *Engine) Interval() time.Duration {
	return time.Duration(e.interval.Load())
}

// SetKinds replaces the set of kinds eligible for push. A nil map enables
// all kinds.
func (e *Engine) SetKinds(kinds map[content.Kind]bool) {
	var copied map[content.Kind]bool
	if kinds != nil {
		copied = make(map[content.Kind]bool, len(kinds))
		for k, v := range kinds {
			copied[k] = v
		}
	}
	e.kindsMu.Lock()
	e.kinds = copied
	e.kindsMu.Unlock()
}

func (e *Engine) kindEnabled(k content.Kind) bool {
	e.kindsMu.RLock()
	defer e.kindsMu.RUnlock()
	if e.kinds == nil {
		return true
	}
	return e.kinds[k]
}

// Start launches the periodic cycle. Calling Start while running is a no-op.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return
	}
	e.running = true
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.done = make(chan struct{})
	go e.run(ctx, e.done)
	slog.Info("sync engine started", "interval", e.Interval())
}

// Stop cancels the cycle, aborting any in-flight request, and waits for the
// loop to exit. Calling Stop while stopped is a no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	cancel, done := e.cancel, e.done
	e.mu.Unlock()

	cancel()
	<-done
	slog.Info("sync engine stopped")
}

func (e *Engine) run(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	timer := time.NewTimer(e.Interval())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			e.tick(ctx)
			timer.Reset(e.Interval())
		}
	}
}

// tick runs one automatic cycle: skipped entirely while auto-sync is off,
// and never overlapping another cycle. A tick that fires while the previous
// cycle still runs is skipped, not queued.
func (e *Engine) tick(ctx context.Context) {
	if !e.state.Enabled() {
		return
	}
	if !e.state.tryAcquire() {
		slog.Debug("sync cycle still running, skipping tick")
		return
	}
	defer e.state.release()

	if err := e.pull(ctx); err != nil {
		slog.Debug("pull failed", "err", err)
	}
}

// pull fetches anything newer than the consumed index and applies it
// locally. Applying writes the clipboard through the monitor, which
// suppresses the resulting change notification, so pulls never echo back
// as pushes.
func (e *Engine) pull(ctx context.Context) error {
	since := e.state.LastServerIndex()
	payload, err := e.remote.Pull(ctx, since)
	if errors.Is(err, remote.ErrNotModified) {
		return nil
	}
	if err != nil {
		if ctx.Err() == nil {
			e.bus.Publish(event.Errorf("pull failed: %v", err))
		}
		return err
	}
	if payload.Index <= since {
		// Replayed or out-of-order response; the ordering token never
		// moves backward.
		return nil
	}

	item := payload.Item
	if item.Kind == content.KindFile {
		// File payloads are acknowledged but not fetched onto the local
		// clipboard; the index still advances so they are not re-offered.
		e.state.advanceServer(payload.Index)
		slog.Info("remote file acknowledged", "index", payload.Index, "name", item.FileName)
		return nil
	}

	if err := e.clips.WriteNow(item); err != nil {
		e.bus.Publish(event.Errorf("apply pulled clipboard: %v", err))
		return err
	}
	if _, err := e.store.Append(ctx, item); err != nil {
		slog.Warn("history append failed", "err", err)
	}
	e.state.advanceServer(payload.Index)
	e.bus.Publish(event.Pulled(item.Kind))
	slog.Info("pulled from server", "kind", item.Kind, "index", payload.Index, "preview", item.Preview())
	return nil
}

// push sends item to the remote endpoint. Failed pushes are never retried;
// the next local change or manual sync is the retry opportunity.
func (e *Engine) push(ctx context.Context, item content.Item) error {
	index, err := e.remote.Push(ctx, item)
	if err != nil {
		if ctx.Err() == nil {
			e.bus.Publish(event.Errorf("push failed: %v", err))
		}
		return err
	}
	e.state.setLocal(index)
	// The remote now holds our own content at this index. Consuming it here
	// keeps the next pull from echoing the push back at us.
	e.state.advanceServer(index)
	e.bus.Publish(event.Pushed(item.Kind))
	slog.Info("pushed to server", "kind", item.Kind, "index", index)
	return nil
}

// OnLocalChange reacts to a genuine local clipboard change: the item is
// pushed when auto-sync is on and its kind is enabled. History recording is
// the caller's concern, not the engine's.
func (e *Engine) OnLocalChange(ctx context.Context, item content.Item) {
	if !e.state.Enabled() {
		slog.Debug("auto-sync off, not pushing", "kind", item.Kind)
		return
	}
	if !e.kindEnabled(item.Kind) {
		slog.Debug("kind disabled for sync, not pushing", "kind", item.Kind)
		return
	}
	if err := e.push(ctx, item); err != nil {
		slog.Warn("push failed", "err", err, "kind", item.Kind)
	}
}

// SyncNow runs one manual cycle: push the current clipboard when it is
// readable, then pull. It works even while auto-sync is off, but refuses to
// overlap a running cycle and returns ErrSyncInFlight instead of queueing.
func (e *Engine) SyncNow(ctx context.Context) error {
	if !e.state.tryAcquire() {
		return ErrSyncInFlight
	}
	defer e.state.release()

	e.bus.Publish(event.Started())
	if item, err := e.clips.ReadNow(); err == nil {
		if err := e.push(ctx, item); err != nil {
			slog.Warn("manual push failed", "err", err)
		}
	}
	if err := e.pull(ctx); err != nil {
		slog.Debug("manual pull failed", "err", err)
	}
	e.bus.Publish(event.Completed())
	return nil
}

// ToggleAutoSync flips the auto-sync flag and returns the new value. An
// in-flight cycle is never interrupted; the next tick honors the flag.
func (e *Engine) ToggleAutoSync() bool {
	v := e.state.Toggle()
	slog.Info("auto-sync toggled", "enabled", v)
	return v
}

// Status returns the current sync state snapshot.
func (e *Engine) Status() Status { return e.state.Snapshot() }
