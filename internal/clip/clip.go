// Package clip provides a unified interface to the system clipboard across
// platforms. Build constraints select the appropriate implementation:
//
//	clip_linux.go   — Linux via golang.design/x/clipboard, polling
//	clip_darwin.go  — macOS via golang.design/x/clipboard, polling
//	clip_windows.go — Windows via golang.design/x/clipboard, polling
//	clip_other.go   — headless / container stub
package clip

import (
	"time"

	"github.com/clipkeep/clipkeep/internal/content"
)

// DefaultPollInterval is the change-detection cadence used when Options
// leaves PollInterval unset.
const DefaultPollInterval = 500 * time.Millisecond

// Options tunes backend construction.
type Options struct {
	// PollInterval is the poll cadence on platforms without native change
	// notification. Zero selects DefaultPollInterval.
	PollInterval time.Duration
}

func (o Options) pollInterval() time.Duration {
	if o.PollInterval <= 0 {
		return DefaultPollInterval
	}
	return o.PollInterval
}

// Backend is the interface that all platform clipboard implementations satisfy.
type Backend interface {
	// Name returns a human-readable name for the backend.
	Name() string

	// Read returns every representation currently on the clipboard as typed
	// items. Returns nil, nil if the clipboard is empty or contains only
	// unsupported types.
	Read() ([]content.Item, error)

	// Write sets the clipboard to the given item.
	Write(item content.Item) error

	// Watch returns a channel that receives a signal whenever the clipboard
	// changes. The channel is never closed. The caller should call Read when
	// it receives from the channel.
	Watch() <-chan struct{}

	// Close releases any resources held by the backend.
	Close()
}
