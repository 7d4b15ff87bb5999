package clip

import "github.com/clipkeep/clipkeep/internal/content"

// headlessBackend is a no-op clipboard backend for environments without a
// display server (headless servers, containers, CI). It never signals
// changes and silently discards writes.
type headlessBackend struct {
	watchCh chan struct{}
}

func newHeadless() Backend {
	return &headlessBackend{watchCh: make(chan struct{})}
}

func (b *headlessBackend) Name() string                  { return "headless (no-op)" }
func (b *headlessBackend) Read() ([]content.Item, error) { return nil, nil }
func (b *headlessBackend) Write(content.Item) error      { return nil }
func (b *headlessBackend) Watch() <-chan struct{}        { return b.watchCh }
func (b *headlessBackend) Close()                        {}
