//go:build linux || darwin || windows

package clip

import (
	"bytes"
	"fmt"
	"log/slog"
	"time"

	"golang.design/x/clipboard"

	"github.com/clipkeep/clipkeep/internal/content"
)

// pollBackend reads the clipboard through golang.design/x/clipboard and
// detects changes by comparing text and image bytes at a fixed cadence.
// It never produces file items; file content enters the system through the
// control API instead.
type pollBackend struct {
	name     string
	interval time.Duration
	watchCh  chan struct{}
	done     chan struct{}
	lastText []byte
	lastImg  []byte
}

// newPollBackend initialises x/clipboard and starts the poll loop, falling
// back to a headless no-op backend when the display environment is
// unavailable. clipboard.Init is called here rather than in init() so that
// CLI sub-commands (status, history, copy, paste) don't trigger the warning.
func newPollBackend(name string, opts Options) Backend {
	if err := clipboard.Init(); err != nil {
		slog.Warn("clipboard unavailable, running headless", "err", err)
		return newHeadless()
	}
	b := &pollBackend{
		name:     name,
		interval: opts.pollInterval(),
		watchCh:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go b.poll()
	return b
}

func (b *pollBackend) Name() string { return b.name }

func (b *pollBackend) poll() {
	t := time.NewTicker(b.interval)
	defer t.Stop()
	for {
		select {
		case <-b.done:
			return
		case <-t.C:
			text := clipboard.Read(clipboard.FmtText)
			img := clipboard.Read(clipboard.FmtImage)
			if !bytes.Equal(text, b.lastText) || !bytes.Equal(img, b.lastImg) {
				b.lastText = text
				b.lastImg = img
				select {
				case b.watchCh <- struct{}{}:
				default:
				}
			}
		}
	}
}

func (b *pollBackend) Read() ([]content.Item, error) {
	var items []content.Item
	if img := clipboard.Read(clipboard.FmtImage); img != nil {
		items = append(items, content.NewImage(img))
	}
	if text := clipboard.Read(clipboard.FmtText); text != nil {
		items = append(items, content.NewText(string(text)))
	}
	return items, nil
}

func (b *pollBackend) Write(item content.Item) error {
	switch item.Kind {
	case content.KindText:
		clipboard.Write(clipboard.FmtText, item.Data)
	case content.KindImage:
		clipboard.Write(clipboard.FmtImage, item.Data)
	default:
		return fmt.Errorf("%s: cannot write kind %q", b.name, item.Kind)
	}
	return nil
}

func (b *pollBackend) Watch() <-chan struct{} { return b.watchCh }
func (b *pollBackend) Close()                 { close(b.done) }
