// Package history implements the bounded, pin-aware record of observed
// clipboard content. Entries come from both local captures and applied
// remote pulls; pinned entries survive any amount of churn while unpinned
// entries are capped and evicted oldest first.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/clipkeep/clipkeep/internal/content"
)

// DefaultMaxUnpinned is the cap on unpinned entries when no other limit is
// configured.
const DefaultMaxUnpinned = 50

// ErrNotFound is returned when an entry id does not exist.
var ErrNotFound = errors.New("history entry not found")

// Entry wraps a content.Item with store-assigned identity and metadata.
type Entry struct {
	ID        uint64       `json:"id"`
	Item      content.Item `json:"item"`
	CreatedAt time.Time    `json:"createdAt"`
	Pinned    bool         `json:"pinned"`
}

// Store is the bounded history collection. Implementations must keep the
// unpinned count at or below the cap immediately after every Append, and a
// concurrent List must never observe an append without its paired eviction.
type Store interface {
	// Append inserts item as a new unpinned entry, first evicting oldest
	// unpinned entries (earliest CreatedAt, lowest id on ties) until the
	// unpinned count is below the cap. Unpinning can overshoot the cap;
	// the next Append reconciles it.
	Append(ctx context.Context, item content.Item) (Entry, error)

	// Get returns the entry with the given id, or ErrNotFound.
	Get(ctx context.Context, id uint64) (Entry, error)

	// Delete removes an entry regardless of its pinned state. Deleting an
	// absent id is a no-op.
	Delete(ctx context.Context, id uint64) error

	// TogglePin flips the pinned flag and returns the updated entry, or
	// ErrNotFound when the id does not exist.
	TogglePin(ctx context.Context, id uint64) (Entry, error)

	// List returns entries newest first (CreatedAt descending, ties broken
	// by descending id), skipping offset entries and returning at most
	// limit. limit <= 0 means unlimited.
	List(ctx context.Context, limit, offset int) ([]Entry, error)

	// Count returns the total and unpinned entry counts.
	Count(ctx context.Context) (total, unpinned int, err error)

	// Close releases resources held by the store.
	Close() error
}

// newer orders entries for List: CreatedAt descending, then id descending.
func newer(a, b Entry) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// older orders eviction candidates: CreatedAt ascending, then id ascending.
func older(a, b Entry) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
