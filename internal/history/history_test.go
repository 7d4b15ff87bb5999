package history

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/clipkeep/clipkeep/internal/content"
)

// fakeClock hands out timestamps advancing by step per call, so ordering is
// deterministic. step 0 produces ties.
type fakeClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(c.step)
	return c.t
}

// forEachStore runs fn against a fresh memory store and a fresh sqlite store
// capped at max, both driven by a fake clock.
func forEachStore(t *testing.T, max int, step time.Duration, fn func(t *testing.T, s Store)) {
	t.Helper()
	base := time.UnixMilli(1_700_000_000_000)

	t.Run("memory", func(t *testing.T) {
		m := NewMemory(max)
		m.now = (&fakeClock{t: base, step: step}).now
		fn(t, m)
	})
	t.Run("sqlite", func(t *testing.T) {
		s, err := OpenSQLite(filepath.Join(t.TempDir(), "history.db"), max)
		if err != nil {
			t.Fatalf("open sqlite: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		s.now = (&fakeClock{t: base, step: step}).now
		fn(t, s)
	})
}

func mustAppend(t *testing.T, s Store, text string) Entry {
	t.Helper()
	e, err := s.Append(context.Background(), content.NewText(text))
	if err != nil {
		t.Fatalf("append %q: %v", text, err)
	}
	return e
}

func TestAppendAssignsIncreasingIDs(t *testing.T) {
	forEachStore(t, 10, time.Millisecond, func(t *testing.T, s Store) {
		a := mustAppend(t, s, "first")
		b := mustAppend(t, s, "second")
		if b.ID <= a.ID {
			t.Fatalf("ids not increasing: %d then %d", a.ID, b.ID)
		}
		if a.Pinned || b.Pinned {
			t.Fatal("new entries must start unpinned")
		}
		if !b.CreatedAt.After(a.CreatedAt) {
			t.Fatalf("timestamps not increasing: %v then %v", a.CreatedAt, b.CreatedAt)
		}
	})
}

func TestAppendEvictsOldestUnpinnedAtCap(t *testing.T) {
	forEachStore(t, 50, time.Millisecond, func(t *testing.T, s Store) {
		ctx := context.Background()
		first := mustAppend(t, s, "entry 0")
		for i := 1; i <= 50; i++ {
			mustAppend(t, s, fmt.Sprintf("entry %d", i))
		}
		total, unpinned, err := s.Count(ctx)
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		if total != 50 || unpinned != 50 {
			t.Fatalf("got total=%d unpinned=%d, want 50/50", total, unpinned)
		}
		if _, err := s.Get(ctx, first.ID); !errors.Is(err, ErrNotFound) {
			t.Fatalf("oldest entry still present, err=%v", err)
		}
	})
}

func TestPinnedEntriesSurviveEviction(t *testing.T) {
	forEachStore(t, 2, time.Millisecond, func(t *testing.T, s Store) {
		ctx := context.Background()
		a := mustAppend(t, s, "a")
		b := mustAppend(t, s, "b")
		if _, err := s.TogglePin(ctx, a.ID); err != nil {
			t.Fatalf("pin: %v", err)
		}

		mustAppend(t, s, "c") // unpinned count 1 -> 2, no eviction
		mustAppend(t, s, "d") // at cap, evicts b (oldest unpinned)

		if _, err := s.Get(ctx, a.ID); err != nil {
			t.Fatalf("pinned entry evicted: %v", err)
		}
		if _, err := s.Get(ctx, b.ID); !errors.Is(err, ErrNotFound) {
			t.Fatalf("oldest unpinned entry not evicted, err=%v", err)
		}
		total, unpinned, _ := s.Count(ctx)
		if total != 3 || unpinned != 2 {
			t.Fatalf("got total=%d unpinned=%d, want 3/2", total, unpinned)
		}
	})
}

func TestUnpinningMayExceedCapUntilNextAppend(t *testing.T) {
	forEachStore(t, 2, time.Millisecond, func(t *testing.T, s Store) {
		ctx := context.Background()
		a := mustAppend(t, s, "a")
		b := mustAppend(t, s, "b")
		for _, id := range []uint64{a.ID, b.ID} {
			if _, err := s.TogglePin(ctx, id); err != nil {
				t.Fatalf("pin: %v", err)
			}
		}
		c := mustAppend(t, s, "c")
		d := mustAppend(t, s, "d")

		// Unpin a: three unpinned against a cap of two is tolerated.
		if _, err := s.TogglePin(ctx, a.ID); err != nil {
			t.Fatalf("unpin: %v", err)
		}
		_, unpinned, _ := s.Count(ctx)
		if unpinned != 3 {
			t.Fatalf("got unpinned=%d, want 3", unpinned)
		}

		// The next append restores the cap, evicting the two oldest
		// unpinned entries (a, then c) to make room.
		e := mustAppend(t, s, "e")
		for _, gone := range []uint64{a.ID, c.ID} {
			if _, err := s.Get(ctx, gone); !errors.Is(err, ErrNotFound) {
				t.Fatalf("entry %d not evicted by reconciling append, err=%v", gone, err)
			}
		}
		for _, kept := range []uint64{b.ID, d.ID, e.ID} {
			if _, err := s.Get(ctx, kept); err != nil {
				t.Fatalf("entry %d lost: %v", kept, err)
			}
		}
		_, unpinned, _ = s.Count(ctx)
		if unpinned != 2 {
			t.Fatalf("got unpinned=%d, want 2", unpinned)
		}
	})
}

func TestListNewestFirstWithIDTieBreak(t *testing.T) {
	// step 0 gives every entry the same timestamp; order falls back to id.
	forEachStore(t, 10, 0, func(t *testing.T, s Store) {
		mustAppend(t, s, "a")
		mustAppend(t, s, "b")
		mustAppend(t, s, "c")

		entries, err := s.List(context.Background(), 0, 0)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(entries) != 3 {
			t.Fatalf("got %d entries, want 3", len(entries))
		}
		for i := 1; i < len(entries); i++ {
			if entries[i].ID > entries[i-1].ID {
				t.Fatalf("ids not descending at %d: %d after %d",
					i, entries[i].ID, entries[i-1].ID)
			}
		}
	})
}

func TestListPaging(t *testing.T) {
	forEachStore(t, 20, time.Millisecond, func(t *testing.T, s Store) {
		for i := 0; i < 5; i++ {
			mustAppend(t, s, fmt.Sprintf("entry %d", i))
		}
		ctx := context.Background()

		page, err := s.List(ctx, 2, 1)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(page) != 2 {
			t.Fatalf("got %d entries, want 2", len(page))
		}
		// Newest first: ids 5,4,3,2,1; offset 1, limit 2 -> 4,3.
		if page[0].ID != 4 || page[1].ID != 3 {
			t.Fatalf("got ids %d,%d, want 4,3", page[0].ID, page[1].ID)
		}

		empty, err := s.List(ctx, 10, 99)
		if err != nil {
			t.Fatalf("list past end: %v", err)
		}
		if len(empty) != 0 {
			t.Fatalf("got %d entries past end, want 0", len(empty))
		}
	})
}

func TestDeleteIsUnconditionalAndIdempotent(t *testing.T) {
	forEachStore(t, 10, time.Millisecond, func(t *testing.T, s Store) {
		ctx := context.Background()
		e := mustAppend(t, s, "pin me")
		if _, err := s.TogglePin(ctx, e.ID); err != nil {
			t.Fatalf("pin: %v", err)
		}
		if err := s.Delete(ctx, e.ID); err != nil {
			t.Fatalf("delete pinned: %v", err)
		}
		if err := s.Delete(ctx, e.ID); err != nil {
			t.Fatalf("delete absent: %v", err)
		}
		if err := s.Delete(ctx, 99999); err != nil {
			t.Fatalf("delete never-existed: %v", err)
		}
	})
}

func TestTogglePin(t *testing.T) {
	forEachStore(t, 10, time.Millisecond, func(t *testing.T, s Store) {
		ctx := context.Background()
		e := mustAppend(t, s, "x")

		on, err := s.TogglePin(ctx, e.ID)
		if err != nil || !on.Pinned {
			t.Fatalf("got pinned=%v err=%v, want pinned", on.Pinned, err)
		}
		off, err := s.TogglePin(ctx, e.ID)
		if err != nil || off.Pinned {
			t.Fatalf("got pinned=%v err=%v, want unpinned", off.Pinned, err)
		}
		if _, err := s.TogglePin(ctx, 42424242); !errors.Is(err, ErrNotFound) {
			t.Fatalf("got %v, want ErrNotFound", err)
		}
	})
}

func TestGetRoundTripsItem(t *testing.T) {
	forEachStore(t, 10, time.Millisecond, func(t *testing.T, s Store) {
		ctx := context.Background()
		item := content.NewFile("report.pdf", []byte{0x25, 0x50, 0x44, 0x46})
		e, err := s.Append(ctx, item)
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		got, err := s.Get(ctx, e.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if !got.Item.Equal(item) {
			t.Fatalf("stored item differs: got %+v", got.Item)
		}
		if got.Item.FileName != "report.pdf" {
			t.Fatalf("got file name %q", got.Item.FileName)
		}
		if _, err := s.Get(ctx, 12345); !errors.Is(err, ErrNotFound) {
			t.Fatalf("got %v, want ErrNotFound", err)
		}
	})
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	s, err := OpenSQLite(path, 10)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	e, err := s.Append(ctx, content.NewText("survives restarts"))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := s.TogglePin(ctx, e.ID); err != nil {
		t.Fatalf("pin: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := OpenSQLite(path, 10)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, e.ID)
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if string(got.Item.Data) != "survives restarts" || !got.Pinned {
		t.Fatalf("entry lost detail across reopen: %+v", got)
	}
}
