package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/clipkeep/clipkeep/internal/content"
)

// MemoryStore keeps history in process memory. It is the default store when
// no database path is configured; contents do not survive a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	max     int
	nextID  uint64
	entries map[uint64]Entry
	now     func() time.Time
}

// NewMemory returns an empty in-memory store capped at maxUnpinned entries.
// maxUnpinned <= 0 selects DefaultMaxUnpinned.
func NewMemory(maxUnpinned int) *MemoryStore {
	if maxUnpinned <= 0 {
		maxUnpinned = DefaultMaxUnpinned
	}
	return &MemoryStore{
		max:     maxUnpinned,
		entries: make(map[uint64]Entry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Append(_ context.Context, item content.Item) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unpinned := 0
	for _, e := range s.entries {
		if !e.Pinned {
			unpinned++
		}
	}
	for unpinned >= s.max {
		victim, ok := s.oldestUnpinnedLocked()
		if !ok {
			break
		}
		delete(s.entries, victim.ID)
		unpinned--
	}

	s.nextID++
	e := Entry{
		ID:        s.nextID,
		Item:      item,
		CreatedAt: s.now(),
	}
	s.entries[e.ID] = e
	return e, nil
}

func (s *MemoryStore) Get(_ context.Context, id uint64) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

func (s *MemoryStore) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

func (s *MemoryStore) TogglePin(_ context.Context, id uint64) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	e.Pinned = !e.Pinned
	s.entries[id] = e
	return e, nil
}

func (s *MemoryStore) List(_ context.Context, limit, offset int) ([]Entry, error) {
	s.mu.RLock()
	all := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		all = append(all, e)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return newer(all[i], all[j]) })

	if offset >= len(all) {
		return []Entry{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (s *MemoryStore) Count(_ context.Context) (total, unpinned int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		total++
		if !e.Pinned {
			unpinned++
		}
	}
	return total, unpinned, nil
}

func (s *MemoryStore) Close() error { return nil }

// oldestUnpinnedLocked finds the eviction candidate. Caller holds mu.
func (s *MemoryStore) oldestUnpinnedLocked() (Entry, bool) {
	var victim Entry
	found := false
	for _, e := range s.entries {
		if e.Pinned {
			continue
		}
		if !found || older(e, victim) {
			victim = e
			found = true
		}
	}
	return victim, found
}
