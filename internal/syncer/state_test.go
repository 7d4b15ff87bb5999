package syncer

import (
	"encoding/json"
	"sync"
	"testing"
)

func TestAdvanceServerNeverRegresses(t *testing.T) {
	s := NewState(true)
	if !s.advanceServer(5) {
		t.Fatal("advance to 5 rejected")
	}
	if s.advanceServer(3) {
		t.Fatal("regression to 3 accepted")
	}
	if s.advanceServer(5) {
		t.Fatal("replay of 5 accepted")
	}
	if !s.advanceServer(6) {
		t.Fatal("advance to 6 rejected")
	}
	if got := s.LastServerIndex(); got != 6 {
		t.Fatalf("got %d, want 6", got)
	}
}

func TestAdvanceServerConcurrent(t *testing.T) {
	s := NewState(true)
	var wg sync.WaitGroup
	for i := uint64(1); i <= 100; i++ {
		wg.Add(1)
		go func(idx uint64) {
			defer wg.Done()
			s.advanceServer(idx)
		}(i)
	}
	wg.Wait()
	if got := s.LastServerIndex(); got != 100 {
		t.Fatalf("got %d, want the maximum 100", got)
	}
}

func TestToggle(t *testing.T) {
	s := NewState(true)
	if v := s.Toggle(); v {
		t.Fatal("toggle from on returned on")
	}
	if s.Enabled() {
		t.Fatal("still enabled after toggle off")
	}
	if v := s.Toggle(); !v {
		t.Fatal("toggle from off returned off")
	}
}

func TestAcquireRelease(t *testing.T) {
	s := NewState(true)
	if !s.tryAcquire() {
		t.Fatal("first acquire failed")
	}
	if s.tryAcquire() {
		t.Fatal("second acquire succeeded while held")
	}
	if !s.Syncing() {
		t.Fatal("Syncing false while held")
	}
	s.release()
	if !s.tryAcquire() {
		t.Fatal("acquire after release failed")
	}
}

func TestStatusJSONShape(t *testing.T) {
	s := NewState(true)
	s.setLocal(12)
	s.advanceServer(34)

	raw, err := json.Marshal(s.Snapshot())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"autoSyncEnabled", "isSyncing", "lastLocalIndex", "lastServerIndex"} {
		if _, ok := m[key]; !ok {
			t.Errorf("missing %q in %s", key, raw)
		}
	}
	if m["lastServerIndex"].(float64) != 34 {
		t.Fatalf("got %v, want 34", m["lastServerIndex"])
	}
}
