package syncer

import "sync/atomic"

// State is the process-wide sync state. It is built once by the application
// root and shared by reference; every field is an atomic so the timer loop,
// the push path, and status readers never contend on a lock.
type State struct {
	enabled    atomic.Bool
	inFlight   atomic.Bool
	lastLocal  atomic.Uint64
	lastServer atomic.Uint64
}

// NewState returns a State with auto-sync set to enabled and both indices
// at zero, meaning the first pull asks for anything the remote holds.
func NewState(enabled bool) *State {
	s := &State{}
	s.enabled.Store(enabled)
	return s
}

// Enabled reports whether automatic sync is on.
func (s *State) Enabled() bool { return s.enabled.Load() }

// Toggle flips the auto-sync flag and returns the new value.
func (s *State) Toggle() bool {
	for {
		old := s.enabled.Load()
		if s.enabled.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// Syncing reports whether a sync cycle is currently in flight.
func (s *State) Syncing() bool { return s.inFlight.Load() }

// LastLocalIndex is the index the remote assigned to our latest accepted
// push.
func (s *State) LastLocalIndex() uint64 { return s.lastLocal.Load() }

// LastServerIndex is the newest remote index this device has consumed.
func (s *State) LastServerIndex() uint64 { return s.lastServer.Load() }

// tryAcquire attempts to mark a sync cycle in flight. It returns false when
// another cycle already holds the slot.
func (s *State) tryAcquire() bool { return s.inFlight.CompareAndSwap(false, true) }

// release clears the in-flight flag.
func (s *State) release() { s.inFlight.Store(false) }

// setLocal records a push acknowledgement.
func (s *State) setLocal(idx uint64) { s.lastLocal.Store(idx) }

// advanceServer moves the consumed index forward. It returns false when idx
// does not exceed the current value; the ordering token never regresses, so
// replayed or out-of-order responses are naturally ignored.
func (s *State) advanceServer(idx uint64) bool {
	for {
		cur := s.lastServer.Load()
		if idx <= cur {
			return false
		}
		if s.lastServer.CompareAndSwap(cur, idx) {
			return true
		}
	}
}

// Status is a point-in-time snapshot of the sync state.
type Status struct {
	AutoSyncEnabled bool   `json:"autoSyncEnabled"`
	Syncing         bool   `json:"isSyncing"`
	LastLocalIndex  uint64 `json:"lastLocalIndex"`
	LastServerIndex uint64 `json:"lastServerIndex"`
}

// Snapshot returns the current Status.
func (s *State) Snapshot() Status {
	return Status{
		AutoSyncEnabled: s.enabled.Load(),
		Syncing:         s.inFlight.Load(),
		LastLocalIndex:  s.lastLocal.Load(),
		LastServerIndex: s.lastServer.Load(),
	}
}
