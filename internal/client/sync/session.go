package sync

import "sync"

// session is the explicit per-owner sync-session object. It carries the
// is-syncing flag and the outcome of the last attempt, instead of ambient
// globals. A session lives as long as its Engine.
type session struct {
	mu      sync.Mutex
	busy    bool
	manual  bool
	lastErr error
}

// begin claims the session. It returns false when a sync is already in
// flight; opportunistic callers skip rather than queue, and the next timer
// or notification retries.
func (s *session) begin(manual bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return false
	}
	s.busy = true
	s.manual = manual
	return true
}

// end releases the session and records the outcome. A nil err clears the
// unsynced-changes indicator; a non-nil one sets it.
func (s *session) end(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	s.manual = false
	s.lastErr = err
}

func (s *session) unsynced() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr != nil
}
