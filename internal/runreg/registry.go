// Package runreg tracks the live run for each session. A session has a
// single live-run slot; starting a new run overwrites it unconditionally
// (last-writer-wins) without waiting for the prior run to acknowledge.
//
// Cancellation is cooperative: a superseded run keeps its in-flight external
// call, but observes at its next loop-iteration boundary (and again before
// applying any patch) that it is no longer live, and exits without writing.
package runreg

import "sync"

// Registry maps session IDs to their live run ID. The zero value is not
// usable; construct with NewRegistry. Safe for concurrent use across
// orchestrator instances in the same process.
type Registry struct {
	mu   sync.RWMutex
	live map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{live: make(map[string]string)}
}

// Begin records runID as the live run for sessionID, superseding any prior
// run.
func (r *Registry) Begin(sessionID, runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.live[sessionID] = runID
}

// IsLive reports whether runID is still the live run for sessionID.
func (r *Registry) IsLive(sessionID, runID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.live[sessionID] == runID
}

// End clears the live-run slot for sessionID, but only if runID still owns
// it. A superseded run calling End must not clobber its successor.
func (r *Registry) End(sessionID, runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.live[sessionID] == runID {
		delete(r.live, sessionID)
	}
}

// LiveRun returns the live run ID for sessionID, if any.
func (r *Registry) LiveRun(sessionID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.live[sessionID]
	return id, ok
}
