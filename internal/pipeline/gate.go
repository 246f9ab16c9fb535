package pipeline

import "sync"

// RequestGate tracks in-flight correlation ids and rejects duplicates. State
// is process-local and cleared when a run finishes or the process restarts.
type RequestGate struct {
	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewRequestGate creates an empty gate.
func NewRequestGate() *RequestGate {
	return &RequestGate{inflight: make(map[string]struct{})}
}

// Admit atomically records the correlation id as in-flight. It returns false
// when a run with the same id is already active; exactly one of two racing
// admissions succeeds.
func (g *RequestGate) Admit(correlationID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.inflight[correlationID]; ok {
		return false
	}
	g.inflight[correlationID] = struct{}{}
	return true
}

// Release removes the correlation id from the in-flight set. It is
// idempotent and safe to call for ids that were never admitted.
func (g *RequestGate) Release(correlationID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inflight, correlationID)
}

// InFlight returns the number of active runs.
func (g *RequestGate) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.inflight)
}
