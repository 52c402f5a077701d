// Package trace is the append-only per-session event log. The tracer
// records every orchestration decision and external-call outcome; it
// never drops, reorders, or interprets events.
package trace

import (
	"sync"
	"time"

	"github.com/lookfor-ai/maestro/internal/domain"
)

// Tracer records immutable events keyed by session id.
type Tracer interface {
	// Record appends an event to the session's timeline, stamping the
	// wall clock if the event carries no timestamp.
	Record(sessionID string, evt domain.TraceEvent)

	// Get returns the session's timeline in record order. ok is false
	// if the session never produced an event.
	Get(sessionID string) (events []domain.TraceEvent, ok bool)

	// Clear drops all timelines. Test/reset hook.
	Clear()
}

// MemoryTracer is the in-memory Tracer implementation.
type MemoryTracer struct {
	mu        sync.RWMutex
	timelines map[string][]domain.TraceEvent
}

// NewMemoryTracer creates an empty tracer.
func NewMemoryTracer() *MemoryTracer {
	return &MemoryTracer{timelines: make(map[string][]domain.TraceEvent)}
}

func (t *MemoryTracer) Record(sessionID string, evt domain.TraceEvent) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	t.mu.Lock()
	t.timelines[sessionID] = append(t.timelines[sessionID], evt)
	t.mu.Unlock()
}

func (t *MemoryTracer) Get(sessionID string) ([]domain.TraceEvent, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	tl, ok := t.timelines[sessionID]
	if !ok {
		return nil, false
	}
	return append([]domain.TraceEvent(nil), tl...), true
}

func (t *MemoryTracer) Clear() {
	t.mu.Lock()
	t.timelines = make(map[string][]domain.TraceEvent)
	t.mu.Unlock()
}
