package trace

import (
	"sync"
	"time"

	"github.com/lookfor-ai/maestro/internal/domain"
)

// SessionEvent pairs a trace event with the session that produced it,
// for consumers watching more than one session.
type SessionEvent struct {
	SessionID string            `json:"sessionId"`
	Event     domain.TraceEvent `json:"event"`
}

// subscriberBuffer bounds each subscriber channel. A subscriber that
// falls this far behind starts losing live events; the underlying
// tracer still has the full timeline.
const subscriberBuffer = 64

// Fanout decorates a Tracer with live event broadcast. Every recorded
// event is forwarded to all current subscribers after being persisted
// by the wrapped tracer.
type Fanout struct {
	inner Tracer

	mu   sync.Mutex
	subs map[int]chan SessionEvent
	next int
}

// NewFanout wraps a tracer with broadcast support.
func NewFanout(inner Tracer) *Fanout {
	return &Fanout{inner: inner, subs: make(map[int]chan SessionEvent)}
}

var _ Tracer = (*Fanout)(nil)

// Subscribe registers a live event consumer. The returned cancel
// closes the channel and must be called exactly once.
func (f *Fanout) Subscribe() (<-chan SessionEvent, func()) {
	ch := make(chan SessionEvent, subscriberBuffer)

	f.mu.Lock()
	id := f.next
	f.next++
	f.subs[id] = ch
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

func (f *Fanout) Record(sessionID string, evt domain.TraceEvent) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	f.inner.Record(sessionID, evt)

	f.mu.Lock()
	for _, ch := range f.subs {
		select {
		case ch <- SessionEvent{SessionID: sessionID, Event: evt}:
		default:
			// Slow subscriber; drop rather than stall the engine.
		}
	}
	f.mu.Unlock()
}

func (f *Fanout) Get(sessionID string) ([]domain.TraceEvent, bool) {
	return f.inner.Get(sessionID)
}

func (f *Fanout) Clear() {
	f.inner.Clear()
}
