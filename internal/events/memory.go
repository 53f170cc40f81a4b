// internal/events/memory.go
package events

import (
	"context"
	"sync"
)

// MemorySink captures events in memory and exposes deterministic snapshots.
// Used by tests and by the compare command to collect per-run telemetry.
type MemorySink struct {
	mu     sync.RWMutex
	events []Event
}

var _ Sink = (*MemorySink)(nil)

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{events: make([]Event, 0)}
}

// Publish appends the event to the sink.
func (s *MemorySink) Publish(_ context.Context, ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

// Events returns a copy of all captured events.
func (s *MemorySink) Events() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// ByKind returns a copy of captured events matching kind.
func (s *MemorySink) ByKind(kind Kind) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Event, 0)
	for _, ev := range s.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

// Reset discards all captured events.
func (s *MemorySink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = s.events[:0]
}
