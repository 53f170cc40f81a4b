// Package events defines the orchestration event stream: a small typed
// event model plus pluggable sinks (memory, log, metrics). Publishing is
// best-effort; sinks must not block the run loop.
package events

import (
	"context"
	"time"

	"github.com/fyrsmithlabs/ensemble/internal/logging"
)

// Kind identifies the type of orchestration event.
type Kind string

const (
	KindRunStarted    Kind = "run_started"
	KindRunCompleted  Kind = "run_completed"
	KindStepStarted   Kind = "step_started"
	KindStepCompleted Kind = "step_completed"
	KindTaskStarted   Kind = "task_started"
	KindTaskCompleted Kind = "task_completed"
	KindRetryAttempt  Kind = "retry_attempt"
	KindBreakerState  Kind = "breaker_state"
	KindRateLimited   Kind = "rate_limited"
)

// Event is a typed event emitted during a run.
type Event struct {
	Kind      Kind          `json:"kind"`
	Timestamp time.Time     `json:"timestamp"`
	RunID     string        `json:"run_id,omitempty"`
	Workflow  string        `json:"workflow,omitempty"`
	Agent     string        `json:"agent,omitempty"`
	Role      string        `json:"role,omitempty"`
	Iteration int           `json:"iteration,omitempty"`
	Success   bool          `json:"success,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
	Err       string        `json:"error,omitempty"`
	Detail    string        `json:"detail,omitempty"`
}

// Sink receives orchestration events. Implementations must be safe for
// concurrent use and must not block.
type Sink interface {
	Publish(ctx context.Context, ev Event)
}

// Emit publishes ev to sink, stamping Timestamp and RunID from context
// when unset. A nil sink drops the event.
func Emit(ctx context.Context, sink Sink, ev Event) {
	if sink == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	if ev.RunID == "" {
		ev.RunID = logging.RunIDFromContext(ctx)
	}
	sink.Publish(ctx, ev)
}

// MultiSink fans out each event to every sink in order.
type MultiSink []Sink

func (m MultiSink) Publish(ctx context.Context, ev Event) {
	for _, s := range m {
		if s != nil {
			s.Publish(ctx, ev)
		}
	}
}
