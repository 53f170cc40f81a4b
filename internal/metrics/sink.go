// internal/metrics/sink.go
package metrics

import (
	"context"

	"github.com/fyrsmithlabs/ensemble/internal/batch"
	"github.com/fyrsmithlabs/ensemble/internal/events"
)

// Sink feeds orchestration events into the Prometheus instruments.
// Safe for concurrent use; Publish never blocks.
type Sink struct {
	m *Metrics
}

var _ events.Sink = (*Sink)(nil)

// NewSink creates a sink over the process-global instruments.
func NewSink() *Sink {
	return &Sink{m: NewMetrics()}
}

// Publish updates the instruments matching the event kind. Unknown
// kinds are dropped.
func (s *Sink) Publish(_ context.Context, ev events.Event) {
	switch ev.Kind {
	case events.KindRunCompleted:
		s.m.RecordRun(ev.Workflow, ev.Success, ev.Duration.Seconds(), ev.Iteration)
	case events.KindStepCompleted:
		s.m.RecordStep(ev.Agent, ev.Role, ev.Success, ev.Duration.Seconds())
	case events.KindRetryAttempt:
		s.m.RecordRetry(ev.Detail)
	case events.KindBreakerState:
		s.m.RecordBreakerTransition(ev.Agent, ev.Detail)
	case events.KindRateLimited:
		s.m.RecordRateLimited(ev.Detail)
	case events.KindTaskStarted:
		s.m.RecordTaskStarted()
	case events.KindTaskCompleted:
		s.m.RecordTaskFinished(taskStatus(ev))
	}
}

func taskStatus(ev events.Event) string {
	switch {
	case ev.Success:
		return string(batch.StatusCompleted)
	case ev.Err == string(batch.StatusCancelled):
		return string(batch.StatusCancelled)
	default:
		return string(batch.StatusFailed)
	}
}
