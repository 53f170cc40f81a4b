// internal/events/log.go
package events

import (
	"context"

	"github.com/fyrsmithlabs/ensemble/internal/logging"
	"go.uber.org/zap"
)

// LogSink writes each event as a structured log entry.
type LogSink struct {
	logger *logging.Logger
}

var _ Sink = (*LogSink)(nil)

// NewLogSink creates a sink logging through logger under the "events" name.
func NewLogSink(logger *logging.Logger) *LogSink {
	return &LogSink{logger: logger.Named("events")}
}

// Publish logs the event at debug level, or warn when it carries an error.
func (s *LogSink) Publish(ctx context.Context, ev Event) {
	fields := []zap.Field{
		zap.String("kind", string(ev.Kind)),
	}
	if ev.RunID != "" {
		fields = append(fields, zap.String("run_id", ev.RunID))
	}
	if ev.Workflow != "" {
		fields = append(fields, zap.String("workflow", ev.Workflow))
	}
	if ev.Agent != "" {
		fields = append(fields, zap.String("agent", ev.Agent))
	}
	if ev.Role != "" {
		fields = append(fields, zap.String("role", ev.Role))
	}
	if ev.Iteration > 0 {
		fields = append(fields, zap.Int("iteration", ev.Iteration))
	}
	if ev.Duration > 0 {
		fields = append(fields, zap.Duration("duration", ev.Duration))
	}
	if ev.Detail != "" {
		fields = append(fields, zap.String("detail", ev.Detail))
	}

	if ev.Err != "" {
		fields = append(fields, zap.String("error", ev.Err))
		s.logger.Warn(ctx, "event", fields...)
		return
	}
	s.logger.Debug(ctx, "event", fields...)
}
