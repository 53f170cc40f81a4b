// internal/workflow/engine.go
package workflow

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ensemble/internal/config"
	"github.com/fyrsmithlabs/ensemble/internal/events"
	"github.com/fyrsmithlabs/ensemble/internal/logging"
)

// Progress is a point-in-time view of a pass.
type Progress struct {
	CurrentStep int     `json:"current_step"`
	TotalSteps  int     `json:"total_steps"`
	Percent     float64 `json:"progress_percent"`
}

// Engine executes a configured step sequence, once per call. Safe for
// concurrent Progress inspection while a pass runs.
type Engine struct {
	mu      sync.Mutex
	steps   []Step
	current int

	logger *logging.Logger
	sink   events.Sink
}

// NewEngine creates an engine with no steps configured.
func NewEngine(logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.FromContext(context.Background())
	}
	return &Engine{logger: logger}
}

// SetSink attaches an event sink notified at step boundaries.
func (e *Engine) SetSink(sink events.Sink) {
	e.sink = sink
}

// SetSteps replaces the step sequence and resets progress.
func (e *Engine) SetSteps(steps []Step) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.steps = steps
	e.current = 0
	e.logger.Info(context.Background(), "workflow configured", zap.Int("steps", len(steps)))
}

// Progress returns the current pass position.
func (e *Engine) Progress() Progress {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := Progress{CurrentStep: e.current, TotalSteps: len(e.steps)}
	if len(e.steps) > 0 {
		p.Percent = float64(e.current) / float64(len(e.steps)) * 100
	}
	return p
}

// Execute runs every step in order against rc, recording one outcome
// per step. A step failure is folded into its outcome and the pass
// continues. Once ctx is cancelled the remaining steps are recorded as
// failed without invoking their agents.
func (e *Engine) Execute(ctx context.Context, rc *RunContext) []StepOutcome {
	e.mu.Lock()
	steps := e.steps
	e.mu.Unlock()

	outcomes := make([]StepOutcome, 0, len(steps))

	for i, step := range steps {
		e.setCurrent(i)
		name := step.Agent.Name()

		if err := ctx.Err(); err != nil {
			outcomes = append(outcomes, StepOutcome{Agent: name, Role: step.Role, Error: err.Error()})
			continue
		}

		e.logger.Info(ctx, "executing step",
			zap.Int("step", i+1),
			zap.Int("total", len(steps)),
			zap.String("agent", name),
			zap.String("role", step.Role),
		)
		events.Emit(ctx, e.sink, events.Event{
			Kind:  events.KindStepStarted,
			Agent: name,
			Role:  step.Role,
		})

		outcome, err := step.Execute(ctx, rc)
		if err != nil {
			e.logger.Warn(ctx, "step failed",
				zap.String("agent", name),
				zap.String("role", step.Role),
				zap.Error(err),
			)
		} else {
			e.fold(rc, step.Role, outcome)
			if outcome.Success {
				e.logger.Info(ctx, "step completed",
					zap.String("agent", name),
					zap.Int("suggestions", len(outcome.Suggestions)),
				)
			} else {
				e.logger.Warn(ctx, "step reported failure",
					zap.String("agent", name),
					zap.String("error", outcome.Error),
				)
			}
		}

		events.Emit(ctx, e.sink, events.Event{
			Kind:     events.KindStepCompleted,
			Agent:    name,
			Role:     step.Role,
			Success:  outcome.Success,
			Duration: outcome.Duration,
			Err:      outcome.Error,
		})

		outcomes = append(outcomes, outcome)
	}

	return outcomes
}

// fold updates the rolling context with a step's response so the next
// step can consume it. Role-specific folds: review feeds feedback and
// suggestions, implement feeds the implementation and its files.
func (e *Engine) fold(rc *RunContext, role string, outcome StepOutcome) {
	rc.PreviousOutput = outcome.Output
	rc.PreviousAgent = outcome.Agent

	switch role {
	case config.RoleReview:
		rc.Feedback = outcome.Output
		rc.Suggestions = outcome.Suggestions
	case config.RoleImplement:
		rc.Implementation = outcome.Output
		rc.Files = outcome.FilesModified
	}
}

func (e *Engine) setCurrent(i int) {
	e.mu.Lock()
	e.current = i
	e.mu.Unlock()
}
