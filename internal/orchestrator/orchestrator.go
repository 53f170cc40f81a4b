// internal/orchestrator/orchestrator.go
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ensemble/internal/agent"
	"github.com/fyrsmithlabs/ensemble/internal/config"
	"github.com/fyrsmithlabs/ensemble/internal/events"
	"github.com/fyrsmithlabs/ensemble/internal/logging"
	"github.com/fyrsmithlabs/ensemble/internal/resilience"
	"github.com/fyrsmithlabs/ensemble/internal/validate"
	"github.com/fyrsmithlabs/ensemble/internal/workflow"
)

// rateLimitKey is the shared bucket for task submissions. All
// ExecuteTask calls on one orchestrator draw from the same budget.
const rateLimitKey = "tasks"

// AgentSource resolves configured agents by name. *agent.Registry
// implements it.
type AgentSource interface {
	Get(name string) (agent.Agent, error)
	AvailableNames() []string
}

// Options configures optional orchestrator collaborators.
type Options struct {
	Logger *logging.Logger
	Sink   events.Sink

	// Limiter guards task submission. Built from the security config
	// when nil.
	Limiter *resilience.RateLimiter
}

// Orchestrator runs tasks through configured workflows. Safe for use
// from one goroutine at a time; the workspace directory is shared state.
type Orchestrator struct {
	cfg       *config.Config
	agents    AgentSource
	engine    *workflow.Engine
	validator *validate.Validator
	limiter   *resilience.RateLimiter
	logger    *logging.Logger
	sink      events.Sink
}

// New creates an orchestrator over cfg and the given agent source.
func New(cfg *config.Config, agents AgentSource, opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = logging.FromContext(context.Background())
	}

	limiter := opts.Limiter
	if limiter == nil {
		limiter = resilience.NewRateLimiter(
			cfg.Security.RateLimit,
			cfg.Security.RateWindow.Duration(),
			cfg.Security.RateCapacity,
		)
		limiter.SetSink(opts.Sink)
	}

	engine := workflow.NewEngine(logger.Named("workflow"))
	engine.SetSink(opts.Sink)

	return &Orchestrator{
		cfg:       cfg,
		agents:    agents,
		engine:    engine,
		validator: validate.New(cfg.Security.MaxTaskLength, cfg.Security.AllowedCommands),
		limiter:   limiter,
		logger:    logger,
		sink:      opts.Sink,
	}
}

// ExecuteTask runs task through the named workflow, iterating up to
// maxIterations pipeline passes. An empty workflowName selects the
// configured default; maxIterations <= 0 falls back to settings.
//
// Step and agent failures are folded into the returned RunResult. The
// error return is reserved for pre-flight rejection: invalid input,
// an unknown workflow, a workflow with no usable steps, or an exhausted
// rate limit. Cancellation mid-run returns the partial result together
// with the context error.
func (o *Orchestrator) ExecuteTask(ctx context.Context, task, workflowName string, maxIterations int) (*RunResult, error) {
	task, err := o.validator.ValidateTask(task)
	if err != nil {
		return nil, err
	}
	if workflowName == "" {
		workflowName = o.cfg.Settings.DefaultWorkflow
	}
	if err := o.limiter.CheckLimit(ctx, rateLimitKey, 1); err != nil {
		return nil, err
	}

	stepsCfg, ok := o.cfg.Workflows[workflowName]
	if !ok {
		return nil, &ConfigurationError{Message: fmt.Sprintf("Workflow '%s' not found", workflowName)}
	}

	steps := o.buildSteps(ctx, stepsCfg)
	if len(steps) == 0 {
		return nil, &workflow.Error{Workflow: workflowName, Message: "no usable steps"}
	}
	o.engine.SetSteps(steps)

	if maxIterations <= 0 {
		maxIterations = o.cfg.Settings.MaxIterations
	}

	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)

	o.logger.Info(ctx, "executing task",
		zap.String("workflow", workflowName),
		zap.Int("steps", len(steps)),
		zap.Int("max_iterations", maxIterations),
	)
	events.Emit(ctx, o.sink, events.Event{Kind: events.KindRunStarted, Workflow: workflowName})

	rc := &workflow.RunContext{
		Task:          task,
		MaxIterations: maxIterations,
		WorkingDir:    o.cfg.Directories.Workspace,
	}
	result := &RunResult{
		RunID:     runID,
		Task:      task,
		Workflow:  workflowName,
		StartedAt: time.Now(),
	}

	for i := 0; i < maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			result.CompletedAt = time.Now()
			return result, err
		}

		rc.Iteration = i
		o.logger.Info(ctx, "iteration started",
			zap.Int("iteration", i+1),
			zap.Int("max_iterations", maxIterations),
		)

		outcomes := o.engine.Execute(ctx, rc)
		result.Iterations = append(result.Iterations, IterationRecord{
			Iteration:   i + 1,
			Steps:       outcomes,
			FinalOutput: lastOutput(outcomes),
		})

		if o.shouldStop(outcomes) {
			o.logger.Info(ctx, "stopping iterations: task appears complete",
				zap.Int("iteration", i+1),
			)
			result.Success = true
			break
		}
	}

	if n := len(result.Iterations); n > 0 {
		result.FinalOutput = result.Iterations[n-1].FinalOutput
	}
	result.CompletedAt = time.Now()

	o.logger.Info(ctx, "task finished",
		zap.Bool("success", result.Success),
		zap.Int("iterations", len(result.Iterations)),
		zap.Duration("duration", result.Duration()),
	)
	events.Emit(ctx, o.sink, events.Event{
		Kind:      events.KindRunCompleted,
		Workflow:  workflowName,
		Iteration: len(result.Iterations),
		Success:   result.Success,
		Duration:  result.Duration(),
	})

	return result, nil
}

// buildSteps resolves workflow step configs against the registry.
// Unknown or unavailable agents are skipped, not substituted.
func (o *Orchestrator) buildSteps(ctx context.Context, stepsCfg []config.StepConfig) []workflow.Step {
	steps := make([]workflow.Step, 0, len(stepsCfg))
	for _, sc := range stepsCfg {
		a, err := o.agents.Get(sc.Agent)
		if err != nil {
			o.logger.Warn(ctx, "skipping step: agent not configured",
				zap.String("agent", sc.Agent),
			)
			continue
		}
		if !a.Available() {
			o.logger.Warn(ctx, "skipping step: agent not available",
				zap.String("agent", sc.Agent),
				zap.String("command", a.Command()),
			)
			continue
		}
		steps = append(steps, workflow.Step{Agent: a, Role: sc.Role})
	}
	return steps
}

// shouldStop reports whether the run is complete: every step succeeded
// and no review step asked for more changes than the suggestion
// threshold allows.
func (o *Orchestrator) shouldStop(outcomes []workflow.StepOutcome) bool {
	for _, oc := range outcomes {
		if !oc.Success {
			return false
		}
	}
	for _, oc := range outcomes {
		if oc.Role == config.RoleReview && len(oc.Suggestions) > o.cfg.Settings.MinSuggestions {
			return false
		}
	}
	return true
}

// lastOutput returns the output of the last outcome that carries a
// response. Outcomes synthesized from agent errors have no output and
// are skipped.
func lastOutput(outcomes []workflow.StepOutcome) string {
	for i := len(outcomes) - 1; i >= 0; i-- {
		if outcomes[i].Success || outcomes[i].Output != "" {
			return outcomes[i].Output
		}
	}
	return ""
}

// Progress exposes the engine's position in the current pass.
func (o *Orchestrator) Progress() workflow.Progress {
	return o.engine.Progress()
}

// AvailableAgents returns the names of configured agents whose commands
// are installed.
func (o *Orchestrator) AvailableAgents() []string {
	return o.agents.AvailableNames()
}

// Workflows returns the configured workflow names in sorted order.
func (o *Orchestrator) Workflows() []string {
	names := make([]string, 0, len(o.cfg.Workflows))
	for name := range o.cfg.Workflows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
