// internal/cliexec/retry.go
package cliexec

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fyrsmithlabs/ensemble/internal/events"
	"github.com/fyrsmithlabs/ensemble/internal/logging"
	"go.uber.org/zap"
)

// Retry defaults.
const (
	DefaultMaxRetries = 3
	DefaultBackoff    = time.Second
)

// nodeIncompatMarkers identify Node.js runtime incompatibility in tool
// stderr; old runtimes miss globals the CLI bundles expect.
var nodeIncompatMarkers = []string{"File is not defined", "ReferenceError"}

// remediationErrorLimit caps how much raw stderr the remediation hint
// carries.
const remediationErrorLimit = 200

// Coordinator retries failed runs with exponential backoff, switching
// delivery strategy on each attempt. External CLI tools vary in which
// interaction mode they support, so retrying the same strategy wastes
// the attempt budget.
type Coordinator struct {
	runner     *Runner
	maxRetries int
	backoff    time.Duration
	logger     *logging.Logger
	sink       events.Sink
}

// NewCoordinator wraps runner with retry behavior. Non-positive
// arguments fall back to the defaults.
func NewCoordinator(runner *Runner, maxRetries int, backoff time.Duration) *Coordinator {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	return &Coordinator{
		runner:     runner,
		maxRetries: maxRetries,
		backoff:    backoff,
		logger:     logging.FromContext(context.Background()),
	}
}

// SetLogger replaces the coordinator's logger.
func (c *Coordinator) SetLogger(logger *logging.Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// SetSink attaches an event sink notified on each retry attempt.
func (c *Coordinator) SetSink(sink events.Sink) {
	c.sink = sink
}

// fallbackStrategies returns the strategy ladder seeded by preferred.
func fallbackStrategies(preferred Strategy) []Strategy {
	switch preferred {
	case StrategyStdin:
		return []Strategy{StrategyStdin, StrategyArg, StrategyHeredoc}
	case StrategyArg, "":
		return []Strategy{StrategyArg, StrategyStdin, StrategyHeredoc}
	default:
		return []Strategy{preferred, StrategyStdin, StrategyArg}
	}
}

// RunWithRetry executes the request up to maxRetries times. Attempt i
// uses fallback strategy min(i, len-1); attempts after the first sleep
// backoff*2^(i-1). The final failure summarizes the last error, with a
// remediation hint when it matches a Node.js incompatibility signature.
func (c *Coordinator) RunWithRetry(ctx context.Context, req Request) (*Result, error) {
	fallbacks := fallbackStrategies(req.Strategy)
	lastError := ""
	lastStrategy := fallbacks[0]

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			sleep := c.backoff * (1 << (attempt - 1))
			c.logger.Info(ctx, "retrying tool run",
				zap.String("command", c.runner.Command()),
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", c.maxRetries),
				zap.Duration("sleep", sleep),
			)
			select {
			case <-time.After(sleep):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		attemptReq := req
		attemptReq.Strategy = fallbacks[min(attempt, len(fallbacks)-1)]
		lastStrategy = attemptReq.Strategy

		if attempt > 0 {
			events.Emit(ctx, c.sink, events.Event{
				Kind:      events.KindRetryAttempt,
				Iteration: attempt + 1,
				Detail:    string(attemptReq.Strategy),
			})
		}

		res, err := c.runner.Run(ctx, attemptReq)
		if err != nil {
			return nil, err
		}
		if res.Success {
			return res, nil
		}

		if hasNodeIncompatSignature(res.Stderr) {
			c.logger.Warn(ctx, "node.js compatibility issue detected",
				zap.String("command", c.runner.Command()))
			if attempt == c.maxRetries-1 {
				lastError = remediationHint(res.Stderr)
				break
			}
		}
		lastError = res.Stderr
	}

	return &Result{
		Success:  false,
		Stderr:   fmt.Sprintf("Failed after %d attempts. Last error: %s", c.maxRetries, lastError),
		Strategy: lastStrategy,
	}, nil
}

// RunInWorkspace runs the request inside req.WorkingDir (created if
// absent) and reports files the tool created or modified.
func (c *Coordinator) RunInWorkspace(ctx context.Context, req Request) (*Result, error) {
	if req.WorkingDir == "" {
		return nil, &ResourceError{Op: "resolve workspace", Err: fmt.Errorf("working directory not set")}
	}
	if err := os.MkdirAll(req.WorkingDir, 0o755); err != nil {
		return nil, &ResourceError{Op: "create workspace", Path: req.WorkingDir, Err: err}
	}

	tracker := NewTracker(req.WorkingDir)
	before, err := tracker.Snapshot()
	if err != nil {
		return nil, err
	}

	res, err := c.RunWithRetry(ctx, req)
	if err != nil {
		return nil, err
	}

	modified, err := tracker.Modified(before)
	if err != nil {
		return nil, err
	}
	res.ModifiedFiles = modified
	return res, nil
}

// hasNodeIncompatSignature reports whether stderr matches a known
// Node.js runtime incompatibility.
func hasNodeIncompatSignature(stderr string) bool {
	for _, marker := range nodeIncompatMarkers {
		if strings.Contains(stderr, marker) {
			return true
		}
	}
	return false
}

// remediationHint replaces raw incompatibility noise with an actionable
// message, keeping a truncated tail of the original error.
func remediationHint(stderr string) string {
	trimmed := stderr
	if len(trimmed) > remediationErrorLimit {
		trimmed = trimmed[:remediationErrorLimit] + "..."
	}
	return "Node.js compatibility error. Try upgrading Node.js to v20+: " +
		"nvm install 20 && nvm use 20\nOriginal error: " + trimmed
}
