// internal/batch/executor.go

// Package batch runs independent task functions with bounded
// concurrency. It is orthogonal to the pipeline: the orchestrator's
// iteration loop stays sequential, batch serves side work such as
// running one task across several agents for comparison.
package batch

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/ensemble/internal/logging"
)

// DefaultWorkers bounds parallel execution when no count is configured.
const DefaultWorkers = 3

// Func is one unit of batch work.
type Func[T any] func(ctx context.Context) (T, error)

// Result records one function's outcome, keyed by submission index.
type Result[T any] struct {
	Index   int    `json:"index"`
	Success bool   `json:"success"`
	Value   T      `json:"result,omitempty"`
	Err     string `json:"error,omitempty"`
}

// Executor runs batches of task functions. Failed functions are
// recorded, never raised; results always come back in submission order.
type Executor[T any] struct {
	workers int
	logger  *logging.Logger
}

// NewExecutor creates an executor running at most workers functions
// concurrently. workers <= 0 falls back to DefaultWorkers.
func NewExecutor[T any](workers int) *Executor[T] {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Executor[T]{workers: workers}
}

// SetLogger attaches a logger. Optional.
func (e *Executor[T]) SetLogger(l *logging.Logger) {
	e.logger = l
}

// Parallel runs all functions with bounded concurrency. Each function
// gets its own timeout when timeout > 0. A failure never blocks the
// other functions.
func (e *Executor[T]) Parallel(ctx context.Context, fns []Func[T], timeout time.Duration) []Result[T] {
	if len(fns) == 0 {
		return nil
	}

	results := make([]Result[T], len(fns))

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, fn := range fns {
		i, fn := i, fn
		g.Go(func() error {
			results[i] = e.run(ctx, i, fn, timeout)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Sequential runs functions in order. With stopOnError the batch ends
// after recording the first failure; remaining functions never run.
func (e *Executor[T]) Sequential(ctx context.Context, fns []Func[T], stopOnError bool) []Result[T] {
	results := make([]Result[T], 0, len(fns))

	for i, fn := range fns {
		if ctx.Err() != nil {
			break
		}
		res := e.run(ctx, i, fn, 0)
		results = append(results, res)
		if stopOnError && !res.Success {
			break
		}
	}

	return results
}

func (e *Executor[T]) run(ctx context.Context, i int, fn Func[T], timeout time.Duration) Result[T] {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	v, err := fn(ctx)
	if err != nil {
		if e.logger != nil {
			e.logger.Warn(ctx, "batch function failed",
				zap.Int("index", i),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err),
			)
		}
		return Result[T]{Index: i, Err: err.Error()}
	}

	if e.logger != nil {
		e.logger.Debug(ctx, "batch function completed",
			zap.Int("index", i),
			zap.Duration("duration", time.Since(start)),
		)
	}
	return Result[T]{Index: i, Success: true, Value: v}
}
