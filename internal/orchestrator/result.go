// internal/orchestrator/result.go
package orchestrator

import (
	"time"

	"github.com/fyrsmithlabs/ensemble/internal/workflow"
)

// IterationRecord is the history of one pipeline pass. Appended to the
// run's history as each iteration completes, never mutated afterwards.
type IterationRecord struct {
	// Iteration is the 1-based pass number.
	Iteration int `json:"iteration"`

	// Steps holds one outcome per executed step, in pipeline order.
	Steps []workflow.StepOutcome `json:"steps"`

	// FinalOutput is the output of the last step in this pass that
	// produced a response.
	FinalOutput string `json:"final_output,omitempty"`
}

// RunResult is the aggregate outcome of one ExecuteTask call. Produced
// even when every step failed; callers branch on Success.
type RunResult struct {
	RunID       string            `json:"run_id"`
	Task        string            `json:"task"`
	Workflow    string            `json:"workflow"`
	Iterations  []IterationRecord `json:"iterations"`
	FinalOutput string            `json:"final_output,omitempty"`
	Success     bool              `json:"success"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt time.Time         `json:"completed_at"`
}

// Duration returns the wall-clock time the run took.
func (r *RunResult) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}
