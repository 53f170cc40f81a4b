// internal/workflow/workflow.go

// Package workflow sequences agent steps into pipeline passes.
//
// A Step binds one agent to a role; the Engine executes steps in order,
// folding each output into the context the next step consumes. Step
// failures are recorded, never raised: one bad step cannot abort the
// rest of the pass.
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/ensemble/internal/agent"
	"github.com/fyrsmithlabs/ensemble/internal/config"
)

// RunContext is the mutable state threaded through one run. The
// orchestrator owns it; the engine updates it between steps.
type RunContext struct {
	Task          string
	Iteration     int
	MaxIterations int
	WorkingDir    string

	// Rolling context from earlier steps.
	PreviousOutput string
	PreviousAgent  string
	Feedback       string
	Suggestions    []string
	Implementation string
	Files          []string
}

// StepOutcome is the recorded result of one step. Failures carry their
// error text here instead of propagating.
type StepOutcome struct {
	Agent         string        `json:"agent"`
	Role          string        `json:"role"`
	Success       bool          `json:"success"`
	Output        string        `json:"output,omitempty"`
	Error         string        `json:"error,omitempty"`
	FilesModified []string      `json:"files_modified,omitempty"`
	Suggestions   []string      `json:"suggestions,omitempty"`
	Duration      time.Duration `json:"duration"`
}

// Step binds an agent to a pipeline role. Steps are stateless across
// iterations and never mutate the configuration they were built from.
type Step struct {
	Agent agent.Agent
	Role  string
}

// Execute runs this step against the current context. The outcome is
// always populated; a non-nil error reports an agent-level fault the
// caller should record without folding the (empty) output into context.
func (s Step) Execute(ctx context.Context, rc *RunContext) (StepOutcome, error) {
	start := time.Now()
	outcome := StepOutcome{Agent: s.Agent.Name(), Role: s.Role}

	resp, err := s.Agent.Run(ctx, agent.TaskRequest{
		Description:    taskDescription(s.Role, rc.Task),
		Role:           s.Role,
		PreviousOutput: rc.PreviousOutput,
		Implementation: rc.Implementation,
		Feedback:       rc.Feedback,
		Files:          rc.Files,
		WorkingDir:     rc.WorkingDir,
	})
	outcome.Duration = time.Since(start)

	if err != nil {
		outcome.Error = err.Error()
		return outcome, err
	}

	outcome.Success = resp.Success
	outcome.Output = resp.Output
	outcome.Error = resp.Error
	outcome.FilesModified = resp.FilesModified
	outcome.Suggestions = resp.Suggestions
	return outcome, nil
}

// taskDescription renders the role-specific task text.
func taskDescription(role, task string) string {
	switch role {
	case config.RoleImplement:
		return "Implement the following: " + task
	case config.RoleReview:
		return "Review the implementation of: " + task
	case config.RoleRefine:
		return "Refine the implementation based on review feedback for: " + task
	case config.RoleTest:
		return "Write tests for: " + task
	case config.RoleDocument:
		return "Document the implementation of: " + task
	}
	return task
}

// Error reports a workflow-level failure, such as a definition that
// resolves to zero usable steps.
type Error struct {
	Workflow string
	Message  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("Workflow '%s' failed: %s", e.Workflow, e.Message)
}

// Code returns the stable error code.
func (e *Error) Code() string { return "WORKFLOW_ERROR" }
