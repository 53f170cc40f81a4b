// internal/agent/agent.go

// Package agent wraps external AI CLI tools behind a uniform
// task-execution contract.
//
// The adapter set is closed: claude, codex, gemini, and copilot are
// selected from configuration at load time by the registry. Adapters
// own prompt construction and response parsing for their tool; prompt
// delivery, retries, and workspace tracking are delegated to the
// cliexec coordinator.
package agent

import (
	"context"
)

// TaskRequest is one task invocation with its accumulated pipeline
// context. Fields beyond Description are optional and folded into the
// prompt when the adapter's role calls for them.
type TaskRequest struct {
	// Description is the role-templated task text built by the workflow
	// step ("Implement the following: ...").
	Description string
	// Role the invoking step plays (implement, review, refine, test,
	// document). Adapters may shape the prompt per role.
	Role string
	// PreviousOutput is the previous step's stdout.
	PreviousOutput string
	// Implementation is the output of the last implement step.
	Implementation string
	// Feedback is the output of the last review step.
	Feedback string
	// Files modified so far in this run.
	Files []string
	// WorkingDir is where the tool runs and where file changes are
	// tracked for workspace-capable agents.
	WorkingDir string
}

// Response is the structured result of one agent invocation. Tool
// failures are reported here with Success=false, not as Go errors.
type Response struct {
	Success       bool              `json:"success"`
	Output        string            `json:"output"`
	Error         string            `json:"error,omitempty"`
	FilesModified []string          `json:"files_modified,omitempty"`
	Suggestions   []string          `json:"suggestions,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Agent is a capability-bearing handle over one external CLI tool.
type Agent interface {
	// Name is the configured agent name.
	Name() string
	// Kind identifies the adapter implementation.
	Kind() string
	// Command is the executable the agent launches.
	Command() string
	// Available reports whether the tool is enabled and on PATH.
	// Results are cached briefly.
	Available() bool
	// Run executes one task. The error return is reserved for typed
	// agent errors (not found, timeout, execution machinery), breaker
	// rejections, and caller cancellation; routine tool failure comes
	// back as a Response with Success=false.
	Run(ctx context.Context, task TaskRequest) (*Response, error)
}
