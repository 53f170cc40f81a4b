// internal/agent/errors.go
package agent

import (
	"fmt"
	"time"
)

// NotFoundError reports a request for an agent that is not registered
// or not currently usable.
type NotFoundError struct {
	Agent string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Agent '%s' is not available", e.Agent)
}

// Code returns the stable error code.
func (e *NotFoundError) Code() string { return "AGENT_NOT_FOUND" }

// ExecutionError reports a machinery fault while running an agent, as
// opposed to the tool itself exiting non-zero.
type ExecutionError struct {
	Agent string
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("Agent '%s' execution failed: %v", e.Agent, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Code returns the stable error code.
func (e *ExecutionError) Code() string { return "AGENT_EXECUTION_ERROR" }

// TimeoutError reports that an agent run exhausted its time budget,
// including across retries.
type TimeoutError struct {
	Agent   string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("Agent '%s' timed out after %g seconds", e.Agent, e.Timeout.Seconds())
}

// Code returns the stable error code.
func (e *TimeoutError) Code() string { return "AGENT_TIMEOUT" }
