// Package validate rejects unsafe or malformed user input before any
// external process is spawned.
package validate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Maximum input lengths.
const (
	MaxTaskLength         = 10000
	MaxWorkflowNameLength = 100
	MaxAgentNameLength    = 50
	MaxFilePathLength     = 4096
)

// namePattern allows alphanumeric, hyphen, underscore.
var namePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// dangerousPatterns match shell constructs that must never appear in a
// task description handed to an agent.
var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)rm\s+-rf`),
	regexp.MustCompile(`(?i)del\s+/[FS]`),
	regexp.MustCompile(`(?i)format\s+[A-Z]:`),
	regexp.MustCompile(`(?i)>\s*/dev/`),
	regexp.MustCompile(`(?i)curl.*\|\s*bash`),
	regexp.MustCompile(`(?i)wget.*\|\s*sh`),
}

// ValidationError reports rejected input with the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Code returns the stable error code for this error kind.
func (e *ValidationError) Code() string {
	return "VALIDATION_ERROR"
}

// Validator checks user input against configured limits.
type Validator struct {
	maxTaskLength   int
	allowedCommands []string
}

// New creates a validator. maxTaskLength <= 0 falls back to
// MaxTaskLength. An empty allowedCommands list permits any command.
func New(maxTaskLength int, allowedCommands []string) *Validator {
	if maxTaskLength <= 0 {
		maxTaskLength = MaxTaskLength
	}
	return &Validator{
		maxTaskLength:   maxTaskLength,
		allowedCommands: allowedCommands,
	}
}

// ValidateTask checks and trims a task description.
func (v *Validator) ValidateTask(task string) (string, error) {
	trimmed := strings.TrimSpace(task)
	if trimmed == "" {
		return "", &ValidationError{Field: "task", Message: "task description cannot be empty"}
	}
	if len(task) > v.maxTaskLength {
		return "", &ValidationError{
			Field:   "task",
			Message: fmt.Sprintf("task description exceeds maximum length of %d", v.maxTaskLength),
		}
	}
	for _, re := range dangerousPatterns {
		if re.MatchString(task) {
			return "", &ValidationError{
				Field:   "task",
				Message: fmt.Sprintf("task contains potentially dangerous pattern: %s", re.String()),
			}
		}
	}
	return trimmed, nil
}

// ValidateWorkflowName checks a workflow name.
func (v *Validator) ValidateWorkflowName(name string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "workflow", Message: "workflow name cannot be empty"}
	}
	if len(name) > MaxWorkflowNameLength {
		return &ValidationError{
			Field:   "workflow",
			Message: fmt.Sprintf("workflow name exceeds maximum length of %d", MaxWorkflowNameLength),
		}
	}
	if !namePattern.MatchString(name) {
		return &ValidationError{
			Field:   "workflow",
			Message: "workflow name can only contain letters, numbers, underscores, and hyphens",
		}
	}
	return nil
}

// ValidateAgentName checks an agent name.
func (v *Validator) ValidateAgentName(name string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "agent", Message: "agent name cannot be empty"}
	}
	if len(name) > MaxAgentNameLength {
		return &ValidationError{
			Field:   "agent",
			Message: fmt.Sprintf("agent name exceeds maximum length of %d", MaxAgentNameLength),
		}
	}
	if !namePattern.MatchString(name) {
		return &ValidationError{
			Field:   "agent",
			Message: "agent name can only contain letters, numbers, underscores, and hyphens",
		}
	}
	return nil
}

// ValidateFilePath checks a file path and resolves it to an absolute path.
func (v *Validator) ValidateFilePath(path string, mustExist bool) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", &ValidationError{Field: "path", Message: "file path cannot be empty"}
	}
	if len(path) > MaxFilePathLength {
		return "", &ValidationError{
			Field:   "path",
			Message: fmt.Sprintf("file path exceeds maximum length of %d", MaxFilePathLength),
		}
	}
	resolved, err := filepath.Abs(path)
	if err != nil {
		return "", &ValidationError{
			Field:   "path",
			Message: fmt.Sprintf("cannot resolve path: %v", err),
		}
	}
	if mustExist {
		if _, err := os.Stat(resolved); err != nil {
			return "", &ValidationError{
				Field:   "path",
				Message: fmt.Sprintf("file does not exist: %s", path),
			}
		}
	}
	return resolved, nil
}

// ValidateCommand checks a command against the configured allowlist.
func (v *Validator) ValidateCommand(command string) error {
	if strings.TrimSpace(command) == "" {
		return &ValidationError{Field: "command", Message: "command cannot be empty"}
	}
	if len(v.allowedCommands) == 0 {
		return nil
	}
	for _, allowed := range v.allowedCommands {
		if command == allowed {
			return nil
		}
	}
	return &ValidationError{
		Field:   "command",
		Message: fmt.Sprintf("command %q is not in allowed list: %v", command, v.allowedCommands),
	}
}
