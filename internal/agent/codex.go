// internal/agent/codex.go
package agent

import (
	"context"
	"strings"
)

// Codex adapts the OpenAI Codex CLI, used for initial implementation.
// It runs "codex exec" in argument mode with workspace tracking; files
// it writes are picked up by the tracker, not parsed from output.
type Codex struct {
	base
}

func (a *Codex) Run(ctx context.Context, task TaskRequest) (*Response, error) {
	return a.deliver(ctx, codexPrompt(task), task)
}

func codexPrompt(task TaskRequest) string {
	parts := []string{
		"Task: " + task.Description,
		"\n\nRequirements:",
		"- Write clean, production-ready code",
		"- Include comprehensive error handling",
		"- Add docstrings and comments",
		"- Follow best practices and design patterns",
		"- Ensure code is testable",
		"\n\nPlease implement a complete, working solution.",
	}
	return strings.Join(parts, "\n")
}
