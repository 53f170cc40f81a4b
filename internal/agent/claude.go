// internal/agent/claude.go
package agent

import (
	"context"
	"strings"

	"github.com/fyrsmithlabs/ensemble/internal/config"
)

// Claude adapts the Claude Code CLI. It runs in argument mode with
// --print, tracks workspace file changes, and understands the refine
// role: review feedback and the current implementation are folded into
// the prompt.
type Claude struct {
	base
}

func (a *Claude) Run(ctx context.Context, task TaskRequest) (*Response, error) {
	resp, err := a.deliver(ctx, claudePrompt(task), task)
	if err != nil {
		return nil, err
	}
	if resp.Success {
		resp.Suggestions = extractSuggestions(resp.Output)
	}
	return resp, nil
}

func claudePrompt(task TaskRequest) string {
	var parts []string

	if task.Role == config.RoleRefine {
		parts = append(parts,
			"You are refining code based on review feedback.",
			"\nTask: "+task.Description,
		)
		if task.Feedback != "" {
			parts = append(parts, "\n\nCode Review Feedback:", task.Feedback)
		}
		if task.Implementation != "" {
			parts = append(parts, "\n\nCurrent Implementation:", task.Implementation)
		}
		parts = append(parts,
			"\n\nPlease implement the suggested improvements while maintaining code functionality.",
			"Focus on SOLID principles, clean code, and best practices.",
		)
	} else {
		parts = append(parts, "Task: "+task.Description)
	}

	parts = append(parts, "\n\nPlease provide clear, well-documented code with proper error handling.")
	return strings.Join(parts, "\n")
}

// extractSuggestions pulls dashed list items that follow a line
// mentioning suggestions or recommendations. A blank line ends the
// list.
func extractSuggestions(output string) []string {
	var suggestions []string
	collecting := false

	for _, line := range strings.Split(output, "\n") {
		lower := strings.ToLower(line)
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.Contains(lower, "suggestion") || strings.Contains(lower, "recommendation"):
			collecting = true
		case collecting && strings.HasPrefix(trimmed, "-"):
			suggestions = append(suggestions, strings.TrimSpace(trimmed[1:]))
		case collecting && trimmed == "":
			collecting = false
		}
	}
	return suggestions
}
