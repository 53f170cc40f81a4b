// internal/agent/copilot.go
package agent

import (
	"context"
	"strings"
)

// Copilot adapts the GitHub Copilot CLI. Disabled by default; when
// enabled it provides alternative suggestions rather than direct file
// modifications, so it runs without workspace tracking.
type Copilot struct {
	base
}

func (a *Copilot) Run(ctx context.Context, task TaskRequest) (*Response, error) {
	resp, err := a.deliver(ctx, copilotPrompt(task), task)
	if err != nil {
		return nil, err
	}
	if resp.Success {
		resp.Suggestions = copilotSuggestions(resp.Output)
	}
	return resp, nil
}

func copilotPrompt(task TaskRequest) string {
	parts := []string{task.Description}

	if task.PreviousOutput != "" {
		parts = append(parts, "\n\nContext:\n"+task.PreviousOutput)
	}

	return strings.Join(parts, "\n")
}

// copilotSuggestions splits output into numbered suggestion blocks.
// Output with no numbering is one suggestion.
func copilotSuggestions(output string) []string {
	var suggestions []string
	var current []string

	flush := func() {
		if len(current) > 0 {
			suggestions = append(suggestions, strings.Join(current, "\n"))
			current = nil
		}
	}

	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		if startsNumbered(trimmed) {
			flush()
			current = append(current, trimmed)
		} else if len(current) > 0 {
			current = append(current, trimmed)
		}
	}
	flush()

	if len(suggestions) == 0 {
		return []string{output}
	}
	return suggestions
}

func startsNumbered(line string) bool {
	for _, prefix := range []string{"1.", "2.", "3.", "4.", "5."} {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}
