// internal/agent/gemini.go
package agent

import (
	"context"
	"regexp"
	"sort"
	"strings"
)

// Gemini adapts the Google Gemini CLI for code review. It does not
// modify files itself; its structured feedback (numbered, bulleted, or
// severity-tagged lines) becomes the suggestion list, and file names it
// mentions in backticks are surfaced as the files under review.
type Gemini struct {
	base
}

func (a *Gemini) Run(ctx context.Context, task TaskRequest) (*Response, error) {
	resp, err := a.deliver(ctx, geminiPrompt(task), task)
	if err != nil {
		return nil, err
	}
	if resp.Success {
		resp.Suggestions = parseReviewFeedback(resp.Output)
		if files := mentionedFiles(resp.Output, task.Files); len(files) > 0 {
			resp.FilesModified = files
		}
	}
	return resp, nil
}

func geminiPrompt(task TaskRequest) string {
	parts := []string{
		"You are an expert code reviewer. Please analyze the following code.",
		"\nTask: " + task.Description,
	}

	if task.Implementation != "" {
		parts = append(parts, "\n\nCode to Review:", "```", task.Implementation, "```")
	}

	parts = append(parts,
		"\n\nPlease review this code focusing on:",
		"\n**SOLID Principles:**",
		"- Single Responsibility Principle",
		"- Open/Closed Principle",
		"- Liskov Substitution Principle",
		"- Interface Segregation Principle",
		"- Dependency Inversion Principle",
		"\n**Code Quality:**",
		"- Design patterns and architectural decisions",
		"- Error handling and edge cases",
		"- Performance considerations",
		"- Security vulnerabilities",
		"- Code readability and maintainability",
		"- Test coverage and testability",
		"\n**Best Practices:**",
		"- Naming conventions",
		"- Documentation and comments",
		"- Code organization",
		"- DRY (Don't Repeat Yourself)",
		"- KISS (Keep It Simple, Stupid)",
		"\n\nProvide specific, actionable feedback with examples.",
		"Prioritize issues by severity: Critical, High, Medium, Low.",
	)

	return strings.Join(parts, "\n")
}

var (
	numberedItem = regexp.MustCompile(`^\d+\.`)
	bulletedItem = regexp.MustCompile(`^[-*•]`)
	fileMention  = regexp.MustCompile("`([^`]+\\.(?:py|js|ts|java|go|rs|cpp|h))`")
)

var severityMarkers = []string{"critical:", "high:", "medium:", "low:"}

// parseReviewFeedback collects numbered items, bulleted items (marker
// stripped), and severity-tagged lines from review output.
func parseReviewFeedback(output string) []string {
	var suggestions []string

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case numberedItem.MatchString(line):
			suggestions = append(suggestions, line)
		case bulletedItem.MatchString(line):
			suggestions = append(suggestions, strings.TrimSpace(trimBullet(line)))
		case hasSeverityMarker(line):
			suggestions = append(suggestions, line)
		}
	}
	return suggestions
}

// trimBullet drops the leading list marker, which may be multi-byte.
func trimBullet(line string) string {
	for _, marker := range []string{"-", "*", "•"} {
		if strings.HasPrefix(line, marker) {
			return line[len(marker):]
		}
	}
	return line
}

func hasSeverityMarker(line string) bool {
	lower := strings.ToLower(line)
	for _, marker := range severityMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// mentionedFiles extracts backtick-quoted source file names from the
// review, merged with files already known from context. Sorted for
// stable output.
func mentionedFiles(output string, contextFiles []string) []string {
	seen := make(map[string]bool)
	for _, m := range fileMention.FindAllStringSubmatch(output, -1) {
		seen[m[1]] = true
	}
	for _, f := range contextFiles {
		seen[f] = true
	}

	files := make([]string, 0, len(seen))
	for f := range seen {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}
