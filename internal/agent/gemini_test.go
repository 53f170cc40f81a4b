package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGeminiPrompt(t *testing.T) {
	prompt := geminiPrompt(TaskRequest{
		Description:    "Review the implementation of: add a parser",
		Implementation: "func Parse() {}",
	})

	assert.Contains(t, prompt, "You are an expert code reviewer.")
	assert.Contains(t, prompt, "Task: Review the implementation of: add a parser")
	assert.Contains(t, prompt, "Code to Review:")
	assert.Contains(t, prompt, "func Parse() {}")
	assert.Contains(t, prompt, "**SOLID Principles:**")
	assert.Contains(t, prompt, "Prioritize issues by severity: Critical, High, Medium, Low.")
}

func TestGeminiPrompt_NoImplementation(t *testing.T) {
	prompt := geminiPrompt(TaskRequest{Description: "review it"})

	assert.NotContains(t, prompt, "Code to Review:")
}

func TestParseReviewFeedback(t *testing.T) {
	output := `Overall the code is reasonable.

1. Split the parser into smaller functions
2. Add table-driven tests

Other notes:
- rename the receiver
* drop the global state
• handle EOF explicitly

Critical: unchecked error on line 40
This sentence is prose and must not be collected.`

	got := parseReviewFeedback(output)

	assert.Equal(t, []string{
		"1. Split the parser into smaller functions",
		"2. Add table-driven tests",
		"rename the receiver",
		"drop the global state",
		"handle EOF explicitly",
		"Critical: unchecked error on line 40",
	}, got)
}

func TestParseReviewFeedback_Empty(t *testing.T) {
	assert.Empty(t, parseReviewFeedback("looks good to me"))
}

func TestMentionedFiles(t *testing.T) {
	output := "Issues found in `parser.go` and `lexer.go`. See also `notes.txt` and `parser.go` again."

	got := mentionedFiles(output, []string{"cmd/main.go"})

	assert.Equal(t, []string{"cmd/main.go", "lexer.go", "parser.go"}, got)
}

func TestMentionedFiles_NoMentions(t *testing.T) {
	assert.Empty(t, mentionedFiles("no code files here", nil))
}
