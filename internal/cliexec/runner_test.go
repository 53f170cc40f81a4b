package cliexec

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{in: "arg", want: StrategyArg},
		{in: "stdin", want: StrategyStdin},
		{in: "pty", want: StrategyStdin},
		{in: "file", want: StrategyFile},
		{in: "heredoc", want: StrategyHeredoc},
		{in: "", want: StrategyArg},
		{in: "  ARG  ", want: StrategyArg},
		{in: "carrier-pigeon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStrategy(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unknown interaction strategy")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunner_ArgStrategy(t *testing.T) {
	r := NewRunner("echo")

	res, err := r.Run(context.Background(), Request{
		Prompt:   "hello from the orchestra",
		Strategy: StrategyArg,
		Timeout:  10 * time.Second,
	})

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Contains(t, res.Stdout, "hello from the orchestra")
	assert.Equal(t, StrategyArg, res.Strategy)
}

func TestRunner_ArgStrategy_NonZeroExit(t *testing.T) {
	r := NewRunner("false")

	res, err := r.Run(context.Background(), Request{
		Prompt:   "ignored",
		Strategy: StrategyArg,
		Timeout:  10 * time.Second,
	})

	require.NoError(t, err, "process failure is a Result, not an error")
	assert.False(t, res.Success)
	assert.Contains(t, res.Stderr, "exit status")
}

func TestRunner_ArgStrategy_MissingExecutable(t *testing.T) {
	r := NewRunner("definitely-not-installed-anywhere")

	res, err := r.Run(context.Background(), Request{
		Prompt:   "hi",
		Strategy: StrategyArg,
		Timeout:  10 * time.Second,
	})

	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Stderr)
}

func TestRunner_Timeout(t *testing.T) {
	r := NewRunner("sleep")

	start := time.Now()
	res, err := r.Run(context.Background(), Request{
		Prompt:   "10",
		Strategy: StrategyArg,
		Timeout:  time.Second,
	})
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Stderr, "timeout after 1s")
	assert.Less(t, elapsed, 3*time.Second, "kill must land near the timeout, not at process end")
}

func TestRunner_ParentContextCancellation(t *testing.T) {
	r := NewRunner("sleep")
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	_, err := r.Run(ctx, Request{
		Prompt:   "10",
		Strategy: StrategyArg,
		Timeout:  30 * time.Second,
	})

	require.ErrorIs(t, err, context.Canceled)
}

func TestRunner_HeredocStrategy(t *testing.T) {
	r := NewRunner("cat")

	res, err := r.Run(context.Background(), Request{
		Prompt:   "line one\nline two",
		Strategy: StrategyHeredoc,
		Timeout:  10 * time.Second,
	})

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "line one\nline two\n", res.Stdout)
	assert.Equal(t, StrategyHeredoc, res.Strategy)
}

func TestRunner_HeredocStrategy_NoExpansion(t *testing.T) {
	r := NewRunner("cat")

	res, err := r.Run(context.Background(), Request{
		Prompt:   "literal $HOME and $(whoami)",
		Strategy: StrategyHeredoc,
		Timeout:  10 * time.Second,
	})

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Contains(t, res.Stdout, "literal $HOME and $(whoami)")
}

func TestRunner_FileStrategy(t *testing.T) {
	// Tool reads --input and writes --output
	script := writeScript(t, `#!/bin/sh
tr 'a-z' 'A-Z' < "$2" > "$4"
`)
	r := NewRunner(script)

	res, err := r.Run(context.Background(), Request{
		Prompt:   "shout this",
		Strategy: StrategyFile,
		Timeout:  10 * time.Second,
	})

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "SHOUT THIS", res.Stdout)
	assert.Equal(t, StrategyFile, res.Strategy)
}

func TestRunner_FileStrategy_FallsBackToStdout(t *testing.T) {
	// Tool ignores the output file entirely
	script := writeScript(t, `#!/bin/sh
echo "wrote to stdout instead"
`)
	r := NewRunner(script)

	res, err := r.Run(context.Background(), Request{
		Prompt:   "anything",
		Strategy: StrategyFile,
		Timeout:  10 * time.Second,
	})

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Contains(t, res.Stdout, "wrote to stdout instead")
}

func TestRunner_StdinStrategy(t *testing.T) {
	r := NewRunner("cat")

	res, err := r.Run(context.Background(), Request{
		Prompt:   "pty delivery",
		Strategy: StrategyStdin,
		Timeout:  10 * time.Second,
	})

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Contains(t, res.Stdout, "pty delivery")
	assert.Equal(t, StrategyStdin, res.Strategy)
}

func TestRunner_StdinStrategy_FallbackToArg(t *testing.T) {
	r := NewRunner("does-not-exist-either")

	res, err := r.Run(context.Background(), Request{
		Prompt:   "hi",
		Strategy: StrategyStdin,
		Timeout:  10 * time.Second,
	})

	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, StrategyArg, res.Strategy, "pty start failure falls back to arg")
}

func TestRunner_UnknownStrategy(t *testing.T) {
	r := NewRunner("echo")

	_, err := r.Run(context.Background(), Request{
		Prompt:   "hi",
		Strategy: Strategy("telepathy"),
		Timeout:  10 * time.Second,
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown interaction strategy")
}

func TestRunner_SetEnv(t *testing.T) {
	r := NewRunner("sh", "-c", "printenv ENSEMBLE_TEST_MARKER")
	r.SetEnv([]string{"ENSEMBLE_TEST_MARKER=present"})

	res, err := r.Run(context.Background(), Request{
		Strategy: StrategyArg,
		Timeout:  10 * time.Second,
	})

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Contains(t, res.Stdout, "present")
}

func TestRunner_WorkingDir(t *testing.T) {
	dir := t.TempDir()
	r := NewRunner("pwd")

	res, err := r.Run(context.Background(), Request{
		Prompt:     "ignored by pwd via heredoc stdin",
		Strategy:   StrategyHeredoc,
		Timeout:    10 * time.Second,
		WorkingDir: dir,
	})

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Contains(t, res.Stdout, filepath.Base(dir))
}

func TestBoundedBuffer_KeepsTail(t *testing.T) {
	var b boundedBuffer

	filler := strings.Repeat("x", maxOutputBytes)
	_, err := b.Write([]byte(filler))
	require.NoError(t, err)
	_, err = b.Write([]byte("the-very-end"))
	require.NoError(t, err)

	got := b.String()
	assert.LessOrEqual(t, len(got), maxOutputBytes)
	assert.True(t, strings.HasSuffix(got, "the-very-end"), "newest output must survive truncation")
}

// writeScript drops an executable shell script into a temp dir.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tool.sh")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o755))
	return path
}
