package cliexec

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/ensemble/internal/events"
)

func TestFallbackStrategies(t *testing.T) {
	tests := []struct {
		preferred Strategy
		want      []Strategy
	}{
		{StrategyStdin, []Strategy{StrategyStdin, StrategyArg, StrategyHeredoc}},
		{StrategyArg, []Strategy{StrategyArg, StrategyStdin, StrategyHeredoc}},
		{StrategyFile, []Strategy{StrategyFile, StrategyStdin, StrategyArg}},
		{StrategyHeredoc, []Strategy{StrategyHeredoc, StrategyStdin, StrategyArg}},
	}

	for _, tt := range tests {
		t.Run(string(tt.preferred), func(t *testing.T) {
			assert.Equal(t, tt.want, fallbackStrategies(tt.preferred))
		})
	}
}

func TestCoordinator_FailedAfterAllAttempts(t *testing.T) {
	c := NewCoordinator(NewRunner("false"), 3, time.Millisecond)

	res, err := c.RunWithRetry(context.Background(), Request{
		Prompt:   "doomed",
		Strategy: StrategyArg,
		Timeout:  10 * time.Second,
	})

	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Stderr, "Failed after 3 attempts. Last error:")
}

func TestCoordinator_SuccessSkipsRetries(t *testing.T) {
	sink := events.NewMemorySink()
	c := NewCoordinator(NewRunner("echo"), 3, time.Millisecond)
	c.SetSink(sink)

	res, err := c.RunWithRetry(context.Background(), Request{
		Prompt:   "first try",
		Strategy: StrategyArg,
		Timeout:  10 * time.Second,
	})

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Contains(t, res.Stdout, "first try")
	assert.Empty(t, sink.ByKind(events.KindRetryAttempt))
}

func TestCoordinator_StrategySwitchOnRetry(t *testing.T) {
	// Fails on the first invocation, succeeds once the marker exists.
	marker := filepath.Join(t.TempDir(), "seen")
	script := writeScript(t, `#!/bin/sh
if [ -e "$ENSEMBLE_TEST_MARKER" ]; then
	echo ok
else
	touch "$ENSEMBLE_TEST_MARKER"
	echo "transient glitch" >&2
	exit 1
fi
`)
	r := NewRunner("sh", script)
	r.SetEnv([]string{"ENSEMBLE_TEST_MARKER=" + marker})

	sink := events.NewMemorySink()
	c := NewCoordinator(r, 3, time.Millisecond)
	c.SetSink(sink)

	res, err := c.RunWithRetry(context.Background(), Request{
		Prompt:   "try again",
		Strategy: StrategyArg,
		Timeout:  10 * time.Second,
	})

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Contains(t, res.Stdout, "ok")
	assert.Equal(t, StrategyStdin, res.Strategy, "second attempt moves to the next strategy in the ladder")

	retries := sink.ByKind(events.KindRetryAttempt)
	require.Len(t, retries, 1)
	assert.Equal(t, 2, retries[0].Iteration)
	assert.Equal(t, string(StrategyStdin), retries[0].Detail)
}

func TestCoordinator_NodeIncompatRemediation(t *testing.T) {
	script := writeScript(t, `#!/bin/sh
echo "ReferenceError: File is not defined" >&2
exit 1
`)
	// Heredoc ladder ends on arg, so the last attempt captures stderr
	// separately and the signature check can see it.
	c := NewCoordinator(NewRunner(script), 3, time.Millisecond)

	res, err := c.RunWithRetry(context.Background(), Request{
		Prompt:   "build",
		Strategy: StrategyHeredoc,
		Timeout:  10 * time.Second,
	})

	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Stderr, "Failed after 3 attempts")
	assert.Contains(t, res.Stderr, "Node.js compatibility error")
	assert.Contains(t, res.Stderr, "nvm install 20 && nvm use 20")
	assert.Contains(t, res.Stderr, "ReferenceError")
}

func TestHasNodeIncompatSignature(t *testing.T) {
	assert.True(t, hasNodeIncompatSignature("ReferenceError: File is not defined"))
	assert.True(t, hasNodeIncompatSignature("boom: File is not defined at line 3"))
	assert.True(t, hasNodeIncompatSignature("ReferenceError: fetch missing"))
	assert.False(t, hasNodeIncompatSignature("SyntaxError: unexpected token"))
	assert.False(t, hasNodeIncompatSignature(""))
}

func TestRemediationHint_TruncatesLongErrors(t *testing.T) {
	long := "ReferenceError: " + strings.Repeat("x", 400)

	hint := remediationHint(long)

	assert.Contains(t, hint, "Node.js compatibility error")
	assert.Contains(t, hint, "...")
	assert.NotContains(t, hint, strings.Repeat("x", 250))
}

func TestCoordinator_CancelledDuringBackoff(t *testing.T) {
	c := NewCoordinator(NewRunner("false"), 3, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	start := time.Now()
	_, err := c.RunWithRetry(ctx, Request{
		Prompt:   "x",
		Strategy: StrategyArg,
		Timeout:  10 * time.Second,
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 2*time.Second, "cancellation must interrupt the backoff sleep")
}

func TestCoordinator_RunInWorkspace(t *testing.T) {
	script := writeScript(t, `#!/bin/sh
echo "artifact" > out.txt
echo done
`)
	c := NewCoordinator(NewRunner("sh", script), 1, time.Millisecond)

	dir := filepath.Join(t.TempDir(), "nested", "workspace")
	res, err := c.RunInWorkspace(context.Background(), Request{
		Prompt:     "produce",
		Strategy:   StrategyArg,
		Timeout:    10 * time.Second,
		WorkingDir: dir,
	})

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Contains(t, res.ModifiedFiles, filepath.Join(dir, "out.txt"))
}

func TestCoordinator_RunInWorkspace_RequiresDir(t *testing.T) {
	c := NewCoordinator(NewRunner("echo"), 1, time.Millisecond)

	_, err := c.RunInWorkspace(context.Background(), Request{
		Prompt:   "x",
		Strategy: StrategyArg,
		Timeout:  10 * time.Second,
	})

	require.Error(t, err)
	var resErr *ResourceError
	assert.ErrorAs(t, err, &resErr)
}
