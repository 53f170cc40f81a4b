// internal/logging/integration_test.go
package logging

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/ensemble/internal/config"
)

func TestIntegration_FullLoggingPipeline(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "run.log")

	cfg := NewDefaultConfig()
	cfg.Level = TraceLevel
	cfg.Output.Stdout = false
	cfg.Output.File = logPath
	cfg.Sampling.Enabled = false

	logger, err := NewLogger(cfg)
	require.NoError(t, err)

	ctx := WithRunID(context.Background(), "run_integration_123")
	ctx = WithSessionID(ctx, "sess_456")
	ctx = WithAgent(ctx, "claude")

	logger.Trace(ctx, "strategy selected", zap.String("strategy", "stdin"))
	logger.Debug(ctx, "availability probe", zap.Bool("cached", true))
	logger.Info(ctx, "step completed", zap.Duration("duration", 45*time.Millisecond))
	logger.Warn(ctx, "retrying", zap.Int("attempt", 2))
	logger.Error(ctx, "step failed", zap.Error(errors.New("exit status 1")))
	logger.Info(ctx, "agent configured", Secret("api_key", config.Secret("sk-super-secret-value-xyz")))

	child := logger.With(zap.String("component", "workflow"))
	child.Info(ctx, "child entry")
	logger.Named("orchestrator").Info(ctx, "named entry")

	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	out := string(data)

	// every level landed in the file, correlated
	for _, msg := range []string{
		"strategy selected", "availability probe", "step completed",
		"retrying", "step failed", "child entry", "named entry",
	} {
		assert.Contains(t, out, msg)
	}
	assert.Contains(t, out, "run_integration_123")
	assert.Contains(t, out, "sess_456")

	// the secret never reached disk
	assert.NotContains(t, out, "sk-super-secret-value-xyz")
	assert.Contains(t, out, "[REDACTED")

	// file output is one JSON object per line
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		assert.True(t, strings.HasPrefix(line, "{"), "non-JSON line: %s", line)
	}
}

func TestIntegration_ContextFieldInjection(t *testing.T) {
	tl := NewTestLogger()

	ctx := WithRunID(context.Background(), "run_123")
	ctx = WithSessionID(ctx, "sess_123")
	ctx = WithAgent(ctx, "codex")

	tl.Info(ctx, "step started", zap.String("role", "implement"))

	tl.AssertLogged(t, zapcore.InfoLevel, "step started")
	tl.AssertField(t, "step started", "run.id", "run_123")
	tl.AssertField(t, "step started", "session.id", "sess_123")
	tl.AssertField(t, "step started", "agent", "codex")
	tl.AssertField(t, "step started", "role", "implement")
	tl.AssertRunCorrelation(t, "step started")
}

func TestIntegration_SecretRedaction(t *testing.T) {
	tl := NewTestLogger()

	tl.Info(context.Background(), "auth",
		Secret("credentials", config.Secret("my-secret-token")),
	)

	tl.AssertLogged(t, zapcore.InfoLevel, "auth")
	tl.AssertNoSecrets(t)
}
