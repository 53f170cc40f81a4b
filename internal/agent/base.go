// internal/agent/base.go
package agent

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ensemble/internal/cache"
	"github.com/fyrsmithlabs/ensemble/internal/cliexec"
	"github.com/fyrsmithlabs/ensemble/internal/config"
	"github.com/fyrsmithlabs/ensemble/internal/logging"
	"github.com/fyrsmithlabs/ensemble/internal/resilience"
)

// availabilityTTL bounds how long a PATH probe result is trusted.
const availabilityTTL = 30 * time.Second

// errToolFailure marks a run that completed but reported failure, so
// the breaker counts it without it becoming a caller-visible error.
var errToolFailure = errors.New("tool reported failure")

// Prober answers "is this command on PATH" with short-lived caching, so
// repeated availability listings do not stat the filesystem every time.
type Prober struct {
	cache *cache.Cache[bool]
}

// NewProber creates a prober with the standard TTL.
func NewProber() *Prober {
	return &Prober{cache: cache.New[bool](availabilityTTL, 64)}
}

// Available reports whether command resolves on PATH.
func (p *Prober) Available(command string) bool {
	if ok, hit := p.cache.Get(command); hit {
		return ok
	}
	_, err := exec.LookPath(command)
	ok := err == nil
	p.cache.Set(command, ok)
	return ok
}

// apiKeyEnv maps an adapter kind to the environment variable its CLI
// reads credentials from.
func apiKeyEnv(kind string) string {
	switch kind {
	case config.KindClaude:
		return "ANTHROPIC_API_KEY"
	case config.KindCodex:
		return "OPENAI_API_KEY"
	case config.KindGemini:
		return "GEMINI_API_KEY"
	case config.KindCopilot:
		return "GH_TOKEN"
	}
	return ""
}

// base carries the plumbing shared by every adapter: the retry
// coordinator, availability probing, breaker guarding, and the
// translation from execution results to responses.
type base struct {
	name     string
	kind     string
	cfg      config.AgentConfig
	strategy cliexec.Strategy
	coord    *cliexec.Coordinator
	breaker  *resilience.CircuitBreaker
	prober   *Prober
	logger   *logging.Logger
}

func (b *base) Name() string    { return b.name }
func (b *base) Kind() string    { return b.kind }
func (b *base) Command() string { return b.cfg.Command }

// Available reports whether the agent is enabled and its command is on
// PATH. Probe results are cached for availabilityTTL.
func (b *base) Available() bool {
	return b.cfg.Enabled && b.prober.Available(b.cfg.Command)
}

// deliver sends the prompt through the retry coordinator, guarded by
// the agent's breaker when one is attached. Workspace-capable agents
// get file-change tracking; others run with WorkingDir as plain cwd.
func (b *base) deliver(ctx context.Context, prompt string, task TaskRequest) (*Response, error) {
	if !b.Available() {
		return nil, &NotFoundError{Agent: b.name}
	}

	ctx = logging.WithAgent(ctx, b.name)
	req := cliexec.Request{
		Prompt:     prompt,
		Strategy:   b.strategy,
		Timeout:    b.cfg.Timeout.Duration(),
		WorkingDir: task.WorkingDir,
	}

	workspace := b.cfg.Workspace
	if workspace && req.WorkingDir == "" {
		req.WorkingDir = "workspace"
	}

	b.logger.Info(ctx, "running agent task",
		zap.String("role", task.Role),
		zap.String("strategy", string(b.strategy)),
		zap.Bool("workspace", workspace),
	)

	var res *cliexec.Result
	run := func(ctx context.Context) error {
		var err error
		if workspace {
			res, err = b.coord.RunInWorkspace(ctx, req)
		} else {
			res, err = b.coord.RunWithRetry(ctx, req)
		}
		if err != nil {
			return err
		}
		if !res.Success {
			return errToolFailure
		}
		return nil
	}

	var err error
	if b.breaker != nil {
		err = b.breaker.Call(ctx, run)
	} else {
		err = run(ctx)
	}

	switch {
	case err == nil:
		return b.respond(res, workspace, req.WorkingDir), nil
	case errors.Is(err, errToolFailure):
		if res.TimedOut() {
			return nil, &TimeoutError{Agent: b.name, Timeout: b.cfg.Timeout.Duration()}
		}
		return b.respond(res, workspace, req.WorkingDir), nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, err
	default:
		var open *resilience.BreakerOpenError
		if errors.As(err, &open) {
			return nil, open
		}
		return nil, &ExecutionError{Agent: b.name, Err: err}
	}
}

// respond translates an execution result into the agent response shape.
func (b *base) respond(res *cliexec.Result, workspace bool, workingDir string) *Response {
	r := &Response{
		Success:       res.Success,
		Output:        res.Stdout,
		FilesModified: res.ModifiedFiles,
		Metadata:      map[string]string{"strategy": string(res.Strategy)},
	}
	if workspace {
		r.Metadata["working_dir"] = workingDir
	}
	if !res.Success {
		r.Error = strings.TrimSpace(res.Stderr)
	}
	return r
}
