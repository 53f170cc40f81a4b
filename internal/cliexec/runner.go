// internal/cliexec/runner.go
package cliexec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
	"github.com/fyrsmithlabs/ensemble/internal/logging"
	"go.uber.org/zap"
)

// Strategy selects how the prompt reaches the external process.
type Strategy string

const (
	StrategyArg     Strategy = "arg"
	StrategyStdin   Strategy = "stdin"
	StrategyFile    Strategy = "file"
	StrategyHeredoc Strategy = "heredoc"
)

// ParseStrategy normalizes a strategy name. "pty" is an alias for
// stdin; empty input defaults to arg.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "arg":
		return StrategyArg, nil
	case "stdin", "pty":
		return StrategyStdin, nil
	case "file":
		return StrategyFile, nil
	case "heredoc":
		return StrategyHeredoc, nil
	default:
		return "", fmt.Errorf("unknown interaction strategy %q", s)
	}
}

// DefaultTimeout bounds a run when the request does not set one.
const DefaultTimeout = 5 * time.Minute

// maxOutputBytes caps captured output per stream; older output is
// discarded first.
const maxOutputBytes = 1 << 20

// Request describes a single prompt delivery.
type Request struct {
	Prompt     string
	Strategy   Strategy
	Timeout    time.Duration
	WorkingDir string
}

// Result is the outcome of one external process run. Process-level
// failures (non-zero exit, timeout) set Success=false with details in
// Stderr; they are not Go errors.
type Result struct {
	Success       bool
	Stdout        string
	Stderr        string
	ModifiedFiles []string
	Strategy      Strategy
}

// TimedOut reports whether the failure was a timeout kill. The timeout
// tag in Stderr is the contract, including through retry summaries.
func (r *Result) TimedOut() bool {
	return !r.Success && strings.Contains(r.Stderr, "timeout after ")
}

// Runner executes one external CLI tool.
type Runner struct {
	command string
	args    []string
	env     []string
	logger  *logging.Logger
}

// NewRunner creates a runner for command with its fixed leading args.
// The prompt is appended per strategy at run time.
func NewRunner(command string, args ...string) *Runner {
	return &Runner{
		command: command,
		args:    slices.Clone(args),
		logger:  logging.FromContext(context.Background()),
	}
}

// SetLogger replaces the runner's logger.
func (r *Runner) SetLogger(logger *logging.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// SetEnv sets extra environment variables (KEY=VALUE) appended to the
// parent environment for every run.
func (r *Runner) SetEnv(env []string) {
	r.env = slices.Clone(env)
}

// Command returns the executable this runner invokes.
func (r *Runner) Command() string {
	return r.command
}

// Run delivers the prompt using the requested strategy. The returned
// error is reserved for machinery faults and caller cancellation;
// inspect Result.Success for process outcomes.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	strategy := req.Strategy
	if strategy == "" {
		strategy = StrategyArg
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	r.logger.Debug(ctx, "running external tool",
		zap.String("command", r.command),
		zap.String("strategy", string(strategy)),
		zap.Duration("timeout", timeout),
	)

	switch strategy {
	case StrategyArg:
		return r.runArg(ctx, req, timeout)
	case StrategyStdin:
		return r.runStdin(ctx, req, timeout)
	case StrategyFile:
		return r.runFile(ctx, req, timeout)
	case StrategyHeredoc:
		return r.runHeredoc(ctx, req, timeout)
	default:
		return nil, fmt.Errorf("unknown interaction strategy %q", strategy)
	}
}

// runArg passes the prompt as the final argument with stdin closed so
// tools cannot fall into interactive mode.
func (r *Runner) runArg(ctx context.Context, req Request, timeout time.Duration) (*Result, error) {
	argv := append(slices.Clone(r.args), req.Prompt)
	return r.runCommand(ctx, timeout, StrategyArg, r.command, argv, req.WorkingDir)
}

// runFile writes the prompt to a temp file and invokes the tool with
// --input/--output paths. If the tool wrote the output file, its
// content replaces captured stdout.
func (r *Runner) runFile(ctx context.Context, req Request, timeout time.Duration) (*Result, error) {
	tempDir, err := os.MkdirTemp("", "ensemble-")
	if err != nil {
		return nil, &ResourceError{Op: "create temp dir", Err: err}
	}
	defer os.RemoveAll(tempDir)

	inputPath := filepath.Join(tempDir, "input.txt")
	outputPath := filepath.Join(tempDir, "output.txt")
	if err := os.WriteFile(inputPath, []byte(req.Prompt), 0o600); err != nil {
		return nil, &ResourceError{Op: "write prompt file", Path: inputPath, Err: err}
	}

	argv := append(slices.Clone(r.args), "--input", inputPath, "--output", outputPath)
	res, err := r.runCommand(ctx, timeout, StrategyFile, r.command, argv, req.WorkingDir)
	if err != nil {
		return nil, err
	}

	if data, readErr := os.ReadFile(outputPath); readErr == nil && len(data) > 0 {
		res.Stdout = string(data)
	}
	return res, nil
}

// runHeredoc feeds the prompt through a bash heredoc with a quoted
// delimiter so the prompt text is never shell-expanded.
func (r *Runner) runHeredoc(ctx context.Context, req Request, timeout time.Duration) (*Result, error) {
	invocation := r.command
	if len(r.args) > 0 {
		invocation += " " + strings.Join(r.args, " ")
	}
	script := fmt.Sprintf("%s << 'ENSEMBLE_EOF'\n%s\nENSEMBLE_EOF\n", invocation, req.Prompt)
	return r.runCommand(ctx, timeout, StrategyHeredoc, "bash", []string{"-c", script}, req.WorkingDir)
}

// runCommand is the shared non-PTY execution path.
func (r *Runner) runCommand(ctx context.Context, timeout time.Duration, strategy Strategy, name string, argv []string, dir string) (*Result, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, name, argv...)
	cmd.Dir = dir
	cmd.Env = r.environ()
	setProcessGroup(cmd)

	var stdout, stderr boundedBuffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	res := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Strategy: strategy,
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		res.Success = true
	case errors.Is(cctx.Err(), context.DeadlineExceeded):
		res.Stderr = timeoutStderr(timeout, res.Stderr)
	case errors.As(err, &exitErr):
		if res.Stderr == "" {
			res.Stderr = err.Error()
		}
	default:
		// Spawn failure (missing executable, permission)
		res.Stderr = err.Error()
	}
	return res, nil
}

// runStdin writes the prompt to a pseudo-terminal so tools that insist
// on an interactive terminal accept it. Output is merged (PTYs have a
// single stream). When no PTY can be allocated the run transparently
// falls back to the argument strategy.
func (r *Runner) runStdin(ctx context.Context, req Request, timeout time.Duration) (*Result, error) {
	cmd := exec.Command(r.command, r.args...)
	cmd.Dir = req.WorkingDir
	cmd.Env = r.environ()

	ptmx, err := pty.Start(cmd)
	if err != nil {
		r.logger.Debug(ctx, "pty unavailable, falling back to argument strategy",
			zap.String("command", r.command), zap.Error(err))
		return r.runArg(ctx, req, timeout)
	}
	defer ptmx.Close()

	// Deliver prompt, then EOT so line-reading tools see end of input
	go func() {
		_, _ = ptmx.WriteString(req.Prompt + "\n")
		_, _ = ptmx.Write([]byte{0x04})
	}()

	var output boundedBuffer
	copyDone := make(chan struct{})
	go func() {
		defer close(copyDone)
		// Returns EIO when the child exits; that is normal PTY teardown
		_, _ = io.Copy(&output, ptmx)
	}()

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var waitErr error
	timedOut := false
	select {
	case waitErr = <-waitCh:
	case <-timer.C:
		timedOut = true
		killProcessGroup(cmd)
		waitErr = <-waitCh
	case <-ctx.Done():
		killProcessGroup(cmd)
		<-waitCh
		return nil, ctx.Err()
	}
	<-copyDone

	res := &Result{
		Stdout:   output.String(),
		Strategy: StrategyStdin,
	}
	switch {
	case timedOut:
		res.Stderr = timeoutStderr(timeout, "")
	case waitErr == nil:
		res.Success = true
	default:
		res.Stderr = waitErr.Error()
	}
	return res, nil
}

// environ merges the parent environment with runner-specific extras.
func (r *Runner) environ() []string {
	if len(r.env) == 0 {
		return os.Environ()
	}
	return append(os.Environ(), r.env...)
}

// timeoutStderr tags stderr with the timeout that expired.
func timeoutStderr(timeout time.Duration, stderr string) string {
	tag := fmt.Sprintf("timeout after %s", timeout)
	if stderr == "" {
		return tag
	}
	return tag + "\n" + stderr
}

// setProcessGroup puts the child in its own process group so a timeout
// kill reaps the whole tree, not just the direct child.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return killGroup(cmd)
	}
	cmd.WaitDelay = 5 * time.Second
}

// killProcessGroup force-kills the child's process group.
func killProcessGroup(cmd *exec.Cmd) {
	_ = killGroup(cmd)
}

func killGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	// Negative pid addresses the group; pty/setpgid children lead their own
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
		return cmd.Process.Kill()
	}
	return nil
}

// boundedBuffer is a thread-safe buffer that keeps at most
// maxOutputBytes, discarding the oldest output first.
type boundedBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if len(b.buf) > maxOutputBytes {
		cut := len(b.buf) - maxOutputBytes
		b.buf = b.buf[cut:]
	}
	return len(p), nil
}

func (b *boundedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
