package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ensemble/internal/agent"
	"github.com/fyrsmithlabs/ensemble/internal/config"
	"github.com/fyrsmithlabs/ensemble/internal/events"
	"github.com/fyrsmithlabs/ensemble/internal/logging"
	"github.com/fyrsmithlabs/ensemble/internal/metrics"
	"github.com/fyrsmithlabs/ensemble/internal/orchestrator"
	"github.com/fyrsmithlabs/ensemble/internal/resilience"
	"github.com/fyrsmithlabs/ensemble/internal/secrets"
	"github.com/fyrsmithlabs/ensemble/internal/session"
)

var (
	// run command flags
	runWorkflow      string
	runMaxIterations int
	runWorkspace     string
	runSessionsDir   string
	runNoSave        bool
	runMetricsAddr   string
	runOutputJSON    bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runWorkflow, "workflow", "w", "", "workflow to run (default from config)")
	runCmd.Flags().IntVarP(&runMaxIterations, "max-iterations", "n", 0, "iteration cap (default from config)")
	runCmd.Flags().StringVar(&runWorkspace, "workspace", "", "working directory for agents (default from config)")
	runCmd.Flags().StringVar(&runSessionsDir, "sessions-dir", "", "directory for saved sessions (default from config)")
	runCmd.Flags().BoolVar(&runNoSave, "no-save", false, "do not save the run as a session")
	runCmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	runCmd.Flags().BoolVar(&runOutputJSON, "json", false, "output the full result as JSON")
}

var runCmd = &cobra.Command{
	Use:   "run <task>",
	Short: "Run a task through a workflow",
	Long: `Run a task through a configured workflow.

The task is handed to each workflow step in order and the pipeline
repeats until the review step is satisfied or the iteration cap is
reached. The result is saved as a session unless --no-save is given.

Examples:
  # Run with the default workflow
  ensemble run "add input validation to the login handler"

  # Choose a workflow and cap iterations
  ensemble run --workflow quick --max-iterations 2 "write a README"

  # Expose Prometheus metrics while the run is in flight
  ensemble run --metrics-addr :9091 "refactor the config loader"

  # Print the full result as JSON
  ensemble run --json "fix the race in the cache" | jq .final_output`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	task := strings.Join(args, " ")

	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if runWorkspace != "" {
		cfg.Directories.Workspace = runWorkspace
	}
	if runSessionsDir != "" {
		cfg.Directories.Sessions = runSessionsDir
	}
	if err := config.EnsureDirectories(cfg.Directories); err != nil {
		return err
	}

	sink := events.MultiSink{events.NewLogSink(logger), metrics.NewSink()}

	if runMetricsAddr != "" {
		stop := serveMetrics(ctx, logger, runMetricsAddr)
		defer stop()
	}

	orch, err := buildOrchestrator(cfg, logger, sink)
	if err != nil {
		return err
	}

	result, runErr := orch.ExecuteTask(ctx, task, runWorkflow, runMaxIterations)
	if result == nil {
		return runErr
	}

	// An interrupted run still carries completed iterations worth
	// keeping.
	var sessionID string
	if !runNoSave {
		sessionID = saveSession(logger, cfg.Directories.Sessions, result)
	}

	if runErr != nil {
		return runErr
	}

	if runOutputJSON {
		if err := outputJSON(result); err != nil {
			return err
		}
	} else {
		printRunResult(cmd, result, sessionID)
	}

	if !result.Success {
		return fmt.Errorf("task did not converge after %d iteration(s)", len(result.Iterations))
	}
	return nil
}

// buildOrchestrator wires secrets, breakers, the agent registry, and
// the orchestrator from configuration.
func buildOrchestrator(cfg *config.Config, logger *logging.Logger, sink events.Sink) (*orchestrator.Orchestrator, error) {
	breakers := resilience.NewBreakerRegistry(
		cfg.Performance.BreakerThreshold,
		cfg.Performance.BreakerRecovery.Duration(),
	)
	breakers.SetSink(sink)

	registry, err := agent.NewRegistry(cfg, agent.Options{
		Logger:   logger,
		Sink:     sink,
		Secrets:  secrets.NewManager(),
		Breakers: breakers,
	})
	if err != nil {
		return nil, fmt.Errorf("building agent registry: %w", err)
	}

	return orchestrator.New(cfg, registry, orchestrator.Options{
		Logger: logger,
		Sink:   sink,
	}), nil
}

// saveSession persists the run result, returning the session ID or ""
// when saving failed. A fresh context is used so an interrupted run can
// still be saved.
func saveSession(logger *logging.Logger, dir string, result *orchestrator.RunResult) string {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, err := session.NewStore(dir, logger)
	if err != nil {
		logger.Warn(ctx, "session store unavailable", zap.Error(err))
		return ""
	}
	id, err := store.Save(ctx, result)
	if err != nil {
		logger.Warn(ctx, "session save failed", zap.Error(err))
		return ""
	}
	return id
}

// serveMetrics exposes the Prometheus registry on addr until stopped.
func serveMetrics(ctx context.Context, logger *logging.Logger, addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info(ctx, "metrics server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn(ctx, "metrics server stopped", zap.Error(err))
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}

func printRunResult(cmd *cobra.Command, result *orchestrator.RunResult, sessionID string) {
	status := "succeeded"
	if !result.Success {
		status = "did not converge"
	}
	cmd.Printf("Task %s after %d iteration(s) in %s\n",
		status, len(result.Iterations), result.Duration().Round(time.Millisecond))
	cmd.Printf("Run ID:   %s\n", result.RunID)
	cmd.Printf("Workflow: %s\n", result.Workflow)
	if sessionID != "" {
		cmd.Printf("Session:  %s\n", sessionID)
	}

	for _, it := range result.Iterations {
		cmd.Printf("\nIteration %d:\n", it.Iteration)
		for _, step := range it.Steps {
			mark := "ok"
			if !step.Success {
				mark = "failed"
			}
			line := fmt.Sprintf("  %-10s %-10s %-7s %s",
				step.Agent, step.Role, mark, step.Duration.Round(time.Millisecond))
			if step.Error != "" {
				line += "  " + truncate(step.Error, 60)
			}
			cmd.Println(line)
		}
	}

	if result.FinalOutput != "" {
		cmd.Printf("\n--- Final output ---\n\n%s\n", result.FinalOutput)
	}
}
