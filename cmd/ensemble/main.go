// Ensemble orchestrates multiple AI coding CLIs (claude, codex,
// gemini, copilot) through iterative implement-review-refine workflows.
//
// Usage:
//
//	# Run a task through the default workflow
//	ensemble run "add input validation to the login handler"
//
//	# Pick a workflow and cap iterations
//	ensemble run --workflow quick --max-iterations 2 "write a README"
//
//	# Inspect configuration
//	ensemble agents
//	ensemble workflows
//	ensemble config validate
//
// Configuration is loaded from ~/.config/ensemble/config.yaml with
// ENSEMBLE_* environment overrides. See internal/config for details.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/ensemble/internal/config"
	"github.com/fyrsmithlabs/ensemble/internal/logging"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var (
	// persistent flags
	configPath string
	logLevel   string
	logFormat  string
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ensemble",
	Short: "Orchestrate AI coding CLIs through review-refine workflows",
	Long: `ensemble runs coding tasks through pipelines of external AI CLI tools.

Each workflow step hands the task to one agent in a given role
(implement, review, refine, test, document) and folds that agent's
output into the context the next step sees. The pipeline repeats until
the reviewer is satisfied or the iteration cap is reached.`,
	Version: version,
	// Runtime failures (an agent crashing, a workflow not converging)
	// are not usage errors.
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default ~/.config/ensemble/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn, error (default from config)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: auto, json, console (default from config)")
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("ensemble by Fyrsmith Labs\n")
		cmd.Printf("Version:    %s\n", version)
		cmd.Printf("Commit:     %s\n", gitCommit)
		cmd.Printf("Build Date: %s\n", buildDate)
	},
}

// loadRuntime loads configuration and builds the logger, with the
// persistent flags overriding the file's logging section.
func loadRuntime() (*config.Config, *logging.Logger, error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, nil, err
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}

	logCfg, err := buildLogConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.NewLogger(logCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing logger: %w", err)
	}
	return cfg, logger, nil
}

// buildLogConfig maps the config file's logging section onto the full
// logger configuration.
func buildLogConfig(cfg *config.Config) (*logging.Config, error) {
	level, err := logging.LevelFromString(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Logging.Level, err)
	}

	logCfg := logging.NewDefaultConfig()
	logCfg.Level = level
	logCfg.Format = resolveLogFormat(cfg.Logging.Format, isatty.IsTerminal(os.Stdout.Fd()))
	logCfg.Output.File = cfg.Logging.File
	return logCfg, nil
}

// resolveLogFormat maps "auto" to console on a TTY and json otherwise.
func resolveLogFormat(format string, tty bool) string {
	if format != "auto" {
		return format
	}
	if tty {
		return "console"
	}
	return "json"
}

// Shared output helpers

func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
