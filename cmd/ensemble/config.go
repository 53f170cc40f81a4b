package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/ensemble/internal/config"
)

var configForce bool

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "Overwrite an existing config file")
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and manage configuration",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Load the configuration and check it for errors.

Examples:
  # Validate the default config file
  ensemble config validate

  # Validate a specific file
  ensemble --config ./ensemble.yaml config validate`,
	RunE: runConfigValidate,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Print the effective configuration as JSON, after defaults and
environment overrides are applied. API keys are redacted.

Examples:
  # Show effective configuration
  ensemble config show

  # Extract one section
  ensemble config show | jq .settings`,
	RunE: runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Long: `Write a commented starter config file to the default location
(~/.config/ensemble/config.yaml) or to the path given with --config.
Refuses to overwrite an existing file unless --force is given.

Examples:
  # Create the default config file
  ensemble config init

  # Overwrite an existing file
  ensemble config init --force`,
	RunE: runConfigInit,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return err
	}

	cmd.Printf("Configuration valid\n")
	cmd.Printf("Agents:    %d configured, %d enabled\n", len(cfg.Agents), len(cfg.EnabledAgents()))
	cmd.Printf("Workflows: %d (default %q)\n", len(cfg.Workflows), cfg.Settings.DefaultWorkflow)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return err
	}
	return outputJSON(cfg)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return err
		}
		if err := config.EnsureConfigDir(); err != nil {
			return err
		}
	}

	if _, err := os.Stat(path); err == nil && !configForce {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
	}

	// 0600: the loader rejects group- or world-readable config files.
	if err := os.WriteFile(path, []byte(starterConfig), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	cmd.Printf("Wrote starter config to %s\n", path)
	return nil
}

// starterConfig is the commented template written by "config init".
// Keys must match the koanf tags in internal/config.
const starterConfig = `# ensemble configuration.
# Values omitted here fall back to built-in defaults; ENSEMBLE_* environment
# variables (for example ENSEMBLE_SETTINGS_MAX_ITERATIONS) override both.

settings:
  default_workflow: default
  max_iterations: 3
  # A review step reporting more suggestions than this forces another
  # iteration.
  min_suggestions: 3

# Uncomment to override the built-in agent set.
# agents:
#   claude:
#     enabled: true
#     command: claude
#     args: ["--print"]
#     role: refine
#     strategy: arg
#     timeout: 5m
#     workspace: true
#   codex:
#     enabled: true
#     command: codex
#     args: ["exec"]
#     role: implement
#   gemini:
#     enabled: true
#     command: gemini
#     role: review
#   copilot:
#     enabled: false
#     command: gh
#     args: ["copilot", "suggest"]
#     role: test

# Uncomment to define custom workflows.
# workflows:
#   default:
#     - {agent: codex, role: implement}
#     - {agent: gemini, role: review}
#     - {agent: claude, role: refine}

security:
  rate_limit: 60
  rate_window: 1m

logging:
  level: info
  # auto picks console on a TTY and json otherwise.
  format: auto
`
