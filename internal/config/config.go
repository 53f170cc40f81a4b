// Package config provides configuration loading for ensemble.
//
// Configuration is loaded from a YAML file with environment variable
// overrides and sensible defaults. It covers agents, workflows, runtime
// settings, directories, security limits, and logging.
package config

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Agent adapter kinds. The set is closed: adapters are selected from
// this enumeration at configuration-load time, never by runtime string
// dispatch.
const (
	KindClaude  = "claude"
	KindCodex   = "codex"
	KindGemini  = "gemini"
	KindCopilot = "copilot"
)

// Interaction strategies for passing a prompt to an external CLI.
// "pty" is accepted as an alias for "stdin" since the stdin strategy is
// the PTY-wrapped one.
const (
	StrategyArg     = "arg"
	StrategyStdin   = "stdin"
	StrategyFile    = "file"
	StrategyHeredoc = "heredoc"
)

// Workflow step roles.
const (
	RoleImplement = "implement"
	RoleReview    = "review"
	RoleRefine    = "refine"
	RoleTest      = "test"
	RoleDocument  = "document"
)

// Config holds the complete ensemble configuration.
type Config struct {
	Agents      map[string]AgentConfig  `koanf:"agents" json:"agents"`
	Workflows   map[string][]StepConfig `koanf:"workflows" json:"workflows"`
	Settings    SettingsConfig          `koanf:"settings" json:"settings"`
	Directories DirectoriesConfig       `koanf:"directories" json:"directories"`
	Security    SecurityConfig          `koanf:"security" json:"security"`
	Performance PerformanceConfig       `koanf:"performance" json:"performance"`
	Logging     LoggingConfig           `koanf:"logging" json:"logging"`
}

// AgentConfig describes one external CLI agent. Immutable after load;
// agents hold references to it, never copies they mutate.
type AgentConfig struct {
	// Kind selects the adapter implementation. Defaults to the map key.
	Kind    string `koanf:"kind" json:"kind"`
	Enabled bool   `koanf:"enabled" json:"enabled"`
	// Command is the executable to launch. Args are fixed arguments
	// placed before the prompt (for example "exec" for codex).
	Command string   `koanf:"command" json:"command"`
	Args    []string `koanf:"args" json:"args,omitempty"`
	// Role is the default pipeline role for this agent.
	Role string `koanf:"role" json:"role,omitempty"`
	// Strategy is the interaction strategy used to deliver prompts.
	Strategy   string   `koanf:"strategy" json:"strategy"`
	Timeout    Duration `koanf:"timeout" json:"timeout"`
	MaxRetries int      `koanf:"max_retries" json:"max_retries"`
	// Workspace enables file-change tracking for this agent.
	Workspace bool `koanf:"workspace" json:"workspace"`
	// APIKey, when set, is exported to the child process under the
	// adapter's native environment variable. Redacted in logs.
	APIKey Secret `koanf:"api_key" json:"api_key,omitempty"`
}

// StepConfig is one {agent, role} pair inside a workflow definition.
type StepConfig struct {
	Agent string `koanf:"agent" json:"agent"`
	Role  string `koanf:"role" json:"role"`
}

// SettingsConfig holds run-level defaults.
type SettingsConfig struct {
	DefaultWorkflow string   `koanf:"default_workflow" json:"default_workflow"`
	MaxIterations   int      `koanf:"max_iterations" json:"max_iterations"`
	MaxRetries      int      `koanf:"max_retries" json:"max_retries"`
	RetryDelay      Duration `koanf:"retry_delay" json:"retry_delay"`
	// MinSuggestions is the review-suggestion threshold of the stop
	// predicate: a review step reporting more suggestions than this
	// forces another iteration.
	MinSuggestions int `koanf:"min_suggestions" json:"min_suggestions"`
}

// DirectoriesConfig holds working directories, created on startup.
type DirectoriesConfig struct {
	Output    string `koanf:"output" json:"output"`
	Workspace string `koanf:"workspace" json:"workspace"`
	Reports   string `koanf:"reports" json:"reports"`
	Sessions  string `koanf:"sessions" json:"sessions"`
	Logs      string `koanf:"logs" json:"logs"`
}

// SecurityConfig holds pre-flight validation and rate limits.
type SecurityConfig struct {
	// RateLimit tokens accrue per RateWindow, capped at RateCapacity.
	RateLimit     float64  `koanf:"rate_limit" json:"rate_limit"`
	RateWindow    Duration `koanf:"rate_window" json:"rate_window"`
	RateCapacity  int      `koanf:"rate_capacity" json:"rate_capacity"`
	MaxTaskLength int      `koanf:"max_task_length" json:"max_task_length"`
	// AllowedCommands is the closed set of executables agents may launch.
	AllowedCommands []string `koanf:"allowed_commands" json:"allowed_commands"`
}

// PerformanceConfig holds concurrency and resilience tuning.
type PerformanceConfig struct {
	MaxWorkers       int      `koanf:"max_workers" json:"max_workers"`
	BreakerThreshold int      `koanf:"breaker_threshold" json:"breaker_threshold"`
	BreakerRecovery  Duration `koanf:"breaker_recovery" json:"breaker_recovery"`
}

// LoggingConfig holds the logging surface of the config file. The
// logging package owns the full logger configuration; this section only
// carries what operators typically tune.
type LoggingConfig struct {
	Level  string `koanf:"level" json:"level"`
	Format string `koanf:"format" json:"format"`
	File   string `koanf:"file" json:"file,omitempty"`
}

// Default returns the built-in configuration: codex implements, gemini
// reviews, claude refines, copilot stays disabled.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func defaultAgents() map[string]AgentConfig {
	return map[string]AgentConfig{
		KindClaude: {
			Kind:       KindClaude,
			Enabled:    true,
			Command:    "claude",
			Args:       []string{"--print"},
			Role:       RoleRefine,
			Strategy:   StrategyArg,
			Timeout:    Duration(5 * time.Minute),
			MaxRetries: 3,
			Workspace:  true,
		},
		KindCodex: {
			Kind:       KindCodex,
			Enabled:    true,
			Command:    "codex",
			Args:       []string{"exec"},
			Role:       RoleImplement,
			Strategy:   StrategyArg,
			Timeout:    Duration(5 * time.Minute),
			MaxRetries: 3,
			Workspace:  true,
		},
		KindGemini: {
			Kind:       KindGemini,
			Enabled:    true,
			Command:    "gemini",
			Role:       RoleReview,
			Strategy:   StrategyArg,
			Timeout:    Duration(5 * time.Minute),
			MaxRetries: 3,
		},
		KindCopilot: {
			Kind:       KindCopilot,
			Enabled:    false,
			Command:    "gh",
			Args:       []string{"copilot", "suggest"},
			Role:       RoleTest,
			Strategy:   StrategyArg,
			Timeout:    Duration(5 * time.Minute),
			MaxRetries: 3,
		},
	}
}

func defaultWorkflows() map[string][]StepConfig {
	return map[string][]StepConfig{
		"default": {
			{Agent: KindCodex, Role: RoleImplement},
			{Agent: KindGemini, Role: RoleReview},
			{Agent: KindClaude, Role: RoleRefine},
		},
		"quick": {
			{Agent: KindCodex, Role: RoleImplement},
			{Agent: KindGemini, Role: RoleReview},
		},
		"full": {
			{Agent: KindCodex, Role: RoleImplement},
			{Agent: KindGemini, Role: RoleReview},
			{Agent: KindClaude, Role: RoleRefine},
			{Agent: KindCodex, Role: RoleTest},
			{Agent: KindClaude, Role: RoleDocument},
		},
	}
}

// applyDefaults fills missing configuration fields.
func applyDefaults(cfg *Config) {
	if len(cfg.Agents) == 0 {
		cfg.Agents = defaultAgents()
	}
	for name, ac := range cfg.Agents {
		if ac.Kind == "" {
			ac.Kind = name
		}
		if ac.Strategy == "" {
			ac.Strategy = StrategyArg
		}
		if ac.Timeout == 0 {
			ac.Timeout = Duration(5 * time.Minute)
		}
		if ac.MaxRetries == 0 {
			ac.MaxRetries = 3
		}
		cfg.Agents[name] = ac
	}

	if len(cfg.Workflows) == 0 {
		cfg.Workflows = defaultWorkflows()
	}

	if cfg.Settings.DefaultWorkflow == "" {
		cfg.Settings.DefaultWorkflow = "default"
	}
	if cfg.Settings.MaxIterations == 0 {
		cfg.Settings.MaxIterations = 3
	}
	if cfg.Settings.MaxRetries == 0 {
		cfg.Settings.MaxRetries = 3
	}
	if cfg.Settings.RetryDelay == 0 {
		cfg.Settings.RetryDelay = Duration(time.Second)
	}
	if cfg.Settings.MinSuggestions == 0 {
		cfg.Settings.MinSuggestions = 3
	}

	if cfg.Directories.Output == "" {
		cfg.Directories.Output = "output"
	}
	if cfg.Directories.Workspace == "" {
		cfg.Directories.Workspace = "workspace"
	}
	if cfg.Directories.Reports == "" {
		cfg.Directories.Reports = "reports"
	}
	if cfg.Directories.Sessions == "" {
		cfg.Directories.Sessions = "sessions"
	}
	if cfg.Directories.Logs == "" {
		cfg.Directories.Logs = "logs"
	}

	if cfg.Security.RateLimit == 0 {
		cfg.Security.RateLimit = 60
	}
	if cfg.Security.RateWindow == 0 {
		cfg.Security.RateWindow = Duration(time.Minute)
	}
	if cfg.Security.RateCapacity == 0 {
		cfg.Security.RateCapacity = int(cfg.Security.RateLimit)
	}
	if cfg.Security.MaxTaskLength == 0 {
		cfg.Security.MaxTaskLength = 10000
	}
	if len(cfg.Security.AllowedCommands) == 0 {
		cfg.Security.AllowedCommands = []string{"claude", "codex", "gemini", "gh", "bash", "echo", "sh"}
	}

	if cfg.Performance.MaxWorkers == 0 {
		cfg.Performance.MaxWorkers = 3
	}
	if cfg.Performance.BreakerThreshold == 0 {
		cfg.Performance.BreakerThreshold = 5
	}
	if cfg.Performance.BreakerRecovery == 0 {
		cfg.Performance.BreakerRecovery = Duration(time.Minute)
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	// "auto" resolves to console on a TTY and json otherwise; the CLI
	// makes that call because only it knows where stdout points.
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "auto"
	}
}

var validKinds = map[string]bool{
	KindClaude:  true,
	KindCodex:   true,
	KindGemini:  true,
	KindCopilot: true,
}

var validStrategies = map[string]bool{
	StrategyArg:     true,
	StrategyStdin:   true,
	StrategyFile:    true,
	StrategyHeredoc: true,
	"pty":           true, // alias for stdin
}

var validRoles = map[string]bool{
	RoleImplement: true,
	RoleReview:    true,
	RoleRefine:    true,
	RoleTest:      true,
	RoleDocument:  true,
}

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks the configuration for errors.
//
// Returns an error if:
//   - No agent is enabled
//   - An agent has an unknown kind, strategy, or role, or no command
//   - A workflow is empty or a step names no agent or an invalid role
//   - The default workflow is not defined
//   - Settings, security limits, or performance tuning are out of range
func (c *Config) Validate() error {
	enabled := 0
	for name, ac := range c.Agents {
		if name == "" {
			return errors.New("agent name cannot be empty")
		}
		if !validKinds[ac.Kind] {
			return fmt.Errorf("agent %q: unknown kind %q", name, ac.Kind)
		}
		if ac.Command == "" {
			return fmt.Errorf("agent %q: command cannot be empty", name)
		}
		if !validStrategies[ac.Strategy] {
			return fmt.Errorf("agent %q: unknown strategy %q", name, ac.Strategy)
		}
		if ac.Role != "" && !validRoles[ac.Role] {
			return fmt.Errorf("agent %q: unknown role %q", name, ac.Role)
		}
		if ac.Timeout.Duration() <= 0 {
			return fmt.Errorf("agent %q: timeout must be positive", name)
		}
		if ac.MaxRetries < 1 {
			return fmt.Errorf("agent %q: max_retries must be >= 1", name)
		}
		if ac.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return errors.New("at least one agent must be enabled")
	}

	if len(c.Workflows) == 0 {
		return errors.New("at least one workflow must be defined")
	}
	for name, steps := range c.Workflows {
		if len(steps) == 0 {
			return fmt.Errorf("workflow %q has no steps", name)
		}
		for i, step := range steps {
			if step.Agent == "" {
				return fmt.Errorf("workflow %q step %d: agent cannot be empty", name, i)
			}
			if !validRoles[step.Role] {
				return fmt.Errorf("workflow %q step %d: unknown role %q", name, i, step.Role)
			}
		}
	}
	if _, ok := c.Workflows[c.Settings.DefaultWorkflow]; !ok {
		return fmt.Errorf("default workflow %q is not defined", c.Settings.DefaultWorkflow)
	}

	if c.Settings.MaxIterations < 1 {
		return errors.New("max_iterations must be >= 1")
	}
	if c.Settings.MaxRetries < 1 {
		return errors.New("max_retries must be >= 1")
	}
	if c.Settings.MinSuggestions < 0 {
		return errors.New("min_suggestions must be >= 0")
	}

	if c.Security.RateLimit <= 0 {
		return errors.New("rate_limit must be positive")
	}
	if c.Security.RateWindow.Duration() <= 0 {
		return errors.New("rate_window must be positive")
	}
	if c.Security.RateCapacity < 1 {
		return errors.New("rate_capacity must be >= 1")
	}
	if c.Security.MaxTaskLength < 1 {
		return errors.New("max_task_length must be >= 1")
	}

	if c.Performance.MaxWorkers < 1 {
		return errors.New("max_workers must be >= 1")
	}
	if c.Performance.BreakerThreshold < 1 {
		return errors.New("breaker_threshold must be >= 1")
	}
	if c.Performance.BreakerRecovery.Duration() <= 0 {
		return errors.New("breaker_recovery must be positive")
	}

	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	if f := c.Logging.Format; f != "auto" && f != "json" && f != "console" {
		return fmt.Errorf("log format must be 'auto', 'json', or 'console', got %q", f)
	}

	return nil
}

// EnabledAgents returns the names of enabled agents in sorted order.
func (c *Config) EnabledAgents() []string {
	names := make([]string, 0, len(c.Agents))
	for name, ac := range c.Agents {
		if ac.Enabled {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
