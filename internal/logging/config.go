// internal/logging/config.go
package logging

import (
	"fmt"
	"regexp"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/ensemble/internal/config"
)

// maxRedactionPattern bounds redaction regexps so a config typo cannot
// smuggle in a pathological pattern.
const maxRedactionPattern = 200

// Config is the full logger configuration. The config file's logging
// section only exposes level, format, and file; the rest is tuned in
// code by the binary that builds the logger.
type Config struct {
	Level zapcore.Level
	// Format is "json" or "console". It applies to stdout only; the
	// file output always gets JSON.
	Format   string
	Output   OutputConfig
	Sampling SamplingConfig
	Caller   CallerConfig
	// StacktraceLevel attaches stacktraces to entries at or above this
	// level. Zero value (Info) is treated as unset.
	StacktraceLevel zapcore.Level
	// Fields are constant fields stamped onto every entry.
	Fields    map[string]string
	Redaction RedactionConfig
}

// OutputConfig selects destinations. At least one must be set.
type OutputConfig struct {
	Stdout bool
	// File appends JSON entries to this path when non-empty.
	File string
}

// SamplingConfig caps log volume per tick. Entries at Error and above
// are never sampled.
type SamplingConfig struct {
	Enabled bool
	Tick    config.Duration
	// First entries per tick pass through; after that one in every
	// Thereafter is kept (0 drops the rest of the tick).
	First      int
	Thereafter int
}

// CallerConfig controls caller annotation. ExtraSkip is added on top
// of the frames the Logger wrapper itself costs, for callers that add
// their own indirection.
type CallerConfig struct {
	Enabled   bool
	ExtraSkip int
}

// RedactionConfig drives the redacting encoder: Fields are
// case-insensitive field names whose values are replaced wholesale,
// Patterns are regexps that blank a string value on match.
type RedactionConfig struct {
	Enabled  bool
	Fields   []string
	Patterns []string
}

// NewDefaultConfig returns production defaults: info level, JSON to
// stdout, sampling on, redaction covering the agent API-key surface.
func NewDefaultConfig() *Config {
	return &Config{
		Level:  zapcore.InfoLevel,
		Format: "json",
		Output: OutputConfig{Stdout: true},
		Sampling: SamplingConfig{
			Enabled:    true,
			Tick:       config.Duration(time.Second),
			First:      100,
			Thereafter: 10,
		},
		Caller:          CallerConfig{Enabled: true},
		StacktraceLevel: zapcore.ErrorLevel,
		Fields:          map[string]string{"service": "ensemble"},
		Redaction: RedactionConfig{
			Enabled: true,
			Fields: []string{
				"password", "secret", "token", "api_key",
				"authorization", "bearer", "credential", "private_key",
			},
			// Key material shows up in agent stderr when a CLI echoes
			// its environment on failure.
			Patterns: []string{
				`(?i)bearer\s+\S+`,
				`(?i)api[_-]?key[=:]\s*\S+`,
				`sk-[A-Za-z0-9_-]{16,}`,
			},
		},
	}
}

// Validate checks the configuration before a logger is built from it.
func (c *Config) Validate() error {
	switch c.Format {
	case "json", "console":
	default:
		return fmt.Errorf("format must be json or console, got %q", c.Format)
	}
	if !c.Output.Stdout && c.Output.File == "" {
		return fmt.Errorf("no log output configured")
	}
	if c.Sampling.Enabled {
		if c.Sampling.Tick.Duration() <= 0 {
			return fmt.Errorf("sampling tick must be positive")
		}
		if c.Sampling.First < 1 {
			return fmt.Errorf("sampling must pass at least one entry per tick")
		}
	}
	if c.Caller.ExtraSkip < 0 {
		return fmt.Errorf("caller extra skip must not be negative, got %d", c.Caller.ExtraSkip)
	}
	for _, p := range c.Redaction.Patterns {
		if len(p) > maxRedactionPattern {
			return fmt.Errorf("redaction pattern too long (max %d chars): %q", maxRedactionPattern, p)
		}
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("redaction pattern %q: %w", p, err)
		}
	}
	for k := range c.Fields {
		if k == "" {
			return fmt.Errorf("constant field with empty key")
		}
	}
	return nil
}
