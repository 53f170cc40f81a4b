// internal/agent/registry.go
package agent

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ensemble/internal/cliexec"
	"github.com/fyrsmithlabs/ensemble/internal/config"
	"github.com/fyrsmithlabs/ensemble/internal/events"
	"github.com/fyrsmithlabs/ensemble/internal/logging"
	"github.com/fyrsmithlabs/ensemble/internal/resilience"
	"github.com/fyrsmithlabs/ensemble/internal/secrets"
	"github.com/fyrsmithlabs/ensemble/internal/validate"
)

// Options carries the shared infrastructure adapters plug into. All
// fields are optional; a zero Options builds self-contained agents.
type Options struct {
	Logger   *logging.Logger
	Sink     events.Sink
	Secrets  *secrets.Manager
	Breakers *resilience.BreakerRegistry
}

// Registry holds the adapter set built from configuration. Agents are
// constructed once; availability is probed on demand.
type Registry struct {
	agents map[string]Agent
	names  []string
	prober *Prober
}

// NewRegistry builds an adapter for every enabled agent in cfg.
// Disabled agents are skipped. Agent names must validate since they
// become log correlation fields.
func NewRegistry(cfg *config.Config, opts Options) (*Registry, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.FromContext(context.Background())
	}
	v := validate.New(0, nil)

	r := &Registry{
		agents: make(map[string]Agent),
		prober: NewProber(),
	}

	names := make([]string, 0, len(cfg.Agents))
	for name := range cfg.Agents {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		ac := cfg.Agents[name]
		if !ac.Enabled {
			logger.Debug(context.Background(), "agent disabled", zap.String("agent", name))
			continue
		}
		if err := v.ValidateAgentName(name); err != nil {
			return nil, err
		}

		a, err := r.build(name, ac, cfg.Settings, opts, logger)
		if err != nil {
			return nil, err
		}
		r.agents[name] = a
		r.names = append(r.names, name)
	}

	return r, nil
}

func (r *Registry) build(name string, ac config.AgentConfig, settings config.SettingsConfig, opts Options, logger *logging.Logger) (Agent, error) {
	strategy, err := cliexec.ParseStrategy(ac.Strategy)
	if err != nil {
		return nil, fmt.Errorf("agent %q: %w", name, err)
	}

	runner := cliexec.NewRunner(ac.Command, ac.Args...)
	runner.SetLogger(logger.Named(name))
	if env := agentEnv(name, ac, opts.Secrets); len(env) > 0 {
		runner.SetEnv(env)
	}

	retries := ac.MaxRetries
	if retries == 0 {
		retries = settings.MaxRetries
	}
	coord := cliexec.NewCoordinator(runner, retries, settings.RetryDelay.Duration())
	coord.SetLogger(logger.Named(name))
	if opts.Sink != nil {
		coord.SetSink(opts.Sink)
	}

	b := base{
		name:     name,
		kind:     ac.Kind,
		cfg:      ac,
		strategy: strategy,
		coord:    coord,
		prober:   r.prober,
		logger:   logger.Named(name),
	}
	if opts.Breakers != nil {
		b.breaker = opts.Breakers.Get(name)
	}

	switch ac.Kind {
	case config.KindClaude:
		return &Claude{base: b}, nil
	case config.KindCodex:
		return &Codex{base: b}, nil
	case config.KindGemini:
		return &Gemini{base: b}, nil
	case config.KindCopilot:
		return &Copilot{base: b}, nil
	}
	return nil, fmt.Errorf("agent %q: unknown kind %q", name, ac.Kind)
}

// agentEnv resolves the credential for an agent (explicit config value
// first, then the secret store under API_KEY_<NAME>) and kind-specific
// environment tweaks.
func agentEnv(name string, ac config.AgentConfig, store *secrets.Manager) []string {
	var env []string

	key := ac.APIKey
	if !key.IsSet() && store != nil {
		if s, ok := store.Get("API_KEY_" + strings.ToUpper(name)); ok {
			key = s
		}
	}
	if key.IsSet() {
		if target := apiKeyEnv(ac.Kind); target != "" {
			env = append(env, target+"="+key.Value())
		}
	}

	// Node-based CLIs emit warnings that corrupt parseable output.
	if ac.Kind == config.KindGemini {
		env = append(env, "NODE_OPTIONS=--no-warnings")
	}
	return env
}

// Get returns the named agent, or NotFoundError if it is not
// registered (unknown or disabled).
func (r *Registry) Get(name string) (Agent, error) {
	a, ok := r.agents[name]
	if !ok {
		return nil, &NotFoundError{Agent: name}
	}
	return a, nil
}

// Names returns registered agent names in sorted order.
func (r *Registry) Names() []string {
	return slices.Clone(r.names)
}

// All returns registered agents sorted by name.
func (r *Registry) All() []Agent {
	agents := make([]Agent, 0, len(r.names))
	for _, name := range r.names {
		agents = append(agents, r.agents[name])
	}
	return agents
}

// AvailableNames returns the names of agents whose command currently
// resolves on PATH.
func (r *Registry) AvailableNames() []string {
	var names []string
	for _, name := range r.names {
		if r.agents[name].Available() {
			names = append(names, name)
		}
	}
	return names
}
