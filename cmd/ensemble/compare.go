package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/ensemble/internal/agent"
	"github.com/fyrsmithlabs/ensemble/internal/batch"
	"github.com/fyrsmithlabs/ensemble/internal/config"
	"github.com/fyrsmithlabs/ensemble/internal/events"
	"github.com/fyrsmithlabs/ensemble/internal/metrics"
	"github.com/fyrsmithlabs/ensemble/internal/resilience"
	"github.com/fyrsmithlabs/ensemble/internal/secrets"
)

var (
	// compare command flags
	compareAgents     []string
	compareRole       string
	compareTimeout    time.Duration
	compareOutputJSON bool
)

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().StringSliceVar(&compareAgents, "agents", nil, "agents to compare (default all available)")
	compareCmd.Flags().StringVar(&compareRole, "role", config.RoleImplement, "role each agent runs the task under")
	compareCmd.Flags().DurationVar(&compareTimeout, "timeout", 0, "per-agent timeout (0 uses each agent's configured timeout)")
	compareCmd.Flags().BoolVar(&compareOutputJSON, "json", false, "Output as JSON")
}

var compareCmd = &cobra.Command{
	Use:   "compare <task>",
	Short: "Run one task across several agents and compare the outputs",
	Long: `Run the same task once per agent, in parallel, and report each
agent's output side by side. Unlike "run" there is no pipeline: every
agent sees only the bare task.

Examples:
  # Compare all available agents
  ensemble compare "write a function that parses RFC 3339 timestamps"

  # Compare two specific agents under the review role
  ensemble compare --agents claude,gemini --role review "review main.go"

  # Output as JSON
  ensemble compare --json "explain this regex" | jq .`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCompare,
}

type compareReport struct {
	Agent    string `json:"agent"`
	Success  bool   `json:"success"`
	Duration string `json:"duration,omitempty"`
	Output   string `json:"output,omitempty"`
	Error    string `json:"error,omitempty"`
}

func runCompare(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	task := strings.Join(args, " ")

	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if err := config.EnsureDirectories(cfg.Directories); err != nil {
		return err
	}

	sink := events.MultiSink{events.NewLogSink(logger), metrics.NewSink()}

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
		return err
	}

	names := compareAgents
	if len(names) == 0 {
		names = registry.AvailableNames()
	}
	if len(names) == 0 {
		return fmt.Errorf("no agents available to compare")
	}

	manager := batch.NewManager(logger)
	manager.SetSink(sink)

	ids := make([]string, 0, len(names))
	fns := make([]batch.Func[*agent.Response], 0, len(names))
	for _, name := range names {
		ag, err := registry.Get(name)
		if err != nil {
			return err
		}
		if !ag.Available() {
			return fmt.Errorf("agent %q is not available", name)
		}

		t := manager.Create(task, map[string]string{"agent": name})
		ids = append(ids, t.ID)

		agentName, taskID := name, t.ID
		fns = append(fns, func(ctx context.Context) (*agent.Response, error) {
			_ = manager.Start(ctx, taskID, agentName)
			resp, err := ag.Run(ctx, agent.TaskRequest{
				Description: task,
				Role:        compareRole,
				WorkingDir:  cfg.Directories.Workspace,
			})
			switch {
			case err != nil:
				_ = manager.Fail(ctx, taskID, err.Error())
				return nil, err
			case !resp.Success:
				_ = manager.Fail(ctx, taskID, resp.Error)
			default:
				_ = manager.Complete(ctx, taskID, resp.Output)
			}
			return resp, nil
		})
	}

	exec := batch.NewExecutor[*agent.Response](cfg.Performance.MaxWorkers)
	exec.SetLogger(logger.Named("batch"))
	results := exec.Parallel(ctx, fns, compareTimeout)

	reports := make([]compareReport, 0, len(results))
	for i, res := range results {
		rep := compareReport{Agent: names[i]}
		if t, ok := manager.Get(ids[i]); ok && t.Duration() > 0 {
			rep.Duration = t.Duration().Round(time.Millisecond).String()
		}
		switch {
		case res.Err != "":
			rep.Error = res.Err
		case res.Value != nil:
			rep.Success = res.Value.Success
			rep.Output = res.Value.Output
			rep.Error = res.Value.Error
		}
		reports = append(reports, rep)
	}

	if compareOutputJSON {
		return outputJSON(reports)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "AGENT\tRESULT\tDURATION\tOUTPUT")
	for _, rep := range reports {
		result := "ok"
		text := rep.Output
		if !rep.Success {
			result = "failed"
			if rep.Error != "" {
				text = rep.Error
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			rep.Agent, result, rep.Duration, truncate(oneLine(text), 60))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	stats := manager.Statistics()
	cmd.Printf("\n%d agent(s): %d succeeded, %d failed, average %s\n",
		stats.Total, stats.Completed, stats.Failed,
		stats.AverageDuration.Round(time.Millisecond))
	return nil
}

// oneLine collapses newlines so multi-line output fits a table cell.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
