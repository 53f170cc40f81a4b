package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/ensemble/internal/agent"
)

var agentsOutputJSON bool

func init() {
	rootCmd.AddCommand(agentsCmd)
	agentsCmd.Flags().BoolVar(&agentsOutputJSON, "json", false, "Output as JSON")
}

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List configured agents",
	Long: `List configured agents with their adapter kind, command, default
role, and availability. An agent is available when it is enabled and
its command resolves on PATH.

Examples:
  # List agents
  ensemble agents

  # Output as JSON
  ensemble agents --json`,
	RunE: runAgents,
}

type agentInfo struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Command   string `json:"command"`
	Role      string `json:"role,omitempty"`
	Strategy  string `json:"strategy"`
	Enabled   bool   `json:"enabled"`
	Available bool   `json:"available"`
}

func runAgents(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	registry, err := agent.NewRegistry(cfg, agent.Options{Logger: logger})
	if err != nil {
		return err
	}

	names := make([]string, 0, len(cfg.Agents))
	for name := range cfg.Agents {
		names = append(names, name)
	}
	sort.Strings(names)

	infos := make([]agentInfo, 0, len(names))
	for _, name := range names {
		ac := cfg.Agents[name]
		info := agentInfo{
			Name:     name,
			Kind:     ac.Kind,
			Command:  ac.Command,
			Role:     ac.Role,
			Strategy: ac.Strategy,
			Enabled:  ac.Enabled,
		}
		// Disabled agents are not in the registry; they list as
		// unavailable.
		if ag, err := registry.Get(name); err == nil {
			info.Available = ag.Available()
		}
		infos = append(infos, info)
	}

	if agentsOutputJSON {
		return outputJSON(infos)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tKIND\tCOMMAND\tROLE\tSTRATEGY\tENABLED\tAVAILABLE")
	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			info.Name, info.Kind, info.Command, info.Role, info.Strategy,
			yesNo(info.Enabled), yesNo(info.Available))
	}
	return w.Flush()
}
