package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var workflowsOutputJSON bool

func init() {
	rootCmd.AddCommand(workflowsCmd)
	workflowsCmd.Flags().BoolVar(&workflowsOutputJSON, "json", false, "Output as JSON")
}

var workflowsCmd = &cobra.Command{
	Use:   "workflows",
	Short: "List configured workflows",
	Long: `List configured workflows and their step pipelines.

Examples:
  # List workflows
  ensemble workflows

  # Output as JSON
  ensemble workflows --json`,
	RunE: runWorkflows,
}

type workflowInfo struct {
	Name    string   `json:"name"`
	Default bool     `json:"default,omitempty"`
	Steps   []string `json:"steps"`
}

func runWorkflows(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	names := make([]string, 0, len(cfg.Workflows))
	for name := range cfg.Workflows {
		names = append(names, name)
	}
	sort.Strings(names)

	infos := make([]workflowInfo, 0, len(names))
	for _, name := range names {
		steps := make([]string, 0, len(cfg.Workflows[name]))
		for _, s := range cfg.Workflows[name] {
			steps = append(steps, fmt.Sprintf("%s:%s", s.Agent, s.Role))
		}
		infos = append(infos, workflowInfo{
			Name:    name,
			Default: name == cfg.Settings.DefaultWorkflow,
			Steps:   steps,
		})
	}

	if workflowsOutputJSON {
		return outputJSON(infos)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDEFAULT\tSTEPS")
	for _, info := range infos {
		marker := ""
		if info.Default {
			marker = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", info.Name, marker, strings.Join(info.Steps, " -> "))
	}
	return w.Flush()
}
