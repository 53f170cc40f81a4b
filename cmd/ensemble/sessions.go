package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/ensemble/internal/logging"
	"github.com/fyrsmithlabs/ensemble/internal/session"
)

var (
	// sessions command flags
	sessionsDir        string
	sessionsOutputJSON bool
	sessionsOlderThan  time.Duration
)

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	sessionsCmd.AddCommand(sessionsPruneCmd)

	sessionsCmd.PersistentFlags().StringVar(&sessionsDir, "dir", "", "sessions directory (default from config)")
	sessionsCmd.PersistentFlags().BoolVar(&sessionsOutputJSON, "json", false, "Output as JSON")

	sessionsPruneCmd.Flags().DurationVar(&sessionsOlderThan, "older-than", 30*24*time.Hour, "delete sessions saved before this age")
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage saved run sessions",
	Long: `Manage run sessions saved by "ensemble run".

Each completed run is stored as one JSON file named by its run ID.

Examples:
  # List saved sessions
  ensemble sessions list

  # Show one session in full
  ensemble sessions show 7b3e1c9a-8f24-4c57-9e1d-2f6a0c4b8d31

  # Delete sessions older than a week
  ensemble sessions prune --older-than 168h`,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved sessions",
	RunE:  runSessionsList,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show one saved session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete one saved session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

var sessionsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete sessions older than a cutoff",
	RunE:  runSessionsPrune,
}

// openSessionStore resolves the sessions directory and opens the store.
func openSessionStore() (*session.Store, *logging.Logger, error) {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return nil, nil, err
	}

	dir := cfg.Directories.Sessions
	if sessionsDir != "" {
		dir = sessionsDir
	}
	store, err := session.NewStore(dir, logger)
	if err != nil {
		return nil, nil, err
	}
	return store, logger, nil
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	store, logger, err := openSessionStore()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	summaries, err := store.List(cmd.Context())
	if err != nil {
		return err
	}

	if sessionsOutputJSON {
		return outputJSON(summaries)
	}

	if len(summaries) == 0 {
		cmd.Println("No sessions found")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTASK\tWORKFLOW\tRESULT\tITERATIONS\tDURATION\tSAVED")
	for _, s := range summaries {
		result := "failed"
		if s.Success {
			result = "success"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			s.SessionID,
			truncate(s.Task, 40),
			s.Workflow,
			result,
			s.Iterations,
			s.Duration.Round(time.Millisecond),
			s.SavedAt.Format("2006-01-02 15:04"),
		)
	}
	return w.Flush()
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	store, logger, err := openSessionStore()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	rec, err := store.Load(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if sessionsOutputJSON {
		return outputJSON(rec)
	}

	cmd.Printf("Session: %s (saved %s)\n", rec.SessionID, rec.SavedAt.Format("2006-01-02 15:04:05"))
	cmd.Printf("Task:    %s\n\n", rec.Result.Task)
	printRunResult(cmd, &rec.Result, "")
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	store, logger, err := openSessionStore()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if err := store.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	cmd.Printf("Deleted session %s\n", args[0])
	return nil
}

func runSessionsPrune(cmd *cobra.Command, args []string) error {
	store, logger, err := openSessionStore()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	removed, err := store.Prune(cmd.Context(), sessionsOlderThan)
	if err != nil {
		return err
	}
	cmd.Printf("Pruned %d session(s)\n", removed)
	return nil
}
