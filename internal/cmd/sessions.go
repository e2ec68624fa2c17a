package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/parleyhq/parley/internal/config"
	"github.com/parleyhq/parley/internal/session"
	"github.com/parleyhq/parley/internal/util"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List Parley sessions",
	Long: `List all sessions in the data directory with their stage, goal,
and participant count.`,
	RunE: runSessions,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	store, err := session.NewFileStore(cfg.Paths.ResolveDataDir())
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}

	ctx := cmd.Context()
	ids, err := store.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(ids) == 0 {
		fmt.Println("No sessions")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tSTAGE\tPARTICIPANTS\tGOAL")
	for _, id := range ids {
		st, err := store.LoadState(ctx, id)
		if err != nil {
			fmt.Fprintf(w, "%s\t(unreadable: %v)\t\t\n", id, err)
			continue
		}
		participants := 0
		if meta, err := store.LoadMeta(ctx, id); err == nil {
			participants = len(meta.Participants)
		}
		goal := util.TruncateString(st.Goal, 60)
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", id, st.Stage, participants, goal)
	}
	return w.Flush()
}
