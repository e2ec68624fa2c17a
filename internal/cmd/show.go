package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/parleyhq/parley/internal/config"
	"github.com/parleyhq/parley/internal/session"
	"github.com/parleyhq/parley/internal/state"
)

var showCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show a session's canonical state",
	Long: `Display the shared planning document for a session: goal, leading
option, constraints, open questions, and next steps.

With --follow, the command keeps watching the session's state file and
re-renders on every change until interrupted. This is how a second
terminal observes a run in progress.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

var (
	showJSON   bool
	showFollow bool
)

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVar(&showJSON, "json", false, "print raw JSON instead of the formatted view")
	showCmd.Flags().BoolVar(&showFollow, "follow", false, "keep watching for state changes")
}

var (
	showHeaderStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	showLabelStyle    = lipgloss.NewStyle().Bold(true)
	showResolvedStyle = lipgloss.NewStyle().Faint(true).Strikethrough(true)
)

func runShow(cmd *cobra.Command, args []string) error {
	sessionID := args[0]

	cfg := config.Get()
	store, err := session.NewFileStore(cfg.Paths.ResolveDataDir())
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}

	ctx := cmd.Context()
	render := func() error {
		st, err := store.LoadState(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("failed to load session %s: %w", sessionID, err)
		}
		if showJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		}
		printState(sessionID, st)
		return nil
	}

	if err := render(); err != nil {
		return err
	}
	if !showFollow {
		return nil
	}

	w, err := session.NewWatcher(store, sessionID, nil)
	if err != nil {
		return fmt.Errorf("failed to watch session: %w", err)
	}
	defer w.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-w.Changes():
			if !ok {
				return nil
			}
			fmt.Println()
			if err := render(); err != nil {
				return err
			}
		}
	}
}

func printState(sessionID string, st state.CanonicalState) {
	fmt.Println(showHeaderStyle.Render(fmt.Sprintf("Session %s [%s]", sessionID, st.Stage)))
	if st.Goal != "" {
		fmt.Printf("%s %s\n", showLabelStyle.Render("Goal:"), st.Goal)
	}
	if st.LeadingOption != "" {
		fmt.Printf("%s %s\n", showLabelStyle.Render("Leading option:"), st.LeadingOption)
	}
	if len(st.StatusSummary) > 0 {
		fmt.Println(showLabelStyle.Render("Status:"))
		for _, s := range st.StatusSummary {
			fmt.Printf("  - %s\n", s)
		}
	}
	if len(st.Constraints) > 0 {
		fmt.Println(showLabelStyle.Render("Constraints:"))
		for _, c := range st.Constraints {
			fmt.Printf("  - [%s] %s (%s)\n", c.ParticipantID, c.Text, c.Source)
		}
	}
	if len(st.OpenQuestions) > 0 {
		fmt.Println(showLabelStyle.Render("Questions:"))
		for _, q := range st.OpenQuestions {
			line := fmt.Sprintf("  - for %s: %s", q.Target, q.Text)
			if q.Resolved {
				line = showResolvedStyle.Render(line)
			}
			fmt.Println(line)
		}
	}
	if len(st.SuggestedNextSteps) > 0 {
		fmt.Println(showLabelStyle.Render("Next steps:"))
		for _, s := range st.SuggestedNextSteps {
			fmt.Printf("  - %s\n", s)
		}
	}
	if !st.LastUpdatedAt.IsZero() {
		fmt.Printf("%s %s by %s\n", showLabelStyle.Render("Updated:"),
			st.LastUpdatedAt.Format("2006-01-02 15:04:05"), st.LastUpdatedBy)
	}
}
