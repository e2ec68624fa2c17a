package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/parleyhq/parley/internal/agent"
	"github.com/parleyhq/parley/internal/capability"
	"github.com/parleyhq/parley/internal/config"
	"github.com/parleyhq/parley/internal/demo"
	"github.com/parleyhq/parley/internal/event"
	"github.com/parleyhq/parley/internal/logging"
	"github.com/parleyhq/parley/internal/orchestrator"
	"github.com/parleyhq/parley/internal/runreg"
	"github.com/parleyhq/parley/internal/session"
	"github.com/parleyhq/parley/internal/tui"
)

var runCmd = &cobra.Command{
	Use:   "run <session-id>",
	Short: "Start an orchestration run for a session",
	Long: `Start a turn-taking run for the given session. Agents speak in
sequence, editing the shared plan, until one of the stop rules fires:
an agent waits for human input, the group converges, the turn cap is
reached, or the discussion stalls.

Starting a run claims the session's live-run slot; a run already in
flight for the same session is cancelled at its next turn boundary.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

var (
	runDemo     bool
	runTUI      bool
	runMaxTurns int
	runGoalText string
)

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runDemo, "demo", false, "seed the session and drive it with the built-in scripted engine")
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "watch the run in the terminal UI")
	runCmd.Flags().IntVar(&runMaxTurns, "max-turns", 0, "override run.hard_cap for this run")
	runCmd.Flags().StringVar(&runGoalText, "goal", "", "planning goal (demo seeding only)")
}

func runRun(cmd *cobra.Command, args []string) error {
	sessionID := args[0]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	dataDir := cfg.Paths.ResolveDataDir()
	store, err := session.NewFileStore(dataDir)
	if err != nil {
		return fmt.Errorf("failed to open session store at %s: %w", dataDir, err)
	}

	logger := logging.NopLogger()
	if cfg.Logging.Enabled {
		logger, err = logging.NewLogger(dataDir, cfg.Logging.Level)
		if err != nil {
			return fmt.Errorf("failed to open debug log: %w", err)
		}
		defer logger.Close()
	}

	ctx := cmd.Context()

	var engine agent.Engine
	if runDemo {
		if err := demo.Seed(ctx, store, sessionID, runGoalText); err != nil {
			return fmt.Errorf("failed to seed demo session: %w", err)
		}
		engine = demo.Engine()
	} else {
		// The reasoning engine is an external integration point; this build
		// ships only the scripted demo engine.
		return fmt.Errorf("no reasoning engine configured; run with --demo to use the built-in scripted engine")
	}

	meta, err := store.LoadMeta(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}
	if meta.Capabilities == nil {
		meta.Capabilities = map[string][]string{}
	}
	changed := false
	for _, p := range meta.Participants {
		if _, ok := meta.Capabilities[p.ID]; !ok && !p.IsAgent() {
			meta.Capabilities[p.ID] = cfg.Capabilities.DefaultEnabled
			changed = true
		}
	}
	if changed {
		if err := store.SaveMeta(ctx, sessionID, meta); err != nil {
			return fmt.Errorf("failed to save session meta: %w", err)
		}
	}

	caps := capability.NewBuiltinRegistry()
	adapter := agent.NewAdapter(engine, caps,
		agent.WithMaxRounds(cfg.Engine.MaxCapabilityRounds),
		agent.WithLogger(logger),
	)

	hardCap := cfg.Run.HardCap
	if runMaxTurns > 0 {
		hardCap = runMaxTurns
	}
	orchCfg := orchestrator.Config{
		HardCap:              hardCap,
		MinTurns:             cfg.Run.MinTurns,
		ConfidenceThreshold:  cfg.Run.ConfidenceThreshold,
		StallRepeatThreshold: cfg.Run.StallRepeatThreshold,
		ConsecutiveErrorCap:  cfg.Run.ConsecutiveErrorCap,
		MaxRetries:           cfg.Retry.MaxRetries,
		RetryBaseDelay:       cfg.Retry.BaseDelay(),
		WindowSize:           cfg.Run.WindowSize,
	}

	bus := event.NewBus()
	orch := orchestrator.New(store, adapter, caps, runreg.NewRegistry(), bus,
		orchestrator.WithConfig(orchCfg),
		orchestrator.WithLogger(logger),
	)

	if runTUI {
		return tui.Run(ctx, tui.Options{
			SessionID: sessionID,
			Bus:       bus,
			Config:    cfg.TUI,
			Start: func() error {
				_, err := orch.Run(ctx, sessionID)
				return err
			},
		})
	}

	printer := newEventPrinter(os.Stdout)
	id := bus.SubscribeAll(printer.handle)
	defer bus.Unsubscribe(id)

	res, err := orch.Run(ctx, sessionID)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "\nRun %s finished: %s after %d turn(s)\n", res.RunID, res.StopReason, res.TurnCount)
	return nil
}
