// Package internal contains integration tests that verify the packages work
// together: storage, file watching, the event bus, and the orchestrator loop.
package internal

import (
	"context"
	"testing"
	"time"

	"github.com/parleyhq/parley/internal/agent"
	"github.com/parleyhq/parley/internal/capability"
	"github.com/parleyhq/parley/internal/demo"
	"github.com/parleyhq/parley/internal/event"
	"github.com/parleyhq/parley/internal/orchestrator"
	"github.com/parleyhq/parley/internal/runreg"
	"github.com/parleyhq/parley/internal/session"
	"github.com/parleyhq/parley/internal/state"
	"github.com/parleyhq/parley/internal/testutil"
)

// TestFullRunPersistsStateAndStreamsEvents drives the scripted demo
// conversation through a real file store and checks the pieces agree: the
// event stream is well formed, the final state on disk matches the run
// result, and a watcher on the state file observes the writes.
func TestFullRunPersistsStateAndStreamsEvents(t *testing.T) {
	store := testutil.TempStore(t)
	ctx := context.Background()

	if err := demo.Seed(ctx, store, "picnic", "Plan a team dinner"); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	watcher, err := session.NewWatcher(store, "picnic", nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer watcher.Close()

	caps := capability.NewBuiltinRegistry()
	adapter := agent.NewAdapter(demo.Engine(), caps)
	bus := event.NewBus()
	collector := testutil.Collect(bus)

	orch := orchestrator.New(store, adapter, caps, runreg.NewRegistry(), bus,
		orchestrator.WithSleep(func(ctx context.Context, d time.Duration) error { return nil }),
	)

	res, err := orch.Run(ctx, "picnic")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.StopReason != orchestrator.StopWaitForUser {
		t.Fatalf("StopReason = %v, want %v", res.StopReason, orchestrator.StopWaitForUser)
	}

	events := collector.Events()
	if len(events) == 0 {
		t.Fatal("no events published")
	}
	if got := events[len(events)-1].EventType(); got != event.TypeDone {
		t.Errorf("last event = %q, want %q", got, event.TypeDone)
	}
	if n := len(collector.OfType(event.TypeDone)); n != 1 {
		t.Errorf("done events = %d, want exactly 1", n)
	}
	for _, e := range events {
		if e.RunID() != res.RunID {
			t.Errorf("event %q carries run ID %q, want %q", e.EventType(), e.RunID(), res.RunID)
		}
	}

	// The persisted state is the run's final state.
	onDisk, err := store.LoadState(ctx, "picnic")
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if onDisk.Stage != state.StageWaitingForUser {
		t.Errorf("stage on disk = %v, want waiting_for_user", onDisk.Stage)
	}
	if onDisk.LeadingOption != res.FinalState.LeadingOption {
		t.Errorf("leading option on disk = %q, result has %q", onDisk.LeadingOption, res.FinalState.LeadingOption)
	}
	if onDisk.Goal != "Plan a team dinner" {
		t.Errorf("goal = %q, want seeded goal", onDisk.Goal)
	}

	select {
	case <-watcher.Changes():
	case <-time.After(2 * time.Second):
		t.Error("watcher observed no state writes during the run")
	}

	// The transcript now holds the agents' turn messages after the seed
	// message.
	meta, err := store.LoadMeta(ctx, "picnic")
	if err != nil {
		t.Fatalf("LoadMeta: %v", err)
	}
	if len(meta.Messages) < 2 {
		t.Errorf("messages = %d, want the seed message plus agent turns", len(meta.Messages))
	}
	for _, m := range meta.Messages[1:] {
		if m.Role != "agent" {
			t.Errorf("message %s role = %q, want agent", m.ID, m.Role)
		}
	}
}

// TestSupersedingRunCancelsPredecessor checks the live-run registry across
// two orchestrators sharing a store: when a second run begins on the same
// session, the first exits with a cancelled stop reason and stops writing.
func TestSupersedingRunCancelsPredecessor(t *testing.T) {
	store := testutil.TempStore(t)
	ctx := context.Background()
	testutil.SeedSession(t, store, "picnic",
		state.Participant{ID: "ada", Kind: state.KindHuman, DisplayName: "Ada"},
		state.Participant{ID: "agent-ada", Kind: state.KindAgent, DisplayName: "Ada's agent", OwnerID: "ada"},
	)

	registry := runreg.NewRegistry()
	caps := capability.NewBuiltinRegistry()
	bus := event.NewBus()

	// The wrapper engine registers a newer run for the same session while
	// the first run's opening turn is in flight.
	engine := &supersedeEngine{inner: demo.Engine(), registry: registry}
	adapter := agent.NewAdapter(engine, caps)
	orch := orchestrator.New(store, adapter, caps, registry, bus,
		orchestrator.WithSleep(func(ctx context.Context, d time.Duration) error { return nil }),
	)

	res, err := orch.Run(ctx, "picnic")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.StopReason != orchestrator.StopCancelled {
		t.Errorf("StopReason = %v, want %v", res.StopReason, orchestrator.StopCancelled)
	}

	if id, ok := registry.LiveRun("picnic"); !ok || id != "newer-run" {
		t.Errorf("live run = %q, %v; the superseding run should still hold the session", id, ok)
	}
}

// supersedeEngine registers a newer run for the session before delegating,
// so the caller's run is stale by the time its first turn returns.
type supersedeEngine struct {
	inner    agent.Engine
	registry *runreg.Registry
	once     bool
}

func (s *supersedeEngine) Complete(ctx context.Context, req agent.Request) (agent.Response, error) {
	if !s.once {
		s.once = true
		s.registry.Begin("picnic", "newer-run")
	}
	return s.inner.Complete(ctx, req)
}
