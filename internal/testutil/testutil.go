// Package testutil provides shared fixtures for Parley tests.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/parleyhq/parley/internal/event"
	"github.com/parleyhq/parley/internal/session"
	"github.com/parleyhq/parley/internal/state"
)

// TempStore creates a file-backed session store rooted in a test temp
// directory. The directory is cleaned up when the test completes.
func TempStore(t *testing.T) *session.FileStore {
	t.Helper()

	store, err := session.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create session store: %v", err)
	}
	return store
}

// SeedSession writes a session with the given participants, an empty
// canonical state, and one opening message from the first human in the
// roster.
func SeedSession(t *testing.T, store session.Store, sessionID string, participants ...state.Participant) session.Meta {
	t.Helper()

	now := time.Now().UTC()
	meta := session.Meta{
		SessionID:    sessionID,
		Participants: participants,
		CreatedAt:    now,
	}
	for _, p := range participants {
		if p.Kind == state.KindHuman {
			meta.Messages = []state.Message{{
				ID:        "m1",
				SessionID: sessionID,
				AuthorID:  p.ID,
				Role:      "human",
				Text:      "Let's make a plan.",
				CreatedAt: now,
			}}
			break
		}
	}

	ctx := context.Background()
	if err := store.SaveMeta(ctx, sessionID, meta); err != nil {
		t.Fatalf("failed to save session meta: %v", err)
	}
	if err := store.SaveState(ctx, sessionID, state.New()); err != nil {
		t.Fatalf("failed to save canonical state: %v", err)
	}
	return meta
}

// EventCollector records every event published on a bus, in order.
type EventCollector struct {
	mu     sync.Mutex
	events []event.Event
}

// Collect subscribes a new collector to all events on the bus.
func Collect(bus *event.Bus) *EventCollector {
	c := &EventCollector{}
	bus.SubscribeAll(func(e event.Event) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.events = append(c.events, e)
	})
	return c
}

// Events returns a snapshot of the collected events.
func (c *EventCollector) Events() []event.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]event.Event, len(c.events))
	copy(out, c.events)
	return out
}

// OfType returns the collected events with the given type, in order.
func (c *EventCollector) OfType(eventType string) []event.Event {
	var out []event.Event
	for _, e := range c.Events() {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}
