package event

import (
	"sync"
	"testing"

	"github.com/parleyhq/parley/internal/state"
)

// collector gathers events from the bus for assertions.
type collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *collector) handler(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *collector) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, e := range c.events {
		out = append(out, e.EventType())
	}
	return out
}

func TestBus_SubscribeSpecificType(t *testing.T) {
	bus := NewBus()
	c := &collector{}
	bus.Subscribe("run.message", c.handler)

	bus.Publish(NewMessageEvent("r1", "s1", "agent-a", "hello", nil))
	bus.Publish(NewStatusEvent("r1", "s1", "speaker_selected", "agent-b"))

	got := c.types()
	if len(got) != 1 || got[0] != "run.message" {
		t.Errorf("received = %v, want only run.message", got)
	}
}

func TestBus_SubscribeAllPreservesOrder(t *testing.T) {
	bus := NewBus()
	c := &collector{}
	bus.SubscribeAll(c.handler)

	bus.Publish(NewMessageEvent("r1", "s1", "agent-a", "hello", nil))
	bus.Publish(NewStateUpdateEvent("r1", "s1", "agent-a", state.New()))
	bus.Publish(NewDoneEvent("r1", "s1", "WAIT_FOR_USER", 3))

	want := []string{"run.message", "run.state_update", "run.done"}
	got := c.types()
	if len(got) != len(want) {
		t.Fatalf("received %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	c := &collector{}
	id := bus.SubscribeAll(c.handler)

	if !bus.Unsubscribe(id) {
		t.Fatal("Unsubscribe should find the subscription")
	}
	bus.Publish(NewStatusEvent("r1", "s1", "x", ""))
	if len(c.types()) != 0 {
		t.Error("unsubscribed handler should not receive events")
	}

	if bus.Unsubscribe(id) {
		t.Error("second Unsubscribe should return false")
	}
}

func TestBus_SubscriptionIDsNeverRecycle(t *testing.T) {
	// A long-lived process can churn through many subscriptions; an ID must
	// never come back and alias a later subscriber.
	bus := NewBus()
	seen := make(map[string]bool)
	for i := 0; i < 10000; i++ {
		id := bus.Subscribe("run.status", func(Event) {})
		if seen[id] {
			t.Fatalf("subscription ID %q issued twice (iteration %d)", id, i)
		}
		seen[id] = true
		bus.Unsubscribe(id)
	}
}

func TestBus_PanickingHandlerDoesNotBlockOthers(t *testing.T) {
	bus := NewBus()
	bus.SubscribeAll(func(Event) { panic("handler bug") })
	c := &collector{}
	bus.SubscribeAll(c.handler)

	bus.Publish(NewStatusEvent("r1", "s1", "x", ""))
	if len(c.types()) != 1 {
		t.Error("second handler should still receive the event")
	}
}
