// Package event defines the run event stream emitted by the orchestrator
// and a synchronous pub-sub bus for delivering it. Callers (CLI, TUI,
// transports) consume events without a direct dependency on the
// orchestrator.
//
// Within one run, events form an ordered sequence: a message event always
// precedes any state_update derived from the same turn, and exactly one
// done event terminates the stream.
package event

import (
	"time"

	"github.com/parleyhq/parley/internal/state"
)

// Event is the interface that all run events implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "run.message", "run.state_update", "run.status",
	// "run.error", "run.done".
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time

	// RunID identifies the run the event belongs to.
	RunID() string
}

// Event type identifiers.
const (
	TypeMessage     = "run.message"
	TypeStateUpdate = "run.state_update"
	TypeStatus      = "run.status"
	TypeError       = "run.error"
	TypeDone        = "run.done"
)

// baseEvent provides common fields for all events.
type baseEvent struct {
	eventType string
	timestamp time.Time
	runID     string
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }
func (e baseEvent) RunID() string        { return e.runID }

func newBaseEvent(eventType, runID string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
		runID:     runID,
	}
}

// Citation is a source reference attached to a message.
type Citation struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// MessageEvent is emitted when an agent's turn produces a visible message.
type MessageEvent struct {
	baseEvent
	SessionID string
	AuthorID  string
	Text      string
	Citations []Citation
}

// NewMessageEvent creates a MessageEvent.
func NewMessageEvent(runID, sessionID, authorID, text string, citations []Citation) MessageEvent {
	return MessageEvent{
		baseEvent: newBaseEvent(TypeMessage, runID),
		SessionID: sessionID,
		AuthorID:  authorID,
		Text:      text,
		Citations: citations,
	}
}

// StateUpdateEvent is emitted after a patch has been applied to canonical
// state. It carries a snapshot, not a live reference.
type StateUpdateEvent struct {
	baseEvent
	SessionID string
	AuthorID  string
	State     state.CanonicalState
}

// NewStateUpdateEvent creates a StateUpdateEvent.
func NewStateUpdateEvent(runID, sessionID, authorID string, snapshot state.CanonicalState) StateUpdateEvent {
	return StateUpdateEvent{
		baseEvent: newBaseEvent(TypeStateUpdate, runID),
		SessionID: sessionID,
		AuthorID:  authorID,
		State:     snapshot,
	}
}

// StatusEvent reports run progress that is not tied to a message, such as a
// speaker being selected or a turn being skipped.
type StatusEvent struct {
	baseEvent
	SessionID string
	Status    string
	Detail    string
}

// NewStatusEvent creates a StatusEvent.
func NewStatusEvent(runID, sessionID, status, detail string) StatusEvent {
	return StatusEvent{
		baseEvent: newBaseEvent(TypeStatus, runID),
		SessionID: sessionID,
		Status:    status,
		Detail:    detail,
	}
}

// ErrorEvent surfaces a non-fatal turn failure. The run continues with the
// next speaker unless the consecutive-error cap is reached.
type ErrorEvent struct {
	baseEvent
	SessionID string
	Speaker   string
	Err       string
}

// NewErrorEvent creates an ErrorEvent.
func NewErrorEvent(runID, sessionID, speaker string, err error) ErrorEvent {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return ErrorEvent{
		baseEvent: newBaseEvent(TypeError, runID),
		SessionID: sessionID,
		Speaker:   speaker,
		Err:       msg,
	}
}

// DoneEvent terminates a run's event stream. Exactly one is emitted per run.
type DoneEvent struct {
	baseEvent
	SessionID  string
	StopReason string
	TurnCount  int
}

// NewDoneEvent creates a DoneEvent.
func NewDoneEvent(runID, sessionID, stopReason string, turnCount int) DoneEvent {
	return DoneEvent{
		baseEvent:  newBaseEvent(TypeDone, runID),
		SessionID:  sessionID,
		StopReason: stopReason,
		TurnCount:  turnCount,
	}
}
