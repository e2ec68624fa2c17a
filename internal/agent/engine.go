// Package agent translates a participant's turn into requests against the
// external reasoning engine and parses the structured result. The engine
// itself is a black box behind the Engine interface; this package owns the
// request/response contract, the bounded capability-resolution loop, and
// output normalization.
package agent

import (
	"context"

	"github.com/parleyhq/parley/internal/state"
)

// NextAction is the agent's signal for what the orchestrator should do
// after this turn.
type NextAction string

const (
	// ActionContinue lets another agent speak.
	ActionContinue NextAction = "CONTINUE"
	// ActionWaitForUser pauses the run for human input.
	ActionWaitForUser NextAction = "WAIT_FOR_USER"
	// ActionHandoffDone signals the agent believes the plan is ready for
	// human review.
	ActionHandoffDone NextAction = "HANDOFF_DONE"
)

// FinalizeCapabilityName is the mandatory capability the engine must invoke
// to end its turn.
const FinalizeCapabilityName = "finalize_turn"

// CapabilitySpec describes a capability offered to the engine in a request.
type CapabilitySpec struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Invocation is a capability request parsed from an engine response.
type Invocation struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// Citation is a source reference returned by the engine.
type Citation struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// QuestionForUser is a question the agent wants relayed to a human.
type QuestionForUser struct {
	Target string `json:"target"`
	Text   string `json:"text"`
}

// FinalizePayload is the structured result of a finalize_turn invocation.
// NextAction accepts "DONE" on the wire as an alias for "HANDOFF_DONE".
type FinalizePayload struct {
	ShouldSkip       bool              `json:"should_skip"`
	Message          string            `json:"message,omitempty"`
	NextAction       string            `json:"next_action"`
	StatePatch       *state.StatePatch `json:"state_patch,omitempty"`
	Confidence       *float64          `json:"confidence,omitempty"`
	QuestionsForUser []QuestionForUser `json:"questions_for_user,omitempty"`
	NextSpeaker      string            `json:"next_speaker,omitempty"`
	Citations        []Citation        `json:"citations,omitempty"`
}

// Request is one round-trip to the reasoning engine.
type Request struct {
	// System carries the participant's prompt context (owner profile, other
	// participants, canonical state).
	System string
	// Messages is the recent conversation window plus any capability
	// results appended during this turn.
	Messages []EngineMessage
	// OfferedCapabilities always includes finalize_turn; the rest are the
	// owner's enabled information-retrieval capabilities.
	OfferedCapabilities []CapabilitySpec
	// ForceFinalize asks the engine for a finalize-only response; set when
	// the round budget is exhausted.
	ForceFinalize bool
}

// EngineMessage is one conversational item in a Request.
type EngineMessage struct {
	Role string // "user", "assistant", "tool"
	Name string // capability name for tool results
	Text string
}

// Response is the engine's answer to one Request.
type Response struct {
	TextFragments []string
	Invocations   []Invocation
	Finalize      *FinalizePayload
}

// Engine is the external reasoning engine boundary.
type Engine interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// TurnResult is the normalized outcome of one agent turn, consumed by the
// orchestrator.
type TurnResult struct {
	Participant state.Participant
	ShouldSkip  bool
	Message     string
	NextAction  NextAction
	StatePatch  *state.StatePatch
	// Confidence is in [0,1]; negative means the agent did not report one.
	Confidence       float64
	QuestionsForUser []QuestionForUser
	// NextSpeaker is a hint naming the agent that should speak next.
	NextSpeaker string
	Citations   []Citation
	// Rounds is how many engine round-trips the turn took.
	Rounds int
}

// HasConfidence reports whether the agent supplied a confidence score.
func (r TurnResult) HasConfidence() bool { return r.Confidence >= 0 }
