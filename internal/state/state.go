// Package state defines the canonical planning document shared by all
// participants in a session, the patches agents propose against it, and the
// reducer that merges patches into canonical state.
//
// CanonicalState is created once per session and persists across many runs.
// It is mutated only through Apply, by exactly one writer at a time (the
// active run's loop). StatePatch values are transient: produced by one agent
// turn and consumed once by the reducer.
package state

import "time"

// Stage is the coarse phase indicator for a session.
type Stage string

const (
	// StageNegotiating means agents are actively exchanging proposals.
	StageNegotiating Stage = "negotiating"
	// StageSearching means an agent is gathering external information.
	StageSearching Stage = "searching"
	// StageWaitingForUser means the session is blocked on human input.
	StageWaitingForUser Stage = "waiting_for_user"
	// StageConverged means all agents consider the plan ready for review.
	StageConverged Stage = "converged"
)

// ConstraintSource identifies where a constraint came from.
type ConstraintSource string

const (
	// SourceStoredPreference marks a constraint imported from the owner's
	// long-term profile.
	SourceStoredPreference ConstraintSource = "stored_preference"
	// SourceSessionStatement marks a constraint stated during this session.
	// A session statement supersedes stored preferences for the same
	// participant.
	SourceSessionStatement ConstraintSource = "session_statement"
)

// Constraint is a participant-scoped requirement on the plan.
type Constraint struct {
	ParticipantID string           `json:"participant_id"`
	Text          string           `json:"text"`
	Source        ConstraintSource `json:"source"`
	AddedAt       time.Time        `json:"added_at"`
}

// Question is an open question raised during planning. Questions are never
// deleted: resolving one only flips Resolved, preserving the audit trail.
type Question struct {
	ID       string    `json:"id"`
	Target   string    `json:"target"` // participant ID the question is addressed to
	Text     string    `json:"text"`
	AskedBy  string    `json:"asked_by"`
	AskedAt  time.Time `json:"asked_at"`
	Resolved bool      `json:"resolved"`
}

// DecisionStatus tracks how far along a pending decision is.
type DecisionStatus string

const (
	DecisionProposed             DecisionStatus = "proposed"
	DecisionAwaitingConfirmation DecisionStatus = "awaiting_confirmation"
	DecisionConfirmed            DecisionStatus = "confirmed"
)

// Decision is a pending decision the group is converging on. The agent that
// supplies a patch owns the authoritative decision list each time: the entire
// list is replaced wholesale, never merged field-by-field.
type Decision struct {
	Topic                 string         `json:"topic"`
	Status                DecisionStatus `json:"status"`
	Options               []string       `json:"options,omitempty"`
	ConfirmedValue        string         `json:"confirmed_value,omitempty"`
	ConfirmationsNeeded   int            `json:"confirmations_needed,omitempty"`
	ConfirmationsReceived int            `json:"confirmations_received,omitempty"`
}

// CanonicalState is the single shared mutable planning document for a session.
type CanonicalState struct {
	// Goal is the free-text objective, set once by a human and immutable
	// thereafter except by explicit override.
	Goal string `json:"goal"`

	// LeadingOption is the rolling best current plan snapshot. It is
	// monotonically refined and never silently dropped.
	LeadingOption string `json:"leading_option"`

	// StatusSummary is a short bullet list, fully replaced on each patch
	// that supplies it.
	StatusSummary []string `json:"status_summary,omitempty"`

	Constraints   []Constraint `json:"constraints,omitempty"`
	OpenQuestions []Question   `json:"open_questions,omitempty"`

	// PendingDecisions is replaced wholesale by a patch when present.
	PendingDecisions []Decision `json:"pending_decisions,omitempty"`

	// SuggestedNextSteps is a short replaceable list of concrete pending
	// actions. Kept to at most MaxNextSteps entries.
	SuggestedNextSteps []string `json:"suggested_next_steps,omitempty"`

	Stage Stage `json:"stage"`

	LastUpdatedAt time.Time `json:"last_updated_at"`
	LastUpdatedBy string    `json:"last_updated_by"`
}

// MaxNextSteps bounds the SuggestedNextSteps list.
const MaxNextSteps = 5

// New returns an empty canonical state in the negotiating stage.
func New() CanonicalState {
	return CanonicalState{Stage: StageNegotiating}
}

// StatePatch is a partial, turn-scoped proposal to change canonical state.
// Nil slice fields mean "not supplied"; non-nil empty slices replace with
// empty for the wholesale-replace fields.
type StatePatch struct {
	Goal               *string      `json:"goal,omitempty"`
	LeadingOption      *string      `json:"leading_option,omitempty"`
	StatusSummary      []string     `json:"status_summary,omitempty"`
	Constraints        []Constraint `json:"constraints,omitempty"`
	OpenQuestions      []Question   `json:"open_questions,omitempty"`
	PendingDecisions   []Decision   `json:"pending_decisions,omitempty"`
	SuggestedNextSteps []string     `json:"suggested_next_steps,omitempty"`
	Stage              *Stage       `json:"stage,omitempty"`
	ResolveQuestionIDs []string     `json:"resolve_question_ids,omitempty"`
}

// IsZero reports whether the patch proposes no changes at all.
func (p *StatePatch) IsZero() bool {
	if p == nil {
		return true
	}
	return p.Goal == nil && p.LeadingOption == nil && p.StatusSummary == nil &&
		p.Constraints == nil && p.OpenQuestions == nil && p.PendingDecisions == nil &&
		p.SuggestedNextSteps == nil && p.Stage == nil && len(p.ResolveQuestionIDs) == 0
}

// ParticipantKind distinguishes humans from their agents.
type ParticipantKind string

const (
	KindHuman ParticipantKind = "human"
	KindAgent ParticipantKind = "agent"
)

// Participant is a member of a session. An agent always has exactly one
// owning human (OwnerID). Participants are immutable for the session
// lifetime.
type Participant struct {
	ID          string          `json:"id"`
	Kind        ParticipantKind `json:"kind"`
	DisplayName string          `json:"display_name"`
	OwnerID     string          `json:"owner_id,omitempty"`
}

// IsAgent reports whether the participant is an agent actor.
func (p Participant) IsAgent() bool { return p.Kind == KindAgent }

// UnresolvedQuestions returns the open questions that have not been resolved,
// in insertion order.
func (s CanonicalState) UnresolvedQuestions() []Question {
	var out []Question
	for _, q := range s.OpenQuestions {
		if !q.Resolved {
			out = append(out, q)
		}
	}
	return out
}

// Clone returns a deep copy of the state. Patches never alias the slices of
// the state they were reduced into, so a clone is safe to hand to callers.
func (s CanonicalState) Clone() CanonicalState {
	out := s
	out.StatusSummary = cloneStrings(s.StatusSummary)
	out.SuggestedNextSteps = cloneStrings(s.SuggestedNextSteps)
	if s.Constraints != nil {
		out.Constraints = make([]Constraint, len(s.Constraints))
		copy(out.Constraints, s.Constraints)
	}
	if s.OpenQuestions != nil {
		out.OpenQuestions = make([]Question, len(s.OpenQuestions))
		copy(out.OpenQuestions, s.OpenQuestions)
	}
	if s.PendingDecisions != nil {
		out.PendingDecisions = make([]Decision, len(s.PendingDecisions))
		for i, d := range s.PendingDecisions {
			d.Options = cloneStrings(d.Options)
			out.PendingDecisions[i] = d
		}
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
