package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/parleyhq/parley/internal/capability"
	"github.com/parleyhq/parley/internal/errors"
	"github.com/parleyhq/parley/internal/logging"
	"github.com/parleyhq/parley/internal/state"
)

// DefaultMaxRounds is the hard cap on engine round-trips within one turn.
const DefaultMaxRounds = 5

// PromptContext bundles everything the adapter needs to issue a turn on
// behalf of one participant.
type PromptContext struct {
	// Participant is the agent taking the turn.
	Participant state.Participant
	// OwnerProfile is the read-only profile text of the owning human.
	OwnerProfile string
	// Others lists the remaining session participants.
	Others []state.Participant
	// State is a snapshot of canonical state at turn start.
	State state.CanonicalState
	// Window is the recent message window.
	Window []state.Message
	// EnabledCapabilities are the capability names available to this owner.
	EnabledCapabilities []string
}

// Adapter drives the bounded capability-resolution loop against a reasoning
// engine and normalizes the result into a TurnResult.
type Adapter struct {
	engine    Engine
	registry  *capability.Registry
	maxRounds int
	logger    *logging.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithMaxRounds overrides the engine round budget per turn.
func WithMaxRounds(n int) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.maxRounds = n
		}
	}
}

// WithLogger sets the adapter's logger.
func WithLogger(logger *logging.Logger) Option {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAdapter creates an adapter over an engine and a capability registry.
func NewAdapter(engine Engine, registry *capability.Registry, opts ...Option) *Adapter {
	a := &Adapter{
		engine:    engine,
		registry:  registry,
		maxRounds: DefaultMaxRounds,
		logger:    logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// CallAgent runs one agent turn: it offers the engine the finalize_turn
// capability plus the owner's enabled lookups, resolves capability requests
// round by round, and stops on an unaccompanied finalize or when the round
// budget runs out.
//
// If a finalize invocation arrives in the same response as other capability
// requests, finalizing is deferred one round so the final message can
// incorporate the fresh results — unless the budget is exhausted, in which
// case a finalize-only request is forced.
//
// A turn that never finalizes degrades to a best-effort synthesized result
// rather than an error, so the run loop always makes progress.
func (a *Adapter) CallAgent(ctx context.Context, pc PromptContext) (TurnResult, error) {
	req := Request{
		System:              buildSystemPrompt(pc),
		Messages:            windowToMessages(pc.Window),
		OfferedCapabilities: a.offeredCapabilities(pc.EnabledCapabilities),
	}

	var fragments []string
	logger := a.logger.WithParticipant(pc.Participant.ID)

	for round := 1; round <= a.maxRounds; round++ {
		resp, err := a.engine.Complete(ctx, req)
		if err != nil {
			return TurnResult{}, errors.NewAgentCallError("engine completion failed", err).
				WithParticipantID(pc.Participant.ID).
				WithRound(round)
		}

		fragments = append(fragments, resp.TextFragments...)

		finalize := resp.Finalize
		lookups := nonFinalizeInvocations(resp.Invocations)

		if finalize != nil && len(lookups) == 0 {
			return a.normalize(pc, finalize, fragments, round), nil
		}

		if len(lookups) > 0 {
			if round == a.maxRounds {
				break
			}

			for _, inv := range lookups {
				result := a.registry.Invoke(ctx, inv.Name, inv.Args)
				logger.Debug("capability resolved", "capability", inv.Name, "round", round)
				req.Messages = append(req.Messages, EngineMessage{
					Role: "tool",
					Name: inv.Name,
					Text: result,
				})
			}

			if finalize != nil {
				// Deferred finalize: ask once more with results in context.
				logger.Debug("finalize deferred for capability results", "round", round)
			}
			continue
		}

		// No lookups and no finalize: nudge the engine toward finalizing.
		req.ForceFinalize = true
	}

	// One last finalize-only request if the budget allowed lookups on the
	// final round.
	req.ForceFinalize = true
	resp, err := a.engine.Complete(ctx, req)
	if err != nil {
		return TurnResult{}, errors.NewAgentCallError("engine completion failed", err).
			WithParticipantID(pc.Participant.ID).
			WithRound(a.maxRounds + 1)
	}
	fragments = append(fragments, resp.TextFragments...)
	if resp.Finalize != nil {
		return a.normalize(pc, resp.Finalize, fragments, a.maxRounds+1), nil
	}

	logger.Warn("engine never finalized; synthesizing best-effort result",
		"rounds", a.maxRounds)
	return synthesizedResult(pc, fragments), nil
}

// offeredCapabilities builds the capability list for a request:
// finalize_turn is always first, followed by the enabled lookups.
func (a *Adapter) offeredCapabilities(enabled []string) []CapabilitySpec {
	specs := []CapabilitySpec{{
		Name:        FinalizeCapabilityName,
		Description: "End your turn with a structured result. You must eventually invoke this.",
	}}
	for _, name := range enabled {
		specs = append(specs, CapabilitySpec{
			Name:        name,
			Description: a.registry.Describe(name),
		})
	}
	return specs
}

// normalize converts a finalize payload into a TurnResult, applying the
// message fallback, citation-marker stripping and citation dedup rules.
func (a *Adapter) normalize(pc PromptContext, fp *FinalizePayload, fragments []string, rounds int) TurnResult {
	msg := strings.TrimSpace(fp.Message)
	if msg == "" {
		msg = strings.TrimSpace(strings.Join(fragments, "\n"))
	}
	msg = StripCitationMarkers(msg)

	confidence := -1.0
	if fp.Confidence != nil {
		confidence = *fp.Confidence
		if confidence < 0 {
			confidence = 0
		} else if confidence > 1 {
			confidence = 1
		}
	}

	return TurnResult{
		Participant:      pc.Participant,
		ShouldSkip:       fp.ShouldSkip,
		Message:          msg,
		NextAction:       parseNextAction(fp.NextAction),
		StatePatch:       fp.StatePatch,
		Confidence:       confidence,
		QuestionsForUser: fp.QuestionsForUser,
		NextSpeaker:      fp.NextSpeaker,
		Citations:        DedupeCitations(fp.Citations),
		Rounds:           rounds,
	}
}

// synthesizedResult is the degraded outcome for a turn whose engine never
// finalized: not skipped, minimal content, neutral next action.
func synthesizedResult(pc PromptContext, fragments []string) TurnResult {
	msg := StripCitationMarkers(strings.TrimSpace(strings.Join(fragments, "\n")))
	if msg == "" {
		msg = fmt.Sprintf("%s had nothing further to add this turn.", pc.Participant.DisplayName)
	}
	return TurnResult{
		Participant: pc.Participant,
		ShouldSkip:  false,
		Message:     msg,
		NextAction:  ActionContinue,
		Confidence:  -1,
		Rounds:      0,
	}
}

// parseNextAction maps wire values to NextAction. "DONE" is accepted as an
// alias for HANDOFF_DONE; anything unrecognized degrades to CONTINUE.
func parseNextAction(s string) NextAction {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "WAIT_FOR_USER":
		return ActionWaitForUser
	case "DONE", "HANDOFF_DONE":
		return ActionHandoffDone
	default:
		return ActionContinue
	}
}

func nonFinalizeInvocations(invs []Invocation) []Invocation {
	var out []Invocation
	for _, inv := range invs {
		if inv.Name != FinalizeCapabilityName {
			out = append(out, inv)
		}
	}
	return out
}

// StripCitationMarkers removes inline citation-marker wrappers of the form
// 【...】 from text, leaving only the wrapped content. Unbalanced markers are
// dropped.
func StripCitationMarkers(s string) string {
	if !strings.ContainsAny(s, "【】") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '【' || r == '】' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// DedupeCitations drops citations whose URL was already seen, preserving
// first-occurrence order. Citations without a URL are dropped.
func DedupeCitations(in []Citation) []Citation {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	var out []Citation
	for _, c := range in {
		url := strings.TrimSpace(c.URL)
		if url == "" {
			continue
		}
		if _, dup := seen[url]; dup {
			continue
		}
		seen[url] = struct{}{}
		c.URL = url
		out = append(out, c)
	}
	return out
}

func windowToMessages(window []state.Message) []EngineMessage {
	var out []EngineMessage
	for _, m := range window {
		role := "user"
		if m.Role == "agent" {
			role = "assistant"
		}
		out = append(out, EngineMessage{
			Role: role,
			Name: m.AuthorID,
			Text: m.Text,
		})
	}
	return out
}

// buildSystemPrompt assembles the participant's turn context. The exact
// wording is not contractual; the structure keeps the owner profile, group
// roster and current plan visible to the engine.
func buildSystemPrompt(pc PromptContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are %s, the planning agent for one participant in a group conversation.\n", pc.Participant.DisplayName)
	if pc.OwnerProfile != "" {
		fmt.Fprintf(&b, "\nYour owner's preferences:\n%s\n", pc.OwnerProfile)
	}

	if len(pc.Others) > 0 {
		b.WriteString("\nOther participants:\n")
		for _, p := range pc.Others {
			fmt.Fprintf(&b, "- %s (%s)\n", p.DisplayName, p.Kind)
		}
	}

	s := pc.State
	b.WriteString("\nCurrent plan state:\n")
	fmt.Fprintf(&b, "- Goal: %s\n", orNone(s.Goal))
	fmt.Fprintf(&b, "- Leading option: %s\n", orNone(s.LeadingOption))
	fmt.Fprintf(&b, "- Stage: %s\n", s.Stage)
	for _, c := range s.Constraints {
		fmt.Fprintf(&b, "- Constraint (%s): %s\n", c.ParticipantID, c.Text)
	}
	for _, q := range s.UnresolvedQuestions() {
		fmt.Fprintf(&b, "- Open question for %s: %s\n", q.Target, q.Text)
	}
	for _, step := range s.SuggestedNextSteps {
		fmt.Fprintf(&b, "- Next step: %s\n", step)
	}

	b.WriteString("\nWhen your turn is complete, invoke finalize_turn with your structured result.\n")
	return b.String()
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}
