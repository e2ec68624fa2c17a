// Package demo seeds an offline two-participant session and a scripted
// reasoning engine so the orchestrator can be exercised end to end without
// any external engine. The script walks a small dinner-planning negotiation
// that touches capability lookups, state patches, questions, and handoff.
package demo

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/parleyhq/parley/internal/agent"
	"github.com/parleyhq/parley/internal/profile"
	"github.com/parleyhq/parley/internal/session"
	"github.com/parleyhq/parley/internal/state"
)

// DefaultGoal is used when the caller does not supply one.
const DefaultGoal = "Find a dinner plan for this week that works for everyone"

// Seed writes a fresh two-human, two-agent session. An existing session with
// the same ID is overwritten.
func Seed(ctx context.Context, store session.Store, sessionID, goal string) error {
	if goal == "" {
		goal = DefaultGoal
	}
	now := time.Now().UTC()

	meta := session.Meta{
		SessionID: sessionID,
		Participants: []state.Participant{
			{ID: "ada", Kind: state.KindHuman, DisplayName: "Ada"},
			{ID: "ben", Kind: state.KindHuman, DisplayName: "Ben"},
			{ID: "agent-ada", Kind: state.KindAgent, DisplayName: "Ada's agent", OwnerID: "ada"},
			{ID: "agent-ben", Kind: state.KindAgent, DisplayName: "Ben's agent", OwnerID: "ben"},
		},
		Profiles: map[string]profile.Profile{
			"ada": {
				Text:        "Ada is a vegetarian who prefers quiet restaurants and early evenings.",
				Preferences: []string{"vegetarian options required"},
			},
			"ben": {
				Text:        "Ben works late on Tuesdays and Thursdays and loves trying new places.",
				Preferences: []string{"nothing before 7pm on weekdays"},
			},
		},
		Capabilities: map[string][]string{
			"ada": {"*"},
			"ben": {"*"},
		},
		Messages: []state.Message{{
			ID:        uuid.NewString(),
			SessionID: sessionID,
			AuthorID:  "ada",
			Role:      "human",
			Text:      goal,
			CreatedAt: now,
		}},
		CreatedAt: now,
	}

	if err := store.SaveMeta(ctx, sessionID, meta); err != nil {
		return err
	}

	st := state.New()
	g := goal
	st = state.Apply(st, &state.StatePatch{Goal: &g}, "ada", now)
	return store.SaveState(ctx, sessionID, st)
}

// Engine returns the scripted demo conversation.
func Engine() *agent.ScriptedEngine {
	option := "Dinner Friday 7:30pm at Verdura (vegetarian-friendly)"
	conf := 0.8

	return agent.NewScriptedEngine(
		// Turn 1, Ada's agent: check the date before proposing anything.
		agent.InvokeResponse(agent.Invocation{
			Name: "date_info",
			Args: map[string]any{"query": "next friday"},
		}),
		agent.FinalizeResponse(agent.FinalizePayload{
			Message:    "Ada would like dinner this week. She's vegetarian and prefers earlier evenings, so I'd suggest Friday at 7:30pm somewhere with good vegetarian options.",
			NextAction: string(agent.ActionContinue),
			StatePatch: &state.StatePatch{
				LeadingOption: &option,
				StatusSummary: []string{"Friday evening proposed", "venue needs Ben's confirmation"},
				Constraints: []state.Constraint{{
					ParticipantID: "ada",
					Text:          "prefers dinner before 8pm",
					Source:        state.SourceSessionStatement,
				}},
			},
		}),
		// Turn 2, Ben's agent: search for the venue, then accept with a tweak.
		agent.InvokeResponse(agent.Invocation{
			Name: "place_search",
			Args: map[string]any{"query": "Verdura vegetarian restaurant"},
		}),
		agent.FinalizeResponse(agent.FinalizePayload{
			Message:    "Friday works for Ben — he's only blocked Tuesdays and Thursdays. Verdura looks good; he asks whether Ada wants indoor or terrace seating.",
			NextAction: string(agent.ActionContinue),
			Confidence: &conf,
			StatePatch: &state.StatePatch{
				StatusSummary: []string{"Friday 7:30pm agreed in principle", "seating preference open"},
				SuggestedNextSteps: []string{
					"Ada to pick indoor or terrace seating",
					"book a table for two at Verdura",
				},
			},
			QuestionsForUser: []agent.QuestionForUser{{
				Target: "ada",
				Text:   "Indoor or terrace seating at Verdura?",
			}},
		}),
		// Turn 3, Ada's agent: resolve and hand back to the humans.
		agent.FinalizeResponse(agent.FinalizePayload{
			Message:    "I'll flag the seating question for Ada and otherwise this plan is ready: Verdura, Friday 7:30pm.",
			NextAction: string(agent.ActionWaitForUser),
			StatePatch: &state.StatePatch{
				StatusSummary: []string{"plan ready pending Ada's seating choice"},
			},
		}),
	)
}
