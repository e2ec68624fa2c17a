// Package profile exposes long-term user preferences as a read-only input
// to agent prompts. Profiles are owned by an external system; this package
// only defines the consumption boundary and a static in-memory provider.
package profile

import (
	"context"

	"github.com/parleyhq/parley/internal/state"
)

// Profile is one human's stored planning preferences.
type Profile struct {
	// Text is free-form profile prose injected into the owner's agent
	// prompt.
	Text string `json:"text"`
	// Preferences become stored_preference constraints, primed into
	// canonical state before the first turn of a run.
	Preferences []string `json:"preferences,omitempty"`
}

// Provider resolves the profile for a human participant. A missing profile
// is not an error; providers return the zero Profile.
type Provider interface {
	Get(ctx context.Context, humanID string) (Profile, error)
}

// StaticProvider serves profiles from a fixed map. Used by tests and the
// demo mode, and as the decode target for session meta.
type StaticProvider map[string]Profile

// Get returns the profile for humanID, or the zero Profile.
func (p StaticProvider) Get(_ context.Context, humanID string) (Profile, error) {
	return p[humanID], nil
}

// PreferenceConstraints converts a profile's preferences into constraints
// attributed to the owning human.
func PreferenceConstraints(humanID string, p Profile) []state.Constraint {
	var out []state.Constraint
	for _, pref := range p.Preferences {
		out = append(out, state.Constraint{
			ParticipantID: humanID,
			Text:          pref,
			Source:        state.SourceStoredPreference,
		})
	}
	return out
}
