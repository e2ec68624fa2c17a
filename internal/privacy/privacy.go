// Package privacy defines the optional filter pass applied to a drafted
// message before it is broadcast to the group. The filter can rewrite the
// draft to drop details the speaking participant's owner would not want
// shared; the default implementation passes drafts through unchanged.
package privacy

import (
	"context"

	"github.com/parleyhq/parley/internal/state"
)

// RewriteRequest carries a drafted message and its context to a filter.
type RewriteRequest struct {
	// Draft is the message as produced by the agent.
	Draft string
	// Speaker is the agent participant about to post the message.
	Speaker state.Participant
	// Audience is every other participant in the session.
	Audience []state.Participant
}

// Filter rewrites a drafted message before broadcast. Implementations must
// return the rewritten text; returning an error makes the orchestrator fall
// back to the unfiltered draft rather than failing the turn.
type Filter interface {
	Rewrite(ctx context.Context, req RewriteRequest) (string, error)
}

// Passthrough is the default no-op filter.
type Passthrough struct{}

// Rewrite returns the draft unchanged.
func (Passthrough) Rewrite(_ context.Context, req RewriteRequest) (string, error) {
	return req.Draft, nil
}
