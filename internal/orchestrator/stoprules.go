package orchestrator

import (
	"github.com/parleyhq/parley/internal/agent"
)

// EvaluateStop decides whether a completed turn should end the run. It is
// synchronous and side-effect free apart from recording handoff signals on
// the run state.
//
// A minimum-turns guard makes sure every agent in a multi-agent session gets
// at least one look before an early stop is honored: a WAIT_FOR_USER or
// low-confidence signal arriving before the guard is satisfied is deferred
// rather than honored. The handoff handshake is stricter still: it never
// fires while unresolved questions remain.
func EvaluateStop(rs *RunState, result agent.TurnResult, authorID string, agentIDs []string, unresolvedQuestions int, cfg Config) (StopReason, bool) {
	guard := rs.TurnCount >= cfg.MinTurns

	switch result.NextAction {
	case agent.ActionWaitForUser:
		if guard {
			return StopWaitForUser, true
		}
		return "", false

	case agent.ActionHandoffDone:
		rs.RecordHandoff(authorID)
		if unresolvedQuestions > 0 {
			return "", false
		}
		if rs.AllSignaled(agentIDs) {
			return StopHandoffDone, true
		}
		// Single-signal fast path once minimum turns have elapsed.
		if guard {
			return StopHandoffDone, true
		}
		return "", false
	}

	if guard && result.HasConfidence() && result.Confidence < cfg.ConfidenceThreshold && len(result.QuestionsForUser) > 0 {
		return StopWaitForUser, true
	}

	return "", false
}
