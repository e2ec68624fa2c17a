package orchestrator

// StopReason is the single terminal classification of a run.
type StopReason string

const (
	// StopWaitForUser means an agent asked to pause for human input.
	StopWaitForUser StopReason = "WAIT_FOR_USER"
	// StopHandoffDone means the agents agree the plan is ready for review.
	StopHandoffDone StopReason = "HANDOFF_DONE"
	// StopCapReached means the turn budget ran out.
	StopCapReached StopReason = "CAP_REACHED"
	// StopStallDetected means repeated content-identical state across turns.
	StopStallDetected StopReason = "STALL_DETECTED"
	// StopRunError means the consecutive-error cap was hit or the session
	// configuration is unusable.
	StopRunError StopReason = "ERROR"
	// StopCancelled means a newer run superseded this one in the registry.
	StopCancelled StopReason = "CANCELLED"
)

// RunState is the per-run bookkeeping discarded at run end. Signatures grows
// by exactly one entry per completed (non-skipped) turn; HandoffSignaledBy
// only grows.
type RunState struct {
	RunID             string
	TurnCount         int
	LastSpeaker       string
	StopReason        StopReason
	Signatures        []string
	HandoffSignaledBy map[string]struct{}
}

// NewRunState creates the bookkeeping for a fresh run.
func NewRunState(runID string) *RunState {
	return &RunState{
		RunID:             runID,
		HandoffSignaledBy: map[string]struct{}{},
	}
}

// RecordHandoff marks an agent as having signaled it considers the plan done.
func (rs *RunState) RecordHandoff(agentID string) {
	rs.HandoffSignaledBy[agentID] = struct{}{}
}

// AllSignaled reports whether every listed agent has signaled handoff.
func (rs *RunState) AllSignaled(agentIDs []string) bool {
	if len(agentIDs) == 0 {
		return false
	}
	for _, id := range agentIDs {
		if _, ok := rs.HandoffSignaledBy[id]; !ok {
			return false
		}
	}
	return true
}
