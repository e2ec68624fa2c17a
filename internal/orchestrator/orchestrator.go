// Package orchestrator runs the sequential turn loop for a session: it
// selects the next speaking agent, invokes it through the retry-wrapped
// adapter, merges the resulting patch into canonical state, watches for
// stalls, and enforces the stop rules. A session has a single live-run slot;
// a superseded run notices at its next iteration boundary and exits with
// CANCELLED without touching state again.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/parleyhq/parley/internal/agent"
	"github.com/parleyhq/parley/internal/capability"
	"github.com/parleyhq/parley/internal/errors"
	"github.com/parleyhq/parley/internal/event"
	"github.com/parleyhq/parley/internal/logging"
	"github.com/parleyhq/parley/internal/privacy"
	"github.com/parleyhq/parley/internal/profile"
	"github.com/parleyhq/parley/internal/retry"
	"github.com/parleyhq/parley/internal/runreg"
	"github.com/parleyhq/parley/internal/session"
	"github.com/parleyhq/parley/internal/stall"
	"github.com/parleyhq/parley/internal/state"
)

// ModeratorID attributes orchestrator-synthesized messages and patches, such
// as the cap-reached handoff summary and the stall-injected question.
const ModeratorID = "moderator"

// Config holds the orchestration knobs. Zero values are replaced with the
// defaults below.
type Config struct {
	// HardCap bounds the total turns in one run.
	HardCap int
	// MinTurns is the minimum-turns guard before early stops are honored.
	MinTurns int
	// ConfidenceThreshold is the cutoff below which an agent's open
	// questions pause the run for human input.
	ConfidenceThreshold float64
	// StallRepeatThreshold is how many prior consecutive occurrences of a
	// state signature declare a stall.
	StallRepeatThreshold int
	// ConsecutiveErrorCap stops the run after this many agent-call
	// failures in a row.
	ConsecutiveErrorCap int
	// MaxRetries is the retry budget per agent call for rate-limited
	// failures.
	MaxRetries int
	// RetryBaseDelay is the backoff base for retried agent calls.
	RetryBaseDelay time.Duration
	// WindowSize is how many recent messages agents see.
	WindowSize int
}

// Defaults for Config.
const (
	DefaultHardCap              = 12
	DefaultMinTurns             = 2
	DefaultConfidenceThreshold  = 0.55
	DefaultStallRepeatThreshold = stall.DefaultRepeatThreshold
	DefaultConsecutiveErrorCap  = 3
	DefaultMaxRetries           = 2
	DefaultWindowSize           = 20
)

func (c *Config) setDefaults() {
	if c.HardCap <= 0 {
		c.HardCap = DefaultHardCap
	}
	if c.MinTurns <= 0 {
		c.MinTurns = DefaultMinTurns
	}
	if c.ConfidenceThreshold <= 0 {
		c.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if c.StallRepeatThreshold <= 0 {
		c.StallRepeatThreshold = DefaultStallRepeatThreshold
	}
	if c.ConsecutiveErrorCap <= 0 {
		c.ConsecutiveErrorCap = DefaultConsecutiveErrorCap
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = retry.DefaultBaseDelay
	}
	if c.WindowSize <= 0 {
		c.WindowSize = DefaultWindowSize
	}
}

// Orchestrator drives runs for sessions held in a Store.
type Orchestrator struct {
	store    session.Store
	adapter  *agent.Adapter
	caps     *capability.Registry
	registry *runreg.Registry
	bus      *event.Bus
	filter   privacy.Filter
	profiles profile.Provider
	config   Config
	logger   *logging.Logger

	// now and sleep are injection points for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) OrchestratorOption {
	return func(o *Orchestrator) { o.config = cfg }
}

// WithFilter installs a privacy filter for outgoing messages.
func WithFilter(f privacy.Filter) OrchestratorOption {
	return func(o *Orchestrator) {
		if f != nil {
			o.filter = f
		}
	}
}

// WithProfiles installs a profile provider; without one, profiles come from
// session meta.
func WithProfiles(p profile.Provider) OrchestratorOption {
	return func(o *Orchestrator) { o.profiles = p }
}

// WithLogger sets the orchestrator's logger.
func WithLogger(logger *logging.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithSleep overrides the retry backoff sleeper. Used by tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) OrchestratorOption {
	return func(o *Orchestrator) {
		if sleep != nil {
			o.sleep = sleep
		}
	}
}

// New creates an Orchestrator.
func New(store session.Store, adapter *agent.Adapter, caps *capability.Registry, registry *runreg.Registry, bus *event.Bus, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		store:    store,
		adapter:  adapter,
		caps:     caps,
		registry: registry,
		bus:      bus,
		filter:   privacy.Passthrough{},
		logger:   logging.NopLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.config.setDefaults()
	return o
}

// Config returns the effective configuration.
func (o *Orchestrator) Config() Config { return o.config }

// RunResult summarizes a finished run.
type RunResult struct {
	RunID      string
	StopReason StopReason
	TurnCount  int
	FinalState state.CanonicalState
}

// Run executes one orchestration run for the session and blocks until it
// stops. Starting a run unconditionally claims the session's live-run slot,
// cancelling any prior run at its next iteration boundary.
func (o *Orchestrator) Run(ctx context.Context, sessionID string) (RunResult, error) {
	runID := uuid.NewString()
	logger := o.logger.WithSession(sessionID).WithRun(runID)

	meta, err := o.store.LoadMeta(ctx, sessionID)
	if err != nil {
		return RunResult{RunID: runID}, errors.NewOrchestratorError("load session meta", err).WithRunID(runID)
	}
	st, err := o.store.LoadState(ctx, sessionID)
	if err != nil {
		return RunResult{RunID: runID}, errors.NewOrchestratorError("load canonical state", err).WithRunID(runID)
	}

	o.registry.Begin(sessionID, runID)
	defer o.registry.End(sessionID, runID)

	rs := NewRunState(runID)
	agents := meta.Agents()

	finish := func(reason StopReason) (RunResult, error) {
		rs.StopReason = reason
		o.bus.Publish(event.NewDoneEvent(runID, sessionID, string(reason), rs.TurnCount))
		logger.Info("run stopped", "stop_reason", reason, "turns", rs.TurnCount)
		return RunResult{RunID: runID, StopReason: reason, TurnCount: rs.TurnCount, FinalState: st}, nil
	}

	if len(agents) == 0 {
		o.bus.Publish(event.NewErrorEvent(runID, sessionID, "", errors.ErrNoAgents))
		st = o.applyAndSave(ctx, sessionID, st, &state.StatePatch{Stage: stagePtr(state.StageWaitingForUser)}, ModeratorID)
		return finish(StopRunError)
	}

	st = o.primeStoredPreferences(ctx, sessionID, meta, st)

	detector := stall.NewDetector(o.config.StallRepeatThreshold)
	retryOpts := retry.Options{
		MaxRetries: o.config.MaxRetries,
		BaseDelay:  o.config.RetryBaseDelay,
		Sleep:      o.sleep,
	}

	next := o.firstSpeakerIndex(meta, agents)
	consecutiveErrors := 0

	for {
		// A superseded run must not write anything further.
		if !o.registry.IsLive(sessionID, runID) {
			logger.Info("run superseded, exiting")
			return finish(StopCancelled)
		}

		if rs.TurnCount >= o.config.HardCap {
			summary := handoffSummary(st)
			o.bus.Publish(event.NewMessageEvent(runID, sessionID, ModeratorID, summary, nil))
			meta = o.appendMessage(ctx, sessionID, meta, state.Message{
				ID: uuid.NewString(), SessionID: sessionID, AuthorID: ModeratorID,
				Role: "moderator", Text: summary, CreatedAt: o.now(),
			})
			st = o.applyAndSave(ctx, sessionID, st, &state.StatePatch{Stage: stagePtr(state.StageWaitingForUser)}, ModeratorID)
			o.bus.Publish(event.NewStateUpdateEvent(runID, sessionID, ModeratorID, st))
			return finish(StopCapReached)
		}

		speaker := agents[next]
		o.bus.Publish(event.NewStatusEvent(runID, sessionID, "speaking", speaker.ID))
		logger.Debug("speaker selected", "participant", speaker.ID, "turn", rs.TurnCount+1)

		pc := o.promptContext(ctx, meta, st, speaker)
		result, err := retry.DoValue(ctx, retryOpts, func(ctx context.Context) (agent.TurnResult, error) {
			return o.adapter.CallAgent(ctx, pc)
		})
		if err != nil {
			consecutiveErrors++
			o.bus.Publish(event.NewErrorEvent(runID, sessionID, speaker.ID, err))
			logger.Warn("agent call failed", "participant", speaker.ID, "consecutive", consecutiveErrors, "error", err)
			if consecutiveErrors >= o.config.ConsecutiveErrorCap {
				if !o.registry.IsLive(sessionID, runID) {
					return finish(StopCancelled)
				}
				st = o.applyAndSave(ctx, sessionID, st, &state.StatePatch{Stage: stagePtr(state.StageWaitingForUser)}, ModeratorID)
				o.bus.Publish(event.NewStateUpdateEvent(runID, sessionID, ModeratorID, st))
				return finish(StopRunError)
			}
			next = (next + 1) % len(agents)
			continue
		}

		rs.TurnCount++
		consecutiveErrors = 0
		rs.LastSpeaker = speaker.ID

		if result.ShouldSkip {
			o.bus.Publish(event.NewStatusEvent(runID, sessionID, "skipped", speaker.ID))
			next = o.nextSpeakerIndex(agents, next, result.NextSpeaker)
			continue
		}

		// Liveness is re-checked after the engine call so a stale run's
		// message and patch can never land after a newer run has already
		// progressed the session.
		if !o.registry.IsLive(sessionID, runID) {
			logger.Info("run superseded mid-turn, discarding result")
			return finish(StopCancelled)
		}

		text := o.filterMessage(ctx, meta, speaker, result.Message)
		o.bus.Publish(event.NewMessageEvent(runID, sessionID, speaker.ID, text, toEventCitations(result.Citations)))
		meta = o.appendMessage(ctx, sessionID, meta, state.Message{
			ID: uuid.NewString(), SessionID: sessionID, AuthorID: speaker.ID,
			Role: "agent", Text: text, Citations: toMsgCitations(result.Citations),
			CreatedAt: o.now(),
		})

		patch := mergeQuestions(result.StatePatch, speaker, result.QuestionsForUser)
		if !patch.IsZero() {
			st = o.applyAndSave(ctx, sessionID, st, patch, speaker.ID)
			o.bus.Publish(event.NewStateUpdateEvent(runID, sessionID, speaker.ID, st))
		}

		if detector.Observe(stall.Signature(st)) {
			st = o.applyAndSave(ctx, sessionID, st, stallPatch(st, stallTarget(meta)), ModeratorID)
			o.bus.Publish(event.NewStateUpdateEvent(runID, sessionID, ModeratorID, st))
			rs.Signatures = detector.History()
			return finish(StopStallDetected)
		}
		rs.Signatures = detector.History()

		if reason, stop := EvaluateStop(rs, result, speaker.ID, agentIDs(agents), len(st.UnresolvedQuestions()), o.config); stop {
			stage := state.StageWaitingForUser
			if reason == StopHandoffDone {
				stage = state.StageConverged
			}
			st = o.applyAndSave(ctx, sessionID, st, &state.StatePatch{Stage: stagePtr(stage)}, ModeratorID)
			o.bus.Publish(event.NewStateUpdateEvent(runID, sessionID, ModeratorID, st))
			return finish(reason)
		}

		next = o.nextSpeakerIndex(agents, next, result.NextSpeaker)
	}
}

// primeStoredPreferences merges each human's stored preferences into the
// constraint list before the first turn. The reducer's dedup keeps repeat
// runs from duplicating them.
func (o *Orchestrator) primeStoredPreferences(ctx context.Context, sessionID string, meta session.Meta, st state.CanonicalState) state.CanonicalState {
	var all []state.Constraint
	for _, p := range meta.Participants {
		if p.Kind != state.KindHuman {
			continue
		}
		prof := o.profileFor(ctx, meta, p.ID)
		all = append(all, profile.PreferenceConstraints(p.ID, prof)...)
	}
	if len(all) == 0 {
		return st
	}
	return o.applyAndSave(ctx, sessionID, st, &state.StatePatch{Constraints: all}, ModeratorID)
}

func (o *Orchestrator) profileFor(ctx context.Context, meta session.Meta, humanID string) profile.Profile {
	if o.profiles != nil {
		p, err := o.profiles.Get(ctx, humanID)
		if err == nil {
			return p
		}
		o.logger.Warn("profile lookup failed", "participant", humanID, "error", err)
	}
	return meta.Profiles[humanID]
}

func (o *Orchestrator) promptContext(ctx context.Context, meta session.Meta, st state.CanonicalState, speaker state.Participant) agent.PromptContext {
	var others []state.Participant
	for _, p := range meta.Participants {
		if p.ID != speaker.ID {
			others = append(others, p)
		}
	}
	return agent.PromptContext{
		Participant:         speaker,
		OwnerProfile:        o.profileFor(ctx, meta, speaker.OwnerID).Text,
		Others:              others,
		State:               st.Clone(),
		Window:              state.RecentWindow(meta.Messages, o.config.WindowSize),
		EnabledCapabilities: o.caps.Enabled(meta.Capabilities[speaker.OwnerID]),
	}
}

// applyAndSave runs the reducer and persists the result. Persistence
// failures are logged, not fatal: the in-memory state remains authoritative
// for the rest of the run and is saved again on the next applied patch.
func (o *Orchestrator) applyAndSave(ctx context.Context, sessionID string, st state.CanonicalState, patch *state.StatePatch, authorID string) state.CanonicalState {
	st = state.Apply(st, patch, authorID, o.now())
	if err := o.store.SaveState(ctx, sessionID, st); err != nil {
		o.logger.Error("save canonical state failed", "session", sessionID, "error", err)
	}
	return st
}

func (o *Orchestrator) appendMessage(ctx context.Context, sessionID string, meta session.Meta, msg state.Message) session.Meta {
	meta.Messages = append(meta.Messages, msg)
	if err := o.store.SaveMeta(ctx, sessionID, meta); err != nil {
		o.logger.Error("save session meta failed", "session", sessionID, "error", err)
	}
	return meta
}

func (o *Orchestrator) filterMessage(ctx context.Context, meta session.Meta, speaker state.Participant, draft string) string {
	var audience []state.Participant
	for _, p := range meta.Participants {
		if p.ID != speaker.ID {
			audience = append(audience, p)
		}
	}
	text, err := o.filter.Rewrite(ctx, privacy.RewriteRequest{Draft: draft, Speaker: speaker, Audience: audience})
	if err != nil {
		o.logger.Warn("privacy filter failed, using unfiltered draft", "participant", speaker.ID, "error", err)
		return draft
	}
	return text
}

// firstSpeakerIndex gives the opening turn to the agent owned by whoever
// most recently posted a human message, falling back to the first agent.
func (o *Orchestrator) firstSpeakerIndex(meta session.Meta, agents []state.Participant) int {
	author, ok := meta.LastHumanAuthor()
	if !ok {
		return 0
	}
	for i, a := range agents {
		if a.OwnerID == author {
			return i
		}
	}
	return 0
}

// nextSpeakerIndex honors a valid nextSpeaker hint, otherwise round-robins.
func (o *Orchestrator) nextSpeakerIndex(agents []state.Participant, current int, hint string) int {
	if hint != "" {
		for i, a := range agents {
			if a.ID == hint {
				return i
			}
		}
	}
	return (current + 1) % len(agents)
}

// mergeQuestions folds an agent's questionsForUser into its state patch so
// they land in openQuestions under the usual dedup rules.
func mergeQuestions(patch *state.StatePatch, speaker state.Participant, questions []agent.QuestionForUser) *state.StatePatch {
	merged := &state.StatePatch{}
	if patch != nil {
		merged = patch
	}
	for _, q := range questions {
		target := q.Target
		if target == "" {
			target = speaker.OwnerID
		}
		merged.OpenQuestions = append(merged.OpenQuestions, state.Question{
			Target: target,
			Text:   q.Text,
		})
	}
	return merged
}

// stallPatch builds the stop patch for a detected stall: one question
// targeted at a human (reusing an existing unresolved one when present) and
// the waiting_for_user stage.
func stallPatch(st state.CanonicalState, target string) *state.StatePatch {
	patch := &state.StatePatch{Stage: stagePtr(state.StageWaitingForUser)}
	if len(st.UnresolvedQuestions()) > 0 {
		// An open question already exists for a human to answer; the stage
		// change alone surfaces it.
		return patch
	}
	patch.OpenQuestions = []state.Question{{
		Target: target,
		Text:   "The discussion has stopped making progress. What matters most to you in this plan?",
	}}
	return patch
}

// stallTarget picks the human to address the stall question to: the most
// recent human author, else the first human participant.
func stallTarget(meta session.Meta) string {
	if author, ok := meta.LastHumanAuthor(); ok {
		return author
	}
	for _, p := range meta.Participants {
		if p.Kind == state.KindHuman {
			return p.ID
		}
	}
	return ""
}

// handoffSummary synthesizes the cap-reached message from the leading option
// and up to two unresolved questions.
func handoffSummary(st state.CanonicalState) string {
	var b strings.Builder
	b.WriteString("Turn limit reached. Handing back to the group.")
	if st.LeadingOption != "" {
		fmt.Fprintf(&b, "\nCurrent leading option: %s", st.LeadingOption)
	}
	unresolved := st.UnresolvedQuestions()
	if len(unresolved) > 2 {
		unresolved = unresolved[:2]
	}
	for _, q := range unresolved {
		fmt.Fprintf(&b, "\nStill open: %s", q.Text)
	}
	return b.String()
}

func agentIDs(agents []state.Participant) []string {
	ids := make([]string, len(agents))
	for i, a := range agents {
		ids[i] = a.ID
	}
	return ids
}

func toEventCitations(in []agent.Citation) []event.Citation {
	if len(in) == 0 {
		return nil
	}
	out := make([]event.Citation, len(in))
	for i, c := range in {
		out[i] = event.Citation{URL: c.URL, Title: c.Title}
	}
	return out
}

func toMsgCitations(in []agent.Citation) []state.MsgCitation {
	if len(in) == 0 {
		return nil
	}
	out := make([]state.MsgCitation, len(in))
	for i, c := range in {
		out[i] = state.MsgCitation{URL: c.URL, Title: c.Title}
	}
	return out
}

func stagePtr(s state.Stage) *state.Stage { return &s }
