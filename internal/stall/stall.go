// Package stall detects unproductive runs by fingerprinting the interesting
// content of canonical state after each turn. Two consecutive turns that
// leave the plan in content-identical shape indicate no progress is being
// made, and the run should hand back to a human rather than burn turns.
package stall

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/parleyhq/parley/internal/state"
)

// DefaultRepeatThreshold is how many prior occurrences of a signature mark
// a stall.
const DefaultRepeatThreshold = 2

// Signature derives a deterministic fingerprint of the state fields that
// indicate planning progress: goal, leading option, unresolved question
// texts, suggested next steps, and stage. List fields are sorted so two
// states with equal content yield identical signatures regardless of
// insertion order.
func Signature(s state.CanonicalState) string {
	questions := make([]string, 0, len(s.OpenQuestions))
	for _, q := range s.OpenQuestions {
		if !q.Resolved {
			questions = append(questions, strings.ToLower(strings.TrimSpace(q.Text)))
		}
	}
	sort.Strings(questions)

	steps := make([]string, 0, len(s.SuggestedNextSteps))
	for _, step := range s.SuggestedNextSteps {
		steps = append(steps, strings.ToLower(strings.TrimSpace(step)))
	}
	sort.Strings(steps)

	var b strings.Builder
	b.WriteString("goal=")
	b.WriteString(strings.TrimSpace(s.Goal))
	b.WriteString("\x1eoption=")
	b.WriteString(strings.TrimSpace(s.LeadingOption))
	b.WriteString("\x1equestions=")
	b.WriteString(strings.Join(questions, "\x1f"))
	b.WriteString("\x1esteps=")
	b.WriteString(strings.Join(steps, "\x1f"))
	b.WriteString("\x1estage=")
	b.WriteString(string(s.Stage))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Detector tracks the signature history of a run. It is not safe for
// concurrent use; the run loop is the only writer.
type Detector struct {
	threshold int
	history   []string
}

// NewDetector creates a detector that declares a stall once a signature has
// already been seen threshold times. A threshold <= 0 falls back to
// DefaultRepeatThreshold.
func NewDetector(threshold int) *Detector {
	if threshold <= 0 {
		threshold = DefaultRepeatThreshold
	}
	return &Detector{threshold: threshold}
}

// Observe records the signature for a completed turn and reports whether the
// run is stalled. The count of prior consecutive occurrences is taken before
// appending, so with the default threshold of 2 the stall fires on the third
// identical observation in a row. An intervening different signature resets
// the count for a signature value back to zero.
func (d *Detector) Observe(sig string) bool {
	count := 0
	for i := len(d.history) - 1; i >= 0; i-- {
		if d.history[i] != sig {
			break
		}
		count++
	}
	d.history = append(d.history, sig)
	return count >= d.threshold
}

// History returns the append-only signature history, one entry per completed
// turn, ordered by turn completion.
func (d *Detector) History() []string {
	out := make([]string, len(d.history))
	copy(out, d.history)
	return out
}

// Load seeds the detector with a prior history. Used when a run is resumed
// from persisted run state.
func (d *Detector) Load(history []string) {
	d.history = make([]string, len(history))
	copy(d.history, history)
}
