package state

import (
	"strings"
	"time"
)

// questionPrefixLen is how much of a question's text participates in the
// containment dedup check. The prefix heuristic deliberately trades precision
// for stability: two questions sharing an opening clause collapse into one,
// and rephrasings of the same question may not. See QuestionsOverlap.
const questionPrefixLen = 30

// Apply merges a patch into canonical state on behalf of authorID and
// returns the new state. It is pure and total: the input state is not
// mutated, missing or invalid patch fields are ignored, and it never fails.
//
// Merge rules:
//   - Scalar fields (Goal, LeadingOption, Stage) overwrite when present.
//   - StatusSummary, SuggestedNextSteps and PendingDecisions are replaced
//     wholesale when present; callers resend the full list each time.
//   - Constraints and OpenQuestions are append-with-dedup.
//   - ResolveQuestionIDs flips Resolved on matching IDs; unknown IDs are
//     silently ignored.
//   - LastUpdatedAt/LastUpdatedBy are stamped on every apply.
func Apply(s CanonicalState, patch *StatePatch, authorID string, now time.Time) CanonicalState {
	out := s.Clone()

	if patch != nil {
		if patch.Goal != nil && *patch.Goal != "" {
			out.Goal = *patch.Goal
		}
		if patch.LeadingOption != nil && *patch.LeadingOption != "" {
			out.LeadingOption = *patch.LeadingOption
		}
		if patch.Stage != nil && isValidStage(*patch.Stage) {
			out.Stage = *patch.Stage
		}

		if patch.StatusSummary != nil {
			out.StatusSummary = cloneStrings(patch.StatusSummary)
		}
		if patch.SuggestedNextSteps != nil {
			steps := cloneStrings(patch.SuggestedNextSteps)
			if len(steps) > MaxNextSteps {
				steps = steps[:MaxNextSteps]
			}
			out.SuggestedNextSteps = steps
		}
		if patch.PendingDecisions != nil {
			out.PendingDecisions = make([]Decision, len(patch.PendingDecisions))
			for i, d := range patch.PendingDecisions {
				d.Options = cloneStrings(d.Options)
				out.PendingDecisions[i] = d
			}
		}

		for _, c := range patch.Constraints {
			out.Constraints = addConstraint(out.Constraints, c, now)
		}
		for _, q := range patch.OpenQuestions {
			out.OpenQuestions = addQuestion(out.OpenQuestions, q, authorID, now)
		}
		for _, id := range patch.ResolveQuestionIDs {
			for i := range out.OpenQuestions {
				if out.OpenQuestions[i].ID == id {
					out.OpenQuestions[i].Resolved = true
				}
			}
		}
	}

	out.LastUpdatedAt = now
	out.LastUpdatedBy = authorID
	return out
}

// addConstraint appends c unless an existing constraint matches the dedup
// key (participant ID, lowercased trimmed text). A session_statement for a
// participant supersedes that participant's stored_preference constraints.
func addConstraint(existing []Constraint, c Constraint, now time.Time) []Constraint {
	c.Text = strings.TrimSpace(c.Text)
	if c.Text == "" || c.ParticipantID == "" {
		return existing
	}
	if c.Source != SourceStoredPreference && c.Source != SourceSessionStatement {
		c.Source = SourceSessionStatement
	}

	// Supersede before dedup so a session statement with identical text
	// still replaces the stored-preference entry.
	if c.Source == SourceSessionStatement {
		kept := existing[:0:0]
		for _, e := range existing {
			if e.ParticipantID == c.ParticipantID && e.Source == SourceStoredPreference {
				continue
			}
			kept = append(kept, e)
		}
		existing = kept
	}

	key := constraintKey(c)
	for _, e := range existing {
		if constraintKey(e) == key {
			return existing
		}
	}

	if c.AddedAt.IsZero() {
		c.AddedAt = now
	}
	return append(existing, c)
}

func constraintKey(c Constraint) string {
	return c.ParticipantID + "\x00" + strings.ToLower(strings.TrimSpace(c.Text))
}

// addQuestion appends q unless it overlaps an existing unresolved question
// for the same target. Question IDs are preserved when supplied, generated
// otherwise; an ID is never reused.
func addQuestion(existing []Question, q Question, authorID string, now time.Time) []Question {
	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" {
		return existing
	}
	for _, e := range existing {
		if !e.Resolved && e.Target == q.Target && QuestionsOverlap(e.Text, q.Text) {
			return existing
		}
	}
	if q.ID == "" {
		q.ID = NewQuestionID()
	}
	if q.AskedBy == "" {
		q.AskedBy = authorID
	}
	if q.AskedAt.IsZero() {
		q.AskedAt = now
	}
	return append(existing, q)
}

// QuestionsOverlap reports whether two question texts are near-duplicates
// under the prefix containment heuristic: the first questionPrefixLen
// characters of either text (lowercased) must be contained in the other.
// This is a deliberate fuzzy approximation, pinned down here so its behavior
// stays observable and testable.
func QuestionsOverlap(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, prefixOf(b)) || strings.Contains(b, prefixOf(a))
}

func prefixOf(s string) string {
	r := []rune(s)
	if len(r) > questionPrefixLen {
		return string(r[:questionPrefixLen])
	}
	return s
}

func isValidStage(s Stage) bool {
	switch s {
	case StageNegotiating, StageSearching, StageWaitingForUser, StageConverged:
		return true
	}
	return false
}
