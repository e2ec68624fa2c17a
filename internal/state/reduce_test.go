package state

import (
	"testing"
	"time"
)

var t0 = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func strPtr(s string) *string { return &s }

func stagePtr(s Stage) *Stage { return &s }

func TestApply_ScalarOverwrite(t *testing.T) {
	s := New()
	s.Goal = "plan dinner"

	patch := &StatePatch{
		LeadingOption: strPtr("Dinner at 7pm downtown"),
		Stage:         stagePtr(StageSearching),
	}
	got := Apply(s, patch, "agent-a", t0)

	if got.Goal != "plan dinner" {
		t.Errorf("Goal = %q, want unchanged", got.Goal)
	}
	if got.LeadingOption != "Dinner at 7pm downtown" {
		t.Errorf("LeadingOption = %q", got.LeadingOption)
	}
	if got.Stage != StageSearching {
		t.Errorf("Stage = %q, want searching", got.Stage)
	}
}

func TestApply_EmptyScalarIgnored(t *testing.T) {
	s := New()
	s.LeadingOption = "Dinner at 7pm"

	got := Apply(s, &StatePatch{LeadingOption: strPtr("")}, "agent-a", t0)
	if got.LeadingOption != "Dinner at 7pm" {
		t.Errorf("empty leading option should not drop the existing one, got %q", got.LeadingOption)
	}
}

func TestApply_InvalidStageIgnored(t *testing.T) {
	got := Apply(New(), &StatePatch{Stage: stagePtr(Stage("bogus"))}, "agent-a", t0)
	if got.Stage != StageNegotiating {
		t.Errorf("Stage = %q, want negotiating", got.Stage)
	}
}

func TestApply_WholesaleReplaceLists(t *testing.T) {
	s := New()
	s.StatusSummary = []string{"old line"}
	s.SuggestedNextSteps = []string{"old step"}
	s.PendingDecisions = []Decision{{Topic: "venue", Status: DecisionProposed}}

	patch := &StatePatch{
		StatusSummary:      []string{"a", "b"},
		SuggestedNextSteps: []string{"confirm time"},
		PendingDecisions: []Decision{
			{Topic: "time", Status: DecisionAwaitingConfirmation, Options: []string{"7pm", "8pm"}},
		},
	}
	got := Apply(s, patch, "agent-a", t0)

	if len(got.StatusSummary) != 2 || got.StatusSummary[0] != "a" {
		t.Errorf("StatusSummary = %v, want wholesale replacement", got.StatusSummary)
	}
	if len(got.SuggestedNextSteps) != 1 || got.SuggestedNextSteps[0] != "confirm time" {
		t.Errorf("SuggestedNextSteps = %v", got.SuggestedNextSteps)
	}
	if len(got.PendingDecisions) != 1 || got.PendingDecisions[0].Topic != "time" {
		t.Errorf("PendingDecisions = %v, want wholesale replacement", got.PendingDecisions)
	}
}

func TestApply_AbsentListsPreserved(t *testing.T) {
	s := New()
	s.StatusSummary = []string{"keep me"}

	got := Apply(s, &StatePatch{LeadingOption: strPtr("x")}, "agent-a", t0)
	if len(got.StatusSummary) != 1 || got.StatusSummary[0] != "keep me" {
		t.Errorf("nil StatusSummary in patch must not clear state, got %v", got.StatusSummary)
	}

	// A non-nil empty slice is an explicit replacement with empty.
	got = Apply(s, &StatePatch{StatusSummary: []string{}}, "agent-a", t0)
	if len(got.StatusSummary) != 0 {
		t.Errorf("explicit empty StatusSummary should clear, got %v", got.StatusSummary)
	}
}

func TestApply_NextStepsTruncated(t *testing.T) {
	patch := &StatePatch{
		SuggestedNextSteps: []string{"1", "2", "3", "4", "5", "6", "7"},
	}
	got := Apply(New(), patch, "agent-a", t0)
	if len(got.SuggestedNextSteps) != MaxNextSteps {
		t.Errorf("len(SuggestedNextSteps) = %d, want %d", len(got.SuggestedNextSteps), MaxNextSteps)
	}
}

func TestApply_ConstraintDedupCaseInsensitive(t *testing.T) {
	c := Constraint{ParticipantID: "p1", Text: "No seafood", Source: SourceSessionStatement}
	s := Apply(New(), &StatePatch{Constraints: []Constraint{c}}, "agent-a", t0)

	// Same constraint again, different casing and whitespace.
	c2 := Constraint{ParticipantID: "p1", Text: "  no SEAFOOD ", Source: SourceSessionStatement}
	s = Apply(s, &StatePatch{Constraints: []Constraint{c2}}, "agent-b", t0)

	if len(s.Constraints) != 1 {
		t.Fatalf("len(Constraints) = %d, want 1", len(s.Constraints))
	}

	// Same text for a different participant is a distinct constraint.
	c3 := Constraint{ParticipantID: "p2", Text: "no seafood", Source: SourceSessionStatement}
	s = Apply(s, &StatePatch{Constraints: []Constraint{c3}}, "agent-b", t0)
	if len(s.Constraints) != 2 {
		t.Fatalf("len(Constraints) = %d, want 2", len(s.Constraints))
	}
}

func TestApply_SessionStatementSupersedesStoredPreference(t *testing.T) {
	s := Apply(New(), &StatePatch{Constraints: []Constraint{
		{ParticipantID: "p1", Text: "prefers italian", Source: SourceStoredPreference},
		{ParticipantID: "p2", Text: "prefers sushi", Source: SourceStoredPreference},
	}}, "agent-a", t0)

	s = Apply(s, &StatePatch{Constraints: []Constraint{
		{ParticipantID: "p1", Text: "actually wants thai tonight", Source: SourceSessionStatement},
	}}, "agent-a", t0)

	var p1Sources []ConstraintSource
	for _, c := range s.Constraints {
		if c.ParticipantID == "p1" {
			p1Sources = append(p1Sources, c.Source)
		}
	}
	if len(p1Sources) != 1 || p1Sources[0] != SourceSessionStatement {
		t.Errorf("p1 constraints = %v, want only the session statement", p1Sources)
	}

	// p2's stored preference is untouched.
	found := false
	for _, c := range s.Constraints {
		if c.ParticipantID == "p2" && c.Source == SourceStoredPreference {
			found = true
		}
	}
	if !found {
		t.Error("p2's stored preference should survive p1's session statement")
	}
}

func TestApply_QuestionContainmentDedup(t *testing.T) {
	long := Question{Target: "p1", Text: "What time works best for everyone on Friday evening?"}
	s := Apply(New(), &StatePatch{OpenQuestions: []Question{long}}, "agent-a", t0)
	if len(s.OpenQuestions) != 1 {
		t.Fatalf("len(OpenQuestions) = %d, want 1", len(s.OpenQuestions))
	}

	// A question whose text is a prefix of the existing one collapses.
	prefix := Question{Target: "p1", Text: "What time works best for every"}
	s = Apply(s, &StatePatch{OpenQuestions: []Question{prefix}}, "agent-b", t0)
	if len(s.OpenQuestions) != 1 {
		t.Errorf("prefix question should dedup, got %d questions", len(s.OpenQuestions))
	}

	// An unrelated question does create a second entry.
	other := Question{Target: "p1", Text: "Is there a budget ceiling for the venue?"}
	s = Apply(s, &StatePatch{OpenQuestions: []Question{other}}, "agent-b", t0)
	if len(s.OpenQuestions) != 2 {
		t.Errorf("unrelated question should append, got %d questions", len(s.OpenQuestions))
	}

	// Same text, different target is a distinct question.
	otherTarget := Question{Target: "p2", Text: "What time works best for everyone on Friday evening?"}
	s = Apply(s, &StatePatch{OpenQuestions: []Question{otherTarget}}, "agent-b", t0)
	if len(s.OpenQuestions) != 3 {
		t.Errorf("different-target question should append, got %d questions", len(s.OpenQuestions))
	}
}

func TestApply_ResolvedQuestionDoesNotBlockDedup(t *testing.T) {
	q := Question{ID: "q-1", Target: "p1", Text: "What time works for dinner?"}
	s := Apply(New(), &StatePatch{OpenQuestions: []Question{q}}, "agent-a", t0)
	s = Apply(s, &StatePatch{ResolveQuestionIDs: []string{"q-1"}}, "agent-a", t0)

	// Re-asking after resolution creates a fresh entry; the resolved one
	// stays as audit trail.
	s = Apply(s, &StatePatch{OpenQuestions: []Question{{Target: "p1", Text: "What time works for dinner?"}}}, "agent-b", t0)
	if len(s.OpenQuestions) != 2 {
		t.Fatalf("len(OpenQuestions) = %d, want 2", len(s.OpenQuestions))
	}
	if !s.OpenQuestions[0].Resolved || s.OpenQuestions[1].Resolved {
		t.Error("first question should be resolved, second should be open")
	}
}

func TestApply_ResolveUnknownIDIgnored(t *testing.T) {
	s := Apply(New(), &StatePatch{ResolveQuestionIDs: []string{"nope"}}, "agent-a", t0)
	if len(s.OpenQuestions) != 0 {
		t.Errorf("unexpected questions: %v", s.OpenQuestions)
	}
}

func TestApply_QuestionIDGenerated(t *testing.T) {
	s := Apply(New(), &StatePatch{OpenQuestions: []Question{{Target: "p1", Text: "Budget?"}}}, "agent-a", t0)
	if s.OpenQuestions[0].ID == "" {
		t.Error("question ID should be generated when absent")
	}
	if s.OpenQuestions[0].AskedBy != "agent-a" {
		t.Errorf("AskedBy = %q, want agent-a", s.OpenQuestions[0].AskedBy)
	}
	if !s.OpenQuestions[0].AskedAt.Equal(t0) {
		t.Errorf("AskedAt = %v, want %v", s.OpenQuestions[0].AskedAt, t0)
	}
}

func TestApply_AuditStamp(t *testing.T) {
	got := Apply(New(), nil, "agent-a", t0)
	if got.LastUpdatedBy != "agent-a" {
		t.Errorf("LastUpdatedBy = %q", got.LastUpdatedBy)
	}
	if !got.LastUpdatedAt.Equal(t0) {
		t.Errorf("LastUpdatedAt = %v", got.LastUpdatedAt)
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	s := New()
	s.StatusSummary = []string{"original"}
	s.OpenQuestions = []Question{{ID: "q-1", Target: "p1", Text: "when?"}}

	_ = Apply(s, &StatePatch{
		StatusSummary:      []string{"changed"},
		ResolveQuestionIDs: []string{"q-1"},
	}, "agent-a", t0)

	if s.StatusSummary[0] != "original" {
		t.Error("Apply mutated the input StatusSummary")
	}
	if s.OpenQuestions[0].Resolved {
		t.Error("Apply mutated the input OpenQuestions")
	}
}

func TestQuestionsOverlap(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"identical", "what time?", "what time?", true},
		{"case insensitive", "What Time?", "what time?", true},
		{"short prefix of long", "what time works", "what time works for everyone on friday?", true},
		{"shared 30-char opening", "could you confirm whether the venue is booked", "could you confirm whether the budget is final", true},
		{"unrelated", "what time?", "which venue?", false},
		{"empty", "", "what time?", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := QuestionsOverlap(tt.a, tt.b); got != tt.want {
				t.Errorf("QuestionsOverlap(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestUnresolvedQuestions(t *testing.T) {
	s := CanonicalState{OpenQuestions: []Question{
		{ID: "a", Resolved: true},
		{ID: "b"},
		{ID: "c"},
	}}
	got := s.UnresolvedQuestions()
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "c" {
		t.Errorf("UnresolvedQuestions() = %v", got)
	}
}

func TestPatch_IsZero(t *testing.T) {
	var nilPatch *StatePatch
	if !nilPatch.IsZero() {
		t.Error("nil patch should be zero")
	}
	if !(&StatePatch{}).IsZero() {
		t.Error("empty patch should be zero")
	}
	if (&StatePatch{Goal: strPtr("x")}).IsZero() {
		t.Error("patch with goal should not be zero")
	}
}
