package capability

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// failing is a capability that always errors.
type failing struct{}

func (f *failing) Name() string     { return "failing_lookup" }
func (f *failing) Describe() string { return "always fails" }
func (f *failing) Invoke(ctx context.Context, args map[string]any) (string, error) {
	return "", errors.New("upstream unavailable")
}

func TestRegistry_InvokeUnknownCapability(t *testing.T) {
	r := NewRegistry()
	got := r.Invoke(context.Background(), "nonsense", nil)
	if !strings.Contains(got, `capability "nonsense" is not available`) {
		t.Errorf("Invoke() = %q, want unknown-capability message", got)
	}
}

func TestRegistry_InvokeFailureBecomesResultString(t *testing.T) {
	r := NewRegistry()
	r.Register(&failing{})

	got := r.Invoke(context.Background(), "failing_lookup", nil)
	if !strings.Contains(got, "failing_lookup lookup failed") {
		t.Errorf("Invoke() = %q, want error converted to a result string", got)
	}
	if !strings.Contains(got, "upstream unavailable") {
		t.Errorf("Invoke() = %q, should include the cause", got)
	}
}

func TestRegistry_Enabled(t *testing.T) {
	r := NewBuiltinRegistry()

	tests := []struct {
		name     string
		patterns []string
		want     []string
	}{
		{
			name:     "wildcard matches all",
			patterns: []string{"*"},
			want:     []string{"calendar_lookup", "date_info", "email_search", "place_search", "web_search"},
		},
		{
			name:     "prefix glob",
			patterns: []string{"calendar*"},
			want:     []string{"calendar_lookup"},
		},
		{
			name:     "exact names",
			patterns: []string{"web_search", "date_info"},
			want:     []string{"date_info", "web_search"},
		},
		{
			name:     "no patterns disables everything",
			patterns: nil,
			want:     nil,
		},
		{
			name:     "invalid pattern skipped",
			patterns: []string{"[", "web_search"},
			want:     []string{"web_search"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Enabled(tt.patterns)
			if len(got) != len(tt.want) {
				t.Fatalf("Enabled(%v) = %v, want %v", tt.patterns, got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("Enabled(%v)[%d] = %q, want %q", tt.patterns, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestCalendarLookup_RequiresDate(t *testing.T) {
	c := &CalendarLookup{}
	if _, err := c.Invoke(context.Background(), map[string]any{}); err == nil {
		t.Error("expected error for missing date argument")
	}
	if _, err := c.Invoke(context.Background(), map[string]any{"date": 5}); err == nil {
		t.Error("expected error for non-string date argument")
	}

	got, err := c.Invoke(context.Background(), map[string]any{"date": "2026-09-04", "participant": "Sam"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "Sam") || !strings.Contains(got, "2026-09-04") {
		t.Errorf("result = %q", got)
	}
}

func TestDateInfo_ResolvesNextWeekday(t *testing.T) {
	// A Wednesday.
	now := time.Date(2026, 9, 2, 12, 0, 0, 0, time.UTC)
	d := &DateInfo{Now: func() time.Time { return now }}

	got, err := d.Invoke(context.Background(), map[string]any{"expression": "next friday"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "Friday, September 4, 2026") {
		t.Errorf("result = %q, want next Friday", got)
	}

	// Asking for the current weekday resolves to the following week.
	got, err = d.Invoke(context.Background(), map[string]any{"expression": "next wednesday"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "September 9, 2026") {
		t.Errorf("result = %q, want the following Wednesday", got)
	}
}

func TestDateInfo_Today(t *testing.T) {
	now := time.Date(2026, 9, 2, 12, 0, 0, 0, time.UTC)
	d := &DateInfo{Now: func() time.Time { return now }}

	got, err := d.Invoke(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Wednesday, September 2, 2026" {
		t.Errorf("result = %q", got)
	}
}
