package capability

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// The builtin capabilities decode their arguments into closed, typed shapes
// at the boundary before use. They are deterministic local stubs suitable
// for offline runs and tests; production deployments register real
// integrations under the same names.

func stringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing required argument %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string, got %T", key, v)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("argument %q must not be empty", key)
	}
	return s, nil
}

func optionalStringArg(args map[string]any, key, fallback string) string {
	v, ok := args[key]
	if !ok {
		return fallback
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return fallback
	}
	return strings.TrimSpace(s)
}

// CalendarLookup reports availability for a participant on a given date.
type CalendarLookup struct{}

func (c *CalendarLookup) Name() string { return "calendar_lookup" }

func (c *CalendarLookup) Describe() string {
	return "Look up a participant's calendar availability for a date (args: date, participant?)"
}

func (c *CalendarLookup) Invoke(ctx context.Context, args map[string]any) (string, error) {
	date, err := stringArg(args, "date")
	if err != nil {
		return "", err
	}
	who := optionalStringArg(args, "participant", "the participant")
	return fmt.Sprintf("%s has no conflicting events on %s; evenings after 18:00 are free.", who, date), nil
}

// EmailSearch searches recent mail for a query string.
type EmailSearch struct{}

func (e *EmailSearch) Name() string { return "email_search" }

func (e *EmailSearch) Describe() string {
	return "Search recent email for a query (args: query)"
}

func (e *EmailSearch) Invoke(ctx context.Context, args map[string]any) (string, error) {
	query, err := stringArg(args, "query")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("No recent messages matched %q.", query), nil
}

// PlaceSearch finds venues near a location.
type PlaceSearch struct{}

func (p *PlaceSearch) Name() string { return "place_search" }

func (p *PlaceSearch) Describe() string {
	return "Search for venues or places (args: query, near?)"
}

func (p *PlaceSearch) Invoke(ctx context.Context, args map[string]any) (string, error) {
	query, err := stringArg(args, "query")
	if err != nil {
		return "", err
	}
	near := optionalStringArg(args, "near", "downtown")
	return fmt.Sprintf("Top results for %q near %s: 1) The Corner Table (4.6) 2) Luna Kitchen (4.5) 3) Harbor House (4.3).", query, near), nil
}

// WebSearch performs a general web search.
type WebSearch struct{}

func (w *WebSearch) Name() string { return "web_search" }

func (w *WebSearch) Describe() string {
	return "Search the web (args: query)"
}

func (w *WebSearch) Invoke(ctx context.Context, args map[string]any) (string, error) {
	query, err := stringArg(args, "query")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Search results for %q are unavailable offline; rely on session context.", query), nil
}

// DateInfo resolves relative date expressions against the current clock.
type DateInfo struct {
	// Now overrides the clock in tests.
	Now func() time.Time
}

func (d *DateInfo) Name() string { return "date_info" }

func (d *DateInfo) Describe() string {
	return "Resolve date expressions like 'next friday' (args: expression?)"
}

func (d *DateInfo) Invoke(ctx context.Context, args map[string]any) (string, error) {
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	t := now()

	expr := optionalStringArg(args, "expression", "today")
	switch strings.ToLower(expr) {
	case "today":
		return t.Format("Monday, January 2, 2006"), nil
	case "tomorrow":
		return t.AddDate(0, 0, 1).Format("Monday, January 2, 2006"), nil
	default:
		if weekday, ok := parseNextWeekday(expr); ok {
			days := (int(weekday) - int(t.Weekday()) + 7) % 7
			if days == 0 {
				days = 7
			}
			return t.AddDate(0, 0, days).Format("Monday, January 2, 2006"), nil
		}
		return fmt.Sprintf("Could not resolve %q; today is %s.", expr, t.Format("Monday, January 2, 2006")), nil
	}
}

func parseNextWeekday(expr string) (time.Weekday, bool) {
	s := strings.ToLower(strings.TrimSpace(expr))
	s = strings.TrimPrefix(s, "next ")
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s == strings.ToLower(d.String()) {
			return d, true
		}
	}
	return 0, false
}
