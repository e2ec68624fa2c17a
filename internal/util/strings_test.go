package util

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"short string unchanged", "hello", 10, "hello"},
		{"exact length unchanged", "hello", 5, "hello"},
		{"long string truncated", "hello world", 8, "hello..."},
		{"tiny max collapses to ellipsis", "hello", 3, "..."},
		{"multibyte runes counted as one", "héllo wörld", 8, "héllo..."},
		{"empty input", "", 5, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateString(tt.input, tt.maxLen); got != tt.want {
				t.Errorf("TruncateString(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestTruncateANSI(t *testing.T) {
	t.Run("plain string under width unchanged", func(t *testing.T) {
		if got := TruncateANSI("hello", 10); got != "hello" {
			t.Errorf("got %q, want %q", got, "hello")
		}
	})

	t.Run("plain string truncated to width", func(t *testing.T) {
		got := TruncateANSI("hello world", 8)
		if lipgloss.Width(got) != 8 {
			t.Errorf("width = %d, want 8 (got %q)", lipgloss.Width(got), got)
		}
	})

	t.Run("styled string keeps width budget", func(t *testing.T) {
		styled := lipgloss.NewStyle().Bold(true).Render("hello world")
		got := TruncateANSI(styled, 8)
		if w := lipgloss.Width(got); w > 8 {
			t.Errorf("width = %d, want <= 8", w)
		}
	})

	t.Run("tiny max collapses to ellipsis", func(t *testing.T) {
		if got := TruncateANSI("hello", 3); got != "..." {
			t.Errorf("got %q, want %q", got, "...")
		}
	})
}
