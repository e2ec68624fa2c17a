// Package util holds small shared helpers.
package util

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// TruncateString shortens s to at most maxLen runes, appending "..." when
// anything was cut. It counts runes, not display columns; use TruncateANSI
// for styled terminal output.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 3 {
		return "..."
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}

// TruncateANSI shortens s to at most maxWidth visual columns, appending
// "..." when anything was cut. Escape sequences and wide characters are
// handled correctly, so styled strings keep their styling.
func TruncateANSI(s string, maxWidth int) string {
	if maxWidth <= 3 {
		return "..."
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	return ansi.Truncate(s, maxWidth, "...")
}
