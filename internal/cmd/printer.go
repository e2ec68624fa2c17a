package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/parleyhq/parley/internal/event"
)

var (
	printerAuthorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	printerStatusStyle = lipgloss.NewStyle().Faint(true)
	printerErrorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	printerStateStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	printerDoneStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
)

// eventPrinter renders run events as plain console lines for non-TUI runs.
type eventPrinter struct {
	w     io.Writer
	plain bool
}

func newEventPrinter(w io.Writer) *eventPrinter {
	plain := true
	if f, ok := w.(*os.File); ok {
		plain = !term.IsTerminal(int(f.Fd()))
	}
	return &eventPrinter{w: w, plain: plain}
}

func (p *eventPrinter) render(style lipgloss.Style, s string) string {
	if p.plain {
		return s
	}
	return style.Render(s)
}

func (p *eventPrinter) handle(e event.Event) {
	switch ev := e.(type) {
	case event.MessageEvent:
		fmt.Fprintf(p.w, "%s %s\n", p.render(printerAuthorStyle, ev.AuthorID+":"), ev.Text)
		for _, c := range ev.Citations {
			fmt.Fprintf(p.w, "    %s\n", p.render(printerStatusStyle, c.URL))
		}
	case event.StateUpdateEvent:
		parts := []string{"stage=" + string(ev.State.Stage)}
		if ev.State.LeadingOption != "" {
			parts = append(parts, "leading="+ev.State.LeadingOption)
		}
		if n := len(ev.State.UnresolvedQuestions()); n > 0 {
			parts = append(parts, fmt.Sprintf("open questions=%d", n))
		}
		fmt.Fprintf(p.w, "  %s\n", p.render(printerStateStyle, "state: "+strings.Join(parts, " | ")))
	case event.StatusEvent:
		fmt.Fprintf(p.w, "  %s\n", p.render(printerStatusStyle, ev.Status+" "+ev.Detail))
	case event.ErrorEvent:
		fmt.Fprintf(p.w, "  %s\n", p.render(printerErrorStyle, "error ("+ev.Speaker+"): "+ev.Err))
	case event.DoneEvent:
		fmt.Fprintf(p.w, "%s\n", p.render(printerDoneStyle, "done: "+ev.StopReason))
	}
}
