// Package tui renders a live view of an orchestration run: the event feed on
// the left and the current canonical state on the right. It consumes the run
// event stream only; it never touches the orchestrator directly.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/parleyhq/parley/internal/config"
	"github.com/parleyhq/parley/internal/event"
	"github.com/parleyhq/parley/internal/state"
	"github.com/parleyhq/parley/internal/util"
)

// Options configures the run viewer.
type Options struct {
	SessionID string
	Bus       *event.Bus
	Config    config.TUIConfig
	// Start launches the run once the UI is ready. It runs on its own
	// goroutine; its error is surfaced when the UI exits.
	Start func() error
}

// Run blocks until the run finishes and the user quits, or the context is
// cancelled.
func Run(ctx context.Context, opts Options) error {
	m := newModel(opts)

	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())

	subID := opts.Bus.SubscribeAll(func(e event.Event) {
		p.Send(eventMsg{e})
	})
	defer opts.Bus.Unsubscribe(subID)

	errCh := make(chan error, 1)
	go func() {
		if opts.Start != nil {
			err := opts.Start()
			p.Send(runFinishedMsg{err: err})
			errCh <- err
			return
		}
		errCh <- nil
	}()

	if _, err := p.Run(); err != nil {
		return err
	}
	return <-errCh
}

type eventMsg struct{ event event.Event }

type runFinishedMsg struct{ err error }

type model struct {
	sessionID string
	cfg       config.TUIConfig

	feed     viewport.Model
	spinner  spinner.Model
	lines    []string
	state    *state.CanonicalState
	done     bool
	stopNote string
	runErr   error
	width    int
	height   int
	ready    bool
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	authorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle      = lipgloss.NewStyle().Faint(true)
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	doneStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
	panelStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	panelLabel    = lipgloss.NewStyle().Bold(true)
	helpStyle     = lipgloss.NewStyle().Faint(true)
	resolvedStyle = lipgloss.NewStyle().Faint(true).Strikethrough(true)
)

func newModel(opts Options) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return model{
		sessionID: opts.SessionID,
		cfg:       opts.Config,
		spinner:   sp,
	}
}

func (m model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layoutFeed()
		m.ready = true

	case eventMsg:
		m.appendEvent(msg.event)
		m.feed.SetContent(strings.Join(m.lines, "\n"))
		m.feed.GotoBottom()

	case runFinishedMsg:
		m.done = true
		m.runErr = msg.err

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.feed, cmd = m.feed.Update(msg)
	return m, cmd
}

func (m *model) layoutFeed() {
	w := m.width
	if m.cfg.ShowStatePanel {
		w = m.width - m.panelWidth()
	}
	h := m.height - 3
	if h < 3 {
		h = 3
	}
	if w < 20 {
		w = 20
	}
	m.feed.Width = w
	m.feed.Height = h
}

func (m model) panelWidth() int {
	w := m.width / 3
	if w < 30 {
		w = 30
	}
	return w
}

func (m *model) appendEvent(e event.Event) {
	switch ev := e.(type) {
	case event.MessageEvent:
		m.lines = append(m.lines, authorStyle.Render(ev.AuthorID+":")+" "+ev.Text)
		for _, c := range ev.Citations {
			m.lines = append(m.lines, dimStyle.Render("    "+c.URL))
		}
	case event.StateUpdateEvent:
		st := ev.State
		m.state = &st
		m.lines = append(m.lines, dimStyle.Render(fmt.Sprintf("  state updated by %s (stage %s)", ev.AuthorID, st.Stage)))
	case event.StatusEvent:
		m.lines = append(m.lines, dimStyle.Render("  "+ev.Status+" "+ev.Detail))
	case event.ErrorEvent:
		m.lines = append(m.lines, errStyle.Render("  error ("+ev.Speaker+"): "+ev.Err))
	case event.DoneEvent:
		m.stopNote = fmt.Sprintf("%s after %d turn(s)", ev.StopReason, ev.TurnCount)
		m.lines = append(m.lines, doneStyle.Render("done: "+m.stopNote))
	}

	if m.cfg.MaxFeedLines > 0 && len(m.lines) > m.cfg.MaxFeedLines {
		m.lines = m.lines[len(m.lines)-m.cfg.MaxFeedLines:]
	}
}

func (m model) View() string {
	if !m.ready {
		return "loading..."
	}

	header := titleStyle.Render("parley · " + m.sessionID)
	if m.done {
		header += "  " + doneStyle.Render("finished")
	} else {
		header += "  " + m.spinner.View()
	}

	body := m.feed.View()
	if m.cfg.ShowStatePanel {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, m.statePanel())
	}

	help := helpStyle.Render("q: quit")
	if m.runErr != nil {
		help = errStyle.Render(m.runErr.Error()) + "  " + help
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, body, help)
}

func (m model) statePanel() string {
	var b strings.Builder
	if m.state == nil {
		b.WriteString(dimStyle.Render("no state yet"))
	} else {
		st := m.state
		inner := m.panelWidth() - 4
		fmt.Fprintf(&b, "%s %s\n", panelLabel.Render("Stage:"), st.Stage)
		if st.Goal != "" {
			b.WriteString(util.TruncateANSI(panelLabel.Render("Goal:")+" "+st.Goal, inner) + "\n")
		}
		if st.LeadingOption != "" {
			b.WriteString(util.TruncateANSI(panelLabel.Render("Leading:")+" "+st.LeadingOption, inner) + "\n")
		}
		if len(st.Constraints) > 0 {
			b.WriteString(panelLabel.Render("Constraints:") + "\n")
			for _, c := range st.Constraints {
				fmt.Fprintf(&b, " - %s: %s\n", c.ParticipantID, c.Text)
			}
		}
		if len(st.OpenQuestions) > 0 {
			b.WriteString(panelLabel.Render("Questions:") + "\n")
			for _, q := range st.OpenQuestions {
				line := fmt.Sprintf(" - %s: %s", q.Target, q.Text)
				if q.Resolved {
					line = resolvedStyle.Render(line)
				}
				b.WriteString(line + "\n")
			}
		}
		if len(st.SuggestedNextSteps) > 0 {
			b.WriteString(panelLabel.Render("Next:") + "\n")
			for _, s := range st.SuggestedNextSteps {
				fmt.Fprintf(&b, " - %s\n", s)
			}
		}
	}

	return panelStyle.Width(m.panelWidth() - 2).Render(b.String())
}
