// Package tui is the interactive terminal front end: a URL input, the current
// persona and the history list with an export key.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kalambet/redpersona/internal/persona"
	"github.com/kalambet/redpersona/internal/validate"
	"github.com/kalambet/redpersona/internal/view"
	"github.com/kalambet/redpersona/internal/workflow"
)

type focus int

const (
	focusInput focus = iota
	focusHistory
)

// Options configure the session.
type Options struct {
	Now        func() time.Time
	DateLayout string
}

// Model is the bubbletea model. Create it with New and release it with Close.
type Model struct {
	ctx    context.Context
	ctrl   *workflow.Controller
	bridge *bridge
	unsub  func()
	opts   Options
	st     styles

	input    textinput.Model
	spinner  spinner.Model
	spinning bool

	snap     workflow.Snapshot
	view     view.View
	focus    focus
	cursor   int
	selected string
	status   string
}

// New subscribes a model to ctrl. Intents are dispatched with ctx.
func New(ctx context.Context, ctrl *workflow.Controller, opts Options) Model {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	st := defaultStyles()

	ti := textinput.New()
	ti.Placeholder = "https://www.reddit.com/user/username/"
	ti.Prompt = "> "
	ti.PromptStyle = st.Prompt
	ti.CharLimit = 512
	ti.Width = 60
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = st.Spinner

	b := newBridge()
	m := Model{
		ctx:     ctx,
		ctrl:    ctrl,
		bridge:  b,
		opts:    opts,
		st:      st,
		input:   ti,
		spinner: sp,
	}
	m.unsub = ctrl.Subscribe(b.publish)
	ctrl.OnExport(b.exported)
	m.apply(ctrl.Snapshot())
	return m
}

// Close unsubscribes from the controller and unblocks pending waits.
func (m Model) Close() {
	m.unsub()
	m.ctrl.OnExport(nil)
	m.bridge.close()
}

// Run starts an interactive session and blocks until the user quits.
func Run(ctx context.Context, ctrl *workflow.Controller, opts Options) error {
	m := New(ctx, ctrl, opts)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running terminal UI: %w", err)
	}
	return nil
}

func (m Model) Init() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return tea.Batch(
		textinput.Blink,
		m.bridge.wait(),
		func() tea.Msg {
			ctrl.Refresh(ctx)
			return nil
		},
	)
}

func (m *Model) apply(s workflow.Snapshot) {
	m.snap = s
	m.view = view.Project(s, view.Options{Now: m.opts.Now(), DateLayout: m.opts.DateLayout})
	if n := len(m.view.History); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
	if _, ok := m.openedPersona(); !ok {
		m.selected = ""
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if msg.Width > 8 {
			m.input.Width = min(msg.Width-8, 100)
		}
		return m, nil

	case snapshotMsg:
		m.apply(workflow.Snapshot(msg))
		cmds := []tea.Cmd{m.bridge.wait()}
		if m.view.Loading && !m.spinning {
			m.spinning = true
			cmds = append(cmds, m.spinner.Tick)
		}
		return m, tea.Batch(cmds...)

	case exportMsg:
		if msg.Err != nil {
			m.status = fmt.Sprintf("Export of %s failed: %v", msg.PersonaID, msg.Err)
		} else {
			m.status = "Saved " + msg.Path
		}
		return m, m.bridge.wait()

	case spinner.TickMsg:
		if !m.view.Loading {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "tab":
		if m.focus == focusInput {
			m.focus = focusHistory
			m.input.Blur()
			return m, nil
		}
		m.focus = focusInput
		return m, m.input.Focus()
	case "ctrl+r":
		m.ctrl.Refresh(m.ctx)
		m.status = "Refreshing history..."
		return m, nil
	}

	if m.focus == focusInput {
		if msg.Type == tea.KeyEnter {
			m.selected = ""
			if !m.ctrl.Submit(m.ctx, m.input.Value()) {
				m.status = "An analysis is already running."
			} else {
				m.status = ""
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.view.History)-1 {
			m.cursor++
		}
	case "enter":
		if len(m.view.History) > 0 {
			m.selected = m.view.History[m.cursor].ID
		}
	case "r":
		m.ctrl.Refresh(m.ctx)
		m.status = "Refreshing history..."
	case "e":
		if len(m.view.History) > 0 {
			id := m.view.History[m.cursor].ID
			m.ctrl.Export(m.ctx, id)
			m.status = "Exporting " + id + "..."
		}
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.st.Title.Render("Reddit persona analyzer"))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	if name := validate.Username(m.input.Value()); name != "" {
		b.WriteString(m.st.Hint.Render("  analyze u/" + name))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.view.Loading {
		b.WriteString(m.spinner.View())
		b.WriteString(" Analyzing profile, this can take a while...\n\n")
	}
	if m.view.Error != "" {
		b.WriteString(m.st.Error.Render(m.view.Error))
		b.WriteString("\n\n")
	}

	if pv := m.shownPersona(); pv != nil {
		b.WriteString(m.st.Panel.Render(m.renderPersona(*pv)))
		b.WriteString("\n\n")
	}

	b.WriteString(m.renderHistory())

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(m.st.Status.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.st.Help.Render(m.helpLine()))
	return b.String()
}

// shownPersona is the history entry the user opened, or else the current result.
func (m Model) shownPersona() *view.PersonaView {
	if p, ok := m.openedPersona(); ok {
		pv := view.ProjectPersona(p, view.Options{DateLayout: m.opts.DateLayout})
		return &pv
	}
	return m.view.Persona
}

func (m Model) openedPersona() (persona.Persona, bool) {
	if m.selected == "" {
		return persona.Persona{}, false
	}
	for _, p := range m.snap.Personas {
		if p.ID == m.selected {
			return p, true
		}
	}
	return persona.Persona{}, false
}

func (m Model) renderPersona(pv view.PersonaView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "u/%s", pv.Username)
	if pv.Created != "" {
		b.WriteString(m.st.Faint.Render("  created " + pv.Created))
	}
	for _, sec := range pv.Sections {
		b.WriteString("\n\n")
		b.WriteString(m.st.Section.Render(sec.Title))
		for _, row := range sec.Rows {
			b.WriteString("\n  ")
			b.WriteString(m.st.RowKey.Render(row.Key + ":"))
			b.WriteString(" " + row.Value)
		}
		for i, c := range sec.Citations {
			if i == 3 {
				break
			}
			b.WriteString("\n  ")
			b.WriteString(m.st.Citation.Render(fmt.Sprintf("[%s] r/%s %s", c.Type, c.Subreddit, c.URL)))
		}
	}
	return b.String()
}

func (m Model) renderHistory() string {
	var b strings.Builder
	b.WriteString(m.st.Section.Render("History"))
	b.WriteString("\n")
	if len(m.view.History) == 0 {
		b.WriteString(m.st.Faint.Render("  No personas yet"))
		b.WriteString("\n")
		return b.String()
	}
	for i, h := range m.view.History {
		line := fmt.Sprintf("u/%s  %s", h.Username, h.Date)
		if h.Age != "" {
			line += m.st.Faint.Render("  " + h.Age)
		}
		if m.focus == focusHistory && i == m.cursor {
			b.WriteString(m.st.Cursor.Render("> "))
		} else {
			b.WriteString("  ")
		}
		b.WriteString(m.st.Item.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) helpLine() string {
	if m.focus == focusHistory {
		return "↑/↓ move • enter open • e export • r refresh • tab input • esc quit"
	}
	return "enter analyze • tab history • ctrl+r refresh • esc quit"
}
