package tui

import "github.com/charmbracelet/lipgloss"

type styles struct {
	Title    lipgloss.Style
	Prompt   lipgloss.Style
	Hint     lipgloss.Style
	Spinner  lipgloss.Style
	Error    lipgloss.Style
	Status   lipgloss.Style
	Section  lipgloss.Style
	RowKey   lipgloss.Style
	Citation lipgloss.Style
	Panel    lipgloss.Style
	Cursor   lipgloss.Style
	Item     lipgloss.Style
	Faint    lipgloss.Style
	Help     lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("202")),
		Prompt:   lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		Hint:     lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true),
		Spinner:  lipgloss.NewStyle().Foreground(lipgloss.Color("205")),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Status:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		Section:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("75")),
		RowKey:   lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		Citation: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		Cursor: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("202")),
		Item:   lipgloss.NewStyle(),
		Faint:  lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Help:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	}
}
