package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/kalambet/redpersona/internal/persona"
	"github.com/kalambet/redpersona/internal/view"
)

const shownCitations = 3

func writePersona(w io.Writer, pv view.PersonaView, citations bool) {
	fmt.Fprintf(w, "%s  %s\n", colorize(colorBold, "u/"+pv.Username),
		colorize(colorFaint, fmt.Sprintf("(id %s, created %s)", pv.ID, pv.Created)))
	for _, sec := range pv.Sections {
		fmt.Fprintf(w, "\n%s\n", colorize(colorCyan, sec.Title))
		for _, row := range sec.Rows {
			fmt.Fprintf(w, "  %s\n", row)
		}
		if citations {
			for _, c := range limitCitations(sec.Citations) {
				fmt.Fprintf(w, "  %s\n", colorize(colorFaint, citationLine(c)))
			}
		}
	}
}

func writeHistory(w io.Writer, items []view.HistoryItem) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No personas yet.")
		return
	}
	for _, h := range items {
		line := fmt.Sprintf("%-36s  %-20s  %s", h.ID, "u/"+h.Username, h.Date)
		if h.Age != "" {
			line += "  " + colorize(colorFaint, "("+h.Age+")")
		}
		fmt.Fprintln(w, line)
	}
}

func limitCitations(cs []persona.Citation) []persona.Citation {
	if len(cs) > shownCitations {
		return cs[:shownCitations]
	}
	return cs
}

func citationLine(c persona.Citation) string {
	s := fmt.Sprintf("[%s] r/%s", c.Type, c.Subreddit)
	if c.URL != "" {
		s += " " + c.URL
	}
	return s
}

// personaMarkdown lays a persona out as a markdown document.
func personaMarkdown(pv view.PersonaView, citations bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# u/%s\n\n", pv.Username)
	fmt.Fprintf(&b, "_Created %s, id `%s`_\n", pv.Created, pv.ID)
	for _, sec := range pv.Sections {
		fmt.Fprintf(&b, "\n## %s\n\n", sec.Title)
		for _, row := range sec.Rows {
			fmt.Fprintf(&b, "- **%s:** %s\n", row.Key, row.Value)
		}
		if citations && len(sec.Citations) > 0 {
			b.WriteString("\n")
			for _, c := range limitCitations(sec.Citations) {
				fmt.Fprintf(&b, "> %s: %s\n\n", citationLine(c), c.Content)
			}
		}
	}
	return b.String()
}

func renderMarkdown(md string) (string, error) {
	style := glamour.WithAutoStyle()
	if noColor {
		style = glamour.WithStandardStyle("notty")
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(100))
	if err != nil {
		return "", fmt.Errorf("creating markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return out, nil
}
