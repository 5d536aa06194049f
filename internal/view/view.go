// Package view maps workflow snapshots to display-ready data. Nothing here performs
// I/O or reads the clock.
package view

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"github.com/kalambet/redpersona/internal/persona"
	"github.com/kalambet/redpersona/internal/workflow"
)

// DefaultDateLayout formats history dates when Options.DateLayout is empty.
const DefaultDateLayout = "Jan 2, 2006"

// Options control formatting. A zero Now leaves relative ages empty.
type Options struct {
	Now        time.Time
	DateLayout string
}

// View is everything a front end needs to draw one frame.
type View struct {
	Phase   workflow.Phase
	Loading bool
	Error   string
	Persona *PersonaView
	History []HistoryItem
}

// PersonaView is a persona with its sections ready for display.
type PersonaView struct {
	ID       string
	Username string
	Created  string
	Sections []SectionView
}

// SectionView is one mapping section of a persona.
type SectionView struct {
	Key       string
	Title     string
	Rows      []Row
	Citations []persona.Citation
}

// Row is a single "key: value" line.
type Row struct {
	Key   string
	Value string
}

func (r Row) String() string { return r.Key + ": " + r.Value }

// HistoryItem is one entry of the persona list.
type HistoryItem struct {
	ID       string
	Username string
	Date     string
	Age      string
}

// Project builds the view for snap.
func Project(snap workflow.Snapshot, opts Options) View {
	if opts.DateLayout == "" {
		opts.DateLayout = DefaultDateLayout
	}

	v := View{
		Phase:   snap.State.Phase,
		Loading: snap.State.Phase.Busy(),
	}
	if snap.State.Phase == workflow.PhaseFailure {
		v.Error = snap.State.Message
	}
	if snap.State.Persona != nil {
		pv := ProjectPersona(*snap.State.Persona, opts)
		v.Persona = &pv
	}

	if len(snap.Personas) > 0 {
		v.History = make([]HistoryItem, len(snap.Personas))
		for i, p := range snap.Personas {
			v.History[i] = HistoryItem{
				ID:       p.ID,
				Username: p.Username,
				Date:     FormatDate(p.CreatedAt, opts.DateLayout),
				Age:      relativeAge(p.CreatedAt, opts.Now),
			}
		}
	}
	return v
}

// ProjectPersona builds the display form of a single persona. Sections that are not
// mappings are skipped.
func ProjectPersona(p persona.Persona, opts Options) PersonaView {
	if opts.DateLayout == "" {
		opts.DateLayout = DefaultDateLayout
	}

	pv := PersonaView{
		ID:       p.ID,
		Username: p.Username,
		Created:  FormatDate(p.CreatedAt, opts.DateLayout),
	}
	if p.Sections == nil {
		return pv
	}

	for pair := p.Sections.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.Kind() != persona.KindMapping {
			continue
		}
		sec := SectionView{
			Key:       pair.Key,
			Title:     Humanize(pair.Key),
			Citations: p.Citations[pair.Key],
		}
		for f := pair.Value.Fields().Oldest(); f != nil; f = f.Next() {
			sec.Rows = append(sec.Rows, Row{Key: f.Key, Value: f.Value.String()})
		}
		pv.Sections = append(pv.Sections, sec)
	}
	return pv
}

// Humanize turns a section key into a title: underscores become spaces and every
// word starts with an upper-case letter.
func Humanize(key string) string {
	words := strings.Split(strings.ReplaceAll(key, "_", " "), " ")
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		if r == utf8.RuneError {
			continue
		}
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// FormatDate renders ts with layout, falling back to the server text when the
// timestamp could not be parsed.
func FormatDate(ts persona.Timestamp, layout string) string {
	if ts.Time.IsZero() {
		return ts.Raw
	}
	return ts.Time.Format(layout)
}

func relativeAge(ts persona.Timestamp, now time.Time) string {
	if ts.Time.IsZero() || now.IsZero() {
		return ""
	}
	return humanize.RelTime(ts.Time, now, "ago", "from now")
}
