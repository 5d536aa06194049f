// Package workflow drives one persona analysis session: input validation, a single
// in-flight analysis, the persona list cache and report exports.
package workflow

import "github.com/kalambet/redpersona/internal/persona"

// Phase is the visible stage of the workflow.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseValidating
	PhaseAnalyzing
	PhaseSuccess
	PhaseFailure
)

func (p Phase) String() string {
	switch p {
	case PhaseValidating:
		return "validating"
	case PhaseAnalyzing:
		return "analyzing"
	case PhaseSuccess:
		return "success"
	case PhaseFailure:
		return "failure"
	default:
		return "idle"
	}
}

// Busy reports whether a submit is in progress.
func (p Phase) Busy() bool {
	return p == PhaseValidating || p == PhaseAnalyzing
}

// State is the current phase with its payload. Persona is set in PhaseSuccess and
// kept through a later validation failure; Message is set in PhaseFailure.
// Submission numbers accepted submits from 1 and is 0 before the first one.
type State struct {
	Phase      Phase
	Persona    *persona.Persona
	Message    string
	Submission uint64
}

// Snapshot is a consistent copy of the state and the persona list cache.
type Snapshot struct {
	State    State
	Personas []persona.Persona
}

// ExportResult describes a finished export task. Err is nil on success.
type ExportResult struct {
	PersonaID string
	Path      string
	Err       error
}
