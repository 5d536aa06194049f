package report

import (
	"strings"
	"testing"
	"time"

	"github.com/kalambet/redpersona/internal/persona"
)

func samplePersona() persona.Persona {
	sections := persona.Mapping(
		persona.Field{Key: "demographics", Value: persona.Mapping(
			persona.Field{Key: "age", Value: persona.Scalar("25-34")},
			persona.Field{Key: "location", Value: persona.Scalar("Berlin")},
		)},
		persona.Field{Key: "interests_and_hobbies", Value: persona.Mapping(
			persona.Field{Key: "hobbies", Value: persona.List(persona.Scalar("chess"), persona.Scalar("climbing"))},
		)},
		persona.Field{Key: "technology_usage", Value: persona.Scalar("heavy")},
	)

	cites := make([]persona.Citation, 5)
	for i := range cites {
		cites[i] = persona.Citation{Type: "comment", Content: "c", URL: "https://reddit.com/x", Subreddit: "golang", Score: i}
	}

	return persona.Persona{
		ID:        "abc",
		Username:  "spez",
		Sections:  sections.Fields(),
		Citations: map[string][]persona.Citation{"demographics": cites},
	}
}

func TestRenderLayout(t *testing.T) {
	out := string(Render(samplePersona(), time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))

	for _, want := range []string{
		"REDDIT USER PERSONA ANALYSIS\n",
		"Username: spez\n",
		"Generated: 2024-01-02 03:04:05\n",
		strings.Repeat("=", 60),
		"DEMOGRAPHICS\n------------\n",
		"• age: 25-34\n",
		"• location: Berlin\n",
		"• hobbies: chess, climbing\n",
		"TECHNOLOGY USAGE\n",
		"heavy\n",
		"PROFESSIONAL/CAREER INTERESTS\n",
		"  [1] COMMENT in r/golang\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q", want)
		}
	}

	if strings.Index(out, "• age") > strings.Index(out, "• location") {
		t.Error("mapping rows not in server order")
	}
}

func TestRenderCapsCitations(t *testing.T) {
	out := string(Render(samplePersona(), time.Now()))

	if !strings.Contains(out, "[3] COMMENT") {
		t.Error("expected third citation")
	}
	if strings.Contains(out, "[4] COMMENT") {
		t.Error("report lists more than three citations")
	}
}

func TestRenderAllSectionsPresentForEmptyPersona(t *testing.T) {
	out := string(Render(persona.Persona{Username: "nobody"}, time.Now()))

	for _, sec := range reportSections {
		if !strings.Contains(out, sec.title) {
			t.Errorf("missing section heading %q", sec.title)
		}
	}
	if got := strings.Count(out, "CITATIONS:"); got != len(reportSections) {
		t.Errorf("CITATIONS headings = %d, want %d", got, len(reportSections))
	}
}

func TestFileName(t *testing.T) {
	if got := FileName("42"); got != "persona_42.txt" {
		t.Errorf("FileName = %q", got)
	}
}
