package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/kalambet/redpersona/internal/persona"
)

// maxCitations is how many citations the report lists per section.
const maxCitations = 3

// reportSections lists the sections a report contains, in order, with their headings.
var reportSections = []struct {
	key   string
	title string
}{
	{"demographics", "DEMOGRAPHICS"},
	{"personality_traits", "PERSONALITY TRAITS"},
	{"interests_and_hobbies", "INTERESTS AND HOBBIES"},
	{"values_and_beliefs", "VALUES AND BELIEFS"},
	{"behavioral_patterns", "BEHAVIORAL PATTERNS"},
	{"technology_usage", "TECHNOLOGY USAGE"},
	{"social_behavior", "SOCIAL BEHAVIOR"},
	{"professional_interests", "PROFESSIONAL/CAREER INTERESTS"},
	{"lifestyle_preferences", "LIFESTYLE PREFERENCES"},
	{"communication_patterns", "COMMUNICATION PATTERNS"},
}

// Render produces the plain-text report the analysis service offers for download.
func Render(p persona.Persona, generated time.Time) []byte {
	var b strings.Builder

	b.WriteString("\nREDDIT USER PERSONA ANALYSIS\n")
	fmt.Fprintf(&b, "Username: %s\n", p.Username)
	fmt.Fprintf(&b, "Generated: %s\n\n", generated.Format(time.DateTime))
	b.WriteString(strings.Repeat("=", 60))
	b.WriteString("\n\n")

	for _, sec := range reportSections {
		fmt.Fprintf(&b, "\n%s\n%s\n", sec.title, strings.Repeat("-", len(sec.title)))

		v, ok := p.Section(sec.key)
		switch {
		case !ok:
		case v.Kind() == persona.KindMapping:
			for pair := v.Fields().Oldest(); pair != nil; pair = pair.Next() {
				fmt.Fprintf(&b, "• %s: %s\n", pair.Key, bulletValue(pair.Value))
			}
		default:
			fmt.Fprintf(&b, "%s\n", v.String())
		}

		b.WriteString("\nCITATIONS:\n")
		cites := p.Citations[sec.key]
		if len(cites) > maxCitations {
			cites = cites[:maxCitations]
		}
		for i, c := range cites {
			fmt.Fprintf(&b, "  [%d] %s in r/%s\n", i+1, strings.ToUpper(c.Type), c.Subreddit)
			fmt.Fprintf(&b, "      Content: %s\n", c.Content)
			fmt.Fprintf(&b, "      URL: %s\n", c.URL)
			fmt.Fprintf(&b, "      Score: %d\n\n", c.Score)
		}
		b.WriteString("\n")
	}

	return []byte(b.String())
}

// bulletValue joins list items with commas; everything else uses its display form.
func bulletValue(v persona.Value) string {
	if v.Kind() != persona.KindList {
		return v.String()
	}
	parts := make([]string, len(v.Items()))
	for i, item := range v.Items() {
		parts[i] = item.String()
	}
	return strings.Join(parts, ", ")
}
