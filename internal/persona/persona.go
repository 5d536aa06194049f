// Package persona holds the data model returned by the persona analysis service.
package persona

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Persona is a structured profile derived from a Reddit user's posting history.
// Values are immutable once decoded; callers must not mutate Sections.
type Persona struct {
	ID        string                `json:"id"`
	RedditURL string                `json:"reddit_url,omitempty"`
	Username  string                `json:"username"`
	Sections  *Fields               `json:"persona"`
	Citations map[string][]Citation `json:"citations,omitempty"`
	FilePath  string                `json:"file_path,omitempty"`
	CreatedAt Timestamp             `json:"created_at"`
}

// Citation links a persona section to a post or comment it was derived from.
type Citation struct {
	Type       string  `json:"type"`
	Content    string  `json:"content"`
	URL        string  `json:"url"`
	Subreddit  string  `json:"subreddit"`
	Score      int     `json:"score"`
	CreatedUTC float64 `json:"created_utc"`
}

// Section returns the named section.
func (p Persona) Section(name string) (Value, bool) {
	if p.Sections == nil {
		return Value{}, false
	}
	return p.Sections.Get(name)
}

// SectionNames returns section keys in server order.
func (p Persona) SectionNames() []string {
	if p.Sections == nil {
		return nil
	}
	names := make([]string, 0, p.Sections.Len())
	for pair := p.Sections.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// timestampLayouts covers RFC 3339 and Python's isoformat() output, which carries
// no zone for naive UTC datetimes.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Timestamp is a leniently parsed creation time. Raw keeps the server text so an
// unparseable value can still be shown.
type Timestamp struct {
	Time time.Time
	Raw  string
}

// ParseTimestamp parses s with the accepted layouts. Zoneless values are UTC.
func ParseTimestamp(s string) Timestamp {
	ts := Timestamp{Raw: s}
	trimmed := strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			ts.Time = t
			break
		}
	}
	return ts
}

// IsZero reports whether neither a time nor raw text is present.
func (t Timestamp) IsZero() bool {
	return t.Time.IsZero() && t.Raw == ""
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decoding timestamp: %w", err)
	}
	*t = ParseTimestamp(s)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	switch {
	case t.Raw != "":
		return json.Marshal(t.Raw)
	case t.Time.IsZero():
		return []byte("null"), nil
	default:
		return json.Marshal(t.Time.Format(time.RFC3339Nano))
	}
}
