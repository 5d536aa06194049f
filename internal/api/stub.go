package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kalambet/redpersona/internal/persona"
	"github.com/kalambet/redpersona/internal/report"
	"github.com/kalambet/redpersona/internal/validate"
)

const (
	maxAnalyzeBodySize = 1 << 20
	// maxListedPersonas caps GET /personas the way the hosted service does.
	maxListedPersonas = 100
)

// ErrNoActivity is returned by an Analyzer when the account has nothing to analyse.
var ErrNoActivity = errors.New("no posts or comments found for this user")

// Analysis is what an Analyzer produces for one account.
type Analysis struct {
	Sections  *persona.Fields
	Citations map[string][]persona.Citation
}

// Analyzer builds a persona for username.
type Analyzer interface {
	Analyze(ctx context.Context, username string) (Analysis, error)
}

// AnalyzerFunc adapts a function to Analyzer.
type AnalyzerFunc func(ctx context.Context, username string) (Analysis, error)

func (f AnalyzerFunc) Analyze(ctx context.Context, username string) (Analysis, error) {
	return f(ctx, username)
}

// StubDeps configures the development stand-in for the analysis service.
type StubDeps struct {
	Analyzer Analyzer         // nil uses CannedAnalyzer
	Token    string           // optional; when set, requests need a matching bearer token
	Now      func() time.Time // nil uses time.Now
	Logger   *slog.Logger
}

type stubStore struct {
	mu       sync.RWMutex
	personas []persona.Persona
	reports  map[string][]byte
}

func (s *stubStore) add(p persona.Persona, rep []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.personas = append(s.personas, p)
	s.reports[p.ID] = rep
}

func (s *stubStore) list(limit int) []persona.Persona {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.personas)
	if n > limit {
		n = limit
	}
	return append([]persona.Persona(nil), s.personas[:n]...)
}

func (s *stubStore) find(id string) (persona.Persona, []byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.personas {
		if p.ID == id {
			return p, s.reports[id], true
		}
	}
	return persona.Persona{}, nil, false
}

// NewStubHandler returns an in-memory implementation of the persona service API,
// mounted under /api.
func NewStubHandler(deps StubDeps) http.Handler {
	if deps.Analyzer == nil {
		deps.Analyzer = CannedAnalyzer()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	store := &stubStore{reports: make(map[string][]byte)}

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		// The banner doubles as a health probe and stays open.
		r.Get("/", handleRoot)
		r.Group(func(r chi.Router) {
			if deps.Token != "" {
				r.Use(BearerAuth(deps.Token, deps.Logger))
			}
			r.Post("/analyze-reddit", handleAnalyze(deps, store))
			r.Get("/personas", handleListPersonas(store))
			r.Get("/download-persona/{id}", handleDownload(store))
		})
	})
	return r
}

func handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Reddit User Persona Extraction API"})
}

func handleAnalyze(deps StubDeps, store *stubStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxAnalyzeBodySize)
		var req struct {
			RedditURL string `json:"reddit_url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			detailError(w, http.StatusUnprocessableEntity, "invalid request body: %v", err)
			return
		}

		username := validate.Username(req.RedditURL)
		if username == "" {
			detailError(w, http.StatusInternalServerError, "Invalid Reddit user URL format")
			return
		}

		a, err := deps.Analyzer.Analyze(r.Context(), username)
		if errors.Is(err, ErrNoActivity) {
			detailError(w, http.StatusNotFound, "No posts or comments found for this user")
			return
		}
		if err != nil {
			deps.Logger.Warn("stub analysis failed", "username", username, "error", err)
			detailError(w, http.StatusInternalServerError, "%v", err)
			return
		}

		created := deps.Now().UTC()
		p := persona.Persona{
			ID:        uuid.New().String(),
			RedditURL: req.RedditURL,
			Username:  username,
			Sections:  a.Sections,
			Citations: a.Citations,
			FilePath:  username + "_persona.txt",
			CreatedAt: persona.Timestamp{Time: created},
		}
		store.add(p, report.Render(p, created))
		deps.Logger.Info("stub persona created", "persona_id", p.ID, "username", username)

		writeJSON(w, http.StatusOK, p)
	}
}

func handleListPersonas(store *stubStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list := store.list(maxListedPersonas)
		if list == nil {
			list = []persona.Persona{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func handleDownload(store *stubStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		p, rep, ok := store.find(id)
		if !ok {
			detailError(w, http.StatusNotFound, "Persona not found")
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_persona.txt"`, p.Username))
		w.WriteHeader(http.StatusOK)
		w.Write(rep)
	}
}

// CannedAnalyzer returns the same persona shape for every account. It scrapes
// nothing and is meant for local development only.
func CannedAnalyzer() Analyzer {
	return AnalyzerFunc(func(ctx context.Context, username string) (Analysis, error) {
		f := func(k, v string) persona.Field { return persona.Field{Key: k, Value: persona.Scalar(v)} }
		sections := persona.Mapping(
			persona.Field{Key: "demographics", Value: persona.Mapping(
				f("age_range", "25-34"),
				f("location", "Unknown"),
				f("occupation", "Software developer"),
			)},
			persona.Field{Key: "personality_traits", Value: persona.Mapping(
				f("openness", "High"),
				f("tone", "Curious and analytical"),
			)},
			persona.Field{Key: "interests_and_hobbies", Value: persona.Mapping(
				persona.Field{Key: "primary_interests", Value: persona.List(
					persona.Scalar("programming"), persona.Scalar("gaming"), persona.Scalar("science"),
				)},
			)},
			persona.Field{Key: "communication_patterns", Value: persona.Mapping(
				f("style", "Concise, technical"),
			)},
		)

		citations := map[string][]persona.Citation{
			"demographics": {{
				Type:      "comment",
				Content:   "Placeholder comment by u/" + username,
				URL:       "https://www.reddit.com/user/" + username + "/",
				Subreddit: "AskReddit",
				Score:     1,
			}},
		}
		return Analysis{Sections: sections.Fields(), Citations: citations}, nil
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// detailError writes the {"detail": ...} error body the service returns.
func detailError(w http.ResponseWriter, code int, format string, args ...any) {
	writeJSON(w, code, map[string]string{"detail": fmt.Sprintf(format, args...)})
}
