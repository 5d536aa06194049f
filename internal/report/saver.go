// Package report saves exported persona reports and renders the service's text layout.
package report

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/redpersona/internal/storage"
)

// ErrUnsafeID is returned when a persona id cannot be used inside a file name.
var ErrUnsafeID = errors.New("persona id is not safe for a file name")

// Recorder stores a ledger entry for every saved report.
type Recorder interface {
	RecordExport(e storage.Export) error
}

// FileName returns the name every exported report is saved under, regardless of
// what the service suggests.
func FileName(personaID string) string {
	return "persona_" + personaID + ".txt"
}

// Saver writes report bytes into a directory.
type Saver struct {
	dir    string
	ledger Recorder
	logger *slog.Logger
	now    func() time.Time
}

// NewSaver creates a Saver writing into dir. ledger may be nil.
func NewSaver(dir string, ledger Recorder) *Saver {
	if dir == "" {
		dir = "."
	}
	return &Saver{
		dir:    dir,
		ledger: ledger,
		logger: slog.Default(),
		now:    time.Now,
	}
}

// Dir returns the output directory.
func (s *Saver) Dir() string { return s.dir }

// PathFor returns where the report for personaID would be written.
func (s *Saver) PathFor(personaID string) string {
	return filepath.Join(s.dir, FileName(personaID))
}

// Save writes data to persona_<id>.txt unchanged and returns the path. The file
// is written to a temp name first and renamed, so an existing report survives a
// failed write.
func (s *Saver) Save(personaID string, data []byte) (string, error) {
	if err := checkID(personaID); err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}

	final := s.PathFor(personaID)

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return "", fmt.Errorf("generating temp file name: %w", err)
	}
	tmp := final + "." + hex.EncodeToString(randBytes) + ".tmp"

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("writing report: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("renaming report: %w", err)
	}

	if s.ledger != nil {
		abs, err := filepath.Abs(final)
		if err != nil {
			abs = final
		}
		sum := sha256.Sum256(data)
		entry := storage.Export{
			ID:        uuid.New().String(),
			PersonaID: personaID,
			Path:      abs,
			Bytes:     int64(len(data)),
			SHA256:    hex.EncodeToString(sum[:]),
			CreatedAt: s.now().UTC(),
		}
		if err := s.ledger.RecordExport(entry); err != nil {
			s.logger.Warn("recording export failed", "persona_id", personaID, "error", err)
		}
	}

	return final, nil
}

func checkID(id string) error {
	if id == "" || id == "." || id == ".." {
		return ErrUnsafeID
	}
	if strings.ContainsAny(id, "/\\\x00") || strings.Contains(id, "..") {
		return ErrUnsafeID
	}
	return nil
}
