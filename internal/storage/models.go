package storage

import "time"

// Export is one ledger row: a report that was saved to disk.
type Export struct {
	ID        string
	PersonaID string
	Path      string
	Bytes     int64
	SHA256    string // hex digest of the saved bytes
	CreatedAt time.Time
}
