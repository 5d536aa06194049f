package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// timeLayout is fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps a SQLite database holding the export ledger.
type Store struct {
	db *sql.DB
}

// pragmas are applied to the single connection right after it is opened.
var pragmas = []string{
	"PRAGMA busy_timeout = 5000",
	"PRAGMA journal_mode = WAL",
	"PRAGMA foreign_keys = ON",
}

// Open opens the export ledger in dataDir, creating the directory and database as
// needed, and applies pending migrations. ":memory:" opens a throwaway database.
func Open(dataDir string) (*Store, error) {
	dsn := ":memory:"
	if dataDir != ":memory:" {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "redpersona.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection: an in-memory database is per connection, and the ledger has
	// a single writer anyway.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	if err := s.db.Ping(); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	if err := s.migrate(); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate applies embedded migrations/NNN_name.sql files that are not yet recorded
// in schema_version, in version order.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	applied, err := s.AppliedMigrations()
	if err != nil {
		return err
	}
	done := make(map[int]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return err
	}
	type migration struct {
		version int
		path    string
	}
	var pending []migration
	for _, name := range names {
		v, err := parseMigrationVersion(path.Base(name))
		if err != nil {
			return err
		}
		if !done[v] {
			pending = append(pending, migration{v, name})
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].version < pending[j].version })

	for _, m := range pending {
		if err := s.applyMigration(m.version, m.path); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) applyMigration(version int, name string) error {
	content, err := migrationsFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("reading migration %s: %w", name, err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("migration %d: %w", version, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(string(content)); err != nil {
		return fmt.Errorf("applying migration %d: %w", version, err)
	}
	if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
		return fmt.Errorf("recording migration %d: %w", version, err)
	}
	return tx.Commit()
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("migration %q: name must start with a version number: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Exports ---

// RecordExport appends a ledger row. Re-exporting the same persona adds a new row.
func (s *Store) RecordExport(e Export) error {
	if e.ID == "" || e.PersonaID == "" {
		return fmt.Errorf("export id and persona id are required")
	}
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO exports (id, persona_id, path, bytes, sha256, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.PersonaID, e.Path, e.Bytes, e.SHA256, createdAt.UTC().Format(timeLayout),
	)
	return err
}

// RecentExports returns the newest ledger rows first.
func (s *Store) RecentExports(limit int) ([]Export, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT id, persona_id, path, bytes, sha256, created_at
		FROM exports ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	return collectExports(rows)
}

// ExportsForPersona returns every ledger row for personaID, newest first.
func (s *Store) ExportsForPersona(personaID string) ([]Export, error) {
	rows, err := s.db.Query(`
		SELECT id, persona_id, path, bytes, sha256, created_at
		FROM exports WHERE persona_id = ?
		ORDER BY created_at DESC, rowid DESC`, personaID)
	if err != nil {
		return nil, err
	}
	return collectExports(rows)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExport(sc scanner) (Export, error) {
	var e Export
	var createdAt string
	if err := sc.Scan(&e.ID, &e.PersonaID, &e.Path, &e.Bytes, &e.SHA256, &createdAt); err != nil {
		return Export{}, err
	}
	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return Export{}, fmt.Errorf("parsing created_at for export %s: %w", e.ID, err)
	}
	e.CreatedAt = t
	return e, nil
}

func collectExports(rows *sql.Rows) ([]Export, error) {
	defer rows.Close()

	var results []Export
	for rows.Next() {
		e, err := scanExport(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, e)
	}
	return results, rows.Err()
}
