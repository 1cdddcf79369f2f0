// Package storage provides the SQLite reload journal: one row per recorded
// cascade, queryable per project.
// Uses the pure-Go modernc.org/sqlite driver to avoid CGO dependencies.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/vovakirdan/livedeck/internal/deck"
)

// Store manages the SQLite database connection for the reload journal.
type Store struct {
	db *sql.DB
}

// ReloadEntry is one journaled cascade.
type ReloadEntry struct {
	ID               int64
	CascadeID        string
	Project          string
	Outcome          string // final phase: "committed" or "broken"
	Trace            string // phase names joined with ">"
	SettingsReloaded bool
	ManifestReloaded bool
	FullReset        bool
	Reloaded         int // assets loaded by the cascade
	Assets           int // assets tracked after the cascade
	Loaded           int // of those, assets with live content
	Duration         time.Duration
	Error            string // empty on success
	StartedAt        time.Time
}

// Failed reports whether the cascade ended broken.
func (e ReloadEntry) Failed() bool {
	return e.Error != ""
}

// Flags abbreviates what the cascade reloaded: S(ettings), M(anifest) and
// R(eset), with "-" for each step that did not happen.
func (e ReloadEntry) Flags() string {
	f := []byte("---")
	if e.SettingsReloaded {
		f[0] = 'S'
	}
	if e.ManifestReloaded {
		f[1] = 'M'
	}
	if e.FullReset {
		f[2] = 'R'
	}
	return string(f)
}

// ReloadStats aggregates the journal of one project.
type ReloadStats struct {
	Total       int
	Failures    int
	FullResets  int
	AvgDuration time.Duration
	LastAt      time.Time
}

// Open creates or opens a SQLite database at the given path.
// It creates the parent directories if needed and runs migrations.
func Open(dbPath string) (*Store, error) {
	// Expand ~ to home directory
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}

	return store, nil
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS reloads (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			cascade_id TEXT NOT NULL UNIQUE,
			project TEXT NOT NULL,
			outcome TEXT NOT NULL,
			trace TEXT NOT NULL,
			settings_reloaded INTEGER NOT NULL DEFAULT 0,
			manifest_reloaded INTEGER NOT NULL DEFAULT 0,
			full_reset INTEGER NOT NULL DEFAULT 0,
			reloaded INTEGER NOT NULL DEFAULT 0,
			assets INTEGER NOT NULL DEFAULT 0,
			loaded INTEGER NOT NULL DEFAULT 0,
			duration_us INTEGER NOT NULL DEFAULT 0,
			error TEXT,
			started_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_reloads_project ON reloads(project, id DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveReload records a cascade. Returns the ID of the inserted record.
func (s *Store) SaveReload(e ReloadEntry) (int64, error) {
	var errText sql.NullString
	if e.Error != "" {
		errText = sql.NullString{String: e.Error, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO reloads (cascade_id, project, outcome, trace,
		                      settings_reloaded, manifest_reloaded, full_reset,
		                      reloaded, assets, loaded, duration_us, error, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.CascadeID, e.Project, e.Outcome, e.Trace,
		e.SettingsReloaded, e.ManifestReloaded, e.FullReset,
		e.Reloaded, e.Assets, e.Loaded, e.Duration.Microseconds(), errText, e.StartedAt.UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot save reload: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot get inserted ID: %w", err)
	}

	return id, nil
}

// RecordCascade implements deck.Journal.
// This adapter lets a deck journal its cascades without a storage dependency.
func (s *Store) RecordCascade(project string, c deck.Cascade) error {
	_, err := s.SaveReload(ReloadEntry{
		CascadeID:        c.ID.String(),
		Project:          project,
		Outcome:          c.Outcome(),
		Trace:            c.TraceString(),
		SettingsReloaded: c.SettingsReloaded,
		ManifestReloaded: c.ManifestReloaded,
		FullReset:        c.FullReset,
		Reloaded:         c.Reloaded,
		Assets:           c.Assets,
		Loaded:           c.Loaded,
		Duration:         c.Duration,
		Error:            c.ErrorText(),
		StartedAt:        c.Started,
	})
	return err
}

// Ensure Store implements deck.Journal
var _ deck.Journal = (*Store)(nil)

const reloadColumns = `id, cascade_id, project, outcome, trace,
		settings_reloaded, manifest_reloaded, full_reset,
		reloaded, assets, loaded, duration_us, error, started_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReload(row rowScanner) (ReloadEntry, error) {
	var e ReloadEntry
	var durationUS, startedAt int64
	var errText sql.NullString

	err := row.Scan(
		&e.ID,
		&e.CascadeID,
		&e.Project,
		&e.Outcome,
		&e.Trace,
		&e.SettingsReloaded,
		&e.ManifestReloaded,
		&e.FullReset,
		&e.Reloaded,
		&e.Assets,
		&e.Loaded,
		&durationUS,
		&errText,
		&startedAt,
	)
	if err != nil {
		return e, err
	}

	e.Duration = time.Duration(durationUS) * time.Microsecond
	e.StartedAt = time.Unix(0, startedAt)
	if errText.Valid {
		e.Error = errText.String
	}
	return e, nil
}

// ReloadByCascade retrieves a reload by its cascade ID.
// Returns nil without error when no such cascade was recorded.
func (s *Store) ReloadByCascade(cascadeID string) (*ReloadEntry, error) {
	row := s.db.QueryRow(
		`SELECT `+reloadColumns+` FROM reloads WHERE cascade_id = ?`,
		cascadeID,
	)
	e, err := scanReload(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query reload: %w", err)
	}
	return &e, nil
}

// RecentReloads retrieves the most recent reloads of a project, newest
// first. An empty project lists every project.
func (s *Store) RecentReloads(project string, limit int) ([]ReloadEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT `+reloadColumns+`
		 FROM reloads
		 WHERE ? = '' OR project = ?
		 ORDER BY id DESC
		 LIMIT ?`,
		project, project, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query reloads: %w", err)
	}
	defer rows.Close()

	var entries []ReloadEntry
	for rows.Next() {
		e, err := scanReload(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return entries, nil
}

// LastSuccess returns the most recent committed reload of a project.
// Returns nil without error when the project never reloaded successfully.
func (s *Store) LastSuccess(project string) (*ReloadEntry, error) {
	row := s.db.QueryRow(
		`SELECT `+reloadColumns+`
		 FROM reloads
		 WHERE project = ? AND error IS NULL
		 ORDER BY id DESC
		 LIMIT 1`,
		project,
	)
	e, err := scanReload(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query last success: %w", err)
	}
	return &e, nil
}

// Stats aggregates the journal of a project.
func (s *Store) Stats(project string) (*ReloadStats, error) {
	var stats ReloadStats
	var avg sql.NullFloat64
	var last sql.NullInt64

	err := s.db.QueryRow(
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN error IS NOT NULL THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(full_reset), 0),
		        AVG(duration_us),
		        MAX(started_at)
		 FROM reloads
		 WHERE project = ?`,
		project,
	).Scan(&stats.Total, &stats.Failures, &stats.FullResets, &avg, &last)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot get reload stats: %w", err)
	}

	if avg.Valid {
		stats.AvgDuration = time.Duration(avg.Float64) * time.Microsecond
	}
	if last.Valid {
		stats.LastAt = time.Unix(0, last.Int64)
	}
	return &stats, nil
}

// Projects lists every project with journaled reloads.
func (s *Store) Projects() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT project FROM reloads ORDER BY project`)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query projects: %w", err)
	}
	defer rows.Close()

	var projects []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return projects, nil
}

// ClearReloads deletes the journal of a project.
func (s *Store) ClearReloads(project string) error {
	_, err := s.db.Exec("DELETE FROM reloads WHERE project = ?", project)
	if err != nil {
		return fmt.Errorf("storage: cannot clear reloads: %w", err)
	}
	return nil
}
