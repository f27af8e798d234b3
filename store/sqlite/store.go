// Package sqlite provides a durable job store backed by an embedded
// SQLite database, so interrupted runs survive process restarts.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/spoolkit/spool/job"
	"github.com/spoolkit/spool/store/sqlite/migrations"
)

// Store is a SQLite-backed job store.
type Store struct {
	db   *sql.DB
	path string
}

var _ job.Store = (*Store)(nil)

// NewStore opens (creating if needed) the job database under dataDir.
// If dataDir is empty, defaults to ~/.spool/data/jobs.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".spool", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "jobs.db")

	// WAL mode for concurrent readers while a run writes through.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: dbPath}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(
			"INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// SaveJob stores or updates a job record.
func (s *Store) SaveJob(ctx context.Context, rec *job.Record) error {
	planJSON, err := json.Marshal(rec.Plan)
	if err != nil {
		return fmt.Errorf("marshalling plan: %w", err)
	}
	unitsJSON, err := json.Marshal(rec.Units)
	if err != nil {
		return fmt.Errorf("marshalling units: %w", err)
	}
	resultsJSON, err := json.Marshal(rec.Results)
	if err != nil {
		return fmt.Errorf("marshalling results: %w", err)
	}
	memoryJSON, err := json.Marshal(rec.Memory)
	if err != nil {
		return fmt.Errorf("marshalling memory: %w", err)
	}

	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, document_id, task, status, plan, units, results, memory, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document_id = excluded.document_id,
			task = excluded.task,
			status = excluded.status,
			plan = excluded.plan,
			units = excluded.units,
			results = excluded.results,
			memory = excluded.memory,
			updated_at = excluded.updated_at
	`, rec.ID, rec.DocumentID, rec.Task, string(rec.Status),
		string(planJSON), string(unitsJSON), string(resultsJSON), string(memoryJSON),
		rec.CreatedAt, rec.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving job: %w", err)
	}
	return nil
}

// GetJob retrieves a job record by ID.
func (s *Store) GetJob(ctx context.Context, id string) (*job.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, document_id, task, status, plan, units, results, memory, created_at, updated_at
		FROM jobs WHERE id = ?
	`, id)

	var rec job.Record
	var status, planJSON, unitsJSON, resultsJSON, memoryJSON string
	if err := row.Scan(&rec.ID, &rec.DocumentID, &rec.Task, &status,
		&planJSON, &unitsJSON, &resultsJSON, &memoryJSON,
		&rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, job.ErrNotFound
		}
		return nil, fmt.Errorf("scanning job: %w", err)
	}

	rec.Status = job.RunStatus(status)
	if err := json.Unmarshal([]byte(planJSON), &rec.Plan); err != nil {
		return nil, fmt.Errorf("unmarshalling plan: %w", err)
	}
	if err := json.Unmarshal([]byte(unitsJSON), &rec.Units); err != nil {
		return nil, fmt.Errorf("unmarshalling units: %w", err)
	}
	if err := json.Unmarshal([]byte(resultsJSON), &rec.Results); err != nil {
		return nil, fmt.Errorf("unmarshalling results: %w", err)
	}
	if err := json.Unmarshal([]byte(memoryJSON), &rec.Memory); err != nil {
		return nil, fmt.Errorf("unmarshalling memory: %w", err)
	}

	return &rec, nil
}

// ListJobs returns summaries for all jobs, most recently updated first.
func (s *Store) ListJobs(ctx context.Context) ([]job.Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, task, status, units, updated_at
		FROM jobs ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying jobs: %w", err)
	}
	defer rows.Close()

	var summaries []job.Summary //nolint:prealloc // size unknown from query
	for rows.Next() {
		var sum job.Summary
		var status, unitsJSON string
		if err := rows.Scan(&sum.ID, &sum.DocumentID, &sum.Task, &status,
			&unitsJSON, &sum.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning job: %w", err)
		}
		sum.Status = job.RunStatus(status)

		var units []job.UnitState
		if err := json.Unmarshal([]byte(unitsJSON), &units); err != nil {
			return nil, fmt.Errorf("unmarshalling units: %w", err)
		}
		sum.UnitsTotal = len(units)
		for _, u := range units {
			if u.Status == job.UnitDone {
				sum.UnitsDone++
			}
		}
		summaries = append(summaries, sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating jobs: %w", err)
	}

	return summaries, nil
}

// DeleteJob removes a job record.
func (s *Store) DeleteJob(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM jobs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting job: %w", err)
	}
	return nil
}
