// Package history persists build and deployment records in a sqlite
// database under the state directory. The pagefold history command reads
// from it; the pipeline appends to it.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// FileName is the database file name inside the state directory.
const FileName = "history.db"

// defaultLimit bounds list queries when the caller passes no limit.
const defaultLimit = 20

// BuildRecord is one pipeline build run.
type BuildRecord struct {
	BuildID       string
	StartedAt     time.Time
	Duration      time.Duration
	Documents     int
	RenderedPages int
	Issues        int
	Outcome       string
	Fingerprint   string
}

// DeploymentRecord is one published deployment.
type DeploymentRecord struct {
	DeployID  string
	BuildID   string
	Project   string
	URL       string
	Commit    string
	Branch    string
	CreatedAt time.Time
}

// Store wraps the sqlite connection. sqlite allows a single writer; the
// mutex plus a single pooled connection keep concurrent appends (and the
// in-memory test database) correct.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens or creates the history database at dbPath.
// Use ":memory:" for an ephemeral store.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize history schema: %w", err)
	}
	return store, nil
}

// OpenDefault opens the history database in its standard location under the
// state directory, creating the directory when needed.
func OpenDefault(stateDir string) (*Store, error) {
	if err := os.MkdirAll(stateDir, 0o750); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	return Open(filepath.Join(stateDir, FileName))
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		build_id TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		documents INTEGER NOT NULL,
		rendered_pages INTEGER NOT NULL,
		issues INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		fingerprint TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_builds_build_id ON builds(build_id);
	CREATE INDEX IF NOT EXISTS idx_builds_started_at ON builds(started_at);

	CREATE TABLE IF NOT EXISTS deployments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		deploy_id TEXT NOT NULL,
		build_id TEXT NOT NULL,
		project TEXT NOT NULL,
		url TEXT,
		commit_sha TEXT,
		branch TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_deployments_created_at ON deployments(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// AppendBuild records one build run.
func (s *Store) AppendBuild(ctx context.Context, rec *BuildRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO builds (build_id, started_at, duration_ms, documents, rendered_pages, issues, outcome, fingerprint)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.BuildID, rec.StartedAt.Unix(), rec.Duration.Milliseconds(),
		rec.Documents, rec.RenderedPages, rec.Issues, rec.Outcome, rec.Fingerprint,
	)
	if err != nil {
		return fmt.Errorf("insert build record: %w", err)
	}
	return nil
}

// AppendDeployment records one published deployment.
func (s *Store) AppendDeployment(ctx context.Context, rec *DeploymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO deployments (deploy_id, build_id, project, url, commit_sha, branch, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.DeployID, rec.BuildID, rec.Project, rec.URL, rec.Commit, rec.Branch, rec.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert deployment record: %w", err)
	}
	return nil
}

// RecentBuilds returns the newest builds first, at most limit rows.
func (s *Store) RecentBuilds(ctx context.Context, limit int) ([]BuildRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = defaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT build_id, started_at, duration_ms, documents, rendered_pages, issues, outcome, fingerprint
		 FROM builds ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query builds: %w", err)
	}
	defer rows.Close()

	var records []BuildRecord
	for rows.Next() {
		var rec BuildRecord
		var startedUnix, durationMS int64
		if err := rows.Scan(&rec.BuildID, &startedUnix, &durationMS,
			&rec.Documents, &rec.RenderedPages, &rec.Issues, &rec.Outcome, &rec.Fingerprint); err != nil {
			return nil, fmt.Errorf("scan build record: %w", err)
		}
		rec.StartedAt = time.Unix(startedUnix, 0)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate builds: %w", err)
	}
	return records, nil
}

// RecentDeployments returns the newest deployments first, at most limit rows.
func (s *Store) RecentDeployments(ctx context.Context, limit int) ([]DeploymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = defaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT deploy_id, build_id, project, url, commit_sha, branch, created_at
		 FROM deployments ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query deployments: %w", err)
	}
	defer rows.Close()

	var records []DeploymentRecord
	for rows.Next() {
		var rec DeploymentRecord
		var createdUnix int64
		if err := rows.Scan(&rec.DeployID, &rec.BuildID, &rec.Project,
			&rec.URL, &rec.Commit, &rec.Branch, &createdUnix); err != nil {
			return nil, fmt.Errorf("scan deployment record: %w", err)
		}
		rec.CreatedAt = time.Unix(createdUnix, 0)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deployments: %w", err)
	}
	return records, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
