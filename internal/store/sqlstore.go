package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// nowUTC returns the current UTC time as an ISO 8601 string.
func nowUTC() string { return time.Now().UTC().Format(time.RFC3339) }

// nullStr converts a sql.NullString to a plain string (empty if null).
func nullStr(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// currentSchemaVersion is the target schema version for this build.
const currentSchemaVersion = schemaVersionV1

// SqlStore implements Store with SQLite.
type SqlStore struct {
	db *sql.DB
}

// Open opens or creates a SQLite DB at path and checks its schema version.
// Creates the parent directory if it does not exist.
func Open(path string) (*SqlStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &SqlStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SqlStore) migrate() error {
	var tableCount int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableCount)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableCount == 0 {
		return s.freshInstall()
	}

	var v int
	err = s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("schema_version is empty")
	}
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	switch v {
	case currentSchemaVersion:
		return nil
	default:
		return fmt.Errorf("unknown schema version %d", v)
	}
}

// freshInstall runs inside a transaction.
func (s *SqlStore) freshInstall() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(schemaV1); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.Exec("INSERT INTO schema_version(version) VALUES(?)", currentSchemaVersion); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SqlStore) Close() error {
	return s.db.Close()
}

// RecordStage implements Store.
func (s *SqlStore) RecordStage(e *Entry) (int64, error) {
	if e == nil {
		return 0, errors.New("entry is nil")
	}
	if e.RunID == "" || e.Stage == "" {
		return 0, errors.New("entry needs run id and stage")
	}
	started := e.StartedAt
	if started == "" {
		started = nowUTC()
	}
	res, err := s.db.Exec(
		`INSERT INTO stage_entries(run_id, stage, obs_id, status, output, message, started_at, finished_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Stage, e.ObsID, e.Status,
		nullIfEmpty(e.Output), nullIfEmpty(e.Message), started, nullIfEmpty(e.FinishedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert entry: %w", err)
	}
	return res.LastInsertId()
}

const entryColumns = "id, run_id, stage, obs_id, status, output, message, started_at, finished_at"

// ListRun implements Store.
func (s *SqlStore) ListRun(runID string) ([]*Entry, error) {
	rows, err := s.db.Query("SELECT "+entryColumns+" FROM stage_entries WHERE run_id = ? ORDER BY id", runID)
	if err != nil {
		return nil, fmt.Errorf("list run: %w", err)
	}
	return scanEntries(rows)
}

// ListRuns implements Store. Newest run first.
func (s *SqlStore) ListRuns() ([]*Run, error) {
	rows, err := s.db.Query(`
		SELECT run_id, MIN(started_at), MAX(COALESCE(finished_at, '')),
		       SUM(CASE WHEN obs_id = '' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN obs_id = '' AND status = 'failed' THEN 1 ELSE 0 END)
		FROM stage_entries
		GROUP BY run_id
		ORDER BY MAX(id) DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	var out []*Run
	for rows.Next() {
		r := &Run{}
		if err := rows.Scan(&r.RunID, &r.StartedAt, &r.FinishedAt, &r.Stages, &r.Failed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LatestByObservation implements Store.
func (s *SqlStore) LatestByObservation() ([]*Entry, error) {
	rows, err := s.db.Query(`
		SELECT ` + entryColumns + ` FROM stage_entries e
		WHERE obs_id != '' AND id = (
			SELECT MAX(id) FROM stage_entries WHERE obs_id = e.obs_id AND stage = e.stage
		)
		ORDER BY obs_id, id`)
	if err != nil {
		return nil, fmt.Errorf("latest by observation: %w", err)
	}
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]*Entry, error) {
	defer rows.Close()
	var out []*Entry
	for rows.Next() {
		e := &Entry{}
		var output, message, finished sql.NullString
		if err := rows.Scan(&e.ID, &e.RunID, &e.Stage, &e.ObsID, &e.Status, &output, &message, &e.StartedAt, &finished); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Output, e.Message, e.FinishedAt = nullStr(output), nullStr(message), nullStr(finished)
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
