package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id            TEXT PRIMARY KEY,
    username      TEXT NOT NULL,
    window_start  TEXT NOT NULL,
    window_end    TEXT NOT NULL,
    policy        TEXT NOT NULL,
    threshold     REAL NOT NULL,
    host          TEXT NOT NULL DEFAULT '',
    consumed_ms   INTEGER NOT NULL,
    allocated_ms  INTEGER NOT NULL,
    efficiency    REAL,
    jobs          INTEGER NOT NULL DEFAULT 0,
    low           INTEGER NOT NULL DEFAULT 0,
    steps         INTEGER NOT NULL DEFAULT 0,
    undefined     INTEGER NOT NULL DEFAULT 0,
    synced        INTEGER NOT NULL DEFAULT 0,
    created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_user ON runs(username, created_at);
CREATE INDEX IF NOT EXISTS idx_runs_synced ON runs(synced) WHERE synced = 0;

CREATE TABLE IF NOT EXISTS job_efficiency (
    run_id        TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    job_id        TEXT NOT NULL,
    substep       TEXT NOT NULL DEFAULT '',
    raw_id        TEXT NOT NULL DEFAULT '',
    job_name      TEXT NOT NULL DEFAULT '',
    state         TEXT NOT NULL DEFAULT '',
    ncpus         REAL NOT NULL DEFAULT 0,
    consumed_ms   INTEGER NOT NULL,
    allocated_ms  INTEGER NOT NULL,
    efficiency    REAL,
    started_at    TEXT,
    PRIMARY KEY (run_id, job_id, substep)
);
`

// timeLayout is fixed-width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store provides SQLite-backed storage for run history.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the history database at dbPath and runs migrations.
func OpenStore(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	// WAL lets `history` read while a report run writes
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Insert stores a run and its job rows in one transaction.
func (s *Store) Insert(run Run, jobs []Job) error {
	if run.ID == "" {
		return fmt.Errorf("insert run: empty id")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (
			id, username, window_start, window_end, policy, threshold, host,
			consumed_ms, allocated_ms, efficiency,
			jobs, low, steps, undefined, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.User, run.Start, run.End, run.Policy, run.Threshold, run.Host,
		run.Consumed.Milliseconds(), run.Allocated.Milliseconds(), nullable(run.Efficiency, run.Valid),
		run.Jobs, run.Low, run.Steps, run.Undefined,
		run.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO job_efficiency (
			run_id, job_id, substep, raw_id, job_name, state, ncpus,
			consumed_ms, allocated_ms, efficiency, started_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare job insert: %w", err)
	}
	defer stmt.Close()

	for _, j := range jobs {
		if _, err := stmt.Exec(
			run.ID, j.JobID, j.Substep, j.RawID, j.JobName, j.State, j.NCPUS,
			j.Consumed.Milliseconds(), j.Allocated.Milliseconds(), nullable(j.Efficiency, j.Valid),
			nullableTime(j.Started),
		); err != nil {
			return fmt.Errorf("insert job %s: %w", j.JobID, err)
		}
	}

	return tx.Commit()
}

const runColumns = `
	id, username, window_start, window_end, policy, threshold, host,
	consumed_ms, allocated_ms, efficiency,
	jobs, low, steps, undefined, synced, created_at`

// ListRuns returns up to limit runs, newest first. An empty user lists all users.
func (s *Store) ListRuns(user string, limit int) ([]Run, error) {
	query := "SELECT" + runColumns + " FROM runs"
	var args []any
	if user != "" {
		query += " WHERE username = ?"
		args = append(args, user)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	return scanRuns(rows)
}

// QueryUnsynced returns up to limit runs that have not been synced, oldest first.
func (s *Store) QueryUnsynced(limit int) ([]Run, error) {
	rows, err := s.db.Query("SELECT"+runColumns+`
		FROM runs
		WHERE synced = 0
		ORDER BY created_at ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query unsynced: %w", err)
	}
	defer rows.Close()
	return scanRuns(rows)
}

// Jobs returns the stored rows of one run in key order.
func (s *Store) Jobs(runID string) ([]Job, error) {
	rows, err := s.db.Query(`
		SELECT run_id, job_id, substep, raw_id, job_name, state, ncpus,
		       consumed_ms, allocated_ms, efficiency, started_at
		FROM job_efficiency
		WHERE run_id = ?
		ORDER BY CAST(job_id AS INTEGER), job_id, substep`, runID)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var j Job
		var consumed, allocated int64
		var eff sql.NullFloat64
		var started sql.NullString
		if err := rows.Scan(
			&j.RunID, &j.JobID, &j.Substep, &j.RawID, &j.JobName, &j.State, &j.NCPUS,
			&consumed, &allocated, &eff, &started,
		); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		if started.Valid {
			ts, err := time.Parse(timeLayout, started.String)
			if err != nil {
				return nil, fmt.Errorf("parse started_at of job %s: %w", j.JobID, err)
			}
			j.Started = ts
		}
		j.Consumed = time.Duration(consumed) * time.Millisecond
		j.Allocated = time.Duration(allocated) * time.Millisecond
		j.Efficiency, j.Valid = eff.Float64, eff.Valid
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// MarkSynced sets the synced flag for the given run IDs.
func (s *Store) MarkSynced(ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("UPDATE runs SET synced = 1 WHERE id = ?")
	if err != nil {
		return fmt.Errorf("prepare update: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.Exec(id); err != nil {
			return fmt.Errorf("mark synced id=%s: %w", id, err)
		}
	}

	return tx.Commit()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func scanRuns(rows *sql.Rows) ([]Run, error) {
	var runs []Run
	for rows.Next() {
		var r Run
		var consumed, allocated int64
		var eff sql.NullFloat64
		var synced int
		var createdAt string
		if err := rows.Scan(
			&r.ID, &r.User, &r.Start, &r.End, &r.Policy, &r.Threshold, &r.Host,
			&consumed, &allocated, &eff,
			&r.Jobs, &r.Low, &r.Steps, &r.Undefined, &synced, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Consumed = time.Duration(consumed) * time.Millisecond
		r.Allocated = time.Duration(allocated) * time.Millisecond
		r.Efficiency, r.Valid = eff.Float64, eff.Valid
		r.Synced = synced != 0
		if t, err := time.Parse(timeLayout, createdAt); err == nil {
			r.CreatedAt = t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func nullable(v float64, valid bool) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: valid}
}

func nullableTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(timeLayout), Valid: true}
}
