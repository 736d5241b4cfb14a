// Package jobstore provides a durable, queryable store of scheduled one-shot
// jobs backed by sqlite, plus the scheduler that fires due jobs. A job is a
// kind, an opaque JSON payload and a fire time; the store assigns the id.
//
// Firing is at-least-once: a job stays in the store until its handler
// completes and removes it, so a crash between firing and completion makes
// the job fire again after restart.
package jobstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Job states. A scheduled job is live; a failed job is kept for operator
// inspection and never fired again.
const (
	StateScheduled = "scheduled"
	StateFailed    = "failed"
)

// ErrNotFound is returned by operations that target a single job id that no
// longer exists in the scheduled state.
var ErrNotFound = errors.New("job not found")

// Job is a scheduled unit of work.
type Job struct {
	ID         uuid.UUID
	Kind       string
	Payload    json.RawMessage
	NextRunAt  *time.Time
	LastRunAt  *time.Time
	State      string
	FailReason string
	CreatedAt  time.Time
}

// Filter restricts Query and CancelByFilter. Empty fields are ignored.
// UserID and GuildID match the payload's user_id and guild_id JSON fields.
type Filter struct {
	Kind    string
	UserID  string
	GuildID string
}

// Store persists jobs in a sqlite database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (and migrates) the sqlite database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open job store: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	q := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		payload TEXT NOT NULL,
		state TEXT NOT NULL DEFAULT 'scheduled',
		next_run_at DATETIME,
		last_run_at DATETIME,
		fail_reason TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_jobs_due ON jobs(state, next_run_at);
	`
	_, err := s.db.Exec(q)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// Create persists a new scheduled job in a single insert. The payload is
// marshalled to JSON; the returned job carries the assigned id and a non-nil
// NextRunAt. Nothing is persisted on error.
func (s *Store) Create(ctx context.Context, kind string, payload any, runAt time.Time) (Job, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Job{}, fmt.Errorf("failed to marshal job payload: %w", err)
	}

	runAt = runAt.UTC()
	job := Job{
		ID:        uuid.New(),
		Kind:      kind,
		Payload:   data,
		NextRunAt: &runAt,
		State:     StateScheduled,
		CreatedAt: time.Now().UTC(),
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, kind, payload, state, next_run_at, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		job.ID.String(), job.Kind, string(job.Payload), job.State, *job.NextRunAt, job.CreatedAt)
	if err != nil {
		return Job{}, fmt.Errorf("failed to insert job: %w", err)
	}

	return job, nil
}

// Query returns scheduled jobs matching the filter, ordered by fire time
// ascending with creation order breaking ties.
func (s *Store) Query(ctx context.Context, f Filter) ([]Job, error) {
	query := `SELECT id, kind, payload, state, next_run_at, last_run_at, fail_reason, created_at
		FROM jobs WHERE state = ?`
	args := []any{StateScheduled}
	query, args = appendFilter(query, args, f)
	query += ` ORDER BY next_run_at ASC, created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// GetByID returns a single job regardless of state.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, kind, payload, state, next_run_at, last_run_at, fail_reason, created_at
		FROM jobs WHERE id = ?`, id.String())
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, ErrNotFound
	}
	return job, err
}

// CancelByID removes a scheduled job matching the filter and reports how
// many jobs were cancelled. Zero with a nil error means the id was not found
// in the scheduled state or the filter did not match (already fired, already
// deleted, or owned by someone else); the caller decides whether that is an
// error.
func (s *Store) CancelByID(ctx context.Context, id uuid.UUID, f Filter) (int64, error) {
	query := `DELETE FROM jobs WHERE id = ? AND state = ?`
	args := []any{id.String(), StateScheduled}
	query, args = appendFilter(query, args, f)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel job: %w", err)
	}
	return res.RowsAffected()
}

// CancelByFilter removes all scheduled jobs matching the filter.
func (s *Store) CancelByFilter(ctx context.Context, f Filter) (int64, error) {
	query := `DELETE FROM jobs WHERE state = ?`
	args := []any{StateScheduled}
	query, args = appendFilter(query, args, f)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel jobs: %w", err)
	}
	return res.RowsAffected()
}

// MarkFailed transitions a job to the failed state, keeping it in the store.
func (s *Store) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET state = ?, fail_reason = ? WHERE id = ?`,
		StateFailed, reason, id.String())
	if err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a job unconditionally.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

// ClaimDue stamps last_run_at on every scheduled job due at now and returns
// them. The jobs stay scheduled until their handler removes or fails them,
// which is what makes firing at-least-once. A job already fired within the
// lease window is skipped, so a slow handler is not refired on every poll;
// once the lease expires an unsettled job fires again (crash recovery).
func (s *Store) ClaimDue(ctx context.Context, now time.Time, lease time.Duration) ([]Job, error) {
	now = now.UTC()
	leaseCutoff := now.Add(-lease)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT id, kind, payload, state, next_run_at, last_run_at, fail_reason, created_at
		FROM jobs WHERE state = ? AND next_run_at IS NOT NULL AND next_run_at <= ?
		AND (last_run_at IS NULL OR last_run_at <= ?)
		ORDER BY next_run_at ASC`, StateScheduled, now, leaseCutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query due jobs: %w", err)
	}

	var due []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		due = append(due, job)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range due {
		if _, err := tx.ExecContext(ctx,
			`UPDATE jobs SET last_run_at = ? WHERE id = ?`, now, due[i].ID.String()); err != nil {
			return nil, fmt.Errorf("failed to stamp job fire time: %w", err)
		}
		t := now
		due[i].LastRunAt = &t
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return due, nil
}

// PurgeFailed deletes failed jobs whose fire time is older than cutoff.
// Returns the number of jobs removed.
func (s *Store) PurgeFailed(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM jobs WHERE state = ? AND (last_run_at IS NULL OR last_run_at <= ?)`,
		StateFailed, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge failed jobs: %w", err)
	}
	return res.RowsAffected()
}

func appendFilter(query string, args []any, f Filter) (string, []any) {
	if f.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, f.Kind)
	}
	if f.UserID != "" {
		query += ` AND json_extract(payload, '$.user_id') = ?`
		args = append(args, f.UserID)
	}
	if f.GuildID != "" {
		query += ` AND json_extract(payload, '$.guild_id') = ?`
		args = append(args, f.GuildID)
	}
	return query, args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (Job, error) {
	var (
		job        Job
		id         string
		payload    string
		nextRunAt  sql.NullTime
		lastRunAt  sql.NullTime
		failReason sql.NullString
	)

	err := row.Scan(&id, &job.Kind, &payload, &job.State, &nextRunAt, &lastRunAt, &failReason, &job.CreatedAt)
	if err != nil {
		return Job{}, err
	}

	job.ID, err = uuid.Parse(id)
	if err != nil {
		return Job{}, fmt.Errorf("invalid job id %q: %w", id, err)
	}
	job.Payload = json.RawMessage(payload)
	if nextRunAt.Valid {
		t := nextRunAt.Time
		job.NextRunAt = &t
	}
	if lastRunAt.Valid {
		t := lastRunAt.Time
		job.LastRunAt = &t
	}
	job.FailReason = failReason.String

	return job, nil
}
