package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/fwojciec/sitechat"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ sitechat.JobService = (*JobService)(nil)

// JobService implements sitechat.JobService using SQLite.
type JobService struct {
	db *DB
}

// NewJobService creates a new JobService.
func NewJobService(db *DB) *JobService {
	return &JobService{db: db}
}

const jobColumns = `id, seed_url, max_pages, max_depth, reset, status,
	pages_processed, pages_failed, chunks_indexed, bytes, tokens, current_url, message,
	error, created_at, started_at, completed_at`

// CreateJob stores a new pending job.
func (s *JobService) CreateJob(ctx context.Context, job *sitechat.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}

	job.ID = uuid.New().String()
	job.Status = sitechat.JobPending
	job.CreatedAt = time.Now().UTC()
	job.StartedAt = nil
	job.CompletedAt = nil

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, seed_url, max_pages, max_depth, reset, status, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, job.ID, job.SeedURL, job.MaxPages, job.MaxDepth, job.Reset, job.Status,
		job.Progress.Message, formatTime(job.CreatedAt))

	return err
}

// FindJobByID retrieves a job, including its visited URLs.
func (s *JobService) FindJobByID(ctx context.Context, id string) (*sitechat.Job, error) {
	job, err := scanJob(s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sitechat.Errorf(sitechat.ENOTFOUND, "job not found")
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT url FROM job_pages WHERE job_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		job.Visited = append(job.Visited, u)
	}

	return job, rows.Err()
}

// FindJobs retrieves jobs matching the filter, most recent first.
// Visited URLs are not loaded.
func (s *JobService) FindJobs(ctx context.Context, filter sitechat.JobFilter) ([]*sitechat.Job, error) {
	var query strings.Builder
	var args []any

	query.WriteString("SELECT " + jobColumns + " FROM jobs WHERE 1=1")

	if filter.ID != nil {
		query.WriteString(" AND id = ?")
		args = append(args, *filter.ID)
	}
	if filter.Status != nil {
		query.WriteString(" AND status = ?")
		args = append(args, *filter.Status)
	}

	query.WriteString(" ORDER BY created_at DESC, rowid DESC")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := []*sitechat.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

// UpdateJob applies upd inside a transaction. Status changes must follow
// the job lifecycle and terminal jobs reject every change with ECONFLICT.
// Moving to running sets StartedAt; moving to a terminal status sets CompletedAt.
func (s *JobService) UpdateJob(ctx context.Context, id string, upd sitechat.JobUpdate) (*sitechat.Job, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	job, err := scanJob(tx.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sitechat.Errorf(sitechat.ENOTFOUND, "job not found")
	}
	if err != nil {
		return nil, err
	}

	if job.Status.Terminal() {
		return nil, sitechat.Errorf(sitechat.ECONFLICT, "job is %s and can no longer change", job.Status)
	}

	now := time.Now().UTC()
	if upd.Status != nil && *upd.Status != job.Status {
		if !job.Status.CanTransition(*upd.Status) {
			return nil, sitechat.Errorf(sitechat.ECONFLICT, "job cannot move from %s to %s", job.Status, *upd.Status)
		}
		job.Status = *upd.Status
		if job.Status == sitechat.JobRunning {
			job.StartedAt = &now
		}
		if job.Status.Terminal() {
			job.CompletedAt = &now
		}
	}
	if upd.Progress != nil {
		job.Progress = *upd.Progress
	}
	if upd.Error != nil {
		job.Error = *upd.Error
	}

	var startedAt, completedAt sql.NullString
	if job.StartedAt != nil {
		startedAt = sql.NullString{String: formatTime(*job.StartedAt), Valid: true}
	}
	if job.CompletedAt != nil {
		completedAt = sql.NullString{String: formatTime(*job.CompletedAt), Valid: true}
	}

	p := job.Progress
	if _, err := tx.ExecContext(ctx, `
		UPDATE jobs
		SET status = ?, pages_processed = ?, pages_failed = ?, chunks_indexed = ?, bytes = ?, tokens = ?,
			current_url = ?, message = ?, error = ?, started_at = ?, completed_at = ?
		WHERE id = ?
	`, job.Status, p.PagesProcessed, p.PagesFailed, p.ChunksIndexed, p.Bytes, p.Tokens,
		p.CurrentURL, p.Message, job.Error, startedAt, completedAt, id); err != nil {
		return nil, err
	}

	if len(upd.Visited) > 0 {
		var next int
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(position), -1) + 1 FROM job_pages WHERE job_id = ?`, id,
		).Scan(&next); err != nil {
			return nil, err
		}
		for _, u := range upd.Visited {
			res, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO job_pages (job_id, position, url) VALUES (?, ?, ?)`, id, next, u)
			if err != nil {
				return nil, err
			}
			if n, _ := res.RowsAffected(); n > 0 {
				next++
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return job, nil
}

// DeleteJob permanently removes a job and its visited URLs.
func (s *JobService) DeleteJob(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM jobs WHERE id = ?", id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return sitechat.Errorf(sitechat.ENOTFOUND, "job not found")
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*sitechat.Job, error) {
	var job sitechat.Job
	var createdAt string
	var startedAt, completedAt sql.NullString
	p := &job.Progress

	if err := row.Scan(&job.ID, &job.SeedURL, &job.MaxPages, &job.MaxDepth, &job.Reset, &job.Status,
		&p.PagesProcessed, &p.PagesFailed, &p.ChunksIndexed, &p.Bytes, &p.Tokens, &p.CurrentURL, &p.Message,
		&job.Error, &createdAt, &startedAt, &completedAt); err != nil {
		return nil, err
	}

	var err error
	if job.CreatedAt, err = parseTime(createdAt, "created_at"); err != nil {
		return nil, err
	}
	if job.StartedAt, err = parseNullTime(startedAt, "started_at"); err != nil {
		return nil, err
	}
	if job.CompletedAt, err = parseNullTime(completedAt, "completed_at"); err != nil {
		return nil, err
	}
	return &job, nil
}
