package postgres

import (
	"context"
	"database/sql"

	"invoicegw/internal/model"
	"invoicegw/internal/repository"
)

// JobPostgres is a PostgreSQL implementation of repository.JobRepository.
// It uses database/sql with parameterized queries and contains no business
// logic.
type JobPostgres struct {
	db *sql.DB
}

// NewJobPostgres creates a new JobPostgres repository.
func NewJobPostgres(db *sql.DB) *JobPostgres {
	return &JobPostgres{db: db}
}

var _ repository.JobRepository = (*JobPostgres)(nil)

// Create inserts a new job row and returns the stored record.
func (r *JobPostgres) Create(ctx context.Context, job *model.Job) (*model.Job, error) {
	const q = `
		INSERT INTO jobs (id, operation, status, detail, archive_key, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, operation, status, detail, archive_key, duration_ms, created_at
	`
	row := r.db.QueryRowContext(ctx, q,
		job.ID,
		job.Operation,
		job.Status,
		job.Detail,
		job.ArchiveKey,
		job.DurationMs,
		job.CreatedAt,
	)
	var out model.Job
	if err := row.Scan(
		&out.ID,
		&out.Operation,
		&out.Status,
		&out.Detail,
		&out.ArchiveKey,
		&out.DurationMs,
		&out.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListRecent returns the newest jobs first, capped at limit.
func (r *JobPostgres) ListRecent(ctx context.Context, limit int) ([]model.Job, error) {
	const q = `
		SELECT id, operation, status, detail, archive_key, duration_ms, created_at
		FROM jobs
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Job, 0)
	for rows.Next() {
		var j model.Job
		if err := rows.Scan(
			&j.ID,
			&j.Operation,
			&j.Status,
			&j.Detail,
			&j.ArchiveKey,
			&j.DurationMs,
			&j.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, j)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
