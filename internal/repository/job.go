package repository

import (
	"context"

	"invoicegw/internal/model"
)

// JobRepository defines persistence for conversion job history using SQL
// queries only. No business logic here.
type JobRepository interface {
	// Create inserts a new job record and returns the stored row.
	Create(ctx context.Context, job *model.Job) (*model.Job, error)

	// ListRecent returns the most recent jobs, newest first.
	ListRecent(ctx context.Context, limit int) ([]model.Job, error)
}

// noopJobRepository is used when no database is configured: writes vanish,
// reads are empty.
type noopJobRepository struct{}

// Noop returns a JobRepository that persists nothing.
func Noop() JobRepository { return noopJobRepository{} }

func (noopJobRepository) Create(_ context.Context, job *model.Job) (*model.Job, error) {
	return job, nil
}

func (noopJobRepository) ListRecent(context.Context, int) ([]model.Job, error) {
	return []model.Job{}, nil
}
