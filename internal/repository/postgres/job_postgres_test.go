package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"invoicegw/internal/model"
)

func TestJobPostgres_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewJobPostgres(db)
	ctx := context.Background()

	now := time.Now().UTC()
	job := &model.Job{
		ID:         "job-uuid",
		Operation:  "combine",
		Status:     model.JobStatusOK,
		Detail:     "",
		ArchiveKey: "combine/job-uuid.pdf",
		DurationMs: 420,
		CreatedAt:  now,
	}

	rows := sqlmock.NewRows([]string{"id", "operation", "status", "detail", "archive_key", "duration_ms", "created_at"}).
		AddRow(job.ID, job.Operation, job.Status, job.Detail, job.ArchiveKey, job.DurationMs, job.CreatedAt)

	mock.ExpectQuery("INSERT INTO jobs").
		WithArgs(job.ID, job.Operation, job.Status, job.Detail, job.ArchiveKey, job.DurationMs, job.CreatedAt).
		WillReturnRows(rows)

	result, err := repo.Create(ctx, job)

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, job.ID, result.ID)
	assert.Equal(t, "combine", result.Operation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobPostgres_ListRecent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewJobPostgres(db)
	ctx := context.Background()

	t.Run("returns rows newest first", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "operation", "status", "detail", "archive_key", "duration_ms", "created_at"}).
			AddRow("b", "validate", model.JobStatusFailed, "invalid document", "", 12, time.Now()).
			AddRow("a", "extract", model.JobStatusOK, "", "extract/a.xml", 33, time.Now().Add(-time.Minute))

		mock.ExpectQuery("SELECT (.+) FROM jobs").
			WithArgs(20).
			WillReturnRows(rows)

		jobs, err := repo.ListRecent(ctx, 20)

		assert.NoError(t, err)
		assert.Len(t, jobs, 2)
		assert.Equal(t, "b", jobs[0].ID)
		assert.Equal(t, model.JobStatusFailed, jobs[0].Status)
	})

	t.Run("query error", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM jobs").
			WithArgs(20).
			WillReturnError(errors.New("boom"))

		jobs, err := repo.ListRecent(ctx, 20)

		assert.Error(t, err)
		assert.Nil(t, jobs)
	})
}
