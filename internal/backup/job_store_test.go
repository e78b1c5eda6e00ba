package backup

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJobStoreTest(t *testing.T) (*SQLJobStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewJobStore(db), mock
}

func jobRows(status JobStatus) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "tenant_id", "kind", "storage_tier", "status",
		"size_bytes", "location", "error_message", "started_at", "completed_at", "created_at",
	}).AddRow(int64(7), "acme", "full", "standard", string(status),
		nil, nil, nil, nil, nil, time.Now())
}

func TestJobStoreCreate(t *testing.T) {
	store, mock := newJobStoreTest(t)

	created := time.Now()
	mock.ExpectQuery("INSERT INTO backup_jobs").
		WithArgs("acme", "full", "standard").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), created))

	job, err := store.Create(context.Background(), "acme", BackupKindFull, StorageTierStandard)
	require.NoError(t, err)

	assert.Equal(t, int64(7), job.ID)
	assert.Equal(t, "acme", job.TenantID)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, created, job.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStoreMarkRunning(t *testing.T) {
	store, mock := newJobStoreTest(t)

	mock.ExpectExec("UPDATE backup_jobs").
		WithArgs(int64(7), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.MarkRunning(context.Background(), 7, time.Now())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStoreMarkRunningInvalidTransition(t *testing.T) {
	store, mock := newJobStoreTest(t)

	// Zero rows affected on an existing job means the row is no longer
	// pending: the state machine rejects the transition.
	mock.ExpectExec("UPDATE backup_jobs").
		WithArgs(int64(7), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	err := store.MarkRunning(context.Background(), 7, time.Now())
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStoreMarkRunningNotFound(t *testing.T) {
	store, mock := newJobStoreTest(t)

	mock.ExpectExec("UPDATE backup_jobs").
		WithArgs(int64(99), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	err := store.MarkRunning(context.Background(), 99, time.Now())
	assert.ErrorIs(t, err, ErrJobNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStoreMarkCompleted(t *testing.T) {
	store, mock := newJobStoreTest(t)

	mock.ExpectExec("UPDATE backup_jobs").
		WithArgs(int64(7), int64(2048), "s3://backups/tenants/acme/jobs/7/schema.sql.gz", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.MarkCompleted(context.Background(), 7, 2048, "s3://backups/tenants/acme/jobs/7/schema.sql.gz", time.Now())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStoreMarkCompletedRejectsTerminalJob(t *testing.T) {
	store, mock := newJobStoreTest(t)

	mock.ExpectExec("UPDATE backup_jobs").
		WithArgs(int64(7), int64(2048), "s3://bucket/key", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	err := store.MarkCompleted(context.Background(), 7, 2048, "s3://bucket/key", time.Now())
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStoreMarkFailed(t *testing.T) {
	store, mock := newJobStoreTest(t)

	mock.ExpectExec("UPDATE backup_jobs").
		WithArgs(int64(7), "schema not found: acme", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.MarkFailed(context.Background(), 7, "schema not found: acme", time.Now())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStoreGetByID(t *testing.T) {
	store, mock := newJobStoreTest(t)

	mock.ExpectQuery("SELECT (.+) FROM backup_jobs WHERE id").
		WithArgs(int64(7)).
		WillReturnRows(jobRows(JobStatusPending))

	job, err := store.GetByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), job.ID)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Nil(t, job.SizeBytes)
	assert.Nil(t, job.ErrorMessage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStoreGetByIDNotFound(t *testing.T) {
	store, mock := newJobStoreTest(t)

	mock.ExpectQuery("SELECT (.+) FROM backup_jobs WHERE id").
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "tenant_id", "kind", "storage_tier", "status",
			"size_bytes", "location", "error_message", "started_at", "completed_at", "created_at",
		}))

	_, err := store.GetByID(context.Background(), 404)
	assert.ErrorIs(t, err, ErrJobNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStoreHistory(t *testing.T) {
	store, mock := newJobStoreTest(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "tenant_id", "kind", "storage_tier", "status",
		"size_bytes", "location", "error_message", "started_at", "completed_at", "created_at",
	}).
		AddRow(int64(9), "acme", "full", "standard", "completed",
			int64(4096), "s3://bucket/key", nil, now, now, now).
		AddRow(int64(8), "acme", "full", "standard", "failed",
			nil, nil, "dump failed", now, now, now.Add(-time.Hour))

	mock.ExpectQuery("SELECT (.+) FROM backup_jobs").
		WithArgs("acme", 10).
		WillReturnRows(rows)

	jobs, err := store.History(context.Background(), "acme", 10)
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	assert.Equal(t, JobStatusCompleted, jobs[0].Status)
	require.NotNil(t, jobs[0].SizeBytes)
	assert.Equal(t, int64(4096), *jobs[0].SizeBytes)

	assert.Equal(t, JobStatusFailed, jobs[1].Status)
	require.NotNil(t, jobs[1].ErrorMessage)
	assert.Equal(t, "dump failed", *jobs[1].ErrorMessage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStoreHistoryDefaultLimit(t *testing.T) {
	store, mock := newJobStoreTest(t)

	mock.ExpectQuery("SELECT (.+) FROM backup_jobs").
		WithArgs("acme", 50).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "tenant_id", "kind", "storage_tier", "status",
			"size_bytes", "location", "error_message", "started_at", "completed_at", "created_at",
		}))

	jobs, err := store.History(context.Background(), "acme", 0)
	assert.NoError(t, err)
	assert.Empty(t, jobs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStoreStats(t *testing.T) {
	store, mock := newJobStoreTest(t)

	last := time.Now()
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("acme").
		WillReturnRows(sqlmock.NewRows([]string{"total", "completed", "failed", "bytes", "last"}).
			AddRow(12, 10, 2, int64(1<<20), last))

	stats, err := store.Stats(context.Background(), "acme")
	require.NoError(t, err)

	assert.Equal(t, 12, stats.Total)
	assert.Equal(t, 10, stats.Completed)
	assert.Equal(t, 2, stats.Failed)
	assert.Equal(t, int64(1<<20), stats.TotalBytes)
	require.NotNil(t, stats.LastCompletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
