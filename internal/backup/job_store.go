package backup

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// SQLJobStore is the Postgres-backed JobStore. The monotonic job state
// machine is enforced in the UPDATE predicates themselves: a transition that
// does not match the expected current status affects zero rows and is
// reported as ErrInvalidTransition.
type SQLJobStore struct {
	db *sql.DB
}

// NewJobStore creates a job store backed by the shared pool
func NewJobStore(db *sql.DB) *SQLJobStore {
	return &SQLJobStore{db: db}
}

const jobColumns = `id, tenant_id, kind, storage_tier, status, size_bytes, location, error_message, started_at, completed_at, created_at`

// Create inserts a job row in pending state and returns it
func (s *SQLJobStore) Create(ctx context.Context, tenantID string, kind BackupKind, tier StorageTier) (*BackupJob, error) {
	job := &BackupJob{
		TenantID:    tenantID,
		Kind:        kind,
		StorageTier: tier,
		Status:      JobStatusPending,
	}

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO backup_jobs (tenant_id, kind, storage_tier, status)
		 VALUES ($1, $2, $3, 'pending')
		 RETURNING id, created_at`,
		tenantID, string(kind), string(tier),
	).Scan(&job.ID, &job.CreatedAt)
	if err != nil {
		return nil, NewDatabaseError("failed to insert backup job", err)
	}

	return job, nil
}

// MarkRunning transitions a pending job to running
func (s *SQLJobStore) MarkRunning(ctx context.Context, jobID int64, startedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE backup_jobs
		    SET status = 'running', started_at = $2
		  WHERE id = $1 AND status = 'pending'`,
		jobID, startedAt.UTC())
	if err != nil {
		return NewDatabaseError("failed to mark job running", err)
	}
	return s.checkTransition(ctx, res, jobID)
}

// MarkCompleted transitions a running job to completed with its artifact
// size and storage location
func (s *SQLJobStore) MarkCompleted(ctx context.Context, jobID int64, sizeBytes int64, location string, completedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE backup_jobs
		    SET status = 'completed', size_bytes = $2, location = $3, completed_at = $4
		  WHERE id = $1 AND status = 'running'`,
		jobID, sizeBytes, location, completedAt.UTC())
	if err != nil {
		return NewDatabaseError("failed to mark job completed", err)
	}
	return s.checkTransition(ctx, res, jobID)
}

// MarkFailed transitions a non-terminal job to failed with a human-readable
// message. A terminal job is never modified.
func (s *SQLJobStore) MarkFailed(ctx context.Context, jobID int64, message string, completedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE backup_jobs
		    SET status = 'failed', error_message = $2, completed_at = $3
		  WHERE id = $1 AND status IN ('pending', 'running')`,
		jobID, message, completedAt.UTC())
	if err != nil {
		return NewDatabaseError("failed to mark job failed", err)
	}
	return s.checkTransition(ctx, res, jobID)
}

// checkTransition distinguishes a missing row from a rejected transition
func (s *SQLJobStore) checkTransition(ctx context.Context, res sql.Result, jobID int64) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return NewDatabaseError("failed to read affected rows", err)
	}
	if affected == 1 {
		return nil
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM backup_jobs WHERE id = $1)`, jobID).Scan(&exists); err != nil {
		return NewDatabaseError("failed to check job existence", err)
	}
	if !exists {
		return ErrJobNotFound
	}
	return ErrInvalidTransition
}

// GetByID returns one job row
func (s *SQLJobStore) GetByID(ctx context.Context, jobID int64) (*BackupJob, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM backup_jobs WHERE id = $1`, jobID)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, NewDatabaseError("failed to load backup job", err)
	}
	return job, nil
}

// History returns a tenant's most recent jobs, newest first
func (s *SQLJobStore) History(ctx context.Context, tenantID string, limit int) ([]*BackupJob, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+jobColumns+`
		   FROM backup_jobs
		  WHERE tenant_id = $1
		  ORDER BY created_at DESC
		  LIMIT $2`,
		tenantID, limit)
	if err != nil {
		return nil, NewDatabaseError("failed to query backup history", err)
	}
	defer rows.Close()

	var jobs []*BackupJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, NewDatabaseError("failed to scan backup job", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, NewDatabaseError("error iterating backup jobs", err)
	}

	return jobs, nil
}

// Stats aggregates a tenant's backup history
func (s *SQLJobStore) Stats(ctx context.Context, tenantID string) (*BackupStats, error) {
	stats := &BackupStats{}
	var lastCompleted sql.NullTime

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE status = 'completed'),
		        COUNT(*) FILTER (WHERE status = 'failed'),
		        COALESCE(SUM(size_bytes) FILTER (WHERE status = 'completed'), 0),
		        MAX(completed_at) FILTER (WHERE status = 'completed')
		   FROM backup_jobs
		  WHERE tenant_id = $1`,
		tenantID,
	).Scan(&stats.Total, &stats.Completed, &stats.Failed, &stats.TotalBytes, &lastCompleted)
	if err != nil {
		return nil, NewDatabaseError("failed to query backup stats", err)
	}

	if lastCompleted.Valid {
		t := lastCompleted.Time
		stats.LastCompletedAt = &t
	}

	return stats, nil
}

// rowScanner covers both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*BackupJob, error) {
	var (
		job       BackupJob
		size      sql.NullInt64
		location  sql.NullString
		errMsg    sql.NullString
		started   sql.NullTime
		completed sql.NullTime
	)

	err := row.Scan(&job.ID, &job.TenantID, &job.Kind, &job.StorageTier, &job.Status,
		&size, &location, &errMsg, &started, &completed, &job.CreatedAt)
	if err != nil {
		return nil, err
	}

	if size.Valid {
		job.SizeBytes = &size.Int64
	}
	if location.Valid {
		job.Location = &location.String
	}
	if errMsg.Valid {
		job.ErrorMessage = &errMsg.String
	}
	if started.Valid {
		job.StartedAt = &started.Time
	}
	if completed.Valid {
		job.CompletedAt = &completed.Time
	}

	return &job, nil
}
