package backup

import (
	"context"
	"time"
)

// BackupManager orchestrates backup creation and exposes job history
type BackupManager interface {
	// CreateBackup records a pending job and launches the
	// dump/compress/upload pipeline asynchronously. The returned job is in
	// pending state; pipeline failures are recorded on the job row, never
	// returned from here.
	CreateBackup(ctx context.Context, tenantID string, kind BackupKind, tier StorageTier) (*BackupJob, error)

	GetBackupJob(ctx context.Context, jobID int64) (*BackupJob, error)
	GetBackupHistory(ctx context.Context, tenantID string, limit int) ([]*BackupJob, error)
	GetBackupStats(ctx context.Context, tenantID string) (*BackupStats, error)
}

// JobStore is the durable record of backup attempts. Status transitions are
// enforced at the store level: a terminal row can never re-enter pending or
// running.
type JobStore interface {
	Create(ctx context.Context, tenantID string, kind BackupKind, tier StorageTier) (*BackupJob, error)
	MarkRunning(ctx context.Context, jobID int64, startedAt time.Time) error
	MarkCompleted(ctx context.Context, jobID int64, sizeBytes int64, location string, completedAt time.Time) error
	MarkFailed(ctx context.Context, jobID int64, message string, completedAt time.Time) error
	GetByID(ctx context.Context, jobID int64) (*BackupJob, error)
	History(ctx context.Context, tenantID string, limit int) ([]*BackupJob, error)
	Stats(ctx context.Context, tenantID string) (*BackupStats, error)
}

// ScheduleStore is the durable record of one schedule per (tenant, cadence)
type ScheduleStore interface {
	// Upsert replaces the storage tier and next run of an existing
	// (tenant, cadence) row instead of duplicating it.
	Upsert(ctx context.Context, schedule *BackupSchedule) error

	ListByTenant(ctx context.Context, tenantID string) ([]*BackupSchedule, error)

	// ClaimDue atomically advances and returns every active schedule whose
	// next_run_at is at or before now. A claimed schedule cannot be
	// returned to a second overlapping sweep.
	ClaimDue(ctx context.Context, now time.Time) ([]*BackupSchedule, error)
}

// SchemaDumper extracts one tenant's logical schema into a local file
type SchemaDumper interface {
	// SchemaExists verifies the tenant's schema is present in the catalog
	SchemaExists(ctx context.Context, schemaName string) (bool, error)

	// Dump writes a portable dump of exactly one tenant schema to destPath
	Dump(ctx context.Context, schemaName, destPath string) error
}

// StorageProvider pushes compressed artifacts to tiered object storage
type StorageProvider interface {
	// Upload stores the artifact and returns a durable location handle.
	// The object key is deterministic in (tenant, job), so re-uploading
	// after a restart overwrites rather than duplicates.
	Upload(ctx context.Context, req UploadRequest) (string, error)

	// Scheme returns the location scheme this provider produces (s3, gs...)
	Scheme() string
}

// PolicyResolver maps subscription tiers to retention policies and
// provisions the schedules they imply
type PolicyResolver interface {
	Resolve(tierID string) (*RetentionPolicy, error)
	ProvisionSchedules(ctx context.Context, tenantID, tierID string) ([]*BackupSchedule, error)
}
