package backup

import (
	"time"
)

// BackupJob is one concrete attempt to produce and store a backup artifact
// for one tenant. Rows are append-mostly: the subsystem never deletes them.
type BackupJob struct {
	ID           int64       `json:"id"`
	TenantID     string      `json:"tenant_id"`
	Kind         BackupKind  `json:"kind"`
	StorageTier  StorageTier `json:"storage_tier"`
	Status       JobStatus   `json:"status"`
	SizeBytes    *int64      `json:"size_bytes,omitempty"`
	Location     *string     `json:"location,omitempty"`
	ErrorMessage *string     `json:"error_message,omitempty"`
	StartedAt    *time.Time  `json:"started_at,omitempty"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// IsTerminal reports whether the job has reached a final state
func (j *BackupJob) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// BackupSchedule is the durable record of one recurring backup per
// (tenant, cadence) pair. At most one row exists per pair; provisioning
// upserts rather than inserts.
type BackupSchedule struct {
	ID          int64       `json:"id"`
	TenantID    string      `json:"tenant_id"`
	Cadence     Cadence     `json:"cadence"`
	StorageTier StorageTier `json:"storage_tier"`
	Active      bool        `json:"active"`
	LastRunAt   *time.Time  `json:"last_run_at,omitempty"`
	NextRunAt   time.Time   `json:"next_run_at"`
	CreatedAt   time.Time   `json:"created_at"`
}

// RetentionPolicy is read-only reference data keyed by subscription tier.
// A cadence with a zero retention window is not scheduled at all.
type RetentionPolicy struct {
	TierID           string `json:"tier_id" yaml:"tier_id"`
	DailyRetention   int    `json:"daily_retention" yaml:"daily_retention"`
	WeeklyRetention  int    `json:"weekly_retention" yaml:"weekly_retention"`
	MonthlyRetention int    `json:"monthly_retention" yaml:"monthly_retention"`
}

// BackupStats summarizes a tenant's backup history
type BackupStats struct {
	Total           int        `json:"total"`
	Completed       int        `json:"completed"`
	Failed          int        `json:"failed"`
	TotalBytes      int64      `json:"total_bytes"`
	LastCompletedAt *time.Time `json:"last_completed_at,omitempty"`
}

// UploadRequest describes one artifact handed to a storage provider
type UploadRequest struct {
	LocalPath   string
	TenantID    string
	JobID       int64
	StorageTier StorageTier
	Kind        BackupKind
	Compression CompressionType
}

// Enums and constants

// JobStatus is the backup job lifecycle state. Transitions are monotonic:
// pending -> running -> completed|failed.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Valid reports whether the status is a known lifecycle state
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusRunning, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}

// BackupKind distinguishes full from incremental backups. Only full backups
// are currently producible; the incremental value reserves the wire format.
type BackupKind string

const (
	BackupKindFull        BackupKind = "full"
	BackupKindIncremental BackupKind = "incremental"
)

// Valid reports whether the kind is a known backup kind
func (k BackupKind) Valid() bool {
	return k == BackupKindFull || k == BackupKindIncremental
}

// StorageTier is a closed cost/latency class for stored artifacts. Arbitrary
// tier strings are rejected at the API boundary.
type StorageTier string

const (
	StorageTierStandard   StorageTier = "standard"
	StorageTierInfrequent StorageTier = "infrequent-access"
	StorageTierCold       StorageTier = "cold"
)

// Valid reports whether the tier is a known storage tier
func (t StorageTier) Valid() bool {
	switch t {
	case StorageTierStandard, StorageTierInfrequent, StorageTierCold:
		return true
	}
	return false
}

// Cadence is the recurrence class of a schedule
type Cadence string

const (
	CadenceDaily   Cadence = "daily"
	CadenceWeekly  Cadence = "weekly"
	CadenceMonthly Cadence = "monthly"
)

// Valid reports whether the cadence is a known recurrence class
func (c Cadence) Valid() bool {
	switch c {
	case CadenceDaily, CadenceWeekly, CadenceMonthly:
		return true
	}
	return false
}

// AllCadences lists cadences in provisioning order
func AllCadences() []Cadence {
	return []Cadence{CadenceDaily, CadenceWeekly, CadenceMonthly}
}

// CompressionType identifies the compression algorithm applied to an artifact
type CompressionType string

const (
	CompressionTypeNone CompressionType = "NONE"
	CompressionTypeGzip CompressionType = "GZIP"
	CompressionTypeLZ4  CompressionType = "LZ4"
	CompressionTypeZstd CompressionType = "ZSTD"
)

// StorageProviderType identifies the object storage backend
type StorageProviderType string

const (
	StorageProviderLocal StorageProviderType = "LOCAL"
	StorageProviderS3    StorageProviderType = "S3"
	StorageProviderAzure StorageProviderType = "AZURE"
	StorageProviderGCS   StorageProviderType = "GCS"
)
