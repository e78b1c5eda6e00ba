package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"pg-tenant-backup/internal/logging"
)

// TenantDirectory answers tenant existence questions against the tenancy
// catalog
type TenantDirectory interface {
	TenantExists(ctx context.Context, tenantID string) (bool, error)
}

// ManagerOptions bundles the collaborators of a backup manager
type ManagerOptions struct {
	Jobs        JobStore
	Tenants     TenantDirectory
	Dumper      SchemaDumper
	Storage     StorageProvider
	Compression *CompressionManager
	Encryption  *EncryptionManager
	Metrics     *MetricsCollector
	Logger      *logging.Logger

	Pipeline  PipelineConfig
	Algorithm CompressionType
	Level     int
}

// Manager implements BackupManager on top of a bounded worker pool.
// CreateBackup records the job and enqueues its pipeline; the pipeline
// itself never reports errors to the API caller.
type Manager struct {
	jobs        JobStore
	tenants     TenantDirectory
	dumper      SchemaDumper
	storage     StorageProvider
	compression *CompressionManager
	encryption  *EncryptionManager
	metrics     *MetricsCollector
	logger      *logging.Logger

	pipeline  PipelineConfig
	algorithm CompressionType
	level     int

	pool *workerPool
}

// NewBackupManager creates a BackupManager and starts its worker pool.
// Call Stop to drain in-flight pipelines before shutdown.
func NewBackupManager(opts ManagerOptions) *Manager {
	if opts.Logger == nil {
		opts.Logger = logging.NewDefaultLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetricsCollector()
	}
	if opts.Compression == nil {
		opts.Compression = NewCompressionManager()
	}
	if opts.Algorithm == "" {
		opts.Algorithm = CompressionTypeGzip
	}

	m := &Manager{
		jobs:        opts.Jobs,
		tenants:     opts.Tenants,
		dumper:      opts.Dumper,
		storage:     opts.Storage,
		compression: opts.Compression,
		encryption:  opts.Encryption,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
		pipeline:    opts.Pipeline,
		algorithm:   opts.Algorithm,
		level:       opts.Level,
	}

	workers := opts.Pipeline.Workers
	if workers <= 0 {
		workers = 2
	}
	queueSize := opts.Pipeline.QueueSize
	if queueSize <= 0 {
		queueSize = 32
	}
	m.pool = newWorkerPool(workers, queueSize, opts.Logger)
	m.pool.Start()
	return m
}

// Stop drains the worker pool, letting in-flight pipelines finish
func (m *Manager) Stop() {
	m.pool.Stop()
}

// CreateBackup validates the request, records a pending job, and enqueues
// its pipeline. The returned job is always in pending state.
func (m *Manager) CreateBackup(ctx context.Context, tenantID string, kind BackupKind, tier StorageTier) (*BackupJob, error) {
	if !kind.Valid() {
		return nil, NewValidationError(fmt.Sprintf("unknown backup kind: %s", kind), nil)
	}
	if kind == BackupKindIncremental {
		return nil, NewValidationError("only full backups are currently producible", nil)
	}
	if !tier.Valid() {
		return nil, NewValidationError(fmt.Sprintf("unknown storage tier: %s", tier), nil)
	}

	exists, err := m.tenants.TenantExists(ctx, tenantID)
	if err != nil {
		return nil, NewDatabaseError("failed to look up tenant", err)
	}
	if !exists {
		return nil, NewTenantNotFoundError(tenantID)
	}

	job, err := m.jobs.Create(ctx, tenantID, kind, tier)
	if err != nil {
		return nil, NewDatabaseError("failed to record backup job", err)
	}
	m.metrics.RecordJobCreated()

	m.logger.WithFields(map[string]interface{}{
		"job_id":       job.ID,
		"tenant_id":    tenantID,
		"kind":         kind,
		"storage_tier": tier,
	}).Info("Backup job created")

	if !m.pool.Submit(pipelineTask{job: job, run: m.runPipeline}) {
		// The job must still reach a terminal state through running, so an
		// observer never sees pending jump straight to failed.
		m.failRejectedJob(job)
	}

	return job, nil
}

// failRejectedJob records a queue-rejected job as failed, passing through
// the running state first
func (m *Manager) failRejectedJob(job *BackupJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	now := time.Now()
	if err := m.jobs.MarkRunning(ctx, job.ID, now); err != nil {
		m.logger.WithField("job_id", job.ID).Errorf("Failed to mark rejected job running: %v", err)
		return
	}
	m.logger.LogJobTransition(job.ID, job.TenantID, string(JobStatusPending), string(JobStatusRunning))

	if err := m.jobs.MarkFailed(ctx, job.ID, "backup queue is full", time.Now()); err != nil {
		m.logger.WithField("job_id", job.ID).Errorf("Failed to mark rejected job failed: %v", err)
		return
	}
	m.logger.LogJobTransition(job.ID, job.TenantID, string(JobStatusRunning), string(JobStatusFailed))
	m.metrics.RecordJobFailed()
}

// runPipeline executes the dump/compress/upload sequence for one job.
// Every outcome is recorded on the job row; nothing propagates out.
func (m *Manager) runPipeline(ctx context.Context, job *BackupJob) {
	now := time.Now()
	if err := m.jobs.MarkRunning(ctx, job.ID, now); err != nil {
		m.logger.WithField("job_id", job.ID).Errorf("Failed to mark job running: %v", err)
		return
	}
	m.logger.LogJobTransition(job.ID, job.TenantID, string(JobStatusPending), string(JobStatusRunning))

	sizeBytes, location, err := m.executeStages(ctx, job)
	if err != nil {
		m.recordFailure(job, err)
		return
	}

	if err := m.jobs.MarkCompleted(ctx, job.ID, sizeBytes, location, time.Now()); err != nil {
		m.logger.WithField("job_id", job.ID).Errorf("Failed to mark job completed: %v", err)
		return
	}
	m.logger.LogJobTransition(job.ID, job.TenantID, string(JobStatusRunning), string(JobStatusCompleted))
	m.metrics.RecordJobCompleted(sizeBytes)
}

// executeStages runs the pipeline stages inside a job-scoped workspace.
// The workspace is removed on every return path.
func (m *Manager) executeStages(ctx context.Context, job *BackupJob) (int64, string, error) {
	workDir, err := os.MkdirTemp(m.pipeline.WorkDir, fmt.Sprintf("backup-job-%d-", job.ID))
	if err != nil {
		return 0, "", NewDumpError("failed to allocate job workspace", err)
	}
	defer os.RemoveAll(workDir)

	dumpPath := filepath.Join(workDir, "schema.sql")

	dumpStart := time.Now()
	err = m.withStageTimeout(ctx, m.pipeline.DumpTimeout, func(stageCtx context.Context) error {
		return m.dumper.Dump(stageCtx, job.TenantID, dumpPath)
	})
	m.metrics.RecordStageDuration("dump", time.Since(dumpStart))
	m.logger.LogSchemaDump(job.TenantID, job.ID, time.Since(dumpStart), err)
	if err != nil {
		return 0, "", err
	}

	artifactPath := dumpPath
	compression := CompressionTypeNone
	if m.algorithm != CompressionTypeNone {
		compressStart := time.Now()
		err = m.withStageTimeout(ctx, m.pipeline.CompressTimeout, func(stageCtx context.Context) error {
			compressed, compressErr := m.compression.CompressFile(dumpPath, m.algorithm, m.level)
			if compressErr != nil {
				return compressErr
			}
			artifactPath = compressed
			return stageCtx.Err()
		})
		m.metrics.RecordStageDuration("compress", time.Since(compressStart))
		if err != nil {
			return 0, "", err
		}
		compression = m.algorithm
	}

	if m.encryption != nil && m.encryption.Enabled() {
		encrypted, encErr := m.encryption.EncryptFile(artifactPath)
		if encErr != nil {
			return 0, "", encErr
		}
		artifactPath = encrypted
	}

	info, err := os.Stat(artifactPath)
	if err != nil {
		return 0, "", NewCompressionError("failed to measure artifact size", err)
	}
	sizeBytes := info.Size()

	var location string
	uploadStart := time.Now()
	err = m.withStageTimeout(ctx, m.pipeline.UploadTimeout, func(stageCtx context.Context) error {
		loc, uploadErr := m.storage.Upload(stageCtx, UploadRequest{
			LocalPath:   artifactPath,
			TenantID:    job.TenantID,
			JobID:       job.ID,
			StorageTier: job.StorageTier,
			Kind:        job.Kind,
			Compression: compression,
		})
		location = loc
		return uploadErr
	})
	m.metrics.RecordStageDuration("upload", time.Since(uploadStart))
	m.logger.LogArtifactUpload(job.TenantID, job.ID, location, sizeBytes, time.Since(uploadStart), err)
	if err != nil {
		return 0, "", err
	}

	return sizeBytes, location, nil
}

// withStageTimeout runs one pipeline stage under its configured deadline
func (m *Manager) withStageTimeout(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	stageCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(stageCtx)
}

// recordFailure moves the job to failed with the triggering error's message
func (m *Manager) recordFailure(job *BackupJob, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := m.jobs.MarkFailed(ctx, job.ID, cause.Error(), time.Now()); err != nil {
		m.logger.WithField("job_id", job.ID).Errorf("Failed to mark job failed: %v", err)
		return
	}
	m.logger.LogJobTransition(job.ID, job.TenantID, string(JobStatusRunning), string(JobStatusFailed))
	m.metrics.RecordJobFailed()
}

// GetBackupJob returns one job by id
func (m *Manager) GetBackupJob(ctx context.Context, jobID int64) (*BackupJob, error) {
	return m.jobs.GetByID(ctx, jobID)
}

// GetBackupHistory returns the tenant's most recent jobs, newest first
func (m *Manager) GetBackupHistory(ctx context.Context, tenantID string, limit int) ([]*BackupJob, error) {
	return m.jobs.History(ctx, tenantID, limit)
}

// GetBackupStats summarizes the tenant's backup history
func (m *Manager) GetBackupStats(ctx context.Context, tenantID string) (*BackupStats, error) {
	return m.jobs.Stats(ctx, tenantID)
}
