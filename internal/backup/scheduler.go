package backup

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"pg-tenant-backup/internal/logging"
)

// SweepResult summarizes one scheduler pass
type SweepResult struct {
	SweepID   string
	Due       int
	Triggered int
	Failed    int
	Errors    []error
}

// Scheduler periodically claims due schedules and triggers their backups.
// Claiming is atomic at the store level, so overlapping sweeps from
// multiple processes cannot fire the same schedule twice.
type Scheduler struct {
	schedules ScheduleStore
	manager   BackupManager
	db        *sql.DB
	metrics   *MetricsCollector
	logger    *logging.Logger

	advisoryLock int64
}

// NewScheduler creates a Scheduler. db may be nil when single-process
// operation is guaranteed; with a db, sweeps are serialized across
// processes through a session advisory lock.
func NewScheduler(schedules ScheduleStore, manager BackupManager, db *sql.DB, advisoryLock int64, metrics *MetricsCollector, logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	if metrics == nil {
		metrics = NewMetricsCollector()
	}
	return &Scheduler{
		schedules:    schedules,
		manager:      manager,
		db:           db,
		metrics:      metrics,
		logger:       logger,
		advisoryLock: advisoryLock,
	}
}

// RunSweep claims every schedule due at now and triggers a backup for each.
// Per-schedule failures are collected and logged but never abort the pass.
func (s *Scheduler) RunSweep(ctx context.Context, now time.Time) *SweepResult {
	start := time.Now()
	result := &SweepResult{SweepID: uuid.NewString()}

	due, err := s.schedules.ClaimDue(ctx, now)
	if err != nil {
		result.Failed++
		result.Errors = append(result.Errors, err)
		s.logger.WithFields(map[string]interface{}{
			"sweep_id": result.SweepID,
			"error":    err.Error(),
		}).Error("Failed to claim due schedules")
		s.metrics.RecordSweep(0, result.Failed)
		return result
	}
	result.Due = len(due)

	for _, schedule := range due {
		job, err := s.manager.CreateBackup(ctx, schedule.TenantID, BackupKindFull, schedule.StorageTier)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, err)
			s.logger.WithFields(map[string]interface{}{
				"sweep_id":  result.SweepID,
				"tenant_id": schedule.TenantID,
				"cadence":   schedule.Cadence,
				"error":     err.Error(),
			}).Error("Failed to trigger scheduled backup")
			continue
		}
		result.Triggered++
		s.logger.WithFields(map[string]interface{}{
			"sweep_id":  result.SweepID,
			"tenant_id": schedule.TenantID,
			"cadence":   schedule.Cadence,
			"job_id":    job.ID,
		}).Debug("Scheduled backup triggered")
	}

	s.logger.LogSweep(result.SweepID, result.Due, result.Triggered, result.Failed, time.Since(start))
	s.metrics.RecordSweep(result.Triggered, result.Failed)
	return result
}

// RunPeriodic sweeps at the given interval until the context is cancelled.
// When a database is configured, each pass first takes the advisory lock so
// only one process sweeps at a time.
func (s *Scheduler) RunPeriodic(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	s.logger.WithField("interval", interval.String()).Info("Scheduler started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped")
			return
		case now := <-ticker.C:
			s.sweepAsLeader(ctx, now)
		}
	}
}

// sweepAsLeader runs one sweep, guarded by the advisory lock when a
// database is available
func (s *Scheduler) sweepAsLeader(ctx context.Context, now time.Time) {
	if s.db == nil {
		s.RunSweep(ctx, now)
		return
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		s.logger.Errorf("Failed to acquire connection for sweep lock: %v", err)
		return
	}
	defer conn.Close()

	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", s.advisoryLock).Scan(&acquired); err != nil {
		s.logger.Errorf("Failed to take sweep advisory lock: %v", err)
		return
	}
	if !acquired {
		s.logger.Debug("Sweep advisory lock held elsewhere, skipping pass")
		return
	}
	defer func() {
		if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", s.advisoryLock); err != nil {
			s.logger.Errorf("Failed to release sweep advisory lock: %v", err)
		}
	}()

	s.RunSweep(ctx, now)
}
