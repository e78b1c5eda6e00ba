package backup

import (
	"context"
	"database/sql"
	"time"
)

// SQLScheduleStore is the Postgres-backed ScheduleStore
type SQLScheduleStore struct {
	db      *sql.DB
	nextRun func(Cadence, time.Time) time.Time
}

// NewScheduleStore creates a schedule store. nextRun computes the following
// run time for a claimed schedule; it is injected so the store stays free of
// calendar policy.
func NewScheduleStore(db *sql.DB, nextRun func(Cadence, time.Time) time.Time) *SQLScheduleStore {
	return &SQLScheduleStore{db: db, nextRun: nextRun}
}

const scheduleColumns = `id, tenant_id, cadence, storage_tier, active, last_run_at, next_run_at, created_at`

// Upsert creates or replaces the schedule for (tenant, cadence). An existing
// row keeps its identity; only tier, active flag, and next run are replaced.
func (s *SQLScheduleStore) Upsert(ctx context.Context, schedule *BackupSchedule) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO backup_schedules (tenant_id, cadence, storage_tier, active, next_run_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (tenant_id, cadence) DO UPDATE
		    SET storage_tier = EXCLUDED.storage_tier,
		        active       = EXCLUDED.active,
		        next_run_at  = EXCLUDED.next_run_at
		 RETURNING id, created_at`,
		schedule.TenantID, string(schedule.Cadence), string(schedule.StorageTier),
		schedule.Active, schedule.NextRunAt.UTC(),
	).Scan(&schedule.ID, &schedule.CreatedAt)
	if err != nil {
		return NewDatabaseError("failed to upsert backup schedule", err)
	}
	return nil
}

// ListByTenant returns all schedules for a tenant
func (s *SQLScheduleStore) ListByTenant(ctx context.Context, tenantID string) ([]*BackupSchedule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+scheduleColumns+`
		   FROM backup_schedules
		  WHERE tenant_id = $1
		  ORDER BY cadence`,
		tenantID)
	if err != nil {
		return nil, NewDatabaseError("failed to query schedules", err)
	}
	defer rows.Close()

	return collectSchedules(rows)
}

// ClaimDue finds active schedules due at or before now and atomically
// advances each one. The claim is a conditional update on next_run_at, so a
// schedule claimed by one sweep matches zero rows in any overlapping sweep.
func (s *SQLScheduleStore) ClaimDue(ctx context.Context, now time.Time) ([]*BackupSchedule, error) {
	now = now.UTC()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+scheduleColumns+`
		   FROM backup_schedules
		  WHERE active AND next_run_at <= $1
		  ORDER BY next_run_at`,
		now)
	if err != nil {
		return nil, NewDatabaseError("failed to query due schedules", err)
	}
	candidates, err := collectSchedules(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	var claimed []*BackupSchedule
	for _, sched := range candidates {
		next := s.nextRun(sched.Cadence, now)

		res, err := s.db.ExecContext(ctx,
			`UPDATE backup_schedules
			    SET last_run_at = $2, next_run_at = $3
			  WHERE id = $1 AND active AND next_run_at <= $2`,
			sched.ID, now, next.UTC())
		if err != nil {
			return claimed, NewDatabaseError("failed to claim due schedule", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return claimed, NewDatabaseError("failed to read claim result", err)
		}
		if affected == 0 {
			// Another sweep claimed it first.
			continue
		}

		lastRun := now
		sched.LastRunAt = &lastRun
		sched.NextRunAt = next
		claimed = append(claimed, sched)
	}

	return claimed, nil
}

func collectSchedules(rows *sql.Rows) ([]*BackupSchedule, error) {
	var schedules []*BackupSchedule
	for rows.Next() {
		var (
			sched   BackupSchedule
			lastRun sql.NullTime
		)
		err := rows.Scan(&sched.ID, &sched.TenantID, &sched.Cadence, &sched.StorageTier,
			&sched.Active, &lastRun, &sched.NextRunAt, &sched.CreatedAt)
		if err != nil {
			return nil, NewDatabaseError("failed to scan backup schedule", err)
		}
		if lastRun.Valid {
			sched.LastRunAt = &lastRun.Time
		}
		schedules = append(schedules, &sched)
	}
	if err := rows.Err(); err != nil {
		return nil, NewDatabaseError("error iterating backup schedules", err)
	}
	return schedules, nil
}
