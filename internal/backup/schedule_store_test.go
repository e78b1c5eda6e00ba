package backup

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScheduleStoreTest(t *testing.T) (*SQLScheduleStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	nextRun := func(cadence Cadence, from time.Time) time.Time {
		return from.Add(24 * time.Hour)
	}
	return NewScheduleStore(db, nextRun), mock
}

func TestScheduleStoreUpsert(t *testing.T) {
	store, mock := newScheduleStoreTest(t)

	created := time.Now()
	next := time.Now().Add(6 * time.Hour)
	mock.ExpectQuery("INSERT INTO backup_schedules").
		WithArgs("acme", "daily", "standard", true, next.UTC()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(3), created))

	schedule := &BackupSchedule{
		TenantID:    "acme",
		Cadence:     CadenceDaily,
		StorageTier: StorageTierStandard,
		Active:      true,
		NextRunAt:   next,
	}
	err := store.Upsert(context.Background(), schedule)
	require.NoError(t, err)

	assert.Equal(t, int64(3), schedule.ID)
	assert.Equal(t, created, schedule.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleStoreListByTenant(t *testing.T) {
	store, mock := newScheduleStoreTest(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "tenant_id", "cadence", "storage_tier", "active", "last_run_at", "next_run_at", "created_at",
	}).
		AddRow(int64(1), "acme", "daily", "standard", true, now.Add(-24*time.Hour), now, now).
		AddRow(int64(2), "acme", "weekly", "infrequent-access", true, nil, now.Add(72*time.Hour), now)

	mock.ExpectQuery("SELECT (.+) FROM backup_schedules").
		WithArgs("acme").
		WillReturnRows(rows)

	schedules, err := store.ListByTenant(context.Background(), "acme")
	require.NoError(t, err)
	require.Len(t, schedules, 2)

	assert.Equal(t, CadenceDaily, schedules[0].Cadence)
	assert.NotNil(t, schedules[0].LastRunAt)
	assert.Equal(t, StorageTierInfrequent, schedules[1].StorageTier)
	assert.Nil(t, schedules[1].LastRunAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleStoreClaimDue(t *testing.T) {
	store, mock := newScheduleStoreTest(t)

	now := time.Now().UTC()
	due := now.Add(-time.Minute)
	rows := sqlmock.NewRows([]string{
		"id", "tenant_id", "cadence", "storage_tier", "active", "last_run_at", "next_run_at", "created_at",
	}).AddRow(int64(5), "acme", "daily", "standard", true, nil, due, now.Add(-48*time.Hour))

	mock.ExpectQuery("SELECT (.+) FROM backup_schedules").
		WithArgs(now).
		WillReturnRows(rows)
	mock.ExpectExec("UPDATE backup_schedules").
		WithArgs(int64(5), now, now.Add(24*time.Hour).UTC()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	claimed, err := store.ClaimDue(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	assert.Equal(t, "acme", claimed[0].TenantID)
	require.NotNil(t, claimed[0].LastRunAt)
	assert.Equal(t, now, *claimed[0].LastRunAt)
	assert.Equal(t, now.Add(24*time.Hour), claimed[0].NextRunAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleStoreClaimDueSkipsStolenSchedule(t *testing.T) {
	store, mock := newScheduleStoreTest(t)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "tenant_id", "cadence", "storage_tier", "active", "last_run_at", "next_run_at", "created_at",
	}).AddRow(int64(5), "acme", "daily", "standard", true, nil, now.Add(-time.Minute), now.Add(-48*time.Hour))

	mock.ExpectQuery("SELECT (.+) FROM backup_schedules").
		WithArgs(now).
		WillReturnRows(rows)
	// A concurrent sweep already advanced next_run_at, so the conditional
	// claim matches nothing.
	mock.ExpectExec("UPDATE backup_schedules").
		WithArgs(int64(5), now, now.Add(24*time.Hour).UTC()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	claimed, err := store.ClaimDue(context.Background(), now)
	require.NoError(t, err)
	assert.Empty(t, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleStoreClaimDueNothingDue(t *testing.T) {
	store, mock := newScheduleStoreTest(t)

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM backup_schedules").
		WithArgs(now).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "tenant_id", "cadence", "storage_tier", "active", "last_run_at", "next_run_at", "created_at",
		}))

	claimed, err := store.ClaimDue(context.Background(), now)
	require.NoError(t, err)
	assert.Empty(t, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
