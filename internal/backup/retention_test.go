package backup

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeScheduleStore records upserts in memory for provisioning tests
type fakeScheduleStore struct {
	mu        sync.Mutex
	upserts   []*BackupSchedule
	upsertErr error
}

func (f *fakeScheduleStore) Upsert(ctx context.Context, schedule *BackupSchedule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	copied := *schedule
	f.upserts = append(f.upserts, &copied)
	return nil
}

func (f *fakeScheduleStore) ListByTenant(ctx context.Context, tenantID string) ([]*BackupSchedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.upserts, nil
}

func (f *fakeScheduleStore) ClaimDue(ctx context.Context, now time.Time) ([]*BackupSchedule, error) {
	return nil, nil
}

func TestComputeNextRunDaily(t *testing.T) {
	from := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)
	next := ComputeNextRun(CadenceDaily, from, 3)

	assert.True(t, next.After(from))
	assert.True(t, next.Sub(from) <= 48*time.Hour, "daily next run must be within 48 hours")
	assert.Equal(t, 3, next.Hour())
	assert.Equal(t, 16, next.Day())
}

func TestComputeNextRunWeekly(t *testing.T) {
	// A Wednesday; the following Sunday is June 22nd.
	from := time.Date(2025, 6, 18, 10, 0, 0, 0, time.UTC)
	next := ComputeNextRun(CadenceWeekly, from, 3)

	assert.Equal(t, time.Sunday, next.Weekday())
	assert.True(t, next.After(from))
	assert.Equal(t, time.Date(2025, 6, 22, 3, 0, 0, 0, time.UTC), next)
}

func TestComputeNextRunWeeklyOnSundayBeforeOffPeak(t *testing.T) {
	from := time.Date(2025, 6, 22, 1, 0, 0, 0, time.UTC)
	next := ComputeNextRun(CadenceWeekly, from, 3)

	// Still the same Sunday: the off-peak slot has not passed yet.
	assert.Equal(t, time.Date(2025, 6, 22, 3, 0, 0, 0, time.UTC), next)
}

func TestComputeNextRunWeeklyOnSundayAfterOffPeak(t *testing.T) {
	from := time.Date(2025, 6, 22, 5, 0, 0, 0, time.UTC)
	next := ComputeNextRun(CadenceWeekly, from, 3)

	assert.Equal(t, time.Date(2025, 6, 29, 3, 0, 0, 0, time.UTC), next)
}

func TestComputeNextRunMonthly(t *testing.T) {
	from := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)
	next := ComputeNextRun(CadenceMonthly, from, 3)

	assert.Equal(t, time.Date(2025, 7, 1, 3, 0, 0, 0, time.UTC), next)
}

func TestComputeNextRunMonthlyDecemberRollsOver(t *testing.T) {
	from := time.Date(2025, 12, 20, 8, 0, 0, 0, time.UTC)
	next := ComputeNextRun(CadenceMonthly, from, 3)

	assert.Equal(t, time.Date(2026, 1, 1, 3, 0, 0, 0, time.UTC), next)
}

func TestComputeNextRunInvalidOffPeakHourFallsBack(t *testing.T) {
	from := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)
	next := ComputeNextRun(CadenceDaily, from, 99)

	assert.Equal(t, 3, next.Hour())
}

func TestResolveKnownTiers(t *testing.T) {
	resolver := NewPolicyResolver(&fakeScheduleStore{}, 3, nil)

	tests := []struct {
		tierID  string
		daily   int
		weekly  int
		monthly int
	}{
		{"basic", 7, 0, 0},
		{"standard", 14, 4, 0},
		{"premium", 30, 12, 12},
	}

	for _, tt := range tests {
		t.Run(tt.tierID, func(t *testing.T) {
			policy, err := resolver.Resolve(tt.tierID)
			require.NoError(t, err)
			assert.Equal(t, tt.daily, policy.DailyRetention)
			assert.Equal(t, tt.weekly, policy.WeeklyRetention)
			assert.Equal(t, tt.monthly, policy.MonthlyRetention)
		})
	}
}

func TestResolveUnknownTier(t *testing.T) {
	resolver := NewPolicyResolver(&fakeScheduleStore{}, 3, nil)

	_, err := resolver.Resolve("enterprise-plus")
	require.Error(t, err)
	assert.True(t, IsErrorType(err, BackupErrorTypePolicyNotFound))
}

func TestProvisionSchedulesBasicTier(t *testing.T) {
	store := &fakeScheduleStore{}
	resolver := NewPolicyResolver(store, 3, nil)

	provisioned, err := resolver.ProvisionSchedules(context.Background(), "acme", "basic")
	require.NoError(t, err)

	// Basic retains 7 daily backups and nothing else: exactly one schedule.
	require.Len(t, provisioned, 1)
	assert.Equal(t, CadenceDaily, provisioned[0].Cadence)
	assert.Equal(t, StorageTierStandard, provisioned[0].StorageTier)
	assert.True(t, provisioned[0].Active)
	assert.True(t, provisioned[0].NextRunAt.After(time.Now().UTC()))
	assert.Len(t, store.upserts, 1)
}

func TestProvisionSchedulesPremiumTierMapsTiers(t *testing.T) {
	store := &fakeScheduleStore{}
	resolver := NewPolicyResolver(store, 3, nil)

	provisioned, err := resolver.ProvisionSchedules(context.Background(), "acme", "premium")
	require.NoError(t, err)
	require.Len(t, provisioned, 3)

	byCadence := make(map[Cadence]*BackupSchedule)
	for _, schedule := range provisioned {
		byCadence[schedule.Cadence] = schedule
	}

	assert.Equal(t, StorageTierStandard, byCadence[CadenceDaily].StorageTier)
	assert.Equal(t, StorageTierInfrequent, byCadence[CadenceWeekly].StorageTier)
	assert.Equal(t, StorageTierCold, byCadence[CadenceMonthly].StorageTier)
}

func TestProvisionSchedulesUnknownTier(t *testing.T) {
	store := &fakeScheduleStore{}
	resolver := NewPolicyResolver(store, 3, nil)

	_, err := resolver.ProvisionSchedules(context.Background(), "acme", "nonexistent")
	require.Error(t, err)
	assert.True(t, IsErrorType(err, BackupErrorTypePolicyNotFound))
	assert.Empty(t, store.upserts)
}

func TestPolicyResolverFromFile(t *testing.T) {
	policyYAML := `policies:
  - tier_id: trial
    daily_retention: 3
    weekly_retention: 0
    monthly_retention: 0
  - tier_id: enterprise
    daily_retention: 90
    weekly_retention: 52
    monthly_retention: 36
`
	path := filepath.Join(t.TempDir(), "policies.yaml")
	require.NoError(t, os.WriteFile(path, []byte(policyYAML), 0o644))

	resolver, err := NewPolicyResolverFromFile(path, &fakeScheduleStore{}, 3, nil)
	require.NoError(t, err)

	policy, err := resolver.Resolve("enterprise")
	require.NoError(t, err)
	assert.Equal(t, 90, policy.DailyRetention)

	// File policies replace the built-in defaults entirely.
	_, err = resolver.Resolve("basic")
	assert.Error(t, err)
}

func TestPolicyResolverFromFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policies.yaml")
	require.NoError(t, os.WriteFile(path, []byte("policies: []"), 0o644))

	_, err := NewPolicyResolverFromFile(path, &fakeScheduleStore{}, 3, nil)
	require.Error(t, err)
	assert.True(t, IsErrorType(err, BackupErrorTypeValidation))
}
