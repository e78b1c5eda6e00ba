package backup

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"pg-tenant-backup/internal/logging"
)

// defaultPolicies covers the standard subscription tiers when no policy
// file is configured. Retention windows are in backups kept per cadence;
// zero means the cadence is not scheduled at all.
var defaultPolicies = map[string]*RetentionPolicy{
	"basic": {
		TierID:           "basic",
		DailyRetention:   7,
		WeeklyRetention:  0,
		MonthlyRetention: 0,
	},
	"standard": {
		TierID:           "standard",
		DailyRetention:   14,
		WeeklyRetention:  4,
		MonthlyRetention: 0,
	},
	"premium": {
		TierID:           "premium",
		DailyRetention:   30,
		WeeklyRetention:  12,
		MonthlyRetention: 12,
	},
}

// cadenceTiers maps each cadence to the storage tier its artifacts land in.
// Frequent short-lived backups stay on fast storage; rarer long-lived ones
// move to colder classes.
var cadenceTiers = map[Cadence]StorageTier{
	CadenceDaily:   StorageTierStandard,
	CadenceWeekly:  StorageTierInfrequent,
	CadenceMonthly: StorageTierCold,
}

// retentionPolicyResolver implements PolicyResolver from an in-memory
// policy table, optionally loaded from a YAML file
type retentionPolicyResolver struct {
	policies    map[string]*RetentionPolicy
	schedules   ScheduleStore
	offPeakHour int
	logger      *logging.Logger
}

// NewPolicyResolver creates a PolicyResolver backed by the built-in tier
// policies
func NewPolicyResolver(schedules ScheduleStore, offPeakHour int, logger *logging.Logger) *retentionPolicyResolver {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	policies := make(map[string]*RetentionPolicy, len(defaultPolicies))
	for tierID, policy := range defaultPolicies {
		p := *policy
		policies[tierID] = &p
	}
	return &retentionPolicyResolver{
		policies:    policies,
		schedules:   schedules,
		offPeakHour: offPeakHour,
		logger:      logger,
	}
}

// NewPolicyResolverFromFile creates a PolicyResolver whose policies are
// loaded from a YAML file, replacing the built-in defaults
func NewPolicyResolverFromFile(path string, schedules ScheduleStore, offPeakHour int, logger *logging.Logger) (*retentionPolicyResolver, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("failed to read policy file %s", path), err)
	}

	var parsed struct {
		Policies []RetentionPolicy `yaml:"policies"`
	}
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, NewValidationError(fmt.Sprintf("failed to parse policy file %s", path), err)
	}
	if len(parsed.Policies) == 0 {
		return nil, NewValidationError(fmt.Sprintf("policy file %s defines no policies", path), nil)
	}

	resolver := NewPolicyResolver(schedules, offPeakHour, logger)
	resolver.policies = make(map[string]*RetentionPolicy, len(parsed.Policies))
	for i := range parsed.Policies {
		policy := parsed.Policies[i]
		if policy.TierID == "" {
			return nil, NewValidationError(fmt.Sprintf("policy file %s contains a policy without tier_id", path), nil)
		}
		resolver.policies[policy.TierID] = &policy
	}
	return resolver, nil
}

// Resolve returns the retention policy for a subscription tier
func (r *retentionPolicyResolver) Resolve(tierID string) (*RetentionPolicy, error) {
	policy, ok := r.policies[tierID]
	if !ok {
		return nil, NewPolicyNotFoundError(tierID)
	}
	p := *policy
	return &p, nil
}

// ProvisionSchedules upserts one schedule per cadence with a non-zero
// retention window. Cadences whose window is zero get no schedule; existing
// rows for the (tenant, cadence) pair are updated in place.
func (r *retentionPolicyResolver) ProvisionSchedules(ctx context.Context, tenantID, tierID string) ([]*BackupSchedule, error) {
	policy, err := r.Resolve(tierID)
	if err != nil {
		r.logger.LogScheduleProvisioning(tenantID, tierID, 0, err)
		return nil, err
	}

	retentions := map[Cadence]int{
		CadenceDaily:   policy.DailyRetention,
		CadenceWeekly:  policy.WeeklyRetention,
		CadenceMonthly: policy.MonthlyRetention,
	}

	now := time.Now().UTC()
	var provisioned []*BackupSchedule
	for _, cadence := range AllCadences() {
		if retentions[cadence] <= 0 {
			continue
		}
		schedule := &BackupSchedule{
			TenantID:    tenantID,
			Cadence:     cadence,
			StorageTier: cadenceTiers[cadence],
			Active:      true,
			NextRunAt:   r.ComputeNextRun(cadence, now),
		}
		if err := r.schedules.Upsert(ctx, schedule); err != nil {
			r.logger.LogScheduleProvisioning(tenantID, tierID, len(provisioned), err)
			return provisioned, NewDatabaseError(fmt.Sprintf("failed to provision %s schedule", cadence), err)
		}
		provisioned = append(provisioned, schedule)
	}

	r.logger.LogScheduleProvisioning(tenantID, tierID, len(provisioned), nil)
	return provisioned, nil
}

// ComputeNextRun returns the next off-peak run time strictly after from.
// Daily runs land on the following day, weekly on the next Sunday, monthly
// on the first of the next month, all at the configured off-peak hour UTC.
func (r *retentionPolicyResolver) ComputeNextRun(cadence Cadence, from time.Time) time.Time {
	return ComputeNextRun(cadence, from, r.offPeakHour)
}

// ComputeNextRun is the pure scheduling rule shared by provisioning and
// the sweep's schedule advancement
func ComputeNextRun(cadence Cadence, from time.Time, offPeakHour int) time.Time {
	if offPeakHour < 0 || offPeakHour > 23 {
		offPeakHour = 3
	}
	from = from.UTC()

	switch cadence {
	case CadenceWeekly:
		next := time.Date(from.Year(), from.Month(), from.Day(), offPeakHour, 0, 0, 0, time.UTC)
		daysUntilSunday := (7 - int(from.Weekday())) % 7
		next = next.AddDate(0, 0, daysUntilSunday)
		if !next.After(from) {
			next = next.AddDate(0, 0, 7)
		}
		return next
	case CadenceMonthly:
		next := time.Date(from.Year(), from.Month(), 1, offPeakHour, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
		return next
	default:
		// Daily is the fallback for any unrecognized cadence.
		return time.Date(from.Year(), from.Month(), from.Day(), offPeakHour, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	}
}
