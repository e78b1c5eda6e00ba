package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pg-tenant-backup/internal/backup"
	"pg-tenant-backup/internal/database"
	"pg-tenant-backup/internal/logging"
)

// runtime bundles the wired subsystem for one CLI invocation
type runtime struct {
	config  *backup.BackupSystemConfig
	logger  *logging.Logger
	db      *sql.DB
	metrics *backup.MetricsCollector

	jobs      backup.JobStore
	schedules backup.ScheduleStore
	catalog   *database.TenantCatalog
	resolver  backup.PolicyResolver
}

// newRuntime connects the database and wires the stores every subcommand
// needs. Callers that run pipelines build the manager separately through
// buildManager.
func newRuntime() (*runtime, error) {
	if err := validateFlags(); err != nil {
		return nil, err
	}

	logger, err := buildLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	config, err := buildConfig()
	if err != nil {
		return nil, err
	}

	dbService := database.NewServiceWithLogger(logger)
	db, err := dbService.Connect(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	nextRun := func(cadence backup.Cadence, from time.Time) time.Time {
		return backup.ComputeNextRun(cadence, from, config.Scheduler.OffPeakHour)
	}

	schedules := backup.NewScheduleStore(db, nextRun)

	var resolver backup.PolicyResolver
	if config.PolicyFile != "" {
		resolver, err = backup.NewPolicyResolverFromFile(config.PolicyFile, schedules, config.Scheduler.OffPeakHour, logger)
		if err != nil {
			db.Close()
			return nil, err
		}
	} else {
		resolver = backup.NewPolicyResolver(schedules, config.Scheduler.OffPeakHour, logger)
	}

	return &runtime{
		config:    config,
		logger:    logger,
		db:        db,
		metrics:   backup.NewMetricsCollector(),
		jobs:      backup.NewJobStore(db),
		schedules: schedules,
		catalog:   database.NewTenantCatalog(db, logger),
		resolver:  resolver,
	}, nil
}

// buildManager wires the full pipeline manager on top of the runtime.
// The caller owns stopping it.
func (rt *runtime) buildManager() (*backup.Manager, error) {
	provider, err := backup.NewStorageProvider(&rt.config.Storage)
	if err != nil {
		return nil, err
	}

	dumper := backup.NewPgDumpDumper(rt.config.Database, rt.catalog, rt.config.Pipeline.PgDumpPath, rt.logger)

	var encryption *backup.EncryptionManager
	if rt.config.Encryption.Enabled {
		encryption = backup.NewEncryptionManager(&rt.config.Encryption)
	}

	return backup.NewBackupManager(backup.ManagerOptions{
		Jobs:       rt.jobs,
		Tenants:    rt.catalog,
		Dumper:     dumper,
		Storage:    provider,
		Encryption: encryption,
		Metrics:    rt.metrics,
		Logger:     rt.logger,
		Pipeline:   rt.config.Pipeline,
		Algorithm:  rt.config.Compression.Algorithm,
		Level:      rt.config.Compression.Level,
	}), nil
}

// close releases the runtime's database connection
func (rt *runtime) close() {
	if rt.db != nil {
		rt.db.Close()
	}
}

// ensureSchema creates the subsystem's control tables when absent
func (rt *runtime) ensureSchema(ctx context.Context) error {
	return database.EnsureSchema(ctx, rt.db)
}
