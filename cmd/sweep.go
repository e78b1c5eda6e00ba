package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"pg-tenant-backup/internal/backup"
	apperrors "pg-tenant-backup/internal/errors"
)

// sweepCmd groups the scheduler operations
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the backup scheduler",
}

// sweepRunCmd runs a single sweep pass and exits
var sweepRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one scheduler pass over due schedules",
	RunE:  runSweepOnce,
}

// sweepDaemonCmd runs the scheduler until interrupted
var sweepDaemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the scheduler as a long-lived daemon",
	RunE:  runSweepDaemon,
}

func init() {
	sweepCmd.AddCommand(sweepRunCmd, sweepDaemonCmd)
	rootCmd.AddCommand(sweepCmd)
}

func runSweepOnce(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	manager, err := rt.buildManager()
	if err != nil {
		return err
	}

	scheduler := backup.NewScheduler(rt.schedules, manager, rt.db, rt.config.Scheduler.AdvisoryLock, rt.metrics, rt.logger)
	result := scheduler.RunSweep(cmd.Context(), time.Now().UTC())

	// Let queued pipelines finish before reporting.
	manager.Stop()

	fmt.Printf("Sweep %s: %d due, %s triggered, %s failed\n",
		result.SweepID, result.Due,
		color.GreenString("%d", result.Triggered), color.RedString("%d", result.Failed))
	for _, sweepErr := range result.Errors {
		fmt.Printf("  %s\n", color.RedString(sweepErr.Error()))
	}
	return nil
}

func runSweepDaemon(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	manager, err := rt.buildManager()
	if err != nil {
		return err
	}

	scheduler := backup.NewScheduler(rt.schedules, manager, rt.db, rt.config.Scheduler.AdvisoryLock, rt.metrics, rt.logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	shutdown := apperrors.NewGracefulShutdownHandler()
	shutdown.RegisterShutdownFunc(func() error {
		cancel()
		return nil
	})
	shutdown.Start()
	defer shutdown.Stop()

	scheduler.RunPeriodic(ctx, rt.config.Scheduler.SweepInterval)

	// Drain in-flight pipelines before exiting.
	manager.Stop()

	if snapshot, err := rt.metrics.JSON(); err == nil {
		rt.logger.Debugf("Final metrics: %s", snapshot)
	}
	return nil
}
