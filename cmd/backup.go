package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"pg-tenant-backup/internal/backup"
)

var (
	backupTenant string
	backupKind   string
	backupTier   string
	backupLimit  int
	backupWait   bool
	backupJobID  int64
)

// backupCmd groups the on-demand backup operations
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create and inspect tenant backup jobs",
}

// backupCreateCmd triggers one backup pipeline for a tenant
var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Trigger a backup for one tenant",
	RunE:  runBackupCreate,
}

// backupListCmd shows a tenant's recent backup jobs
var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a tenant's recent backup jobs",
	RunE:  runBackupList,
}

// backupStatsCmd summarizes a tenant's backup history
var backupStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize a tenant's backup history",
	RunE:  runBackupStats,
}

// backupStatusCmd shows one job by id
var backupStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of one backup job",
	RunE:  runBackupStatus,
}

func init() {
	backupCreateCmd.Flags().StringVar(&backupTenant, "tenant", "", "tenant identifier (required)")
	backupCreateCmd.Flags().StringVar(&backupKind, "kind", "full", "backup kind (full)")
	backupCreateCmd.Flags().StringVar(&backupTier, "tier", "standard", "storage tier (standard, infrequent-access, cold)")
	backupCreateCmd.Flags().BoolVar(&backupWait, "wait", false, "wait for the pipeline to reach a terminal state")
	backupCreateCmd.MarkFlagRequired("tenant")

	backupListCmd.Flags().StringVar(&backupTenant, "tenant", "", "tenant identifier (required)")
	backupListCmd.Flags().IntVar(&backupLimit, "limit", 20, "maximum jobs to list")
	backupListCmd.MarkFlagRequired("tenant")

	backupStatsCmd.Flags().StringVar(&backupTenant, "tenant", "", "tenant identifier (required)")
	backupStatsCmd.MarkFlagRequired("tenant")

	backupStatusCmd.Flags().Int64Var(&backupJobID, "job", 0, "backup job id (required)")
	backupStatusCmd.MarkFlagRequired("job")

	backupCmd.AddCommand(backupCreateCmd, backupListCmd, backupStatsCmd, backupStatusCmd)
	rootCmd.AddCommand(backupCmd)
}

func runBackupCreate(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	manager, err := rt.buildManager()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	job, err := manager.CreateBackup(ctx, backupTenant, backup.BackupKind(backupKind), backup.StorageTier(backupTier))
	if err != nil {
		manager.Stop()
		return err
	}

	fmt.Printf("Backup job %s created for tenant %s (%s, %s)\n",
		color.CyanString("%d", job.ID), color.New(color.Bold).Sprint(job.TenantID), job.Kind, job.StorageTier)

	if backupWait {
		// Stop drains the pool, so the pipeline has finished by the time
		// it returns.
		manager.Stop()
		final, err := rt.jobs.GetByID(ctx, job.ID)
		if err != nil {
			return err
		}
		printJob(final)
		if final.Status == backup.JobStatusFailed {
			return fmt.Errorf("backup job %d failed", final.ID)
		}
		return nil
	}

	manager.Stop()
	return nil
}

func runBackupList(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	jobs, err := rt.jobs.History(cmd.Context(), backupTenant, backupLimit)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Printf("No backup jobs recorded for tenant %s\n", backupTenant)
		return nil
	}

	for _, job := range jobs {
		printJob(job)
	}
	return nil
}

func runBackupStats(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	stats, err := rt.jobs.Stats(cmd.Context(), backupTenant)
	if err != nil {
		return err
	}

	fmt.Printf("Backup history for tenant %s\n", color.New(color.Bold).Sprint(backupTenant))
	fmt.Printf("  Total jobs:   %d\n", stats.Total)
	fmt.Printf("  Completed:    %s\n", color.GreenString("%d", stats.Completed))
	fmt.Printf("  Failed:       %s\n", color.RedString("%d", stats.Failed))
	fmt.Printf("  Stored bytes: %d\n", stats.TotalBytes)
	if stats.LastCompletedAt != nil {
		fmt.Printf("  Last success: %s\n", stats.LastCompletedAt.Format(time.RFC3339))
	}
	return nil
}

func runBackupStatus(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	job, err := rt.jobs.GetByID(cmd.Context(), backupJobID)
	if err != nil {
		return err
	}
	printJob(job)
	return nil
}

// printJob renders one job row for the terminal
func printJob(job *backup.BackupJob) {
	status := string(job.Status)
	switch job.Status {
	case backup.JobStatusCompleted:
		status = color.GreenString(status)
	case backup.JobStatusFailed:
		status = color.RedString(status)
	case backup.JobStatusRunning:
		status = color.YellowString(status)
	}

	fmt.Printf("job %d  tenant=%s  kind=%s  tier=%s  status=%s  created=%s\n",
		job.ID, job.TenantID, job.Kind, job.StorageTier, status, job.CreatedAt.Format(time.RFC3339))
	if job.SizeBytes != nil && job.Location != nil {
		fmt.Printf("  artifact: %d bytes at %s\n", *job.SizeBytes, *job.Location)
	}
	if job.ErrorMessage != nil {
		fmt.Printf("  error: %s\n", color.RedString(*job.ErrorMessage))
	}
}
