package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	scheduleTenant string
	scheduleTierID string
)

// scheduleCmd groups the schedule provisioning operations
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Provision and inspect recurring backup schedules",
}

// scheduleProvisionCmd derives schedules from a subscription tier's policy
var scheduleProvisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Provision a tenant's schedules from its subscription tier",
	RunE:  runScheduleProvision,
}

// scheduleListCmd shows a tenant's schedules
var scheduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a tenant's backup schedules",
	RunE:  runScheduleList,
}

func init() {
	scheduleProvisionCmd.Flags().StringVar(&scheduleTenant, "tenant", "", "tenant identifier (required)")
	scheduleProvisionCmd.Flags().StringVar(&scheduleTierID, "tier-id", "", "subscription tier id (required)")
	scheduleProvisionCmd.MarkFlagRequired("tenant")
	scheduleProvisionCmd.MarkFlagRequired("tier-id")

	scheduleListCmd.Flags().StringVar(&scheduleTenant, "tenant", "", "tenant identifier (required)")
	scheduleListCmd.MarkFlagRequired("tenant")

	scheduleCmd.AddCommand(scheduleProvisionCmd, scheduleListCmd)
	rootCmd.AddCommand(scheduleCmd)
}

func runScheduleProvision(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	provisioned, err := rt.resolver.ProvisionSchedules(cmd.Context(), scheduleTenant, scheduleTierID)
	if err != nil {
		return err
	}

	fmt.Printf("Provisioned %s schedules for tenant %s (tier %s)\n",
		color.CyanString("%d", len(provisioned)), color.New(color.Bold).Sprint(scheduleTenant), scheduleTierID)
	for _, schedule := range provisioned {
		fmt.Printf("  %-8s tier=%-18s next=%s\n",
			schedule.Cadence, schedule.StorageTier, schedule.NextRunAt.Format(time.RFC3339))
	}
	return nil
}

func runScheduleList(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	schedules, err := rt.schedules.ListByTenant(cmd.Context(), scheduleTenant)
	if err != nil {
		return err
	}
	if len(schedules) == 0 {
		fmt.Printf("No schedules provisioned for tenant %s\n", scheduleTenant)
		return nil
	}

	for _, schedule := range schedules {
		state := color.GreenString("active")
		if !schedule.Active {
			state = color.YellowString("inactive")
		}
		fmt.Printf("%-8s tier=%-18s %s  next=%s\n",
			schedule.Cadence, schedule.StorageTier, state, schedule.NextRunAt.Format(time.RFC3339))
		if schedule.LastRunAt != nil {
			fmt.Printf("  last run: %s\n", schedule.LastRunAt.Format(time.RFC3339))
		}
	}
	return nil
}
