package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// migrateCmd creates the subsystem's control tables
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the backup control tables if they do not exist",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	if err := rt.ensureSchema(cmd.Context()); err != nil {
		return fmt.Errorf("failed to create control tables: %w", err)
	}

	fmt.Println(color.GreenString("Backup control tables are in place"))
	return nil
}
