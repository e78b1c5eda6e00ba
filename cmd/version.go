package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version information (set by build flags through main)
var (
	appVersion   = "dev"
	appBuildTime = "unknown"
	appGitCommit = "unknown"
	appGoVersion = "unknown"
)

// SetVersionInfo records the build-time version information
func SetVersionInfo(version, buildTime, gitCommit, goVersion string) {
	appVersion = version
	appBuildTime = buildTime
	appGitCommit = gitCommit
	appGoVersion = goVersion
	rootCmd.Version = version
}

// versionCmd prints detailed version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pg-tenant-backup %s\n", appVersion)
		fmt.Printf("  build time: %s\n", appBuildTime)
		fmt.Printf("  git commit: %s\n", appGitCommit)
		fmt.Printf("  go version: %s\n", appGoVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
