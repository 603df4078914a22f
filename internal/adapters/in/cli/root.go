// Package cli implements the CLI adapter for dispatch.
// This package provides Cobra commands that delegate to the app layer.
package cli

import (
	"github.com/spf13/cobra"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// configPath is shared by every command. If empty, config is auto-discovered
// from standard locations (/etc/dispatch, ~/.config/dispatch, current directory).
var configPath string

// NewRootCmd creates the root command for the dispatch CLI.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dispatch",
		Short: "dispatch - Docker backend registry and event processor",
		Long: `dispatch keeps the registry of Docker backend servers, with exactly one
enabled at a time, and turns container and Swarm task events from the
enabled engine into workflow status updates.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newServerCmd())
	rootCmd.AddCommand(newContainerCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// newVersionCmd creates the version command.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("dispatch %s\n", Version)
			cmd.Printf("Commit: %s\n", Commit)
			cmd.Printf("Build Date: %s\n", BuildDate)
		},
	}
}

// SetVersionInfo sets the version information for the CLI.
func SetVersionInfo(version, commit, date string) {
	Version = version
	Commit = commit
	BuildDate = date
}
