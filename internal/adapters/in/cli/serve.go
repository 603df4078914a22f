package cli

import (
	"github.com/spf13/cobra"

	"github.com/imgflow/dispatch/internal/app"
)

// newServeCmd creates the serve command.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the dispatch server",
		Long:  `Start the admin API, the event processor and the Docker engine watcher.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd.Context(), configPath, Version)
		},
	}
}
