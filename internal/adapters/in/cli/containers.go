package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/imgflow/dispatch/internal/adapters/dto"
	"github.com/imgflow/dispatch/internal/app"
	"github.com/imgflow/dispatch/internal/boundaries/in"
	"github.com/imgflow/dispatch/internal/domain"
)

// openTracking opens the workload tracker on the configured database.
var openTracking = func(ctx context.Context) (in.TrackingService, func() error, error) {
	local, err := app.OpenLocal(ctx, configPath)
	if err != nil {
		return nil, nil, err
	}
	return local.Tracking, local.Close, nil
}

// newContainerCmd creates the container command group.
func newContainerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "container",
		Aliases: []string{"containers"},
		Short:   "Manage tracked containers and Swarm services",
		Long: `Register the containers and Swarm services whose engine events update
workflow status. Events for unregistered workloads are ignored.`,
	}

	cmd.AddCommand(newContainerTrackCmd())
	return cmd
}

func newContainerTrackCmd() *cobra.Command {
	var (
		req     dto.TrackRequest
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "track",
		Short: "Track a container or a Swarm service",
		Example: `  dispatch container track --container 4f2a9c --workflow build-17
  dispatch container track --service q1w2e3 --task t9y8 --workflow deploy-3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			tracking, closeFn, err := openTracking(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = closeFn() }()

			tracked, err := tracking.Track(ctx, req.ToDomain())
			if err != nil {
				return fmt.Errorf("failed to track workload: %w", err)
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), dto.FromTracked(tracked))
			}
			return cliWriteLine(cmd.OutOrStdout(), cliRenderSuccess(trackedSummary(tracked)))
		},
	}

	cmd.Flags().StringVar(&req.ContainerID, "container", "", "Container ID")
	cmd.Flags().StringVar(&req.ServiceID, "service", "", "Swarm service ID")
	cmd.Flags().StringVar(&req.TaskID, "task", "", "Current Swarm task ID")
	cmd.Flags().StringVar(&req.WorkflowID, "workflow", "", "Workflow updated by the workload's events")
	cmd.Flags().StringVar(&req.Subtype, "subtype", "", "Workload subtype")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.MarkFlagsOneRequired("container", "service")
	cmd.MarkFlagsMutuallyExclusive("container", "service")

	return cmd
}

func trackedSummary(c *domain.TrackedContainer) string {
	parts := []string{fmt.Sprintf("Tracking %d:", c.ID)}
	if c.IsSwarmService() {
		parts = append(parts, "service "+c.ServiceID)
	} else {
		parts = append(parts, "container "+c.ContainerID)
	}
	if c.WorkflowID != "" {
		parts = append(parts, "workflow "+c.WorkflowID)
	}
	return strings.Join(parts, " ")
}
