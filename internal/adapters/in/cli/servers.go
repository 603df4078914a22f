package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/imgflow/dispatch/internal/adapters/dto"
	"github.com/imgflow/dispatch/internal/app"
	"github.com/imgflow/dispatch/internal/boundaries/in"
	"github.com/imgflow/dispatch/internal/domain"
)

const timeDisplayLayout = "2006-01-02 15:04:05"

// openRegistry opens the server registry on the configured database.
var openRegistry = func(ctx context.Context) (in.ServerService, func() error, error) {
	local, err := app.OpenLocal(ctx, configPath)
	if err != nil {
		return nil, nil, err
	}
	return local.Servers, local.Close, nil
}

func withRegistry(cmd *cobra.Command, fn func(ctx context.Context, servers in.ServerService) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	servers, closeFn, err := openRegistry(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = closeFn() }()

	return fn(ctx, servers)
}

// newServerCmd creates the server command group.
func newServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "server",
		Aliases: []string{"servers"},
		Short:   "Manage Docker backend servers",
		Long: `Manage the registry of Docker backend servers. At most one server is
enabled at a time; enabling a server disables the previous one.

These commands operate directly on the configured database.`,
	}

	cmd.AddCommand(newServerListCmd())
	cmd.AddCommand(newServerGetCmd())
	cmd.AddCommand(newServerEnabledCmd())
	cmd.AddCommand(newServerCreateCmd())
	cmd.AddCommand(newServerToggleCmd(true))
	cmd.AddCommand(newServerToggleCmd(false))
	cmd.AddCommand(newServerImportCmd())

	return cmd
}

func newServerListCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List servers",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRegistry(cmd, func(ctx context.Context, servers in.ServerService) error {
				list, err := servers.List(ctx)
				if err != nil {
					return fmt.Errorf("failed to list servers: %w", err)
				}

				w := cmd.OutOrStdout()
				if jsonOut {
					return writeJSON(w, dto.FromServers(list))
				}
				if len(list) == 0 {
					return cliWriteLine(w, cliRenderMuted("No servers registered"))
				}

				rows := make([][]string, 0, len(list))
				for _, s := range list {
					rows = append(rows, []string{
						strconv.FormatInt(s.ID, 10),
						orDash(s.Name),
						s.Host,
						yesNo(s.SwarmMode),
						yesNo(s.Enabled),
						formatConstraints(s.Constraints),
					})
				}
				return cliWriteLine(w, cliRenderTable(
					[]string{"ID", "NAME", "HOST", "SWARM", "ENABLED", "CONSTRAINTS"}, rows))
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newServerGetCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseServerID(args[0])
			if err != nil {
				return err
			}

			return withRegistry(cmd, func(ctx context.Context, servers in.ServerService) error {
				server, err := servers.Get(ctx, id)
				if err != nil {
					return fmt.Errorf("failed to get server %d: %w", id, err)
				}
				return writeServer(cmd.OutOrStdout(), server, jsonOut)
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newServerEnabledCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "enabled",
		Short: "Show the enabled server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRegistry(cmd, func(ctx context.Context, servers in.ServerService) error {
				server, err := servers.GetEnabled(ctx)
				if err != nil {
					return err
				}
				return writeServer(cmd.OutOrStdout(), server, jsonOut)
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newServerCreateCmd() *cobra.Command {
	var (
		name        string
		host        string
		certPath    string
		swarmMode   bool
		enable      bool
		constraints []string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a server",
		Long: `Register a Docker backend server. With --enable the new server becomes the
enabled one and the previously enabled server is disabled.

Constraints use key==value[,value], key!=value[,value] or key=value.`,
		Example: `  dispatch server create --host tcp://10.0.0.5:2376 --cert-path /etc/dispatch/certs --enable
  dispatch server create --host unix:///var/run/docker.sock --swarm --constraint node.labels.type==gpu`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			server := &domain.ServerConfig{
				Name:      name,
				Host:      host,
				CertPath:  certPath,
				SwarmMode: swarmMode,
				Enabled:   enable,
			}
			for _, raw := range constraints {
				c, err := parseConstraint(raw)
				if err != nil {
					return err
				}
				server.Constraints = append(server.Constraints, c)
			}

			return withRegistry(cmd, func(ctx context.Context, servers in.ServerService) error {
				created, err := servers.Create(ctx, server)
				if err != nil {
					return fmt.Errorf("failed to create server: %w", err)
				}
				return cliWriteLine(cmd.OutOrStdout(),
					cliRenderSuccess(fmt.Sprintf("Server %d registered (%s)", created.ID, enabledLabel(created.Enabled))))
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&host, "host", "", "Docker host URL (unix://, tcp://, ssh:// or npipe://)")
	cmd.Flags().StringVar(&certPath, "cert-path", "", "Directory holding ca.pem, cert.pem and key.pem")
	cmd.Flags().BoolVar(&swarmMode, "swarm", false, "Engine runs in Swarm mode")
	cmd.Flags().BoolVar(&enable, "enable", false, "Enable the server")
	cmd.Flags().StringArrayVar(&constraints, "constraint", nil, "Placement constraint (repeatable)")
	_ = cmd.MarkFlagRequired("host")

	return cmd
}

func newServerToggleCmd(enabled bool) *cobra.Command {
	use, short := "disable <id>", "Disable a server"
	if enabled {
		use, short = "enable <id>", "Enable a server and disable the previous one"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseServerID(args[0])
			if err != nil {
				return err
			}

			return withRegistry(cmd, func(ctx context.Context, servers in.ServerService) error {
				server, err := servers.SetEnabled(ctx, id, enabled)
				if err != nil {
					return fmt.Errorf("failed to update server %d: %w", id, err)
				}
				return cliWriteLine(cmd.OutOrStdout(),
					cliRenderSuccess(fmt.Sprintf("Server %d %s", server.ID, enabledLabel(server.Enabled))))
			})
		},
	}
}

func writeServer(w io.Writer, s *domain.ServerConfig, jsonOut bool) error {
	if jsonOut {
		return writeJSON(w, dto.FromServer(s))
	}

	title := fmt.Sprintf("Server %d", s.ID)
	if s.Name != "" {
		title += " (" + s.Name + ")"
	}

	lines := []string{
		cliRenderTitle(title),
		cliRenderMeta("Host:       ", s.Host),
		cliRenderMeta("Cert path:  ", orDash(s.CertPath)),
		cliRenderMeta("Swarm mode: ", yesNo(s.SwarmMode)),
		cliRenderMeta("Enabled:    ", yesNo(s.Enabled)),
		cliRenderMeta("Constraints:", formatConstraints(s.Constraints)),
		cliRenderMeta("Modified:   ", s.LastModified.Local().Format(timeDisplayLayout)),
	}
	if s.EnabledAt != nil {
		lines = append(lines, cliRenderMeta("Enabled at: ", s.EnabledAt.Local().Format(timeDisplayLayout)))
	}
	if s.DisabledAt != nil {
		lines = append(lines, cliRenderMeta("Disabled at:", s.DisabledAt.Local().Format(timeDisplayLayout)))
	}
	if s.LastEventCheckTime != nil {
		lines = append(lines, cliRenderMeta("Events to:  ", s.LastEventCheckTime.Local().Format(timeDisplayLayout)))
	}

	return cliWriteLine(w, strings.Join(lines, "\n"))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseServerID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid server id %q", raw)
	}
	return id, nil
}

// parseConstraint parses key==v1,v2, key!=v1 or key=v1.
func parseConstraint(raw string) (domain.Constraint, error) {
	var (
		key, values string
		comparator  domain.ConstraintComparator
	)

	switch {
	case strings.Contains(raw, "!="):
		key, values, _ = strings.Cut(raw, "!=")
		comparator = domain.ComparatorNotEquals
	case strings.Contains(raw, "=="):
		key, values, _ = strings.Cut(raw, "==")
		comparator = domain.ComparatorEquals
	case strings.Contains(raw, "="):
		key, values, _ = strings.Cut(raw, "=")
		comparator = domain.ComparatorEquals
	default:
		return domain.Constraint{}, fmt.Errorf("invalid constraint %q: expected key==value or key!=value", raw)
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return domain.Constraint{}, fmt.Errorf("invalid constraint %q: empty key", raw)
	}

	c := domain.Constraint{Key: key, Comparator: comparator, Values: []string{}}
	for _, v := range strings.Split(values, ",") {
		if v = strings.TrimSpace(v); v != "" {
			c.Values = append(c.Values, v)
		}
	}
	return c, nil
}

func formatConstraints(constraints []domain.Constraint) string {
	if len(constraints) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(constraints))
	for _, c := range constraints {
		comparator := c.Comparator
		if comparator == "" {
			comparator = domain.ComparatorEquals
		}
		parts = append(parts, fmt.Sprintf("%s%s%s", c.Key, comparator, strings.Join(c.Values, ",")))
	}
	return strings.Join(parts, " ")
}

func enabledLabel(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
