package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/imgflow/dispatch/internal/boundaries/in"
	"github.com/imgflow/dispatch/internal/domain"
)

// importFile is the YAML layout accepted by "server import".
type importFile struct {
	Servers []importServer `yaml:"servers"`
}

type importServer struct {
	Name        string             `yaml:"name"`
	Host        string             `yaml:"host"`
	CertPath    string             `yaml:"certPath"`
	SwarmMode   bool               `yaml:"swarmMode"`
	Enabled     bool               `yaml:"enabled"`
	Constraints []importConstraint `yaml:"constraints"`
}

type importConstraint struct {
	Key          string   `yaml:"key"`
	Values       []string `yaml:"values"`
	Comparator   string   `yaml:"comparator"`
	UserSettable bool     `yaml:"userSettable"`
}

func (s importServer) toDomain() *domain.ServerConfig {
	server := &domain.ServerConfig{
		Name:      s.Name,
		Host:      s.Host,
		CertPath:  s.CertPath,
		SwarmMode: s.SwarmMode,
		Enabled:   s.Enabled,
	}
	for _, c := range s.Constraints {
		values := c.Values
		if values == nil {
			values = []string{}
		}
		server.Constraints = append(server.Constraints, domain.Constraint{
			Key:          c.Key,
			Values:       values,
			Comparator:   domain.ConstraintComparator(c.Comparator),
			UserSettable: c.UserSettable,
		})
	}
	return server
}

// decodeImportFile reads servers from YAML, rejecting unknown fields.
func decodeImportFile(r io.Reader) ([]*domain.ServerConfig, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f importFile
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("import file is empty")
		}
		return nil, fmt.Errorf("failed to parse import file: %w", err)
	}

	servers := make([]*domain.ServerConfig, 0, len(f.Servers))
	for _, s := range f.Servers {
		servers = append(servers, s.toDomain())
	}
	return servers, nil
}

func newServerImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Register servers from a YAML file",
		Long: `Register every server listed in a YAML file, in order. When several
entries are enabled, the last one stays enabled.`,
		Example: `  servers:
    - name: gpu
      host: tcp://10.0.0.5:2376
      certPath: /etc/dispatch/certs
      swarmMode: true
      enabled: true
      constraints:
        - key: node.labels.type
          values: [gpu]
          comparator: "=="`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open import file: %w", err)
			}
			defer f.Close()

			servers, err := decodeImportFile(f)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if len(servers) == 0 {
				return cliWriteLine(w, cliRenderMuted("No servers in "+args[0]))
			}

			enabled := 0
			for _, s := range servers {
				if s.Enabled {
					enabled++
				}
			}
			if enabled > 1 {
				if err := cliWriteLine(w, cliRenderWarning(fmt.Sprintf(
					"%d servers are marked enabled; only the last one will stay enabled", enabled))); err != nil {
					return err
				}
			}

			return withRegistry(cmd, func(ctx context.Context, registry in.ServerService) error {
				return importServers(ctx, w, registry, servers)
			})
		},
	}
}

// importServers creates servers in order and stops at the first failure.
func importServers(ctx context.Context, w io.Writer, registry in.ServerService, servers []*domain.ServerConfig) error {
	for i, s := range servers {
		created, err := registry.Create(ctx, s)
		if err != nil {
			return fmt.Errorf("failed to import server #%d (%s): %w", i+1, s.Host, err)
		}
		if err := cliWriteLine(w, cliRenderInfo(fmt.Sprintf("Imported %s as server %d", s.Host, created.ID))); err != nil {
			return err
		}
	}
	return cliWriteLine(w, cliRenderSuccess(fmt.Sprintf("%d server(s) imported", len(servers))))
}
