package app

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/imgflow/dispatch/internal/boundaries/in"
)

// Local gives CLI commands direct access to the server registry and the
// workload tracker on the configured database. Changes are published on a private bus; a running
// server picks them up on its next read.
type Local struct {
	Config   Config
	Servers  in.ServerService
	Tracking in.TrackingService

	c *components
}

// OpenLocal loads configuration and opens the registry without starting the
// API or the watcher.
func OpenLocal(ctx context.Context, configPath string) (*Local, error) {
	_, cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return openLocal(ctx, cfg, zerolog.Nop())
}

func openLocal(ctx context.Context, cfg Config, log zerolog.Logger) (*Local, error) {
	c, err := newComponents(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if err := c.bus.Start(); err != nil {
		_ = c.close()
		return nil, err
	}

	return &Local{Config: cfg, Servers: c.servers, Tracking: c.tracking, c: c}, nil
}

// Close stops the bus and closes the database.
func (l *Local) Close() error {
	return errors.Join(l.c.bus.Stop(), l.c.close())
}
