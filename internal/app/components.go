package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/imgflow/dispatch/internal/adapters/out/docker"
	"github.com/imgflow/dispatch/internal/adapters/out/eventbus"
	"github.com/imgflow/dispatch/internal/adapters/out/sqlite"
	"github.com/imgflow/dispatch/internal/adapters/out/telemetry"
	"github.com/imgflow/dispatch/internal/usecase/events"
	"github.com/imgflow/dispatch/internal/usecase/health"
	"github.com/imgflow/dispatch/internal/usecase/server"
	"github.com/imgflow/dispatch/internal/usecase/tracking"
	"github.com/imgflow/dispatch/internal/usecase/watcher"
	"github.com/imgflow/dispatch/internal/usecase/workflow"
)

// components holds the wired adapters and use cases.
type components struct {
	db         *sqlite.DB
	bus        *eventbus.InMemory
	metrics    *telemetry.Metrics
	servers    *server.Service
	containers *sqlite.ContainerStore
	workflows  *workflow.Service
	tracking   *tracking.Service
	watcher    *watcher.Watcher
	health     *health.Service
}

// newComponents opens storage and builds every service. The caller owns the
// returned components and must call close.
func newComponents(ctx context.Context, cfg Config, log zerolog.Logger) (*components, error) {
	db, err := sqlite.Open(ctx, sqlite.Config{
		Path:         cfg.DatabasePath(),
		MaxOpenConns: cfg.Database.MaxOpenConns,
		BusyTimeout:  cfg.Database.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	metrics, err := telemetry.NewMetrics()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	var opts []eventbus.Option
	if cfg.Events.HandlerTimeout > 0 {
		opts = append(opts, eventbus.WithHandlerTimeout(cfg.Events.HandlerTimeout))
	}
	bus := eventbus.NewInMemory(cfg.Events.BufferSize, log, opts...)
	bus.SetMetrics(metrics)

	servers := server.NewService(sqlite.NewServerStore(db), bus)
	servers.SetMetrics(metrics)

	containers := sqlite.NewContainerStore(db)
	connector := docker.NewConnector(cfg.Watcher.ConnectTimeout)

	w, err := watcher.New(servers, containers, connector, bus, watcher.Config{
		MinAPIVersion:  cfg.Watcher.MinAPIVersion,
		PollInterval:   cfg.Watcher.PollInterval,
		ReconnectDelay: cfg.Watcher.ReconnectDelay,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	w.SetMetrics(metrics)

	workflows := workflow.NewService(sqlite.NewWorkflowStore(db))

	return &components{
		db:         db,
		bus:        bus,
		metrics:    metrics,
		servers:    servers,
		containers: containers,
		workflows:  workflows,
		tracking:   tracking.NewService(containers, workflows),
		watcher:    w,
		health:     health.NewService(db, servers, connector),
	}, nil
}

// subscribe registers the event processor and the watcher on the bus.
func (c *components) subscribe() error {
	if err := c.bus.Subscribe(events.NewContainerEventHandler(c.containers, c.workflows)); err != nil {
		return fmt.Errorf("failed to subscribe container event handler: %w", err)
	}
	if err := c.bus.Subscribe(events.NewServiceTaskEventHandler(c.containers, c.workflows)); err != nil {
		return fmt.Errorf("failed to subscribe service task event handler: %w", err)
	}
	if err := c.bus.Subscribe(c.watcher); err != nil {
		return fmt.Errorf("failed to subscribe watcher: %w", err)
	}
	return nil
}

func (c *components) close() error {
	return c.db.Close()
}
