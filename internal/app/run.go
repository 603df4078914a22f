package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/imgflow/dispatch/internal/adapters/in/http/admin"
	"github.com/imgflow/dispatch/internal/adapters/out/telemetry"
	"github.com/imgflow/dispatch/internal/logging"
)

// ServiceName identifies the process in telemetry.
const ServiceName = "dispatch"

const shutdownTimeout = 10 * time.Second

// Run starts the admin API, the event processor and the engine watcher and
// blocks until ctx is cancelled or a termination signal arrives.
func Run(ctx context.Context, configPath, version string) error {
	v, cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}

	log, cleanup, err := initLogger(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	log = log.With().Str(logging.FieldLayer, "app").Logger()
	ctx = logging.WithCtx(ctx, log)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log.Info().
		Str("version", version).
		Str("config", v.ConfigFileUsed()).
		Msg("starting dispatch")

	watchConfig(v, log)

	tp, err := telemetry.NewProvider(ctx, cfg.Telemetry, ServiceName, version)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	log.Info().
		Bool("enabled", tp.Enabled()).
		Str("exporter", cfg.Telemetry.Exporter).
		Msg("telemetry initialized")
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("telemetry shutdown error")
		}
	}()

	c, err := newComponents(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.close(); err != nil {
			log.Warn().Err(err).Msg("failed to close database")
		}
	}()

	if err := c.subscribe(); err != nil {
		return err
	}
	if err := c.bus.Start(); err != nil {
		return fmt.Errorf("failed to start event bus: %w", err)
	}
	defer func() { _ = c.bus.Stop() }()

	watcherDone := make(chan struct{})
	if cfg.Watcher.Enabled {
		go func() {
			defer close(watcherDone)
			if err := c.watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("engine watcher stopped")
			}
		}()
	} else {
		close(watcherDone)
		log.Info().Msg("engine watcher disabled")
	}

	e := admin.NewServer(log)
	admin.NewHandler(c.servers, c.tracking, c.health, log).RegisterRoutes(e, cfg.Server.AdminToken)
	if cfg.Server.AdminToken == "" {
		log.Warn().Msg("admin API is not protected by a token")
	}

	addr := ":" + strconv.Itoa(cfg.Server.Port)
	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("admin API server listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("context cancelled, shutting down")
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	case err := <-serverErr:
		runErr = fmt.Errorf("admin API server failed: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("admin API server shutdown error")
	}

	cancel()
	select {
	case <-watcherDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("engine watcher did not stop in time")
	}

	log.Info().Msg("dispatch shutdown complete")
	return runErr
}
