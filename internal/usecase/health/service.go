// Package health implements the process health check use case.
package health

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/imgflow/dispatch/internal/boundaries/in"
	"github.com/imgflow/dispatch/internal/boundaries/out"
	"github.com/imgflow/dispatch/internal/domain"
	"github.com/imgflow/dispatch/internal/logging"
)

// defaultEngineTimeout bounds the engine ping of a single check.
const defaultEngineTimeout = 3 * time.Second

// Service implements the HealthService interface.
type Service struct {
	storage       out.StorageProbe
	servers       in.ServerService
	connector     out.EngineConnector
	engineTimeout time.Duration
}

// NewService creates a new health service. A nil connector skips the engine check.
func NewService(storage out.StorageProbe, servers in.ServerService, connector out.EngineConnector) *Service {
	return &Service{
		storage:       storage,
		servers:       servers,
		connector:     connector,
		engineTimeout: defaultEngineTimeout,
	}
}

// Check runs the storage check and the registry and engine checks concurrently.
func (s *Service) Check(ctx context.Context) *domain.SystemHealth {
	ctx = logging.CtxWithFields(ctx, map[string]any{
		logging.FieldLayer:   "usecase",
		logging.FieldUseCase: "HealthCheck",
	})
	log := logging.FromCtx(ctx)

	var (
		wg       sync.WaitGroup
		database domain.ComponentHealth
		registry domain.ComponentHealth
		engine   *domain.ComponentHealth
		enabled  *domain.ServerConfig
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		database = s.checkDatabase(ctx)
	}()
	go func() {
		defer wg.Done()
		registry, enabled = s.checkRegistry(ctx)
		if enabled != nil && s.connector != nil {
			e := s.checkEngine(ctx, enabled)
			engine = &e
		}
	}()
	wg.Wait()

	health := &domain.SystemHealth{
		Status:     domain.HealthOK,
		Components: []domain.ComponentHealth{database, registry},
	}
	if enabled != nil {
		health.EnabledServerID = enabled.ID
	}
	if engine != nil {
		health.Components = append(health.Components, *engine)
	}

	switch {
	case !database.Healthy || !registry.Healthy:
		health.Status = domain.HealthUnavailable
	case enabled == nil || (engine != nil && !engine.Healthy):
		health.Status = domain.HealthDegraded
	}

	log.Debug().Str("status", string(health.Status)).Msg("health check complete")
	return health
}

func (s *Service) checkDatabase(ctx context.Context) domain.ComponentHealth {
	c := domain.ComponentHealth{Name: domain.ComponentDatabase, Healthy: true, Detail: "ok"}
	if err := s.storage.HealthCheck(ctx); err != nil {
		c.Healthy, c.Detail = false, err.Error()
	}
	return c
}

func (s *Service) checkRegistry(ctx context.Context) (domain.ComponentHealth, *domain.ServerConfig) {
	c := domain.ComponentHealth{Name: domain.ComponentRegistry, Healthy: true}

	server, err := s.servers.GetEnabled(ctx)
	switch {
	case err == nil:
		c.Detail = fmt.Sprintf("server %d enabled", server.ID)
		return c, server
	case errors.Is(err, domain.ErrNoEnabledServer):
		c.Detail = "no enabled server"
	default:
		c.Healthy, c.Detail = false, err.Error()
	}
	return c, nil
}

func (s *Service) checkEngine(ctx context.Context, server *domain.ServerConfig) domain.ComponentHealth {
	c := domain.ComponentHealth{Name: domain.ComponentEngine}

	ctx, cancel := context.WithTimeout(ctx, s.engineTimeout)
	defer cancel()

	engine, err := s.connector.Connect(ctx, server)
	if err != nil {
		c.Detail = err.Error()
		return c
	}
	defer engine.Close()

	version, err := engine.APIVersion(ctx)
	if err != nil {
		c.Detail = err.Error()
		return c
	}

	c.Healthy, c.Detail = true, "api "+version
	return c
}
