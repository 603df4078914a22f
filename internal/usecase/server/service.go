// Package server implements the Docker server registry use case.
package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/imgflow/dispatch/internal/boundaries/out"
	"github.com/imgflow/dispatch/internal/domain"
	"github.com/imgflow/dispatch/internal/logging"
)

const tracerName = "github.com/imgflow/dispatch/internal/usecase/server"

// Service implements the ServerService interface. It is the only writer of
// server configurations and keeps at most one of them enabled.
type Service struct {
	store    out.ServerStore
	eventBus out.EventPublisher
	metrics  out.Metrics
	validate *inputValidator
	now      func() time.Time

	// mu serializes read-enabled/disable/write sequences in this process;
	// the store transaction covers writers in other processes.
	mu sync.Mutex
}

// NewService creates a new server registry service. eventBus may be nil.
func NewService(store out.ServerStore, eventBus out.EventPublisher) *Service {
	return &Service{
		store:    store,
		eventBus: eventBus,
		validate: newValidator(),
		now:      time.Now,
	}
}

// SetMetrics sets the metrics sink. Must be called before the service is used.
func (s *Service) SetMetrics(m out.Metrics) {
	s.metrics = m
}

// GetEnabled returns the single enabled server.
func (s *Service) GetEnabled(ctx context.Context) (*domain.ServerConfig, error) {
	enabled, err := s.store.FindEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read enabled server: %w", err)
	}
	return s.single(ctx, enabled)
}

// GetEnabledID returns the enabled server id, or domain.NoServerID when none is enabled.
func (s *Service) GetEnabledID(ctx context.Context) (int64, error) {
	ids, err := s.store.EnabledIDs(ctx)
	if err != nil {
		return domain.NoServerID, fmt.Errorf("failed to read enabled server id: %w", err)
	}

	switch len(ids) {
	case 0:
		return domain.NoServerID, nil
	case 1:
		return ids[0], nil
	default:
		logging.FromCtx(ctx).Error().
			Str(logging.FieldLayer, "usecase").
			Ints64("enabled_ids", ids).
			Msg("more than one server is enabled")
		return domain.NoServerID, domain.ErrMultipleEnabledServers
	}
}

// Get returns a server by id.
func (s *Service) Get(ctx context.Context, id int64) (*domain.ServerConfig, error) {
	return s.store.Get(ctx, id)
}

// List returns all servers.
func (s *Service) List(ctx context.Context) ([]*domain.ServerConfig, error) {
	return s.store.List(ctx)
}

// Create stores a new server. Inside one transaction the currently enabled
// server, if any, is disabled before the new row is inserted.
func (s *Service) Create(ctx context.Context, server *domain.ServerConfig) (*domain.ServerConfig, error) {
	if err := s.validate.server(server); err != nil {
		return nil, err
	}

	ctx = logging.CtxWithFields(ctx, map[string]any{
		logging.FieldLayer:   "usecase",
		logging.FieldUseCase: "CreateServer",
		"host":               server.Host,
	})
	log := logging.FromCtx(ctx)

	ctx, span := otel.Tracer(tracerName).Start(ctx, "server.Create")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	created := server.Clone()
	created.ID = 0
	created.LastModified = now
	if created.Name == "" {
		created.Name = created.Host
	}
	if created.Enabled {
		created.EnabledAt = &now
	}

	var previousID int64
	err := s.store.WithTx(ctx, func(tx out.ServerTx) error {
		current, err := s.enabledIn(ctx, tx)
		if err != nil {
			return err
		}
		if current != nil {
			previousID = current.ID
			if err := s.disable(ctx, tx, current, now); err != nil {
				return err
			}
		}

		id, err := tx.Insert(ctx, created)
		if err != nil {
			return err
		}
		created.ID = id
		return nil
	})
	s.record(ctx, "create", err)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, s.writeError(err)
	}

	log.Info().
		Int64(logging.FieldEntityID, created.ID).
		Bool("enabled", created.Enabled).
		Int64("disabled_id", previousID).
		Msg("server created")

	s.publishChange(ctx, previousID, enabledID(created))
	return created, nil
}

// Update overwrites every field of a stored server. When the server is
// enabled and a different one is currently enabled, that one is disabled first.
func (s *Service) Update(ctx context.Context, server *domain.ServerConfig) error {
	if err := s.validate.server(server); err != nil {
		return err
	}
	_, err := s.update(ctx, server.ID, func(*domain.ServerConfig) *domain.ServerConfig {
		return server.Clone()
	})
	return err
}

// SetEnabled enables or disables a server and returns its new state. The
// stored row is read inside the write transaction so concurrent changes to
// other fields are kept.
func (s *Service) SetEnabled(ctx context.Context, id int64, enabled bool) (*domain.ServerConfig, error) {
	return s.update(ctx, id, func(stored *domain.ServerConfig) *domain.ServerConfig {
		next := stored.Clone()
		next.Enabled = enabled
		return next
	})
}

// RecordEventCheckTime stores how far the engine event stream was consumed.
func (s *Service) RecordEventCheckTime(ctx context.Context, id int64, t time.Time) error {
	if err := s.store.SetEventCheckTime(ctx, id, t); err != nil {
		return fmt.Errorf("failed to record event check time: %w", err)
	}
	return nil
}

// update rewrites server id with the result of build, which receives the
// row as stored inside the transaction.
func (s *Service) update(ctx context.Context, id int64, build func(stored *domain.ServerConfig) *domain.ServerConfig) (*domain.ServerConfig, error) {
	ctx = logging.CtxWithFields(ctx, map[string]any{
		logging.FieldLayer:    "usecase",
		logging.FieldUseCase:  "UpdateServer",
		logging.FieldEntityID: id,
	})
	log := logging.FromCtx(ctx)

	ctx, span := otel.Tracer(tracerName).Start(ctx, "server.Update")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	var (
		updated    *domain.ServerConfig
		previousID int64
	)
	err := s.store.WithTx(ctx, func(tx out.ServerTx) error {
		stored, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}

		updated = build(stored)
		updated.ID = id
		updated.LastModified = now
		if updated.Name == "" {
			updated.Name = updated.Host
		}

		current, err := s.enabledIn(ctx, tx)
		if err != nil {
			return err
		}
		if current != nil {
			previousID = current.ID
		}
		if updated.Enabled && current != nil && current.ID != updated.ID {
			if err := s.disable(ctx, tx, current, now); err != nil {
				return err
			}
		}

		switch {
		case updated.Enabled && !stored.Enabled:
			updated.EnabledAt = &now
		case !updated.Enabled && stored.Enabled:
			updated.DisabledAt = &now
		}

		return tx.Upsert(ctx, updated)
	})
	s.record(ctx, "update", err)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, s.writeError(err)
	}

	log.Info().Bool("enabled", updated.Enabled).Msg("server updated")

	s.publishChange(ctx, previousID, s.enabledAfterUpdate(previousID, updated))
	return updated, nil
}

// disable turns a server off inside tx.
func (s *Service) disable(ctx context.Context, tx out.ServerTx, server *domain.ServerConfig, now time.Time) error {
	server.Enabled = false
	server.DisabledAt = &now
	server.LastModified = now

	if err := tx.Upsert(ctx, server); err != nil {
		return fmt.Errorf("failed to disable server %d: %w", server.ID, err)
	}

	logging.FromCtx(ctx).Info().
		Int64("disabled_id", server.ID).
		Msg("server disabled")
	return nil
}

func (s *Service) enabledIn(ctx context.Context, tx out.ServerTx) (*domain.ServerConfig, error) {
	enabled, err := tx.FindEnabled(ctx)
	if err != nil {
		return nil, err
	}
	current, err := s.single(ctx, enabled)
	if errors.Is(err, domain.ErrNoEnabledServer) {
		return nil, nil
	}
	return current, err
}

func (s *Service) single(ctx context.Context, enabled []*domain.ServerConfig) (*domain.ServerConfig, error) {
	switch len(enabled) {
	case 0:
		return nil, domain.ErrNoEnabledServer
	case 1:
		return enabled[0], nil
	default:
		ids := make([]int64, 0, len(enabled))
		for _, e := range enabled {
			ids = append(ids, e.ID)
		}
		logging.FromCtx(ctx).Error().
			Str(logging.FieldLayer, "usecase").
			Ints64("enabled_ids", ids).
			Msg("more than one server is enabled")
		return nil, domain.ErrMultipleEnabledServers
	}
}

func (s *Service) enabledAfterUpdate(previousID int64, updated *domain.ServerConfig) int64 {
	if updated.Enabled {
		return updated.ID
	}
	if previousID == updated.ID {
		return domain.NoServerID
	}
	return previousID
}

func (s *Service) writeError(err error) error {
	if errors.Is(err, domain.ErrServerNotFound) ||
		errors.Is(err, domain.ErrMultipleEnabledServers) ||
		errors.Is(err, domain.ErrInvalidServerConfig) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrServerWriteFailed, err)
}

func (s *Service) record(ctx context.Context, op string, err error) {
	if s.metrics != nil {
		s.metrics.RecordServerWrite(ctx, op, err)
	}
}

func (s *Service) publishChange(ctx context.Context, previousID, enabledID int64) {
	if s.eventBus == nil || previousID == enabledID {
		return
	}

	payload := domain.ServerChangedPayload{PreviousID: previousID, EnabledID: enabledID}
	if err := s.eventBus.Publish(domain.EventServerChanged, payload); err != nil {
		logging.FromCtx(ctx).Warn().Err(err).Msg("failed to publish server change")
	}
}

func enabledID(server *domain.ServerConfig) int64 {
	if server.Enabled {
		return server.ID
	}
	return domain.NoServerID
}
