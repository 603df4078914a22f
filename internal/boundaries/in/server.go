// Package in defines input ports (interfaces) for use cases.
// These interfaces define the contract between driving adapters (HTTP, CLI)
// and the business logic (use cases).
package in

import (
	"context"
	"time"

	"github.com/imgflow/dispatch/internal/domain"
)

// ServerService defines the contract for the Docker server registry.
type ServerService interface {
	// GetEnabled returns the single enabled server, domain.ErrNoEnabledServer
	// when there is none, or domain.ErrMultipleEnabledServers when storage is corrupt.
	GetEnabled(ctx context.Context) (*domain.ServerConfig, error)

	// GetEnabledID returns the enabled server id or domain.NoServerID.
	GetEnabledID(ctx context.Context) (int64, error)

	// Get returns a server by id.
	Get(ctx context.Context, id int64) (*domain.ServerConfig, error)

	// List returns all servers.
	List(ctx context.Context) ([]*domain.ServerConfig, error)

	// Create stores a new server and disables the previously enabled one,
	// whatever the new server's enabled flag.
	Create(ctx context.Context, server *domain.ServerConfig) (*domain.ServerConfig, error)

	// Update overwrites a server, disabling the previously enabled one when
	// this server becomes enabled.
	Update(ctx context.Context, server *domain.ServerConfig) error

	// SetEnabled enables or disables a server.
	SetEnabled(ctx context.Context, id int64, enabled bool) (*domain.ServerConfig, error)

	// RecordEventCheckTime stores how far the engine event stream was consumed.
	RecordEventCheckTime(ctx context.Context, id int64, t time.Time) error
}
