// Package out defines output ports (interfaces) for infrastructure.
// These interfaces define the contract between use cases and driven adapters
// (Docker, SQLite, event bus).
package out

import (
	"context"
	"time"

	"github.com/imgflow/dispatch/internal/domain"
)

// EngineConnector opens clients against a configured Docker backend.
type EngineConnector interface {
	Connect(ctx context.Context, server *domain.ServerConfig) (Engine, error)
}

// Engine defines the subset of the Docker engine API the platform watches.
type Engine interface {
	// Ping verifies the engine is reachable.
	Ping(ctx context.Context) error

	// APIVersion returns the negotiated API version, e.g. "1.47".
	APIVersion(ctx context.Context) (string, error)

	// ContainerEvents streams container events since the given time until ctx
	// is cancelled. The error channel receives at most one error.
	ContainerEvents(ctx context.Context, since time.Time) (<-chan domain.ContainerEvent, <-chan error)

	// ServiceTasks lists the tasks of a Swarm service, newest first.
	ServiceTasks(ctx context.Context, serviceID string) ([]domain.ServiceTask, error)

	// Close releases the underlying connection.
	Close() error
}
