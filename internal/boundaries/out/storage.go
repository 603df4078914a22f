package out

import (
	"context"
	"time"

	"github.com/imgflow/dispatch/internal/domain"
)

// ServerReader reads server configurations.
type ServerReader interface {
	// Get loads a server with its constraints, or domain.ErrServerNotFound.
	Get(ctx context.Context, id int64) (*domain.ServerConfig, error)

	// FindEnabled returns every server flagged enabled. More than one row
	// means the registry invariant was broken outside this process.
	FindEnabled(ctx context.Context) ([]*domain.ServerConfig, error)
}

// ServerStore defines the contract for persisting server configurations.
type ServerStore interface {
	ServerReader

	// WithTx runs fn inside one atomic, write-locking transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx ServerTx) error) error

	// List loads every server with its constraints, ordered by id.
	List(ctx context.Context) ([]*domain.ServerConfig, error)

	// EnabledIDs returns the ids of all rows flagged enabled without loading them.
	EnabledIDs(ctx context.Context) ([]int64, error)

	// SetEventCheckTime stores the event watermark of a server.
	SetEventCheckTime(ctx context.Context, id int64, t time.Time) error
}

// ServerTx is the view of ServerStore inside a transaction.
type ServerTx interface {
	ServerReader

	// Insert stores a new server and returns the assigned id.
	Insert(ctx context.Context, server *domain.ServerConfig) (int64, error)

	// Upsert writes every column of the row with the server's id,
	// replacing its constraints.
	Upsert(ctx context.Context, server *domain.ServerConfig) error
}

// ContainerStore defines the contract for tracked workload records.
type ContainerStore interface {
	// Create stores a new tracked container and returns the assigned id.
	Create(ctx context.Context, c *domain.TrackedContainer) (int64, error)

	// GetByContainerID looks up a standalone container.
	GetByContainerID(ctx context.Context, containerID string) (*domain.TrackedContainer, error)

	// GetByServiceID looks up a Swarm service.
	GetByServiceID(ctx context.Context, serviceID string) (*domain.TrackedContainer, error)

	// ListActiveServices returns Swarm services that have not reached a final status.
	ListActiveServices(ctx context.Context) ([]*domain.TrackedContainer, error)

	// Update overwrites the tracked record.
	Update(ctx context.Context, c *domain.TrackedContainer) error
}

// WorkflowStore defines the contract for workflow status rows.
type WorkflowStore interface {
	// Get returns the workflow or domain.ErrWorkflowNotFound.
	Get(ctx context.Context, id string) (*domain.Workflow, error)

	// Save inserts or replaces the workflow row.
	Save(ctx context.Context, wf *domain.Workflow) error
}

// StorageProbe reports whether storage is reachable.
type StorageProbe interface {
	HealthCheck(ctx context.Context) error
}
