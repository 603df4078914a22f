package in

import (
	"context"

	"github.com/imgflow/dispatch/internal/domain"
)

// HealthService defines the contract for process health checks.
type HealthService interface {
	// Check probes storage, the registry and the enabled engine.
	Check(ctx context.Context) *domain.SystemHealth
}
