package in

import (
	"context"

	"github.com/imgflow/dispatch/internal/domain"
)

// TrackingService registers workloads whose engine events drive workflow status.
type TrackingService interface {
	// Track records a standalone container or a Swarm service, never both.
	// It returns domain.ErrInvalidTrackedContainer for bad input and
	// domain.ErrAlreadyTracked when the container or service is known.
	Track(ctx context.Context, workload *domain.TrackedContainer) (*domain.TrackedContainer, error)
}
