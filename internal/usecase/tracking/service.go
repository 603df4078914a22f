// Package tracking registers the containers and Swarm services whose engine
// events the event processor turns into workflow status.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/imgflow/dispatch/internal/boundaries/in"
	"github.com/imgflow/dispatch/internal/boundaries/out"
	"github.com/imgflow/dispatch/internal/domain"
	"github.com/imgflow/dispatch/internal/logging"
)

// Actor is recorded on the workflow row created when a workload is tracked.
const Actor = "dispatch"

type workloadInput struct {
	ContainerID string `validate:"required_without=ServiceID,excluded_with=ServiceID,max=128"`
	ServiceID   string `validate:"required_without=ContainerID,max=128"`
	TaskID      string `validate:"max=128"`
	WorkflowID  string `validate:"max=255"`
	Subtype     string `validate:"max=64"`
}

// Service implements in.TrackingService.
type Service struct {
	containers out.ContainerStore
	workflows  in.WorkflowService
	validate   *validator.Validate
	now        func() time.Time
}

// NewService creates a tracking service.
func NewService(containers out.ContainerStore, workflows in.WorkflowService) *Service {
	return &Service{
		containers: containers,
		workflows:  workflows,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		now:        time.Now,
	}
}

// Track stores a new workload in the Created state and opens its workflow.
func (s *Service) Track(ctx context.Context, workload *domain.TrackedContainer) (*domain.TrackedContainer, error) {
	if err := s.check(workload); err != nil {
		return nil, err
	}

	ctx = logging.CtxWithFields(ctx, map[string]any{
		logging.FieldLayer:   "usecase",
		logging.FieldUseCase: "TrackWorkload",
		"container_id":       workload.ContainerID,
		"service_id":         workload.ServiceID,
	})
	log := logging.FromCtx(ctx)

	if err := s.ensureUntracked(ctx, workload); err != nil {
		return nil, err
	}

	tracked := workload.Clone()
	tracked.ID = 0
	tracked.NodeID = ""
	tracked.Status = domain.StatusCreated
	tracked.StatusTime = s.now()

	id, err := s.containers.Create(ctx, &tracked)
	if err != nil {
		return nil, fmt.Errorf("failed to track workload: %w", err)
	}
	tracked.ID = id

	s.workflows.UpdateStatus(ctx, tracked.WorkflowID, domain.StatusCreated, Actor, "")

	log.Info().
		Int64(logging.FieldEntityID, id).
		Str("workflow_id", tracked.WorkflowID).
		Bool("swarm", tracked.IsSwarmService()).
		Msg("workload tracked")
	return &tracked, nil
}

func (s *Service) check(workload *domain.TrackedContainer) error {
	if workload == nil {
		return fmt.Errorf("%w: workload is required", domain.ErrInvalidTrackedContainer)
	}

	err := s.validate.Struct(workloadInput{
		ContainerID: workload.ContainerID,
		ServiceID:   workload.ServiceID,
		TaskID:      workload.TaskID,
		WorkflowID:  workload.WorkflowID,
		Subtype:     workload.Subtype,
	})
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%w: %s", domain.ErrInvalidTrackedContainer, strings.Join(msgs, "; "))
	}
	return fmt.Errorf("%w: %w", domain.ErrInvalidTrackedContainer, err)
}

func (s *Service) ensureUntracked(ctx context.Context, workload *domain.TrackedContainer) error {
	var err error
	if workload.IsSwarmService() {
		_, err = s.containers.GetByServiceID(ctx, workload.ServiceID)
	} else {
		_, err = s.containers.GetByContainerID(ctx, workload.ContainerID)
	}

	switch {
	case err == nil:
		return domain.ErrAlreadyTracked
	case errors.Is(err, domain.ErrContainerNotFound):
		return nil
	default:
		return fmt.Errorf("failed to look up workload: %w", err)
	}
}
