// Package workflow implements the workflow status updater.
package workflow

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/imgflow/dispatch/internal/boundaries/out"
	"github.com/imgflow/dispatch/internal/domain"
	"github.com/imgflow/dispatch/internal/logging"
)

// Service implements the WorkflowService interface.
type Service struct {
	store out.WorkflowStore
	now   func() time.Time
}

// NewService creates a workflow status updater.
func NewService(store out.WorkflowStore) *Service {
	return &Service{store: store, now: time.Now}
}

// UpdateStatus records the workflow status. Blank ids and unchanged
// (status, details) pairs are ignored. Storage failures are logged only.
func (s *Service) UpdateStatus(ctx context.Context, workflowID, status, actor, details string) {
	if strings.TrimSpace(workflowID) == "" {
		return
	}

	ctx = logging.CtxWithFields(ctx, map[string]any{
		logging.FieldLayer:    "usecase",
		logging.FieldUseCase:  "UpdateWorkflowStatus",
		logging.FieldEntityID: workflowID,
	})
	log := logging.FromCtx(ctx)

	current, err := s.store.Get(ctx, workflowID)
	switch {
	case errors.Is(err, domain.ErrWorkflowNotFound):
		current = nil
	case err != nil:
		log.Warn().Err(err).Msg("failed to read workflow, status not updated")
		return
	}

	if current != nil && current.Status == status && current.Details == details {
		return
	}

	wf := &domain.Workflow{
		ID:        workflowID,
		Status:    status,
		Details:   details,
		Actor:     actor,
		UpdatedAt: s.now(),
	}
	if err := s.store.Save(ctx, wf); err != nil {
		log.Warn().Err(err).Str(logging.FieldStatus, status).Msg("failed to update workflow status")
		return
	}

	log.Debug().
		Str(logging.FieldStatus, status).
		Str("details", details).
		Str("actor", actor).
		Msg("workflow status updated")
}
