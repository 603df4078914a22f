// Package events implements the event processor that turns classified
// engine events into tracked container and workflow status updates.
package events

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/imgflow/dispatch/internal/boundaries/in"
	"github.com/imgflow/dispatch/internal/boundaries/out"
	"github.com/imgflow/dispatch/internal/domain"
	"github.com/imgflow/dispatch/internal/logging"
)

// Actor is recorded on workflow updates made by the event processor.
const Actor = "dispatch"

var errUnexpectedPayload = errors.New("unexpected event payload")

// ContainerEventHandler handles container.event events.
type ContainerEventHandler struct {
	containers out.ContainerStore
	workflows  in.WorkflowService
}

// NewContainerEventHandler creates a new ContainerEventHandler.
func NewContainerEventHandler(containers out.ContainerStore, workflows in.WorkflowService) *ContainerEventHandler {
	return &ContainerEventHandler{containers: containers, workflows: workflows}
}

// CanHandle returns whether this handler can handle the given event type.
func (h *ContainerEventHandler) CanHandle(eventType domain.EventType) bool {
	return eventType == domain.EventContainer
}

// Handle handles an event.
func (h *ContainerEventHandler) Handle(ctx context.Context, event domain.Event) error {
	ce, ok := event.Data.(domain.ContainerEvent)
	if !ok {
		return fmt.Errorf("%w: %T", errUnexpectedPayload, event.Data)
	}

	ctx = logging.CtxWithFields(ctx, map[string]any{
		logging.FieldLayer:   "usecase",
		logging.FieldHandler: "ContainerEventHandler",
		"container_id":       ce.ContainerID(),
		"docker_status":      ce.Status(),
	})
	log := logging.FromCtx(ctx)

	tracked, err := h.containers.GetByContainerID(ctx, ce.ContainerID())
	if errors.Is(err, domain.ErrContainerNotFound) {
		log.Debug().Msg("ignoring event for untracked container")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up container %s: %w", ce.ContainerID(), err)
	}

	// Swarm task containers are reported through service task events.
	if tracked.IsSwarmService() {
		log.Debug().Str("service_id", tracked.ServiceID).Msg("ignoring container event for swarm service")
		return nil
	}
	if tracked.IsFinal() && !ce.IsExitStatus() {
		log.Debug().Str(logging.FieldStatus, tracked.Status).Msg("ignoring event after final status")
		return nil
	}

	var details string
	if ce.IsExitStatus() {
		details = exitDetails(ce)
		if ce.IsSuccessful() {
			tracked.Status = domain.StatusComplete
		} else {
			tracked.Status = domain.StatusFailed
		}
	} else {
		tracked.Status = ce.Status()
	}
	tracked.StatusTime = ce.Timestamp()

	if err := h.containers.Update(ctx, tracked); err != nil {
		return fmt.Errorf("failed to update container %s: %w", ce.ContainerID(), err)
	}

	if ce.IsExitStatus() {
		h.workflows.UpdateStatus(ctx, tracked.WorkflowID, workflowExitStatus(ce.IsSuccessful(), ce.Status()), Actor, details)
	}

	log.Info().
		Str(logging.FieldStatus, tracked.Status).
		Str("details", details).
		Msg("container status recorded")
	return nil
}

// ServiceTaskEventHandler handles service.task events.
type ServiceTaskEventHandler struct {
	containers out.ContainerStore
	workflows  in.WorkflowService
}

// NewServiceTaskEventHandler creates a new ServiceTaskEventHandler.
func NewServiceTaskEventHandler(containers out.ContainerStore, workflows in.WorkflowService) *ServiceTaskEventHandler {
	return &ServiceTaskEventHandler{containers: containers, workflows: workflows}
}

// CanHandle returns whether this handler can handle the given event type.
func (h *ServiceTaskEventHandler) CanHandle(eventType domain.EventType) bool {
	return eventType == domain.EventServiceTask
}

// Handle handles an event.
func (h *ServiceTaskEventHandler) Handle(ctx context.Context, event domain.Event) error {
	ste, ok := event.Data.(domain.ServiceTaskEvent)
	if !ok {
		return fmt.Errorf("%w: %T", errUnexpectedPayload, event.Data)
	}
	task := ste.Task()
	snapshot := ste.Service()

	ctx = logging.CtxWithFields(ctx, map[string]any{
		logging.FieldLayer:   "usecase",
		logging.FieldHandler: "ServiceTaskEventHandler",
		"service_id":         snapshot.ServiceID,
		"task_id":            task.TaskID,
		"task_status":        task.Status,
		"kind":               string(ste.Kind()),
	})
	log := logging.FromCtx(ctx)

	tracked, err := h.containers.GetByServiceID(ctx, snapshot.ServiceID)
	if errors.Is(err, domain.ErrContainerNotFound) {
		log.Debug().Msg("ignoring event for untracked service")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up service %s: %w", snapshot.ServiceID, err)
	}

	tracked.TaskID = task.TaskID
	if task.NodeID != "" {
		tracked.NodeID = task.NodeID
	}
	if task.ContainerID != "" {
		tracked.ContainerID = task.ContainerID
	}
	tracked.StatusTime = task.StatusTime

	var workflowStatus, details string
	switch {
	case ste.Kind() == domain.ServiceTaskEventRestart:
		tracked.Status = domain.StatusRestarting
		workflowStatus = domain.StatusRunning
		details = fmt.Sprintf("task %s replaced by %s", snapshot.TaskID, task.TaskID)
	case ste.Kind() == domain.ServiceTaskEventWaiting:
		tracked.Status = domain.StatusWaiting
		workflowStatus = domain.StatusWaiting
		details = firstNonEmpty(task.Err, task.Message)
	case task.IsExitStatus():
		details = taskExitDetails(task)
		if task.IsSuccessfulStatus() {
			tracked.Status = domain.StatusComplete
		} else {
			tracked.Status = domain.StatusFailed
		}
		workflowStatus = workflowExitStatus(task.IsSuccessfulStatus(), task.Status)
	case task.HasNotStarted():
		tracked.Status = task.Status
	default:
		tracked.Status = domain.StatusRunning
		workflowStatus = domain.StatusRunning
	}

	if err := h.containers.Update(ctx, tracked); err != nil {
		return fmt.Errorf("failed to update service %s: %w", snapshot.ServiceID, err)
	}

	if workflowStatus != "" {
		h.workflows.UpdateStatus(ctx, tracked.WorkflowID, workflowStatus, Actor, details)
	}

	log.Info().
		Str(logging.FieldStatus, tracked.Status).
		Str("details", details).
		Msg("service status recorded")
	return nil
}

func workflowExitStatus(successful bool, status string) string {
	if successful {
		return domain.StatusComplete
	}
	return fmt.Sprintf("%s (%s)", domain.StatusFailed, status)
}

func exitDetails(ce domain.ContainerEvent) string {
	code, ok := ce.ExitCode()
	if !ok || code == "" {
		return ""
	}
	return "exit code " + code
}

func taskExitDetails(task domain.ServiceTask) string {
	if task.ExitCode != nil {
		details := "exit code " + strconv.FormatInt(*task.ExitCode, 10)
		if task.Err != "" {
			details += ": " + task.Err
		}
		return details
	}
	return task.Err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
