package domain

import (
	"errors"
	"time"
)

// Swarm task states as reported by the engine.
const (
	TaskStateNew       = "new"
	TaskStateAllocated = "allocated"
	TaskStatePending   = "pending"
	TaskStateAssigned  = "assigned"
	TaskStateAccepted  = "accepted"
	TaskStatePreparing = "preparing"
	TaskStateReady     = "ready"
	TaskStateStarting  = "starting"
	TaskStateRunning   = "running"
	TaskStateComplete  = "complete"
	TaskStateShutdown  = "shutdown"
	TaskStateFailed    = "failed"
	TaskStateRejected  = "rejected"
	TaskStateRemove    = "remove"
	TaskStateOrphaned  = "orphaned"
)

// ServiceTask is a snapshot of one Swarm task belonging to a service.
type ServiceTask struct {
	ServiceID   string
	TaskID      string
	NodeID      string
	ContainerID string
	Status      string
	StatusTime  time.Time
	Message     string
	Err         string
	ExitCode    *int64
}

// IsExitStatus reports whether the task has stopped for good.
func (t *ServiceTask) IsExitStatus() bool {
	switch t.Status {
	case TaskStateComplete, TaskStateShutdown, TaskStateFailed, TaskStateRejected:
		return true
	}
	return false
}

// IsSuccessfulStatus reports whether the task completed normally.
func (t *ServiceTask) IsSuccessfulStatus() bool {
	return t.Status == TaskStateComplete
}

// HasNotStarted reports whether the task is still being scheduled or prepared.
func (t *ServiceTask) HasNotStarted() bool {
	switch t.Status {
	case TaskStateNew, TaskStateAllocated, TaskStatePending, TaskStateAssigned,
		TaskStateAccepted, TaskStatePreparing, TaskStateReady, TaskStateStarting:
		return true
	}
	return false
}

// ServiceTaskEventKind tags why a ServiceTaskEvent was raised.
type ServiceTaskEventKind string

const (
	ServiceTaskEventNormal  ServiceTaskEventKind = "normal"
	ServiceTaskEventRestart ServiceTaskEventKind = "restart"
	ServiceTaskEventWaiting ServiceTaskEventKind = "waiting"
)

var errNilServiceTask = errors.New("service task event requires a task")
var errNilService = errors.New("service task event requires a service")

// ServiceTaskEvent pairs a task snapshot with the tracked service it belongs to.
type ServiceTaskEvent struct {
	task    ServiceTask
	service TrackedContainer
	kind    ServiceTaskEventKind
}

// ServiceTaskEventOption customizes NewServiceTaskEvent.
type ServiceTaskEventOption func(*ServiceTaskEvent)

// WithEventKind overrides the default normal kind.
func WithEventKind(kind ServiceTaskEventKind) ServiceTaskEventOption {
	return func(e *ServiceTaskEvent) {
		e.kind = kind
	}
}

// NewServiceTaskEvent snapshots task and service into an event. Both are required.
func NewServiceTaskEvent(task *ServiceTask, service *TrackedContainer, opts ...ServiceTaskEventOption) (ServiceTaskEvent, error) {
	if task == nil {
		return ServiceTaskEvent{}, errNilServiceTask
	}
	if service == nil {
		return ServiceTaskEvent{}, errNilService
	}

	t := *task
	if task.ExitCode != nil {
		code := *task.ExitCode
		t.ExitCode = &code
	}

	e := ServiceTaskEvent{
		task:    t,
		service: service.Clone(),
		kind:    ServiceTaskEventNormal,
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e, nil
}

// Task returns a copy of the task snapshot.
func (e ServiceTaskEvent) Task() ServiceTask {
	t := e.task
	if e.task.ExitCode != nil {
		code := *e.task.ExitCode
		t.ExitCode = &code
	}
	return t
}

// Service returns a copy of the service snapshot.
func (e ServiceTaskEvent) Service() TrackedContainer {
	return e.service.Clone()
}

// Kind returns the event classification.
func (e ServiceTaskEvent) Kind() ServiceTaskEventKind {
	return e.kind
}
