package domain

import "errors"

// Domain errors represent business-level errors that can occur in the system.
// These errors are used across layers to communicate specific failure conditions.
var (
	// Server registry errors
	ErrServerNotFound         = errors.New("server not found")
	ErrNoEnabledServer        = errors.New("no enabled server")
	ErrMultipleEnabledServers = errors.New("data integrity: more than one enabled server")
	ErrInvalidServerConfig    = errors.New("invalid server configuration")
	ErrServerWriteFailed      = errors.New("failed to write server configuration")

	// Tracking errors
	ErrContainerNotFound       = errors.New("container not found")
	ErrWorkflowNotFound        = errors.New("workflow not found")
	ErrInvalidTrackedContainer = errors.New("invalid tracked workload")
	ErrAlreadyTracked          = errors.New("workload already tracked")

	// Engine errors
	ErrEngineUnavailable = errors.New("docker engine unavailable")
	ErrUnsupportedEngine = errors.New("docker engine API version not supported")
	ErrEventBusStopped   = errors.New("event bus is stopped")
	ErrHandlerNotFound   = errors.New("handler not found")
)
