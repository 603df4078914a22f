package domain

import "time"

// Status values recorded on tracked containers and workflows.
const (
	StatusCreated    = "Created"
	StatusRunning    = "Running"
	StatusComplete   = "Complete"
	StatusFailed     = "Failed"
	StatusRestarting = "Restarting"
	StatusWaiting    = "Waiting"
)

// TrackedContainer is the platform's record of a workload it launched, either
// a standalone container or a Swarm service.
type TrackedContainer struct {
	ID          int64
	ContainerID string
	ServiceID   string
	TaskID      string
	NodeID      string
	WorkflowID  string
	Subtype     string
	Status      string
	StatusTime  time.Time
}

// IsSwarmService reports whether the workload runs as a Swarm service.
func (c *TrackedContainer) IsSwarmService() bool {
	return c.ServiceID != ""
}

// IsFinal reports whether the workload reached Complete or Failed.
func (c *TrackedContainer) IsFinal() bool {
	return c.Status == StatusComplete || c.Status == StatusFailed
}

// Clone returns a value copy.
func (c *TrackedContainer) Clone() TrackedContainer {
	return *c
}

// Workflow is the current status row of a platform workflow.
type Workflow struct {
	ID        string
	Status    string
	Details   string
	Actor     string
	UpdatedAt time.Time
}
