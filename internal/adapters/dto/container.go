package dto

import "github.com/imgflow/dispatch/internal/domain"

// TrackRequest registers a standalone container or a Swarm service.
type TrackRequest struct {
	ContainerID string `json:"containerId,omitempty"`
	ServiceID   string `json:"serviceId,omitempty"`
	TaskID      string `json:"taskId,omitempty"`
	WorkflowID  string `json:"workflowId,omitempty"`
	Subtype     string `json:"subtype,omitempty"`
}

// ToDomain converts the request to a tracked workload.
func (r TrackRequest) ToDomain() *domain.TrackedContainer {
	return &domain.TrackedContainer{
		ContainerID: r.ContainerID,
		ServiceID:   r.ServiceID,
		TaskID:      r.TaskID,
		WorkflowID:  r.WorkflowID,
		Subtype:     r.Subtype,
	}
}

// Tracked is the wire form of domain.TrackedContainer.
type Tracked struct {
	ID          int64     `json:"id"`
	ContainerID string    `json:"containerId,omitempty"`
	ServiceID   string    `json:"serviceId,omitempty"`
	TaskID      string    `json:"taskId,omitempty"`
	NodeID      string    `json:"nodeId,omitempty"`
	WorkflowID  string    `json:"workflowId,omitempty"`
	Subtype     string    `json:"subtype,omitempty"`
	Status      string    `json:"status"`
	StatusTime  *WireTime `json:"statusTime,omitempty"`
}

// FromTracked converts a tracked workload to its wire form.
func FromTracked(c *domain.TrackedContainer) Tracked {
	out := Tracked{
		ID:          c.ID,
		ContainerID: c.ContainerID,
		ServiceID:   c.ServiceID,
		TaskID:      c.TaskID,
		NodeID:      c.NodeID,
		WorkflowID:  c.WorkflowID,
		Subtype:     c.Subtype,
		Status:      c.Status,
	}
	if !c.StatusTime.IsZero() {
		out.StatusTime = &WireTime{Time: c.StatusTime}
	}
	return out
}
