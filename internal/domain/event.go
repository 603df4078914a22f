package domain

import "time"

// EventType defines the type of event that occurred.
type EventType string

const (
	EventContainer     EventType = "container.event"
	EventServiceTask   EventType = "service.task"
	EventServerChanged EventType = "server.changed"
)

// Event represents a domain event that occurred in the system.
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	Data      any
}

// ServerChangedPayload contains data for server.changed events.
type ServerChangedPayload struct {
	PreviousID int64
	EnabledID  int64
}
