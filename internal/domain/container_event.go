package domain

import (
	"maps"
	"time"
)

// Docker engine container event statuses that end a container's run.
const (
	ContainerStatusKill = "kill"
	ContainerStatusDie  = "die"
	ContainerStatusOOM  = "oom"
)

// AttributeExitCode is the engine event attribute carrying the process exit code.
const AttributeExitCode = "exitCode"

// IsExitStatus reports whether a container event status means the container
// process stopped running. Only whole-status matches count.
func IsExitStatus(status string) bool {
	switch status {
	case ContainerStatusKill, ContainerStatusDie, ContainerStatusOOM:
		return true
	}
	return false
}

// IsSuccessfulStatus reports whether a container event status counts as a
// successful finish. Only "die" does; the exit code is not consulted.
func IsSuccessfulStatus(status string) bool {
	return status == ContainerStatusDie
}

// ContainerEvent is an immutable container lifecycle notification from the
// Docker engine. Build one with NewContainerEvent or ContainerEventBuilder.
type ContainerEvent struct {
	status      string
	containerID string
	time        int64
	timeNano    int64
	attributes  map[string]string
}

// NewContainerEvent creates a ContainerEvent. The attribute map is copied;
// a nil map becomes an empty one.
func NewContainerEvent(status, containerID string, unixTime, timeNano int64, attributes map[string]string) ContainerEvent {
	attrs := make(map[string]string, len(attributes))
	maps.Copy(attrs, attributes)
	return ContainerEvent{
		status:      status,
		containerID: containerID,
		time:        unixTime,
		timeNano:    timeNano,
		attributes:  attrs,
	}
}

// Status returns the raw engine status, e.g. "start" or "die".
func (e ContainerEvent) Status() string { return e.status }

// ContainerID returns the id of the container the event is about.
func (e ContainerEvent) ContainerID() string { return e.containerID }

// Time returns the event time in unix seconds.
func (e ContainerEvent) Time() int64 { return e.time }

// TimeNano returns the event time in unix nanoseconds, or 0 if the engine did
// not report it.
func (e ContainerEvent) TimeNano() int64 { return e.timeNano }

// Timestamp returns the most precise event time available.
func (e ContainerEvent) Timestamp() time.Time {
	if e.timeNano != 0 {
		return time.Unix(0, e.timeNano)
	}
	return time.Unix(e.time, 0)
}

// Attributes returns a copy of the event attributes.
func (e ContainerEvent) Attributes() map[string]string {
	attrs := make(map[string]string, len(e.attributes))
	maps.Copy(attrs, e.attributes)
	return attrs
}

// Attribute returns a single attribute value.
func (e ContainerEvent) Attribute(key string) (string, bool) {
	v, ok := e.attributes[key]
	return v, ok
}

// IsExitStatus reports whether the event is terminal.
func (e ContainerEvent) IsExitStatus() bool {
	return IsExitStatus(e.status)
}

// IsSuccessful reports whether the event signals a successful finish.
func (e ContainerEvent) IsSuccessful() bool {
	return IsSuccessfulStatus(e.status)
}

// ExitCode returns the exitCode attribute of a terminal event. The second
// result is false when the event is not terminal. A terminal event without
// the attribute yields an empty code.
func (e ContainerEvent) ExitCode() (string, bool) {
	if !e.IsExitStatus() {
		return "", false
	}
	return e.attributes[AttributeExitCode], true
}

// ContainerEventBuilder assembles a ContainerEvent field by field.
type ContainerEventBuilder struct {
	status      string
	containerID string
	time        int64
	timeNano    int64
	attributes  map[string]string
}

// NewContainerEventBuilder returns an empty builder.
func NewContainerEventBuilder() *ContainerEventBuilder {
	return &ContainerEventBuilder{attributes: make(map[string]string)}
}

func (b *ContainerEventBuilder) Status(status string) *ContainerEventBuilder {
	b.status = status
	return b
}

func (b *ContainerEventBuilder) ContainerID(id string) *ContainerEventBuilder {
	b.containerID = id
	return b
}

func (b *ContainerEventBuilder) Time(unixTime int64) *ContainerEventBuilder {
	b.time = unixTime
	return b
}

func (b *ContainerEventBuilder) TimeNano(nanos int64) *ContainerEventBuilder {
	b.timeNano = nanos
	return b
}

func (b *ContainerEventBuilder) Attribute(key, value string) *ContainerEventBuilder {
	b.attributes[key] = value
	return b
}

// Attributes merges all entries of attrs into the builder.
func (b *ContainerEventBuilder) Attributes(attrs map[string]string) *ContainerEventBuilder {
	maps.Copy(b.attributes, attrs)
	return b
}

// Build returns the event. The builder can be reused afterwards without
// affecting events it already produced.
func (b *ContainerEventBuilder) Build() ContainerEvent {
	return NewContainerEvent(b.status, b.containerID, b.time, b.timeNano, b.attributes)
}
