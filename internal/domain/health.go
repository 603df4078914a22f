package domain

// HealthStatus summarizes the state of the process.
type HealthStatus string

const (
	// HealthOK means storage, registry and engine are all reachable.
	HealthOK HealthStatus = "ok"
	// HealthDegraded means the registry works but the engine is unreachable
	// or no server is enabled.
	HealthDegraded HealthStatus = "degraded"
	// HealthUnavailable means storage is unreachable or the registry is corrupt.
	HealthUnavailable HealthStatus = "unavailable"
)

// Health component names.
const (
	ComponentDatabase = "database"
	ComponentRegistry = "registry"
	ComponentEngine   = "engine"
)

// ComponentHealth is the result of one check.
type ComponentHealth struct {
	Name    string
	Healthy bool
	Detail  string
}

// SystemHealth aggregates component checks.
type SystemHealth struct {
	Status          HealthStatus
	EnabledServerID int64
	Components      []ComponentHealth
}
