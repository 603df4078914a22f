package dto

import "github.com/imgflow/dispatch/internal/domain"

// ErrorResponse represents a common API error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// ComponentHealth is one entry of HealthResponse.
type ComponentHealth struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Detail  string `json:"detail,omitempty"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status          string            `json:"status"`
	EnabledServerID int64             `json:"enabledServerId"`
	Components      []ComponentHealth `json:"components"`
}

// FromHealth converts a domain health report.
func FromHealth(h *domain.SystemHealth) HealthResponse {
	resp := HealthResponse{
		Status:          string(h.Status),
		EnabledServerID: h.EnabledServerID,
		Components:      make([]ComponentHealth, 0, len(h.Components)),
	}
	for _, c := range h.Components {
		resp.Components = append(resp.Components, ComponentHealth{Name: c.Name, Healthy: c.Healthy, Detail: c.Detail})
	}
	return resp
}
