// Package dto defines the wire shapes of the admin API.
package dto

import (
	"fmt"
	"strings"
	"time"

	"github.com/imgflow/dispatch/internal/domain"
)

// WireTimeLayout is the timestamp format used on the wire, millisecond
// precision with a numeric zone offset.
const WireTimeLayout = "2006-01-02T15:04:05.000-0700"

// WireTime marshals a time in WireTimeLayout.
type WireTime struct {
	time.Time
}

// NewWireTime returns nil for a nil time.
func NewWireTime(t *time.Time) *WireTime {
	if t == nil {
		return nil
	}
	return &WireTime{Time: *t}
}

// MarshalJSON implements json.Marshaler.
func (w WireTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + w.Format(WireTimeLayout) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler. RFC 3339 is accepted as well.
func (w *WireTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		return nil
	}

	t, err := time.Parse(WireTimeLayout, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("invalid timestamp %q: expected %s", s, WireTimeLayout)
		}
	}
	w.Time = t
	return nil
}

func (w *WireTime) ptr() *time.Time {
	if w == nil {
		return nil
	}
	t := w.Time
	return &t
}

// Constraint is the wire form of domain.Constraint.
type Constraint struct {
	Key          string   `json:"key"`
	Values       []string `json:"values"`
	Comparator   string   `json:"comparator,omitempty"`
	UserSettable bool     `json:"userSettable,omitempty"`
}

// Server is the wire form of domain.ServerConfig.
type Server struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name,omitempty"`
	Host               string    `json:"host"`
	CertPath           string    `json:"certPath,omitempty"`
	SwarmMode          bool      `json:"swarmMode"`
	Enabled            bool      `json:"enabled"`
	EnabledAt          *WireTime `json:"enabledAt,omitempty"`
	DisabledAt         *WireTime `json:"disabledAt,omitempty"`
	LastModified       *WireTime `json:"lastModified,omitempty"`
	LastEventCheckTime *WireTime `json:"lastEventCheckTime,omitempty"`
	// Constraints is nil when the field is absent; an empty list is kept.
	Constraints *[]Constraint `json:"constraints,omitempty"`
}

// EnabledID is the response of the enabled id endpoint.
type EnabledID struct {
	ID int64 `json:"id"`
}

// FromServer converts a domain server to its wire form.
func FromServer(s *domain.ServerConfig) Server {
	out := Server{
		ID:                 s.ID,
		Name:               s.Name,
		Host:               s.Host,
		CertPath:           s.CertPath,
		SwarmMode:          s.SwarmMode,
		Enabled:            s.Enabled,
		EnabledAt:          NewWireTime(s.EnabledAt),
		DisabledAt:         NewWireTime(s.DisabledAt),
		LastEventCheckTime: NewWireTime(s.LastEventCheckTime),
	}
	if !s.LastModified.IsZero() {
		out.LastModified = &WireTime{Time: s.LastModified}
	}
	if s.Constraints != nil {
		constraints := make([]Constraint, 0, len(s.Constraints))
		for _, c := range s.Constraints {
			constraints = append(constraints, Constraint{
				Key:          c.Key,
				Values:       append([]string{}, c.Values...),
				Comparator:   string(c.Comparator),
				UserSettable: c.UserSettable,
			})
		}
		out.Constraints = &constraints
	}
	return out
}

// FromServers converts a list of domain servers.
func FromServers(servers []*domain.ServerConfig) []Server {
	out := make([]Server, 0, len(servers))
	for _, s := range servers {
		out = append(out, FromServer(s))
	}
	return out
}

// ToDomain converts the wire form back to a domain server.
func (s Server) ToDomain() *domain.ServerConfig {
	out := &domain.ServerConfig{
		ID:                 s.ID,
		Name:               s.Name,
		Host:               s.Host,
		CertPath:           s.CertPath,
		SwarmMode:          s.SwarmMode,
		Enabled:            s.Enabled,
		EnabledAt:          s.EnabledAt.ptr(),
		DisabledAt:         s.DisabledAt.ptr(),
		LastEventCheckTime: s.LastEventCheckTime.ptr(),
	}
	if s.LastModified != nil {
		out.LastModified = s.LastModified.Time
	}
	if s.Constraints != nil {
		out.Constraints = make([]domain.Constraint, 0, len(*s.Constraints))
		for _, c := range *s.Constraints {
			out.Constraints = append(out.Constraints, domain.Constraint{
				Key:          c.Key,
				Values:       append([]string{}, c.Values...),
				Comparator:   domain.ConstraintComparator(c.Comparator),
				UserSettable: c.UserSettable,
			})
		}
	}
	return out
}
