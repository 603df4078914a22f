// Package domain contains pure business types without external dependencies.
package domain

import "time"

// NoServerID is returned in place of a server identifier when no server is enabled.
// Identifiers are assigned by storage starting at 1, so 0 never names a real server.
const NoServerID int64 = 0

// ConstraintComparator is the comparison applied between a node attribute and
// the allowed values of a placement constraint.
type ConstraintComparator string

const (
	ComparatorEquals    ConstraintComparator = "=="
	ComparatorNotEquals ConstraintComparator = "!="
)

// Constraint restricts where Swarm tasks may be placed.
type Constraint struct {
	Key          string
	Values       []string
	Comparator   ConstraintComparator
	UserSettable bool
}

// ServerConfig is one configured Docker backend endpoint.
type ServerConfig struct {
	ID                 int64
	Name               string
	Host               string
	CertPath           string
	SwarmMode          bool
	Enabled            bool
	EnabledAt          *time.Time
	DisabledAt         *time.Time
	LastModified       time.Time
	LastEventCheckTime *time.Time
	Constraints        []Constraint
}

// UsesTLS reports whether the server should be reached over TLS.
func (s *ServerConfig) UsesTLS() bool {
	return s.CertPath != ""
}

// Clone returns a deep copy so callers can mutate the result without
// touching a shared instance.
func (s *ServerConfig) Clone() *ServerConfig {
	if s == nil {
		return nil
	}
	c := *s
	c.EnabledAt = cloneTime(s.EnabledAt)
	c.DisabledAt = cloneTime(s.DisabledAt)
	c.LastEventCheckTime = cloneTime(s.LastEventCheckTime)
	if s.Constraints != nil {
		c.Constraints = make([]Constraint, len(s.Constraints))
		for i, con := range s.Constraints {
			con.Values = append([]string(nil), con.Values...)
			c.Constraints[i] = con
		}
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
