// internal/store/models.go
package store

import (
	"time"
)

// Status is the reachability state of a monitor target.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
	StatusUnknown Status = "unknown"
)

// MonitorTarget is a host(+port) the scheduler periodically probes.
// Port nil means "use the conventional web port". Status and
// PreviousStatus are the only status fields; PreviousStatus always holds
// the value Status had before the most recent reconcile.
type MonitorTarget struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Host            string     `json:"host"`
	Port            *int       `json:"port,omitempty"`
	Enabled         bool       `json:"enabled"`
	IntervalSeconds int        `json:"interval_seconds"`
	Status          Status     `json:"status"`
	PreviousStatus  Status     `json:"previous_status"`
	LatencyMS       *float64   `json:"latency_ms,omitempty"`
	LastChecked     *time.Time `json:"last_checked,omitempty"`
	LastError       string     `json:"last_error,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Interval returns the check cadence as a duration.
func (m *MonitorTarget) Interval() time.Duration {
	return time.Duration(m.IntervalSeconds) * time.Second
}

// SavedRequest is a stored HTTP request definition. The monitoring core
// never reads these; they share collections with monitors and are
// executed on demand by the requester.
type SavedRequest struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Method    string            `json:"method"`
	URL       string            `json:"url"`
	Headers   map[string]string `json:"headers,omitempty"`
	Body      string            `json:"body,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Collection is a named container for monitors and saved requests. A
// monitor belongs to the global list or to exactly one collection.
type Collection struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Monitors  []MonitorTarget `json:"monitors"`
	Requests  []SavedRequest  `json:"requests"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
