package models

import "time"

// HealthState is the probe classification of one upstream source.
type HealthState string

const (
	HealthUnknown   HealthState = "unknown"
	HealthHealthy   HealthState = "healthy"
	HealthUnhealthy HealthState = "unhealthy"
)

// HealthStatus is the result of the most recent probe of a source.
type HealthStatus struct {
	Code          string      `json:"code"`
	Name          string      `json:"name"`
	Status        HealthState `json:"status"`
	LastLatencyMs int64       `json:"responseTime"`
	LastCheckedAt time.Time   `json:"lastCheck"`
	LastError     string      `json:"error,omitempty"`
}

// HealthReport is returned by the source health endpoint.
type HealthReport struct {
	Code         int            `json:"code"`
	Statuses     []HealthStatus `json:"statuses"`
	HealthyCount int            `json:"healthyCount"`
	Count        int            `json:"count"`
}
