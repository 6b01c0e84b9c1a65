package component

import "time"

// Metadata describes a component for logs and the health endpoint
type Metadata struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // "input", "processor"
	Description string `json:"description"`
	Version     string `json:"version"`
}

// HealthStatus reports current component health
type HealthStatus struct {
	Healthy    bool          `json:"healthy"`
	LastCheck  time.Time     `json:"last_check"`
	ErrorCount int           `json:"error_count"`
	LastError  string        `json:"last_error,omitempty"`
	Uptime     time.Duration `json:"uptime"`
}

// FlowMetrics reports current data flow through a component
type FlowMetrics struct {
	MessagesPerSecond float64   `json:"messages_per_second"`
	ErrorRate         float64   `json:"error_rate"`
	LastActivity      time.Time `json:"last_activity"`
}

// Discoverable is the introspection surface every component exposes
type Discoverable interface {
	Meta() Metadata
	Health() HealthStatus
	DataFlow() FlowMetrics
}
