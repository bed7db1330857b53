// Package domain holds the core types shared across the orchestration
// layer: agent definitions and handles, tasks and results, the plugin
// contract and the sentinel errors.
package domain

import "context"

// RuntimeKind selects how an agent executes.
type RuntimeKind string

// Supported and reserved runtime kinds. Container and process are part
// of the registration surface but have no executable backend yet.
const (
	RuntimeInProcess RuntimeKind = "in-process"
	RuntimeHTTP      RuntimeKind = "http"
	RuntimeContainer RuntimeKind = "container"
	RuntimeProcess   RuntimeKind = "process"
)

// Valid reports whether k names a known runtime kind.
func (k RuntimeKind) Valid() bool {
	switch k {
	case RuntimeInProcess, RuntimeHTTP, RuntimeContainer, RuntimeProcess:
		return true
	}
	return false
}

// AgentRuntimeConfig carries runtime-specific settings from a
// definition. URL and HealthEndpoint apply to HTTP agents; Env and
// Ports are reserved for the container and process runtimes.
type AgentRuntimeConfig struct {
	URL            string            `json:"url,omitempty"`
	HealthEndpoint string            `json:"health_endpoint,omitempty"`
	Env            map[string]string `json:"env,omitempty"`
	Ports          []int             `json:"ports,omitempty"`
}

// Health status values reported for agents.
const (
	HealthHealthy   = "healthy"
	HealthUnhealthy = "unhealthy"
	HealthUnknown   = "unknown"
)

// HealthStatus is the outcome of probing one agent.
type HealthStatus struct {
	Status  string         `json:"status"`
	Error   string         `json:"error,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// AgentHandler is the contract for in-process agent implementations.
type AgentHandler interface {
	Execute(ctx context.Context, task *AgentTask) (*AgentResult, error)
	Health(ctx context.Context) HealthStatus
}

// AgentConstructor builds a handler at registration time, so a
// definition can defer wiring until the agent actually starts.
type AgentConstructor func() (AgentHandler, error)

// AgentDefinition declares an agent to the registry. For in-process
// agents, Implementation holds either an AgentHandler or an
// AgentConstructor.
type AgentDefinition struct {
	ID             string             `json:"id"`
	Type           string             `json:"type"`
	Version        string             `json:"version"`
	Runtime        RuntimeKind        `json:"runtime"`
	Config         AgentRuntimeConfig `json:"config"`
	Implementation any                `json:"-"`
	Capabilities   []string           `json:"capabilities,omitempty"`
}

// AgentHandle is a started agent tracked by the registry. Exactly one
// of Instance, Endpoint, ContainerID or ProcessID is meaningful,
// depending on Runtime.
type AgentHandle struct {
	ID          string      `json:"id"`
	Type        string      `json:"type"`
	Version     string      `json:"version"`
	Runtime     RuntimeKind `json:"runtime"`
	Instance    any         `json:"-"`
	Endpoint    string      `json:"endpoint,omitempty"`
	ContainerID string      `json:"container_id,omitempty"`
	ProcessID   int         `json:"process_id,omitempty"`
	HealthPath  string      `json:"health_path,omitempty"`
}

// TaskContext carries request-scoped identity through task execution.
type TaskContext struct {
	SessionID string `json:"session_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// AgentTask is one unit of work for an agent.
type AgentTask struct {
	ID      string      `json:"id,omitempty"`
	Type    string      `json:"type"`
	Payload any         `json:"payload,omitempty"`
	Context TaskContext `json:"context,omitempty"`
}

// AgentResult is the outcome of executing a task. Execution is total:
// infrastructure failures, handler errors and panics are all encoded
// here rather than raised.
type AgentResult struct {
	Success  bool           `json:"success"`
	Data     any            `json:"data,omitempty"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// FailedResult encodes an error as a failed result.
func FailedResult(err error) *AgentResult {
	return &AgentResult{Success: false, Error: err.Error()}
}
