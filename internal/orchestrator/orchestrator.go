package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"learnloop/internal/domain"
	"learnloop/internal/infra/tracer"
)

// Orchestrator dispatches tasks to registered agents. ExecuteTask is
// total: every failure mode, from unknown agent IDs to handler panics,
// comes back as a failed AgentResult rather than an error or a panic.
type Orchestrator struct {
	registry *Registry
	logger   *slog.Logger
}

// New creates an orchestrator over the given agent registry.
func New(registry *Registry, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{registry: registry, logger: logger}
}

// ExecuteTask runs a task against the agent identified by agentID. A
// task without an ID is assigned a fresh ULID so log lines and results
// are correlatable. The returned result is always non-nil and carries
// agent and latency metadata.
func (o *Orchestrator) ExecuteTask(ctx context.Context, agentID string, task *domain.AgentTask) *domain.AgentResult {
	if task == nil {
		task = &domain.AgentTask{}
	}
	if task.ID == "" {
		task.ID = ulid.Make().String()
	}

	ctx, span := tracer.StartSpan(ctx, "orchestrator.execute_task")
	defer span.End()
	span.SetAttributes(
		tracer.StringAttr("agent.id", agentID),
		tracer.StringAttr("task.id", task.ID),
		tracer.StringAttr("task.type", task.Type),
	)

	start := time.Now()

	handle, err := o.registry.Get(agentID)
	if err != nil {
		tracer.RecordError(span, err)
		return o.finish(start, task, nil, domain.FailedResult(fmt.Errorf("agent not found: %s", agentID)))
	}

	rt, ok := o.registry.runtimeFor(handle.Runtime)
	if !ok {
		err := fmt.Errorf("no runtime backend for %s", handle.Runtime)
		tracer.RecordError(span, err)
		return o.finish(start, task, handle, domain.FailedResult(err))
	}

	result := rt.Execute(ctx, handle, task)
	if result == nil {
		result = domain.FailedResult(fmt.Errorf("runtime %s returned no result", handle.Runtime))
	}

	span.SetAttributes(tracer.BoolAttr("task.success", result.Success))
	if result.Success {
		tracer.SetOK(span)
	} else {
		span.SetAttributes(tracer.StringAttr("task.error", result.Error))
	}

	return o.finish(start, task, handle, result)
}

// finish stamps execution metadata onto the result and emits the
// per-task log line.
func (o *Orchestrator) finish(start time.Time, task *domain.AgentTask, handle *domain.AgentHandle, result *domain.AgentResult) *domain.AgentResult {
	latency := time.Since(start)

	if result.Metadata == nil {
		result.Metadata = make(map[string]any)
	}
	result.Metadata["task_id"] = task.ID
	result.Metadata["latency_ms"] = latency.Milliseconds()
	if handle != nil {
		result.Metadata["agent_id"] = handle.ID
		result.Metadata["agent_version"] = handle.Version
	}

	attrs := []any{
		"task_id", task.ID,
		"task_type", task.Type,
		"success", result.Success,
		"latency_ms", latency.Milliseconds(),
	}
	if handle != nil {
		attrs = append(attrs, "agent_id", handle.ID)
	}
	if result.Success {
		o.logger.Info("task executed", attrs...)
	} else {
		o.logger.Warn("task failed", append(attrs, "error", result.Error)...)
	}

	return result
}

// RegisterAgent starts and records an agent from its definition.
func (o *Orchestrator) RegisterAgent(ctx context.Context, def *domain.AgentDefinition) (*domain.AgentHandle, error) {
	return o.registry.Register(ctx, def)
}

// UnregisterAgent stops and removes an agent.
func (o *Orchestrator) UnregisterAgent(ctx context.Context, id string) error {
	return o.registry.Unregister(ctx, id)
}

// GetAgent returns the handle for an agent ID.
func (o *Orchestrator) GetAgent(id string) (*domain.AgentHandle, error) {
	return o.registry.Get(id)
}

// GetAgentsByType returns all agents of one type.
func (o *Orchestrator) GetAgentsByType(agentType string) []*domain.AgentHandle {
	return o.registry.GetByType(agentType)
}

// ListAgents returns every registered agent.
func (o *Orchestrator) ListAgents() []*domain.AgentHandle {
	return o.registry.List()
}

// CheckHealth probes one agent. An unknown agent ID yields an unknown
// status rather than an error.
func (o *Orchestrator) CheckHealth(ctx context.Context, agentID string) domain.HealthStatus {
	handle, err := o.registry.Get(agentID)
	if err != nil {
		return domain.HealthStatus{Status: domain.HealthUnknown, Error: err.Error()}
	}
	rt, ok := o.registry.runtimeFor(handle.Runtime)
	if !ok {
		return domain.HealthStatus{Status: domain.HealthUnknown, Error: "no runtime backend"}
	}
	return rt.Health(ctx, handle)
}
