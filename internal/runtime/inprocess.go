package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"learnloop/internal/domain"
)

var _ Runtime = (*InProcess)(nil)

// InProcess executes agents as Go values inside the orchestrator process.
// The definition's Implementation carries either a ready handler or a
// constructor invoked once at start.
type InProcess struct {
	logger *slog.Logger
}

// NewInProcess creates the in-process runtime backend.
func NewInProcess(logger *slog.Logger) *InProcess {
	return &InProcess{logger: logger}
}

func (r *InProcess) Kind() domain.RuntimeKind { return domain.RuntimeInProcess }

func (r *InProcess) Start(ctx context.Context, def *domain.AgentDefinition) (*domain.AgentHandle, error) {
	if def.Implementation == nil {
		return nil, domain.NewDomainError("runtime.start", domain.ErrAgentImplMissing, def.ID)
	}

	var handler domain.AgentHandler
	switch impl := def.Implementation.(type) {
	case domain.AgentHandler:
		handler = impl
	case domain.AgentConstructor:
		h, err := impl()
		if err != nil {
			return nil, fmt.Errorf("construct agent %s: %w", def.ID, err)
		}
		handler = h
	case func() (domain.AgentHandler, error):
		h, err := impl()
		if err != nil {
			return nil, fmt.Errorf("construct agent %s: %w", def.ID, err)
		}
		handler = h
	default:
		return nil, domain.NewDomainError("runtime.start", domain.ErrAgentImplInvalid,
			fmt.Sprintf("agent %s: implementation type %T", def.ID, def.Implementation))
	}

	return &domain.AgentHandle{
		ID:       def.ID,
		Type:     def.Type,
		Version:  def.Version,
		Runtime:  domain.RuntimeInProcess,
		Instance: handler,
	}, nil
}

func (r *InProcess) Execute(ctx context.Context, handle *domain.AgentHandle, task *domain.AgentTask) (result *domain.AgentResult) {
	handler, ok := handle.Instance.(domain.AgentHandler)
	if !ok {
		return domain.FailedResult(domain.ErrAgentImplInvalid)
	}

	// Handler panics are contained here so one misbehaving agent cannot
	// take down the orchestrator.
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("agent handler panic",
				"agent_id", handle.ID,
				"task_type", task.Type,
				"panic", rec,
			)
			result = domain.FailedResult(fmt.Errorf("agent %s panicked: %v", handle.ID, rec))
		}
	}()

	res, err := handler.Execute(ctx, task)
	if err != nil {
		return domain.FailedResult(err)
	}
	if res == nil {
		return domain.FailedResult(fmt.Errorf("agent %s returned no result", handle.ID))
	}
	return res
}

func (r *InProcess) Health(ctx context.Context, handle *domain.AgentHandle) (status domain.HealthStatus) {
	handler, ok := handle.Instance.(domain.AgentHandler)
	if !ok {
		return domain.HealthStatus{
			Status: domain.HealthUnhealthy,
			Error:  domain.ErrAgentImplInvalid.Error(),
		}
	}

	defer func() {
		if rec := recover(); rec != nil {
			status = domain.HealthStatus{
				Status: domain.HealthUnhealthy,
				Error:  fmt.Sprintf("health probe panicked: %v", rec),
			}
		}
	}()

	return handler.Health(ctx)
}

func (r *InProcess) Stop(ctx context.Context, handle *domain.AgentHandle) error {
	// In-process agents hold no external resources; dropping the handle
	// is enough.
	return nil
}
