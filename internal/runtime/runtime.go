// Package runtime implements agent execution backends. Each runtime knows
// how to start, call, health-check and stop agents of one RuntimeKind.
// Execute never returns a Go error: all failures, including panics in
// handler code, surface as a failed AgentResult so callers can treat task
// execution as total.
package runtime

import (
	"context"

	"learnloop/internal/domain"
)

// Runtime is the execution backend contract for one RuntimeKind.
type Runtime interface {
	// Kind reports which runtime kind this backend serves.
	Kind() domain.RuntimeKind

	// Start prepares a handle from a definition. Validation errors
	// (missing implementation, missing endpoint) are returned here so
	// registration fails loudly instead of at first task.
	Start(ctx context.Context, def *domain.AgentDefinition) (*domain.AgentHandle, error)

	// Execute runs a task against a started agent. The result is always
	// non-nil; infrastructure and handler failures are encoded in it.
	Execute(ctx context.Context, handle *domain.AgentHandle, task *domain.AgentTask) *domain.AgentResult

	// Health probes a started agent.
	Health(ctx context.Context, handle *domain.AgentHandle) domain.HealthStatus

	// Stop releases any resources held for the agent.
	Stop(ctx context.Context, handle *domain.AgentHandle) error
}

// Unsupported is a placeholder backend for runtime kinds that are
// declared in the registration surface but not yet executable. Start
// always fails with domain.ErrUnsupportedRuntime, so definitions naming
// these kinds are rejected at registration time.
type Unsupported struct {
	kind domain.RuntimeKind
}

var _ Runtime = (*Unsupported)(nil)

// NewContainer returns the reserved container runtime backend.
func NewContainer() *Unsupported {
	return &Unsupported{kind: domain.RuntimeContainer}
}

// NewProcess returns the reserved child-process runtime backend.
func NewProcess() *Unsupported {
	return &Unsupported{kind: domain.RuntimeProcess}
}

func (u *Unsupported) Kind() domain.RuntimeKind { return u.kind }

func (u *Unsupported) Start(ctx context.Context, def *domain.AgentDefinition) (*domain.AgentHandle, error) {
	return nil, domain.NewDomainError("runtime.start", domain.ErrUnsupportedRuntime,
		string(u.kind)+" runtime is reserved but not implemented")
}

func (u *Unsupported) Execute(ctx context.Context, handle *domain.AgentHandle, task *domain.AgentTask) *domain.AgentResult {
	return domain.FailedResult(domain.ErrUnsupportedRuntime)
}

func (u *Unsupported) Health(ctx context.Context, handle *domain.AgentHandle) domain.HealthStatus {
	return domain.HealthStatus{
		Status: domain.HealthUnknown,
		Error:  domain.ErrUnsupportedRuntime.Error(),
	}
}

func (u *Unsupported) Stop(ctx context.Context, handle *domain.AgentHandle) error {
	return nil
}
