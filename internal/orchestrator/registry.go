// Package orchestrator is the control plane for agents: a registry that
// tracks live agent handles per runtime kind, and an execution façade
// that dispatches tasks to them.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"learnloop/internal/domain"
	"learnloop/internal/runtime"
)

// Registry tracks registered agents and dispatches lifecycle operations
// to the runtime backend matching each agent's kind.
type Registry struct {
	runtimes map[domain.RuntimeKind]runtime.Runtime
	logger   *slog.Logger

	mu     sync.RWMutex
	agents map[string]*domain.AgentHandle
}

// NewRegistry creates an agent registry over the given runtime backends.
func NewRegistry(runtimes []runtime.Runtime, logger *slog.Logger) *Registry {
	byKind := make(map[domain.RuntimeKind]runtime.Runtime, len(runtimes))
	for _, rt := range runtimes {
		byKind[rt.Kind()] = rt
	}
	return &Registry{
		runtimes: byKind,
		logger:   logger,
		agents:   make(map[string]*domain.AgentHandle),
	}
}

// Register starts an agent from its definition and records the handle.
// Re-registering an existing ID stops the old instance and replaces it,
// so repeated startup registration is idempotent.
func (r *Registry) Register(ctx context.Context, def *domain.AgentDefinition) (*domain.AgentHandle, error) {
	if def == nil || def.ID == "" {
		return nil, domain.NewDomainError("registry.register", domain.ErrInvalidDefinition, "empty agent id")
	}
	if !def.Runtime.Valid() {
		return nil, domain.NewDomainError("registry.register", domain.ErrInvalidDefinition,
			fmt.Sprintf("agent %s: unknown runtime %q", def.ID, def.Runtime))
	}

	rt, ok := r.runtimes[def.Runtime]
	if !ok {
		return nil, domain.NewDomainError("registry.register", domain.ErrUnsupportedRuntime,
			string(def.Runtime))
	}

	handle, err := rt.Start(ctx, def)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	old := r.agents[def.ID]
	r.agents[def.ID] = handle
	r.mu.Unlock()

	if old != nil {
		if rtOld, ok := r.runtimes[old.Runtime]; ok {
			if err := rtOld.Stop(ctx, old); err != nil {
				r.logger.Warn("stop replaced agent", "agent_id", def.ID, "error", err)
			}
		}
		r.logger.Info("agent replaced", "agent_id", def.ID, "version", def.Version)
	} else {
		r.logger.Info("agent registered",
			"agent_id", def.ID,
			"type", def.Type,
			"version", def.Version,
			"runtime", def.Runtime,
		)
	}

	return handle, nil
}

// Get returns the handle for an agent ID.
func (r *Registry) Get(id string) (*domain.AgentHandle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handle, ok := r.agents[id]
	if !ok {
		return nil, fmt.Errorf("agent not found: %s: %w", id, domain.ErrAgentNotFound)
	}
	return handle, nil
}

// GetByType returns all registered agents of the given type.
func (r *Registry) GetByType(agentType string) []*domain.AgentHandle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var handles []*domain.AgentHandle
	for _, h := range r.agents {
		if h.Type == agentType {
			handles = append(handles, h)
		}
	}
	return handles
}

// List returns all registered agent handles.
func (r *Registry) List() []*domain.AgentHandle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handles := make([]*domain.AgentHandle, 0, len(r.agents))
	for _, h := range r.agents {
		handles = append(handles, h)
	}
	return handles
}

// Unregister stops an agent and removes it from the registry.
func (r *Registry) Unregister(ctx context.Context, id string) error {
	r.mu.Lock()
	handle, ok := r.agents[id]
	delete(r.agents, id)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("agent not found: %s: %w", id, domain.ErrAgentNotFound)
	}

	if rt, ok := r.runtimes[handle.Runtime]; ok {
		if err := rt.Stop(ctx, handle); err != nil {
			return fmt.Errorf("stop agent %s: %w", id, err)
		}
	}

	r.logger.Info("agent unregistered", "agent_id", id)
	return nil
}

// Shutdown stops every registered agent. Errors are logged, not
// returned; shutdown keeps going.
func (r *Registry) Shutdown(ctx context.Context) {
	r.mu.Lock()
	agents := r.agents
	r.agents = make(map[string]*domain.AgentHandle)
	r.mu.Unlock()

	for id, handle := range agents {
		rt, ok := r.runtimes[handle.Runtime]
		if !ok {
			continue
		}
		if err := rt.Stop(ctx, handle); err != nil {
			r.logger.Warn("stop agent during shutdown", "agent_id", id, "error", err)
		}
	}
}

func (r *Registry) runtimeFor(kind domain.RuntimeKind) (runtime.Runtime, bool) {
	rt, ok := r.runtimes[kind]
	return rt, ok
}
