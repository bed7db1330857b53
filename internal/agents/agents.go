// Package agents provides the built-in agents shipped with the
// orchestrator. Each one is a thin adapter from task types to a plugin
// capability, so the same agent works mocked or live depending on which
// provider was selected at startup.
package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"learnloop/internal/domain"
	"learnloop/internal/plugin"
)

// Built-in agent IDs.
const (
	TutorChatID    = "tutor-chat"
	NotifierID     = "notifier"
	CourierID      = "courier"
	LibrarianID    = "librarian"
	RecordkeeperID = "recordkeeper"
)

// Task types handled by the built-in agents.
const (
	TaskChatComplete   = "chat.complete"
	TaskEmailSend      = "email.send"
	TaskEmailDraft     = "email.draft"
	TaskActionDispatch = "action.dispatch"
	TaskSearchQuery    = "search.query"
	TaskDataQuery      = "data.query"
	TaskDataExec       = "data.exec"
)

// decodePayload converts a task payload, which arrives as generic JSON,
// into the agent's typed request.
func decodePayload[T any](payload any) (*T, error) {
	var out T
	if payload == nil {
		return &out, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &out, nil
}

// succeed wraps a provider response in the plugin result envelope so
// every agent surfaces the same mocked flag regardless of capability.
func succeed(data any, mocked bool) (*domain.AgentResult, error) {
	return &domain.AgentResult{
		Success: true,
		Data:    &domain.PluginResult{OK: true, Data: data, Mocked: mocked},
	}, nil
}

func unknownTask(taskType string) (*domain.AgentResult, error) {
	return nil, fmt.Errorf("unsupported task type: %s", taskType)
}

// pluginHealth adapts a plugin health report to agent health. An agent
// whose backing plugin cannot be resolved is unhealthy, not broken.
func pluginHealth(ctx context.Context, plugins *plugin.Registry, name string) domain.HealthStatus {
	p, err := plugins.Get(ctx, name)
	if err != nil {
		return domain.HealthStatus{Status: domain.HealthUnhealthy, Error: err.Error()}
	}
	h := p.Health(ctx)
	if !h.Healthy {
		return domain.HealthStatus{
			Status:  domain.HealthUnhealthy,
			Error:   h.Message,
			Details: map[string]any{"plugin_status": h.Status},
		}
	}
	return domain.HealthStatus{Status: domain.HealthHealthy}
}

// Definitions returns the agent definitions for every built-in agent,
// ready to hand to the registry at startup.
func Definitions(plugins *plugin.Registry) []*domain.AgentDefinition {
	inProcess := func(id, typ string, handler domain.AgentHandler, caps ...string) *domain.AgentDefinition {
		return &domain.AgentDefinition{
			ID:             id,
			Type:           typ,
			Version:        "1.0.0",
			Runtime:        domain.RuntimeInProcess,
			Implementation: handler,
			Capabilities:   caps,
		}
	}

	return []*domain.AgentDefinition{
		inProcess(TutorChatID, "conversation", NewTutorChat(plugins), TaskChatComplete),
		inProcess(NotifierID, "operations", NewNotifier(plugins), TaskActionDispatch),
		inProcess(CourierID, "messaging", NewCourier(plugins), TaskEmailSend, TaskEmailDraft),
		inProcess(LibrarianID, "research", NewLibrarian(plugins), TaskSearchQuery),
		inProcess(RecordkeeperID, "storage", NewRecordkeeper(plugins), TaskDataQuery, TaskDataExec),
	}
}
