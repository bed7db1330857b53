package action

import (
	"context"
	"fmt"
	"time"

	"learnloop/internal/domain"
	"learnloop/internal/plugin"
)

var _ Service = (*Mock)(nil)

// Mock is the no-credential action dispatcher. Every dispatch succeeds
// and is recorded; nothing reaches Slack.
type Mock struct {
	toolkit *plugin.MockToolkit
}

// NewMock creates the mock action dispatcher.
func NewMock() *Mock {
	return &Mock{toolkit: plugin.NewMockToolkit(2*time.Millisecond, 10*time.Millisecond)}
}

func (m *Mock) Metadata() domain.PluginMetadata {
	return domain.PluginMetadata{
		Name:         PluginName,
		Version:      "1.0.0",
		Capabilities: []string{KindNotify, KindEscalate},
	}
}

func (m *Mock) Initialize(ctx context.Context, cfg domain.PluginConfig) error {
	return nil
}

func (m *Mock) Dispatch(ctx context.Context, act *Action) (*Receipt, error) {
	if err := validate(act); err != nil {
		return nil, err
	}
	if err := m.toolkit.SimulateLatency(ctx); err != nil {
		return nil, err
	}
	m.toolkit.Record("dispatch", fmt.Sprintf("kind=%s target=%s msg=%.60q",
		act.Kind, act.Target, act.Message))
	return &Receipt{ID: m.toolkit.FakeID("act"), Mocked: true}, nil
}

func (m *Mock) Health(ctx context.Context) domain.PluginHealth {
	return domain.PluginHealth{Healthy: true, Status: "ok", Message: "mock"}
}

func (m *Mock) Shutdown(ctx context.Context) error {
	return nil
}

// Audit exposes the recorded interactions for tests.
func (m *Mock) Audit() []plugin.AuditRecord {
	return m.toolkit.Audit()
}
