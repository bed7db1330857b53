package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	"learnloop/internal/domain"
	"learnloop/internal/plugin"
)

var _ Service = (*Mock)(nil)

// Mock is the no-credential mail provider. Sends and drafts succeed
// deterministically, are never delivered anywhere, and land in the
// toolkit's audit trail.
type Mock struct {
	toolkit *plugin.MockToolkit
}

// NewMock creates the mock mail provider with a small simulated latency.
func NewMock() *Mock {
	return &Mock{toolkit: plugin.NewMockToolkit(5*time.Millisecond, 20*time.Millisecond)}
}

func (m *Mock) Metadata() domain.PluginMetadata {
	return domain.PluginMetadata{
		Name:         PluginName,
		Version:      "1.0.0",
		Capabilities: []string{"send", "draft"},
	}
}

func (m *Mock) Initialize(ctx context.Context, cfg domain.PluginConfig) error {
	return nil
}

func (m *Mock) Send(ctx context.Context, msg *Message) (*Receipt, error) {
	if err := validate(msg); err != nil {
		return nil, err
	}
	if err := m.toolkit.SimulateLatency(ctx); err != nil {
		return nil, err
	}
	m.toolkit.Record("send", fmt.Sprintf("to=%s subject=%q",
		strings.Join(msg.To, ","), msg.Subject))
	return &Receipt{MessageID: m.toolkit.FakeID("msg"), Mocked: true}, nil
}

func (m *Mock) Draft(ctx context.Context, msg *Message) (*Receipt, error) {
	if err := validate(msg); err != nil {
		return nil, err
	}
	if err := m.toolkit.SimulateLatency(ctx); err != nil {
		return nil, err
	}
	m.toolkit.Record("draft", fmt.Sprintf("to=%s subject=%q",
		strings.Join(msg.To, ","), msg.Subject))
	return &Receipt{MessageID: m.toolkit.FakeID("drf"), Mocked: true}, nil
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
