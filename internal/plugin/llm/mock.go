package llm

import (
	"context"
	"fmt"
	"time"

	"learnloop/internal/domain"
	"learnloop/internal/plugin"
)

var _ Service = (*Mock)(nil)

// Mock is the no-credential chat provider. It produces a deterministic
// reply derived from the last user turn, so conversational features can
// be exercised end to end without an API key.
type Mock struct {
	toolkit *plugin.MockToolkit
}

// NewMock creates the mock chat provider.
func NewMock() *Mock {
	return &Mock{toolkit: plugin.NewMockToolkit(10*time.Millisecond, 50*time.Millisecond)}
}

func (m *Mock) Metadata() domain.PluginMetadata {
	return domain.PluginMetadata{
		Name:         PluginName,
		Version:      "1.0.0",
		Capabilities: []string{"chat"},
	}
}

func (m *Mock) Initialize(ctx context.Context, cfg domain.PluginConfig) error {
	return nil
}

func (m *Mock) Complete(ctx context.Context, req *Request) (*Response, error) {
	if req == nil || len(req.Messages) == 0 {
		return nil, errEmptyTranscript
	}
	if err := m.toolkit.SimulateLatency(ctx); err != nil {
		return nil, err
	}

	prompt := lastUserContent(req)
	m.toolkit.Record("complete", fmt.Sprintf("turns=%d prompt=%.60q", len(req.Messages), prompt))

	return &Response{
		Content: fmt.Sprintf("This is a simulated tutor response to: %s", prompt),
		Model:   "mock",
		Mocked:  true,
	}, nil
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
