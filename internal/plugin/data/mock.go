package data

import (
	"context"
	"fmt"
	"time"

	"learnloop/internal/domain"
	"learnloop/internal/plugin"
)

var _ Service = (*Mock)(nil)

// Mock is the no-database data store. Queries return empty row sets and
// writes succeed without persisting, so data-dependent agents degrade to
// stateless behavior rather than erroring.
type Mock struct {
	toolkit *plugin.MockToolkit
}

// NewMock creates the mock data store.
func NewMock() *Mock {
	return &Mock{toolkit: plugin.NewMockToolkit(1*time.Millisecond, 5*time.Millisecond)}
}

func (m *Mock) Metadata() domain.PluginMetadata {
	return domain.PluginMetadata{
		Name:         PluginName,
		Version:      "1.0.0",
		Capabilities: []string{"query", "exec"},
	}
}

func (m *Mock) Initialize(ctx context.Context, cfg domain.PluginConfig) error {
	return nil
}

func (m *Mock) Query(ctx context.Context, query string, args ...any) (*RowSet, error) {
	if err := checkQuery(query); err != nil {
		return nil, err
	}
	if err := m.toolkit.SimulateLatency(ctx); err != nil {
		return nil, err
	}
	m.toolkit.Record("query", fmt.Sprintf("sql=%.80q args=%d", query, len(args)))
	return &RowSet{Rows: []map[string]any{}, Mocked: true}, nil
}

func (m *Mock) Exec(ctx context.Context, stmt string, args ...any) (*ExecResult, error) {
	if err := checkExec(stmt); err != nil {
		return nil, err
	}
	if err := m.toolkit.SimulateLatency(ctx); err != nil {
		return nil, err
	}
	m.toolkit.Record("exec", fmt.Sprintf("sql=%.80q args=%d", stmt, len(args)))
	return &ExecResult{RowsAffected: 1, Mocked: true}, nil
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
