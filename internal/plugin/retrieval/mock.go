package retrieval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"learnloop/internal/domain"
	"learnloop/internal/plugin"
)

var _ Service = (*Mock)(nil)

// Mock serves a tiny fixed corpus so search-backed features work with
// no retrieval service running. Matching is naive substring scoring;
// good enough to make results vary by query.
type Mock struct {
	toolkit *plugin.MockToolkit
	corpus  []Document
}

// NewMock creates the mock retrieval provider.
func NewMock() *Mock {
	return &Mock{
		toolkit: plugin.NewMockToolkit(5*time.Millisecond, 25*time.Millisecond),
		corpus: []Document{
			{Title: "Introduction to Derivatives", URL: "https://learnloop.dev/docs/calc/derivatives", Snippet: "The derivative measures the instantaneous rate of change of a function."},
			{Title: "Integrals and Area", URL: "https://learnloop.dev/docs/calc/integrals", Snippet: "The definite integral computes signed area under a curve."},
			{Title: "Linear Equations", URL: "https://learnloop.dev/docs/algebra/linear", Snippet: "Solving linear equations by isolating the variable."},
			{Title: "Photosynthesis Overview", URL: "https://learnloop.dev/docs/bio/photosynthesis", Snippet: "How plants convert light energy into chemical energy."},
			{Title: "Newton's Laws of Motion", URL: "https://learnloop.dev/docs/physics/newton", Snippet: "Three laws describing the relationship between forces and motion."},
		},
	}
}

func (m *Mock) Metadata() domain.PluginMetadata {
	return domain.PluginMetadata{
		Name:         PluginName,
		Version:      "1.0.0",
		Capabilities: []string{"search"},
	}
}

func (m *Mock) Initialize(ctx context.Context, cfg domain.PluginConfig) error {
	return nil
}

func (m *Mock) Search(ctx context.Context, q *Query) (*ResultSet, error) {
	q, err := normalize(q)
	if err != nil {
		return nil, err
	}
	if err := m.toolkit.SimulateLatency(ctx); err != nil {
		return nil, err
	}
	m.toolkit.Record("search", fmt.Sprintf("q=%.60q limit=%d", q.Text, q.Limit))

	terms := strings.Fields(strings.ToLower(q.Text))
	var hits []Document
	for _, doc := range m.corpus {
		haystack := strings.ToLower(doc.Title + " " + doc.Snippet)
		var score float64
		for _, term := range terms {
			if strings.Contains(haystack, term) {
				score++
			}
		}
		if score > 0 {
			doc.Score = score / float64(len(terms))
			hits = append(hits, doc)
		}
	}
	if len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}
	return &ResultSet{Documents: hits, Mocked: true}, nil
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
