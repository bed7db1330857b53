package plugin

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const auditRingCap = 2048

// MockToolkit is shared machinery for mock providers: simulated latency,
// fake identifiers and a bounded audit trail of what the mock was asked
// to do. Tests read the audit trail to assert on provider interactions
// without any network.
type MockToolkit struct {
	minLatency time.Duration
	maxLatency time.Duration

	mu    sync.Mutex
	audit []AuditRecord
}

// AuditRecord is one recorded mock interaction.
type AuditRecord struct {
	At      time.Time
	Op      string
	Summary string
}

// NewMockToolkit creates a toolkit simulating latency in [min, max].
// Zero bounds disable the latency simulation.
func NewMockToolkit(min, max time.Duration) *MockToolkit {
	if max < min {
		max = min
	}
	return &MockToolkit{minLatency: min, maxLatency: max}
}

// SimulateLatency sleeps a random duration in the configured range,
// honoring context cancellation.
func (m *MockToolkit) SimulateLatency(ctx context.Context) error {
	if m.maxLatency <= 0 {
		return nil
	}
	d := m.minLatency
	if span := m.maxLatency - m.minLatency; span > 0 {
		d += time.Duration(rand.Int64N(int64(span)))
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FakeID returns a plausible provider-side identifier.
func (m *MockToolkit) FakeID(prefix string) string {
	return prefix + "_" + ulid.Make().String()
}

// Record appends an interaction to the audit trail. The trail is a ring:
// once full, the oldest records are dropped.
func (m *MockToolkit) Record(op, summary string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.audit = append(m.audit, AuditRecord{At: time.Now(), Op: op, Summary: summary})
	if len(m.audit) > auditRingCap {
		m.audit = m.audit[len(m.audit)-auditRingCap:]
	}
}

// Audit returns a copy of the recorded interactions, oldest first.
func (m *MockToolkit) Audit() []AuditRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]AuditRecord, len(m.audit))
	copy(out, m.audit)
	return out
}
