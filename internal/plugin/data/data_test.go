package data

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnloop/internal/domain"
	"learnloop/internal/infra/config"
	"learnloop/internal/resilience"
)

func newBreakers(t *testing.T) *resilience.Registry {
	t.Helper()
	return resilience.NewRegistry(resilience.Options{}, slog.New(slog.DiscardHandler))
}

func newProvider(t *testing.T) *Provider {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "learnloop.db")
	p := NewProvider(config.DataPluginConfig{DatabaseURL: dsn}, newBreakers(t))
	require.NoError(t, p.Initialize(context.Background(), domain.PluginConfig{}))
	t.Cleanup(func() { p.Shutdown(context.Background()) })
	return p
}

func TestMockQueryAndExec(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	rs, err := m.Query(ctx, "SELECT id FROM progress WHERE user_id = ?", "u1")
	require.NoError(t, err)
	assert.True(t, rs.Mocked)
	assert.Empty(t, rs.Rows)

	res, err := m.Exec(ctx, "INSERT INTO progress (user_id) VALUES (?)", "u1")
	require.NoError(t, err)
	assert.True(t, res.Mocked)

	audit := m.Audit()
	require.Len(t, audit, 2)
	assert.Equal(t, "query", audit[0].Op)
	assert.Equal(t, "exec", audit[1].Op)
}

func TestMockRejectsNonSelectQuery(t *testing.T) {
	m := NewMock()

	_, err := m.Query(context.Background(), "DELETE FROM progress")
	assert.ErrorIs(t, err, errNotReadOnly)

	_, err = m.Exec(context.Background(), "  ")
	assert.ErrorIs(t, err, errEmptyStatement)
}

func TestProviderRoundTrip(t *testing.T) {
	p := newProvider(t)
	ctx := context.Background()

	_, err := p.Exec(ctx, `CREATE TABLE progress (
		user_id TEXT NOT NULL,
		lesson TEXT NOT NULL,
		score REAL
	)`)
	require.NoError(t, err)

	res, err := p.Exec(ctx,
		"INSERT INTO progress (user_id, lesson, score) VALUES (?, ?, ?)",
		"u1", "derivatives", 0.85)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.RowsAffected)
	assert.False(t, res.Mocked)

	rs, err := p.Query(ctx,
		"SELECT user_id, lesson, score FROM progress WHERE user_id = ?", "u1")
	require.NoError(t, err)
	require.Len(t, rs.Rows, 1)
	assert.Equal(t, "u1", rs.Rows[0]["user_id"])
	assert.Equal(t, "derivatives", rs.Rows[0]["lesson"])
	assert.EqualValues(t, 0.85, rs.Rows[0]["score"])
}

func TestProviderQueryGuards(t *testing.T) {
	p := newProvider(t)
	ctx := context.Background()

	_, err := p.Query(ctx, "DROP TABLE progress")
	assert.ErrorIs(t, err, errNotReadOnly)

	// CTE reads are allowed.
	_, execErr := p.Exec(ctx, "CREATE TABLE t (n INTEGER)")
	require.NoError(t, execErr)
	_, err = p.Query(ctx, "WITH x AS (SELECT n FROM t) SELECT * FROM x")
	assert.NoError(t, err)
}

func TestProviderSQLErrorSurfaces(t *testing.T) {
	p := newProvider(t)

	_, err := p.Query(context.Background(), "SELECT * FROM missing_table")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing_table")
}

func TestProviderHealth(t *testing.T) {
	p := newProvider(t)
	h := p.Health(context.Background())
	assert.True(t, h.Healthy)

	uninit := NewProvider(config.DataPluginConfig{DatabaseURL: "x.db"}, newBreakers(t))
	h = uninit.Health(context.Background())
	assert.False(t, h.Healthy)
}

func TestProviderInitializeRequiresDatabaseURL(t *testing.T) {
	p := NewProvider(config.DataPluginConfig{}, newBreakers(t))
	assert.Error(t, p.Initialize(context.Background(), domain.PluginConfig{}))
}
