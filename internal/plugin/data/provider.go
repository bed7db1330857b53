package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sony/gobreaker/v2"
	_ "modernc.org/sqlite"

	"learnloop/internal/domain"
	"learnloop/internal/infra/config"
	"learnloop/internal/resilience"
)

const breakerName = "data-store"

var _ Service = (*Provider)(nil)

// Provider is the SQLite-backed data store. The connection opens at
// Initialize, with WAL enabled so agent reads do not block writes.
type Provider struct {
	cfg     config.DataPluginConfig
	breaker *resilience.Breaker
	db      *sql.DB
}

// NewProvider creates the SQLite data store.
func NewProvider(cfg config.DataPluginConfig, breakers *resilience.Registry) *Provider {
	return &Provider{
		cfg:     cfg,
		breaker: breakers.Get(breakerName),
	}
}

func (p *Provider) Metadata() domain.PluginMetadata {
	return domain.PluginMetadata{
		Name:         PluginName,
		Version:      "1.0.0",
		Capabilities: []string{"query", "exec"},
	}
}

func (p *Provider) Initialize(ctx context.Context, cfg domain.PluginConfig) error {
	if p.cfg.DatabaseURL == "" {
		return fmt.Errorf("database url not configured")
	}

	db, err := sql.Open("sqlite", p.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return fmt.Errorf("enable wal: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return fmt.Errorf("set busy timeout: %w", err)
	}

	p.db = db
	return nil
}

func (p *Provider) Query(ctx context.Context, query string, args ...any) (*RowSet, error) {
	if err := checkQuery(query); err != nil {
		return nil, err
	}
	if p.db == nil {
		return nil, fmt.Errorf("data store not initialized")
	}

	res, err := p.breaker.Execute(ctx, func(ctx context.Context) (any, error) {
		rows, err := p.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("query: %w", err)
		}
		defer rows.Close()
		return scanRows(rows)
	})
	if err != nil {
		return nil, err
	}
	return res.(*RowSet), nil
}

func (p *Provider) Exec(ctx context.Context, stmt string, args ...any) (*ExecResult, error) {
	if err := checkExec(stmt); err != nil {
		return nil, err
	}
	if p.db == nil {
		return nil, fmt.Errorf("data store not initialized")
	}

	res, err := p.breaker.Execute(ctx, func(ctx context.Context) (any, error) {
		out, err := p.db.ExecContext(ctx, stmt, args...)
		if err != nil {
			return nil, fmt.Errorf("exec: %w", err)
		}
		affected, err := out.RowsAffected()
		if err != nil {
			affected = 0
		}
		return &ExecResult{RowsAffected: affected}, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(*ExecResult), nil
}

func scanRows(rows *sql.Rows) (*RowSet, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	out := &RowSet{Rows: []map[string]any{}}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}

		row := make(map[string]any, len(cols))
		for i, col := range cols {
			v := values[i]
			// Byte slices are driver-owned; copy into strings.
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[col] = v
		}
		out.Rows = append(out.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

func (p *Provider) Health(ctx context.Context) domain.PluginHealth {
	if p.breaker.State() == gobreaker.StateOpen {
		return domain.PluginHealth{Healthy: false, Status: "degraded", Message: "data store circuit open"}
	}
	if p.db == nil {
		return domain.PluginHealth{Healthy: false, Status: "down", Message: "not initialized"}
	}
	if err := p.db.PingContext(ctx); err != nil {
		return domain.PluginHealth{Healthy: false, Status: "down", Message: err.Error()}
	}
	return domain.PluginHealth{Healthy: true, Status: "ok"}
}

func (p *Provider) Shutdown(ctx context.Context) error {
	if p.db == nil {
		return nil
	}
	return p.db.Close()
}
