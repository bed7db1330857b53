// Package data implements the structured data store plugin over SQLite.
// Agents use it for durable facts: enrollment records, grading notes,
// per-student progress. The mock accepts statements without persisting.
package data

import (
	"context"
	"errors"
	"strings"

	"learnloop/internal/domain"
)

// PluginName is the registry name for the data store.
const PluginName = "data"

// RowSet is the result of a read query, one map per row keyed by column.
type RowSet struct {
	Rows   []map[string]any `json:"rows"`
	Mocked bool             `json:"mocked"`
}

// ExecResult is the result of a write statement.
type ExecResult struct {
	RowsAffected int64 `json:"rows_affected"`
	Mocked       bool  `json:"mocked"`
}

// Service is the structured storage capability interface. Query is for
// reads, Exec for writes; the split keeps read paths from mutating state
// through a carelessly routed statement.
type Service interface {
	domain.Plugin
	Query(ctx context.Context, query string, args ...any) (*RowSet, error)
	Exec(ctx context.Context, stmt string, args ...any) (*ExecResult, error)
}

var (
	errEmptyStatement = errors.New("empty sql statement")
	errNotReadOnly    = errors.New("query must be a select statement")
)

func checkQuery(query string) error {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return errEmptyStatement
	}
	head := strings.ToUpper(trimmed)
	if !strings.HasPrefix(head, "SELECT") && !strings.HasPrefix(head, "WITH") {
		return errNotReadOnly
	}
	return nil
}

func checkExec(stmt string) error {
	if strings.TrimSpace(stmt) == "" {
		return errEmptyStatement
	}
	return nil
}
