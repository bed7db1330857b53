// Package retrieval implements the document search plugin. The real
// backend queries a metasearch service with a JSON API; the mock serves
// a small fixed corpus of course material.
package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"learnloop/internal/domain"
)

// PluginName is the registry name for the retrieval provider.
const PluginName = "retrieval"

const defaultLimit = 5

// Query is a search request.
type Query struct {
	Text  string `json:"text"`
	Limit int    `json:"limit,omitempty"`
}

// Document is one search hit.
type Document struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

// ResultSet is an ordered page of hits.
type ResultSet struct {
	Documents []Document `json:"documents"`
	Mocked    bool       `json:"mocked"`
	Cached    bool       `json:"cached"`
}

// Service is the document search capability interface.
type Service interface {
	domain.Plugin
	Search(ctx context.Context, q *Query) (*ResultSet, error)
}

var errEmptyQuery = errors.New("query text is empty")

func normalize(q *Query) (*Query, error) {
	if q == nil || strings.TrimSpace(q.Text) == "" {
		return nil, errEmptyQuery
	}
	out := &Query{Text: strings.TrimSpace(q.Text), Limit: q.Limit}
	if out.Limit <= 0 {
		out.Limit = defaultLimit
	}
	return out, nil
}

func cacheKey(q *Query) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s\x1f%d", strings.ToLower(q.Text), q.Limit)))
	return "retrieval:" + hex.EncodeToString(h[:])
}
