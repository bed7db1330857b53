package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"learnloop/internal/cache"
	"learnloop/internal/domain"
	"learnloop/internal/infra/config"
	"learnloop/internal/resilience"
)

const breakerName = "retrieval-api"

var _ Service = (*Provider)(nil)

// Provider queries a metasearch service exposing a SearXNG-style JSON
// API. Result pages are memoized so repeated course queries within the
// window do not hit the service again.
type Provider struct {
	cfg     config.RetrievalPluginConfig
	client  *http.Client
	breaker *resilience.Breaker
	store   cache.Cache
}

// NewProvider creates the live retrieval provider.
func NewProvider(cfg config.RetrievalPluginConfig, store cache.Cache, breakers *resilience.Registry) *Provider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Provider{
		cfg:     cfg,
		client:  &http.Client{Timeout: timeout},
		breaker: breakers.Get(breakerName),
		store:   store,
	}
}

func (p *Provider) Metadata() domain.PluginMetadata {
	return domain.PluginMetadata{
		Name:         PluginName,
		Version:      "1.0.0",
		Capabilities: []string{"search"},
	}
}

func (p *Provider) Initialize(ctx context.Context, cfg domain.PluginConfig) error {
	if p.cfg.BaseURL == "" {
		return fmt.Errorf("retrieval base url not configured")
	}
	return nil
}

func (p *Provider) Search(ctx context.Context, q *Query) (*ResultSet, error) {
	q, err := normalize(q)
	if err != nil {
		return nil, err
	}

	key := cacheKey(q)
	if p.cfg.CacheTTL > 0 {
		if cached, err := p.store.Get(ctx, key); err == nil {
			var rs ResultSet
			if err := json.Unmarshal([]byte(cached), &rs); err == nil {
				rs.Cached = true
				return &rs, nil
			}
		}
	}

	res, err := p.breaker.Execute(ctx, func(ctx context.Context) (any, error) {
		return p.query(ctx, q)
	})
	if err != nil {
		return nil, err
	}
	rs := res.(*ResultSet)

	if p.cfg.CacheTTL > 0 {
		if data, err := json.Marshal(rs); err == nil {
			_ = p.store.Set(ctx, key, string(data), p.cfg.CacheTTL)
		}
	}
	return rs, nil
}

func (p *Provider) query(ctx context.Context, q *Query) (*ResultSet, error) {
	params := url.Values{}
	params.Set("q", q.Text)
	params.Set("format", "json")
	params.Set("limit", strconv.Itoa(q.Limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		strings.TrimRight(p.cfg.BaseURL, "/")+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("retrieval api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("retrieval api returned %d: %s",
			resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var page struct {
		Results []struct {
			Title   string  `json:"title"`
			URL     string  `json:"url"`
			Content string  `json:"content"`
			Score   float64 `json:"score"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode retrieval response: %w", err)
	}

	docs := make([]Document, 0, len(page.Results))
	for _, r := range page.Results {
		docs = append(docs, Document{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Content,
			Score:   r.Score,
		})
		if len(docs) == q.Limit {
			break
		}
	}
	return &ResultSet{Documents: docs}, nil
}

func (p *Provider) Health(ctx context.Context) domain.PluginHealth {
	if p.breaker.State() == gobreaker.StateOpen {
		return domain.PluginHealth{Healthy: false, Status: "degraded", Message: "retrieval circuit open"}
	}
	return domain.PluginHealth{Healthy: true, Status: "ok"}
}

func (p *Provider) Shutdown(ctx context.Context) error {
	p.client.CloseIdleConnections()
	return nil
}
