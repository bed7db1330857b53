package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"learnloop/internal/cache"
	"learnloop/internal/domain"
	"learnloop/internal/infra/config"
	"learnloop/internal/resilience"
)

const breakerName = "llm-provider"

var _ Service = (*Provider)(nil)

// Provider calls an OpenAI-compatible chat completions API. Identical
// requests within the memoization window are served from cache without
// touching the upstream, which both cuts cost and keeps repeated course
// questions fast.
type Provider struct {
	cfg     config.LLMPluginConfig
	client  *http.Client
	breaker *resilience.Breaker
	store   cache.Cache
}

// NewProvider creates the live chat provider.
func NewProvider(cfg config.LLMPluginConfig, store cache.Cache, breakers *resilience.Registry) *Provider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
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
		Capabilities: []string{"chat"},
	}
}

func (p *Provider) Initialize(ctx context.Context, cfg domain.PluginConfig) error {
	if p.cfg.APIKey == "" {
		return fmt.Errorf("llm api key not configured")
	}
	if p.cfg.BaseURL == "" {
		return fmt.Errorf("llm base url not configured")
	}
	return nil
}

func (p *Provider) Complete(ctx context.Context, req *Request) (*Response, error) {
	if req == nil || len(req.Messages) == 0 {
		return nil, errEmptyTranscript
	}

	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}

	key := cacheKey(model, req)
	if p.cfg.CacheTTL > 0 {
		if cached, err := p.store.Get(ctx, key); err == nil {
			var resp Response
			if err := json.Unmarshal([]byte(cached), &resp); err == nil {
				resp.Cached = true
				return &resp, nil
			}
		}
	}

	res, err := p.breaker.Execute(ctx, func(ctx context.Context) (any, error) {
		return p.call(ctx, model, req)
	})
	if err != nil {
		return nil, err
	}
	resp := res.(*Response)

	if p.cfg.CacheTTL > 0 {
		if data, err := json.Marshal(resp); err == nil {
			// Cache write failures only cost the next caller a live call.
			_ = p.store.Set(ctx, key, string(data), p.cfg.CacheTTL)
		}
	}
	return resp, nil
}

func (p *Provider) call(ctx context.Context, model string, req *Request) (*Response, error) {
	payload := struct {
		Model       string        `json:"model"`
		Messages    []ChatMessage `json:"messages"`
		Temperature float64       `json:"temperature,omitempty"`
	}{Model: model, Messages: req.Messages, Temperature: req.Temperature}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(p.cfg.BaseURL, "/")+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("llm api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("llm api returned %d: %s",
			resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var completion struct {
		Model   string `json:"model"`
		Choices []struct {
			Message ChatMessage `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, fmt.Errorf("decode llm response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("llm response has no choices")
	}

	respModel := completion.Model
	if respModel == "" {
		respModel = model
	}
	return &Response{
		Content: completion.Choices[0].Message.Content,
		Model:   respModel,
	}, nil
}

func (p *Provider) Health(ctx context.Context) domain.PluginHealth {
	if p.breaker.State() == gobreaker.StateOpen {
		return domain.PluginHealth{Healthy: false, Status: "degraded", Message: "llm circuit open"}
	}
	return domain.PluginHealth{Healthy: true, Status: "ok"}
}

func (p *Provider) Shutdown(ctx context.Context) error {
	p.client.CloseIdleConnections()
	return nil
}
