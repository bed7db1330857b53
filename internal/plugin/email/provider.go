package email

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

const breakerName = "mail-api"

var _ Service = (*Provider)(nil)

// Provider is the live mail backend, speaking a JSON HTTP API with
// bearer auth. Sends are quota-limited per sender address per hour;
// drafts are not, since they cost the provider nothing.
type Provider struct {
	cfg     config.EmailPluginConfig
	client  *http.Client
	breaker *resilience.Breaker
	limiter *cache.RateLimiter
}

// NewProvider creates the live mail provider.
func NewProvider(cfg config.EmailPluginConfig, store cache.Cache, breakers *resilience.Registry) *Provider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Provider{
		cfg:     cfg,
		client:  &http.Client{Timeout: timeout},
		breaker: breakers.Get(breakerName),
		limiter: cache.NewRateLimiter(store, "email-sends", cfg.MaxSendsPerHour, time.Hour),
	}
}

func (p *Provider) Metadata() domain.PluginMetadata {
	return domain.PluginMetadata{
		Name:         PluginName,
		Version:      "1.0.0",
		Capabilities: []string{"send", "draft"},
	}
}

func (p *Provider) Initialize(ctx context.Context, cfg domain.PluginConfig) error {
	if p.cfg.APIKey == "" {
		return fmt.Errorf("mail api key not configured")
	}
	if p.cfg.BaseURL == "" {
		return fmt.Errorf("mail base url not configured")
	}
	return nil
}

func (p *Provider) Send(ctx context.Context, msg *Message) (*Receipt, error) {
	if err := validate(msg); err != nil {
		return nil, err
	}
	from := msg.From
	if from == "" {
		from = p.cfg.From
	}
	if err := p.limiter.Allow(ctx, from); err != nil {
		return nil, err
	}
	return p.post(ctx, "/v1/messages", msg, from)
}

func (p *Provider) Draft(ctx context.Context, msg *Message) (*Receipt, error) {
	if err := validate(msg); err != nil {
		return nil, err
	}
	from := msg.From
	if from == "" {
		from = p.cfg.From
	}
	return p.post(ctx, "/v1/drafts", msg, from)
}

func (p *Provider) post(ctx context.Context, path string, msg *Message, from string) (*Receipt, error) {
	payload := struct {
		From    string   `json:"from"`
		To      []string `json:"to"`
		Subject string   `json:"subject"`
		Body    string   `json:"body"`
	}{From: from, To: msg.To, Subject: msg.Subject, Body: msg.Body}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}

	res, err := p.breaker.Execute(ctx, func(ctx context.Context) (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			strings.TrimRight(p.cfg.BaseURL, "/")+path, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

		resp, err := p.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("mail api: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, fmt.Errorf("mail api returned %d: %s",
				resp.StatusCode, strings.TrimSpace(string(snippet)))
		}

		var ack struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
			return nil, fmt.Errorf("decode mail api response: %w", err)
		}
		return &Receipt{MessageID: ack.ID}, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(*Receipt), nil
}

func (p *Provider) Health(ctx context.Context) domain.PluginHealth {
	if p.breaker.State() == gobreaker.StateOpen {
		return domain.PluginHealth{Healthy: false, Status: "degraded", Message: "mail api circuit open"}
	}
	return domain.PluginHealth{Healthy: true, Status: "ok"}
}

func (p *Provider) Shutdown(ctx context.Context) error {
	p.client.CloseIdleConnections()
	return nil
}
