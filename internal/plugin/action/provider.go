package action

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
	"github.com/sony/gobreaker/v2"

	"learnloop/internal/domain"
	"learnloop/internal/infra/config"
	"learnloop/internal/resilience"
)

const breakerName = "action-slack"

var _ Service = (*Provider)(nil)

// Provider dispatches actions as Slack messages. Escalations are
// prefixed so they stand out in the channel.
type Provider struct {
	cfg     config.ActionPluginConfig
	api     *slack.Client
	breaker *resilience.Breaker
}

// NewProvider creates the Slack-backed dispatcher. extraOpts is used by
// tests to point the client at a fake API.
func NewProvider(cfg config.ActionPluginConfig, breakers *resilience.Registry, extraOpts ...slack.Option) *Provider {
	return &Provider{
		cfg:     cfg,
		api:     slack.New(cfg.SlackToken, extraOpts...),
		breaker: breakers.Get(breakerName),
	}
}

func (p *Provider) Metadata() domain.PluginMetadata {
	return domain.PluginMetadata{
		Name:         PluginName,
		Version:      "1.0.0",
		Capabilities: []string{KindNotify, KindEscalate},
	}
}

func (p *Provider) Initialize(ctx context.Context, cfg domain.PluginConfig) error {
	if p.cfg.SlackToken == "" {
		return fmt.Errorf("slack token not configured")
	}
	if p.cfg.Channel == "" {
		return fmt.Errorf("slack channel not configured")
	}
	return nil
}

func (p *Provider) Dispatch(ctx context.Context, act *Action) (*Receipt, error) {
	if err := validate(act); err != nil {
		return nil, err
	}

	channel := act.Target
	if channel == "" {
		channel = p.cfg.Channel
	}

	text := act.Message
	if act.Kind == KindEscalate {
		text = ":rotating_light: ESCALATION: " + text
	}

	res, err := p.breaker.Execute(ctx, func(ctx context.Context) (any, error) {
		_, ts, err := p.api.PostMessageContext(ctx, channel,
			slack.MsgOptionText(text, false))
		if err != nil {
			return nil, fmt.Errorf("slack post: %w", err)
		}
		return &Receipt{ID: ts}, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(*Receipt), nil
}

func (p *Provider) Health(ctx context.Context) domain.PluginHealth {
	if p.breaker.State() == gobreaker.StateOpen {
		return domain.PluginHealth{Healthy: false, Status: "degraded", Message: "slack circuit open"}
	}
	return domain.PluginHealth{Healthy: true, Status: "ok"}
}

func (p *Provider) Shutdown(ctx context.Context) error {
	return nil
}
