package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"learnloop/internal/domain"
)

const (
	httpExecuteTimeout = 30 * time.Second
	httpHealthTimeout  = 5 * time.Second
)

var _ Runtime = (*HTTP)(nil)

// HTTP executes agents hosted as external HTTP services. The service
// contract is POST {endpoint}/execute accepting an AgentTask and
// returning an AgentResult, plus an optional GET health path.
type HTTP struct {
	client *http.Client
	logger *slog.Logger
}

// NewHTTP creates the HTTP runtime backend. client may be nil, in which
// case a default client is used; per-call timeouts come from request
// contexts, not the client.
func NewHTTP(client *http.Client, logger *slog.Logger) *HTTP {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTP{client: client, logger: logger}
}

func (r *HTTP) Kind() domain.RuntimeKind { return domain.RuntimeHTTP }

func (r *HTTP) Start(ctx context.Context, def *domain.AgentDefinition) (*domain.AgentHandle, error) {
	endpoint := strings.TrimRight(def.Config.URL, "/")
	if endpoint == "" {
		return nil, domain.NewDomainError("runtime.start", domain.ErrEndpointMissing, def.ID)
	}

	healthPath := def.Config.HealthEndpoint
	if healthPath == "" {
		healthPath = "/health"
	}

	handle := &domain.AgentHandle{
		ID:         def.ID,
		Type:       def.Type,
		Version:    def.Version,
		Runtime:    domain.RuntimeHTTP,
		Endpoint:   endpoint,
		HealthPath: healthPath,
	}

	// Probe at registration. An unreachable service is logged but does
	// not fail registration; the service may come up later.
	status := r.Health(ctx, handle)
	if status.Status != domain.HealthHealthy {
		r.logger.Warn("http agent not reachable at registration",
			"agent_id", def.ID,
			"endpoint", endpoint,
			"status", status.Status,
			"error", status.Error,
		)
	}

	return handle, nil
}

func (r *HTTP) Execute(ctx context.Context, handle *domain.AgentHandle, task *domain.AgentTask) *domain.AgentResult {
	body, err := json.Marshal(task)
	if err != nil {
		return domain.FailedResult(fmt.Errorf("encode task: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, httpExecuteTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		handle.Endpoint+"/execute", bytes.NewReader(body))
	if err != nil {
		return domain.FailedResult(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return domain.FailedResult(fmt.Errorf("call agent %s: %w", handle.ID, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return domain.FailedResult(fmt.Errorf("HTTP %d: %s",
			resp.StatusCode, http.StatusText(resp.StatusCode)))
	}

	var result domain.AgentResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return domain.FailedResult(fmt.Errorf("decode agent %s response: %w", handle.ID, err))
	}
	return &result
}

func (r *HTTP) Health(ctx context.Context, handle *domain.AgentHandle) domain.HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, httpHealthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		handle.Endpoint+handle.HealthPath, nil)
	if err != nil {
		return domain.HealthStatus{Status: domain.HealthUnhealthy, Error: err.Error()}
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return domain.HealthStatus{Status: domain.HealthUnhealthy, Error: err.Error()}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusOK {
		return domain.HealthStatus{
			Status: domain.HealthUnhealthy,
			Error:  fmt.Sprintf("health endpoint returned %d", resp.StatusCode),
		}
	}
	return domain.HealthStatus{Status: domain.HealthHealthy}
}

func (r *HTTP) Stop(ctx context.Context, handle *domain.AgentHandle) error {
	// The remote service owns its own lifecycle; nothing to release.
	return nil
}
