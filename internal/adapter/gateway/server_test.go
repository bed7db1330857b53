package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnloop/internal/agents"
	"learnloop/internal/domain"
	"learnloop/internal/infra/config"
	"learnloop/internal/orchestrator"
	"learnloop/internal/plugin"
	"learnloop/internal/plugin/action"
	"learnloop/internal/plugin/data"
	"learnloop/internal/plugin/email"
	"learnloop/internal/plugin/llm"
	"learnloop/internal/plugin/retrieval"
	"learnloop/internal/runtime"
)

type testGateway struct {
	srv     *Server
	baseURL string
	client  *http.Client
	token   string
}

func startGateway(t *testing.T, withAuth bool) *testGateway {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	plugins := plugin.NewRegistry(logger)
	plugins.Register(email.PluginName, email.NewMock(), domain.PluginConfig{Mock: true})
	plugins.Register(llm.PluginName, llm.NewMock(), domain.PluginConfig{Mock: true})
	plugins.Register(action.PluginName, action.NewMock(), domain.PluginConfig{Mock: true})
	plugins.Register(retrieval.PluginName, retrieval.NewMock(), domain.PluginConfig{Mock: true})
	plugins.Register(data.PluginName, data.NewMock(), domain.PluginConfig{Mock: true})

	reg := orchestrator.NewRegistry([]runtime.Runtime{
		runtime.NewInProcess(logger),
		runtime.NewHTTP(nil, logger),
		runtime.NewContainer(),
		runtime.NewProcess(),
	}, logger)
	for _, def := range agents.Definitions(plugins) {
		_, err := reg.Register(context.Background(), def)
		require.NoError(t, err)
	}
	orch := orchestrator.New(reg, logger)

	var auth Authenticator
	token := "tok-test-1"
	if withAuth {
		auth = NewStaticTokenAuth([]config.TokenConfig{{Token: token, Name: "ci"}})
	}

	srv := NewServer(orch, plugins, auth, config.GatewayConfig{Addr: "127.0.0.1:0"}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-errCh:
		case <-time.After(2 * time.Second):
			t.Error("gateway did not stop")
		}
	})

	// Wait for the listener to bind.
	deadline := time.Now().Add(2 * time.Second)
	for srv.BoundAddr() == "" {
		if time.Now().After(deadline) {
			t.Fatal("gateway did not start")
		}
		time.Sleep(5 * time.Millisecond)
	}

	return &testGateway{
		srv:     srv,
		baseURL: "http://" + srv.BoundAddr(),
		client:  &http.Client{Timeout: 5 * time.Second},
		token:   token,
	}
}

func (g *testGateway) do(t *testing.T, method, path string, body any, authed bool) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, g.baseURL+path, &buf)
	require.NoError(t, err)
	if authed {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}
	resp, err := g.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestListAndGetAgents(t *testing.T) {
	g := startGateway(t, false)

	resp, body := g.do(t, http.MethodGet, "/agents", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["ok"])

	views, ok := body["agents"].([]any)
	require.True(t, ok)
	assert.Len(t, views, 5)
	assert.NotContains(t, body, "data")

	resp, body = g.do(t, http.MethodGet, "/agents/tutor-chat", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view, ok := body["agent"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "tutor-chat", view["id"])
	assert.Equal(t, "in-process", view["runtime"])

	resp, _ = g.do(t, http.MethodGet, "/agents/ghost", nil, false)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestExecuteTaskOverHTTP(t *testing.T) {
	g := startGateway(t, false)

	resp, body := g.do(t, http.MethodPost, "/tasks/execute", map[string]any{
		"agent_id": "tutor-chat",
		"task": map[string]any{
			"type": "chat.complete",
			"payload": map[string]any{
				"messages": []map[string]string{{"role": "user", "content": "hello"}},
			},
		},
	}, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["ok"])

	// success and metadata are siblings of ok, not nested in a wrapper.
	assert.Equal(t, true, body["success"])
	metadata := body["metadata"].(map[string]any)
	assert.Equal(t, "tutor-chat", metadata["agent_id"])

	payload := body["data"].(map[string]any)
	assert.Equal(t, true, payload["mocked"])
}

func TestExecuteTaskFailureMapsTo500(t *testing.T) {
	g := startGateway(t, false)

	resp, body := g.do(t, http.MethodPost, "/tasks/execute", map[string]any{
		"agent_id": "ghost",
		"task":     map[string]any{"type": "x"},
	}, false)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "agent not found: ghost", body["error"])
}

func TestExecuteTaskValidation(t *testing.T) {
	g := startGateway(t, false)

	resp, _ := g.do(t, http.MethodPost, "/tasks/execute", map[string]any{
		"task": map[string]any{"type": "x"},
	}, false)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRegisterHTTPAgent(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/execute":
			json.NewEncoder(w).Encode(domain.AgentResult{Success: true, Data: "remote ok"})
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer backend.Close()

	g := startGateway(t, false)

	resp, body := g.do(t, http.MethodPost, "/agents/register", map[string]any{
		"id":      "remote-grader",
		"type":    "grading",
		"version": "0.3.0",
		"runtime": "http",
		"config":  map[string]any{"url": backend.URL},
	}, false)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, true, body["ok"])
	agent, ok := body["agent"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "remote-grader", agent["id"])
	assert.Equal(t, backend.URL, agent["endpoint"])

	resp, body = g.do(t, http.MethodPost, "/tasks/execute", map[string]any{
		"agent_id": "remote-grader",
		"task":     map[string]any{"type": "grade.submit"},
	}, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "remote ok", body["data"])
}

func TestRegisterRejectsInProcessAndReservedRuntimes(t *testing.T) {
	g := startGateway(t, false)

	resp, _ := g.do(t, http.MethodPost, "/agents/register", map[string]any{
		"id": "x", "runtime": "in-process",
	}, false)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = g.do(t, http.MethodPost, "/agents/register", map[string]any{
		"id": "x", "runtime": "container",
	}, false)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, _ = g.do(t, http.MethodPost, "/agents/register", map[string]any{
		"id": "x", "runtime": "http",
	}, false)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "http agent without url")
}

func TestAgentHealthEndpoint(t *testing.T) {
	g := startGateway(t, false)

	resp, body := g.do(t, http.MethodGet, "/agents/tutor-chat/health", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	status, ok := body["health"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "healthy", status["status"])

	resp, body = g.do(t, http.MethodGet, "/agents/ghost/health", nil, false)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	status = body["health"].(map[string]any)
	assert.Equal(t, "unknown", status["status"])
}

func TestHealthzAggregates(t *testing.T) {
	g := startGateway(t, false)

	resp, body := g.do(t, http.MethodGet, "/healthz", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["healthy"])
	assert.EqualValues(t, 5, body["agents"])
}

func TestAuthRequiredWhenConfigured(t *testing.T) {
	g := startGateway(t, true)

	req, err := http.NewRequest(http.MethodGet, g.baseURL+"/agents", nil)
	require.NoError(t, err)
	resp, err := g.client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req.Header.Set("Authorization", "Bearer wrong-token")
	resp, err = g.client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	okResp, body := g.do(t, http.MethodGet, "/agents", nil, true)
	assert.Equal(t, http.StatusOK, okResp.StatusCode)
	assert.Equal(t, true, body["ok"])
}

func TestStaticTokenAuth(t *testing.T) {
	auth := NewStaticTokenAuth([]config.TokenConfig{
		{Token: "alpha", Name: "svc-a"},
		{Token: "beta", Name: "svc-b"},
	})

	info, err := auth.Authenticate("beta")
	require.NoError(t, err)
	assert.Equal(t, "svc-b", info.Name)

	_, err = auth.Authenticate("gamma")
	assert.ErrorIs(t, err, ErrAuthFailed)

	_, err = auth.Authenticate("")
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestSecurityHeadersPresent(t *testing.T) {
	g := startGateway(t, false)

	resp, err := g.client.Get(g.baseURL + "/agents")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
}
