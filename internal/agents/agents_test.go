package agents

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnloop/internal/domain"
	"learnloop/internal/orchestrator"
	"learnloop/internal/plugin"
	"learnloop/internal/plugin/action"
	"learnloop/internal/plugin/data"
	"learnloop/internal/plugin/email"
	"learnloop/internal/plugin/llm"
	"learnloop/internal/plugin/retrieval"
	"learnloop/internal/runtime"
)

// mockedStack registers all five plugins in mock mode, the way a
// credential-free deployment comes up.
func mockedStack(t *testing.T) *plugin.Registry {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	plugins := plugin.NewRegistry(logger)
	plugins.Register(email.PluginName, email.NewMock(), domain.PluginConfig{Mock: true})
	plugins.Register(llm.PluginName, llm.NewMock(), domain.PluginConfig{Mock: true})
	plugins.Register(action.PluginName, action.NewMock(), domain.PluginConfig{Mock: true})
	plugins.Register(retrieval.PluginName, retrieval.NewMock(), domain.PluginConfig{Mock: true})
	plugins.Register(data.PluginName, data.NewMock(), domain.PluginConfig{Mock: true})
	return plugins
}

func orchestratedStack(t *testing.T) (*plugin.Registry, *orchestrator.Orchestrator) {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	plugins := mockedStack(t)

	reg := orchestrator.NewRegistry([]runtime.Runtime{runtime.NewInProcess(logger)}, logger)
	for _, def := range Definitions(plugins) {
		_, err := reg.Register(context.Background(), def)
		require.NoError(t, err)
	}
	return plugins, orchestrator.New(reg, logger)
}

// unwrap pulls the plugin result envelope out of an agent result.
func unwrap(t *testing.T, res *domain.AgentResult) *domain.PluginResult {
	t.Helper()
	pr, ok := res.Data.(*domain.PluginResult)
	require.True(t, ok, "agent result data is %T, want *domain.PluginResult", res.Data)
	require.True(t, pr.OK)
	return pr
}

func TestDefinitionsCoverAllBuiltins(t *testing.T) {
	defs := Definitions(mockedStack(t))
	require.Len(t, defs, 5)

	ids := make(map[string]bool)
	for _, def := range defs {
		ids[def.ID] = true
		assert.Equal(t, domain.RuntimeInProcess, def.Runtime)
		assert.NotNil(t, def.Implementation)
		assert.NotEmpty(t, def.Capabilities)
	}
	for _, id := range []string{TutorChatID, NotifierID, CourierID, LibrarianID, RecordkeeperID} {
		assert.True(t, ids[id], id)
	}
}

func TestTutorChatEndToEnd(t *testing.T) {
	_, orch := orchestratedStack(t)

	res := orch.ExecuteTask(context.Background(), TutorChatID, &domain.AgentTask{
		Type: TaskChatComplete,
		Payload: map[string]any{
			"messages": []map[string]string{
				{"role": "user", "content": "Explain the chain rule"},
			},
		},
	})
	require.True(t, res.Success, res.Error)

	pr := unwrap(t, res)
	assert.True(t, pr.Mocked)
	resp, ok := pr.Data.(*llm.Response)
	require.True(t, ok)
	assert.True(t, resp.Mocked)
	assert.Contains(t, resp.Content, "Explain the chain rule")
}

func TestCourierSendAndDraft(t *testing.T) {
	_, orch := orchestratedStack(t)
	ctx := context.Background()

	payload := map[string]any{
		"to":      []string{"student@example.com"},
		"subject": "Week 3 recap",
		"body":    "Here is what we covered.",
	}

	res := orch.ExecuteTask(ctx, CourierID, &domain.AgentTask{Type: TaskEmailSend, Payload: payload})
	require.True(t, res.Success, res.Error)
	pr := unwrap(t, res)
	assert.True(t, pr.Mocked)
	rcpt, ok := pr.Data.(*email.Receipt)
	require.True(t, ok)
	assert.True(t, rcpt.Mocked)

	res = orch.ExecuteTask(ctx, CourierID, &domain.AgentTask{Type: TaskEmailDraft, Payload: payload})
	require.True(t, res.Success, res.Error)
}

func TestNotifierDispatch(t *testing.T) {
	plugins, orch := orchestratedStack(t)

	res := orch.ExecuteTask(context.Background(), NotifierID, &domain.AgentTask{
		Type: TaskActionDispatch,
		Payload: map[string]any{
			"kind":    "notify",
			"message": "grading complete for section A",
		},
	})
	require.True(t, res.Success, res.Error)

	mock, err := plugin.As[*action.Mock](context.Background(), plugins, action.PluginName)
	require.NoError(t, err)
	assert.Len(t, mock.Audit(), 1)
}

func TestLibrarianSearch(t *testing.T) {
	_, orch := orchestratedStack(t)

	res := orch.ExecuteTask(context.Background(), LibrarianID, &domain.AgentTask{
		Type:    TaskSearchQuery,
		Payload: map[string]any{"text": "derivative"},
	})
	require.True(t, res.Success, res.Error)

	pr := unwrap(t, res)
	assert.True(t, pr.Mocked)
	rs, ok := pr.Data.(*retrieval.ResultSet)
	require.True(t, ok)
	assert.NotEmpty(t, rs.Documents)
}

func TestRecordkeeperQueryAndExec(t *testing.T) {
	_, orch := orchestratedStack(t)
	ctx := context.Background()

	res := orch.ExecuteTask(ctx, RecordkeeperID, &domain.AgentTask{
		Type:    TaskDataQuery,
		Payload: map[string]any{"sql": "SELECT 1"},
	})
	require.True(t, res.Success, res.Error)
	assert.True(t, unwrap(t, res).Mocked)

	res = orch.ExecuteTask(ctx, RecordkeeperID, &domain.AgentTask{
		Type:    TaskDataExec,
		Payload: map[string]any{"sql": "INSERT INTO notes (body) VALUES (?)", "args": []any{"hi"}},
	})
	require.True(t, res.Success, res.Error)
	assert.True(t, unwrap(t, res).Mocked)
}

func TestUnsupportedTaskTypeFailsCleanly(t *testing.T) {
	_, orch := orchestratedStack(t)

	res := orch.ExecuteTask(context.Background(), TutorChatID, &domain.AgentTask{
		Type: "email.send",
	})
	require.NotNil(t, res)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "unsupported task type")
}

func TestAgentHealthReflectsPlugin(t *testing.T) {
	_, orch := orchestratedStack(t)
	ctx := context.Background()

	assert.Equal(t, domain.HealthHealthy, orch.CheckHealth(ctx, TutorChatID).Status)

	// Health on an agent whose plugin is missing reports unhealthy.
	bare := plugin.NewRegistry(slog.New(slog.DiscardHandler))
	a := NewTutorChat(bare)
	assert.Equal(t, domain.HealthUnhealthy, a.Health(ctx).Status)
}
