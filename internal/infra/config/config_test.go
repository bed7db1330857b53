package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreSafe(t *testing.T) {
	cfg := Defaults()

	// No credentials configured means every provider mocks.
	assert.Empty(t, cfg.Plugins.Email.APIKey)
	assert.True(t, cfg.Plugins.LLM.Mock)
	assert.True(t, cfg.Plugins.Retrieval.Mock)
	assert.Empty(t, cfg.Plugins.Action.SlackToken)
	assert.Empty(t, cfg.Plugins.Data.DatabaseURL)

	assert.Equal(t, ":8080", cfg.Gateway.Addr)
	assert.True(t, cfg.Gateway.RateLimit.Enabled)
	require.NoError(t, Validate(cfg))
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Gateway.Addr)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
gateway:
  addr: ":9090"
logger:
  level: debug
  format: json
plugins:
  email:
    api_key: file-key
    max_sends_per_hour: 10
  llm:
    mock: false
    api_key: sk-from-file
`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Gateway.Addr)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "file-key", cfg.Plugins.Email.APIKey)
	assert.Equal(t, 10, cfg.Plugins.Email.MaxSendsPerHour)
	assert.False(t, cfg.Plugins.LLM.Mock)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gateway: [notamap"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverridesFlipMockSelection(t *testing.T) {
	t.Setenv("MAIL_API_KEY", "key-env")
	t.Setenv("MOCK_LLM", "false")
	t.Setenv("LLM_API_KEY", "sk-env")
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-env")
	t.Setenv("MOCK_ACTIONS", "true")
	t.Setenv("DATABASE_URL", "file:learnloop.db")
	t.Setenv("MOCK_RETRIEVAL", "false")

	cfg := Defaults()
	ApplyEnvOverrides(cfg)

	assert.Equal(t, "key-env", cfg.Plugins.Email.APIKey)
	assert.False(t, cfg.Plugins.LLM.Mock)
	assert.Equal(t, "sk-env", cfg.Plugins.LLM.APIKey)
	assert.Equal(t, "xoxb-env", cfg.Plugins.Action.SlackToken)
	assert.True(t, cfg.Plugins.Action.ForceMock)
	assert.Equal(t, "file:learnloop.db", cfg.Plugins.Data.DatabaseURL)
	assert.False(t, cfg.Plugins.Retrieval.Mock)
}

func TestEnvMockFlagsAreSticky(t *testing.T) {
	// Any value other than "false" keeps the mock on.
	t.Setenv("MOCK_LLM", "1")
	cfg := Defaults()
	cfg.Plugins.LLM.Mock = false
	ApplyEnvOverrides(cfg)
	assert.True(t, cfg.Plugins.LLM.Mock)
}

func TestEnvAmbientOverrides(t *testing.T) {
	t.Setenv("LEARNLOOP_GATEWAY_ADDR", ":7070")
	t.Setenv("LEARNLOOP_LOGGER_LEVEL", "warn")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("LEARNLOOP_CACHE_DEFAULT_TTL", "90s")

	cfg := Defaults()
	ApplyEnvOverrides(cfg)

	assert.Equal(t, ":7070", cfg.Gateway.Addr)
	assert.Equal(t, "warn", cfg.Logger.Level)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Cache.RedisURL)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 90*time.Second, cfg.Cache.DefaultTTL)
	require.NoError(t, Validate(cfg))
}

func TestValidateCatchesBadConfigs(t *testing.T) {
	cfg := Defaults()
	cfg.Gateway.Addr = ""
	assert.Error(t, Validate(cfg))

	cfg = Defaults()
	cfg.Gateway.RateLimit.RequestsPerMin = 0
	assert.Error(t, Validate(cfg))

	cfg = Defaults()
	cfg.Cache.Enabled = true
	assert.Error(t, Validate(cfg), "redis enabled without url")

	cfg = Defaults()
	cfg.Plugins.Email.MaxSendsPerHour = -1
	assert.Error(t, Validate(cfg))
}
