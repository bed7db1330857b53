package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Gateway GatewayConfig `yaml:"gateway"`
	Logger  LoggerConfig  `yaml:"logger"`
	Tracer  TracerConfig  `yaml:"tracer"`
	Cache   CacheConfig   `yaml:"cache"`
	Plugins PluginsConfig `yaml:"plugins"`
}

// GatewayConfig holds HTTP API settings.
type GatewayConfig struct {
	Addr      string          `yaml:"addr"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// AuthConfig holds gateway authentication settings.
type AuthConfig struct {
	Type   string        `yaml:"type"` // "static" or ""
	Tokens []TokenConfig `yaml:"tokens,omitempty"`
}

// TokenConfig holds a single gateway auth token.
type TokenConfig struct {
	Token string `yaml:"token"`
	Name  string `yaml:"name"`
}

// RateLimitConfig holds per-client gateway rate limiting settings.
type RateLimitConfig struct {
	Enabled        bool `yaml:"enabled"`
	RequestsPerMin int  `yaml:"requests_per_min"`
	BurstSize      int  `yaml:"burst_size"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// CacheConfig selects the cache backend. When RedisURL is set and Enabled
// is true the networked store is used; otherwise the in-process map.
type CacheConfig struct {
	RedisURL   string        `yaml:"redis_url"`
	Enabled    bool          `yaml:"enabled"`
	DefaultTTL time.Duration `yaml:"default_ttl"`
}

// PluginsConfig holds per-plugin provider settings. Every plugin defaults
// to its mock implementation; presence of the matching credential (or an
// explicit flag) flips it to the real provider at startup.
type PluginsConfig struct {
	Email     EmailPluginConfig     `yaml:"email"`
	LLM       LLMPluginConfig       `yaml:"llm"`
	Action    ActionPluginConfig    `yaml:"action"`
	Retrieval RetrievalPluginConfig `yaml:"retrieval"`
	Data      DataPluginConfig      `yaml:"data"`
}

// EmailPluginConfig holds mail provider settings. Mock unless APIKey is set.
type EmailPluginConfig struct {
	APIKey          string        `yaml:"api_key"`
	BaseURL         string        `yaml:"base_url"`
	From            string        `yaml:"from"`
	MaxSendsPerHour int           `yaml:"max_sends_per_hour"`
	Timeout         time.Duration `yaml:"timeout"`
}

// LLMPluginConfig holds chat provider settings. Mock is an explicit flag
// that defaults to true.
type LLMPluginConfig struct {
	Mock     bool          `yaml:"mock"`
	Provider string        `yaml:"provider"` // default provider name, e.g. "openai"
	BaseURL  string        `yaml:"base_url"`
	APIKey   string        `yaml:"api_key"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
	CacheTTL time.Duration `yaml:"cache_ttl"` // response memoization window
}

// ActionPluginConfig holds action executor settings. Mock unless the Slack
// token is present, or when ForceMock is set regardless of credentials.
type ActionPluginConfig struct {
	ForceMock  bool          `yaml:"force_mock"`
	SlackToken string        `yaml:"slack_token"`
	Channel    string        `yaml:"channel"`
	Timeout    time.Duration `yaml:"timeout"`
}

// RetrievalPluginConfig holds document retrieval settings. Mock is an
// explicit flag that defaults to true.
type RetrievalPluginConfig struct {
	Mock     bool          `yaml:"mock"`
	BaseURL  string        `yaml:"base_url"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
	Timeout  time.Duration `yaml:"timeout"`
}

// DataPluginConfig holds structured data store settings. Mock unless a
// database path/URL is configured.
type DataPluginConfig struct {
	DatabaseURL string `yaml:"database_url"`
}

// Defaults returns a Config with sensible defaults. The plugin layer is
// safe by default: no credentials means deterministic mock behavior, never
// a startup failure.
func Defaults() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Addr: ":8080",
			RateLimit: RateLimitConfig{
				Enabled:        true,
				RequestsPerMin: 300,
				BurstSize:      60,
			},
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
		Cache: CacheConfig{
			DefaultTTL: 5 * time.Minute,
		},
		Plugins: PluginsConfig{
			Email: EmailPluginConfig{
				BaseURL:         "https://api.mailprovider.dev",
				From:            "no-reply@learnloop.dev",
				MaxSendsPerHour: 50,
				Timeout:         30 * time.Second,
			},
			LLM: LLMPluginConfig{
				Mock:     true,
				Provider: "openai",
				BaseURL:  "https://api.openai.com/v1",
				Model:    "gpt-4o-mini",
				Timeout:  60 * time.Second,
				CacheTTL: 10 * time.Minute,
			},
			Action: ActionPluginConfig{
				Channel: "#learnloop-ops",
				Timeout: 15 * time.Second,
			},
			Retrieval: RetrievalPluginConfig{
				Mock:     true,
				BaseURL:  "http://localhost:6060",
				CacheTTL: 15 * time.Minute,
				Timeout:  15 * time.Second,
			},
		},
	}
}

// Load reads a YAML config file and applies env var overrides. A missing
// file is not an error: defaults plus environment are used.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnvOverrides(cfg)
			if err := Validate(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnvOverrides maps environment variables to config fields. The
// LEARNLOOP_* names override ambient settings; the short names (MOCK_LLM,
// MAIL_API_KEY, DATABASE_URL, ...) are the documented plugin toggles.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LEARNLOOP_GATEWAY_ADDR"); v != "" {
		cfg.Gateway.Addr = v
	}
	if v := os.Getenv("LEARNLOOP_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("LEARNLOOP_LOGGER_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := os.Getenv("LEARNLOOP_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("LEARNLOOP_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
	if v := os.Getenv("LEARNLOOP_GATEWAY_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Gateway.RateLimit.RequestsPerMin = n
		}
	}

	// Cache backend selection.
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.RedisURL = v
	}
	if v := os.Getenv("REDIS_ENABLED"); v == "true" {
		cfg.Cache.Enabled = true
	}
	if v := os.Getenv("LEARNLOOP_CACHE_DEFAULT_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Cache.DefaultTTL = d
		}
	}

	// Mock toggles. MOCK_LLM and MOCK_RETRIEVAL default true and can be
	// flipped off explicitly; MOCK_ACTIONS forces the action mock even
	// when a Slack token is present.
	if v := os.Getenv("MOCK_LLM"); v != "" {
		cfg.Plugins.LLM.Mock = v != "false"
	}
	if v := os.Getenv("MOCK_RETRIEVAL"); v != "" {
		cfg.Plugins.Retrieval.Mock = v != "false"
	}
	if v := os.Getenv("MOCK_ACTIONS"); v == "true" {
		cfg.Plugins.Action.ForceMock = true
	}

	// Credentials whose presence flips mock → real.
	if v := os.Getenv("MAIL_API_KEY"); v != "" {
		cfg.Plugins.Email.APIKey = v
	}
	if v := os.Getenv("MAIL_FROM"); v != "" {
		cfg.Plugins.Email.From = v
	}
	if v := os.Getenv("SLACK_BOT_TOKEN"); v != "" {
		cfg.Plugins.Action.SlackToken = v
	}
	if v := os.Getenv("SLACK_CHANNEL"); v != "" {
		cfg.Plugins.Action.Channel = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Plugins.Data.DatabaseURL = v
	}

	// LLM provider settings.
	if v := os.Getenv("LLM_DEFAULT_PROVIDER"); v != "" {
		cfg.Plugins.LLM.Provider = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.Plugins.LLM.BaseURL = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.Plugins.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.Plugins.LLM.Model = v
	}
	if v := os.Getenv("RETRIEVAL_BASE_URL"); v != "" {
		cfg.Plugins.Retrieval.BaseURL = v
	}
}

// Validate checks invariants that would otherwise surface as confusing
// runtime failures.
func Validate(cfg *Config) error {
	if cfg.Gateway.Addr == "" {
		return fmt.Errorf("gateway.addr must not be empty")
	}
	if cfg.Gateway.RateLimit.Enabled && cfg.Gateway.RateLimit.RequestsPerMin <= 0 {
		return fmt.Errorf("gateway.rate_limit.requests_per_min must be positive")
	}
	if cfg.Cache.Enabled && cfg.Cache.RedisURL == "" {
		return fmt.Errorf("cache.enabled requires cache.redis_url")
	}
	if cfg.Plugins.Email.MaxSendsPerHour < 0 {
		return fmt.Errorf("plugins.email.max_sends_per_hour must not be negative")
	}
	return nil
}
