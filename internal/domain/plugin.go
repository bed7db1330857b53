package domain

import "context"

// PluginMetadata describes a plugin's static identity.
type PluginMetadata struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// PluginConfig is handed to a plugin at initialization. Mock selects the
// simulated execution path; Options carries provider-specific fields
// (api_key, base_url, channel, db_path, ...).
type PluginConfig struct {
	Mock    bool              `json:"mock"              yaml:"mock"`
	Options map[string]string `json:"options,omitempty" yaml:"options,omitempty"`
}

// Option returns a named option or the empty string.
func (c PluginConfig) Option(key string) string {
	if c.Options == nil {
		return ""
	}
	return c.Options[key]
}

// PluginResult mirrors AgentResult for plugin operations, with an extra
// Mocked flag so callers and tests can tell simulated execution apart
// from a real provider response.
type PluginResult struct {
	OK       bool           `json:"ok"`
	Data     any            `json:"data,omitempty"`
	Error    string         `json:"error,omitempty"`
	Mocked   bool           `json:"mocked"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// PluginHealth is one plugin's contribution to the registry-wide health
// fan-out.
type PluginHealth struct {
	Healthy bool   `json:"healthy"`
	Status  string `json:"status"` // "up", "down", "degraded"
	Message string `json:"message,omitempty"`
}

// Plugin is the lifecycle contract every capability provider implements.
// Initialize is called lazily, exactly once, on first retrieval from the
// plugin registry. Shutdown releases provider resources; it must tolerate
// being called on a plugin that was never initialized.
type Plugin interface {
	Metadata() PluginMetadata
	Initialize(ctx context.Context, cfg PluginConfig) error
	Health(ctx context.Context) PluginHealth
	Shutdown(ctx context.Context) error
}
