package plugin

import (
	"learnloop/internal/infra/config"
)

// Selection rules: which providers run mocked. The system is safe by
// default; a provider only goes live when its credential is present, and
// never by accident.

// UseMockEmail reports whether the email provider should run mocked.
// Real sending requires the mail API key.
func UseMockEmail(cfg config.EmailPluginConfig) bool {
	return cfg.APIKey == ""
}

// UseMockLLM reports whether chat completion should run mocked. This is
// an explicit flag that defaults to true; a configured API key alone
// does not enable live calls.
func UseMockLLM(cfg config.LLMPluginConfig) bool {
	return cfg.Mock
}

// UseMockAction reports whether action dispatch should run mocked. The
// mock is used when no Slack token is configured, or when ForceMock
// overrides a present token (useful in staging with production-shaped
// config).
func UseMockAction(cfg config.ActionPluginConfig) bool {
	return cfg.ForceMock || cfg.SlackToken == ""
}

// UseMockRetrieval reports whether document retrieval should run mocked.
// Explicit flag, defaults to true.
func UseMockRetrieval(cfg config.RetrievalPluginConfig) bool {
	return cfg.Mock
}

// UseMockData reports whether the structured data store should run
// mocked. Real storage requires a configured database.
func UseMockData(cfg config.DataPluginConfig) bool {
	return cfg.DatabaseURL == ""
}
