// Package llm implements the chat completion plugin: a deterministic
// mock and a client for OpenAI-compatible chat APIs with response
// memoization and circuit protection.
package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"learnloop/internal/domain"
)

// PluginName is the registry name for the chat provider.
const PluginName = "llm"

// Roles in a chat transcript.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn in a conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a chat completion request. Model is optional; the provider
// falls back to its configured default.
type Request struct {
	Model       string        `json:"model,omitempty"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
}

// Response is a chat completion. Cached marks a memoized replay.
type Response struct {
	Content string `json:"content"`
	Model   string `json:"model"`
	Mocked  bool   `json:"mocked"`
	Cached  bool   `json:"cached"`
}

// Service is the chat completion capability interface.
type Service interface {
	domain.Plugin
	Complete(ctx context.Context, req *Request) (*Response, error)
}

var errEmptyTranscript = errors.New("request has no messages")

// cacheKey derives a stable memoization key from the full request.
// Identical transcripts against the same model hit the same entry.
func cacheKey(model string, req *Request) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x1f%.2f\x1f", model, req.Temperature)
	for _, m := range req.Messages {
		fmt.Fprintf(h, "%s\x1e%s\x1f", m.Role, m.Content)
	}
	return "llm:" + hex.EncodeToString(h.Sum(nil))
}

// lastUserContent returns the content of the last user turn, for mock
// echoes and log summaries.
func lastUserContent(req *Request) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == RoleUser {
			return req.Messages[i].Content
		}
	}
	return ""
}
