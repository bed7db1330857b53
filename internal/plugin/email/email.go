// Package email implements the mail provider plugin: a deterministic
// mock and a real JSON HTTP mail API client with quota enforcement.
package email

import (
	"context"
	"errors"
	"strings"

	"learnloop/internal/domain"
)

// PluginName is the registry name for the mail provider.
const PluginName = "email"

// Message is an outbound email.
type Message struct {
	To      []string `json:"to"`
	From    string   `json:"from,omitempty"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
}

// Receipt is the provider's acknowledgement of a send or draft.
type Receipt struct {
	MessageID string `json:"message_id"`
	Mocked    bool   `json:"mocked"`
}

// Service is the mail capability interface. Send delivers a message;
// Draft stores it with the provider without delivering.
type Service interface {
	domain.Plugin
	Send(ctx context.Context, msg *Message) (*Receipt, error)
	Draft(ctx context.Context, msg *Message) (*Receipt, error)
}

var errNoRecipients = errors.New("message has no recipients")

func validate(msg *Message) error {
	if msg == nil || len(msg.To) == 0 {
		return errNoRecipients
	}
	for _, to := range msg.To {
		if !strings.Contains(to, "@") {
			return errors.New("invalid recipient address: " + to)
		}
	}
	return nil
}
