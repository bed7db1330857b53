// Package action implements the action dispatch plugin. Actions are
// outward-facing side effects raised by agents, such as notifying course
// staff. The real backend posts to Slack; the mock records and succeeds.
package action

import (
	"context"
	"errors"

	"learnloop/internal/domain"
)

// PluginName is the registry name for the action dispatcher.
const PluginName = "action"

// Known action kinds.
const (
	KindNotify   = "notify"
	KindEscalate = "escalate"
)

// Action is one side effect to perform.
type Action struct {
	Kind    string `json:"kind"`
	Target  string `json:"target,omitempty"` // channel override
	Message string `json:"message"`
}

// Receipt acknowledges a dispatched action.
type Receipt struct {
	ID     string `json:"id"`
	Mocked bool   `json:"mocked"`
}

// Service is the action dispatch capability interface.
type Service interface {
	domain.Plugin
	Dispatch(ctx context.Context, act *Action) (*Receipt, error)
}

var errEmptyMessage = errors.New("action has no message")

func validate(act *Action) error {
	if act == nil || act.Message == "" {
		return errEmptyMessage
	}
	switch act.Kind {
	case KindNotify, KindEscalate:
		return nil
	default:
		return errors.New("unknown action kind: " + act.Kind)
	}
}
