package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the orchestration core.
var (
	ErrAgentNotFound      = fmt.Errorf("agent not found")
	ErrAgentImplMissing   = fmt.Errorf("in-process agent requires an implementation")
	ErrAgentImplInvalid   = fmt.Errorf("implementation is neither a handler nor a constructor")
	ErrEndpointMissing    = fmt.Errorf("http agent requires config.url")
	ErrUnsupportedRuntime = fmt.Errorf("unsupported runtime")
	ErrInvalidDefinition  = fmt.Errorf("invalid agent definition")

	// Plugin framework errors.
	ErrPluginNotFound = fmt.Errorf("plugin not registered")
	ErrPluginInit     = fmt.Errorf("plugin initialization failed")

	// Resilience errors.
	ErrCircuitOpen = fmt.Errorf("circuit open")
	ErrRateLimited = fmt.Errorf("rate limit exceeded")

	// Cache errors.
	ErrCacheMiss   = fmt.Errorf("cache miss")
	ErrCacheClosed = fmt.Errorf("cache is closed")

	// Configuration errors.
	ErrConfigLoad = fmt.Errorf("failed to load configuration")
)

// DomainError wraps a sentinel error with operation context.
type DomainError struct {
	Op     string // operation name (e.g., "Registry.Register")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsCircuitOpen reports whether err is a circuit-open rejection.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}
