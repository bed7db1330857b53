// Package resilience provides named circuit breakers shared across all
// call sites for one external dependency. Breakers are created on first
// lookup and live for the process lifetime.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"learnloop/internal/domain"
)

// Default breaker settings.
const (
	defaultFailureThreshold uint32        = 5
	defaultSuccessThreshold uint32        = 2
	defaultResetTimeout     time.Duration = 30 * time.Second
	defaultCallTimeout      time.Duration = 60 * time.Second
)

// Options configure one breaker.
type Options struct {
	// FailureThreshold is the number of consecutive failures before the
	// circuit opens.
	FailureThreshold uint32
	// SuccessThreshold is the number of consecutive half-open successes
	// required to close the circuit again.
	SuccessThreshold uint32
	// ResetTimeout is how long the circuit stays open before probing.
	ResetTimeout time.Duration
	// CallTimeout is advisory: the breaker does not bound call latency
	// itself. Callers wrapping network operations derive their own
	// context deadline from it.
	CallTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.FailureThreshold == 0 {
		o.FailureThreshold = defaultFailureThreshold
	}
	if o.SuccessThreshold == 0 {
		o.SuccessThreshold = defaultSuccessThreshold
	}
	if o.ResetTimeout == 0 {
		o.ResetTimeout = defaultResetTimeout
	}
	if o.CallTimeout == 0 {
		o.CallTimeout = defaultCallTimeout
	}
	return o
}

// Breaker guards calls to one named dependency. When the dependency fails
// repeatedly the circuit opens and subsequent calls fail fast without
// reaching it, preventing retry storms.
type Breaker struct {
	name   string
	opts   Options
	logger *slog.Logger

	mu sync.RWMutex
	cb *gobreaker.CircuitBreaker[any]
}

func newBreaker(name string, opts Options, logger *slog.Logger) *Breaker {
	b := &Breaker{
		name:   name,
		opts:   opts.withDefaults(),
		logger: logger,
	}
	b.cb = b.newStateMachine()
	return b
}

func (b *Breaker) newStateMachine() *gobreaker.CircuitBreaker[any] {
	opts := b.opts
	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        b.name,
		MaxRequests: opts.SuccessThreshold,
		Timeout:     opts.ResetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	})
}

// Execute runs fn through the breaker. When the circuit is open the call
// is rejected immediately with domain.ErrCircuitOpen and fn is never
// invoked. No timeout is imposed here: fn receives ctx unchanged and is
// responsible for bounding its own latency (see Options.CallTimeout).
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) (any, error)) (any, error) {
	b.mu.RLock()
	cb := b.cb
	b.mu.RUnlock()

	res, err := cb.Execute(func() (any, error) {
		return fn(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("breaker %q: %w", b.name, domain.ErrCircuitOpen)
		}
		return nil, err
	}
	return res, nil
}

// Name returns the dependency name this breaker guards.
func (b *Breaker) Name() string { return b.name }

// CallTimeout returns the advisory per-call timeout for this dependency.
func (b *Breaker) CallTimeout() time.Duration { return b.opts.CallTimeout }

// State returns the current circuit state.
func (b *Breaker) State() gobreaker.State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cb.State()
}

// Counts returns the current failure/success counts.
func (b *Breaker) Counts() gobreaker.Counts {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cb.Counts()
}

// Reset unconditionally returns the breaker to closed with zeroed counts
// by installing a fresh state machine. Operational escape hatch; in-flight
// calls against the old state machine complete against it.
func (b *Breaker) Reset() {
	b.mu.Lock()
	b.cb = b.newStateMachine()
	b.mu.Unlock()
	b.logger.Info("circuit breaker reset", "breaker", b.name)
}

// Registry holds one breaker per named dependency. Breakers are created
// on first lookup and never expire, so state is shared across every call
// site addressing the same dependency.
type Registry struct {
	defaults Options
	logger   *slog.Logger

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewRegistry creates a breaker registry. opts supply the defaults for
// breakers created through Get; zero fields fall back to package defaults.
func NewRegistry(opts Options, logger *slog.Logger) *Registry {
	return &Registry{
		defaults: opts.withDefaults(),
		logger:   logger,
		breakers: make(map[string]*Breaker),
	}
}

// Get returns the breaker for name, creating it on first lookup. The
// optional opts apply only at creation time; an existing breaker keeps
// its original configuration.
func (r *Registry) Get(name string, opts ...Options) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[name]; ok {
		return b
	}

	o := r.defaults
	if len(opts) > 0 {
		o = opts[0].withDefaults()
	}
	b := newBreaker(name, o, r.logger)
	r.breakers[name] = b
	return b
}

// Names returns the names of all breakers created so far.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.breakers))
	for name := range r.breakers {
		names = append(names, name)
	}
	return names
}
