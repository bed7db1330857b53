// Package plugin implements the provider framework: a registry of named
// plugins with lazy initialization, hot replacement, health fan-out and
// best-effort shutdown, plus the mock-versus-real selection rules.
package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"learnloop/internal/domain"
)

type entry struct {
	plugin domain.Plugin
	config domain.PluginConfig

	mu          sync.Mutex
	initialized bool
	initErr     error
}

// initialize runs the plugin's Initialize exactly once and memoizes the
// outcome. Concurrent callers block on the same entry lock, so a plugin
// never sees two Initialize calls.
func (e *entry) initialize(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized {
		return e.initErr
	}
	e.initialized = true
	if err := e.plugin.Initialize(ctx, e.config); err != nil {
		e.initErr = fmt.Errorf("%w: %s: %w", domain.ErrPluginInit, e.plugin.Metadata().Name, err)
	}
	return e.initErr
}

// Registry holds named plugins. Plugins register uninitialized and are
// initialized lazily on first Get, so a provider that is configured but
// never used costs nothing at startup.
type Registry struct {
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[string]*entry
}

// NewRegistry creates an empty plugin registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:  logger,
		entries: make(map[string]*entry),
	}
}

// Register stores a plugin under name without initializing it.
// Registering over an existing name overwrites it; the displaced plugin
// is not shut down because callers may still hold it. Use Replace for a
// clean swap.
func (r *Registry) Register(name string, p domain.Plugin, cfg domain.PluginConfig) {
	r.mu.Lock()
	_, existed := r.entries[name]
	r.entries[name] = &entry{plugin: p, config: cfg}
	r.mu.Unlock()

	if existed {
		r.logger.Warn("plugin overwritten", "plugin", name)
	} else {
		r.logger.Info("plugin registered",
			"plugin", name,
			"version", p.Metadata().Version,
			"mock", cfg.Mock,
		)
	}
}

// Get returns the named plugin, initializing it on first access. A
// failed initialization is memoized: subsequent Gets return the same
// error without retrying.
func (r *Registry) Get(ctx context.Context, name string) (domain.Plugin, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("plugin %s: %w", name, domain.ErrPluginNotFound)
	}
	if err := e.initialize(ctx); err != nil {
		return nil, err
	}
	return e.plugin, nil
}

// Replace swaps the named plugin for a new implementation. The old
// plugin is shut down first; if it had been initialized, the replacement
// is initialized eagerly so callers holding the name see no gap.
func (r *Registry) Replace(ctx context.Context, name string, p domain.Plugin, cfg domain.PluginConfig) error {
	r.mu.Lock()
	old, ok := r.entries[name]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("plugin %s: %w", name, domain.ErrPluginNotFound)
	}
	next := &entry{plugin: p, config: cfg}
	r.entries[name] = next
	r.mu.Unlock()

	old.mu.Lock()
	wasInitialized := old.initialized && old.initErr == nil
	old.mu.Unlock()

	if wasInitialized {
		if err := old.plugin.Shutdown(ctx); err != nil {
			r.logger.Warn("shutdown replaced plugin", "plugin", name, "error", err)
		}
	}

	if wasInitialized {
		if err := next.initialize(ctx); err != nil {
			return err
		}
	}

	r.logger.Info("plugin replaced", "plugin", name, "version", p.Metadata().Version, "mock", cfg.Mock)
	return nil
}

// Names returns the registered plugin names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	return names
}

// HealthStatus probes every initialized plugin and returns a report per
// name. Uninitialized plugins report as not yet started rather than
// being initialized as a side effect. A panicking health probe marks the
// plugin down instead of propagating.
func (r *Registry) HealthStatus(ctx context.Context) map[string]domain.PluginHealth {
	r.mu.RLock()
	snapshot := make(map[string]*entry, len(r.entries))
	for name, e := range r.entries {
		snapshot[name] = e
	}
	r.mu.RUnlock()

	report := make(map[string]domain.PluginHealth, len(snapshot))
	for name, e := range snapshot {
		report[name] = r.probe(ctx, name, e)
	}
	return report
}

func (r *Registry) probe(ctx context.Context, name string, e *entry) (health domain.PluginHealth) {
	e.mu.Lock()
	initialized, initErr := e.initialized, e.initErr
	e.mu.Unlock()

	if !initialized {
		return domain.PluginHealth{Healthy: false, Status: "uninitialized"}
	}
	if initErr != nil {
		return domain.PluginHealth{Healthy: false, Status: "down", Message: initErr.Error()}
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("plugin health probe panic", "plugin", name, "panic", rec)
			health = domain.PluginHealth{
				Healthy: false,
				Status:  "down",
				Message: fmt.Sprintf("health probe panicked: %v", rec),
			}
		}
	}()

	return e.plugin.Health(ctx)
}

// Shutdown stops every initialized plugin in parallel. Failures are
// logged and collected but never abort the remaining shutdowns.
func (r *Registry) Shutdown(ctx context.Context) []error {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*entry)
	r.mu.Unlock()

	var (
		wg    sync.WaitGroup
		errMu sync.Mutex
		errs  []error
	)
	for name, e := range entries {
		e.mu.Lock()
		shouldStop := e.initialized && e.initErr == nil
		e.mu.Unlock()
		if !shouldStop {
			continue
		}

		wg.Add(1)
		go func(name string, p domain.Plugin) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					r.logger.Error("plugin shutdown panic", "plugin", name, "panic", rec)
				}
			}()
			if err := p.Shutdown(ctx); err != nil {
				r.logger.Warn("plugin shutdown", "plugin", name, "error", err)
				errMu.Lock()
				errs = append(errs, fmt.Errorf("shutdown %s: %w", name, err))
				errMu.Unlock()
			}
		}(name, e.plugin)
	}
	wg.Wait()
	return errs
}

// As resolves the named plugin and asserts its concrete capability
// interface, combining lookup, lazy init and the type check.
func As[T any](ctx context.Context, r *Registry, name string) (T, error) {
	var zero T
	p, err := r.Get(ctx, name)
	if err != nil {
		return zero, err
	}
	typed, ok := p.(T)
	if !ok {
		return zero, fmt.Errorf("plugin %s does not implement %T", name, zero)
	}
	return typed, nil
}
