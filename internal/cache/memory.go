package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"learnloop/internal/domain"
)

var _ Cache = (*Memory)(nil)

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Memory is an in-process Cache backed by a mutex-guarded map. A janitor
// goroutine sweeps expired entries so long-lived processes do not leak
// keys that are never read again.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	done    chan struct{}
	closed  bool
}

// NewMemory creates an in-process cache and starts its sweep goroutine.
func NewMemory() *Memory {
	m := &Memory{
		entries: make(map[string]memoryEntry),
		done:    make(chan struct{}),
	}
	go m.janitor()
	return m
}

func (m *Memory) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			m.mu.Lock()
			for k, e := range m.entries {
				if e.expired(now) {
					delete(m.entries, k)
				}
			}
			m.mu.Unlock()
		case <-m.done:
			return
		}
	}
}

func (m *Memory) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return "", domain.ErrCacheClosed
	}
	e, ok := m.entries[key]
	if !ok || e.expired(time.Now()) {
		delete(m.entries, key)
		return "", domain.ErrCacheMiss
	}
	return e.value, nil
}

func (m *Memory) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return domain.ErrCacheClosed
	}
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

func (m *Memory) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, domain.ErrCacheClosed
	}

	now := time.Now()
	e, ok := m.entries[key]
	if !ok || e.expired(now) {
		e = memoryEntry{value: "0"}
		if ttl > 0 {
			e.expiresAt = now.Add(ttl)
		}
	}

	n, err := strconv.ParseInt(e.value, 10, 64)
	if err != nil {
		// Non-numeric value under a counter key; restart the counter.
		n = 0
	}
	n++
	e.value = strconv.FormatInt(n, 10)
	m.entries[key] = e
	return n, nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return domain.ErrCacheClosed
	}
	delete(m.entries, key)
	return nil
}

// Close stops the sweep goroutine and rejects further operations.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	close(m.done)
	m.entries = make(map[string]memoryEntry)
	return nil
}
