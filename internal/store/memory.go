package store

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// MemoryStore is an in-process Store. Expiry is evaluated lazily against
// the injected clock, which lets tests move time forward deterministically.
type MemoryStore struct {
	mu     sync.Mutex
	now    func() time.Time
	values map[string]memoryEntry
	hashes map[string]map[string]string
}

// MemoryOption configures a MemoryStore
type MemoryOption func(*MemoryStore)

// WithClock replaces time.Now as the expiry clock
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryStore) {
		m.now = now
	}
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		now:    time.Now,
		values: make(map[string]memoryEntry),
		hashes: make(map[string]map[string]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryStore) HashGet(ctx context.Context, key, field string) (string, bool, error) {
	if err := contextErr(ctx, "hget", key); err != nil {
		return "", false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	val, ok := m.hashes[key][field]
	return val, ok, nil
}

func (m *MemoryStore) HashPut(ctx context.Context, key, field, value string) error {
	return m.HashPutAll(ctx, key, map[string]string{field: value})
}

func (m *MemoryStore) HashPutAll(ctx context.Context, key string, values map[string]string) error {
	if err := contextErr(ctx, "hset", key); err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.hashes[key]
	if !ok {
		h = make(map[string]string, len(values))
		m.hashes[key] = h
	}
	for field, value := range values {
		h[field] = value
	}
	return nil
}

func (m *MemoryStore) HashEntries(ctx context.Context, key string) (map[string]string, error) {
	if err := contextErr(ctx, "hgetall", key); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]string, len(m.hashes[key]))
	for field, value := range m.hashes[key] {
		out[field] = value
	}
	return out, nil
}

func (m *MemoryStore) HashCompareAndSwap(ctx context.Context, key, field, old, value string) (bool, error) {
	if err := contextErr(ctx, "eval", key); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.hashes[key][field]
	if !ok || cur != old {
		return false, nil
	}
	m.hashes[key][field] = value
	return true, nil
}

func (m *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := contextErr(ctx, "get", key); err != nil {
		return "", false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.liveEntry(key)
	return e.value, ok, nil
}

func (m *MemoryStore) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if err := contextErr(ctx, "setnx", key); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.liveEntry(key); ok {
		return false, nil
	}
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.values[key] = e
	return true, nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := contextErr(ctx, "del", key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	delete(m.hashes, key)
	return nil
}

func (m *MemoryStore) DeleteIfEquals(ctx context.Context, key, value string) (bool, error) {
	if err := contextErr(ctx, "eval", key); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.liveEntry(key)
	if !ok || e.value != value {
		return false, nil
	}
	delete(m.values, key)
	return true, nil
}

// ScanKeys matches with path.Match, which covers the glob subset used
// by callers (`*` and `?`).
func (m *MemoryStore) ScanKeys(ctx context.Context, match string) ([]string, error) {
	if err := contextErr(ctx, "scan", match); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var keys []string
	for key := range m.values {
		if _, live := m.liveEntry(key); !live {
			continue
		}
		if ok, _ := path.Match(match, key); ok {
			keys = append(keys, key)
		}
	}
	for key := range m.hashes {
		if ok, _ := path.Match(match, key); ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return contextErr(ctx, "ping", "")
}

// TTL returns the remaining lifetime of a scalar key. ok is false when the
// key is absent or has no expiry.
func (m *MemoryStore) TTL(key string) (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.liveEntry(key)
	if !ok || e.expiresAt.IsZero() {
		return 0, false
	}
	return e.expiresAt.Sub(m.now()), true
}

// contextErr classifies a done context the way classify treats client
// errors, so callers see the same retryable kinds from either backend.
func contextErr(ctx context.Context, op, key string) error {
	err := ctx.Err()
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s %s: %w", ErrTimeout, op, key, err)
	}
	return fmt.Errorf("%w: %s %s: %w", ErrUnavailable, op, key, err)
}

// liveEntry must be called with mu held. Expired entries are evicted.
func (m *MemoryStore) liveEntry(key string) (memoryEntry, bool) {
	e, ok := m.values[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.values, key)
		return memoryEntry{}, false
	}
	return e, true
}
