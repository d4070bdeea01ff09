package store

import (
	"context"
	"errors"
	"time"
)

// Store is the key-value capability the seat engine is built on.
// Implementations must make SetIfAbsent, DeleteIfEquals and
// HashCompareAndSwap atomic across every process sharing the same backend.
type Store interface {
	// Hash operations
	HashGet(ctx context.Context, key, field string) (string, bool, error)
	HashPut(ctx context.Context, key, field, value string) error
	HashPutAll(ctx context.Context, key string, values map[string]string) error
	HashEntries(ctx context.Context, key string) (map[string]string, error)
	// HashCompareAndSwap writes value only while the field still holds old
	HashCompareAndSwap(ctx context.Context, key, field, old, value string) (bool, error)

	// Scalar operations
	Get(ctx context.Context, key string) (string, bool, error)
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
	DeleteIfEquals(ctx context.Context, key, value string) (bool, error)

	// Maintenance
	ScanKeys(ctx context.Context, match string) ([]string, error)
	Ping(ctx context.Context) error
}

// Error definitions
var (
	ErrUnavailable = errors.New("store unavailable")
	ErrTimeout     = errors.New("store timeout")
)

// IsRetryable reports whether err is a transient infrastructure failure
// the caller may retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrTimeout)
}
