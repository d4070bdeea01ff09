package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestMemoryStore_SetIfAbsentExpires(t *testing.T) {
	clock := &manualClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	s := NewMemoryStore(WithClock(clock.Now))
	ctx := context.Background()

	ok, err := s.SetIfAbsent(ctx, "lock", "1", 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.SetIfAbsent(ctx, "lock", "2", 5*time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ttl, ok := s.TTL("lock")
	require.True(t, ok)
	assert.Equal(t, 5*time.Minute, ttl)

	clock.Advance(5 * time.Minute)

	_, found, err := s.Get(ctx, "lock")
	require.NoError(t, err)
	assert.False(t, found)

	ok, err = s.SetIfAbsent(ctx, "lock", "2", 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStore_HashRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.HashPutAll(ctx, "h", map[string]string{"a": "1", "b": "2"}))
	require.NoError(t, s.HashPut(ctx, "h", "a", "3"))

	val, ok, err := s.HashGet(ctx, "h", "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "3", val)

	entries, err := s.HashEntries(ctx, "h")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "3", "b": "2"}, entries)

	entries, err = s.HashEntries(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMemoryStore_DeleteIfEquals(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.SetIfAbsent(ctx, "lock", "1", time.Minute)
	require.NoError(t, err)

	deleted, err := s.DeleteIfEquals(ctx, "lock", "2")
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = s.DeleteIfEquals(ctx, "lock", "1")
	require.NoError(t, err)
	assert.True(t, deleted)

	_, found, _ := s.Get(ctx, "lock")
	assert.False(t, found)

	// deleting an absent key is a no-op
	require.NoError(t, s.Delete(ctx, "lock"))
}

func TestMemoryStore_ScanKeys(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.HashPut(ctx, "product:2:seats", "A-1-1", "{}"))
	require.NoError(t, s.HashPut(ctx, "product:1:seats", "A-1-1", "{}"))
	_, err := s.SetIfAbsent(ctx, "lock:product:1:A-1-1", "1", time.Minute)
	require.NoError(t, err)

	keys, err := s.ScanKeys(ctx, "product:*:seats")
	require.NoError(t, err)
	assert.Equal(t, []string{"product:1:seats", "product:2:seats"}, keys)
}

func TestMemoryStore_ConcurrentSetIfAbsentHasOneWinner(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	const racers = 64
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.SetIfAbsent(ctx, "lock", "x", time.Minute)
			if err == nil && ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestMemoryStore_HashCompareAndSwap(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.HashPut(ctx, "seats", "A-1-15", "locked"))

	swapped, err := s.HashCompareAndSwap(ctx, "seats", "A-1-15", "available", "reserved")
	require.NoError(t, err)
	assert.False(t, swapped)

	swapped, err = s.HashCompareAndSwap(ctx, "seats", "A-1-15", "locked", "available")
	require.NoError(t, err)
	assert.True(t, swapped)

	swapped, err = s.HashCompareAndSwap(ctx, "seats", "B-1-1", "", "available")
	require.NoError(t, err)
	assert.False(t, swapped)

	val, _, err := s.HashGet(ctx, "seats", "A-1-15")
	require.NoError(t, err)
	assert.Equal(t, "available", val)
	_, found, err := s.HashGet(ctx, "seats", "B-1-1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryStore_ClassifiesContextErrors(t *testing.T) {
	s := NewMemoryStore()

	expired, cancelExpired := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancelExpired()
	_, err := s.SetIfAbsent(expired, "lock", "7", time.Minute)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, IsRetryable(err))

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = s.HashGet(cancelled, "seats", "A-1-15")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, IsRetryable(err))

	assert.ErrorIs(t, s.Ping(expired), ErrTimeout)
	assert.ErrorIs(t, s.Ping(cancelled), ErrUnavailable)
	assert.NoError(t, s.Ping(context.Background()))
}
