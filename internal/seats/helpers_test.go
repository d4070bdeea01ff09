package seats

import (
	"context"
	"sync"
	"testing"
	"time"

	"seatkeeper/internal/shared/constants"
	"seatkeeper/internal/store"
	"seatkeeper/pkg/logger"

	"github.com/stretchr/testify/require"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2025, 3, 1, 19, 0, 0, 0, time.UTC)}
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

// fault describes an injected store failure. With passThrough the
// operation is applied before the error is returned.
type fault struct {
	err         error
	passThrough bool
	remaining   int // 0 means every call fails
}

// faultyStore wraps a Store and fails selected operations
type faultyStore struct {
	store.Store

	mu     sync.Mutex
	faults map[string]*fault
	calls  []string

	// onAcquire runs after a successful SetIfAbsent
	onAcquire func()
	// onSwap runs once, before the next HashCompareAndSwap reaches the store
	onSwap func()
}

func newFaultyStore(inner store.Store) *faultyStore {
	return &faultyStore{Store: inner, faults: map[string]*fault{}}
}

func (f *faultyStore) failOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults[op] = &fault{err: err}
}

func (f *faultyStore) failOnceOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults[op] = &fault{err: err, remaining: 1}
}

func (f *faultyStore) failAfterWrite(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults[op] = &fault{err: err, passThrough: true}
}

func (f *faultyStore) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// enter records the call and returns the active fault, if any
func (f *faultyStore) enter(op string) *fault {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	ft, ok := f.faults[op]
	if !ok {
		return nil
	}
	if ft.remaining > 0 {
		ft.remaining--
		if ft.remaining == 0 {
			delete(f.faults, op)
		}
	}
	return ft
}

func (f *faultyStore) HashGet(ctx context.Context, key, field string) (string, bool, error) {
	if ft := f.enter("HashGet"); ft != nil {
		return "", false, ft.err
	}
	return f.Store.HashGet(ctx, key, field)
}

func (f *faultyStore) HashPut(ctx context.Context, key, field, value string) error {
	if ft := f.enter("HashPut"); ft != nil {
		if ft.passThrough {
			_ = f.Store.HashPut(ctx, key, field, value)
		}
		return ft.err
	}
	return f.Store.HashPut(ctx, key, field, value)
}

func (f *faultyStore) HashPutAll(ctx context.Context, key string, values map[string]string) error {
	if ft := f.enter("HashPutAll"); ft != nil {
		return ft.err
	}
	return f.Store.HashPutAll(ctx, key, values)
}

func (f *faultyStore) HashEntries(ctx context.Context, key string) (map[string]string, error) {
	if ft := f.enter("HashEntries"); ft != nil {
		return nil, ft.err
	}
	return f.Store.HashEntries(ctx, key)
}

func (f *faultyStore) HashCompareAndSwap(ctx context.Context, key, field, old, value string) (bool, error) {
	if ft := f.enter("HashCompareAndSwap"); ft != nil {
		return false, ft.err
	}
	f.mu.Lock()
	hook := f.onSwap
	f.onSwap = nil
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return f.Store.HashCompareAndSwap(ctx, key, field, old, value)
}

func (f *faultyStore) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if ft := f.enter("SetIfAbsent"); ft != nil {
		if ft.passThrough {
			_, _ = f.Store.SetIfAbsent(ctx, key, value, ttl)
		}
		return false, ft.err
	}
	ok, err := f.Store.SetIfAbsent(ctx, key, value, ttl)
	if ok && f.onAcquire != nil {
		f.onAcquire()
	}
	return ok, err
}

func (f *faultyStore) Delete(ctx context.Context, key string) error {
	if ft := f.enter("Delete"); ft != nil {
		return ft.err
	}
	return f.Store.Delete(ctx, key)
}

func (f *faultyStore) DeleteIfEquals(ctx context.Context, key, value string) (bool, error) {
	if ft := f.enter("DeleteIfEquals"); ft != nil {
		return false, ft.err
	}
	return f.Store.DeleteIfEquals(ctx, key, value)
}

// recordingRecorder collects transitions in memory
type recordingRecorder struct {
	mu          sync.Mutex
	transitions []Transition
	err         error
}

func (r *recordingRecorder) RecordTransition(_ context.Context, t Transition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, t)
	return r.err
}

func (r *recordingRecorder) All() []Transition {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Transition(nil), r.transitions...)
}

type testEngine struct {
	clock    *manualClock
	mem      *store.MemoryStore
	store    *faultyStore
	repo     Repository
	recorder *recordingRecorder
	opts     Options
	svc      Service
}

func newTestEngine(t *testing.T, mutate ...func(*Options)) *testEngine {
	t.Helper()

	clock := newManualClock()
	mem := store.NewMemoryStore(store.WithClock(clock.Now))
	fs := newFaultyStore(mem)
	repo := NewRepository(fs)
	rec := &recordingRecorder{}

	opts := DefaultOptions()
	opts.Now = clock.Now
	opts.Logger = logger.Discard()
	opts.Recorder = rec
	for _, m := range mutate {
		m(&opts)
	}

	return &testEngine{
		clock:    clock,
		mem:      mem,
		store:    fs,
		repo:     repo,
		recorder: rec,
		opts:     opts,
		svc:      NewService(repo, opts),
	}
}

func (e *testEngine) register(t *testing.T, productID int64, infos ...SeatInfo) {
	t.Helper()
	require.NoError(t, e.svc.RegisterSeats(context.Background(), productID, infos))
}

func (e *testEngine) status(t *testing.T, productID int64, seatID string) SeatStatus {
	t.Helper()
	rec, err := e.repo.GetSeat(context.Background(), productID, seatID)
	require.NoError(t, err)
	return rec.Status
}

func (e *testEngine) marker(t *testing.T, productID int64, seatID string) (string, bool) {
	t.Helper()
	holder, ok, err := e.mem.Get(context.Background(), constants.BuildLockKey(productID, seatID))
	require.NoError(t, err)
	return holder, ok
}

func (e *testEngine) putRaw(t *testing.T, productID int64, seatID, raw string) {
	t.Helper()
	require.NoError(t, e.mem.HashPut(context.Background(), constants.BuildSeatsKey(productID), seatID, raw))
}

func vipSeat() SeatInfo {
	return SeatInfo{Grade: "VIP", Section: "A", Row: "1", SeatNumber: 15, Price: 150000}
}
