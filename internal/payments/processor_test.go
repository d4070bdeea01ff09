package payments

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"seatkeeper/internal/seats"
	"seatkeeper/internal/store"
	"seatkeeper/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedReconciler returns the queued errors in order, then nil
type scriptedReconciler struct {
	mu     sync.Mutex
	errs   []error
	events []seats.CompletionEvent
}

func (r *scriptedReconciler) OnCompletion(_ context.Context, ev seats.CompletionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	if len(r.errs) == 0 {
		return nil
	}
	err := r.errs[0]
	r.errs = r.errs[1:]
	return err
}

func (r *scriptedReconciler) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func newTestProcessor(r SeatReconciler, maxRetries int) *Processor {
	return NewProcessor(r, ProcessorConfig{MaxRetries: maxRetries, RetryBackoff: time.Millisecond}, logger.Discard())
}

func TestParsePaymentResult(t *testing.T) {
	msg, err := ParsePaymentResult([]byte(`{"orderId":10,"success":true,"paymentId":"pay_9","productId":1,"seatId":"A-1-15"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(10), msg.OrderID)
	assert.True(t, msg.Success)
	require.NotNil(t, msg.PaymentID)
	assert.Equal(t, "pay_9", *msg.PaymentID)
	assert.Nil(t, msg.Reason)
	assert.Equal(t, "1:A-1-15", msg.PartitionKey())

	ev := msg.ToCompletionEvent()
	assert.Equal(t, seats.CompletionEvent{OrderID: 10, Success: true, ProductID: 1, SeatID: "A-1-15", PaymentID: msg.PaymentID}, ev)
}

func TestParsePaymentResult_Invalid(t *testing.T) {
	tests := map[string]string{
		"not json":        `{"orderId":`,
		"missing seat":    `{"orderId":1,"success":true,"productId":1}`,
		"missing product": `{"orderId":1,"success":false,"seatId":"A-1-15"}`,
		"negative order":  `{"orderId":-1,"success":false,"productId":1,"seatId":"A-1-15"}`,
		"wrong types":     `{"orderId":"x","success":"yes","productId":1,"seatId":"A-1-15"}`,
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePaymentResult([]byte(body))
			assert.ErrorIs(t, err, ErrInvalidMessage)
			assert.True(t, IsPermanent(err))
		})
	}
}

func TestProcessor_AppliesMessage(t *testing.T) {
	r := &scriptedReconciler{}
	p := newTestProcessor(r, 3)

	require.NoError(t, p.Process(context.Background(), []byte(`{"orderId":1,"success":false,"reason":"declined","productId":2,"seatId":"B-1-1"}`)))
	require.Equal(t, 1, r.Calls())
	assert.Equal(t, "declined", *r.events[0].Reason)
}

func TestProcessor_RetriesRetryableErrors(t *testing.T) {
	r := &scriptedReconciler{errs: []error{store.ErrUnavailable, store.ErrTimeout}}
	p := newTestProcessor(r, 3)

	require.NoError(t, p.Process(context.Background(), []byte(`{"orderId":1,"success":true,"productId":2,"seatId":"B-1-1"}`)))
	assert.Equal(t, 3, r.Calls())
}

func TestProcessor_RetriesExhausted(t *testing.T) {
	r := &scriptedReconciler{errs: []error{store.ErrUnavailable, store.ErrUnavailable, store.ErrUnavailable}}
	p := newTestProcessor(r, 2)

	err := p.Process(context.Background(), []byte(`{"orderId":1,"success":true,"productId":2,"seatId":"B-1-1"}`))
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.ErrorIs(t, err, store.ErrUnavailable)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, 3, r.Calls())
}

func TestProcessor_NonRetryableErrorIsPermanent(t *testing.T) {
	r := &scriptedReconciler{errs: []error{seats.ErrMalformedRecord}}
	p := newTestProcessor(r, 5)

	err := p.Process(context.Background(), []byte(`{"orderId":1,"success":true,"productId":2,"seatId":"B-1-1"}`))
	assert.ErrorIs(t, err, ErrUnprocessable)
	assert.ErrorIs(t, err, seats.ErrMalformedRecord)
	assert.Equal(t, 1, r.Calls())
}

func TestProcessor_CancelledDuringBackoff(t *testing.T) {
	r := &scriptedReconciler{errs: []error{store.ErrUnavailable}}
	p := NewProcessor(r, ProcessorConfig{MaxRetries: 3, RetryBackoff: time.Hour}, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := p.Process(ctx, []byte(`{"orderId":1,"success":true,"productId":2,"seatId":"B-1-1"}`))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, IsPermanent(err))
}

func TestProcessor_DrivesSeatEngine(t *testing.T) {
	svc := seats.NewService(seats.NewRepository(store.NewMemoryStore()), seats.Options{Logger: logger.Discard(), ReclaimExpired: true})
	ctx := context.Background()
	require.NoError(t, svc.RegisterSeats(ctx, 1, []seats.SeatInfo{{Grade: "VIP", Section: "A", Row: "1", SeatNumber: 15, Price: 150000}}))
	_, err := svc.LockSeat(ctx, 1, "A-1-15", 1)
	require.NoError(t, err)

	p := newTestProcessor(svc, 1)
	body := []byte(`{"orderId":7,"success":true,"paymentId":"pay_1","productId":1,"seatId":"A-1-15"}`)
	require.NoError(t, p.Process(ctx, body))
	// duplicate delivery
	require.NoError(t, p.Process(ctx, body))

	list, err := svc.ListSeatStatuses(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, seats.StatusReserved, list[0].Status)
}
