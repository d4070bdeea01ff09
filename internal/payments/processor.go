package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"seatkeeper/internal/seats"
	"seatkeeper/internal/store"
	"seatkeeper/pkg/logger"
)

// SeatReconciler applies a completion event to seat state
type SeatReconciler interface {
	OnCompletion(ctx context.Context, ev seats.CompletionEvent) error
}

var (
	// ErrRetriesExhausted means a retryable failure outlived the retry budget
	ErrRetriesExhausted = errors.New("retries exhausted")
	// ErrUnprocessable means the seat engine rejected the event for good
	ErrUnprocessable = errors.New("unprocessable payment result")
)

// IsPermanent reports failures that redelivery cannot fix. Consumers
// dead-letter these and acknowledge the original message.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrInvalidMessage) ||
		errors.Is(err, ErrUnprocessable) ||
		errors.Is(err, ErrRetriesExhausted)
}

type ProcessorConfig struct {
	MaxRetries   int
	RetryBackoff time.Duration
}

// Processor is the transport-independent part of the ingress: decode,
// validate, and apply with bounded retries on store failures.
type Processor struct {
	reconciler SeatReconciler
	config     ProcessorConfig
	log        *logger.Logger
}

func NewProcessor(reconciler SeatReconciler, config ProcessorConfig, log *logger.Logger) *Processor {
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = time.Second
	}
	if log == nil {
		log = logger.GetDefault()
	}
	return &Processor{reconciler: reconciler, config: config, log: log.WithComponent("payments")}
}

// Process returns nil once the message has been applied or recognised as
// stale. A permanent error (see IsPermanent) should be dead-lettered; any
// other error means the message must not be acknowledged.
func (p *Processor) Process(ctx context.Context, body []byte) error {
	msg, err := ParsePaymentResult(body)
	if err != nil {
		return err
	}
	return p.Apply(ctx, msg)
}

func (p *Processor) Apply(ctx context.Context, msg *PaymentResultMessage) error {
	ev := msg.ToCompletionEvent()

	err := p.executeWithRetry(ctx, ev)
	if err != nil {
		return err
	}

	p.log.InfoWithContext(ctx, "Payment result applied", map[string]interface{}{
		"order_id":   msg.OrderID,
		"product_id": msg.ProductID,
		"seat_id":    msg.SeatID,
		"success":    msg.Success,
	})
	return nil
}

func (p *Processor) executeWithRetry(ctx context.Context, ev seats.CompletionEvent) error {
	maxRetries := p.config.MaxRetries
	backoff := p.config.RetryBackoff

	for attempt := 0; ; attempt++ {
		err := p.reconciler.OnCompletion(ctx, ev)
		if err == nil {
			if attempt > 0 {
				p.log.InfoWithContext(ctx, "Payment result applied after retries", map[string]interface{}{
					"order_id": ev.OrderID,
					"retries":  attempt,
				})
			}
			return nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !store.IsRetryable(err) {
			return fmt.Errorf("%w: order %d: %w", ErrUnprocessable, ev.OrderID, err)
		}
		if attempt >= maxRetries {
			return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempt+1, err)
		}

		// Exponential backoff
		delay := backoff * time.Duration(1<<attempt)
		p.log.WarnContext(ctx, "Retrying payment result",
			"order_id", ev.OrderID,
			"attempt", attempt+1,
			"delay", delay.String(),
			"error", err.Error(),
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
