package payments

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"seatkeeper/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const maxReconnectBackoff = 30 * time.Second

type RabbitConsumerConfig struct {
	URL      string
	Queue    string
	Prefetch int
}

// RabbitPaymentConsumer reads payment results from a durable RabbitMQ queue.
// Unprocessable deliveries are rejected without requeue so a broker-side
// dead letter exchange, if configured, receives them.
type RabbitPaymentConsumer struct {
	config    RabbitConsumerConfig
	processor *Processor
	log       *logger.Logger

	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	connected bool
}

func NewRabbitPaymentConsumer(config RabbitConsumerConfig, processor *Processor, log *logger.Logger) *RabbitPaymentConsumer {
	if config.Prefetch <= 0 {
		config.Prefetch = 50
	}
	if log == nil {
		log = logger.GetDefault()
	}
	return &RabbitPaymentConsumer{
		config:    config,
		processor: processor,
		log:       log.WithComponent("payments-amqp"),
	}
}

// Start runs the reconnect loop in the background
func (rc *RabbitPaymentConsumer) Start(ctx context.Context) error {
	if rc.config.URL == "" {
		return fmt.Errorf("rabbitmq url is required")
	}

	ctx, cancel := context.WithCancel(ctx)
	rc.mu.Lock()
	rc.cancel = cancel
	rc.done = make(chan struct{})
	rc.mu.Unlock()

	go func() {
		defer close(rc.done)
		rc.run(ctx)
	}()
	return nil
}

func (rc *RabbitPaymentConsumer) run(ctx context.Context) {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(rc.config.URL)
		if err != nil {
			rc.log.Warn("Failed to dial RabbitMQ", "error", err.Error(), "retry_in", backoff.String())
			if !sleepCtx(ctx, backoff) {
				return
			}
			if backoff < maxReconnectBackoff {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = rc.consumeLoop(ctx, conn)
		_ = conn.Close()
		rc.setConnected(false)

		if ctx.Err() != nil {
			return
		}
		rc.log.Warn("RabbitMQ consume loop ended, reconnecting", "error", err.Error())
		if !sleepCtx(ctx, 2*time.Second) {
			return
		}
	}
}

func (rc *RabbitPaymentConsumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(rc.config.Prefetch, 0, false); err != nil {
		rc.log.Warn("Failed to set RabbitMQ QoS", "error", err.Error())
	}

	if _, err := ch.QueueDeclare(rc.config.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(rc.config.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	rc.setConnected(true)
	rc.log.Info("Consuming payment results from RabbitMQ", "queue", rc.config.Queue)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			rc.handleDelivery(ctx, d)
		}
	}
}

// handleDelivery applies one delivery and settles it with the broker
func (rc *RabbitPaymentConsumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	err := rc.processor.Process(ctx, d.Body)
	switch {
	case err == nil:
		if ackErr := d.Ack(false); ackErr != nil {
			rc.log.Error("Failed to ack payment result", "error", ackErr.Error())
		}
	case IsPermanent(err):
		rc.log.Error("Rejecting unprocessable payment result",
			"delivery_tag", d.DeliveryTag,
			"error", err.Error(),
		)
		_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
	default:
		// interrupted by shutdown; hand it back to the queue
		_ = d.Nack(false, true)
	}
}

func (rc *RabbitPaymentConsumer) setConnected(v bool) {
	rc.mu.Lock()
	rc.connected = v
	rc.mu.Unlock()
}

func (rc *RabbitPaymentConsumer) Stop() error {
	rc.mu.Lock()
	cancel, done := rc.cancel, rc.done
	rc.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	rc.log.Info("RabbitMQ payment consumer stopped")
	return nil
}

func (rc *RabbitPaymentConsumer) HealthCheck(ctx context.Context) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if !rc.connected {
		return fmt.Errorf("rabbitmq consumer is not connected")
	}
	return nil
}

// sleepCtx waits for d and reports false if ctx ended first
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
