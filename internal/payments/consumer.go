package payments

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"seatkeeper/pkg/logger"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

// PaymentConsumer feeds payment results from a broker into the Processor
type PaymentConsumer interface {
	Start(ctx context.Context) error
	Stop() error
	HealthCheck(ctx context.Context) error
}

// DeadLetterPublisher receives messages that can never be applied
type DeadLetterPublisher interface {
	PublishDeadLetter(ctx context.Context, original *sarama.ConsumerMessage, cause error) error
}

type ConsumerConfig struct {
	Brokers           []string
	GroupID           string
	Topics            []string
	Workers           int
	SessionTimeoutMs  int
	HeartbeatMs       int
	RetryBackoffMs    int
	MaxProcessingTime time.Duration
	OffsetOldest      bool
}

func DefaultConsumerConfig() *ConsumerConfig {
	return &ConsumerConfig{
		Brokers:           []string{"kafka:9092"},
		GroupID:           "seat-group",
		Topics:            []string{"payment-completed"},
		Workers:           1,
		SessionTimeoutMs:  30000,
		HeartbeatMs:       3000,
		RetryBackoffMs:    100,
		MaxProcessingTime: time.Minute,
		OffsetOldest:      false,
	}
}

type KafkaPaymentConsumer struct {
	consumerGroup sarama.ConsumerGroup
	config        *ConsumerConfig
	processor     *Processor
	deadLetters   DeadLetterPublisher
	log           *logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	active bool
}

func NewKafkaPaymentConsumer(config *ConsumerConfig, processor *Processor, deadLetters DeadLetterPublisher, log *logger.Logger) (*KafkaPaymentConsumer, error) {
	saramaConfig := sarama.NewConfig()

	saramaConfig.ClientID = "seatkeeper-" + uuid.NewString()[:8]
	saramaConfig.Consumer.Group.Session.Timeout = time.Duration(config.SessionTimeoutMs) * time.Millisecond
	saramaConfig.Consumer.Group.Heartbeat.Interval = time.Duration(config.HeartbeatMs) * time.Millisecond
	saramaConfig.Consumer.Retry.Backoff = time.Duration(config.RetryBackoffMs) * time.Millisecond
	saramaConfig.Consumer.MaxProcessingTime = config.MaxProcessingTime
	saramaConfig.Consumer.Return.Errors = true

	if config.OffsetOldest {
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	}

	// Offsets are marked only after a message is applied or dead-lettered
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = true
	saramaConfig.Consumer.Offsets.AutoCommit.Interval = 1 * time.Second

	consumerGroup, err := sarama.NewConsumerGroup(config.Brokers, config.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return newKafkaPaymentConsumer(consumerGroup, config, processor, deadLetters, log), nil
}

func newKafkaPaymentConsumer(group sarama.ConsumerGroup, config *ConsumerConfig, processor *Processor, deadLetters DeadLetterPublisher, log *logger.Logger) *KafkaPaymentConsumer {
	if log == nil {
		log = logger.GetDefault()
	}
	return &KafkaPaymentConsumer{
		consumerGroup: group,
		config:        config,
		processor:     processor,
		deadLetters:   deadLetters,
		log:           log.WithComponent("payments-consumer"),
	}
}

func (kc *KafkaPaymentConsumer) Start(ctx context.Context) error {
	numWorkers := kc.config.Workers
	if numWorkers < 1 {
		numWorkers = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	kc.mu.Lock()
	kc.cancel = cancel
	kc.active = true
	kc.mu.Unlock()

	kc.log.Info("Starting payment consumer workers",
		"workers", numWorkers,
		"topics", kc.config.Topics,
		"group", kc.config.GroupID,
	)

	// Start error handler goroutine
	go kc.handleErrors()

	for i := 0; i < numWorkers; i++ {
		kc.wg.Add(1)
		go func(workerID int) {
			defer kc.wg.Done()
			kc.runWorker(ctx, workerID)
		}(i)
	}
	return nil
}

func (kc *KafkaPaymentConsumer) runWorker(ctx context.Context, workerID int) {
	handler := &ConsumerGroupHandler{
		consumer: kc,
		workerID: workerID,
	}

	for {
		select {
		case <-ctx.Done():
			kc.log.Info("Payment consumer worker shutting down", "worker", workerID)
			return
		default:
			err := kc.consumerGroup.Consume(ctx, kc.config.Topics, handler)
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return
			}
			if err != nil {
				kc.log.Error("Error consuming payment results", "worker", workerID, "error", err.Error())
				select {
				case <-time.After(time.Second):
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func (kc *KafkaPaymentConsumer) handleErrors() {
	for err := range kc.consumerGroup.Errors() {
		kc.log.Error("Consumer group error", "error", err.Error())
	}
}

func (kc *KafkaPaymentConsumer) Stop() error {
	kc.mu.Lock()
	if kc.cancel != nil {
		kc.cancel()
	}
	kc.active = false
	kc.mu.Unlock()

	err := kc.consumerGroup.Close()
	kc.wg.Wait()
	if err != nil {
		return fmt.Errorf("failed to close consumer group: %w", err)
	}

	kc.log.Info("Payment consumer stopped")
	return nil
}

func (kc *KafkaPaymentConsumer) HealthCheck(ctx context.Context) error {
	kc.mu.Lock()
	defer kc.mu.Unlock()
	if !kc.active {
		return fmt.Errorf("payment consumer is not running")
	}
	return nil
}

// handleMessage applies one record. It reports whether the offset may be marked.
func (kc *KafkaPaymentConsumer) handleMessage(ctx context.Context, message *sarama.ConsumerMessage) bool {
	err := kc.processor.Process(ctx, message.Value)
	if err == nil {
		return true
	}

	if !IsPermanent(err) {
		// shutting down; the record is redelivered to the next owner
		return false
	}

	if kc.deadLetters == nil {
		kc.log.Error("Dropping unprocessable payment result",
			"topic", message.Topic,
			"partition", message.Partition,
			"offset", message.Offset,
			"error", err.Error(),
		)
		return true
	}

	if dlqErr := kc.deadLetters.PublishDeadLetter(ctx, message, err); dlqErr != nil {
		kc.log.Error("Failed to dead-letter payment result",
			"offset", message.Offset,
			"error", dlqErr.Error(),
			"cause", err.Error(),
		)
		return false
	}
	return true
}

type ConsumerGroupHandler struct {
	consumer *KafkaPaymentConsumer
	workerID int
}

func (h *ConsumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	h.consumer.log.Debug("Consumer group session started", "worker", h.workerID)
	return nil
}

func (h *ConsumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	h.consumer.log.Debug("Consumer group session ended", "worker", h.workerID)
	return nil
}

func (h *ConsumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok || message == nil {
				return nil
			}

			if !h.consumer.handleMessage(session.Context(), message) {
				// Leave the offset unmarked and give the claim back so the
				// record is redelivered rather than skipped
				return nil
			}
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}
