package payments

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"seatkeeper/pkg/logger"

	"github.com/IBM/sarama"
)

// PaymentProducer publishes payment results and dead letters
type PaymentProducer interface {
	PublishResult(ctx context.Context, msg *PaymentResultMessage) error
	PublishDeadLetter(ctx context.Context, original *sarama.ConsumerMessage, cause error) error
	Close() error
}

// KafkaProducerConfig contains configuration for the Kafka payment producer
type KafkaProducerConfig struct {
	Brokers          []string
	ResultTopic      string
	DeadLetterTopic  string
	RetryMax         int
	TimeoutMs        int
	RequiredAcks     sarama.RequiredAcks
	IdempotentWrites bool
	ClientID         string
}

// DefaultKafkaProducerConfig returns a default producer configuration
func DefaultKafkaProducerConfig() *KafkaProducerConfig {
	return &KafkaProducerConfig{
		Brokers:          []string{"kafka:9092"},
		ResultTopic:      "payment-completed",
		DeadLetterTopic:  "payment-completed-dlq",
		RetryMax:         3,
		TimeoutMs:        10000,             // 10 seconds
		RequiredAcks:     sarama.WaitForAll, // Wait for all in-sync replicas
		IdempotentWrites: true,
		ClientID:         "seatkeeper",
	}
}

// NewSaramaProducerConfig translates KafkaProducerConfig into sarama settings
func NewSaramaProducerConfig(config *KafkaProducerConfig) *sarama.Config {
	saramaConfig := sarama.NewConfig()

	saramaConfig.ClientID = config.ClientID
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = config.RequiredAcks
	saramaConfig.Producer.Retry.Max = config.RetryMax
	saramaConfig.Producer.Timeout = time.Duration(config.TimeoutMs) * time.Millisecond
	saramaConfig.Producer.Idempotent = config.IdempotentWrites

	// Enable idempotent producer
	if config.IdempotentWrites {
		saramaConfig.Net.MaxOpenRequests = 1
		saramaConfig.Version = sarama.V2_1_0_0
	}

	// Hash partitioner keeps one seat's events in order
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner
	return saramaConfig
}

// KafkaPaymentProducer handles publishing payment messages to Kafka
type KafkaPaymentProducer struct {
	producer sarama.SyncProducer
	config   *KafkaProducerConfig
	log      *logger.Logger
}

// NewKafkaPaymentProducer dials the brokers and creates a sync producer
func NewKafkaPaymentProducer(config *KafkaProducerConfig, log *logger.Logger) (*KafkaPaymentProducer, error) {
	producer, err := sarama.NewSyncProducer(config.Brokers, NewSaramaProducerConfig(config))
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return NewKafkaPaymentProducerWithClient(producer, config, log), nil
}

// NewKafkaPaymentProducerWithClient wraps an existing sync producer
func NewKafkaPaymentProducerWithClient(producer sarama.SyncProducer, config *KafkaProducerConfig, log *logger.Logger) *KafkaPaymentProducer {
	if log == nil {
		log = logger.GetDefault()
	}
	return &KafkaPaymentProducer{
		producer: producer,
		config:   config,
		log:      log.WithComponent("payments-producer"),
	}
}

// PublishResult publishes one payment outcome
func (kp *KafkaPaymentProducer) PublishResult(ctx context.Context, msg *PaymentResultMessage) error {
	messageBytes, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal payment result: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: kp.config.ResultTopic,
		Key:   sarama.StringEncoder(msg.PartitionKey()),
		Value: sarama.ByteEncoder(messageBytes),
		Headers: []sarama.RecordHeader{
			{Key: []byte("order_id"), Value: []byte(strconv.FormatInt(msg.OrderID, 10))},
			{Key: []byte("success"), Value: []byte(strconv.FormatBool(msg.Success))},
			{Key: []byte("producer"), Value: []byte(kp.config.ClientID)},
		},
	}

	partition, offset, err := kp.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to send payment result to Kafka: %w", err)
	}

	kp.log.DebugContext(ctx, "Payment result published",
		"topic", kp.config.ResultTopic,
		"partition", partition,
		"offset", offset,
		"order_id", msg.OrderID,
	)
	return nil
}

// PublishDeadLetter copies an unprocessable message to the dead letter
// topic along with where it came from and why it failed
func (kp *KafkaPaymentProducer) PublishDeadLetter(ctx context.Context, original *sarama.ConsumerMessage, cause error) error {
	if kp.config.DeadLetterTopic == "" {
		return fmt.Errorf("dead letter topic not configured")
	}

	headers := []sarama.RecordHeader{
		{Key: []byte("dlq_source_topic"), Value: []byte(original.Topic)},
		{Key: []byte("dlq_source_partition"), Value: []byte(strconv.FormatInt(int64(original.Partition), 10))},
		{Key: []byte("dlq_source_offset"), Value: []byte(strconv.FormatInt(original.Offset, 10))},
		{Key: []byte("dlq_error"), Value: []byte(cause.Error())},
		{Key: []byte("dlq_failed_at"), Value: []byte(time.Now().UTC().Format(time.RFC3339))},
	}
	for _, h := range original.Headers {
		if h != nil {
			headers = append(headers, *h)
		}
	}

	message := &sarama.ProducerMessage{
		Topic:   kp.config.DeadLetterTopic,
		Value:   sarama.ByteEncoder(original.Value),
		Headers: headers,
	}
	if original.Key != nil {
		message.Key = sarama.ByteEncoder(original.Key)
	}

	if _, _, err := kp.producer.SendMessage(message); err != nil {
		return fmt.Errorf("failed to send dead letter to Kafka: %w", err)
	}

	kp.log.WarnContext(ctx, "Payment result dead-lettered",
		"topic", kp.config.DeadLetterTopic,
		"source_offset", original.Offset,
		"error", cause.Error(),
	)
	return nil
}

// Close closes the Kafka producer
func (kp *KafkaPaymentProducer) Close() error {
	if kp.producer != nil {
		if err := kp.producer.Close(); err != nil {
			return fmt.Errorf("failed to close Kafka producer: %w", err)
		}
	}
	return nil
}
