// paysim publishes payment results for locked seats, standing in for the
// payment service during local testing.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strings"
	"time"

	"seatkeeper/internal/payments"
	"seatkeeper/internal/shared/config"
	"seatkeeper/pkg/logger"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"
)

type publisher interface {
	PublishResult(ctx context.Context, msg *payments.PaymentResultMessage) error
	Close() error
}

func main() {
	productID := flag.Int64("product", 1, "product id")
	seatList := flag.String("seats", "A-1-1", "comma separated seat ids")
	failRate := flag.Float64("fail-rate", 0, "fraction of results published as failures")
	firstOrder := flag.Int64("order", 1000, "first order id")
	transport := flag.String("transport", "", "kafka or rabbitmq (defaults to PAYMENT_INGRESS)")
	concurrency := flag.Int("concurrency", 4, "parallel publishers")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	log.SetFlags(0)

	if *transport == "" {
		*transport = cfg.Payments.Ingress
	}
	pub, err := newPublisher(*transport, cfg)
	if err != nil {
		log.Fatalf("Failed to create publisher: %v", err)
	}
	defer pub.Close()

	msgs := buildResults(*productID, splitSeats(*seatList), *firstOrder, *failRate, rand.New(rand.NewSource(time.Now().UnixNano())))

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(*concurrency)
	for _, msg := range msgs {
		msg := msg
		g.Go(func() error {
			if err := pub.PublishResult(gctx, msg); err != nil {
				return fmt.Errorf("order %d seat %s: %w", msg.OrderID, msg.SeatID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Printf("❌ %v", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Published %d payment results via %s\n", len(msgs), *transport)
}

func splitSeats(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// buildResults creates one result per seat; rng decides which ones fail
func buildResults(productID int64, seatIDs []string, firstOrder int64, failRate float64, rng *rand.Rand) []*payments.PaymentResultMessage {
	out := make([]*payments.PaymentResultMessage, 0, len(seatIDs))
	for i, seatID := range seatIDs {
		msg := &payments.PaymentResultMessage{
			OrderID:   firstOrder + int64(i),
			ProductID: productID,
			SeatID:    seatID,
			Success:   rng.Float64() >= failRate,
		}
		if msg.Success {
			paymentID := "pay_" + uuid.NewString()
			msg.PaymentID = &paymentID
		} else {
			reason := "card declined"
			msg.Reason = &reason
		}
		out = append(out, msg)
	}
	return out
}

func newPublisher(transport string, cfg *config.Config) (publisher, error) {
	switch transport {
	case "kafka":
		pcfg := payments.DefaultKafkaProducerConfig()
		pcfg.Brokers = cfg.Payments.Kafka.Brokers
		pcfg.ResultTopic = cfg.Payments.Kafka.Topic
		pcfg.DeadLetterTopic = cfg.Payments.Kafka.DeadLetterTopic
		pcfg.ClientID = "seatkeeper-paysim"
		producer, err := payments.NewKafkaPaymentProducer(pcfg, logger.GetDefault())
		if err != nil {
			return nil, err
		}
		return producer, nil
	case "rabbitmq":
		rp, err := newRabbitPublisher(cfg.Payments.Rabbit)
		if err != nil {
			return nil, err
		}
		return rp, nil
	default:
		return nil, fmt.Errorf("unsupported transport %q", transport)
	}
}

// rabbitPublisher publishes persistent JSON messages to the default exchange
type rabbitPublisher struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func newRabbitPublisher(cfg config.RabbitConfig) (*rabbitPublisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	return &rabbitPublisher{conn: conn, ch: ch, queue: cfg.Queue}, nil
}

func (p *rabbitPublisher) PublishResult(ctx context.Context, msg *payments.PaymentResultMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.PartitionKey(),
		Timestamp:    time.Now(),
		Body:         body,
	})
}

func (p *rabbitPublisher) Close() error {
	_ = p.ch.Close()
	return p.conn.Close()
}
