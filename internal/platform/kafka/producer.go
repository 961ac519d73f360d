package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Topics this service publishes to.
const (
	TopicPayments = "tuitionhub.payments"
	TopicAudit    = "tuitionhub.audit"
)

// Producer wraps a franz-go client for synchronous event publishing from the
// outbox relay. The relay is the only producer in the process, so sync
// produce keeps at-least-once semantics simple: a record is only marked
// published after the broker acks it.
type Producer struct {
	client *kgo.Client
	logger *slog.Logger
}

// NewProducer connects to the brokers and ensures the service topics exist.
// Returns nil if no brokers are configured (event publishing disabled).
func NewProducer(ctx context.Context, brokers []string, logger *slog.Logger) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, nil
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerLinger(0),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	if err := ensureTopics(ctx, client, TopicPayments, TopicAudit); err != nil {
		client.Close()
		return nil, err
	}

	return &Producer{client: client, logger: logger}, nil
}

func ensureTopics(ctx context.Context, client *kgo.Client, topics ...string) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopics(ctx, 1, 1, nil, topics...)
	if err != nil {
		return fmt.Errorf("create topics: %w", err)
	}
	for _, res := range resp.Sorted() {
		if res.Err != nil && !errors.Is(res.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", res.Topic, res.Err)
		}
	}
	return nil
}

// Publish produces one record and waits for the broker ack.
func (p *Producer) Publish(ctx context.Context, topic string, key string, payload []byte) error {
	record := &kgo.Record{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", topic, err)
	}
	p.logger.DebugContext(ctx, "event published",
		"topic", topic,
		"key", key,
	)
	return nil
}

// Close flushes buffered records and shuts the client down.
func (p *Producer) Close() {
	if p == nil {
		return
	}
	p.client.Close()
}
