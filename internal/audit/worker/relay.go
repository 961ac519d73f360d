// Package worker relays pending outbox entries to Kafka.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"tuitionhub/contracts/events"
	"tuitionhub/internal/audit/store"
	"tuitionhub/internal/platform/kafka"
)

const batchSize = 100

// EventPublisher is the broker boundary. *kafka.Producer satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, payload []byte) error
}

// Relay polls the outbox and publishes pending entries in order. Publishing is
// at-least-once: an entry is marked published only after the broker ack, so a
// crash between produce and mark replays the entry.
type Relay struct {
	outbox   store.OutboxStore
	producer EventPublisher
	interval time.Duration
	logger   *slog.Logger
}

func NewRelay(outbox store.OutboxStore, producer EventPublisher, interval time.Duration, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		outbox:   outbox,
		producer: producer,
		interval: interval,
		logger:   logger,
	}
}

// Run polls until the context is cancelled. It never returns a non-context
// error: publish failures are logged and retried on the next tick.
func (r *Relay) Run(ctx context.Context) error {
	if r.producer == nil {
		r.logger.InfoContext(ctx, "no kafka brokers configured, outbox relay idle")
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.Drain(ctx); err != nil {
				r.logger.ErrorContext(ctx, "outbox drain failed", "error", err)
			}
		}
	}
}

// Drain publishes every currently pending entry. Exported so tests and the
// shutdown path can flush without the ticker.
func (r *Relay) Drain(ctx context.Context) error {
	for {
		entries, err := r.outbox.ListPending(ctx, batchSize)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		for _, entry := range entries {
			if err := r.publish(ctx, entry); err != nil {
				return err
			}
		}
		if len(entries) < batchSize {
			return nil
		}
	}
}

func (r *Relay) publish(ctx context.Context, entry *store.Entry) error {
	topic := kafka.TopicAudit
	if entry.EventType == events.TypePaymentSettled {
		topic = kafka.TopicPayments
	}

	key := entry.ID.String()
	var envelope events.Envelope
	if err := json.Unmarshal(entry.Payload, &envelope); err == nil && envelope.PartitionKey != "" {
		key = envelope.PartitionKey
	}

	if err := r.producer.Publish(ctx, topic, key, entry.Payload); err != nil {
		return err
	}
	return r.outbox.MarkPublished(ctx, entry.ID, time.Now().UTC())
}
