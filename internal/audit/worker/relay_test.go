package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tuitionhub/contracts/events"
	"tuitionhub/internal/audit/store"
	"tuitionhub/internal/platform/kafka"
)

type capturedMessage struct {
	Topic   string
	Key     string
	Payload []byte
}

type fakePublisher struct {
	messages []capturedMessage
	err      error
}

func (f *fakePublisher) Publish(_ context.Context, topic, key string, payload []byte) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, capturedMessage{Topic: topic, Key: key, Payload: payload})
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func appendEntry(t *testing.T, outbox *store.InMemory, eventType, partitionKey string, createdAt time.Time) *store.Entry {
	t.Helper()

	envelope := events.Envelope{
		EventID:      uuid.NewString(),
		EventType:    eventType,
		PartitionKey: partitionKey,
	}
	payload, err := json.Marshal(envelope)
	require.NoError(t, err)

	entry := &store.Entry{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   payload,
		CreatedAt: createdAt,
	}
	require.NoError(t, outbox.Append(context.Background(), entry))
	return entry
}

func TestDrainRoutesByEventType(t *testing.T) {
	outbox := store.NewInMemory()
	publisher := &fakePublisher{}
	relay := NewRelay(outbox, publisher, time.Minute, discardLogger())

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	appendEntry(t, outbox, events.TypeAuditRecorded, "user:a", base)
	appendEntry(t, outbox, events.TypePaymentSettled, "pi_1", base.Add(time.Second))

	require.NoError(t, relay.Drain(context.Background()))
	require.Len(t, publisher.messages, 2)
	assert.Equal(t, kafka.TopicAudit, publisher.messages[0].Topic)
	assert.Equal(t, "user:a", publisher.messages[0].Key)
	assert.Equal(t, kafka.TopicPayments, publisher.messages[1].Topic)
	assert.Equal(t, "pi_1", publisher.messages[1].Key)

	for _, entry := range outbox.All() {
		assert.NotNil(t, entry.PublishedAt)
	}
}

func TestDrainKeyFallsBackToEntryID(t *testing.T) {
	outbox := store.NewInMemory()
	publisher := &fakePublisher{}
	relay := NewRelay(outbox, publisher, time.Minute, discardLogger())

	entry := appendEntry(t, outbox, events.TypeAuditRecorded, "", time.Now())

	require.NoError(t, relay.Drain(context.Background()))
	require.Len(t, publisher.messages, 1)
	assert.Equal(t, entry.ID.String(), publisher.messages[0].Key)
}

func TestDrainLeavesEntryPendingOnPublishFailure(t *testing.T) {
	outbox := store.NewInMemory()
	publisher := &fakePublisher{err: errors.New("broker down")}
	relay := NewRelay(outbox, publisher, time.Minute, discardLogger())

	appendEntry(t, outbox, events.TypeAuditRecorded, "user:a", time.Now())

	require.Error(t, relay.Drain(context.Background()))

	pending, err := outbox.ListPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	// Next drain retries the same entry once the broker recovers.
	publisher.err = nil
	require.NoError(t, relay.Drain(context.Background()))
	require.Len(t, publisher.messages, 1)

	pending, err = outbox.ListPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestDrainSkipsAlreadyPublished(t *testing.T) {
	outbox := store.NewInMemory()
	publisher := &fakePublisher{}
	relay := NewRelay(outbox, publisher, time.Minute, discardLogger())

	entry := appendEntry(t, outbox, events.TypeAuditRecorded, "user:a", time.Now())
	require.NoError(t, outbox.MarkPublished(context.Background(), entry.ID, time.Now()))

	require.NoError(t, relay.Drain(context.Background()))
	assert.Empty(t, publisher.messages)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	outbox := store.NewInMemory()
	relay := NewRelay(outbox, &fakePublisher{}, time.Millisecond, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop on cancel")
	}
}
