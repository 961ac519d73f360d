// Package audit records authorization and lifecycle decisions as durable
// events. Events land in the transactional outbox first; a relay worker moves
// them to Kafka, so a broker outage never fails the request that produced the
// event.
package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"tuitionhub/contracts/events"
	"tuitionhub/internal/audit/store"
	"tuitionhub/pkg/requestcontext"
)

const sourceService = "tuitionhub"

// Actions recorded by the marketplace backend.
const (
	ActionUserRegistered   = "user.registered"
	ActionUserAdminUpdated = "user.admin_updated"
	ActionUserAdminDeleted = "user.admin_deleted"
	ActionTuitionPosted    = "tuition.posted"
	ActionTuitionModerated = "tuition.moderated"
	ActionApplicationMade  = "application.made"
	ActionAccessDenied     = "access.denied"
	ActionPaymentSettled   = "payment.settled"
)

// Event is one auditable decision. Request metadata (request id, client IP,
// platform) is filled in from the context at emit time.
type Event struct {
	Action   string
	Actor    string
	Subject  string
	Decision string
	Reason   string
}

// Publisher writes audit and domain events to the outbox.
type Publisher struct {
	outbox store.OutboxStore
}

func NewPublisher(outbox store.OutboxStore) *Publisher {
	return &Publisher{outbox: outbox}
}

// Emit records an audit event. When Emit runs inside a transaction carried on
// the context, the event commits atomically with the domain write.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	now := requestcontext.Now(ctx)
	payload := events.AuditRecorded{
		Action:         event.Action,
		ActorEmail:     event.Actor,
		Subject:        event.Subject,
		Decision:       event.Decision,
		Reason:         event.Reason,
		RequestID:      requestcontext.RequestID(ctx),
		ClientIP:       requestcontext.ClientIP(ctx),
		ClientPlatform: requestcontext.ClientPlatform(ctx),
		Timestamp:      now,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}
	return p.append(ctx, events.TypeAuditRecorded, event.Subject, data)
}

// EmitPaymentSettled records the settlement event for downstream consumers.
func (p *Publisher) EmitPaymentSettled(ctx context.Context, payload events.PaymentSettled) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payment settled payload: %w", err)
	}
	return p.append(ctx, events.TypePaymentSettled, payload.TransactionID, data)
}

func (p *Publisher) append(ctx context.Context, eventType, partitionKey string, data []byte) error {
	now := requestcontext.Now(ctx)
	envelope := events.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		OccurredAt:    now,
		SourceService: sourceService,
		SchemaVersion: 1,
		PartitionKey:  partitionKey,
		Data:          data,
	}
	raw, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}
	return p.outbox.Append(ctx, &store.Entry{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   raw,
		CreatedAt: now,
	})
}
