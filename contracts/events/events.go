// Package events holds the versioned event contracts published to Kafka.
// Downstream consumers (reporting, notifications) import this module alone,
// so it must stay free of internal dependencies and backward compatible.
package events

import (
	"encoding/json"
	"time"
)

// Event types published by the marketplace backend.
const (
	TypePaymentSettled = "payment.settled"
	TypeAuditRecorded  = "audit.recorded"
)

// Envelope is the canonical wire envelope for every published event.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	OccurredAt    time.Time       `json:"occurred_at"`
	SourceService string          `json:"source_service"`
	SchemaVersion int             `json:"schema_version"`
	PartitionKey  string          `json:"partition_key"`
	Data          json.RawMessage `json:"data"`
}

// PaymentSettled is the payload for TypePaymentSettled events. Amount is in
// whole currency units, matching the persisted payment record.
type PaymentSettled struct {
	ApplicationID string    `json:"application_id"`
	TransactionID string    `json:"transaction_id"`
	TrackingID    string    `json:"tracking_id"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	TutorEmail    string    `json:"tutor_email"`
	StudentEmail  string    `json:"student_email"`
	SettledAt     time.Time `json:"settled_at"`
}

// AuditRecorded is the payload for TypeAuditRecorded events.
type AuditRecorded struct {
	Action         string    `json:"action"`
	ActorEmail     string    `json:"actor_email,omitempty"`
	Subject        string    `json:"subject,omitempty"`
	Decision       string    `json:"decision,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	RequestID      string    `json:"request_id,omitempty"`
	ClientIP       string    `json:"client_ip,omitempty"`
	ClientPlatform string    `json:"client_platform,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}
