package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Entry is one row in the transactional outbox. Payload is the full event
// envelope, ready to publish as-is.
type Entry struct {
	ID          uuid.UUID
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
	PublishedAt *time.Time
}

// OutboxStore is the persistence boundary for the event outbox. Append
// participates in any transaction carried on the context, so domain writes and
// their events commit or roll back together.
type OutboxStore interface {
	Append(ctx context.Context, entry *Entry) error
	ListPending(ctx context.Context, limit int) ([]*Entry, error)
	MarkPublished(ctx context.Context, id uuid.UUID, at time.Time) error
}
