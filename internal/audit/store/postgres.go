package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tuitionhub/pkg/platform/sentinel"
	txcontext "tuitionhub/pkg/platform/tx"
)

// PostgresStore persists outbox entries in the outbox table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, entry *Entry) error {
	query := `
		INSERT INTO outbox (id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		entry.ID, entry.EventType, entry.Payload, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append outbox entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListPending(ctx context.Context, limit int) ([]*Entry, error) {
	query := `
		SELECT id, event_type, payload, created_at, published_at
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending outbox entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var entry Entry
		if err := rows.Scan(&entry.ID, &entry.EventType, &entry.Payload, &entry.CreatedAt, &entry.PublishedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox entries: %w", err)
	}
	return entries, nil
}

func (s *PostgresStore) MarkPublished(ctx context.Context, id uuid.UUID, at time.Time) error {
	result, err := s.execer(ctx).ExecContext(ctx,
		"UPDATE outbox SET published_at = $2 WHERE id = $1 AND published_at IS NULL",
		id, at,
	)
	if err != nil {
		return fmt.Errorf("mark outbox entry published: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark outbox entry rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
