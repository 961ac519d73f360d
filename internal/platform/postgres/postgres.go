package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Open connects to PostgreSQL and verifies connectivity with a bounded ping.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Schema bootstraps the tables this service owns. The unique index on
// payments.transaction_id is the settlement serialization point: a concurrent
// duplicate insert surfaces as a unique violation and the writer falls back to
// the replay path.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id         UUID PRIMARY KEY,
	email      TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL DEFAULT '',
	photo_url  TEXT NOT NULL DEFAULT '',
	phone      TEXT NOT NULL DEFAULT '',
	role       TEXT NOT NULL,
	status     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS tuitions (
	id            UUID PRIMARY KEY,
	title         TEXT NOT NULL,
	subject       TEXT NOT NULL,
	class_level   TEXT NOT NULL DEFAULT '',
	location      TEXT NOT NULL DEFAULT '',
	student_email TEXT NOT NULL,
	salary        BIGINT NOT NULL DEFAULT 0,
	status        TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS applications (
	id              UUID PRIMARY KEY,
	tuition_id      UUID NOT NULL,
	student_email   TEXT NOT NULL,
	tutor_email     TEXT NOT NULL,
	expected_salary BIGINT NOT NULL DEFAULT 0,
	status          TEXT NOT NULL,
	payment_status  TEXT NOT NULL,
	transaction_id  TEXT,
	tracking_id     TEXT,
	paid_amount     BIGINT,
	paid_at         TIMESTAMPTZ,
	created_at      TIMESTAMPTZ NOT NULL,
	CONSTRAINT applications_tuition_tutor_key UNIQUE (tuition_id, tutor_email)
);

CREATE TABLE IF NOT EXISTS payments (
	id             UUID PRIMARY KEY,
	application_id UUID NOT NULL,
	transaction_id TEXT NOT NULL,
	tracking_id    TEXT NOT NULL,
	amount         BIGINT NOT NULL,
	currency       TEXT NOT NULL,
	tutor_email    TEXT NOT NULL,
	student_email  TEXT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	CONSTRAINT payments_transaction_id_key UNIQUE (transaction_id)
);

CREATE TABLE IF NOT EXISTS outbox (
	id           UUID PRIMARY KEY,
	event_type   TEXT NOT NULL,
	payload      JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	published_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS outbox_pending_idx ON outbox (created_at) WHERE published_at IS NULL;
`

// EnsureSchema applies the schema idempotently at startup.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// IsUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (SQLSTATE 23505).
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
