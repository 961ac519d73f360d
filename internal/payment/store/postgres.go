package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"tuitionhub/internal/payment/models"
	"tuitionhub/internal/platform/postgres"
	"tuitionhub/pkg/platform/sentinel"
	txcontext "tuitionhub/pkg/platform/tx"
)

// PostgresStore persists the payment ledger. The unique constraint on
// transaction_id is the settlement serialization point: exactly one of any set
// of concurrent inserts for a transaction succeeds.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const paymentColumns = "id, application_id, transaction_id, tracking_id, amount, currency, tutor_email, student_email, created_at"

func scanPayment(row interface{ Scan(...any) error }) (*models.PaymentRecord, error) {
	var p models.PaymentRecord
	err := row.Scan(&p.ID, &p.ApplicationID, &p.TransactionID, &p.TrackingID, &p.Amount, &p.Currency, &p.TutorEmail, &p.StudentEmail, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) Insert(ctx context.Context, record *models.PaymentRecord) error {
	query := `
		INSERT INTO payments (id, application_id, transaction_id, tracking_id, amount, currency, tutor_email, student_email, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		record.ID, record.ApplicationID, record.TransactionID, record.TrackingID,
		record.Amount, record.Currency, record.TutorEmail, record.StudentEmail, record.CreatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByTransactionID(ctx context.Context, transactionID string) (*models.PaymentRecord, error) {
	query := "SELECT " + paymentColumns + " FROM payments WHERE transaction_id = $1"
	return scanPayment(s.execer(ctx).QueryRowContext(ctx, query, transactionID))
}

func (s *PostgresStore) ListByTutor(ctx context.Context, tutorEmail string) ([]*models.PaymentRecord, error) {
	return s.listBy(ctx, "tutor_email = $1", strings.ToLower(tutorEmail))
}

func (s *PostgresStore) ListByStudent(ctx context.Context, studentEmail string) ([]*models.PaymentRecord, error) {
	return s.listBy(ctx, "student_email = $1", strings.ToLower(studentEmail))
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]*models.PaymentRecord, error) {
	return s.listBy(ctx, "")
}

func (s *PostgresStore) listBy(ctx context.Context, where string, args ...any) ([]*models.PaymentRecord, error) {
	query := "SELECT " + paymentColumns + " FROM payments"
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var records []*models.PaymentRecord
	for rows.Next() {
		record, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return records, nil
}
