package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"tuitionhub/internal/application/models"
	"tuitionhub/internal/platform/postgres"
	"tuitionhub/pkg/platform/sentinel"
	txcontext "tuitionhub/pkg/platform/tx"
)

// PostgresStore persists applications in PostgreSQL. The unique index on
// (tuition_id, tutor_email) makes a concurrent duplicate apply a conflict for
// all but one writer.
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

const applicationColumns = "id, tuition_id, student_email, tutor_email, expected_salary, status, payment_status, transaction_id, tracking_id, paid_amount, paid_at, created_at"

func scanApplication(row interface{ Scan(...any) error }) (*models.Application, error) {
	var a models.Application
	err := row.Scan(
		&a.ID, &a.TuitionID, &a.StudentEmail, &a.TutorEmail, &a.ExpectedSalary,
		&a.Status, &a.PaymentStatus, &a.TransactionID, &a.TrackingID, &a.PaidAmount, &a.PaidAt, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan application: %w", err)
	}
	return &a, nil
}

func (s *PostgresStore) Create(ctx context.Context, application *models.Application) error {
	query := `
		INSERT INTO applications (id, tuition_id, student_email, tutor_email, expected_salary, status, payment_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		application.ID, application.TuitionID, application.StudentEmail, application.TutorEmail,
		application.ExpectedSalary, application.Status, application.PaymentStatus, application.CreatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	query := "SELECT " + applicationColumns + " FROM applications WHERE id = $1"
	return scanApplication(s.execer(ctx).QueryRowContext(ctx, query, id))
}

func (s *PostgresStore) FindByTuitionAndTutor(ctx context.Context, tuitionID uuid.UUID, tutorEmail string) (*models.Application, error) {
	query := "SELECT " + applicationColumns + " FROM applications WHERE tuition_id = $1 AND tutor_email = $2"
	return scanApplication(s.execer(ctx).QueryRowContext(ctx, query, tuitionID, strings.ToLower(tutorEmail)))
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id uuid.UUID, status models.Status) (*models.Application, error) {
	query := "UPDATE applications SET status = $2 WHERE id = $1 RETURNING " + applicationColumns
	return scanApplication(s.execer(ctx).QueryRowContext(ctx, query, id, status))
}

func (s *PostgresStore) ApproveAndMarkPaid(ctx context.Context, id uuid.UUID, settlement models.Settlement) (*models.Application, error) {
	query := `
		UPDATE applications SET
			status         = 'approved',
			payment_status = 'paid',
			transaction_id = $2,
			tracking_id    = $3,
			paid_amount    = $4,
			paid_at        = $5
		WHERE id = $1 AND (transaction_id IS NULL OR transaction_id = $2)
		RETURNING ` + applicationColumns
	application, err := scanApplication(s.execer(ctx).QueryRowContext(ctx, query,
		id, settlement.TransactionID, settlement.TrackingID, settlement.PaidAmount, settlement.PaidAt,
	))
	if err == nil {
		return application, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, err
	}

	// No row updated: either the application is gone or it already belongs to
	// a different transaction.
	if _, findErr := s.FindByID(ctx, id); findErr != nil {
		return nil, findErr
	}
	return nil, sentinel.ErrInvalidState
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.execer(ctx).ExecContext(ctx, "DELETE FROM applications WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete application: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete application rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByTutor(ctx context.Context, tutorEmail string) ([]*models.Application, error) {
	return s.listBy(ctx, "tutor_email", tutorEmail)
}

func (s *PostgresStore) ListByStudent(ctx context.Context, studentEmail string) ([]*models.Application, error) {
	return s.listBy(ctx, "student_email", studentEmail)
}

func (s *PostgresStore) listBy(ctx context.Context, column, email string) ([]*models.Application, error) {
	query := "SELECT " + applicationColumns + " FROM applications WHERE " + column + " = $1 ORDER BY created_at DESC"
	rows, err := s.execer(ctx).QueryContext(ctx, query, strings.ToLower(email))
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var applications []*models.Application
	for rows.Next() {
		application, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		applications = append(applications, application)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applications: %w", err)
	}
	return applications, nil
}
