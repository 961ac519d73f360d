package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"tuitionhub/internal/identity/models"
	"tuitionhub/internal/platform/postgres"
	"tuitionhub/pkg/platform/sentinel"
	txcontext "tuitionhub/pkg/platform/tx"
)

// PostgresStore persists users in PostgreSQL. The unique index on email makes
// concurrent duplicate registration a conflict for all but one writer.
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

const userColumns = "id, email, name, photo_url, phone, role, status, created_at"

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.PhotoURL, &user.Phone, &user.Role, &user.Status, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &user, nil
}

func (s *PostgresStore) CreateIfEmailAvailable(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, name, photo_url, phone, role, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		user.ID, strings.ToLower(user.Email), user.Name, user.PhotoURL, user.Phone, user.Role, user.Status, user.CreatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE email = $1"
	return scanUser(s.execer(ctx).QueryRowContext(ctx, query, strings.ToLower(email)))
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE id = $1"
	return scanUser(s.execer(ctx).QueryRowContext(ctx, query, id))
}

func (s *PostgresStore) UpdateProfile(ctx context.Context, email string, update models.ProfileUpdate) (*models.User, error) {
	query := `
		UPDATE users SET
			name      = COALESCE($2, name),
			photo_url = COALESCE($3, photo_url),
			phone     = COALESCE($4, phone)
		WHERE email = $1
		RETURNING ` + userColumns
	return scanUser(s.execer(ctx).QueryRowContext(ctx, query,
		strings.ToLower(email), update.Name, update.PhotoURL, update.Phone,
	))
}

func (s *PostgresStore) AdminUpdate(ctx context.Context, id uuid.UUID, update models.AdminUpdate) (*models.User, error) {
	var role, status *string
	if update.Role != nil {
		r := string(*update.Role)
		role = &r
	}
	if update.Status != nil {
		st := string(*update.Status)
		status = &st
	}
	query := `
		UPDATE users SET
			role   = COALESCE($2, role),
			status = COALESCE($3, status)
		WHERE id = $1
		RETURNING ` + userColumns
	return scanUser(s.execer(ctx).QueryRowContext(ctx, query, id, role, status))
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.execer(ctx).ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.User, error) {
	query := "SELECT " + userColumns + " FROM users ORDER BY created_at DESC"
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	return collectUsers(rows)
}

func (s *PostgresStore) ListByRole(ctx context.Context, role models.Role, status models.Status, limit int) ([]*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE role = $1 AND status = $2 ORDER BY created_at DESC"
	args := []any{role, status}
	if limit > 0 {
		query += " LIMIT $3"
		args = append(args, limit)
	}
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	defer rows.Close()
	return collectUsers(rows)
}

func collectUsers(rows *sql.Rows) ([]*models.User, error) {
	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}
