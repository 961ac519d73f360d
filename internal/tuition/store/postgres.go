package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"tuitionhub/internal/tuition/models"
	"tuitionhub/pkg/platform/sentinel"
	txcontext "tuitionhub/pkg/platform/tx"
)

// PostgresStore persists tuition posts in PostgreSQL.
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

const tuitionColumns = "id, title, subject, class_level, location, student_email, salary, status, created_at"

func scanTuition(row interface{ Scan(...any) error }) (*models.Tuition, error) {
	var t models.Tuition
	err := row.Scan(&t.ID, &t.Title, &t.Subject, &t.ClassLevel, &t.Location, &t.StudentEmail, &t.Salary, &t.Status, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan tuition: %w", err)
	}
	return &t, nil
}

func (s *PostgresStore) Create(ctx context.Context, tuition *models.Tuition) error {
	query := `
		INSERT INTO tuitions (id, title, subject, class_level, location, student_email, salary, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		tuition.ID, tuition.Title, tuition.Subject, tuition.ClassLevel, tuition.Location,
		tuition.StudentEmail, tuition.Salary, tuition.Status, tuition.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert tuition: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Tuition, error) {
	query := "SELECT " + tuitionColumns + " FROM tuitions WHERE id = $1"
	return scanTuition(s.execer(ctx).QueryRowContext(ctx, query, id))
}

func (s *PostgresStore) Update(ctx context.Context, id uuid.UUID, update models.Update) (*models.Tuition, error) {
	var status *string
	if update.Status != nil {
		st := string(*update.Status)
		status = &st
	}
	query := `
		UPDATE tuitions SET
			title       = COALESCE($2, title),
			subject     = COALESCE($3, subject),
			class_level = COALESCE($4, class_level),
			location    = COALESCE($5, location),
			salary      = COALESCE($6, salary),
			status      = COALESCE($7, status)
		WHERE id = $1
		RETURNING ` + tuitionColumns
	return scanTuition(s.execer(ctx).QueryRowContext(ctx, query,
		id, update.Title, update.Subject, update.ClassLevel, update.Location, update.Salary, status,
	))
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.execer(ctx).ExecContext(ctx, "DELETE FROM tuitions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete tuition: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete tuition rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, filter models.Filter) ([]*models.Tuition, error) {
	query, args := buildListQuery(filter)
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tuitions: %w", err)
	}
	defer rows.Close()

	var tuitions []*models.Tuition
	for rows.Next() {
		tuition, err := scanTuition(rows)
		if err != nil {
			return nil, err
		}
		tuitions = append(tuitions, tuition)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tuitions: %w", err)
	}
	return tuitions, nil
}

func buildListQuery(filter models.Filter) (string, []any) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Status != "" {
		where = append(where, "status = "+arg(filter.Status))
	}
	if filter.StudentEmail != "" {
		where = append(where, "student_email = "+arg(strings.ToLower(filter.StudentEmail)))
	}
	if filter.ClassLevel != "" {
		where = append(where, "LOWER(class_level) = LOWER("+arg(filter.ClassLevel)+")")
	}
	if filter.Subject != "" {
		where = append(where, "subject ILIKE "+arg("%"+filter.Subject+"%"))
	}
	if filter.Location != "" {
		where = append(where, "location ILIKE "+arg("%"+filter.Location+"%"))
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		where = append(where, "(title ILIKE "+p+" OR subject ILIKE "+p+" OR location ILIKE "+p+")")
	}

	query := "SELECT " + tuitionColumns + " FROM tuitions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	orderColumn := "created_at"
	if filter.SortBy == models.SortBySalary {
		orderColumn = "salary"
	}
	direction := "DESC"
	if filter.SortAsc {
		direction = "ASC"
	}
	query += " ORDER BY " + orderColumn + " " + direction

	return query, args
}
