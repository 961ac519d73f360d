package store

import (
	"context"

	"github.com/google/uuid"

	"tuitionhub/internal/application/models"
)

// ApplicationStore is the persistence boundary for applications.
//
// ApproveAndMarkPaid applies the settlement write: status approved, payment
// status paid, and the settlement fields, but only when the application's
// transaction id is unset or already equal to the settlement's. An application
// that holds a different transaction id yields sentinel.ErrInvalidState, which
// protects the one-transaction-per-application invariant.
type ApplicationStore interface {
	Create(ctx context.Context, application *models.Application) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Application, error)
	FindByTuitionAndTutor(ctx context.Context, tuitionID uuid.UUID, tutorEmail string) (*models.Application, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.Status) (*models.Application, error)
	ApproveAndMarkPaid(ctx context.Context, id uuid.UUID, settlement models.Settlement) (*models.Application, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByTutor(ctx context.Context, tutorEmail string) ([]*models.Application, error)
	ListByStudent(ctx context.Context, studentEmail string) ([]*models.Application, error)
}
