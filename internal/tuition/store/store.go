package store

import (
	"context"

	"github.com/google/uuid"

	"tuitionhub/internal/tuition/models"
)

// TuitionStore is the persistence boundary for tuition posts.
type TuitionStore interface {
	Create(ctx context.Context, tuition *models.Tuition) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Tuition, error)
	Update(ctx context.Context, id uuid.UUID, update models.Update) (*models.Tuition, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter models.Filter) ([]*models.Tuition, error)
}
