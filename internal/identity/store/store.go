package store

import (
	"context"

	"github.com/google/uuid"

	"tuitionhub/internal/identity/models"
)

// UserStore is the persistence boundary for identity records.
//
// CreateIfEmailAvailable must enforce email uniqueness atomically: concurrent
// registrations for the same email yield exactly one success, the rest
// sentinel.ErrConflict.
type UserStore interface {
	CreateIfEmailAvailable(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, email string, update models.ProfileUpdate) (*models.User, error)
	AdminUpdate(ctx context.Context, id uuid.UUID, update models.AdminUpdate) (*models.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*models.User, error)
	ListByRole(ctx context.Context, role models.Role, status models.Status, limit int) ([]*models.User, error)
}
