package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"tuitionhub/internal/audit"
	"tuitionhub/internal/identity/models"
	"tuitionhub/internal/identity/store"
	"tuitionhub/internal/platform/metrics"
	dErrors "tuitionhub/pkg/domain-errors"
	"tuitionhub/pkg/platform/sentinel"
	"tuitionhub/pkg/requestcontext"
)

// Service owns identity lifecycle and the ownership/role authorization
// decisions that guard profile and admin routes.
type Service struct {
	users   store.UserStore
	auditor *audit.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func New(users store.UserStore, auditor *audit.Publisher, m *metrics.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:   users,
		auditor: auditor,
		metrics: m,
		logger:  logger,
	}
}

// RegisterInput is the self-registration payload.
type RegisterInput struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	PhotoURL string `json:"photoURL"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

// Register creates the identity record on first registration. Re-registering
// an existing email is a no-op success, not an error, so clients can call it
// unconditionally after external sign-in.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*models.User, bool, error) {
	role := models.DefaultRole
	if input.Role != "" {
		parsed, err := models.ParseRole(input.Role)
		if err != nil {
			return nil, false, err
		}
		// Admin is never self-assignable.
		if parsed == models.RoleAdmin {
			return nil, false, dErrors.New(dErrors.CodeValidation, "role admin cannot be self-assigned")
		}
		role = parsed
	}

	user, err := models.NewUser(input.Email, input.Name, input.PhotoURL, input.Phone, role, requestcontext.Now(ctx))
	if err != nil {
		return nil, false, err
	}

	if err := s.users.CreateIfEmailAvailable(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			existing, findErr := s.users.FindByEmail(ctx, user.Email)
			if findErr != nil {
				return nil, false, dErrors.Wrap(findErr, dErrors.CodeInternal, "failed to load existing user")
			}
			return existing, false, nil
		}
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register user")
	}

	if s.metrics != nil {
		s.metrics.UsersRegistered.Inc()
	}
	s.emit(ctx, audit.ActionUserRegistered, user.Email, "user:"+user.ID.String(), "created", "")
	return user, true, nil
}

// ResolveRole implements the role-gate lookup: the stored role for an email,
// defaulting to student when no record exists. Storage failures propagate so
// the gate can fail closed.
func (s *Service) ResolveRole(ctx context.Context, email string) (string, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return string(models.DefaultRole), nil
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up role")
	}
	return string(user.Role), nil
}

// AuthorizeOwner enforces the ownership rule: the authenticated caller may
// only act on their own resource. Any mismatch is Forbidden.
func AuthorizeOwner(verifiedEmail, resourceEmail string) error {
	if !strings.EqualFold(strings.TrimSpace(verifiedEmail), strings.TrimSpace(resourceEmail)) {
		return dErrors.New(dErrors.CodeForbidden, "callers may only access their own resources")
	}
	return nil
}

// Profile returns the caller's own profile. An email mismatch between the
// verified identity and the requested resource is Forbidden regardless of
// whether the resource exists. A missing record yields a default profile so
// freshly signed-in users see a usable settings page.
func (s *Service) Profile(ctx context.Context, email string) (*models.User, error) {
	caller := requestcontext.Email(ctx)
	if err := AuthorizeOwner(caller, email); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return &models.User{
				Email:     strings.ToLower(email),
				Role:      models.DefaultRole,
				Status:    models.StatusActive,
				CreatedAt: requestcontext.Now(ctx),
			}, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile")
	}
	return user, nil
}

// UpdateProfile updates owner-editable fields after the ownership check.
func (s *Service) UpdateProfile(ctx context.Context, email string, update models.ProfileUpdate) (*models.User, error) {
	caller := requestcontext.Email(ctx)
	if err := AuthorizeOwner(caller, email); err != nil {
		return nil, err
	}

	user, err := s.users.UpdateProfile(ctx, email, update)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update profile")
	}
	return user, nil
}

// RoleOf answers the public role lookup. Unknown emails report the default
// role rather than an error; the response flags whether a record exists.
func (s *Service) RoleOf(ctx context.Context, email string) (models.Role, bool, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.DefaultRole, false, nil
		}
		return "", false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up role")
	}
	if user.Role == "" {
		return models.DefaultRole, true, nil
	}
	return user.Role, true, nil
}

// LatestTutors lists active tutors, newest first, optionally limited.
func (s *Service) LatestTutors(ctx context.Context, limit int) ([]*models.User, error) {
	tutors, err := s.users.ListByRole(ctx, models.RoleTutor, models.StatusActive, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list tutors")
	}
	return tutors, nil
}

// ListUsers returns every user, newest first. Admin-gated at the route level.
func (s *Service) ListUsers(ctx context.Context) ([]*models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
	}
	return users, nil
}

// AdminUpdateUser changes role/status on any user. Admin-gated at the route
// level; the mutation is audited with the acting admin.
func (s *Service) AdminUpdateUser(ctx context.Context, id uuid.UUID, update models.AdminUpdate) (*models.User, error) {
	if update.Role != nil {
		if _, err := models.ParseRole(string(*update.Role)); err != nil {
			return nil, err
		}
	}

	user, err := s.users.AdminUpdate(ctx, id, update)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update user")
	}

	s.emit(ctx, audit.ActionUserAdminUpdated, requestcontext.Email(ctx), "user:"+id.String(), "updated", "")
	return user, nil
}

// AdminDeleteUser removes a user record entirely.
func (s *Service) AdminDeleteUser(ctx context.Context, id uuid.UUID) error {
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete user")
	}

	s.emit(ctx, audit.ActionUserAdminDeleted, requestcontext.Email(ctx), "user:"+id.String(), "deleted", "")
	return nil
}

func (s *Service) emit(ctx context.Context, action, actor, subject, decision, reason string) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, audit.Event{
		Action:   action,
		Actor:    actor,
		Subject:  subject,
		Decision: decision,
		Reason:   reason,
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", action,
			"error", err,
		)
	}
}
