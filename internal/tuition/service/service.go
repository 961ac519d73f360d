package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"tuitionhub/internal/audit"
	"tuitionhub/internal/tuition/models"
	"tuitionhub/internal/tuition/store"
	dErrors "tuitionhub/pkg/domain-errors"
	"tuitionhub/pkg/platform/sentinel"
	"tuitionhub/pkg/requestcontext"
)

// RoleResolver looks up the stored role for an email.
type RoleResolver interface {
	ResolveRole(ctx context.Context, email string) (string, error)
}

// Service owns the tuition post lifecycle. Posts are owner-mutable; status is
// admin-only moderation.
type Service struct {
	tuitions store.TuitionStore
	roles    RoleResolver
	auditor  *audit.Publisher
	logger   *slog.Logger
}

func New(tuitions store.TuitionStore, roles RoleResolver, auditor *audit.Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		tuitions: tuitions,
		roles:    roles,
		auditor:  auditor,
		logger:   logger,
	}
}

// CreateInput is the tuition creation payload. The owner is always the
// authenticated caller; a studentEmail in the body is ignored.
type CreateInput struct {
	Title      string `json:"title"`
	Subject    string `json:"subject"`
	ClassLevel string `json:"classLevel"`
	Location   string `json:"location"`
	Salary     int64  `json:"salary"`
}

// Create posts a new tuition owned by the caller. It starts pending.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Tuition, error) {
	caller := requestcontext.Email(ctx)
	if caller == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	tuition, err := models.NewTuition(input.Title, input.Subject, input.ClassLevel, input.Location, caller, input.Salary, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.tuitions.Create(ctx, tuition); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create tuition")
	}

	s.emit(ctx, audit.ActionTuitionPosted, caller, "tuition:"+tuition.ID.String(), "created", "")
	return tuition, nil
}

// Get returns one tuition by id. Public.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Tuition, error) {
	tuition, err := s.tuitions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "tuition not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load tuition")
	}
	return tuition, nil
}

// List returns tuitions matching the filter. Public.
func (s *Service) List(ctx context.Context, filter models.Filter) ([]*models.Tuition, error) {
	tuitions, err := s.tuitions.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list tuitions")
	}
	return tuitions, nil
}

// Update edits a tuition. Owners edit their own content fields; a status
// change is moderation and requires the admin role.
func (s *Service) Update(ctx context.Context, id uuid.UUID, update models.Update) (*models.Tuition, error) {
	tuition, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	caller := requestcontext.Email(ctx)
	isAdmin, err := s.callerIsAdmin(ctx, caller)
	if err != nil {
		return nil, err
	}

	if update.Status != nil {
		if _, err := models.ParseStatus(string(*update.Status)); err != nil {
			return nil, err
		}
		if !isAdmin {
			return nil, dErrors.New(dErrors.CodeForbidden, "only admins may change tuition status")
		}
	}
	if !isAdmin {
		if authErr := ownerCheck(caller, tuition.StudentEmail); authErr != nil {
			return nil, authErr
		}
	}

	updated, err := s.tuitions.Update(ctx, id, update)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "tuition not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update tuition")
	}

	if update.Status != nil {
		s.emit(ctx, audit.ActionTuitionModerated, caller, "tuition:"+id.String(), string(*update.Status), "")
	}
	return updated, nil
}

// Delete removes a tuition. Owners delete their own posts; admins any.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	tuition, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	caller := requestcontext.Email(ctx)
	isAdmin, err := s.callerIsAdmin(ctx, caller)
	if err != nil {
		return err
	}
	if !isAdmin {
		if authErr := ownerCheck(caller, tuition.StudentEmail); authErr != nil {
			return authErr
		}
	}

	if err := s.tuitions.Delete(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "tuition not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete tuition")
	}
	return nil
}

func (s *Service) callerIsAdmin(ctx context.Context, email string) (bool, error) {
	if email == "" {
		return false, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	role, err := s.roles.ResolveRole(ctx, email)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve caller role")
	}
	return role == "admin", nil
}

func ownerCheck(caller, owner string) error {
	if !strings.EqualFold(caller, owner) {
		return dErrors.New(dErrors.CodeForbidden, "callers may only modify their own tuitions")
	}
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
