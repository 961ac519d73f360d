package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"tuitionhub/internal/application/models"
	"tuitionhub/internal/application/store"
	"tuitionhub/internal/audit"
	tuitionmodels "tuitionhub/internal/tuition/models"
	tuitionstore "tuitionhub/internal/tuition/store"
	dErrors "tuitionhub/pkg/domain-errors"
	"tuitionhub/pkg/platform/sentinel"
	"tuitionhub/pkg/requestcontext"
)

// RoleResolver looks up the stored role for an email.
type RoleResolver interface {
	ResolveRole(ctx context.Context, email string) (string, error)
}

// Service owns the application lifecycle up to settlement. Approval with
// payment happens in the payment service; here only reject and withdraw are
// reachable, and nothing mutates a settled application.
type Service struct {
	applications store.ApplicationStore
	tuitions     tuitionstore.TuitionStore
	roles        RoleResolver
	auditor      *audit.Publisher
	logger       *slog.Logger
}

func New(applications store.ApplicationStore, tuitions tuitionstore.TuitionStore, roles RoleResolver, auditor *audit.Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		applications: applications,
		tuitions:     tuitions,
		roles:        roles,
		auditor:      auditor,
		logger:       logger,
	}
}

// ApplyInput is the application payload. The tutor is always the caller.
type ApplyInput struct {
	TuitionID      uuid.UUID `json:"tuitionId"`
	ExpectedSalary int64     `json:"expectedSalary"`
}

// Apply files the caller's application on an approved tuition. Only tutors
// apply, never to their own posts, and at most once per tuition.
func (s *Service) Apply(ctx context.Context, input ApplyInput) (*models.Application, error) {
	caller := requestcontext.Email(ctx)
	if caller == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	role, err := s.roles.ResolveRole(ctx, caller)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve caller role")
	}
	if role != "tutor" {
		return nil, dErrors.New(dErrors.CodeForbidden, "only tutors may apply to tuitions")
	}

	tuition, err := s.tuitions.FindByID(ctx, input.TuitionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "tuition not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load tuition")
	}
	if tuition.Status != tuitionmodels.StatusApproved {
		return nil, dErrors.New(dErrors.CodeConflict, "tuition is not open for applications")
	}
	if strings.EqualFold(tuition.StudentEmail, caller) {
		return nil, dErrors.New(dErrors.CodeForbidden, "cannot apply to your own tuition")
	}

	application, err := models.NewApplication(tuition.ID, tuition.StudentEmail, caller, input.ExpectedSalary, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.applications.Create(ctx, application); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "you have already applied to this tuition")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create application")
	}

	s.emit(ctx, audit.ActionApplicationMade, caller, "application:"+application.ID.String(), "created", "")
	return application, nil
}

// Get returns one application, visible only to its tutor or the tuition's
// student.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	application, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeParty(ctx, application); err != nil {
		return nil, err
	}
	return application, nil
}

// ListForCaller returns the caller's applications: as applicant for tutors,
// as tuition owner for everyone else.
func (s *Service) ListForCaller(ctx context.Context) ([]*models.Application, error) {
	caller := requestcontext.Email(ctx)
	if caller == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	role, err := s.roles.ResolveRole(ctx, caller)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve caller role")
	}

	var applications []*models.Application
	if role == "tutor" {
		applications, err = s.applications.ListByTutor(ctx, caller)
	} else {
		applications, err = s.applications.ListByStudent(ctx, caller)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list applications")
	}
	return applications, nil
}

// UpdateStatus applies the two client-reachable transitions: the tutor
// withdraws, or the student rejects. Approval only happens through settlement,
// and a settled application is immutable.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status models.Status) (*models.Application, error) {
	if _, err := models.ParseStatus(string(status)); err != nil {
		return nil, err
	}

	application, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if application.PaymentStatus == models.PaymentPaid {
		return nil, dErrors.New(dErrors.CodeConflict, "a settled application cannot be changed")
	}

	caller := requestcontext.Email(ctx)
	switch status {
	case models.StatusWithdrawn:
		if !strings.EqualFold(caller, application.TutorEmail) {
			return nil, dErrors.New(dErrors.CodeForbidden, "only the applicant may withdraw")
		}
	case models.StatusRejected:
		if !strings.EqualFold(caller, application.StudentEmail) {
			return nil, dErrors.New(dErrors.CodeForbidden, "only the tuition owner may reject")
		}
	default:
		return nil, dErrors.New(dErrors.CodeValidation, "status must be withdrawn or rejected")
	}

	updated, err := s.applications.UpdateStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update application")
	}
	return updated, nil
}

// Delete removes an unsettled application. Applicant only.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	application, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if application.PaymentStatus == models.PaymentPaid {
		return dErrors.New(dErrors.CodeConflict, "a settled application cannot be deleted")
	}
	if !strings.EqualFold(requestcontext.Email(ctx), application.TutorEmail) {
		return dErrors.New(dErrors.CodeForbidden, "only the applicant may delete an application")
	}

	if err := s.applications.Delete(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "application not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete application")
	}
	return nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	application, err := s.applications.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load application")
	}
	return application, nil
}

func (s *Service) authorizeParty(ctx context.Context, application *models.Application) error {
	caller := requestcontext.Email(ctx)
	if strings.EqualFold(caller, application.TutorEmail) || strings.EqualFold(caller, application.StudentEmail) {
		return nil
	}
	return dErrors.New(dErrors.CodeForbidden, "callers may only access their own applications")
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
