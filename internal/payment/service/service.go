// Package service implements checkout session creation and payment
// settlement. Settlement is the exactly-once core: every client-visible retry
// path converges on one ledger row per transaction.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	appmodels "tuitionhub/internal/application/models"
	appstore "tuitionhub/internal/application/store"
	"tuitionhub/internal/audit"
	"tuitionhub/internal/payment/models"
	"tuitionhub/internal/payment/provider"
	"tuitionhub/internal/payment/store"
	"tuitionhub/internal/platform/metrics"
	dErrors "tuitionhub/pkg/domain-errors"
	"tuitionhub/pkg/platform/sentinel"
	txpkg "tuitionhub/pkg/platform/tx"
	"tuitionhub/pkg/requestcontext"
)

const currency = "usd"

// Deps wires the settlement engine's collaborators.
type Deps struct {
	Provider     provider.CheckoutProvider
	Payments     store.PaymentStore
	Applications appstore.ApplicationStore
	Runner       txpkg.Runner
	Receipts     *ReceiptCache
	Auditor      *audit.Publisher
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
	SiteDomain   string
}

// Service handles checkout and settlement.
type Service struct {
	provider     provider.CheckoutProvider
	payments     store.PaymentStore
	applications appstore.ApplicationStore
	runner       txpkg.Runner
	receipts     *ReceiptCache
	auditor      *audit.Publisher
	metrics      *metrics.Metrics
	logger       *slog.Logger
	tracer       trace.Tracer
	siteDomain   string
}

func New(deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	runner := deps.Runner
	if runner == nil {
		runner = txpkg.NoopRunner{}
	}
	return &Service{
		provider:     deps.Provider,
		payments:     deps.Payments,
		applications: deps.Applications,
		runner:       runner,
		receipts:     deps.Receipts,
		auditor:      deps.Auditor,
		metrics:      deps.Metrics,
		logger:       logger,
		tracer:       otel.Tracer("tuitionhub/payment"),
		siteDomain:   strings.TrimRight(deps.SiteDomain, "/"),
	}
}

// CheckoutInput identifies the application being paid for.
type CheckoutInput struct {
	ApplicationID uuid.UUID `json:"applicationId"`
}

// CheckoutSession is the client-facing view of a created provider session.
type CheckoutSession struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// CreateCheckoutSession opens a provider session for the caller's unpaid
// application. Only the tuition's student pays, and the amount comes from the
// stored expected salary, never the request.
func (s *Service) CreateCheckoutSession(ctx context.Context, input CheckoutInput) (*CheckoutSession, error) {
	ctx, span := s.tracer.Start(ctx, "payment.CreateCheckoutSession")
	defer span.End()

	caller := requestcontext.Email(ctx)
	if caller == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	application, err := s.applications.FindByID(ctx, input.ApplicationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load application")
	}
	if !strings.EqualFold(caller, application.StudentEmail) {
		return nil, dErrors.New(dErrors.CodeForbidden, "only the tuition owner may pay for an application")
	}
	if application.PaymentStatus == appmodels.PaymentPaid {
		return nil, dErrors.New(dErrors.CodeConflict, "application is already paid")
	}
	if application.ExpectedSalary <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "application has no payable amount")
	}

	session, err := s.provider.CreateSession(ctx, provider.CreateSessionInput{
		AmountTotal:   application.ExpectedSalary * 100,
		Currency:      currency,
		ProductName:   "Tuition fee",
		CustomerEmail: application.StudentEmail,
		SuccessURL:    s.siteDomain + "/payment/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     s.siteDomain + "/payment/cancel",
		Metadata: provider.Metadata{
			ApplicationID: application.ID.String(),
			TutorEmail:    application.TutorEmail,
			StudentEmail:  application.StudentEmail,
		},
	})
	if err != nil {
		span.RecordError(err)
		return nil, dErrors.Wrap(err, dErrors.CodeUpstream, "checkout provider is unavailable")
	}

	if s.metrics != nil {
		s.metrics.CheckoutSessionsCreated.Inc()
	}
	return &CheckoutSession{SessionID: session.ID, URL: session.URL}, nil
}

// ListByTutor returns the ledger rows crediting a tutor.
func (s *Service) ListByTutor(ctx context.Context, tutorEmail string) ([]*models.PaymentRecord, error) {
	records, err := s.payments.ListByTutor(ctx, tutorEmail)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list payments")
	}
	return records, nil
}

// ListByStudent returns the ledger rows debiting a student.
func (s *Service) ListByStudent(ctx context.Context, studentEmail string) ([]*models.PaymentRecord, error) {
	records, err := s.payments.ListByStudent(ctx, studentEmail)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list payments")
	}
	return records, nil
}

// Report aggregates the whole ledger for the admin dashboard.
func (s *Service) Report(ctx context.Context) (*models.Report, error) {
	records, err := s.payments.ListAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load payments")
	}

	report := &models.Report{
		TransactionCount: len(records),
		Payments:         records,
	}
	if report.Payments == nil {
		report.Payments = []*models.PaymentRecord{}
	}
	for _, record := range records {
		report.TotalEarnings += record.Amount
	}
	return report, nil
}
