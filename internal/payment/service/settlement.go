package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"tuitionhub/contracts/events"
	appmodels "tuitionhub/internal/application/models"
	"tuitionhub/internal/payment/models"
	dErrors "tuitionhub/pkg/domain-errors"
	"tuitionhub/pkg/platform/sentinel"
	"tuitionhub/pkg/requestcontext"
)

const settleTimeout = 30 * time.Second

// Settle finalizes the payment behind a checkout session: it marks the
// application approved and paid and appends the ledger row, atomically, exactly
// once per transaction. Calling it again with the same session returns the
// same receipt.
//
// The work runs detached from the caller's cancellation: once settlement
// starts it either completes or fails explicitly, and the next retry heals any
// partial state.
func (s *Service) Settle(ctx context.Context, sessionID string) (*models.Receipt, error) {
	if sessionID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "missing session id")
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, "payment.Settle")
	defer span.End()

	if receipt, ok := s.receipts.Get(ctx, sessionID); ok {
		s.countReplay()
		return receipt, nil
	}

	session, err := s.provider.RetrieveSession(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeBadRequest, "unknown checkout session")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUpstream, "checkout provider is unavailable")
	}
	if !session.Paid() {
		return nil, dErrors.New(dErrors.CodeConflict, "checkout session has not been paid")
	}

	transactionID := session.PaymentIntentID
	if transactionID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "checkout session has no payment intent")
	}
	if session.Metadata.ApplicationID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "checkout session metadata is missing the application id")
	}
	applicationID, err := uuid.Parse(session.Metadata.ApplicationID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "checkout session carries an invalid application id")
	}

	// First idempotency key: the ledger itself.
	if record, err := s.payments.FindByTransactionID(ctx, transactionID); err == nil {
		receipt := receiptFrom(record)
		s.receipts.Set(ctx, sessionID, receipt)
		s.countReplay()
		return receipt, nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, s.fail(dErrors.Wrap(err, dErrors.CodeInternal, "failed to check the payment ledger"))
	}

	application, err := s.applications.FindByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, s.fail(dErrors.New(dErrors.CodeNotFound, "application not found"))
		}
		return nil, s.fail(dErrors.Wrap(err, dErrors.CodeInternal, "failed to load application"))
	}

	// Second idempotency key: an application that already carries a different
	// transaction must never gain a second ledger row. Carrying the same
	// transaction means a previous attempt crashed between the two writes;
	// re-running the settlement write below re-inserts the missing row.
	if application.TransactionID != nil && *application.TransactionID != transactionID {
		return nil, s.fail(dErrors.New(dErrors.CodeInvariantViolation, "application is settled under a different transaction"))
	}

	now := requestcontext.Now(ctx)
	amount := session.AmountTotal / 100
	trackingID := newTrackingID(now)
	if application.TrackingID != nil && *application.TrackingID != "" {
		trackingID = *application.TrackingID
	}

	settled := &models.PaymentRecord{
		ID:            uuid.New(),
		ApplicationID: application.ID,
		TransactionID: transactionID,
		TrackingID:    trackingID,
		Amount:        amount,
		Currency:      session.Currency,
		TutorEmail:    application.TutorEmail,
		StudentEmail:  application.StudentEmail,
		CreatedAt:     now,
	}

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.applications.ApproveAndMarkPaid(ctx, application.ID, appmodels.Settlement{
			TransactionID: transactionID,
			TrackingID:    trackingID,
			PaidAmount:    amount,
			PaidAt:        now,
		}); err != nil {
			return err
		}
		if err := s.payments.Insert(ctx, settled); err != nil {
			return err
		}
		if s.auditor != nil {
			return s.auditor.EmitPaymentSettled(ctx, events.PaymentSettled{
				ApplicationID: application.ID.String(),
				TransactionID: transactionID,
				TrackingID:    trackingID,
				Amount:        amount,
				Currency:      session.Currency,
				TutorEmail:    application.TutorEmail,
				StudentEmail:  application.StudentEmail,
				SettledAt:     now,
			})
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrConflict):
			// A concurrent settlement won the unique-index race. Its row is
			// the answer.
			record, findErr := s.payments.FindByTransactionID(ctx, transactionID)
			if findErr != nil {
				return nil, s.fail(dErrors.Wrap(findErr, dErrors.CodeInternal, "failed to load the winning settlement"))
			}
			receipt := receiptFrom(record)
			s.receipts.Set(ctx, sessionID, receipt)
			s.countReplay()
			return receipt, nil
		case errors.Is(err, sentinel.ErrInvalidState):
			return nil, s.fail(dErrors.New(dErrors.CodeInvariantViolation, "application is settled under a different transaction"))
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, s.fail(dErrors.New(dErrors.CodeNotFound, "application not found"))
		default:
			span.RecordError(err)
			return nil, s.fail(dErrors.Wrap(err, dErrors.CodeInternal, "settlement failed"))
		}
	}

	receipt := receiptFrom(settled)
	s.receipts.Set(ctx, sessionID, receipt)
	if s.metrics != nil {
		s.metrics.SettlementsCompleted.Inc()
	}
	s.logger.InfoContext(ctx, "payment settled",
		"request_id", requestcontext.RequestID(ctx),
		"transaction_id", transactionID,
		"tracking_id", trackingID,
		"amount", amount,
	)
	return receipt, nil
}

func receiptFrom(record *models.PaymentRecord) *models.Receipt {
	return &models.Receipt{
		TransactionID: record.TransactionID,
		TrackingID:    record.TrackingID,
		Amount:        record.Amount,
	}
}

// newTrackingID derives a human-quotable tracking reference from the
// settlement time.
func newTrackingID(now time.Time) string {
	return "TUT-" + strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
}

func (s *Service) countReplay() {
	if s.metrics != nil {
		s.metrics.SettlementReplays.Inc()
	}
}

func (s *Service) fail(err error) error {
	if s.metrics != nil {
		s.metrics.SettlementFailures.Inc()
	}
	return err
}
