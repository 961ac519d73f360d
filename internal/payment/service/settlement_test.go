package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	appmodels "tuitionhub/internal/application/models"
	appstore "tuitionhub/internal/application/store"
	"tuitionhub/internal/payment/models"
	"tuitionhub/internal/payment/provider"
	"tuitionhub/internal/payment/provider/mocks"
	"tuitionhub/internal/payment/store"
	dErrors "tuitionhub/pkg/domain-errors"
	"tuitionhub/pkg/platform/sentinel"
	"tuitionhub/pkg/requestcontext"
)

type SettlementSuite struct {
	suite.Suite
	ctrl         *gomock.Controller
	provider     *mocks.MockCheckoutProvider
	payments     *store.InMemory
	applications *appstore.InMemory
	service      *Service
	ctx          context.Context
	application  *appmodels.Application
}

func TestSettlementSuite(t *testing.T) {
	suite.Run(t, new(SettlementSuite))
}

func (s *SettlementSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.provider = mocks.NewMockCheckoutProvider(s.ctrl)
	s.payments = store.NewInMemory()
	s.applications = appstore.NewInMemory()
	s.service = New(Deps{
		Provider:     s.provider,
		Payments:     s.payments,
		Applications: s.applications,
		SiteDomain:   "http://localhost:3000",
	})
	s.ctx = requestcontext.WithTime(context.Background(), time.Now().UTC())

	application, err := appmodels.NewApplication(uuid.New(), "student@example.com", "tutor@example.com", 5000, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.applications.Create(s.ctx, application))
	s.application = application
}

func (s *SettlementSuite) paidSession(sessionID, paymentIntent string, amountTotal int64) *provider.Session {
	return &provider.Session{
		ID:              sessionID,
		PaymentIntentID: paymentIntent,
		AmountTotal:     amountTotal,
		Currency:        "usd",
		PaymentStatus:   "paid",
		Metadata: provider.Metadata{
			ApplicationID: s.application.ID.String(),
			TutorEmail:    s.application.TutorEmail,
			StudentEmail:  s.application.StudentEmail,
		},
	}
}

func (s *SettlementSuite) TestMissingSessionID() {
	_, err := s.service.Settle(s.ctx, "")
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *SettlementSuite) TestFreshSettlement() {
	s.provider.EXPECT().RetrieveSession(gomock.Any(), "cs_1").Return(s.paidSession("cs_1", "pi_1", 500000), nil)

	receipt, err := s.service.Settle(s.ctx, "cs_1")
	s.Require().NoError(err)
	s.Equal("pi_1", receipt.TransactionID)
	s.Equal(int64(5000), receipt.Amount, "amount_total is converted back to whole units")
	s.NotEmpty(receipt.TrackingID)

	application, err := s.applications.FindByID(s.ctx, s.application.ID)
	s.Require().NoError(err)
	s.Equal(appmodels.StatusApproved, application.Status)
	s.Equal(appmodels.PaymentPaid, application.PaymentStatus)
	s.Require().NotNil(application.TransactionID)
	s.Equal("pi_1", *application.TransactionID)

	record, err := s.payments.FindByTransactionID(s.ctx, "pi_1")
	s.Require().NoError(err)
	s.Equal(receipt.TrackingID, record.TrackingID)
}

func (s *SettlementSuite) TestReplayReturnsSameReceipt() {
	s.provider.EXPECT().RetrieveSession(gomock.Any(), "cs_1").Return(s.paidSession("cs_1", "pi_1", 500000), nil).Times(3)

	first, err := s.service.Settle(s.ctx, "cs_1")
	s.Require().NoError(err)

	for i := 0; i < 2; i++ {
		again, err := s.service.Settle(s.ctx, "cs_1")
		s.Require().NoError(err)
		s.Equal(first, again)
	}

	all, err := s.payments.ListAll(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 1, "replays never add ledger rows")
}

func (s *SettlementSuite) TestUnknownSession() {
	s.provider.EXPECT().RetrieveSession(gomock.Any(), "cs_missing").Return(nil, sentinel.ErrNotFound)

	_, err := s.service.Settle(s.ctx, "cs_missing")
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *SettlementSuite) TestProviderUnavailable() {
	s.provider.EXPECT().RetrieveSession(gomock.Any(), "cs_1").Return(nil, errors.New("connection refused"))

	_, err := s.service.Settle(s.ctx, "cs_1")
	s.True(dErrors.HasCode(err, dErrors.CodeUpstream))
}

func (s *SettlementSuite) TestUnpaidSessionRefused() {
	session := s.paidSession("cs_1", "pi_1", 500000)
	session.PaymentStatus = "unpaid"
	s.provider.EXPECT().RetrieveSession(gomock.Any(), "cs_1").Return(session, nil)

	_, err := s.service.Settle(s.ctx, "cs_1")
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	all, listErr := s.payments.ListAll(s.ctx)
	s.Require().NoError(listErr)
	s.Empty(all)
}

func (s *SettlementSuite) TestMissingMetadataRefused() {
	session := s.paidSession("cs_1", "pi_1", 500000)
	session.Metadata.ApplicationID = ""
	s.provider.EXPECT().RetrieveSession(gomock.Any(), "cs_1").Return(session, nil)

	_, err := s.service.Settle(s.ctx, "cs_1")
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))

	application, loadErr := s.applications.FindByID(s.ctx, s.application.ID)
	s.Require().NoError(loadErr)
	s.Equal(appmodels.PaymentUnpaid, application.PaymentStatus, "nothing is written on a refused settlement")
}

func (s *SettlementSuite) TestMissingPaymentIntentRefused() {
	session := s.paidSession("cs_1", "", 500000)
	s.provider.EXPECT().RetrieveSession(gomock.Any(), "cs_1").Return(session, nil)

	_, err := s.service.Settle(s.ctx, "cs_1")
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *SettlementSuite) TestPersistenceFailureIsNotSuccess() {
	failing := &failingPayments{PaymentStore: s.payments}
	s.service = New(Deps{
		Provider:     s.provider,
		Payments:     failing,
		Applications: s.applications,
		SiteDomain:   "http://localhost:3000",
	})
	s.provider.EXPECT().RetrieveSession(gomock.Any(), "cs_1").Return(s.paidSession("cs_1", "pi_1", 500000), nil)

	_, err := s.service.Settle(s.ctx, "cs_1")
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *SettlementSuite) TestConcurrentSettlementsOneLedgerRow() {
	const callers = 20
	s.provider.EXPECT().RetrieveSession(gomock.Any(), "cs_1").Return(s.paidSession("cs_1", "pi_1", 500000), nil).Times(callers)

	var wg sync.WaitGroup
	receipts := make(chan *models.Receipt, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			receipt, err := s.service.Settle(s.ctx, "cs_1")
			s.NoError(err)
			receipts <- receipt
		}()
	}
	wg.Wait()
	close(receipts)

	var first *models.Receipt
	for receipt := range receipts {
		if first == nil {
			first = receipt
			continue
		}
		s.Equal(first.TransactionID, receipt.TransactionID)
	}

	all, err := s.payments.ListAll(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 1, "concurrent settlements converge on one ledger row")
}

func (s *SettlementSuite) TestHalfSettledStateHeals() {
	// Simulate a crash between the application write and the ledger insert.
	_, err := s.applications.ApproveAndMarkPaid(s.ctx, s.application.ID, appmodels.Settlement{
		TransactionID: "pi_1",
		TrackingID:    "TUT-EARLIER",
		PaidAmount:    5000,
		PaidAt:        time.Now(),
	})
	s.Require().NoError(err)

	s.provider.EXPECT().RetrieveSession(gomock.Any(), "cs_1").Return(s.paidSession("cs_1", "pi_1", 500000), nil)

	receipt, err := s.service.Settle(s.ctx, "cs_1")
	s.Require().NoError(err)
	s.Equal("TUT-EARLIER", receipt.TrackingID, "the retry reuses the original tracking id")

	record, err := s.payments.FindByTransactionID(s.ctx, "pi_1")
	s.Require().NoError(err)
	s.Equal("TUT-EARLIER", record.TrackingID)
}

func (s *SettlementSuite) TestDifferentTransactionOnApplicationRefused() {
	_, err := s.applications.ApproveAndMarkPaid(s.ctx, s.application.ID, appmodels.Settlement{
		TransactionID: "pi_other",
		TrackingID:    "TUT-OTHER",
		PaidAmount:    5000,
		PaidAt:        time.Now(),
	})
	s.Require().NoError(err)

	s.provider.EXPECT().RetrieveSession(gomock.Any(), "cs_1").Return(s.paidSession("cs_1", "pi_1", 500000), nil)

	_, err = s.service.Settle(s.ctx, "cs_1")
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

// failingPayments wraps a PaymentStore and fails every insert.
type failingPayments struct {
	store.PaymentStore
}

func (f *failingPayments) Insert(context.Context, *models.PaymentRecord) error {
	return errors.New("disk full")
}
