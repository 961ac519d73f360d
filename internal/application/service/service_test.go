package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"tuitionhub/internal/application/models"
	"tuitionhub/internal/application/store"
	tuitionmodels "tuitionhub/internal/tuition/models"
	tuitionstore "tuitionhub/internal/tuition/store"
	dErrors "tuitionhub/pkg/domain-errors"
	"tuitionhub/pkg/requestcontext"
)

type staticRoles map[string]string

func (r staticRoles) ResolveRole(_ context.Context, email string) (string, error) {
	if role, ok := r[email]; ok {
		return role, nil
	}
	return "student", nil
}

type ApplicationServiceSuite struct {
	suite.Suite
	applications *store.InMemory
	tuitions     *tuitionstore.InMemory
	service      *Service
	ctx          context.Context
	tuitionID    uuid.UUID
}

func TestApplicationServiceSuite(t *testing.T) {
	suite.Run(t, new(ApplicationServiceSuite))
}

func (s *ApplicationServiceSuite) SetupTest() {
	s.applications = store.NewInMemory()
	s.tuitions = tuitionstore.NewInMemory()
	roles := staticRoles{
		"tutor@example.com":  "tutor",
		"tutor2@example.com": "tutor",
	}
	s.service = New(s.applications, s.tuitions, roles, nil, nil)
	s.ctx = requestcontext.WithTime(context.Background(), time.Now().UTC())

	tuition, err := tuitionmodels.NewTuition("Algebra help", "Math", "10", "Dhaka", "student@example.com", 5000, time.Now())
	s.Require().NoError(err)
	tuition.Status = tuitionmodels.StatusApproved
	s.Require().NoError(s.tuitions.Create(s.ctx, tuition))
	s.tuitionID = tuition.ID
}

func (s *ApplicationServiceSuite) asCaller(email string) context.Context {
	return requestcontext.WithEmail(s.ctx, email)
}

func (s *ApplicationServiceSuite) apply(tutor string) *models.Application {
	application, err := s.service.Apply(s.asCaller(tutor), ApplyInput{TuitionID: s.tuitionID, ExpectedSalary: 4500})
	s.Require().NoError(err)
	return application
}

func (s *ApplicationServiceSuite) TestApplyCreatesPendingUnpaid() {
	application := s.apply("tutor@example.com")
	s.Equal(models.StatusPending, application.Status)
	s.Equal(models.PaymentUnpaid, application.PaymentStatus)
	s.Equal("student@example.com", application.StudentEmail)
	s.Nil(application.TransactionID)
}

func (s *ApplicationServiceSuite) TestApplyRequiresTutorRole() {
	_, err := s.service.Apply(s.asCaller("someone@example.com"), ApplyInput{TuitionID: s.tuitionID})
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *ApplicationServiceSuite) TestApplyUnknownTuition() {
	_, err := s.service.Apply(s.asCaller("tutor@example.com"), ApplyInput{TuitionID: uuid.New()})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ApplicationServiceSuite) TestApplyPendingTuitionRefused() {
	tuition, err := tuitionmodels.NewTuition("Unmoderated", "Math", "9", "Dhaka", "student@example.com", 3000, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.tuitions.Create(s.ctx, tuition))

	_, err = s.service.Apply(s.asCaller("tutor@example.com"), ApplyInput{TuitionID: tuition.ID})
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ApplicationServiceSuite) TestApplyTwiceConflicts() {
	s.apply("tutor@example.com")

	_, err := s.service.Apply(s.asCaller("tutor@example.com"), ApplyInput{TuitionID: s.tuitionID})
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ApplicationServiceSuite) TestGetVisibleToBothParties() {
	application := s.apply("tutor@example.com")

	_, err := s.service.Get(s.asCaller("tutor@example.com"), application.ID)
	s.NoError(err)

	_, err = s.service.Get(s.asCaller("student@example.com"), application.ID)
	s.NoError(err)

	_, err = s.service.Get(s.asCaller("stranger@example.com"), application.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *ApplicationServiceSuite) TestListScopedByRole() {
	s.apply("tutor@example.com")
	s.apply("tutor2@example.com")

	mine, err := s.service.ListForCaller(s.asCaller("tutor@example.com"))
	s.Require().NoError(err)
	s.Len(mine, 1)

	incoming, err := s.service.ListForCaller(s.asCaller("student@example.com"))
	s.Require().NoError(err)
	s.Len(incoming, 2)
}

func (s *ApplicationServiceSuite) TestWithdrawByApplicantOnly() {
	application := s.apply("tutor@example.com")

	_, err := s.service.UpdateStatus(s.asCaller("student@example.com"), application.ID, models.StatusWithdrawn)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	updated, err := s.service.UpdateStatus(s.asCaller("tutor@example.com"), application.ID, models.StatusWithdrawn)
	s.Require().NoError(err)
	s.Equal(models.StatusWithdrawn, updated.Status)
}

func (s *ApplicationServiceSuite) TestRejectByOwnerOnly() {
	application := s.apply("tutor@example.com")

	_, err := s.service.UpdateStatus(s.asCaller("tutor@example.com"), application.ID, models.StatusRejected)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	updated, err := s.service.UpdateStatus(s.asCaller("student@example.com"), application.ID, models.StatusRejected)
	s.Require().NoError(err)
	s.Equal(models.StatusRejected, updated.Status)
}

func (s *ApplicationServiceSuite) TestApprovalNotReachableDirectly() {
	application := s.apply("tutor@example.com")

	_, err := s.service.UpdateStatus(s.asCaller("student@example.com"), application.ID, models.StatusApproved)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ApplicationServiceSuite) TestSettledApplicationImmutable() {
	application := s.apply("tutor@example.com")

	_, err := s.applications.ApproveAndMarkPaid(s.ctx, application.ID, models.Settlement{
		TransactionID: "pi_123",
		TrackingID:    "TUT-ABC",
		PaidAmount:    4500,
		PaidAt:        time.Now(),
	})
	s.Require().NoError(err)

	_, err = s.service.UpdateStatus(s.asCaller("tutor@example.com"), application.ID, models.StatusWithdrawn)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	err = s.service.Delete(s.asCaller("tutor@example.com"), application.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ApplicationServiceSuite) TestDeleteApplicantOnly() {
	application := s.apply("tutor@example.com")

	err := s.service.Delete(s.asCaller("student@example.com"), application.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	s.Require().NoError(s.service.Delete(s.asCaller("tutor@example.com"), application.ID))
	_, err = s.service.Get(s.asCaller("tutor@example.com"), application.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
