package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"tuitionhub/internal/audit"
	auditstore "tuitionhub/internal/audit/store"
	"tuitionhub/internal/identity/models"
	"tuitionhub/internal/identity/store"
	dErrors "tuitionhub/pkg/domain-errors"
	"tuitionhub/pkg/requestcontext"
)

type IdentityServiceSuite struct {
	suite.Suite
	users   *store.InMemory
	outbox  *auditstore.InMemory
	service *Service
	ctx     context.Context
}

func TestIdentityServiceSuite(t *testing.T) {
	suite.Run(t, new(IdentityServiceSuite))
}

func (s *IdentityServiceSuite) SetupTest() {
	s.users = store.NewInMemory()
	s.outbox = auditstore.NewInMemory()
	s.service = New(s.users, audit.NewPublisher(s.outbox), nil, nil)
	s.ctx = requestcontext.WithTime(context.Background(), time.Now().UTC())
}

func (s *IdentityServiceSuite) asCaller(email string) context.Context {
	return requestcontext.WithEmail(s.ctx, email)
}

func (s *IdentityServiceSuite) register(email string, role string) *models.User {
	user, created, err := s.service.Register(s.ctx, RegisterInput{
		Email: email,
		Name:  "Someone",
		Role:  role,
	})
	s.Require().NoError(err)
	s.Require().True(created)
	return user
}

func (s *IdentityServiceSuite) TestRegisterDefaultsToStudent() {
	user := s.register("new@example.com", "")
	s.Equal(models.RoleStudent, user.Role)
	s.Equal(models.StatusActive, user.Status)
}

func (s *IdentityServiceSuite) TestRegisterIsIdempotent() {
	first := s.register("again@example.com", "tutor")

	second, created, err := s.service.Register(s.ctx, RegisterInput{
		Email: "again@example.com",
		Name:  "Different Name",
		Role:  "student",
	})
	s.Require().NoError(err)
	s.False(created)
	s.Equal(first.ID, second.ID)
	s.Equal(models.RoleTutor, second.Role, "re-registration must not change the stored record")
}

func (s *IdentityServiceSuite) TestRegisterNormalizesEmailCase() {
	s.register("Mixed@Example.COM", "")

	_, created, err := s.service.Register(s.ctx, RegisterInput{Email: "mixed@example.com"})
	s.Require().NoError(err)
	s.False(created)
}

func (s *IdentityServiceSuite) TestRegisterRejectsAdminRole() {
	_, _, err := s.service.Register(s.ctx, RegisterInput{Email: "sneaky@example.com", Role: "admin"})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *IdentityServiceSuite) TestRegisterRejectsInvalidEmail() {
	_, _, err := s.service.Register(s.ctx, RegisterInput{Email: "not-an-email"})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *IdentityServiceSuite) TestRegisterEmitsAuditEvent() {
	s.register("audited@example.com", "")
	s.NotEmpty(s.outbox.All())
}

func (s *IdentityServiceSuite) TestResolveRoleKnownUser() {
	s.register("tutor@example.com", "tutor")

	role, err := s.service.ResolveRole(s.ctx, "tutor@example.com")
	s.Require().NoError(err)
	s.Equal("tutor", role)
}

func (s *IdentityServiceSuite) TestResolveRoleUnknownDefaultsToStudent() {
	role, err := s.service.ResolveRole(s.ctx, "stranger@example.com")
	s.Require().NoError(err)
	s.Equal("student", role)
}

func (s *IdentityServiceSuite) TestRoleOfReportsExistence() {
	s.register("known@example.com", "tutor")

	role, found, err := s.service.RoleOf(s.ctx, "known@example.com")
	s.Require().NoError(err)
	s.True(found)
	s.Equal(models.RoleTutor, role)

	role, found, err = s.service.RoleOf(s.ctx, "unknown@example.com")
	s.Require().NoError(err)
	s.False(found)
	s.Equal(models.RoleStudent, role)
}

func (s *IdentityServiceSuite) TestProfileOwnerOnly() {
	s.register("owner@example.com", "")

	profile, err := s.service.Profile(s.asCaller("owner@example.com"), "owner@example.com")
	s.Require().NoError(err)
	s.Equal("owner@example.com", profile.Email)

	_, err = s.service.Profile(s.asCaller("intruder@example.com"), "owner@example.com")
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *IdentityServiceSuite) TestProfileMismatchForbiddenEvenWhenMissing() {
	_, err := s.service.Profile(s.asCaller("a@example.com"), "missing@example.com")
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *IdentityServiceSuite) TestProfileMissingRecordReturnsDefault() {
	profile, err := s.service.Profile(s.asCaller("fresh@example.com"), "fresh@example.com")
	s.Require().NoError(err)
	s.Equal("fresh@example.com", profile.Email)
	s.Equal(models.RoleStudent, profile.Role)
}

func (s *IdentityServiceSuite) TestUpdateProfileOwnerOnly() {
	s.register("editor@example.com", "")
	name := "Edited"

	updated, err := s.service.UpdateProfile(s.asCaller("editor@example.com"), "editor@example.com", models.ProfileUpdate{Name: &name})
	s.Require().NoError(err)
	s.Equal("Edited", updated.Name)

	_, err = s.service.UpdateProfile(s.asCaller("other@example.com"), "editor@example.com", models.ProfileUpdate{Name: &name})
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *IdentityServiceSuite) TestLatestTutors() {
	s.register("student@example.com", "student")
	tutor := s.register("t@example.com", "tutor")

	tutors, err := s.service.LatestTutors(s.ctx, 6)
	s.Require().NoError(err)
	s.Require().Len(tutors, 1)
	s.Equal(tutor.Email, tutors[0].Email)
}

func (s *IdentityServiceSuite) TestAdminUpdateUser() {
	user := s.register("promote@example.com", "")
	role := models.RoleAdmin

	updated, err := s.service.AdminUpdateUser(s.asCaller("admin@example.com"), user.ID, models.AdminUpdate{Role: &role})
	s.Require().NoError(err)
	s.Equal(models.RoleAdmin, updated.Role)

	resolved, err := s.service.ResolveRole(s.ctx, "promote@example.com")
	s.Require().NoError(err)
	s.Equal("admin", resolved)
}

func (s *IdentityServiceSuite) TestAdminUpdateUserRejectsUnknownRole() {
	user := s.register("victim@example.com", "")
	bogus := models.Role("superuser")

	_, err := s.service.AdminUpdateUser(s.ctx, user.ID, models.AdminUpdate{Role: &bogus})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *IdentityServiceSuite) TestAdminDeleteUser() {
	user := s.register("gone@example.com", "")

	s.Require().NoError(s.service.AdminDeleteUser(s.asCaller("admin@example.com"), user.ID))
	err := s.service.AdminDeleteUser(s.asCaller("admin@example.com"), user.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
