package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"tuitionhub/internal/identity/models"
	"tuitionhub/pkg/platform/sentinel"
)

type InMemoryUserStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestInMemoryUserStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryUserStoreSuite))
}

func (s *InMemoryUserStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func (s *InMemoryUserStoreSuite) newUser(email string, role models.Role, createdAt time.Time) *models.User {
	user, err := models.NewUser(email, "Test User", "", "", role, createdAt)
	s.Require().NoError(err)
	return user
}

func (s *InMemoryUserStoreSuite) TestCreateAndFindByEmail() {
	user := s.newUser("alice@example.com", models.RoleStudent, time.Now())
	s.Require().NoError(s.store.CreateIfEmailAvailable(s.ctx, user))

	found, err := s.store.FindByEmail(s.ctx, "alice@example.com")
	s.Require().NoError(err)
	s.Equal(user.ID, found.ID)
	s.Equal("alice@example.com", found.Email)
}

func (s *InMemoryUserStoreSuite) TestCreateDuplicateEmailConflicts() {
	first := s.newUser("bob@example.com", models.RoleStudent, time.Now())
	s.Require().NoError(s.store.CreateIfEmailAvailable(s.ctx, first))

	second := s.newUser("BOB@example.com", models.RoleTutor, time.Now())
	err := s.store.CreateIfEmailAvailable(s.ctx, second)
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *InMemoryUserStoreSuite) TestConcurrentCreateSameEmailOneWinner() {
	const writers = 50

	var wg sync.WaitGroup
	results := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			user := s.newUser("race@example.com", models.RoleStudent, time.Now())
			results <- s.store.CreateIfEmailAvailable(s.ctx, user)
		}()
	}
	wg.Wait()
	close(results)

	var successes, conflicts int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case s.ErrorIs(err, sentinel.ErrConflict):
			conflicts++
		}
	}
	s.Equal(1, successes)
	s.Equal(writers-1, conflicts)
}

func (s *InMemoryUserStoreSuite) TestFindByEmailNotFound() {
	_, err := s.store.FindByEmail(s.ctx, "nobody@example.com")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryUserStoreSuite) TestFindByID() {
	user := s.newUser("carol@example.com", models.RoleTutor, time.Now())
	s.Require().NoError(s.store.CreateIfEmailAvailable(s.ctx, user))

	found, err := s.store.FindByID(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Equal(user.Email, found.Email)

	_, err = s.store.FindByID(s.ctx, uuid.New())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryUserStoreSuite) TestUpdateProfilePartial() {
	user := s.newUser("dave@example.com", models.RoleStudent, time.Now())
	s.Require().NoError(s.store.CreateIfEmailAvailable(s.ctx, user))

	name := "Dave Updated"
	updated, err := s.store.UpdateProfile(s.ctx, "dave@example.com", models.ProfileUpdate{Name: &name})
	s.Require().NoError(err)
	s.Equal("Dave Updated", updated.Name)
	s.Equal(user.Phone, updated.Phone)

	_, err = s.store.UpdateProfile(s.ctx, "ghost@example.com", models.ProfileUpdate{Name: &name})
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryUserStoreSuite) TestAdminUpdateRoleAndStatus() {
	user := s.newUser("eve@example.com", models.RoleStudent, time.Now())
	s.Require().NoError(s.store.CreateIfEmailAvailable(s.ctx, user))

	role := models.RoleAdmin
	status := models.StatusSuspended
	updated, err := s.store.AdminUpdate(s.ctx, user.ID, models.AdminUpdate{Role: &role, Status: &status})
	s.Require().NoError(err)
	s.Equal(models.RoleAdmin, updated.Role)
	s.Equal(models.StatusSuspended, updated.Status)
}

func (s *InMemoryUserStoreSuite) TestDelete() {
	user := s.newUser("frank@example.com", models.RoleStudent, time.Now())
	s.Require().NoError(s.store.CreateIfEmailAvailable(s.ctx, user))

	s.Require().NoError(s.store.Delete(s.ctx, user.ID))
	_, err := s.store.FindByEmail(s.ctx, "frank@example.com")
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.ErrorIs(s.store.Delete(s.ctx, user.ID), sentinel.ErrNotFound)
}

func (s *InMemoryUserStoreSuite) TestListNewestFirst() {
	base := time.Now()
	old := s.newUser("old@example.com", models.RoleStudent, base.Add(-time.Hour))
	recent := s.newUser("recent@example.com", models.RoleStudent, base)
	s.Require().NoError(s.store.CreateIfEmailAvailable(s.ctx, old))
	s.Require().NoError(s.store.CreateIfEmailAvailable(s.ctx, recent))

	users, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(users, 2)
	s.Equal("recent@example.com", users[0].Email)
}

func (s *InMemoryUserStoreSuite) TestListByRoleFiltersAndLimits() {
	base := time.Now()
	for i, email := range []string{"t1@example.com", "t2@example.com", "t3@example.com"} {
		tutor := s.newUser(email, models.RoleTutor, base.Add(time.Duration(i)*time.Minute))
		s.Require().NoError(s.store.CreateIfEmailAvailable(s.ctx, tutor))
	}
	student := s.newUser("s1@example.com", models.RoleStudent, base)
	s.Require().NoError(s.store.CreateIfEmailAvailable(s.ctx, student))

	suspended := s.newUser("t4@example.com", models.RoleTutor, base)
	s.Require().NoError(s.store.CreateIfEmailAvailable(s.ctx, suspended))
	status := models.StatusSuspended
	_, err := s.store.AdminUpdate(s.ctx, suspended.ID, models.AdminUpdate{Status: &status})
	s.Require().NoError(err)

	tutors, err := s.store.ListByRole(s.ctx, models.RoleTutor, models.StatusActive, 2)
	s.Require().NoError(err)
	s.Require().Len(tutors, 2)
	s.Equal("t3@example.com", tutors[0].Email)
	s.Equal("t2@example.com", tutors[1].Email)
}
