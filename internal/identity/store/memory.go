package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"tuitionhub/internal/identity/models"
	"tuitionhub/pkg/platform/sentinel"
)

// InMemory is a map-backed UserStore for tests and local development. It
// mirrors the postgres store's semantics, including email uniqueness.
type InMemory struct {
	mu      sync.RWMutex
	byEmail map[string]*models.User
}

func NewInMemory() *InMemory {
	return &InMemory{byEmail: make(map[string]*models.User)}
}

func (s *InMemory) CreateIfEmailAvailable(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(user.Email)
	if _, exists := s.byEmail[key]; exists {
		return sentinel.ErrConflict
	}
	clone := *user
	s.byEmail[key] = &clone
	return nil
}

func (s *InMemory) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (s *InMemory) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.byEmail {
		if user.ID == id {
			clone := *user
			return &clone, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) UpdateProfile(_ context.Context, email string, update models.ProfileUpdate) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if update.Name != nil {
		user.Name = *update.Name
	}
	if update.PhotoURL != nil {
		user.PhotoURL = *update.PhotoURL
	}
	if update.Phone != nil {
		user.Phone = *update.Phone
	}
	clone := *user
	return &clone, nil
}

func (s *InMemory) AdminUpdate(_ context.Context, id uuid.UUID, update models.AdminUpdate) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.byEmail {
		if user.ID == id {
			if update.Role != nil {
				user.Role = *update.Role
			}
			if update.Status != nil {
				user.Status = *update.Status
			}
			clone := *user
			return &clone, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, user := range s.byEmail {
		if user.ID == id {
			delete(s.byEmail, key)
			return nil
		}
	}
	return sentinel.ErrNotFound
}

func (s *InMemory) List(_ context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*models.User, 0, len(s.byEmail))
	for _, user := range s.byEmail {
		clone := *user
		users = append(users, &clone)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	return users, nil
}

func (s *InMemory) ListByRole(_ context.Context, role models.Role, status models.Status, limit int) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var users []*models.User
	for _, user := range s.byEmail {
		if user.Role == role && user.Status == status {
			clone := *user
			users = append(users, &clone)
		}
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}
