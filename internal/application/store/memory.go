package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"tuitionhub/internal/application/models"
	"tuitionhub/pkg/platform/sentinel"
)

// InMemory is a map-backed ApplicationStore for tests and local development.
type InMemory struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]*models.Application
}

func NewInMemory() *InMemory {
	return &InMemory{byID: make(map[uuid.UUID]*models.Application)}
}

func (s *InMemory) Create(_ context.Context, application *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.byID {
		if existing.TuitionID == application.TuitionID && strings.EqualFold(existing.TutorEmail, application.TutorEmail) {
			return sentinel.ErrConflict
		}
	}
	clone := *application
	s.byID[application.ID] = &clone
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id uuid.UUID) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	application, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *application
	return &clone, nil
}

func (s *InMemory) FindByTuitionAndTutor(_ context.Context, tuitionID uuid.UUID, tutorEmail string) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, application := range s.byID {
		if application.TuitionID == tuitionID && strings.EqualFold(application.TutorEmail, tutorEmail) {
			clone := *application
			return &clone, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) UpdateStatus(_ context.Context, id uuid.UUID, status models.Status) (*models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	application, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	application.Status = status
	clone := *application
	return &clone, nil
}

func (s *InMemory) ApproveAndMarkPaid(_ context.Context, id uuid.UUID, settlement models.Settlement) (*models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	application, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if application.TransactionID != nil && *application.TransactionID != settlement.TransactionID {
		return nil, sentinel.ErrInvalidState
	}

	transactionID := settlement.TransactionID
	trackingID := settlement.TrackingID
	paidAmount := settlement.PaidAmount
	paidAt := settlement.PaidAt

	application.Status = models.StatusApproved
	application.PaymentStatus = models.PaymentPaid
	application.TransactionID = &transactionID
	application.TrackingID = &trackingID
	application.PaidAmount = &paidAmount
	application.PaidAt = &paidAt

	clone := *application
	return &clone, nil
}

func (s *InMemory) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

func (s *InMemory) ListByTutor(_ context.Context, tutorEmail string) ([]*models.Application, error) {
	return s.list(func(a *models.Application) bool {
		return strings.EqualFold(a.TutorEmail, tutorEmail)
	}), nil
}

func (s *InMemory) ListByStudent(_ context.Context, studentEmail string) ([]*models.Application, error) {
	return s.list(func(a *models.Application) bool {
		return strings.EqualFold(a.StudentEmail, studentEmail)
	}), nil
}

func (s *InMemory) list(match func(*models.Application) bool) []*models.Application {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Application
	for _, application := range s.byID {
		if match(application) {
			clone := *application
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
