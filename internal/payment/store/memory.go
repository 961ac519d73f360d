package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"tuitionhub/internal/payment/models"
	"tuitionhub/pkg/platform/sentinel"
)

// InMemory is a map-backed PaymentStore for tests and local development. The
// byTransaction map mirrors the unique index the postgres store relies on.
type InMemory struct {
	mu            sync.RWMutex
	byTransaction map[string]*models.PaymentRecord
}

func NewInMemory() *InMemory {
	return &InMemory{byTransaction: make(map[string]*models.PaymentRecord)}
}

func (s *InMemory) Insert(_ context.Context, record *models.PaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byTransaction[record.TransactionID]; exists {
		return sentinel.ErrConflict
	}
	clone := *record
	s.byTransaction[record.TransactionID] = &clone
	return nil
}

func (s *InMemory) FindByTransactionID(_ context.Context, transactionID string) (*models.PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.byTransaction[transactionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *record
	return &clone, nil
}

func (s *InMemory) ListByTutor(_ context.Context, tutorEmail string) ([]*models.PaymentRecord, error) {
	return s.list(func(r *models.PaymentRecord) bool {
		return strings.EqualFold(r.TutorEmail, tutorEmail)
	}), nil
}

func (s *InMemory) ListByStudent(_ context.Context, studentEmail string) ([]*models.PaymentRecord, error) {
	return s.list(func(r *models.PaymentRecord) bool {
		return strings.EqualFold(r.StudentEmail, studentEmail)
	}), nil
}

func (s *InMemory) ListAll(_ context.Context) ([]*models.PaymentRecord, error) {
	return s.list(func(*models.PaymentRecord) bool { return true }), nil
}

func (s *InMemory) list(match func(*models.PaymentRecord) bool) []*models.PaymentRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.PaymentRecord
	for _, record := range s.byTransaction {
		if match(record) {
			clone := *record
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
