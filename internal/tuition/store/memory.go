package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"tuitionhub/internal/tuition/models"
	"tuitionhub/pkg/platform/sentinel"
)

// InMemory is a map-backed TuitionStore for tests and local development.
type InMemory struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]*models.Tuition
}

func NewInMemory() *InMemory {
	return &InMemory{byID: make(map[uuid.UUID]*models.Tuition)}
}

func (s *InMemory) Create(_ context.Context, tuition *models.Tuition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *tuition
	s.byID[tuition.ID] = &clone
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id uuid.UUID) (*models.Tuition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tuition, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *tuition
	return &clone, nil
}

func (s *InMemory) Update(_ context.Context, id uuid.UUID, update models.Update) (*models.Tuition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tuition, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if update.Title != nil {
		tuition.Title = *update.Title
	}
	if update.Subject != nil {
		tuition.Subject = *update.Subject
	}
	if update.ClassLevel != nil {
		tuition.ClassLevel = *update.ClassLevel
	}
	if update.Location != nil {
		tuition.Location = *update.Location
	}
	if update.Salary != nil {
		tuition.Salary = *update.Salary
	}
	if update.Status != nil {
		tuition.Status = *update.Status
	}
	clone := *tuition
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

func (s *InMemory) List(_ context.Context, filter models.Filter) ([]*models.Tuition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Tuition
	for _, tuition := range s.byID {
		if !matches(tuition, filter) {
			continue
		}
		clone := *tuition
		out = append(out, &clone)
	}
	sortTuitions(out, filter)
	return out, nil
}

func matches(t *models.Tuition, f models.Filter) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.StudentEmail != "" && !strings.EqualFold(t.StudentEmail, f.StudentEmail) {
		return false
	}
	if f.ClassLevel != "" && !strings.EqualFold(t.ClassLevel, f.ClassLevel) {
		return false
	}
	if f.Subject != "" && !containsFold(t.Subject, f.Subject) {
		return false
	}
	if f.Location != "" && !containsFold(t.Location, f.Location) {
		return false
	}
	if f.Search != "" {
		if !containsFold(t.Title, f.Search) && !containsFold(t.Subject, f.Search) && !containsFold(t.Location, f.Search) {
			return false
		}
	}
	return true
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func sortTuitions(tuitions []*models.Tuition, filter models.Filter) {
	less := func(i, j int) bool {
		if filter.SortBy == models.SortBySalary {
			if tuitions[i].Salary != tuitions[j].Salary {
				return tuitions[i].Salary < tuitions[j].Salary
			}
			return tuitions[i].CreatedAt.Before(tuitions[j].CreatedAt)
		}
		return tuitions[i].CreatedAt.Before(tuitions[j].CreatedAt)
	}
	if filter.SortAsc {
		sort.Slice(tuitions, less)
		return
	}
	sort.Slice(tuitions, func(i, j int) bool { return less(j, i) })
}
