package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tuitionhub/pkg/platform/sentinel"
)

// InMemory is a slice-backed OutboxStore for tests and brokerless setups.
type InMemory struct {
	mu      sync.RWMutex
	entries []*Entry
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Append(_ context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *entry
	clone.Payload = append([]byte(nil), entry.Payload...)
	s.entries = append(s.entries, &clone)
	return nil
}

func (s *InMemory) ListPending(_ context.Context, limit int) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pending []*Entry
	for _, entry := range s.entries {
		if entry.PublishedAt == nil {
			clone := *entry
			pending = append(pending, &clone)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (s *InMemory) MarkPublished(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range s.entries {
		if entry.ID == id {
			published := at
			entry.PublishedAt = &published
			return nil
		}
	}
	return sentinel.ErrNotFound
}

// All returns every entry, published or not. Test helper.
func (s *InMemory) All() []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		clone := *entry
		out = append(out, &clone)
	}
	return out
}
