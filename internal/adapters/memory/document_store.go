package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"trust-service/internal/core/domain"
)

// DocumentStore is an in-memory ports.IDVerificationRepository.
type DocumentStore struct {
	mu      sync.RWMutex
	records map[string]domain.IDVerification
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{records: make(map[string]domain.IDVerification)}
}

func (s *DocumentStore) Create(ctx context.Context, v *domain.IDVerification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[v.ID]; ok {
		return domain.ErrConflict
	}
	s.records[v.ID] = *v
	return nil
}

func (s *DocumentStore) GetByID(ctx context.Context, id string) (*domain.IDVerification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

func (s *DocumentStore) Update(ctx context.Context, v *domain.IDVerification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[v.ID]; !ok {
		return domain.ErrNotFound
	}
	s.records[v.ID] = *v
	return nil
}

func (s *DocumentStore) ListExpired(ctx context.Context, now time.Time, limit int) ([]*domain.IDVerification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var expired []*domain.IDVerification
	for _, rec := range s.records {
		if rec.ExpiresAt.After(now) {
			continue
		}
		rec := rec
		expired = append(expired, &rec)
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].ExpiresAt.Before(expired[j].ExpiresAt) })
	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}
	return expired, nil
}

func (s *DocumentStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.records, id)
	return nil
}
