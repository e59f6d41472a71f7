package memory

import (
	"context"
	"sync"
	"time"

	"trust-service/internal/core/domain"
)

// SMSStore is an in-memory ports.SMSVerificationRepository. It is the
// uniqueness authority for the one-pending-code-per-user rule: Create checks
// and inserts under one lock, the same guarantee the partial unique index
// gives the Postgres adapter.
type SMSStore struct {
	mu      sync.RWMutex
	records map[string]domain.SMSVerification
}

func NewSMSStore() *SMSStore {
	return &SMSStore{records: make(map[string]domain.SMSVerification)}
}

func (s *SMSStore) Create(ctx context.Context, v *domain.SMSVerification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for _, rec := range s.records {
		if rec.UserID == v.UserID && rec.Status == domain.SMSPending && rec.ExpiresAt.After(now) {
			return domain.ErrConflict
		}
	}
	s.records[v.ID] = *v
	return nil
}

func (s *SMSStore) GetByID(ctx context.Context, id string) (*domain.SMSVerification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

func (s *SMSStore) GetPending(ctx context.Context, id, userID string) (*domain.SMSVerification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok || rec.UserID != userID || rec.Status != domain.SMSPending {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

func (s *SMSStore) FindActiveByUser(ctx context.Context, userID string, now time.Time) (*domain.SMSVerification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.records {
		if rec.UserID == userID && rec.Status == domain.SMSPending && rec.ExpiresAt.After(now) {
			out := rec
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *SMSStore) Update(ctx context.Context, v *domain.SMSVerification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[v.ID]; !ok {
		return domain.ErrNotFound
	}
	s.records[v.ID] = *v
	return nil
}

func (s *SMSStore) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, rec := range s.records {
		if rec.ExpiresAt.Before(cutoff) {
			delete(s.records, id)
			n++
		}
	}
	return n, nil
}
