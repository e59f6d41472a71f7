package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"trust-service/internal/core/domain"
)

// LivenessStore is an in-memory ports.LivenessRepository.
type LivenessStore struct {
	mu      sync.RWMutex
	records map[string]domain.LivenessCheck
}

func NewLivenessStore() *LivenessStore {
	return &LivenessStore{records: make(map[string]domain.LivenessCheck)}
}

func (s *LivenessStore) Create(ctx context.Context, c *domain.LivenessCheck) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[c.ID]; ok {
		return domain.ErrConflict
	}
	s.records[c.ID] = *c
	return nil
}

func (s *LivenessStore) GetByID(ctx context.Context, sessionID string) (*domain.LivenessCheck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[sessionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

func (s *LivenessStore) Update(ctx context.Context, c *domain.LivenessCheck) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[c.ID]; !ok {
		return domain.ErrNotFound
	}
	s.records[c.ID] = *c
	return nil
}

func (s *LivenessStore) FindLatestPassed(ctx context.Context, userID string) (*domain.LivenessCheck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *domain.LivenessCheck
	for _, rec := range s.records {
		if rec.UserID != userID || rec.Status != domain.LivenessPassed {
			continue
		}
		rec := rec
		if latest == nil || rec.CreatedAt.After(latest.CreatedAt) {
			latest = &rec
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	return latest, nil
}

func (s *LivenessStore) ListVideoPurgeDue(ctx context.Context, now time.Time, limit int) ([]*domain.LivenessCheck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var due []*domain.LivenessCheck
	for _, rec := range s.records {
		if rec.VideoRef == "" || rec.VideoPurgeAt == nil || rec.VideoPurgeAt.After(now) {
			continue
		}
		rec := rec
		due = append(due, &rec)
	}
	sort.Slice(due, func(i, j int) bool { return due[i].VideoPurgeAt.Before(*due[j].VideoPurgeAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (s *LivenessStore) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, rec := range s.records {
		if rec.CreatedAt.Before(cutoff) {
			delete(s.records, id)
			n++
		}
	}
	return n, nil
}
