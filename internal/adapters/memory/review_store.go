package memory

import (
	"context"
	"sort"
	"sync"

	"trust-service/internal/core/domain"
)

// ReviewStore is an in-memory ports.ReviewRepository. Create enforces the
// one-review-per-reviewer-per-transaction rule under the store lock.
type ReviewStore struct {
	mu      sync.RWMutex
	records map[string]domain.Review
}

func NewReviewStore() *ReviewStore {
	return &ReviewStore{records: make(map[string]domain.Review)}
}

func (s *ReviewStore) Create(ctx context.Context, r *domain.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.ReviewerID == r.ReviewerID && rec.TransactionID == r.TransactionID {
			return domain.ErrConflict
		}
	}
	s.records[r.ID] = *r
	return nil
}

func (s *ReviewStore) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

func (s *ReviewStore) Update(ctx context.Context, r *domain.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[r.ID]; !ok {
		return domain.ErrNotFound
	}
	s.records[r.ID] = *r
	return nil
}

func (s *ReviewStore) FindByReviewerAndTransaction(ctx context.Context, reviewerID, transactionID string) (*domain.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.records {
		if rec.ReviewerID == reviewerID && rec.TransactionID == transactionID {
			out := rec
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *ReviewStore) ListPublicByReviewee(ctx context.Context, revieweeID string, role domain.ReviewRole, offset, limit int) ([]*domain.Review, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []*domain.Review
	for _, rec := range s.records {
		if rec.RevieweeID != revieweeID || !rec.IsPublic {
			continue
		}
		if role != "" && rec.Role != role {
			continue
		}
		rec := rec
		matched = append(matched, &rec)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := len(matched)
	if offset > len(matched) {
		offset = len(matched)
	}
	matched = matched[offset:]
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}
