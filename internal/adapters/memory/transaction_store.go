package memory

import (
	"context"
	"sync"

	"trust-service/internal/core/domain"
)

// TransactionStore is an in-memory ports.TransactionRepository.
type TransactionStore struct {
	mu      sync.RWMutex
	records map[string]domain.Transaction
}

func NewTransactionStore() *TransactionStore {
	return &TransactionStore{records: make(map[string]domain.Transaction)}
}

func (s *TransactionStore) Create(ctx context.Context, t *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[t.ID]; ok {
		return domain.ErrConflict
	}
	s.records[t.ID] = *t
	return nil
}

func (s *TransactionStore) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

func (s *TransactionStore) Update(ctx context.Context, t *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[t.ID]; !ok {
		return domain.ErrNotFound
	}
	s.records[t.ID] = *t
	return nil
}
