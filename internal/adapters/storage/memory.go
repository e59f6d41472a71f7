package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"trust-service/internal/core/ports"
)

// MemoryStore is an in-memory ports.BlobStore for dev and tests. It mirrors
// the S3 store's content-addressed key scheme.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

var _ ports.BlobStore = (*MemoryStore)(nil)

func (s *MemoryStore) Upload(ctx context.Context, data []byte, pathHint, contentType string) (*ports.BlobUpload, error) {
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	key := strings.TrimSuffix(pathHint, "/") + "/" + hash

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = append([]byte(nil), data...)
	return &ports.BlobUpload{Ref: key, SHA256: hash}, nil
}

func (s *MemoryStore) Delete(ctx context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[ref]; !ok {
		return fmt.Errorf("blob %s not found", ref)
	}
	delete(s.blobs, ref)
	return nil
}

// Get returns a stored blob, used by tests to assert on purge behavior.
func (s *MemoryStore) Get(ref string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[ref]
	return b, ok
}

// Len reports how many blobs are held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
