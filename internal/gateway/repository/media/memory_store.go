package media

import (
	"context"
	"fmt"
	"sync"
)

type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]Object
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]Object)}
}

func (s *MemoryStore) Put(_ context.Context, data []byte, contentType string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("store is nil")
	}
	h := Hash(data)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[h]; !ok {
		s.data[h] = Object{Hash: h, ContentType: normalizeContentType(contentType), Data: append([]byte(nil), data...)}
	}
	return h, nil
}

func (s *MemoryStore) Get(_ context.Context, hash string) (Object, error) {
	if s == nil {
		return Object{}, fmt.Errorf("store is nil")
	}
	if !ValidHash(hash) {
		return Object{}, ErrInvalidHash
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.data[hash]
	if !ok {
		return Object{}, ErrNotFound
	}
	obj.Data = append([]byte(nil), obj.Data...)
	return obj, nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
