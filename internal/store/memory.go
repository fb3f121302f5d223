package store

import (
	"context"
	"errors"
	"sync"
)

var ErrNotFound = errors.New("not found")

// MemoryStateStore keeps namespaces in process memory. It is the default
// backend and the one tests use.
type MemoryStateStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{data: make(map[string][]byte)}
}

func (s *MemoryStateStore) Load(ctx context.Context, namespace string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[namespace]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (s *MemoryStateStore) Save(ctx context.Context, namespace string, value []byte) error {
	buf := make([]byte, len(value))
	copy(buf, value)
	s.mu.Lock()
	s.data[namespace] = buf
	s.mu.Unlock()
	return nil
}

// Namespaces lists stored namespaces.
func (s *MemoryStateStore) Namespaces() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.data))
	for k := range s.data {
		out = append(out, k)
	}
	return out
}
