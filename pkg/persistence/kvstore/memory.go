package kvstore

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// MemoryStore keeps values in a map. It is what tests and one-shot CLI runs use.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

var _ Store = &MemoryStore{}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]string{}}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	if s == nil {
		return "", false, errors.New("memory kv store: nil store")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", false, errors.New("memory kv store: key is empty")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value string) error {
	if s == nil {
		return errors.New("memory kv store: nil store")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("memory kv store: key is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	if s == nil {
		return errors.New("memory kv store: nil store")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, strings.TrimSpace(key))
	return nil
}

// Keys lists the stored keys, mostly for debugging and tests.
func (s *MemoryStore) Keys() []string {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	return keys
}
