package kv

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Memory is a mutex-guarded in-memory Store, safe for concurrent use.
// It backs unit tests and ephemeral development runs.
type Memory struct {
	mu    sync.RWMutex
	items map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string][]byte)}
}

func (s *Memory) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.items[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (s *Memory) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	s.items[key] = stored
	return nil
}

func (s *Memory) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[key]; !ok {
		return false, nil
	}
	delete(s.items, key)
	return true, nil
}

func (s *Memory) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for key := range s.items {
		if prefix == "" || strings.HasPrefix(key, prefix+":") {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Memory) GetItems(_ context.Context, keys []string) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]Item, 0, len(keys))
	for _, key := range keys {
		if value, ok := s.items[key]; ok {
			out := make([]byte, len(value))
			copy(out, value)
			items = append(items, Item{Key: key, Value: out})
		}
	}
	return items, nil
}
