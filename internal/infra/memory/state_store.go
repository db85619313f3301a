package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// StateStore keeps JSON documents in a map. Values are encoded on Save so
// callers never share memory with the store.
type StateStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func NewStateStore() *StateStore {
	return &StateStore{docs: make(map[string][]byte)}
}

func (s *StateStore) Load(_ context.Context, key string, dst any) (bool, error) {
	s.mu.RLock()
	data, ok := s.docs[key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return true, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *StateStore) Save(_ context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	s.mu.Lock()
	s.docs[key] = data
	s.mu.Unlock()
	return nil
}

// Raw returns the stored bytes for key.
func (s *StateStore) Raw(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.docs[key]
	return append([]byte(nil), data...), ok
}
