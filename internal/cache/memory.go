package cache

import (
	"context"
	"fmt"
	"time"
)

var _ Store = (*MemoryStore)(nil)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore keeps expiring entries in an ARC cache. It is the default store
// when neither redis nor badger is configured.
type MemoryStore struct {
	lru *LRU
	now func() time.Time
}

func NewMemoryStore(size int) (*MemoryStore, error) {
	lru, err := NewLRU(size)
	if err != nil {
		return nil, fmt.Errorf("new lru: %w", err)
	}

	return &MemoryStore{lru: lru, now: time.Now}, nil
}

func (s *MemoryStore) SetEx(_ context.Context, key string, ttl time.Duration, value string) error {
	if ttl <= 0 {
		return fmt.Errorf("invalid ttl %s for key %q", ttl, key)
	}

	s.lru.Add(key, memoryEntry{value: value, expiresAt: s.now().Add(ttl)})
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := s.lru.Get(key)
	if !ok {
		return "", false, nil
	}

	entry := v.(memoryEntry)
	if !s.now().Before(entry.expiresAt) {
		s.lru.Delete(key)
		return "", false, nil
	}

	return entry.value, true, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
