package kv

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Backend for tests and ephemeral deployments.
// Values are copied on the way in and out so callers never share buffers
// with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]memoryRecord
	closed  bool
	now     func() time.Time
}

type memoryRecord struct {
	value     []byte
	revision  string
	updatedAt time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]memoryRecord),
		now:     time.Now,
	}
}

// Get returns a copy of the value stored under key.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, false, ErrClosed
	}
	record, ok := s.records[key]
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(record.value), true, nil
}

// Set stores a copy of value under key, replacing any previous value.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.records[key] = memoryRecord{
		value:     bytes.Clone(value),
		revision:  uuid.NewString(),
		updatedAt: s.now().UTC(),
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	delete(s.records, key)
	return nil
}

// List returns entries whose key starts with prefix, ordered by key.
func (s *MemoryStore) List(_ context.Context, prefix string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	entries := make([]Entry, 0, len(s.records))
	for key, record := range s.records {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		entries = append(entries, Entry{
			Key:       key,
			Size:      len(record.value),
			Revision:  record.revision,
			UpdatedAt: record.updatedAt,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key < entries[j].Key
	})
	return entries, nil
}

// Ping reports whether the store is still open.
func (s *MemoryStore) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Close marks the store closed and drops its contents.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.records = nil
	return nil
}
