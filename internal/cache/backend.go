package cache

import (
	"context"
	"sync"
)

// Backend is one cache store. Lookups never fail: anything that goes wrong
// is reported as a miss, and Put reports false.
type Backend interface {
	Get(ctx context.Context, key Key) ([]byte, bool)
	Put(ctx context.Context, key Key, data []byte) bool
	Contains(ctx context.Context, key Key) bool
}

// Memory is a concurrency-safe in-process Backend.
type Memory struct {
	mu      sync.RWMutex
	entries map[Key][]byte
}

// NewMemory returns an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[Key][]byte)}
}

func (m *Memory) Get(_ context.Context, key Key) ([]byte, bool) {
	m.mu.RLock()
	data, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

// Put keeps the first value stored under key.
func (m *Memory) Put(_ context.Context, key Key, data []byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[key]; exists {
		return true
	}
	m.entries[key] = append([]byte(nil), data...)
	return true
}

func (m *Memory) Contains(_ context.Context, key Key) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[key]
	return ok
}

// Len returns the number of entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
