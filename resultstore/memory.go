package resultstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

type memoryEntry struct {
	data     []byte
	deadline time.Time
}

// Memory is an in-process Store. Entries expire lazily on read, so an
// abandoned key costs one map slot until someone touches it or the store
// is closed. Safe for concurrent use.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemory creates an empty in-process store.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Write stores the JSON encoding of value under key for ttl.
func (m *Memory) Write(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{data: data, deadline: m.now().Add(ttl)}
	return nil
}

// Read decodes the value at key into dest. Absent or expired keys return
// ok=false; expired entries are dropped on the spot.
func (m *Memory) Read(_ context.Context, key string, dest any) (bool, error) {
	m.mu.Lock()
	entry, ok := m.entries[key]
	if ok && m.now().After(entry.deadline) {
		delete(m.entries, key)
		ok = false
	}
	m.mu.Unlock()

	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(entry.data, dest); err != nil {
		return false, fmt.Errorf("unmarshal result: %w", err)
	}
	return true, nil
}

// Len reports the number of live (possibly expired but uncollected)
// entries. Intended for tests and metrics.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
