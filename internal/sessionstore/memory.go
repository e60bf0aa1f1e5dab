package sessionstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

type memoryEntry struct {
	raw       []byte
	updatedAt time.Time
}

// Memory is a process-local Store. Values are kept encoded so callers never share memory.
type Memory struct {
	mu   sync.RWMutex
	data map[string]map[string]memoryEntry
	now  func() time.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]map[string]memoryEntry), now: time.Now}
}

func (m *Memory) Get(_ context.Context, sessionID, key string, dst any) error {
	m.mu.RLock()
	entry, ok := m.data[sessionID][key]
	m.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}

	if err := json.Unmarshal(entry.raw, dst); err != nil {
		return fmt.Errorf("decode session value %s: %w", key, err)
	}
	return nil
}

func (m *Memory) Put(_ context.Context, sessionID, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode session value %s: %w", key, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entries, ok := m.data[sessionID]
	if !ok {
		entries = make(map[string]memoryEntry)
		m.data[sessionID] = entries
	}
	entries[key] = memoryEntry{raw: raw, updatedAt: m.now()}
	return nil
}

func (m *Memory) Delete(_ context.Context, sessionID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, ok := m.data[sessionID]
	if !ok {
		return nil
	}
	delete(entries, key)
	if len(entries) == 0 {
		delete(m.data, sessionID)
	}
	return nil
}

// Prune drops values last written before cutoff.
func (m *Memory) Prune(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	for sessionID, entries := range m.data {
		for key, entry := range entries {
			if entry.updatedAt.Before(cutoff) {
				delete(entries, key)
				removed++
			}
		}
		if len(entries) == 0 {
			delete(m.data, sessionID)
		}
	}
	return removed, nil
}
