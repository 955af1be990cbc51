package store

import (
	"context"
	"sync"
)

// Memory is an in process KV. It is the memory driver and the test double
// for everything that persists through the store
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte

	// FailWith, when set, is returned by every call (simulates a broken disk)
	FailWith error
}

// NewMemory returns an empty Memory KV
func NewMemory() *Memory { return &Memory{data: map[string][]byte{}} }

// Get returns a copy of the stored value
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	if err := checkKey(key); err != nil {
		return nil, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailWith != nil {
		return nil, false, m.FailWith
	}
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Set stores a copy of val
func (m *Memory) Set(_ context.Context, key string, val []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	m.data[key] = append([]byte{}, val...)
	return nil
}

// Remove deletes key; missing keys are fine
func (m *Memory) Remove(_ context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	delete(m.data, key)
	return nil
}

// Fail sets or clears the injected failure
func (m *Memory) Fail(err error) {
	m.mu.Lock()
	m.FailWith = err
	m.mu.Unlock()
}

// Len reports how many keys are stored
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
