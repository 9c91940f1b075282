package kvstore

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/dmitrijs2005/nutrikeeper/internal/common"
)

// MemoryStore is an in-process Store with the same quota semantics as
// SQLiteStore. Values are copied on the way in and out.
type MemoryStore struct {
	mu    sync.RWMutex
	data  map[string][]byte
	used  int64
	quota int64
}

func NewMemoryStore(quota int64) *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte), quota: quota}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	return slices.Clone(v), nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	used := m.used
	if old, ok := m.data[key]; ok {
		used -= usage(key, old)
	}
	used += usage(key, value)

	if m.quota > 0 && used > m.quota {
		return common.ErrQuotaExceeded
	}

	if value == nil {
		value = []byte{}
	}
	m.data[key] = slices.Clone(value)
	m.used = used
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.data[key]; ok {
		m.used -= usage(key, old)
		delete(m.data, key)
	}
	return nil
}

func (m *MemoryStore) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0)
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

func (m *MemoryStore) Close() error { return nil }
