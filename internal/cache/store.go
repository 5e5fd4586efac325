// Package cache реализует кеш запросов шлюза: хранилище сериализованных
// результатов, свежесть записей, отмену загрузок и оптимистичные изменения
// со снимками для отката.
package cache

import (
	"context"
	"sync"
)

// Store хранилище сериализованных значений кеша.
type Store interface {
	// Get возвращает значение по ключу, found=false если ключа нет.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set сохраняет значение.
	Set(ctx context.Context, key string, value []byte) error
	// Delete удаляет значение.
	Delete(ctx context.Context, key string) error
}

// MemoryStore хранилище в памяти процесса.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore создаёт пустое хранилище в памяти.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	val, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), val...), true, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
