// Package cache stores transform results keyed by request fingerprint.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Store is a byte-oriented result cache.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Memory is an in-process LRU store with per-entry expiry.
type Memory struct {
	mu      sync.Mutex
	max     int
	now     func() time.Time
	order   *list.List
	entries map[string]*list.Element
}

type memoryEntry struct {
	key     string
	value   []byte
	expires time.Time
}

// NewMemory returns a store holding at most max entries (64 when max <= 0).
func NewMemory(max int) *Memory {
	if max <= 0 {
		max = 64
	}
	return &Memory{
		max:     max,
		now:     time.Now,
		order:   list.New(),
		entries: make(map[string]*list.Element),
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	entry := el.Value.(*memoryEntry)
	if !entry.expires.IsZero() && !m.now().Before(entry.expires) {
		m.order.Remove(el)
		delete(m.entries, key)
		return nil, false, nil
	}
	m.order.MoveToFront(el)
	return append([]byte(nil), entry.value...), true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var expires time.Time
	if ttl > 0 {
		expires = m.now().Add(ttl)
	}
	entry := &memoryEntry{key: key, value: append([]byte(nil), value...), expires: expires}
	if el, ok := m.entries[key]; ok {
		el.Value = entry
		m.order.MoveToFront(el)
		return nil
	}
	m.entries[key] = m.order.PushFront(entry)
	for m.order.Len() > m.max {
		oldest := m.order.Back()
		m.order.Remove(oldest)
		delete(m.entries, oldest.Value.(*memoryEntry).key)
	}
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if el, ok := m.entries[key]; ok {
		m.order.Remove(el)
		delete(m.entries, key)
	}
	return nil
}

// Len reports the number of live entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}
