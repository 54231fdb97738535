package utils

import (
	"sync"
	"time"
)

// TTLMap is a mutex-guarded map whose entries expire after a fixed duration.
// Expired entries are invisible to Get and reaped by a background ticker.
type TTLMap[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]ttlEntry[V]
	ttl     time.Duration
}

type ttlEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// NewTTLMap creates a TTLMap with the given entry lifetime and starts its
// reaper goroutine. The reaper runs for the lifetime of the process.
func NewTTLMap[K comparable, V any](ttl time.Duration) *TTLMap[K, V] {
	m := &TTLMap[K, V]{
		entries: make(map[K]ttlEntry[V]),
		ttl:     ttl,
	}

	go m.reap()

	return m
}

// Get returns the value for key if it exists and has not expired.
func (m *TTLMap[K, V]) Get(key K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[key]
	if !ok || time.Now().After(entry.expiresAt) {
		var zero V
		return zero, false
	}

	return entry.value, true
}

// Set stores value under key, resetting its expiry.
func (m *TTLMap[K, V]) Set(key K, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = ttlEntry[V]{value: value, expiresAt: time.Now().Add(m.ttl)}
}

// Delete removes key from the map.
func (m *TTLMap[K, V]) Delete(key K) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
}

// Len returns the number of live entries.
func (m *TTLMap[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	count := 0

	for _, entry := range m.entries {
		if now.Before(entry.expiresAt) {
			count++
		}
	}

	return count
}

// reap periodically removes expired entries so abandoned keys do not
// accumulate for the lifetime of the process.
func (m *TTLMap[K, V]) reap() {
	ticker := time.NewTicker(m.ttl)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()

		m.mu.Lock()
		for key, entry := range m.entries {
			if now.After(entry.expiresAt) {
				delete(m.entries, key)
			}
		}
		m.mu.Unlock()
	}
}
