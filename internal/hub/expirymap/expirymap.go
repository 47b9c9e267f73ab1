// Package expirymap provides a string keyed map whose entries expire after a TTL.
package expirymap

import (
	"strings"
	"sync"
	"time"

	"github.com/pocketbase/pocketbase/tools/store"
)

type val[T any] struct {
	value   T
	expires time.Time
}

type ExpiryMap[T any] struct {
	store           *store.Store[string, *val[T]]
	cleanupInterval time.Duration
	stop            chan struct{}
	stopOnce        sync.Once
}

// New creates a new expiry map that drops expired entries every cleanupInterval
func New[T any](cleanupInterval time.Duration) *ExpiryMap[T] {
	m := &ExpiryMap[T]{
		store:           store.New(map[string]*val[T]{}),
		cleanupInterval: cleanupInterval,
		stop:            make(chan struct{}),
	}
	m.startCleaner()
	return m
}

// Set stores a value with the given TTL
func (m *ExpiryMap[T]) Set(key string, value T, ttl time.Duration) {
	m.store.Set(key, &val[T]{
		value:   value,
		expires: time.Now().Add(ttl),
	})
}

// GetOk retrieves a value and checks if it exists and hasn't expired.
// Expired entries are removed on access.
func (m *ExpiryMap[T]) GetOk(key string) (T, bool) {
	value, ok := m.store.GetOk(key)
	if !ok {
		return *new(T), false
	}
	if value.expires.Before(time.Now()) {
		m.store.Remove(key)
		return *new(T), false
	}
	return value.value, true
}

// Remove explicitly removes a key
func (m *ExpiryMap[T]) Remove(key string) {
	m.store.Remove(key)
}

// RemovePrefix removes every key starting with prefix and returns how many were removed
func (m *ExpiryMap[T]) RemovePrefix(prefix string) int {
	removed := 0
	for key := range m.store.GetAll() {
		if strings.HasPrefix(key, prefix) {
			m.store.Remove(key)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries that haven't expired
func (m *ExpiryMap[T]) Len() int {
	count := 0
	now := time.Now()
	for _, v := range m.store.GetAll() {
		if !v.expires.Before(now) {
			count++
		}
	}
	return count
}

// Close stops the background cleaner
func (m *ExpiryMap[T]) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *ExpiryMap[T]) startCleaner() {
	go func() {
		ticker := time.NewTicker(m.cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-m.stop:
				return
			case <-ticker.C:
				m.cleanup()
			}
		}
	}()
}

// cleanup removes all expired entries
func (m *ExpiryMap[T]) cleanup() {
	now := time.Now()
	for key, v := range m.store.GetAll() {
		if v.expires.Before(now) {
			m.store.Remove(key)
		}
	}
}
