package shared

import (
	"fmt"
	"sync"
)

// POLockKey builds redis keys for purchase-order critical sections.
func POLockKey(poID int64) string {
	return fmt.Sprintf("procure:po:%d:lock", poID)
}

// EntityLocker serializes in-process work per entity key. At most one
// status-mutating operation runs for a given purchase order at a time.
type EntityLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEntityLocker constructs an EntityLocker.
func NewEntityLocker() *EntityLocker {
	return &EntityLocker{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key, creating it on first use.
func (l *EntityLocker) Lock(key string) {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()
	m.Lock()
}

// Unlock releases the mutex for key.
func (l *EntityLocker) Unlock(key string) {
	l.mu.Lock()
	m, ok := l.locks[key]
	l.mu.Unlock()
	if ok {
		m.Unlock()
	}
}
