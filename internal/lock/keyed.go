// Package lock provides per-key mutual exclusion. The admission coordinator
// uses it to serialize the capacity-read plus seat-grant-or-enqueue sequence
// for a single event, so two concurrent joins can never both observe the last
// free seat.
package lock

import "sync"

// KeyedMutex provides a mutex per key. Mutexes are created on first use and
// retained for the life of the process; the per-event footprint is one mutex.
type KeyedMutex struct {
	locks sync.Map // key -> *sync.Mutex
}

// NewKeyedMutex creates a new KeyedMutex
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{}
}

// Lock acquires the mutex for the key, blocking until it is available
func (m *KeyedMutex) Lock(key string) {
	m.mutexFor(key).Lock()
}

// Unlock releases the mutex for the key
func (m *KeyedMutex) Unlock(key string) {
	m.mutexFor(key).Unlock()
}

func (m *KeyedMutex) mutexFor(key string) *sync.Mutex {
	if mu, ok := m.locks.Load(key); ok {
		return mu.(*sync.Mutex)
	}
	mu, _ := m.locks.LoadOrStore(key, &sync.Mutex{})
	return mu.(*sync.Mutex)
}
