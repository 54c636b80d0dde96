package types

import "sync"

// KeyedMutex provides one mutual-exclusion scope per key. Callers holding the
// lock for one key do not block callers working on different keys.
//
// Lock entries are reference counted and removed once the last holder
// releases them, so the internal map does not grow with the key space.
type KeyedMutex[K comparable] struct {
	mu    sync.Mutex
	locks map[K]*keyedLockEntry
}

// keyedLockEntry is a single key's mutex plus the number of goroutines that
// currently hold or wait on it.
type keyedLockEntry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedMutex builds an empty KeyedMutex.
func NewKeyedMutex[K comparable]() *KeyedMutex[K] {
	return &KeyedMutex[K]{
		locks: make(map[K]*keyedLockEntry),
	}
}

// Lock blocks until the mutex for key is held and returns the matching unlock
// function. The unlock function must be called exactly once.
func (k *KeyedMutex[K]) Lock(key K) (unlock func()) {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		entry = new(keyedLockEntry)
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
