package orchestrator

import "sync"

// keyedMutex serializes operations per key. Deploy locks the owner (the
// quota check races otherwise), every other mutation locks the instance
// id; the lock is held across the whole load-check-act-save sequence.
//
// Entries are never reclaimed. The keyspace is bounded by the owner
// population plus live instance ids, so this stays small.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the mutex for key and returns its unlock function.
func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
