package orchestrator

import "sync"

// keyedMutex serializes work per key without a global lock: messages for the
// same conversation run one at a time while different conversations proceed
// in parallel. Entries are refcounted and removed when the last holder
// releases, so the map does not grow with conversation history.
type keyedMutex struct {
	mu      sync.Mutex
	entries map[string]*mutexEntry
}

type mutexEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{entries: make(map[string]*mutexEntry)}
}

// lock blocks until the key is free and returns the matching release func.
func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &mutexEntry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.entries, key)
		}
		k.mu.Unlock()
	}
}
