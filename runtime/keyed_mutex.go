package runtime

import "sync"

// KeyedMutex hands out one mutex per key and forgets it once unused.
// The delivery path locks on the conversation id, so that sends to the same
// conversation are appended and broadcast one at a time.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*refMutex)}
}

// Lock blocks until key is free and returns the matching unlock function.
// Callers holding different keys never wait on each other; the map lock is
// only held while the per-key entry is looked up or released.
//
// Each entry counts the callers holding or waiting for it, and is removed
// when that count drops to zero, so the map only ever holds keys in use.
// The returned function must be called exactly once.
func (k *KeyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func (k *KeyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
