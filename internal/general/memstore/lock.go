package memstore

import (
	"context"
	"sync"
)

// lockTable hands out one exclusive slot per key. A slot lives only while someone holds
// or waits for it, so lookups of unknown ids leave nothing behind.
type lockTable struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

type lockSlot struct {
	ch   chan struct{}
	refs int // holder plus waiters
}

func newLockTable() *lockTable {
	return &lockTable{slots: make(map[string]*lockSlot)}
}

// join returns the slot for key, counting the caller in.
func (lt *lockTable) join(key string) *lockSlot {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	s, ok := lt.slots[key]
	if !ok {
		s = &lockSlot{ch: make(chan struct{}, 1)}
		lt.slots[key] = s
	}
	s.refs++
	return s
}

// leave counts the caller out and drops the slot once nobody references it.
func (lt *lockTable) leave(key string, s *lockSlot) {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	s.refs--
	if s.refs == 0 {
		delete(lt.slots, key)
	}
}

// acquire blocks until key is free or ctx is done.
func (lt *lockTable) acquire(ctx context.Context, key string) error {
	s := lt.join(key)
	select {
	case s.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		lt.leave(key, s)
		return ctx.Err()
	}
}

func (lt *lockTable) release(key string) {
	lt.mu.Lock()
	s := lt.slots[key]
	lt.mu.Unlock()

	<-s.ch
	lt.leave(key, s)
}
