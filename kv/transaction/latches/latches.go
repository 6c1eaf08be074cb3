package latches

import (
	"context"
	"sync"

	"github.com/pingcap/errors"
)

// Latching gives the in-memory engine its pessimistic mode. A write transaction opened with locking latches every key
// before it writes it and keeps its latches until it commits or cancels, so a second writer of the same key blocks
// until the first one finishes.
//
// A latch is a per-key lock. Keys latched together share one latch, and a transaction may latch more keys later on.
//
// Latching is implemented using a single map which maps keys to a latch whose channel is closed on release. Access to
// this map is guarded by a mutex to ensure that latching is atomic and consistent.

type latch struct {
	released chan struct{}
}

type Latches struct {
	// Before writing a key, the transaction must hold the latch for that key. Waiters block on the latch's channel.
	latchMap map[string]*latch
	// Mutex to guard latchMap. A thread must hold this mutex while it makes any change to latchMap.
	latchGuard sync.Mutex
}

// NewLatches creates a new Latches object. There should only be one such object per engine, shared between all
// transactions.
func NewLatches() *Latches {
	l := new(Latches)
	l.latchMap = make(map[string]*latch)
	return l
}

// AcquireLatches tries to lock all keys. If this succeeds, nil is returned. If any of the keys is locked, nothing is
// locked and a channel is returned which is closed once that key's latch is released.
func (l *Latches) AcquireLatches(keysToLatch [][]byte) <-chan struct{} {
	l.latchGuard.Lock()
	defer l.latchGuard.Unlock()

	for _, key := range keysToLatch {
		if held, ok := l.latchMap[string(key)]; ok {
			return held.released
		}
	}

	lt := &latch{released: make(chan struct{})}
	for _, key := range keysToLatch {
		l.latchMap[string(key)] = lt
	}
	return nil
}

// ReleaseLatches releases the latches of all keys in keysToUnlatch, waking up anyone waiting on them. The keys may
// have been latched over several calls.
func (l *Latches) ReleaseLatches(keysToUnlatch [][]byte) {
	l.latchGuard.Lock()
	defer l.latchGuard.Unlock()

	for _, key := range keysToUnlatch {
		lt, ok := l.latchMap[string(key)]
		if !ok {
			continue
		}
		delete(l.latchMap, string(key))
		select {
		case <-lt.released:
		default:
			close(lt.released)
		}
	}
}

// WaitForLatches locks all keys in keysToLatch, waiting for held latches to be released. It gives up when ctx ends.
func (l *Latches) WaitForLatches(ctx context.Context, keysToLatch [][]byte) error {
	for {
		ch := l.AcquireLatches(keysToLatch)
		if ch == nil {
			return nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return errors.Trace(ctx.Err())
		}
	}
}
