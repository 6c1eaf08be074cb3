// Package mem_storage is an in-memory engine. Data lives in a B-tree and is lost when the engine closes.
//
// Lock modes: optimistic write transactions are checked at commit, failing with ErrTxConflict when a key they wrote
// was committed by someone else after they began. Pessimistic write transactions latch each key before writing it and
// hold the latch until commit or cancel, so a second pessimistic writer blocks instead of failing. Optimistic writers
// do not wait for latches, so a pessimistic commit still fails with ErrTxConflict when an optimistic transaction
// committed one of its keys after the key was latched.
package mem_storage

import (
	"bytes"
	"context"
	"sync"

	"github.com/google/btree"
	"github.com/pingcap/errors"

	"github.com/pingcap-incubator/tinydb/kv/config"
	"github.com/pingcap-incubator/tinydb/kv/storage"
	"github.com/pingcap-incubator/tinydb/kv/transaction/latches"
)

func init() {
	storage.Register("memory", func(_ context.Context, _ string, _ *config.Config) (storage.Storage, error) {
		return NewMemStorage(), nil
	})
}

// tombstonePruneInterval is the number of commits between tombstone sweeps.
const tombstonePruneInterval = 1024

// memItem is a committed key. Deleted keys stay in the tree as tombstones so that later commits can still see their
// version, until no open transaction could conflict with them.
type memItem struct {
	key     []byte
	value   []byte
	version uint64
	deleted bool
}

func lessItem(a, b memItem) bool {
	return bytes.Compare(a.key, b.key) < 0
}

type MemStorage struct {
	mu sync.Mutex
	// guarded by mu
	tree    *btree.BTreeG[memItem]
	version uint64
	active  map[uint64]int
	commits int
	closed  bool

	latches *latches.Latches
}

func NewMemStorage() *MemStorage {
	return &MemStorage{
		tree:    btree.NewG(32, lessItem),
		active:  make(map[uint64]int),
		latches: latches.NewLatches(),
	}
}

func (s *MemStorage) Begin(_ context.Context, write, lockable bool) (storage.Txn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.New("memory storage is closed")
	}
	txn := &memTxn{
		s:        s,
		write:    write,
		lockable: lockable,
		snapshot: s.tree.Clone(),
		start:    s.version,
	}
	if write {
		txn.batch = newBatch()
		s.active[txn.start]++
	}
	return txn, nil
}

func (s *MemStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Len counts the live keys, for tests.
func (s *MemStorage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	s.tree.Ascend(func(it memItem) bool {
		if !it.deleted {
			n++
		}
		return true
	})
	return n
}

// commit applies a write transaction's batch. It fails if a written key changed after start, or for a latched key,
// after it was latched.
func (s *MemStorage) commit(txn *memTxn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finish(txn.start)

	for _, key := range txn.batch.Keys() {
		seen := txn.start
		if v, ok := txn.held[string(key)]; ok {
			seen = v
		}
		if cur, ok := s.tree.Get(memItem{key: key}); ok && cur.version > seen {
			return errors.WithStack(storage.ErrTxConflict)
		}
	}

	s.version++
	txn.batch.Range(nil, nil, func(e *entry) bool {
		s.tree.ReplaceOrInsert(memItem{key: e.Key, value: e.Value, version: s.version, deleted: e.Deleted})
		return true
	})
	s.commits++
	if s.commits%tombstonePruneInterval == 0 {
		s.pruneTombstones()
	}
	return nil
}

func (s *MemStorage) abort(txn *memTxn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finish(txn.start)
}

func (s *MemStorage) finish(start uint64) {
	if s.active[start]--; s.active[start] <= 0 {
		delete(s.active, start)
	}
}

// pruneTombstones drops tombstones older than every open write transaction. Caller holds mu.
func (s *MemStorage) pruneTombstones() {
	horizon := s.version
	for start := range s.active {
		if start < horizon {
			horizon = start
		}
	}
	var dead []memItem
	s.tree.Ascend(func(it memItem) bool {
		if it.deleted && it.version <= horizon {
			dead = append(dead, it)
		}
		return true
	})
	for _, it := range dead {
		s.tree.Delete(it)
	}
}
