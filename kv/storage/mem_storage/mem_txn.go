package mem_storage

import (
	"context"

	"github.com/google/btree"
	"github.com/pingcap/errors"

	"github.com/pingcap-incubator/tinydb/kv/storage"
	"github.com/pingcap-incubator/tinydb/kv/util/engine_util"
)

type entry = engine_util.Entry

func newBatch() *engine_util.WriteBatch {
	return engine_util.NewWriteBatch()
}

type memTxn struct {
	s        *MemStorage
	write    bool
	lockable bool
	done     bool

	snapshot *btree.BTreeG[memItem]
	start    uint64
	batch    *engine_util.WriteBatch
	latched  [][]byte
	// committed version of each latched key when it was latched
	held map[string]uint64
}

func (t *memTxn) Closed() bool    { return t.done }
func (t *memTxn) Writeable() bool { return t.write }

func (t *memTxn) Get(_ context.Context, key []byte) ([]byte, error) {
	if err := storage.CheckOpen(t.done); err != nil {
		return nil, err
	}
	return t.get(key), nil
}

func (t *memTxn) get(key []byte) []byte {
	if t.batch != nil {
		if e, ok := t.batch.Get(key); ok {
			if e.Deleted {
				return nil
			}
			return e.Value
		}
	}
	if it, ok := t.snapshot.Get(memItem{key: key}); ok && !it.deleted {
		return it.value
	}
	return nil
}

func (t *memTxn) Exists(ctx context.Context, key []byte) (bool, error) {
	val, err := t.Get(ctx, key)
	return val != nil, err
}

func (t *memTxn) Set(ctx context.Context, key, val []byte) error {
	if err := t.prepareWrite(ctx, key); err != nil {
		return err
	}
	t.batch.Set(cloneBytes(key), cloneBytes(val))
	return nil
}

func (t *memTxn) Del(ctx context.Context, key []byte) error {
	if err := t.prepareWrite(ctx, key); err != nil {
		return err
	}
	t.batch.Delete(cloneBytes(key))
	return nil
}

func (t *memTxn) Put(ctx context.Context, key, val []byte) error {
	if err := t.prepareWrite(ctx, key); err != nil {
		return err
	}
	return storage.PutIfAbsent(ctx, t, key, val)
}

func (t *memTxn) Putc(ctx context.Context, key, val, chk []byte) error {
	if err := t.prepareWrite(ctx, key); err != nil {
		return err
	}
	return storage.PutIfEqual(ctx, t, key, val, chk)
}

func (t *memTxn) Delc(ctx context.Context, key, chk []byte) error {
	if err := t.prepareWrite(ctx, key); err != nil {
		return err
	}
	return storage.DelIfEqual(ctx, t, key, chk)
}

// prepareWrite checks the transaction state and, in pessimistic mode, latches key.
func (t *memTxn) prepareWrite(ctx context.Context, key []byte) error {
	if err := storage.CheckWritable(t.done, t.write); err != nil {
		return err
	}
	if len(key) == 0 {
		return errors.WithStack(storage.ErrTxKeyEmpty)
	}
	if !t.lockable {
		return nil
	}
	if _, ok := t.held[string(key)]; ok {
		return nil
	}
	k := cloneBytes(key)
	if err := t.s.latches.WaitForLatches(ctx, [][]byte{k}); err != nil {
		return err
	}
	if t.held == nil {
		t.held = make(map[string]uint64)
	}
	t.latched = append(t.latched, k)
	// the snapshot may predate the previous holder's commit
	t.held[string(k)] = t.refresh(k)
	return nil
}

// refresh copies the latest committed version of key into the snapshot and returns that version, 0 if the key was
// never written.
func (t *memTxn) refresh(key []byte) uint64 {
	t.s.mu.Lock()
	cur, ok := t.s.tree.Get(memItem{key: key})
	t.s.mu.Unlock()
	if !ok {
		t.snapshot.Delete(memItem{key: key})
		return 0
	}
	t.snapshot.ReplaceOrInsert(cur)
	return cur.version
}

func (t *memTxn) Scan(_ context.Context, beg, end []byte, limit uint32) ([]storage.KV, error) {
	if err := storage.CheckOpen(t.done); err != nil {
		return nil, err
	}
	return engine_util.MergeScan(t.batch, beg, end, limit, t.fetch)
}

func (t *memTxn) fetch(beg, end []byte, limit uint32) ([]storage.KV, error) {
	var out []storage.KV
	t.snapshot.AscendGreaterOrEqual(memItem{key: beg}, func(it memItem) bool {
		if engine_util.ExceedEndKey(it.key, end) || uint32(len(out)) >= limit {
			return false
		}
		if !it.deleted {
			out = append(out, storage.KV{Key: it.key, Value: it.value})
		}
		return true
	})
	return out, nil
}

func (t *memTxn) Commit(_ context.Context) error {
	if err := storage.CheckOpen(t.done); err != nil {
		return err
	}
	t.done = true
	if !t.write {
		return errors.WithStack(storage.ErrTxReadonly)
	}
	defer t.release()
	return t.s.commit(t)
}

func (t *memTxn) Cancel(_ context.Context) error {
	if err := storage.CheckOpen(t.done); err != nil {
		return err
	}
	t.done = true
	if t.write {
		t.s.abort(t)
		t.release()
	}
	return nil
}

func (t *memTxn) release() {
	if len(t.latched) > 0 {
		t.s.latches.ReleaseLatches(t.latched)
		t.latched = nil
		t.held = nil
	}
	t.snapshot = nil
	t.batch = nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
