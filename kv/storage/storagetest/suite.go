// Package storagetest holds the behavior every storage engine must show, run by each engine's own tests.
package storagetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pingcap/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pingcap-incubator/tinydb/kv/storage"
)

// Traits describes how an engine maps the lock modes, so the suite knows which isolation behavior to expect.
type Traits struct {
	// Reads see a snapshot taken at begin.
	Snapshot bool
	// Opening a write transaction waits for the open one to finish.
	SerialWriters bool
	// Pessimistic writers block each other on the keys they write.
	Pessimistic bool
}

// RunSuite runs every engine test against stores produced by open. Each call to open must return an empty store.
func RunSuite(t *testing.T, traits Traits, open func(t *testing.T) storage.Storage) {
	run := func(name string, fn func(t *testing.T, s storage.Storage)) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			defer s.Close()
			fn(t, s)
		})
	}
	run("GetSetDel", testGetSetDel)
	run("PutAndConditional", testPutAndConditional)
	run("ReadonlyRejectsWrites", testReadonlyRejectsWrites)
	run("FinishedTransaction", testFinishedTransaction)
	run("Scan", testScan)
	run("CancelDiscards", testCancelDiscards)
	if traits.Snapshot {
		run("SnapshotRead", testSnapshotRead)
	}
	if traits.SerialWriters {
		run("SerialWriters", testSerialWriters)
	} else {
		run("OptimisticConflict", testOptimisticConflict)
		run("MixedLockModes", testMixedLockModes)
	}
	if traits.Pessimistic {
		run("PessimisticBlocks", testPessimisticBlocks)
	}
}

func begin(t *testing.T, s storage.Storage, write bool) storage.Txn {
	txn, err := s.Begin(context.Background(), write, false)
	require.Nil(t, err)
	return txn
}

func commitKV(t *testing.T, s storage.Storage, kvs ...string) {
	ctx := context.Background()
	txn := begin(t, s, true)
	for i := 0; i+1 < len(kvs); i += 2 {
		require.Nil(t, txn.Set(ctx, []byte(kvs[i]), []byte(kvs[i+1])))
	}
	require.Nil(t, txn.Commit(ctx))
}

func read(t *testing.T, s storage.Storage, key string) []byte {
	ctx := context.Background()
	txn := begin(t, s, false)
	defer txn.Cancel(ctx)
	val, err := txn.Get(ctx, []byte(key))
	require.Nil(t, err)
	return val
}

func testGetSetDel(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	txn := begin(t, s, true)
	require.Nil(t, txn.Set(ctx, []byte("a"), []byte("1")))
	val, err := txn.Get(ctx, []byte("a"))
	require.Nil(t, err)
	assert.Equal(t, []byte("1"), val)

	ok, err := txn.Exists(ctx, []byte("a"))
	require.Nil(t, err)
	assert.True(t, ok)
	ok, err = txn.Exists(ctx, []byte("b"))
	require.Nil(t, err)
	assert.False(t, ok)
	require.Nil(t, txn.Commit(ctx))

	assert.Equal(t, []byte("1"), read(t, s, "a"))
	assert.Nil(t, read(t, s, "missing"))

	txn = begin(t, s, true)
	require.Nil(t, txn.Del(ctx, []byte("a")))
	val, err = txn.Get(ctx, []byte("a"))
	require.Nil(t, err)
	assert.Nil(t, val)
	require.Nil(t, txn.Commit(ctx))
	assert.Nil(t, read(t, s, "a"))
}

func testPutAndConditional(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	commitKV(t, s, "a", "1")

	txn := begin(t, s, true)
	err := txn.Put(ctx, []byte("a"), []byte("2"))
	assert.Equal(t, storage.ErrTxKeyAlreadyExists, errors.Cause(err))
	require.Nil(t, txn.Put(ctx, []byte("b"), []byte("1")))

	assert.Equal(t, storage.ErrTxConditionNotMet, errors.Cause(txn.Putc(ctx, []byte("a"), []byte("2"), []byte("x"))))
	assert.Equal(t, storage.ErrTxConditionNotMet, errors.Cause(txn.Putc(ctx, []byte("a"), []byte("2"), nil)))
	require.Nil(t, txn.Putc(ctx, []byte("a"), []byte("2"), []byte("1")))
	require.Nil(t, txn.Putc(ctx, []byte("c"), []byte("1"), nil))

	assert.Equal(t, storage.ErrTxConditionNotMet, errors.Cause(txn.Delc(ctx, []byte("b"), []byte("x"))))
	require.Nil(t, txn.Delc(ctx, []byte("b"), []byte("1")))
	require.Nil(t, txn.Commit(ctx))

	assert.Equal(t, []byte("2"), read(t, s, "a"))
	assert.Nil(t, read(t, s, "b"))
	assert.Equal(t, []byte("1"), read(t, s, "c"))
}

func testReadonlyRejectsWrites(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	commitKV(t, s, "k", "v")

	txn := begin(t, s, false)
	assert.False(t, txn.Writeable())
	assert.True(t, storage.IsReadonly(txn.Set(ctx, []byte("k"), []byte("w"))))
	assert.True(t, storage.IsReadonly(txn.Put(ctx, []byte("n"), []byte("w"))))
	assert.True(t, storage.IsReadonly(txn.Del(ctx, []byte("k"))))
	assert.True(t, storage.IsReadonly(txn.Putc(ctx, []byte("k"), []byte("w"), []byte("v"))))
	assert.True(t, storage.IsReadonly(txn.Delc(ctx, []byte("k"), []byte("v"))))

	val, err := txn.Get(ctx, []byte("k"))
	require.Nil(t, err)
	assert.Equal(t, []byte("v"), val)
	require.Nil(t, txn.Cancel(ctx))
}

func testFinishedTransaction(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	txn := begin(t, s, true)
	assert.False(t, txn.Closed())
	require.Nil(t, txn.Commit(ctx))
	assert.True(t, txn.Closed())

	_, err := txn.Get(ctx, []byte("a"))
	assert.True(t, storage.IsFinished(err))
	assert.True(t, storage.IsFinished(txn.Set(ctx, []byte("a"), []byte("1"))))
	_, err = txn.Scan(ctx, []byte("a"), []byte("b"), 1)
	assert.True(t, storage.IsFinished(err))
	assert.True(t, storage.IsFinished(txn.Commit(ctx)))
	assert.True(t, storage.IsFinished(txn.Cancel(ctx)))

	txn = begin(t, s, false)
	require.Nil(t, txn.Cancel(ctx))
	assert.True(t, txn.Closed())
	_, err = txn.Exists(ctx, []byte("a"))
	assert.True(t, storage.IsFinished(err))
}

func testScan(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	for i := 0; i < 20; i++ {
		commitKV(t, s, fmt.Sprintf("k%02d", i), fmt.Sprintf("v%d", i))
	}

	txn := begin(t, s, true)
	defer txn.Cancel(ctx)
	require.Nil(t, txn.Del(ctx, []byte("k03")))
	require.Nil(t, txn.Set(ctx, []byte("k05a"), []byte("new")))
	require.Nil(t, txn.Set(ctx, []byte("k06"), []byte("changed")))

	kvs, err := txn.Scan(ctx, []byte("k02"), []byte("k08"), 100)
	require.Nil(t, err)
	var keys []string
	for _, kv := range kvs {
		keys = append(keys, string(kv.Key))
	}
	assert.Equal(t, []string{"k02", "k04", "k05", "k05a", "k06", "k07"}, keys)
	assert.Equal(t, []byte("changed"), kvs[4].Value)

	kvs, err = txn.Scan(ctx, []byte("k00"), []byte("k99"), 3)
	require.Nil(t, err)
	require.Len(t, kvs, 3)
	assert.Equal(t, []byte("k02"), kvs[2].Key)

	kvs, err = txn.Scan(ctx, []byte("x"), []byte("z"), 10)
	require.Nil(t, err)
	assert.Empty(t, kvs)
}

func testCancelDiscards(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	txn := begin(t, s, true)
	require.Nil(t, txn.Set(ctx, []byte("a"), []byte("1")))
	require.Nil(t, txn.Cancel(ctx))
	assert.Nil(t, read(t, s, "a"))
}

func testSnapshotRead(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	commitKV(t, s, "a", "1")
	reader := begin(t, s, false)
	defer reader.Cancel(ctx)
	_, err := reader.Get(ctx, []byte("a"))
	require.Nil(t, err)

	commitKV(t, s, "a", "2")
	val, err := reader.Get(ctx, []byte("a"))
	require.Nil(t, err)
	assert.Equal(t, []byte("1"), val)
}

func testOptimisticConflict(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	commitKV(t, s, "k", "0")

	t1 := begin(t, s, true)
	t2 := begin(t, s, true)
	_, err := t1.Get(ctx, []byte("k"))
	require.Nil(t, err)
	_, err = t2.Get(ctx, []byte("k"))
	require.Nil(t, err)
	require.Nil(t, t1.Set(ctx, []byte("k"), []byte("1")))
	require.Nil(t, t2.Set(ctx, []byte("k"), []byte("2")))

	err1 := t1.Commit(ctx)
	err2 := t2.Commit(ctx)
	assert.True(t, err1 != nil || err2 != nil, "both conflicting commits succeeded")
	if err1 != nil {
		assert.True(t, storage.IsConflict(err1), "%v", err1)
	}
	if err2 != nil {
		assert.True(t, storage.IsConflict(err2), "%v", err2)
	}

	val := read(t, s, "k")
	switch {
	case err1 == nil:
		assert.Equal(t, []byte("1"), val)
	case err2 == nil:
		assert.Equal(t, []byte("2"), val)
	default:
		assert.Equal(t, []byte("0"), val)
	}
}

func testSerialWriters(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	t1 := begin(t, s, true)
	require.Nil(t, t1.Set(ctx, []byte("k"), []byte("1")))

	done := make(chan error, 1)
	go func() {
		t2, err := s.Begin(ctx, true, false)
		if err != nil {
			done <- err
			return
		}
		if err = t2.Set(ctx, []byte("k"), []byte("2")); err != nil {
			done <- err
			return
		}
		done <- t2.Commit(ctx)
	}()

	select {
	case err := <-done:
		t.Fatalf("second writer finished while the first was open: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	require.Nil(t, t1.Commit(ctx))
	require.Nil(t, <-done)
	assert.Equal(t, []byte("2"), read(t, s, "k"))
}

func testPessimisticBlocks(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	t1, err := s.Begin(ctx, true, true)
	require.Nil(t, err)
	require.Nil(t, t1.Set(ctx, []byte("k"), []byte("1")))

	done := make(chan error, 1)
	go func() {
		t2, err := s.Begin(ctx, true, true)
		if err != nil {
			done <- err
			return
		}
		if err = t2.Set(ctx, []byte("k"), []byte("2")); err != nil {
			done <- err
			return
		}
		done <- t2.Commit(ctx)
	}()

	select {
	case err := <-done:
		t.Fatalf("second pessimistic writer finished while the first held the key: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	require.Nil(t, t1.Commit(ctx))
	require.Nil(t, <-done)
	assert.Equal(t, []byte("2"), read(t, s, "k"))
}

// testMixedLockModes writes one key from a pessimistic and an optimistic transaction. The optimistic one commits
// first, while the pessimistic one holds the key, so only one of them may succeed.
func testMixedLockModes(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	commitKV(t, s, "k", "0")

	p, err := s.Begin(ctx, true, true)
	require.Nil(t, err)
	require.Nil(t, p.Set(ctx, []byte("k"), []byte("pess")))
	o := begin(t, s, true)
	require.Nil(t, o.Set(ctx, []byte("k"), []byte("opt")))

	errO := o.Commit(ctx)
	errP := p.Commit(ctx)
	assert.True(t, errO != nil || errP != nil, "both writers committed")
	switch {
	case errO == nil:
		assert.True(t, storage.IsConflict(errP), "%v", errP)
		assert.Equal(t, []byte("opt"), read(t, s, "k"))
	case errP == nil:
		assert.True(t, storage.IsConflict(errO), "%v", errO)
		assert.Equal(t, []byte("pess"), read(t, s, "k"))
	}
}
