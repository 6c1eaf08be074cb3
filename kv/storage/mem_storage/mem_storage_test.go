package mem_storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pingcap-incubator/tinydb/kv/storage"
	"github.com/pingcap-incubator/tinydb/kv/storage/storagetest"
)

func TestMemStorageSuite(t *testing.T) {
	storagetest.RunSuite(t, storagetest.Traits{Snapshot: true, Pessimistic: true}, func(t *testing.T) storage.Storage {
		return NewMemStorage()
	})
}

func TestTombstonesArePruned(t *testing.T) {
	ctx := context.Background()
	s := NewMemStorage()

	txn, err := s.Begin(ctx, true, false)
	require.Nil(t, err)
	require.Nil(t, txn.Set(ctx, []byte("gone"), []byte("v")))
	require.Nil(t, txn.Commit(ctx))

	txn, err = s.Begin(ctx, true, false)
	require.Nil(t, err)
	require.Nil(t, txn.Del(ctx, []byte("gone")))
	require.Nil(t, txn.Commit(ctx))
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 1, s.tree.Len())

	for i := 0; i < tombstonePruneInterval; i++ {
		txn, err = s.Begin(ctx, true, false)
		require.Nil(t, err)
		require.Nil(t, txn.Set(ctx, []byte("other"), []byte("v")))
		require.Nil(t, txn.Commit(ctx))
	}
	assert.Equal(t, 1, s.tree.Len())
	assert.Equal(t, 1, s.Len())
}

func TestDeleteConflictsWithOlderWriter(t *testing.T) {
	ctx := context.Background()
	s := NewMemStorage()

	older, err := s.Begin(ctx, true, false)
	require.Nil(t, err)
	deleter, err := s.Begin(ctx, true, false)
	require.Nil(t, err)
	require.Nil(t, deleter.Del(ctx, []byte("k")))
	require.Nil(t, deleter.Commit(ctx))

	require.Nil(t, older.Set(ctx, []byte("k"), []byte("v")))
	assert.True(t, storage.IsConflict(older.Commit(ctx)))
}

func TestOpenThroughRegistry(t *testing.T) {
	s, err := storage.Open(context.Background(), "memory", nil)
	require.Nil(t, err)
	_, ok := s.(*MemStorage)
	assert.True(t, ok)
}
