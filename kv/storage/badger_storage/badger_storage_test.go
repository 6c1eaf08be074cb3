package badger_storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pingcap-incubator/tinydb/kv/config"
	"github.com/pingcap-incubator/tinydb/kv/storage"
	"github.com/pingcap-incubator/tinydb/kv/storage/storagetest"
)

func TestBadgerStorageSuite(t *testing.T) {
	conf := config.NewTestConfig()
	storagetest.RunSuite(t, storagetest.Traits{Snapshot: true}, func(t *testing.T) storage.Storage {
		s, err := NewBadgerStorage(t.TempDir(), &conf.Badger)
		require.Nil(t, err)
		return s
	})
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	conf := config.NewTestConfig()
	dir := t.TempDir()

	s, err := NewBadgerStorage(dir, &conf.Badger)
	require.Nil(t, err)
	txn, err := s.Begin(ctx, true, false)
	require.Nil(t, err)
	require.Nil(t, txn.Set(ctx, []byte("a"), []byte("x")))
	require.Nil(t, txn.Commit(ctx))
	require.Nil(t, s.Close())

	s, err = NewBadgerStorage(dir, &conf.Badger)
	require.Nil(t, err)
	defer s.Destroy()
	txn, err = s.Begin(ctx, false, false)
	require.Nil(t, err)
	val, err := txn.Get(ctx, []byte("a"))
	require.Nil(t, err)
	assert.Equal(t, []byte("x"), val)
	require.Nil(t, txn.Cancel(ctx))
}

func TestOpenThroughRegistry(t *testing.T) {
	conf := config.NewTestConfig()
	dir := filepath.Join(t.TempDir(), "db")
	for _, path := range []string{"badger://" + dir, "file://" + dir} {
		s, err := storage.Open(context.Background(), path, conf)
		require.Nil(t, err)
		assert.Nil(t, s.Close())
	}
}
