// Package badger_storage is an embedded engine on badger.
//
// Lock modes: badger transactions are optimistic only. A pessimistic request runs optimistically, so a conflicting
// writer is detected at commit with ErrTxConflict instead of being blocked. Keys written by a transaction are read
// back into badger's conflict tracking before they are applied, so blind writes conflict as well.
package badger_storage

import (
	"context"
	"os"

	"github.com/Connor1996/badger"
	"github.com/pingcap/errors"

	"github.com/pingcap-incubator/tinydb/kv/config"
	"github.com/pingcap-incubator/tinydb/kv/storage"
	"github.com/pingcap-incubator/tinydb/kv/util/engine_util"
	"github.com/pingcap-incubator/tinydb/log"
)

func init() {
	storage.Register("badger", func(_ context.Context, target string, conf *config.Config) (storage.Storage, error) {
		if conf == nil {
			conf = config.NewDefaultConfig()
		}
		return NewBadgerStorage(target, &conf.Badger)
	})
}

// BadgerStorage stores all data locally in a badger database.
type BadgerStorage struct {
	db   *badger.DB
	path string
}

func NewBadgerStorage(path string, conf *config.BadgerConfig) (*BadgerStorage, error) {
	if len(path) == 0 {
		return nil, errors.New("badger storage needs a directory")
	}
	db, err := engine_util.CreateDB(path, conf)
	if err != nil {
		return nil, err
	}
	log.Infof("badger storage opened at %s", path)
	return &BadgerStorage{db: db, path: path}, nil
}

func (s *BadgerStorage) Begin(_ context.Context, write, _ bool) (storage.Txn, error) {
	txn := &badgerTxn{
		txn:   s.db.NewTransaction(write),
		write: write,
	}
	if write {
		txn.batch = engine_util.NewWriteBatch()
	}
	return txn, nil
}

func (s *BadgerStorage) Close() error {
	return errors.WithStack(s.db.Close())
}

// Destroy closes the database and removes its files.
func (s *BadgerStorage) Destroy() error {
	if err := s.Close(); err != nil {
		return err
	}
	return errors.WithStack(os.RemoveAll(s.path))
}

type badgerTxn struct {
	txn   *badger.Txn
	write bool
	done  bool
	batch *engine_util.WriteBatch
}

func (t *badgerTxn) Closed() bool    { return t.done }
func (t *badgerTxn) Writeable() bool { return t.write }

func (t *badgerTxn) Get(_ context.Context, key []byte) ([]byte, error) {
	if err := storage.CheckOpen(t.done); err != nil {
		return nil, err
	}
	if t.batch != nil {
		if e, ok := t.batch.Get(key); ok {
			if e.Deleted {
				return nil, nil
			}
			return e.Value, nil
		}
	}
	val, err := engine_util.GetFromTxn(t.txn, key)
	return val, errors.WithStack(err)
}

func (t *badgerTxn) Exists(ctx context.Context, key []byte) (bool, error) {
	val, err := t.Get(ctx, key)
	return val != nil, err
}

func (t *badgerTxn) Set(_ context.Context, key, val []byte) error {
	if err := t.checkWrite(key); err != nil {
		return err
	}
	t.batch.Set(safeCopy(key), safeCopy(val))
	return nil
}

func (t *badgerTxn) Del(_ context.Context, key []byte) error {
	if err := t.checkWrite(key); err != nil {
		return err
	}
	t.batch.Delete(safeCopy(key))
	return nil
}

func (t *badgerTxn) Put(ctx context.Context, key, val []byte) error {
	if err := t.checkWrite(key); err != nil {
		return err
	}
	return storage.PutIfAbsent(ctx, t, key, val)
}

func (t *badgerTxn) Putc(ctx context.Context, key, val, chk []byte) error {
	if err := t.checkWrite(key); err != nil {
		return err
	}
	return storage.PutIfEqual(ctx, t, key, val, chk)
}

func (t *badgerTxn) Delc(ctx context.Context, key, chk []byte) error {
	if err := t.checkWrite(key); err != nil {
		return err
	}
	return storage.DelIfEqual(ctx, t, key, chk)
}

func (t *badgerTxn) checkWrite(key []byte) error {
	if err := storage.CheckWritable(t.done, t.write); err != nil {
		return err
	}
	if len(key) == 0 {
		return errors.WithStack(storage.ErrTxKeyEmpty)
	}
	return nil
}

func (t *badgerTxn) Scan(_ context.Context, beg, end []byte, limit uint32) ([]storage.KV, error) {
	if err := storage.CheckOpen(t.done); err != nil {
		return nil, err
	}
	return engine_util.MergeScan(t.batch, beg, end, limit, func(beg, end []byte, limit uint32) ([]storage.KV, error) {
		it := engine_util.NewBadgerIterator(t.txn)
		defer it.Close()
		kvs, err := engine_util.ScanIterator(it, beg, end, limit)
		return kvs, errors.WithStack(err)
	})
}

func (t *badgerTxn) Commit(_ context.Context) error {
	if err := storage.CheckOpen(t.done); err != nil {
		return err
	}
	t.done = true
	defer t.txn.Discard()
	if !t.write {
		return errors.WithStack(storage.ErrTxReadonly)
	}
	if err := t.batch.WriteToTxn(t.txn); err != nil {
		return err
	}
	err := t.txn.Commit()
	if err == badger.ErrConflict {
		return errors.WithStack(storage.ErrTxConflict)
	}
	return errors.WithStack(err)
}

func (t *badgerTxn) Cancel(_ context.Context) error {
	if err := storage.CheckOpen(t.done); err != nil {
		return err
	}
	t.done = true
	t.txn.Discard()
	return nil
}

func safeCopy(b []byte) []byte {
	return append([]byte{}, b...)
}
