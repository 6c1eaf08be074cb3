// Package leveldb_storage is an embedded engine on goleveldb.
//
// Lock modes: goleveldb allows a single open write transaction, so write transactions are serialized whatever lock
// mode is asked for. Opening a second writer waits until the first commits or cancels, and commit never reports a
// conflict. Read transactions run on a snapshot and never wait.
package leveldb_storage

import (
	"context"

	"github.com/pingcap/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/pingcap-incubator/tinydb/kv/config"
	"github.com/pingcap-incubator/tinydb/kv/storage"
	"github.com/pingcap-incubator/tinydb/kv/util/engine_util"
	"github.com/pingcap-incubator/tinydb/log"
)

func init() {
	storage.Register("leveldb", func(_ context.Context, target string, conf *config.Config) (storage.Storage, error) {
		sync := true
		if conf != nil {
			sync = conf.LevelDB.SyncWrites
		}
		return NewLevelDBStorage(target, sync)
	})
}

type LevelDBStorage struct {
	db *leveldb.DB
}

func NewLevelDBStorage(path string, sync bool) (*LevelDBStorage, error) {
	if len(path) == 0 {
		return nil, errors.New("leveldb storage needs a directory")
	}
	db, err := engine_util.CreateLevelDB(path, sync)
	if err != nil {
		return nil, err
	}
	log.Infof("leveldb storage opened at %s", path)
	return &LevelDBStorage{db: db}, nil
}

func (s *LevelDBStorage) Begin(ctx context.Context, write, _ bool) (storage.Txn, error) {
	if !write {
		snap, err := s.db.GetSnapshot()
		if err != nil {
			return nil, errors.WithStack(err)
		}
		return &ldbTxn{snap: snap}, nil
	}
	// OpenTransaction blocks while another transaction is open.
	type result struct {
		tr  *leveldb.Transaction
		err error
	}
	ch := make(chan result, 1)
	go func() {
		tr, err := s.db.OpenTransaction()
		ch <- result{tr, err}
	}()
	select {
	case r := <-ch:
		if r.err != nil {
			return nil, errors.WithStack(r.err)
		}
		return &ldbTxn{tr: r.tr, write: true}, nil
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.tr != nil {
				r.tr.Discard()
			}
		}()
		return nil, errors.Trace(ctx.Err())
	}
}

func (s *LevelDBStorage) Close() error {
	return errors.WithStack(s.db.Close())
}

type ldbTxn struct {
	snap  *leveldb.Snapshot
	tr    *leveldb.Transaction
	write bool
	done  bool
}

func (t *ldbTxn) Closed() bool    { return t.done }
func (t *ldbTxn) Writeable() bool { return t.write }

func (t *ldbTxn) Get(_ context.Context, key []byte) ([]byte, error) {
	if err := storage.CheckOpen(t.done); err != nil {
		return nil, err
	}
	var val []byte
	var err error
	if t.write {
		val, err = t.tr.Get(key, nil)
	} else {
		val, err = t.snap.Get(key, nil)
	}
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	return val, errors.WithStack(err)
}

func (t *ldbTxn) Exists(ctx context.Context, key []byte) (bool, error) {
	val, err := t.Get(ctx, key)
	return val != nil, err
}

func (t *ldbTxn) Set(_ context.Context, key, val []byte) error {
	if err := t.checkWrite(key); err != nil {
		return err
	}
	return errors.WithStack(t.tr.Put(key, val, nil))
}

func (t *ldbTxn) Del(_ context.Context, key []byte) error {
	if err := t.checkWrite(key); err != nil {
		return err
	}
	return errors.WithStack(t.tr.Delete(key, nil))
}

func (t *ldbTxn) Put(ctx context.Context, key, val []byte) error {
	if err := t.checkWrite(key); err != nil {
		return err
	}
	return storage.PutIfAbsent(ctx, t, key, val)
}

func (t *ldbTxn) Putc(ctx context.Context, key, val, chk []byte) error {
	if err := t.checkWrite(key); err != nil {
		return err
	}
	return storage.PutIfEqual(ctx, t, key, val, chk)
}

func (t *ldbTxn) Delc(ctx context.Context, key, chk []byte) error {
	if err := t.checkWrite(key); err != nil {
		return err
	}
	return storage.DelIfEqual(ctx, t, key, chk)
}

func (t *ldbTxn) checkWrite(key []byte) error {
	if err := storage.CheckWritable(t.done, t.write); err != nil {
		return err
	}
	if len(key) == 0 {
		return errors.WithStack(storage.ErrTxKeyEmpty)
	}
	return nil
}

func (t *ldbTxn) Scan(_ context.Context, beg, end []byte, limit uint32) ([]storage.KV, error) {
	if err := storage.CheckOpen(t.done); err != nil {
		return nil, err
	}
	rng := &util.Range{Start: beg, Limit: end}
	var it *engine_util.LdbIterator
	if t.write {
		it = engine_util.NewLdbIterator(t.tr.NewIterator(rng, nil))
	} else {
		it = engine_util.NewLdbIterator(t.snap.NewIterator(rng, nil))
	}
	defer it.Close()
	kvs, err := engine_util.ScanIterator(it, beg, end, limit)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return kvs, errors.WithStack(it.Error())
}

func (t *ldbTxn) Commit(_ context.Context) error {
	if err := storage.CheckOpen(t.done); err != nil {
		return err
	}
	t.done = true
	if !t.write {
		t.snap.Release()
		return errors.WithStack(storage.ErrTxReadonly)
	}
	return errors.WithStack(t.tr.Commit())
}

func (t *ldbTxn) Cancel(_ context.Context) error {
	if err := storage.CheckOpen(t.done); err != nil {
		return err
	}
	t.done = true
	if t.write {
		t.tr.Discard()
	} else {
		t.snap.Release()
	}
	return nil
}
