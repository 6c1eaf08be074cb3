// Package etcd_storage is a distributed engine on an etcd v3 cluster.
//
// Connection target: "host:port[,host:port...][/namespace]". Data keys are stored under "<namespace>d/" and lock keys
// under "<namespace>l/".
//
// Lock modes: reads see the cluster revision current at begin and writes are buffered until commit, where one etcd
// transaction applies them if none of the written keys was modified after that revision. Otherwise commit fails with
// ErrTxConflict. A pessimistic transaction also takes an etcd mutex on every key before writing it and holds the
// mutexes until commit or cancel, so a second pessimistic writer of the same key blocks. Its locked keys are compared
// against the revision the mutex was acquired at, which catches optimistic writers committing in between. etcd caps the number of
// operations in one transaction (128 by default), which bounds the number of keys a transaction may write.
package etcd_storage

import (
	"context"
	"encoding/hex"
	"strings"
	"time"

	"github.com/pingcap/errors"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"

	"github.com/pingcap-incubator/tinydb/kv/config"
	"github.com/pingcap-incubator/tinydb/kv/storage"
	"github.com/pingcap-incubator/tinydb/kv/util/engine_util"
	"github.com/pingcap-incubator/tinydb/log"
)

func init() {
	storage.Register("etcd", func(_ context.Context, target string, conf *config.Config) (storage.Storage, error) {
		dial := 5 * time.Second
		if conf != nil {
			dial = conf.Etcd.DialTimeout.Duration
		}
		return NewEtcdStorage(target, dial)
	})
}

const lockSessionTTL = 60

type EtcdStorage struct {
	cli       *clientv3.Client
	namespace string
}

// ParseTarget splits "host:port,host:port/namespace" into endpoints and namespace.
func ParseTarget(target string) (endpoints []string, namespace string) {
	hosts := target
	if i := strings.Index(target, "/"); i >= 0 {
		hosts, namespace = target[:i], target[i+1:]
	}
	for _, h := range strings.Split(hosts, ",") {
		if h = strings.TrimSpace(h); h != "" {
			endpoints = append(endpoints, h)
		}
	}
	return
}

func NewEtcdStorage(target string, dialTimeout time.Duration) (*EtcdStorage, error) {
	endpoints, namespace := ParseTarget(target)
	if len(endpoints) == 0 {
		return nil, errors.Errorf("no etcd endpoints in %q", target)
	}
	cli, err := clientv3.New(clientv3.Config{Endpoints: endpoints, DialTimeout: dialTimeout})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	log.Infof("etcd storage connected to %v, namespace %q", endpoints, namespace)
	return NewEtcdStorageWithClient(cli, namespace), nil
}

// NewEtcdStorageWithClient uses an existing client, which the storage closes on Close.
func NewEtcdStorageWithClient(cli *clientv3.Client, namespace string) *EtcdStorage {
	return &EtcdStorage{cli: cli, namespace: namespace}
}

func (s *EtcdStorage) dataKey(key []byte) string {
	return s.namespace + "d/" + string(key)
}

func (s *EtcdStorage) userKey(key []byte) []byte {
	return key[len(s.namespace)+2:]
}

func (s *EtcdStorage) dataEnd(end []byte) string {
	if len(end) == 0 {
		return string(engine_util.PrefixEnd([]byte(s.namespace + "d/")))
	}
	return s.dataKey(end)
}

func (s *EtcdStorage) lockKey(key []byte) string {
	return s.namespace + "l/" + hex.EncodeToString(key)
}

func (s *EtcdStorage) Begin(ctx context.Context, write, lockable bool) (storage.Txn, error) {
	resp, err := s.cli.Get(ctx, s.dataKey(nil), clientv3.WithCountOnly())
	if err != nil {
		return nil, errors.WithStack(err)
	}
	txn := &etcdTxn{
		s:        s,
		rev:      resp.Header.Revision,
		write:    write,
		lockable: lockable && write,
	}
	if write {
		txn.batch = engine_util.NewWriteBatch()
	}
	return txn, nil
}

func (s *EtcdStorage) Close() error {
	return errors.WithStack(s.cli.Close())
}

type etcdTxn struct {
	s        *EtcdStorage
	rev      int64
	write    bool
	lockable bool
	done     bool
	batch    *engine_util.WriteBatch

	session *concurrency.Session
	locks   map[string]*concurrency.Mutex
	// revision each lock was acquired at
	lockRevs map[string]int64
}

func (t *etcdTxn) Closed() bool    { return t.done }
func (t *etcdTxn) Writeable() bool { return t.write }

func (t *etcdTxn) Get(ctx context.Context, key []byte) ([]byte, error) {
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
	opts := []clientv3.OpOption{clientv3.WithRev(t.rev)}
	if _, ok := t.locks[string(key)]; ok {
		// locked keys are read at the latest revision
		opts = nil
	}
	resp, err := t.s.cli.Get(ctx, t.s.dataKey(key), opts...)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if len(resp.Kvs) == 0 {
		return nil, nil
	}
	return resp.Kvs[0].Value, nil
}

func (t *etcdTxn) Exists(ctx context.Context, key []byte) (bool, error) {
	val, err := t.Get(ctx, key)
	return val != nil, err
}

func (t *etcdTxn) Set(ctx context.Context, key, val []byte) error {
	if err := t.prepareWrite(ctx, key); err != nil {
		return err
	}
	t.batch.Set(append([]byte{}, key...), append([]byte{}, val...))
	return nil
}

func (t *etcdTxn) Del(ctx context.Context, key []byte) error {
	if err := t.prepareWrite(ctx, key); err != nil {
		return err
	}
	t.batch.Delete(append([]byte{}, key...))
	return nil
}

func (t *etcdTxn) Put(ctx context.Context, key, val []byte) error {
	if err := t.prepareWrite(ctx, key); err != nil {
		return err
	}
	return storage.PutIfAbsent(ctx, t, key, val)
}

func (t *etcdTxn) Putc(ctx context.Context, key, val, chk []byte) error {
	if err := t.prepareWrite(ctx, key); err != nil {
		return err
	}
	return storage.PutIfEqual(ctx, t, key, val, chk)
}

func (t *etcdTxn) Delc(ctx context.Context, key, chk []byte) error {
	if err := t.prepareWrite(ctx, key); err != nil {
		return err
	}
	return storage.DelIfEqual(ctx, t, key, chk)
}

func (t *etcdTxn) prepareWrite(ctx context.Context, key []byte) error {
	if err := storage.CheckWritable(t.done, t.write); err != nil {
		return err
	}
	if len(key) == 0 {
		return errors.WithStack(storage.ErrTxKeyEmpty)
	}
	if !t.lockable {
		return nil
	}
	if _, ok := t.locks[string(key)]; ok {
		return nil
	}
	if t.session == nil {
		sess, err := concurrency.NewSession(t.s.cli, concurrency.WithTTL(lockSessionTTL), concurrency.WithContext(ctx))
		if err != nil {
			return errors.WithStack(err)
		}
		t.session = sess
		t.locks = make(map[string]*concurrency.Mutex)
		t.lockRevs = make(map[string]int64)
	}
	m := concurrency.NewMutex(t.session, t.s.lockKey(key))
	if err := m.Lock(ctx); err != nil {
		return errors.WithStack(err)
	}
	t.locks[string(key)] = m
	t.lockRevs[string(key)] = m.Header().Revision
	return nil
}

func (t *etcdTxn) Scan(ctx context.Context, beg, end []byte, limit uint32) ([]storage.KV, error) {
	if err := storage.CheckOpen(t.done); err != nil {
		return nil, err
	}
	return engine_util.MergeScan(t.batch, beg, end, limit, func(beg, end []byte, limit uint32) ([]storage.KV, error) {
		resp, err := t.s.cli.Get(ctx, t.s.dataKey(beg),
			clientv3.WithRange(t.s.dataEnd(end)),
			clientv3.WithRev(t.rev),
			clientv3.WithLimit(int64(limit)),
			clientv3.WithSort(clientv3.SortByKey, clientv3.SortAscend))
		if err != nil {
			return nil, errors.WithStack(err)
		}
		out := make([]storage.KV, 0, len(resp.Kvs))
		for _, kv := range resp.Kvs {
			out = append(out, storage.KV{Key: t.s.userKey(kv.Key), Value: kv.Value})
		}
		return out, nil
	})
}

func (t *etcdTxn) Commit(ctx context.Context) error {
	if err := storage.CheckOpen(t.done); err != nil {
		return err
	}
	t.done = true
	if !t.write {
		return errors.WithStack(storage.ErrTxReadonly)
	}
	defer t.unlock(ctx)
	if t.batch.Len() == 0 {
		return nil
	}
	var cmps []clientv3.Cmp
	var ops []clientv3.Op
	t.batch.Range(nil, nil, func(e *engine_util.Entry) bool {
		k := t.s.dataKey(e.Key)
		rev := t.rev
		if r, locked := t.lockRevs[string(e.Key)]; locked {
			rev = r
		}
		cmps = append(cmps, clientv3.Compare(clientv3.ModRevision(k), "<", rev+1))
		if e.Deleted {
			ops = append(ops, clientv3.OpDelete(k))
		} else {
			ops = append(ops, clientv3.OpPut(k, string(e.Value)))
		}
		return true
	})
	resp, err := t.s.cli.Txn(ctx).If(cmps...).Then(ops...).Commit()
	if err != nil {
		return errors.WithStack(err)
	}
	if !resp.Succeeded {
		return errors.WithStack(storage.ErrTxConflict)
	}
	return nil
}

func (t *etcdTxn) Cancel(ctx context.Context) error {
	if err := storage.CheckOpen(t.done); err != nil {
		return err
	}
	t.done = true
	t.unlock(ctx)
	return nil
}

func (t *etcdTxn) unlock(ctx context.Context) {
	for key, m := range t.locks {
		if err := m.Unlock(ctx); err != nil {
			log.Warnf("etcd storage: unlock %x: %v", key, err)
		}
	}
	t.locks = nil
	t.lockRevs = nil
	if t.session != nil {
		if err := t.session.Close(); err != nil {
			log.Warnf("etcd storage: close lock session: %v", err)
		}
		t.session = nil
	}
	t.batch = nil
}
