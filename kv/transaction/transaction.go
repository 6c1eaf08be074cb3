package transaction

import (
	"bytes"
	"context"
	"time"

	"github.com/pingcap-incubator/tinydb/kv/cache"
	"github.com/pingcap-incubator/tinydb/kv/changefeed"
	"github.com/pingcap-incubator/tinydb/kv/clock"
	"github.com/pingcap-incubator/tinydb/kv/keys"
	"github.com/pingcap-incubator/tinydb/kv/storage"
	"github.com/pingcap-incubator/tinydb/log"
)

type Transaction struct {
	tx     storage.Txn
	typ    TransactionType
	lock   LockType
	strict bool
	clock  clock.Clock

	cache  *cache.DefinitionCache
	shared *cache.Shared
	cf     *changefeed.Writer

	// Shared cache keys and prefixes written by this transaction, cleared again once it commits.
	sharedKeys     [][]byte
	sharedPrefixes [][]byte
}

func newTransaction(tx storage.Txn, typ TransactionType, lock LockType, strict bool, clk clock.Clock,
	shared *cache.Shared) *Transaction {
	txCounter.WithLabelValues(typ.String(), lock.String(), "begin").Inc()
	return &Transaction{
		tx:     tx,
		typ:    typ,
		lock:   lock,
		strict: strict,
		clock:  clk,
		cache:  cache.NewDefinitionCache(),
		shared: shared,
		cf:     changefeed.NewWriter(),
	}
}

// Closed reports whether the transaction was committed or cancelled.
func (t *Transaction) Closed() bool {
	return t.tx.Closed()
}

func (t *Transaction) Writeable() bool {
	return t.tx.Writeable()
}

func (t *Transaction) Type() TransactionType { return t.typ }

func (t *Transaction) Lock() LockType { return t.lock }

// Strict reports whether catalog objects must be defined before use instead of being created on first use.
func (t *Transaction) Strict() bool { return t.strict }

func (t *Transaction) Clock() clock.Clock { return t.clock }

// Cache is the definition cache of this transaction.
func (t *Transaction) Cache() *cache.DefinitionCache { return t.cache }

// Cancel discards every write of the transaction.
func (t *Transaction) Cancel(ctx context.Context) error {
	t.cf.Reset()
	t.dropShared()
	if err := t.tx.Cancel(ctx); err != nil {
		return err
	}
	txCounter.WithLabelValues(t.typ.String(), t.lock.String(), "cancel").Inc()
	return nil
}

// Commit stores the buffered change feed entries and commits. A failed commit ends the transaction.
func (t *Transaction) Commit(ctx context.Context) error {
	start := time.Now()
	if t.tx.Writeable() && !t.tx.Closed() && t.cf.Len() > 0 {
		if err := t.storeChanges(ctx); err != nil {
			if cerr := t.tx.Cancel(ctx); cerr != nil {
				log.Warnf("cancel transaction after failed change feed write: %v", cerr)
			}
			txCounter.WithLabelValues(t.typ.String(), t.lock.String(), "commit_failure").Inc()
			return err
		}
	}
	if err := t.tx.Commit(ctx); err != nil {
		if t.tx.Writeable() {
			txCounter.WithLabelValues(t.typ.String(), t.lock.String(), "commit_failure").Inc()
			log.Debugf("commit %s %s transaction: %v", t.typ, t.lock, err)
		}
		return err
	}
	commitDuration.WithLabelValues(t.lock.String()).Observe(time.Since(start).Seconds())
	txCounter.WithLabelValues(t.typ.String(), t.lock.String(), "commit").Inc()
	t.dropShared()
	return nil
}

// dropShared clears every shared cache entry this transaction wrote to.
func (t *Transaction) dropShared() {
	if t.shared == nil {
		return
	}
	for _, k := range t.sharedKeys {
		t.shared.Del(k)
	}
	for _, p := range t.sharedPrefixes {
		t.shared.ClearPrefix(p)
	}
}

// clearedShared reports whether key was written by this transaction. Such values are not committed yet and must not
// reach the shared cache.
func (t *Transaction) clearedShared(key []byte) bool {
	for _, k := range t.sharedKeys {
		if bytes.Equal(k, key) {
			return true
		}
	}
	for _, p := range t.sharedPrefixes {
		if bytes.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

// storeChanges writes the buffered change feed entries. Every database touched gets one new versionstamp.
func (t *Transaction) storeChanges(ctx context.Context) error {
	writes, err := t.cf.Changes()
	if err != nil {
		return err
	}
	stamps := make(map[[2]string]clock.Versionstamp)
	for _, w := range writes {
		db := [2]string{w.NS, w.DB}
		vs, ok := stamps[db]
		if !ok {
			if vs, err = t.nextVersionstamp(ctx, w.NS, w.DB); err != nil {
				return err
			}
			stamps[db] = vs
		}
		if err := t.tx.Set(ctx, keys.Change(w.NS, w.DB, vs, w.TB), w.Value); err != nil {
			return err
		}
	}
	t.cf.Reset()
	return nil
}

func (t *Transaction) Get(ctx context.Context, key []byte) ([]byte, error) {
	return t.tx.Get(ctx, key)
}

func (t *Transaction) Exists(ctx context.Context, key []byte) (bool, error) {
	return t.tx.Exists(ctx, key)
}

func (t *Transaction) Set(ctx context.Context, key, val []byte) error {
	return t.tx.Set(ctx, key, val)
}

// Put inserts val, failing with storage.ErrTxKeyAlreadyExists when key is present.
func (t *Transaction) Put(ctx context.Context, key, val []byte) error {
	return t.tx.Put(ctx, key, val)
}

// Putc stores val when the current value equals chk, nil meaning absent.
func (t *Transaction) Putc(ctx context.Context, key, val, chk []byte) error {
	return t.tx.Putc(ctx, key, val, chk)
}

func (t *Transaction) Del(ctx context.Context, key []byte) error {
	return t.tx.Del(ctx, key)
}

// Delc deletes key when the current value equals chk, nil meaning absent.
func (t *Transaction) Delc(ctx context.Context, key, chk []byte) error {
	return t.tx.Delc(ctx, key, chk)
}

// Scan is a single engine scan of at most limit rows. Use Getr for unbounded ranges.
func (t *Transaction) Scan(ctx context.Context, beg, end []byte, limit uint32) ([]storage.KV, error) {
	return t.tx.Scan(ctx, beg, end, limit)
}

// clr drops key from the transaction cache and the shared cache.
func (t *Transaction) clr(key []byte) {
	t.cache.Del(key)
	if t.shared != nil {
		t.shared.Del(key)
		t.sharedKeys = append(t.sharedKeys, key)
	}
}

// clrp drops every cached entry under prefix.
func (t *Transaction) clrp(prefix []byte) {
	t.cache.ClearPrefix(prefix)
	if t.shared != nil {
		t.shared.ClearPrefix(prefix)
		t.sharedPrefixes = append(t.sharedPrefixes, prefix)
	}
}

func (t *Transaction) checkWritable() error {
	return storage.CheckWritable(t.tx.Closed(), t.tx.Writeable())
}
