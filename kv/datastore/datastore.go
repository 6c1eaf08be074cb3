// Package datastore is the long lived handle on a storage engine. It opens transactions, checks the storage format
// version, tracks the nodes of the cluster sharing the engine, and runs background tasks such as change feed garbage
// collection and index builds.
package datastore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pingcap/errors"
	"go.uber.org/atomic"

	"github.com/pingcap-incubator/tinydb/kv/cache"
	"github.com/pingcap-incubator/tinydb/kv/clock"
	"github.com/pingcap-incubator/tinydb/kv/config"
	"github.com/pingcap-incubator/tinydb/kv/storage"
	"github.com/pingcap-incubator/tinydb/kv/transaction"
	"github.com/pingcap-incubator/tinydb/log"
)

type Datastore struct {
	id      uuid.UUID
	conf    *config.Config
	store   storage.Storage
	clock   clock.Clock
	shared  *cache.Shared
	factory transaction.Factory

	strict           bool
	auth             bool
	queryTimeout     time.Duration
	txTimeout        time.Duration
	capabilities     *Capabilities
	parser           Parser
	notifications    chan Notification
	notificationsCap int

	indexes *IndexBuilder
	// set while this node runs change feed garbage collection
	gcRunning atomic.Bool
	closeOnce sync.Once
}

// New opens a datastore on the engine named by a connection string such as "memory", "badger:///var/lib/tinydb"
// or "redis://127.0.0.1:6379/0", with the default configuration otherwise.
func New(ctx context.Context, path string) (*Datastore, error) {
	conf := config.NewDefaultConfig()
	conf.Path = path
	return NewFromConfig(ctx, conf)
}

func NewFromConfig(ctx context.Context, conf *config.Config) (*Datastore, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if conf.LogLevel != "" {
		log.SetLevelByString(conf.LogLevel)
	}
	id := uuid.New()
	if conf.NodeID != "" {
		var err error
		if id, err = uuid.Parse(conf.NodeID); err != nil {
			return nil, errors.Annotatef(err, "invalid node id %q", conf.NodeID)
		}
	}
	store, err := storage.Open(ctx, conf.Path, conf)
	if err != nil {
		return nil, err
	}
	shared, err := cache.NewShared(conf.SharedCacheSize)
	if err != nil {
		store.Close()
		return nil, err
	}
	ds := &Datastore{
		id:               id,
		conf:             conf,
		store:            store,
		clock:            clock.NewSystemClock(),
		shared:           shared,
		strict:           conf.Strict,
		auth:             conf.AuthEnabled,
		queryTimeout:     conf.QueryTimeout.Duration,
		txTimeout:        conf.TransactionTimeout.Duration,
		capabilities:     NewCapabilities(),
		notificationsCap: conf.NotificationCapacity,
	}
	ds.rebuildFactory()
	ds.indexes = newIndexBuilder(ds)
	log.Infof("started datastore at %s, node %s", conf.Path, id)
	return ds, nil
}

func (ds *Datastore) rebuildFactory() {
	ds.factory = transaction.NewFactory(ds.store, ds.clock, ds.shared).WithStrict(ds.strict)
}

// The With methods configure the datastore before it is used. They are not safe to call once transactions run.

func (ds *Datastore) WithNodeID(id uuid.UUID) *Datastore {
	ds.id = id
	return ds
}

// WithStrictMode makes catalog objects require a definition before they are used.
func (ds *Datastore) WithStrictMode(strict bool) *Datastore {
	ds.strict = strict
	ds.rebuildFactory()
	return ds
}

// WithNotifications enables the live query notification channel.
func (ds *Datastore) WithNotifications() *Datastore {
	ds.notifications = make(chan Notification, ds.notificationsCap)
	return ds
}

func (ds *Datastore) WithQueryTimeout(d time.Duration) *Datastore {
	ds.queryTimeout = d
	return ds
}

func (ds *Datastore) WithTransactionTimeout(d time.Duration) *Datastore {
	ds.txTimeout = d
	return ds
}

func (ds *Datastore) WithAuthEnabled(enabled bool) *Datastore {
	ds.auth = enabled
	return ds
}

func (ds *Datastore) WithCapabilities(caps *Capabilities) *Datastore {
	ds.capabilities = caps
	return ds
}

// WithParser sets the parser Execute turns query text into computations with.
func (ds *Datastore) WithParser(p Parser) *Datastore {
	ds.parser = p
	return ds
}

// WithClock replaces the system clock, mostly for tests.
func (ds *Datastore) WithClock(clk clock.Clock) *Datastore {
	ds.clock = clk
	ds.rebuildFactory()
	return ds
}

func (ds *Datastore) NodeID() uuid.UUID { return ds.id }

func (ds *Datastore) Config() *config.Config { return ds.conf }

func (ds *Datastore) Clock() clock.Clock { return ds.clock }

func (ds *Datastore) IsStrict() bool { return ds.strict }

func (ds *Datastore) IsAuthEnabled() bool { return ds.auth }

func (ds *Datastore) Capabilities() *Capabilities { return ds.capabilities }

// Factory returns a transaction factory sharing the engine, clock and caches of the datastore.
func (ds *Datastore) Factory() transaction.Factory { return ds.factory }

// Transaction opens a transaction on the engine.
func (ds *Datastore) Transaction(ctx context.Context, typ transaction.TransactionType,
	lock transaction.LockType) (*transaction.Transaction, error) {
	return ds.factory.Transaction(ctx, typ, lock)
}

// IndexBuilder returns the builder running index builds in the background.
func (ds *Datastore) IndexBuilder() *IndexBuilder { return ds.indexes }

// Close stops the background workers and closes the engine.
func (ds *Datastore) Close() error {
	var err error
	ds.closeOnce.Do(func() {
		ds.indexes.stop()
		err = ds.store.Close()
		log.Infof("closed datastore at %s", ds.conf.Path)
	})
	return errors.Trace(err)
}

// run opens a transaction, calls fn and commits, or cancels when fn fails.
func (ds *Datastore) run(ctx context.Context, typ transaction.TransactionType, lock transaction.LockType,
	fn func(tx *transaction.Transaction) error) error {
	tx, err := ds.Transaction(ctx, typ, lock)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if cerr := tx.Cancel(ctx); cerr != nil {
			log.Warnf("cancel transaction: %v", cerr)
		}
		return err
	}
	if typ == transaction.Read {
		return tx.Cancel(ctx)
	}
	return tx.Commit(ctx)
}
