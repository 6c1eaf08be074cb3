package datastore

import (
	"context"
	"time"

	"github.com/pingcap/errors"
	"golang.org/x/sync/errgroup"

	"github.com/pingcap-incubator/tinydb/kv/catalog"
	"github.com/pingcap-incubator/tinydb/kv/clock"
	"github.com/pingcap-incubator/tinydb/kv/keys"
	"github.com/pingcap-incubator/tinydb/kv/storage"
	"github.com/pingcap-incubator/tinydb/kv/transaction"
	"github.com/pingcap-incubator/tinydb/log"
)

// gcConcurrency bounds the databases collected at the same time.
const gcConcurrency = 4

type dbRef struct {
	ns, db string
}

// ChangefeedProcess records the current time against the change feed of every database and removes expired change
// feed entries. Only the node holding the change feed task lease does the work, other nodes return at once. A call
// made while the previous one is still running on this node returns at once too.
func (ds *Datastore) ChangefeedProcess(ctx context.Context) error {
	if !ds.gcRunning.CompareAndSwap(false, true) {
		log.Debugf("changefeed process already running on node %s", ds.id)
		return nil
	}
	defer ds.gcRunning.Store(false)
	held, err := ds.AcquireLease(ctx, TaskChangefeedCleanup, ds.conf.TaskLeaseDuration.Duration)
	if err != nil {
		return err
	}
	if !held {
		log.Debugf("node %s does not hold the %s lease", ds.id, TaskChangefeedCleanup)
		return nil
	}
	return ds.ChangefeedProcessAt(ctx, ds.clock.Now())
}

// ChangefeedProcessAt is ChangefeedProcess at a given time, without the lease. Each database is handled in its own
// transaction.
func (ds *Datastore) ChangefeedProcessAt(ctx context.Context, ts clock.Timestamp) error {
	var dbs []dbRef
	err := ds.run(ctx, transaction.Read, transaction.Optimistic, func(tx *transaction.Transaction) error {
		nss, err := tx.AllNs(ctx)
		if err != nil {
			return err
		}
		for _, ns := range nss {
			all, err := tx.AllDb(ctx, ns.Name)
			if err != nil {
				return err
			}
			for _, db := range all {
				dbs = append(dbs, dbRef{ns: ns.Name, db: db.Name})
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(gcConcurrency)
	for _, ref := range dbs {
		ref := ref
		g.Go(func() error {
			return ds.run(gctx, transaction.Write, transaction.Optimistic, func(tx *transaction.Transaction) error {
				return processDatabase(gctx, tx, ref.ns, ref.db, ts)
			})
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Annotatef(err, "changefeed process at %s", ts.Time())
	}
	return nil
}

// processDatabase maps ts to the pending versionstamp of a database, then deletes what is older than the longest
// change feed retention configured on the database or its tables.
func processDatabase(ctx context.Context, tx *transaction.Transaction, ns, db string, ts clock.Timestamp) error {
	if _, err := tx.SetTimestampForVersionstamp(ctx, ts, ns, db); err != nil {
		if errors.Cause(err) != transaction.ErrTimestampOrder {
			return err
		}
		log.Warnf("skipping timestamp mapping of %s/%s: %v", ns, db, err)
	}
	expiry, err := retention(ctx, tx, ns, db)
	if err != nil || expiry == 0 {
		return err
	}
	horizon := ts.Sub(expiry)
	vs, ok, err := tx.GetVersionstampFromTimestamp(ctx, horizon, ns, db)
	if err != nil || !ok {
		return err
	}
	n, err := deleteRange(ctx, tx, keys.ChangePrefix(ns, db), keys.ChangeAt(ns, db, vs))
	if err != nil {
		return err
	}
	changefeedGCCounter.WithLabelValues("change").Add(float64(n))
	// the mapping the horizon resolved to stays so later runs still resolve it
	kept, err := lastKey(ctx, tx, keys.TimestampPrefix(ns, db), keys.Timestamp(ns, db, horizon+1))
	if err != nil {
		return err
	}
	m, err := deleteRange(ctx, tx, keys.TimestampPrefix(ns, db), kept)
	if err != nil {
		return err
	}
	changefeedGCCounter.WithLabelValues("timestamp").Add(float64(m))
	if n > 0 {
		log.Infof("removed %d change feed entries of %s/%s before %s", n, ns, db, vs)
	}
	return nil
}

// retention is the longest change feed expiry of a database and its tables, zero when none has a change feed.
func retention(ctx context.Context, tx *transaction.Transaction, ns, db string) (time.Duration, error) {
	def, err := tx.GetDb(ctx, ns, db)
	if err != nil {
		return 0, err
	}
	var expiry time.Duration
	longest := func(cf *catalog.ChangefeedConfig) {
		if cf != nil && cf.Expiry > expiry {
			expiry = cf.Expiry
		}
	}
	longest(def.Changefeed)
	tbs, err := tx.AllTb(ctx, ns, db)
	if err != nil {
		return 0, err
	}
	for _, tb := range tbs {
		longest(tb.Changefeed)
	}
	return expiry, nil
}

// deleteRange deletes [beg, end) and reports how many keys it removed.
func deleteRange(ctx context.Context, tx *transaction.Transaction, beg, end []byte) (int, error) {
	n := 0
	err := tx.Stream(ctx, beg, end, transaction.NoLimit, func(kv storage.KV) error {
		n++
		return tx.Del(ctx, kv.Key)
	})
	return n, err
}

func lastKey(ctx context.Context, tx *transaction.Transaction, beg, end []byte) ([]byte, error) {
	var last []byte
	err := tx.Stream(ctx, beg, end, transaction.NoLimit, func(kv storage.KV) error {
		last = kv.Key
		return nil
	})
	return last, err
}
