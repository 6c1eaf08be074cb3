package datastore

import (
	"context"
	"time"

	"github.com/pingcap/errors"

	"github.com/pingcap-incubator/tinydb/kv/catalog"
	"github.com/pingcap-incubator/tinydb/kv/keys"
	"github.com/pingcap-incubator/tinydb/kv/storage"
	"github.com/pingcap-incubator/tinydb/kv/transaction"
)

// Background tasks which only one node of a cluster runs at a time.
const (
	TaskChangefeedCleanup = "changefeed_cleanup"
)

// AcquireLease makes this node the owner of task for d, unless another node owns it and its lease has not expired.
// An owner renews its own lease. Losing a race with another node reports false, not an error.
func (ds *Datastore) AcquireLease(ctx context.Context, task string, d time.Duration) (bool, error) {
	now := ds.clock.Now()
	held := false
	err := ds.run(ctx, transaction.Write, transaction.Optimistic, func(tx *transaction.Transaction) error {
		key := keys.TaskLease(task)
		cur, err := tx.Get(ctx, key)
		if err != nil {
			return err
		}
		if cur != nil {
			lease, err := catalog.Decode[catalog.TaskLease](cur)
			if err != nil {
				return err
			}
			if lease.Owner != ds.id && lease.Expiry > now {
				return nil
			}
		}
		val, err := catalog.Encode(&catalog.TaskLease{Owner: ds.id, Expiry: now.Add(d)})
		if err != nil {
			return err
		}
		if err := tx.Putc(ctx, key, val, cur); err != nil {
			return err
		}
		held = true
		return nil
	})
	if storage.IsConflict(err) || errors.Cause(err) == storage.ErrTxConditionNotMet {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return held, nil
}
