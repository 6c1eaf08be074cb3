package transaction

import (
	"context"
	"math"

	"github.com/pingcap/errors"

	"github.com/pingcap-incubator/tinydb/kv/changefeed"
	"github.com/pingcap-incubator/tinydb/kv/clock"
	"github.com/pingcap-incubator/tinydb/kv/keys"
	"github.com/pingcap-incubator/tinydb/kv/storage"
)

// GetVersionstamp returns the last versionstamp handed out to the change feed of a database.
func (t *Transaction) GetVersionstamp(ctx context.Context, ns, db string) (clock.Versionstamp, bool, error) {
	val, err := t.tx.Get(ctx, keys.Versionstamp(ns, db))
	if err != nil || val == nil {
		return clock.Versionstamp{}, false, err
	}
	vs, err := clock.VersionstampFromBytes(val)
	return vs, err == nil, err
}

// pendingVersionstamp is the versionstamp the next change of a database will get.
func (t *Transaction) pendingVersionstamp(ctx context.Context, ns, db string) (clock.Versionstamp, error) {
	vs, ok, err := t.GetVersionstamp(ctx, ns, db)
	if err != nil {
		return vs, err
	}
	if !ok {
		return clock.VersionstampFromUint64(1), nil
	}
	return vs.Next(), nil
}

// nextVersionstamp allocates a versionstamp. Concurrent writers of one database write the same key, so at most one
// of them commits.
func (t *Transaction) nextVersionstamp(ctx context.Context, ns, db string) (clock.Versionstamp, error) {
	vs, err := t.pendingVersionstamp(ctx, ns, db)
	if err != nil {
		return vs, err
	}
	return vs, t.tx.Set(ctx, keys.Versionstamp(ns, db), vs[:])
}

// SetTimestampForVersionstamp records that changes of the database made from ts on have versionstamps at least as
// large as the returned one. Recording a timestamp not after the latest recorded one fails with ErrTimestampOrder.
func (t *Transaction) SetTimestampForVersionstamp(ctx context.Context, ts clock.Timestamp, ns,
	db string) (clock.Versionstamp, error) {
	newer, err := t.tx.Scan(ctx, keys.Timestamp(ns, db, ts), keys.Suffix(keys.TimestampPrefix(ns, db)), 1)
	if err != nil {
		return clock.Versionstamp{}, err
	}
	if len(newer) > 0 {
		latest, _ := keys.DecodeTimestamp(newer[0].Key)
		return clock.Versionstamp{}, errors.Annotatef(ErrTimestampOrder, "%d is not after %d", ts, latest)
	}
	vs, err := t.pendingVersionstamp(ctx, ns, db)
	if err != nil {
		return vs, err
	}
	return vs, t.tx.Set(ctx, keys.Timestamp(ns, db, ts), vs[:])
}

// GetVersionstampFromTimestamp returns the versionstamp recorded for the latest timestamp not after ts.
func (t *Transaction) GetVersionstampFromTimestamp(ctx context.Context, ts clock.Timestamp, ns,
	db string) (clock.Versionstamp, bool, error) {
	end := keys.Suffix(keys.TimestampPrefix(ns, db))
	if ts < math.MaxUint64 {
		end = keys.Timestamp(ns, db, ts+1)
	}
	var last []byte
	err := t.Stream(ctx, keys.TimestampPrefix(ns, db), end, NoLimit,
		func(kv storage.KV) error {
			last = kv.Value
			return nil
		})
	if err != nil || last == nil {
		return clock.Versionstamp{}, false, err
	}
	vs, err := clock.VersionstampFromBytes(last)
	return vs, err == nil, err
}

// ChangesSince returns up to limit change sets of a database from versionstamp vs on, in versionstamp order. A non
// empty tb keeps the changes of that table only.
func (t *Transaction) ChangesSince(ctx context.Context, ns, db, tb string, vs clock.Versionstamp,
	limit uint32) ([]changefeed.ChangeSet, error) {
	var sets []changefeed.ChangeSet
	end := keys.Suffix(keys.ChangePrefix(ns, db))
	err := t.Stream(ctx, keys.ChangeAt(ns, db, vs), end, NoLimit, func(kv storage.KV) error {
		at, table, err := keys.DecodeChange(kv.Key)
		if err != nil {
			return err
		}
		if tb != "" && table != tb {
			return nil
		}
		if n := len(sets); n == 0 || sets[n-1].Versionstamp != at {
			if uint32(n) == limit {
				return errStopStream
			}
			sets = append(sets, changefeed.ChangeSet{Versionstamp: at})
		}
		muts, err := changefeed.Decode(kv.Value)
		if err != nil {
			return err
		}
		cur := &sets[len(sets)-1]
		cur.Tables = append(cur.Tables, *muts)
		return nil
	})
	if err != nil && err != errStopStream {
		return nil, err
	}
	return sets, nil
}
