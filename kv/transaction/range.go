package transaction

import (
	"context"
	"math"

	"github.com/pingcap/errors"

	"github.com/pingcap-incubator/tinydb/kv/keys"
	"github.com/pingcap-incubator/tinydb/kv/storage"
	"github.com/pingcap-incubator/tinydb/kv/util/engine_util"
)

// NoLimit makes the range helpers read the whole range.
const NoLimit = math.MaxUint32

// errStopStream ends a Stream early without failing it.
var errStopStream = errors.New("stop stream")

// Stream calls fn for every pair in [beg, end), in key order, stopping after limit pairs. It holds at most one
// batch of rows in memory.
func (t *Transaction) Stream(ctx context.Context, beg, end []byte, limit uint32, fn func(storage.KV) error) error {
	next := beg
	for limit > 0 {
		batch := limit
		if batch > NormalFetchSize {
			batch = NormalFetchSize
		}
		res, err := t.tx.Scan(ctx, next, end, batch)
		if err != nil {
			return err
		}
		if len(res) == 0 {
			return nil
		}
		for _, kv := range res {
			if err := fn(kv); err != nil {
				return err
			}
		}
		limit -= uint32(len(res))
		next = engine_util.NextKey(res[len(res)-1].Key)
	}
	return nil
}

// Getr returns up to limit pairs from [beg, end).
func (t *Transaction) Getr(ctx context.Context, beg, end []byte, limit uint32) ([]storage.KV, error) {
	var out []storage.KV
	err := t.Stream(ctx, beg, end, limit, func(kv storage.KV) error {
		out = append(out, kv)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delr deletes up to limit keys from [beg, end), one by one.
func (t *Transaction) Delr(ctx context.Context, beg, end []byte, limit uint32) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	return t.Stream(ctx, beg, end, limit, func(kv storage.KV) error {
		return t.tx.Del(ctx, kv.Key)
	})
}

// Getp returns up to limit pairs whose key starts with prefix.
func (t *Transaction) Getp(ctx context.Context, prefix []byte, limit uint32) ([]storage.KV, error) {
	beg, end := keys.Range(prefix)
	return t.Getr(ctx, beg, end, limit)
}

// Delp deletes up to limit keys starting with prefix.
func (t *Transaction) Delp(ctx context.Context, prefix []byte, limit uint32) error {
	beg, end := keys.Range(prefix)
	return t.Delr(ctx, beg, end, limit)
}
