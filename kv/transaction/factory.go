package transaction

import (
	"context"

	"github.com/pingcap/errors"

	"github.com/pingcap-incubator/tinydb/kv/cache"
	"github.com/pingcap-incubator/tinydb/kv/clock"
	"github.com/pingcap-incubator/tinydb/kv/storage"
)

// Factory opens transactions on one engine. It is cheap to copy and safe for concurrent use.
type Factory struct {
	store  storage.Storage
	clock  clock.Clock
	shared *cache.Shared
	strict bool
}

// NewFactory binds an engine and a clock. shared may be nil, GetAndCache helpers then read through the transaction
// cache only.
func NewFactory(store storage.Storage, clk clock.Clock, shared *cache.Shared) Factory {
	return Factory{store: store, clock: clk, shared: shared}
}

// WithStrict returns a copy of the factory whose transactions run in strict mode.
func (f Factory) WithStrict(strict bool) Factory {
	f.strict = strict
	return f
}

func (f Factory) Storage() storage.Storage { return f.store }

func (f Factory) Clock() clock.Clock { return f.clock }

// Transaction opens a transaction. Pessimistic transactions ask the engine for locking.
func (f Factory) Transaction(ctx context.Context, typ TransactionType, lock LockType) (*Transaction, error) {
	tx, err := f.store.Begin(ctx, typ == Write, lock == Pessimistic)
	if err != nil {
		return nil, errors.Annotatef(err, "begin %s %s transaction", typ, lock)
	}
	return newTransaction(tx, typ, lock, f.strict, f.clock, f.shared), nil
}
