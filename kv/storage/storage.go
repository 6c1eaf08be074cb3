package storage

import (
	"context"
)

// Storage represents a storage engine of the datastore. It hands out transactions over raw, ordered byte keys.
// An engine is chosen once, when the datastore is constructed, and is used for the datastore's whole lifetime.
type Storage interface {
	// Begin opens a transaction. write selects whether the transaction may mutate the store, lockable selects
	// pessimistic locking where the engine supports it. Every engine accepts both lock modes and documents how it
	// maps them.
	Begin(ctx context.Context, write, lockable bool) (Txn, error)
	Close() error
}

// Txn is a unit of work against one storage engine. A Txn is used by a single goroutine and becomes unusable once
// Commit or Cancel has run, every later call fails with ErrTxFinished.
type Txn interface {
	// Closed reports whether the transaction was committed or cancelled.
	Closed() bool
	// Writeable reports whether the transaction was opened for writing.
	Writeable() bool

	// Get returns the value stored under key, nil if there is none.
	Get(ctx context.Context, key []byte) ([]byte, error)
	Exists(ctx context.Context, key []byte) (bool, error)
	// Set stores val under key, replacing any previous value.
	Set(ctx context.Context, key, val []byte) error
	// Put stores val under key, failing with ErrTxKeyAlreadyExists when the key is present.
	Put(ctx context.Context, key, val []byte) error
	// Putc stores val under key only when the current value equals chk. A nil chk means the key must not exist.
	Putc(ctx context.Context, key, val, chk []byte) error
	Del(ctx context.Context, key []byte) error
	// Delc deletes key only when the current value equals chk. A nil chk means the key must not exist.
	Delc(ctx context.Context, key, chk []byte) error
	// Scan returns at most limit pairs from the half open range [beg, end), in ascending key order.
	Scan(ctx context.Context, beg, end []byte, limit uint32) ([]KV, error)

	Commit(ctx context.Context) error
	Cancel(ctx context.Context) error
}

type KV struct {
	Key   []byte
	Value []byte
}
