package storage

import (
	"bytes"
	"context"

	"github.com/pingcap/errors"
)

// ReadWriter is the subset of Txn the conditional helpers are built from. Engines without native conditional writes
// implement Put, Putc and Delc with these helpers, inside their own transaction.
type ReadWriter interface {
	Get(ctx context.Context, key []byte) ([]byte, error)
	Set(ctx context.Context, key, val []byte) error
	Del(ctx context.Context, key []byte) error
}

func PutIfAbsent(ctx context.Context, rw ReadWriter, key, val []byte) error {
	cur, err := rw.Get(ctx, key)
	if err != nil {
		return err
	}
	if cur != nil {
		return errors.WithStack(ErrTxKeyAlreadyExists)
	}
	return rw.Set(ctx, key, val)
}

func PutIfEqual(ctx context.Context, rw ReadWriter, key, val, chk []byte) error {
	if err := checkCurrent(ctx, rw, key, chk); err != nil {
		return err
	}
	return rw.Set(ctx, key, val)
}

func DelIfEqual(ctx context.Context, rw ReadWriter, key, chk []byte) error {
	if err := checkCurrent(ctx, rw, key, chk); err != nil {
		return err
	}
	return rw.Del(ctx, key)
}

func checkCurrent(ctx context.Context, rw ReadWriter, key, chk []byte) error {
	cur, err := rw.Get(ctx, key)
	if err != nil {
		return err
	}
	switch {
	case cur == nil && chk == nil:
		return nil
	case cur != nil && chk != nil && bytes.Equal(cur, chk):
		return nil
	}
	return errors.WithStack(ErrTxConditionNotMet)
}
