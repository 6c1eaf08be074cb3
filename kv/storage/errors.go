package storage

import (
	"fmt"

	"github.com/pingcap/errors"
)

var (
	// ErrTxFinished is returned for any operation on a transaction which was already committed or cancelled.
	ErrTxFinished = errors.New("couldn't update a finished transaction")
	// ErrTxReadonly is returned when a mutating operation runs on a read transaction.
	ErrTxReadonly = errors.New("couldn't write to a read only transaction")
	// ErrTxKeyAlreadyExists is returned by Put when the key is present.
	ErrTxKeyAlreadyExists = errors.New("the key being inserted already exists")
	// ErrTxConditionNotMet is returned by Putc and Delc when the current value differs from the expected one.
	ErrTxConditionNotMet = errors.New("value being checked was not correct")
	// ErrTxConflict is returned by Commit when another transaction wrote a key this one wrote, since this one began.
	ErrTxConflict = errors.New("failed to commit transaction due to a read or write conflict, this transaction can be retried")
	ErrTxKeyEmpty = errors.New("key cannot be empty")

	// ErrDatastore is the root of every construction error.
	ErrDatastore = errors.New("unable to load the specified datastore")
)

// DisabledEngineError is returned when a known connection scheme names an engine which was left out of the build.
type DisabledEngineError struct {
	Engine string
}

func (e *DisabledEngineError) Error() string {
	return fmt.Sprintf("cannot connect to the `%s` storage engine as it is not enabled in this build", e.Engine)
}

func IsConflict(err error) bool {
	return errors.Cause(err) == ErrTxConflict
}

func IsFinished(err error) bool {
	return errors.Cause(err) == ErrTxFinished
}

func IsReadonly(err error) bool {
	return errors.Cause(err) == ErrTxReadonly
}

// CheckWritable returns the error a transaction in the given state must report before a mutation.
func CheckWritable(closed, write bool) error {
	if closed {
		return errors.WithStack(ErrTxFinished)
	}
	if !write {
		return errors.WithStack(ErrTxReadonly)
	}
	return nil
}

// CheckOpen returns the error a transaction in the given state must report before a read.
func CheckOpen(closed bool) error {
	if closed {
		return errors.WithStack(ErrTxFinished)
	}
	return nil
}
