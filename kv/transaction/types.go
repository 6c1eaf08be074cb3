package transaction

import (
	"fmt"

	"github.com/pingcap/errors"

	"github.com/pingcap-incubator/tinydb/kv/catalog"
)

// NormalFetchSize is the number of rows the range helpers request from the engine per batch.
const NormalFetchSize = 1000

// TransactionType selects whether a transaction may write.
type TransactionType int

const (
	Read TransactionType = iota
	Write
)

func (t TransactionType) String() string {
	if t == Write {
		return "write"
	}
	return "read"
}

// Writeable maps a statement's writability to the transaction type it needs.
func Writeable(write bool) TransactionType {
	if write {
		return Write
	}
	return Read
}

// LockType selects how conflicting writers are handled: detected at commit, or blocked until the first one ends.
type LockType int

const (
	Optimistic LockType = iota
	Pessimistic
)

func (l LockType) String() string {
	if l == Pessimistic {
		return "pessimistic"
	}
	return "optimistic"
}

// NotFoundError is returned when a catalog object, node or record does not exist. Value names what was looked up.
type NotFoundError struct {
	Kind  catalog.Kind
	Value string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("the %s '%s' does not exist", e.Kind, e.Value)
}

func notFound(kind catalog.Kind, value string) error {
	return errors.WithStack(&NotFoundError{Kind: kind, Value: value})
}

// IsNotFound reports whether err is a NotFoundError of the given kind.
func IsNotFound(err error, kind catalog.Kind) bool {
	nf, ok := errors.Cause(err).(*NotFoundError)
	return ok && nf.Kind == kind
}

var (
	// ErrIndexExists is returned when a record would add a second entry to a unique index.
	ErrIndexExists = errors.New("database index already contains a record with the same values")
	// ErrTimestampOrder is returned when a timestamp mapping is recorded for a point before the latest one.
	ErrTimestampOrder = errors.New("timestamp is older than the latest recorded versionstamp timestamp")
)
