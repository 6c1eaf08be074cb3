package engine_util

import (
	"bytes"

	"github.com/Connor1996/badger"
	"github.com/google/btree"
	"github.com/pingcap/errors"
)

// WriteBatch buffers the pending writes of a transaction, ordered by key. A later write to the same key replaces
// the earlier one, so the batch holds at most one entry per key.
type WriteBatch struct {
	entries *btree.BTreeG[*Entry]
	size    int
}

// Entry is a buffered write. Deleted entries shadow the committed value of their key.
type Entry struct {
	Key     []byte
	Value   []byte
	Deleted bool
}

func lessEntry(a, b *Entry) bool {
	return bytes.Compare(a.Key, b.Key) < 0
}

func NewWriteBatch() *WriteBatch {
	return &WriteBatch{entries: btree.NewG(16, lessEntry)}
}

func (wb *WriteBatch) Len() int {
	return wb.entries.Len()
}

// Size is the number of key and value bytes buffered.
func (wb *WriteBatch) Size() int {
	return wb.size
}

func (wb *WriteBatch) Set(key, val []byte) {
	wb.put(&Entry{Key: key, Value: val})
}

func (wb *WriteBatch) Delete(key []byte) {
	wb.put(&Entry{Key: key, Deleted: true})
}

func (wb *WriteBatch) put(e *Entry) {
	if old, ok := wb.entries.ReplaceOrInsert(e); ok {
		wb.size -= len(old.Key) + len(old.Value)
	}
	wb.size += len(e.Key) + len(e.Value)
}

// Get returns the buffered entry for key, if any.
func (wb *WriteBatch) Get(key []byte) (*Entry, bool) {
	return wb.entries.Get(&Entry{Key: key})
}

// Range calls fn for every entry in [beg, end) in key order, until fn returns false. A nil end is unbounded.
func (wb *WriteBatch) Range(beg, end []byte, fn func(e *Entry) bool) {
	wb.entries.AscendGreaterOrEqual(&Entry{Key: beg}, func(e *Entry) bool {
		if ExceedEndKey(e.Key, end) {
			return false
		}
		return fn(e)
	})
}

// Keys returns every buffered key in order.
func (wb *WriteBatch) Keys() [][]byte {
	keys := make([][]byte, 0, wb.entries.Len())
	wb.entries.Ascend(func(e *Entry) bool {
		keys = append(keys, e.Key)
		return true
	})
	return keys
}

// WriteToTxn applies the batch to a badger update transaction. Every key is read before it is written so that badger
// tracks it for conflict detection at commit.
func (wb *WriteBatch) WriteToTxn(txn *badger.Txn) error {
	var err error
	wb.entries.Ascend(func(e *Entry) bool {
		if _, err = txn.Get(e.Key); err != nil && err != badger.ErrKeyNotFound {
			return false
		}
		if e.Deleted {
			err = txn.Delete(e.Key)
		} else {
			err = txn.Set(e.Key, e.Value)
		}
		return err == nil
	})
	return errors.WithStack(err)
}

func (wb *WriteBatch) Reset() {
	wb.entries.Clear(false)
	wb.size = 0
}
