package engine_util

import (
	"github.com/Connor1996/badger"
	"github.com/Connor1996/badger/y"
	"github.com/syndtr/goleveldb/leveldb/iterator"

	"github.com/pingcap-incubator/tinydb/kv/storage"
)

type DBIterator interface {
	// Item returns pointer to the current key-value pair.
	Item() DBItem
	// Valid returns false when iteration is done.
	Valid() bool
	// Next would advance the iterator by one. Always check it.Valid() after a Next()
	// to ensure you have access to a valid it.Item().
	Next()
	// Seek would seek to the provided key if present. If absent, it would seek to the next smallest key
	// greater than provided.
	Seek([]byte)

	// Close the iterator
	Close()
}

type DBItem interface {
	// Key returns the key.
	Key() []byte
	// KeyCopy returns a copy of the key of the item, writing it to dst slice.
	// If nil is passed, or capacity of dst isn't sufficient, a new slice would be allocated and
	// returned.
	KeyCopy(dst []byte) []byte
	// Value retrieves the value of the item.
	Value() ([]byte, error)
	// ValueSize returns the size of the value.
	ValueSize() int
	// ValueCopy returns a copy of the value of the item, writing it to dst slice.
	// If nil is passed, or capacity of dst isn't sufficient, a new slice would be allocated and
	// returned.
	ValueCopy(dst []byte) ([]byte, error)
}

// ScanIterator collects at most limit pairs of [beg, end) from it. Keys and values are copied.
func ScanIterator(it DBIterator, beg, end []byte, limit uint32) ([]storage.KV, error) {
	var out []storage.KV
	for it.Seek(beg); it.Valid() && uint32(len(out)) < limit; it.Next() {
		item := it.Item()
		if ExceedEndKey(item.Key(), end) {
			break
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		out = append(out, storage.KV{Key: item.KeyCopy(nil), Value: val})
	}
	return out, nil
}

type BadgerIterator struct {
	iter *badger.Iterator
}

func NewBadgerIterator(txn *badger.Txn) *BadgerIterator {
	return &BadgerIterator{iter: txn.NewIterator(badger.DefaultIteratorOptions)}
}

func (it *BadgerIterator) Item() DBItem {
	return &BadgerItem{item: it.iter.Item()}
}

func (it *BadgerIterator) Valid() bool { return it.iter.Valid() }

func (it *BadgerIterator) Next() { it.iter.Next() }

func (it *BadgerIterator) Seek(key []byte) { it.iter.Seek(key) }

func (it *BadgerIterator) Close() { it.iter.Close() }

type BadgerItem struct {
	item *badger.Item
}

func (i *BadgerItem) Key() []byte { return i.item.Key() }

func (i *BadgerItem) KeyCopy(dst []byte) []byte { return i.item.KeyCopy(dst) }

func (i *BadgerItem) Value() ([]byte, error) { return i.item.Value() }

func (i *BadgerItem) ValueSize() int { return i.item.ValueSize() }

func (i *BadgerItem) ValueCopy(dst []byte) ([]byte, error) { return i.item.ValueCopy(dst) }

// LdbIterator adapts a goleveldb iterator. goleveldb reuses its key and value buffers across moves, so items must be
// copied before the iterator advances.
type LdbIterator struct {
	iter  iterator.Iterator
	valid bool
}

func NewLdbIterator(iter iterator.Iterator) *LdbIterator {
	return &LdbIterator{iter: iter}
}

func (it *LdbIterator) Item() DBItem {
	return &LdbItem{key: it.iter.Key(), value: it.iter.Value()}
}

func (it *LdbIterator) Valid() bool { return it.valid }

func (it *LdbIterator) Next() { it.valid = it.iter.Next() }

func (it *LdbIterator) Seek(key []byte) { it.valid = it.iter.Seek(key) }

func (it *LdbIterator) Close() { it.iter.Release() }

// Error reports an iteration failure, goleveldb signals it by ending the iteration.
func (it *LdbIterator) Error() error { return it.iter.Error() }

type LdbItem struct {
	key   []byte
	value []byte
}

func (i *LdbItem) Key() []byte { return i.key }

func (i *LdbItem) KeyCopy(dst []byte) []byte { return y.SafeCopy(dst, i.key) }

func (i *LdbItem) Value() ([]byte, error) { return i.value, nil }

func (i *LdbItem) ValueSize() int { return len(i.value) }

func (i *LdbItem) ValueCopy(dst []byte) ([]byte, error) { return y.SafeCopy(dst, i.value), nil }
