package engine_util

import (
	"bytes"

	"github.com/Connor1996/badger"
)

// NextKey returns the smallest key greater than key: key followed by a 0x00 byte. Any other key starting with key
// sorts at or after it, so it is the exclusive lower bound for resuming a scan after key.
func NextKey(key []byte) []byte {
	next := make([]byte, len(key)+1)
	copy(next, key)
	return next
}

// PrefixEnd returns the smallest key greater than every key with the given prefix, or nil when no such key exists
// (the prefix is empty or all 0xff).
func PrefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

func ExceedEndKey(current, endKey []byte) bool {
	if len(endKey) == 0 {
		return false
	}
	return bytes.Compare(current, endKey) >= 0
}

// GetFromTxn reads key from a badger transaction, returning nil when the key does not exist.
func GetFromTxn(txn *badger.Txn, key []byte) ([]byte, error) {
	item, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}
