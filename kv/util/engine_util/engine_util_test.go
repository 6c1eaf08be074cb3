package engine_util

import (
	"bytes"
	"testing"

	"github.com/Connor1996/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/pingcap-incubator/tinydb/kv/config"
	"github.com/pingcap-incubator/tinydb/kv/storage"
)

func TestNextKey(t *testing.T) {
	key := []byte("abc")
	next := NextKey(key)
	assert.Equal(t, []byte("abc\x00"), next)
	assert.True(t, bytes.Compare(next, key) > 0)
	// nothing sorts strictly between key and its successor
	assert.True(t, bytes.Compare(next, []byte("abc\x00\x00")) < 0)
	assert.True(t, bytes.Compare(next, []byte("abd")) < 0)
	// the input is not aliased
	next[0] = 'z'
	assert.Equal(t, []byte("abc"), key)
	assert.Equal(t, []byte{0}, NextKey(nil))
}

func TestPrefixEnd(t *testing.T) {
	assert.Equal(t, []byte("abd"), PrefixEnd([]byte("abc")))
	assert.Equal(t, []byte("b"), PrefixEnd([]byte{'a', 0xff, 0xff}))
	assert.Nil(t, PrefixEnd([]byte{0xff, 0xff}))
	assert.Nil(t, PrefixEnd(nil))

	end := PrefixEnd([]byte("ab"))
	assert.True(t, ExceedEndKey([]byte("ac"), end))
	assert.False(t, ExceedEndKey([]byte("ab\xff\xff\xff"), end))
}

func TestExceedEndKey(t *testing.T) {
	assert.False(t, ExceedEndKey([]byte("z"), nil))
	assert.True(t, ExceedEndKey([]byte("b"), []byte("b")))
	assert.False(t, ExceedEndKey([]byte("a"), []byte("b")))
}

func TestWriteBatch(t *testing.T) {
	wb := NewWriteBatch()
	wb.Set([]byte("b"), []byte("b1"))
	wb.Set([]byte("a"), []byte("a1"))
	wb.Set([]byte("b"), []byte("b2"))
	wb.Delete([]byte("c"))
	assert.Equal(t, 3, wb.Len())
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b"), []byte("c")}, wb.Keys())

	e, ok := wb.Get([]byte("b"))
	require.True(t, ok)
	assert.Equal(t, []byte("b2"), e.Value)
	e, ok = wb.Get([]byte("c"))
	require.True(t, ok)
	assert.True(t, e.Deleted)
	_, ok = wb.Get([]byte("d"))
	assert.False(t, ok)
	assert.Equal(t, 1+2+1+2+1, wb.Size())

	wb.Reset()
	assert.Equal(t, 0, wb.Len())
	assert.Equal(t, 0, wb.Size())
}

func sliceFetch(rows []storage.KV, calls *int) FetchFunc {
	return func(beg, end []byte, limit uint32) ([]storage.KV, error) {
		*calls++
		var out []storage.KV
		for _, kv := range rows {
			if bytes.Compare(kv.Key, beg) < 0 || ExceedEndKey(kv.Key, end) {
				continue
			}
			if uint32(len(out)) == limit {
				break
			}
			out = append(out, kv)
		}
		return out, nil
	}
}

func keysOf(kvs []storage.KV) []string {
	var keys []string
	for _, kv := range kvs {
		keys = append(keys, string(kv.Key))
	}
	return keys
}

func TestMergeScan(t *testing.T) {
	committed := []storage.KV{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("b"), Value: []byte("1")},
		{Key: []byte("c"), Value: []byte("1")},
		{Key: []byte("d"), Value: []byte("1")},
	}
	wb := NewWriteBatch()
	wb.Delete([]byte("a"))
	wb.Delete([]byte("b"))
	wb.Set([]byte("bb"), []byte("2"))
	wb.Set([]byte("c"), []byte("2"))
	wb.Set([]byte("z"), []byte("2"))

	calls := 0
	out, err := MergeScan(wb, []byte("a"), []byte("y"), 2, sliceFetch(committed, &calls))
	require.Nil(t, err)
	assert.Equal(t, []string{"bb", "c"}, keysOf(out))
	assert.Equal(t, []byte("2"), out[1].Value)
	// the first page only yields deleted keys, so a second page is needed
	assert.Equal(t, 2, calls)

	out, err = MergeScan(wb, []byte("a"), nil, 100, sliceFetch(committed, &calls))
	require.Nil(t, err)
	assert.Equal(t, []string{"bb", "c", "d", "z"}, keysOf(out))

	out, err = MergeScan(nil, []byte("b"), []byte("d"), 100, sliceFetch(committed, &calls))
	require.Nil(t, err)
	assert.Equal(t, []string{"b", "c"}, keysOf(out))
}

func TestBadgerIteratorAndWriteToTxn(t *testing.T) {
	conf := config.NewTestConfig()
	db, err := CreateDB(t.TempDir(), &conf.Badger)
	require.Nil(t, err)
	defer db.Close()

	wb := NewWriteBatch()
	wb.Set([]byte("a"), []byte("a1"))
	wb.Set([]byte("b"), []byte("b1"))
	wb.Set([]byte("c"), []byte("c1"))
	wb.Set([]byte("d"), []byte("d1"))
	txn := db.NewTransaction(true)
	require.Nil(t, wb.WriteToTxn(txn))
	require.Nil(t, txn.Commit())

	txn = db.NewTransaction(true)
	del := NewWriteBatch()
	del.Delete([]byte("c"))
	require.Nil(t, del.WriteToTxn(txn))
	require.Nil(t, txn.Commit())

	txn = db.NewTransaction(false)
	defer txn.Discard()
	val, err := GetFromTxn(txn, []byte("b"))
	require.Nil(t, err)
	assert.Equal(t, []byte("b1"), val)
	val, err = GetFromTxn(txn, []byte("c"))
	require.Nil(t, err)
	assert.Nil(t, val)

	it := NewBadgerIterator(txn)
	defer it.Close()
	out, err := ScanIterator(it, []byte("a"), []byte("d"), 10)
	require.Nil(t, err)
	assert.Equal(t, []string{"a", "b"}, keysOf(out))
	_, err = txn.Get([]byte("c"))
	assert.Equal(t, badger.ErrKeyNotFound, err)
}

func TestLdbIterator(t *testing.T) {
	db, err := CreateLevelDB(t.TempDir(), false)
	require.Nil(t, err)
	defer db.Close()
	for _, k := range []string{"a", "b", "c", "d"} {
		require.Nil(t, db.Put([]byte(k), []byte(k+"1"), nil))
	}

	it := NewLdbIterator(db.NewIterator(&util.Range{}, nil))
	defer it.Close()
	out, err := ScanIterator(it, []byte("b"), nil, 2)
	require.Nil(t, err)
	require.Nil(t, it.Error())
	assert.Equal(t, []string{"b", "c"}, keysOf(out))
	assert.Equal(t, []byte("c1"), out[1].Value)
}
