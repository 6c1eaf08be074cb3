package engine_util

import (
	"bytes"

	"github.com/pingcap-incubator/tinydb/kv/storage"
)

// FetchFunc reads at most limit committed pairs from [beg, end) in ascending order.
type FetchFunc func(beg, end []byte, limit uint32) ([]storage.KV, error)

// MergeScan scans [beg, end) as seen by a transaction with pending writes wb: committed pairs come from fetch,
// buffered values replace them and buffered deletes hide them. Committed data is fetched page by page until limit
// visible pairs are collected or the range is exhausted.
func MergeScan(wb *WriteBatch, beg, end []byte, limit uint32, fetch FetchFunc) ([]storage.KV, error) {
	var out []storage.KV
	cursor := beg
	for uint32(len(out)) < limit {
		want := limit - uint32(len(out))
		rows, err := fetch(cursor, end, want)
		if err != nil {
			return nil, err
		}
		exhausted := uint32(len(rows)) < want
		upper := end
		if !exhausted {
			upper = NextKey(rows[len(rows)-1].Key)
		}
		out = mergeInto(out, rows, wb, cursor, upper)
		if exhausted {
			break
		}
		cursor = upper
	}
	if uint32(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func mergeInto(out, rows []storage.KV, wb *WriteBatch, beg, end []byte) []storage.KV {
	var pending []*Entry
	if wb != nil {
		wb.Range(beg, end, func(e *Entry) bool {
			pending = append(pending, e)
			return true
		})
	}
	i, j := 0, 0
	for i < len(rows) || j < len(pending) {
		switch {
		case j == len(pending):
			out = append(out, rows[i])
			i++
		case i == len(rows):
			if !pending[j].Deleted {
				out = append(out, storage.KV{Key: pending[j].Key, Value: pending[j].Value})
			}
			j++
		default:
			c := bytes.Compare(rows[i].Key, pending[j].Key)
			if c < 0 {
				out = append(out, rows[i])
				i++
				continue
			}
			if c == 0 {
				i++
			}
			if !pending[j].Deleted {
				out = append(out, storage.KV{Key: pending[j].Key, Value: pending[j].Value})
			}
			j++
		}
	}
	return out
}
