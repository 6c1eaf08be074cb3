package transaction

import (
	"bytes"
	"context"

	"github.com/pingcap/errors"

	"github.com/pingcap-incubator/tinydb/kv/catalog"
	"github.com/pingcap-incubator/tinydb/kv/keys"
	"github.com/pingcap-incubator/tinydb/kv/storage"
)

func (t *Transaction) GetRecord(ctx context.Context, ns, db string, id catalog.Thing) (*catalog.Record, error) {
	val, err := t.tx.Get(ctx, keys.Record(ns, db, id.TB, id.ID))
	if err != nil {
		return nil, err
	}
	if val == nil {
		return nil, notFound(catalog.KindRecord, id.String())
	}
	return catalog.Decode[catalog.Record](val)
}

// PutRecord creates or replaces a record, keeping the indexes of its table up to date. The change feed of the table,
// or of its database, records the change.
func (t *Transaction) PutRecord(ctx context.Context, ns, db string, rec *catalog.Record) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	key := keys.Record(ns, db, rec.ID.TB, rec.ID.ID)
	prev, err := t.recordAt(ctx, key)
	if err != nil {
		return err
	}
	if err := t.reindex(ctx, ns, db, rec.ID, prev, rec); err != nil {
		return err
	}
	val, err := catalog.Encode(rec)
	if err != nil {
		return err
	}
	if err := t.tx.Set(ctx, key, val); err != nil {
		return err
	}
	return t.bufferRecordChange(ctx, ns, db, rec.ID, prev, rec)
}

// DelRecord deletes a record and its index entries. Deleting a missing record does nothing.
func (t *Transaction) DelRecord(ctx context.Context, ns, db string, id catalog.Thing) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	key := keys.Record(ns, db, id.TB, id.ID)
	prev, err := t.recordAt(ctx, key)
	if err != nil || prev == nil {
		return err
	}
	if err := t.reindex(ctx, ns, db, id, prev, nil); err != nil {
		return err
	}
	if err := t.tx.Del(ctx, key); err != nil {
		return err
	}
	return t.bufferRecordChange(ctx, ns, db, id, prev, nil)
}

// StreamRecords calls fn for every record of a table, in id order.
func (t *Transaction) StreamRecords(ctx context.Context, ns, db, tb string, fn func(*catalog.Record) error) error {
	beg, end := keys.Range(keys.RecordPrefix(ns, db, tb))
	return t.Stream(ctx, beg, end, NoLimit, func(kv storage.KV) error {
		rec, err := catalog.Decode[catalog.Record](kv.Value)
		if err != nil {
			return err
		}
		return fn(rec)
	})
}

func (t *Transaction) recordAt(ctx context.Context, key []byte) (*catalog.Record, error) {
	val, err := t.tx.Get(ctx, key)
	if err != nil || val == nil {
		return nil, err
	}
	return catalog.Decode[catalog.Record](val)
}

func (t *Transaction) bufferRecordChange(ctx context.Context, ns, db string, id catalog.Thing,
	prev, cur *catalog.Record) error {
	tb, err := t.GetTb(ctx, ns, db, id.TB)
	if err != nil && !IsNotFound(err, catalog.KindTable) {
		return err
	}
	cf, err := t.changefeedOf(ctx, ns, db, tb)
	if err != nil || cf == nil {
		return err
	}
	var before, after map[string]interface{}
	if prev != nil {
		before = prev.Content
	}
	if cur != nil {
		after = cur.Content
		if after == nil {
			after = map[string]interface{}{}
		}
	}
	t.cf.BufferRecordChange(ns, db, id.TB, id, before, after, cf.StoreDiff)
	return nil
}

// reindex moves the index entries of a record from its previous to its current content. Either may be nil.
func (t *Transaction) reindex(ctx context.Context, ns, db string, id catalog.Thing, prev, cur *catalog.Record) error {
	ixs, err := t.AllTbIndexes(ctx, ns, db, id.TB)
	if err != nil {
		return err
	}
	for _, ix := range ixs {
		if prev != nil {
			if err := t.DelIndexEntry(ctx, ns, db, ix, prev); err != nil {
				return err
			}
		}
		if cur != nil {
			if err := t.PutIndexEntry(ctx, ns, db, ix, cur); err != nil {
				return err
			}
		}
	}
	return nil
}

func indexEntry(ns, db string, ix *catalog.Index, rec *catalog.Record) ([]byte, error) {
	var vals []byte
	for _, col := range ix.Cols {
		var err error
		if vals, err = keys.AppendValue(vals, rec.Content[col]); err != nil {
			return nil, err
		}
	}
	if ix.Unique {
		return keys.IndexEntry(ns, db, ix.Table, ix.Name, vals, nil), nil
	}
	return keys.IndexEntry(ns, db, ix.Table, ix.Name, vals, &rec.ID.ID), nil
}

// PutIndexEntry adds a record to an index. A unique index already holding another record with the same values fails
// with ErrIndexExists.
func (t *Transaction) PutIndexEntry(ctx context.Context, ns, db string, ix *catalog.Index, rec *catalog.Record) error {
	key, err := indexEntry(ns, db, ix, rec)
	if err != nil {
		return err
	}
	id := keys.AppendID(nil, rec.ID.ID)
	if ix.Unique {
		cur, err := t.tx.Get(ctx, key)
		if err != nil {
			return err
		}
		if cur != nil && !bytes.Equal(cur, id) {
			return errors.Annotatef(ErrIndexExists, "index %s on %s, record %s", ix.Name, ix.Table, rec.ID)
		}
	}
	return t.tx.Set(ctx, key, id)
}

// DelIndexEntry removes a record from an index.
func (t *Transaction) DelIndexEntry(ctx context.Context, ns, db string, ix *catalog.Index, rec *catalog.Record) error {
	key, err := indexEntry(ns, db, ix, rec)
	if err != nil {
		return err
	}
	if ix.Unique {
		// the entry may belong to another record after a failed unique insert
		cur, err := t.tx.Get(ctx, key)
		if err != nil {
			return err
		}
		if !bytes.Equal(cur, keys.AppendID(nil, rec.ID.ID)) {
			return nil
		}
	}
	return t.tx.Del(ctx, key)
}

// IndexLookup returns the ids of the records whose indexed columns hold vals, encoded with keys.AppendValue.
func (t *Transaction) IndexLookup(ctx context.Context, ns, db string, ix *catalog.Index, vals []byte) ([]catalog.ID,
	error) {
	prefix := keys.IndexEntry(ns, db, ix.Table, ix.Name, vals, nil)
	var ids []catalog.ID
	err := t.Stream(ctx, prefix, keys.Suffix(prefix), NoLimit, func(kv storage.KV) error {
		_, id, err := keys.DecodeID(kv.Value)
		if err != nil {
			return err
		}
		ids = append(ids, id)
		return nil
	})
	return ids, err
}
