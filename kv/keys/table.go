package keys

import (
	"github.com/google/uuid"

	"github.com/pingcap-incubator/tinydb/kv/catalog"
)

// TbPrefix bounds every row stored under table tb: its definitions, records and index entries.
func TbPrefix(ns, db, tb string) []byte {
	b := append(DbPrefix(ns, db), scopeByte)
	return appendName(b, tb)
}

func tbMarker(ns, db, tb, m string) []byte {
	return marker(TbPrefix(ns, db, tb), m)
}

func FieldPrefix(ns, db, tb string) []byte { return tbMarker(ns, db, tb, "fd") }

func Field(ns, db, tb, name string) []byte { return appendName(FieldPrefix(ns, db, tb), name) }

func IndexDefPrefix(ns, db, tb string) []byte { return tbMarker(ns, db, tb, "ix") }

func IndexDef(ns, db, tb, ix string) []byte { return appendName(IndexDefPrefix(ns, db, tb), ix) }

func EventPrefix(ns, db, tb string) []byte { return tbMarker(ns, db, tb, "ev") }

func Event(ns, db, tb, name string) []byte { return appendName(EventPrefix(ns, db, tb), name) }

func TableLivePrefix(ns, db, tb string) []byte { return tbMarker(ns, db, tb, "lq") }

func TableLive(ns, db, tb string, lq uuid.UUID) []byte {
	return append(TableLivePrefix(ns, db, tb), lq[:]...)
}

// RecordPrefix bounds the records of a table.
func RecordPrefix(ns, db, tb string) []byte {
	return append(TbPrefix(ns, db, tb), scopeByte)
}

func Record(ns, db, tb string, id catalog.ID) []byte {
	return AppendID(RecordPrefix(ns, db, tb), id)
}

// DecodeRecord extracts the table and id from a key built by Record.
func DecodeRecord(key []byte) (catalog.Thing, error) {
	d := decoder{b: key}
	d.expect(rootByte)
	d.expect(scopeByte)
	d.name()
	d.expect(scopeByte)
	d.name()
	d.expect(scopeByte)
	tb := d.name()
	d.expect(scopeByte)
	id := d.id()
	return catalog.Thing{TB: tb, ID: id}, d.finish(key)
}

// IndexPrefix bounds the entries of index ix.
func IndexPrefix(ns, db, tb, ix string) []byte {
	b := append(TbPrefix(ns, db, tb), indexByte)
	return appendName(b, ix)
}

// IndexEntry is the key of a record in an index. vals are the indexed values encoded with AppendValue. Entries of
// unique indexes leave out the id, so a second record with the same values maps to the same key.
func IndexEntry(ns, db, tb, ix string, vals []byte, id *catalog.ID) []byte {
	b := append(IndexPrefix(ns, db, tb, ix), vals...)
	if id != nil {
		b = AppendID(b, *id)
	}
	return b
}
