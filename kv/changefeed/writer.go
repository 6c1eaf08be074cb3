package changefeed

import (
	"github.com/pingcap-incubator/tinydb/kv/catalog"
)

type changeKey struct {
	ns, db, tb string
}

// PreparedWrite is a buffered table entry ready to be stored under a versionstamp of its database.
type PreparedWrite struct {
	NS, DB, TB string
	Value      []byte
}

// Writer buffers table mutations for one transaction. It is used by a single goroutine.
type Writer struct {
	order  []changeKey
	buffer map[changeKey]*TableMutations
}

func NewWriter() *Writer {
	return &Writer{buffer: make(map[changeKey]*TableMutations)}
}

func (w *Writer) entry(ns, db, tb string) *TableMutations {
	k := changeKey{ns, db, tb}
	m, ok := w.buffer[k]
	if !ok {
		m = &TableMutations{Table: tb}
		w.buffer[k] = m
		w.order = append(w.order, k)
	}
	return m
}

// Len is the number of buffered mutations.
func (w *Writer) Len() int {
	n := 0
	for _, m := range w.buffer {
		n += len(m.Mutations)
	}
	return n
}

// BufferTableChange records a redefinition of table tb.
func (w *Writer) BufferTableChange(ns, db, tb string, def *catalog.Table) {
	m := w.entry(ns, db, tb)
	m.Mutations = append(m.Mutations, TableMutation{Type: MutationDef, Def: def})
}

// BufferRecordChange records that record id went from previous to current. A nil current is a deletion, a nil
// previous a creation. With storeOriginal the previous value is kept alongside updates and deletions.
func (w *Writer) BufferRecordChange(ns, db, tb string, id catalog.Thing, previous, current map[string]interface{},
	storeOriginal bool) {
	m := w.entry(ns, db, tb)
	mut := TableMutation{ID: id}
	switch {
	case current == nil && storeOriginal:
		mut.Type, mut.Previous = MutationDelWithOriginal, previous
	case current == nil:
		mut.Type = MutationDel
	case storeOriginal && previous != nil:
		mut.Type, mut.Current, mut.Previous = MutationSetWithOriginal, current, previous
	default:
		mut.Type, mut.Current = MutationSet, current
	}
	m.Mutations = append(m.Mutations, mut)
}

// Changes encodes the buffered mutations, one write per table in first touched order.
func (w *Writer) Changes() ([]PreparedWrite, error) {
	writes := make([]PreparedWrite, 0, len(w.order))
	for _, k := range w.order {
		val, err := catalog.Encode(w.buffer[k])
		if err != nil {
			return nil, err
		}
		writes = append(writes, PreparedWrite{NS: k.ns, DB: k.db, TB: k.tb, Value: val})
	}
	return writes, nil
}

// Reset drops every buffered mutation.
func (w *Writer) Reset() {
	w.order = nil
	w.buffer = make(map[changeKey]*TableMutations)
}

// Decode reads back an entry written from Changes.
func Decode(val []byte) (*TableMutations, error) {
	return catalog.Decode[TableMutations](val)
}
