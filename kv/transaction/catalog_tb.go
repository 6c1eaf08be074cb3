package transaction

import (
	"context"

	"github.com/pingcap-incubator/tinydb/kv/catalog"
	"github.com/pingcap-incubator/tinydb/kv/keys"
)

func (t *Transaction) AllTb(ctx context.Context, ns, db string) (catalog.Tables, error) {
	return allDefs[catalog.Table, *catalog.Table, catalog.Tables](ctx, t, keys.TableDefPrefix(ns, db))
}

func (t *Transaction) GetTb(ctx context.Context, ns, db, tb string) (*catalog.Table, error) {
	return getDef[catalog.Table](ctx, t, keys.TableDef(ns, db, tb), catalog.KindTable, tb)
}

func (t *Transaction) GetAndCacheTb(ctx context.Context, ns, db, tb string) (*catalog.Table, error) {
	return getAndCacheDef[catalog.Table](ctx, t, keys.TableDef(ns, db, tb), catalog.KindTable, tb)
}

// AddTb returns the table, defining it, its database and its namespace first when they do not exist and the
// transaction is not strict.
func (t *Transaction) AddTb(ctx context.Context, ns, db, tb string) (*catalog.Table, error) {
	def, err := t.GetTb(ctx, ns, db, tb)
	if err == nil || t.strict || !IsNotFound(err, catalog.KindTable) {
		return def, err
	}
	if _, err := t.AddDb(ctx, ns, db); err != nil {
		return nil, err
	}
	def = catalog.NewTable(tb)
	if err := t.PutTb(ctx, ns, db, def); err != nil {
		return nil, err
	}
	return def, nil
}

// PutTb stores a table definition. The change feed of the table, or of its database, records the redefinition.
func (t *Transaction) PutTb(ctx context.Context, ns, db string, def *catalog.Table) error {
	if err := t.putDef(ctx, keys.TableDef(ns, db, def.Name), keys.TableDefPrefix(ns, db), def); err != nil {
		return err
	}
	cf, err := t.changefeedOf(ctx, ns, db, def)
	if err != nil {
		return err
	}
	if cf != nil {
		t.cf.BufferTableChange(ns, db, def.Name, def)
	}
	return nil
}

// DelTb removes the table with its definitions, records and index entries.
func (t *Transaction) DelTb(ctx context.Context, ns, db, tb string) error {
	if err := t.delDef(ctx, keys.TableDef(ns, db, tb), keys.TableDefPrefix(ns, db)); err != nil {
		return err
	}
	if err := t.Delp(ctx, keys.TbPrefix(ns, db, tb), NoLimit); err != nil {
		return err
	}
	t.clrp(keys.TbPrefix(ns, db, tb))
	return nil
}

func (t *Transaction) AllTbFields(ctx context.Context, ns, db, tb string) (catalog.Fields, error) {
	return allDefs[catalog.Field, *catalog.Field, catalog.Fields](ctx, t, keys.FieldPrefix(ns, db, tb))
}

func (t *Transaction) GetTbField(ctx context.Context, ns, db, tb, fd string) (*catalog.Field, error) {
	return getDef[catalog.Field](ctx, t, keys.Field(ns, db, tb, fd), catalog.KindField, fd)
}

// PutTbField stores a field definition on def.Table.
func (t *Transaction) PutTbField(ctx context.Context, ns, db string, def *catalog.Field) error {
	return t.putDef(ctx, keys.Field(ns, db, def.Table, def.Name), keys.FieldPrefix(ns, db, def.Table), def)
}

func (t *Transaction) DelTbField(ctx context.Context, ns, db, tb, fd string) error {
	return t.delDef(ctx, keys.Field(ns, db, tb, fd), keys.FieldPrefix(ns, db, tb))
}

func (t *Transaction) AllTbIndexes(ctx context.Context, ns, db, tb string) (catalog.Indexes, error) {
	return allDefs[catalog.Index, *catalog.Index, catalog.Indexes](ctx, t, keys.IndexDefPrefix(ns, db, tb))
}

func (t *Transaction) GetTbIndex(ctx context.Context, ns, db, tb, ix string) (*catalog.Index, error) {
	return getDef[catalog.Index](ctx, t, keys.IndexDef(ns, db, tb, ix), catalog.KindIndex, ix)
}

// GetAndCacheTbIndex is GetTbIndex through the shared cache. Index builds read definitions this way.
func (t *Transaction) GetAndCacheTbIndex(ctx context.Context, ns, db, tb, ix string) (*catalog.Index, error) {
	return getAndCacheDef[catalog.Index](ctx, t, keys.IndexDef(ns, db, tb, ix), catalog.KindIndex, ix)
}

// PutTbIndex stores an index definition. Entries for existing records are written by an index build.
func (t *Transaction) PutTbIndex(ctx context.Context, ns, db string, def *catalog.Index) error {
	return t.putDef(ctx, keys.IndexDef(ns, db, def.Table, def.Name), keys.IndexDefPrefix(ns, db, def.Table), def)
}

// DelTbIndex removes an index definition and its entries.
func (t *Transaction) DelTbIndex(ctx context.Context, ns, db, tb, ix string) error {
	if err := t.delDef(ctx, keys.IndexDef(ns, db, tb, ix), keys.IndexDefPrefix(ns, db, tb)); err != nil {
		return err
	}
	return t.Delp(ctx, keys.IndexPrefix(ns, db, tb, ix), NoLimit)
}

func (t *Transaction) AllTbEvents(ctx context.Context, ns, db, tb string) (catalog.Events, error) {
	return allDefs[catalog.Event, *catalog.Event, catalog.Events](ctx, t, keys.EventPrefix(ns, db, tb))
}

func (t *Transaction) GetTbEvent(ctx context.Context, ns, db, tb, ev string) (*catalog.Event, error) {
	return getDef[catalog.Event](ctx, t, keys.Event(ns, db, tb, ev), catalog.KindEvent, ev)
}

func (t *Transaction) PutTbEvent(ctx context.Context, ns, db string, def *catalog.Event) error {
	return t.putDef(ctx, keys.Event(ns, db, def.Table, def.Name), keys.EventPrefix(ns, db, def.Table), def)
}

func (t *Transaction) DelTbEvent(ctx context.Context, ns, db, tb, ev string) error {
	return t.delDef(ctx, keys.Event(ns, db, tb, ev), keys.EventPrefix(ns, db, tb))
}

// changefeedOf returns the change feed configuration which applies to table tb: its own, else its database's.
func (t *Transaction) changefeedOf(ctx context.Context, ns, db string, tb *catalog.Table) (*catalog.ChangefeedConfig,
	error) {
	if tb != nil && tb.Changefeed != nil {
		return tb.Changefeed, nil
	}
	def, err := t.GetDb(ctx, ns, db)
	if IsNotFound(err, catalog.KindDatabase) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return def.Changefeed, nil
}
