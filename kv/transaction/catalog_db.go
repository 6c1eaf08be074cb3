package transaction

import (
	"context"

	"github.com/pingcap-incubator/tinydb/kv/catalog"
	"github.com/pingcap-incubator/tinydb/kv/keys"
)

func (t *Transaction) AllNs(ctx context.Context) (catalog.Namespaces, error) {
	return allDefs[catalog.Namespace, *catalog.Namespace, catalog.Namespaces](ctx, t, keys.NamespaceDefPrefix())
}

func (t *Transaction) GetNs(ctx context.Context, ns string) (*catalog.Namespace, error) {
	return getDef[catalog.Namespace](ctx, t, keys.NamespaceDef(ns), catalog.KindNamespace, ns)
}

// GetAndCacheNs is GetNs through the shared cache.
func (t *Transaction) GetAndCacheNs(ctx context.Context, ns string) (*catalog.Namespace, error) {
	return getAndCacheDef[catalog.Namespace](ctx, t, keys.NamespaceDef(ns), catalog.KindNamespace, ns)
}

// AddNs returns the namespace, defining it first when it does not exist and the transaction is not strict.
func (t *Transaction) AddNs(ctx context.Context, ns string) (*catalog.Namespace, error) {
	def, err := t.GetNs(ctx, ns)
	if err == nil || t.strict || !IsNotFound(err, catalog.KindNamespace) {
		return def, err
	}
	def = &catalog.Namespace{Name: ns}
	if err := t.PutNs(ctx, def); err != nil {
		return nil, err
	}
	return def, nil
}

func (t *Transaction) PutNs(ctx context.Context, def *catalog.Namespace) error {
	return t.putDef(ctx, keys.NamespaceDef(def.Name), keys.NamespaceDefPrefix(), def)
}

// DelNs removes the namespace and everything stored in it.
func (t *Transaction) DelNs(ctx context.Context, ns string) error {
	if err := t.delDef(ctx, keys.NamespaceDef(ns), keys.NamespaceDefPrefix()); err != nil {
		return err
	}
	if err := t.Delp(ctx, keys.NsPrefix(ns), NoLimit); err != nil {
		return err
	}
	t.clrp(keys.NsPrefix(ns))
	return nil
}

func (t *Transaction) AllDb(ctx context.Context, ns string) (catalog.Databases, error) {
	return allDefs[catalog.Database, *catalog.Database, catalog.Databases](ctx, t, keys.DatabaseDefPrefix(ns))
}

func (t *Transaction) GetDb(ctx context.Context, ns, db string) (*catalog.Database, error) {
	return getDef[catalog.Database](ctx, t, keys.DatabaseDef(ns, db), catalog.KindDatabase, db)
}

func (t *Transaction) GetAndCacheDb(ctx context.Context, ns, db string) (*catalog.Database, error) {
	return getAndCacheDef[catalog.Database](ctx, t, keys.DatabaseDef(ns, db), catalog.KindDatabase, db)
}

// AddDb returns the database, defining it and its namespace first when they do not exist and the transaction is not
// strict.
func (t *Transaction) AddDb(ctx context.Context, ns, db string) (*catalog.Database, error) {
	def, err := t.GetDb(ctx, ns, db)
	if err == nil || t.strict || !IsNotFound(err, catalog.KindDatabase) {
		return def, err
	}
	if _, err := t.AddNs(ctx, ns); err != nil {
		return nil, err
	}
	def = &catalog.Database{Name: db}
	if err := t.PutDb(ctx, ns, def); err != nil {
		return nil, err
	}
	return def, nil
}

func (t *Transaction) PutDb(ctx context.Context, ns string, def *catalog.Database) error {
	return t.putDef(ctx, keys.DatabaseDef(ns, def.Name), keys.DatabaseDefPrefix(ns), def)
}

// DelDb removes the database and everything stored in it, change feed included.
func (t *Transaction) DelDb(ctx context.Context, ns, db string) error {
	if err := t.delDef(ctx, keys.DatabaseDef(ns, db), keys.DatabaseDefPrefix(ns)); err != nil {
		return err
	}
	if err := t.Delp(ctx, keys.DbPrefix(ns, db), NoLimit); err != nil {
		return err
	}
	t.clrp(keys.DbPrefix(ns, db))
	return nil
}

func (t *Transaction) AllDbFunctions(ctx context.Context, ns, db string) (catalog.Functions, error) {
	return allDefs[catalog.Function, *catalog.Function, catalog.Functions](ctx, t, keys.FunctionPrefix(ns, db))
}

func (t *Transaction) GetDbFunction(ctx context.Context, ns, db, fc string) (*catalog.Function, error) {
	return getDef[catalog.Function](ctx, t, keys.Function(ns, db, fc), catalog.KindFunction, fc)
}

func (t *Transaction) PutDbFunction(ctx context.Context, ns, db string, def *catalog.Function) error {
	return t.putDef(ctx, keys.Function(ns, db, def.Name), keys.FunctionPrefix(ns, db), def)
}

func (t *Transaction) DelDbFunction(ctx context.Context, ns, db, fc string) error {
	return t.delDef(ctx, keys.Function(ns, db, fc), keys.FunctionPrefix(ns, db))
}

func (t *Transaction) AllDbParams(ctx context.Context, ns, db string) (catalog.Params, error) {
	return allDefs[catalog.Param, *catalog.Param, catalog.Params](ctx, t, keys.ParamPrefix(ns, db))
}

func (t *Transaction) GetDbParam(ctx context.Context, ns, db, pa string) (*catalog.Param, error) {
	return getDef[catalog.Param](ctx, t, keys.Param(ns, db, pa), catalog.KindParam, pa)
}

func (t *Transaction) PutDbParam(ctx context.Context, ns, db string, def *catalog.Param) error {
	return t.putDef(ctx, keys.Param(ns, db, def.Name), keys.ParamPrefix(ns, db), def)
}

func (t *Transaction) DelDbParam(ctx context.Context, ns, db, pa string) error {
	return t.delDef(ctx, keys.Param(ns, db, pa), keys.ParamPrefix(ns, db))
}

func (t *Transaction) AllDbAnalyzers(ctx context.Context, ns, db string) (catalog.Analyzers, error) {
	return allDefs[catalog.Analyzer, *catalog.Analyzer, catalog.Analyzers](ctx, t, keys.AnalyzerPrefix(ns, db))
}

func (t *Transaction) GetDbAnalyzer(ctx context.Context, ns, db, az string) (*catalog.Analyzer, error) {
	return getDef[catalog.Analyzer](ctx, t, keys.Analyzer(ns, db, az), catalog.KindAnalyzer, az)
}

func (t *Transaction) PutDbAnalyzer(ctx context.Context, ns, db string, def *catalog.Analyzer) error {
	return t.putDef(ctx, keys.Analyzer(ns, db, def.Name), keys.AnalyzerPrefix(ns, db), def)
}

func (t *Transaction) DelDbAnalyzer(ctx context.Context, ns, db, az string) error {
	return t.delDef(ctx, keys.Analyzer(ns, db, az), keys.AnalyzerPrefix(ns, db))
}

func (t *Transaction) AllDbSequences(ctx context.Context, ns, db string) (catalog.Sequences, error) {
	return allDefs[catalog.Sequence, *catalog.Sequence, catalog.Sequences](ctx, t, keys.SequencePrefix(ns, db))
}

func (t *Transaction) GetDbSequence(ctx context.Context, ns, db, sq string) (*catalog.Sequence, error) {
	return getDef[catalog.Sequence](ctx, t, keys.Sequence(ns, db, sq), catalog.KindSequence, sq)
}

func (t *Transaction) PutDbSequence(ctx context.Context, ns, db string, def *catalog.Sequence) error {
	return t.putDef(ctx, keys.Sequence(ns, db, def.Name), keys.SequencePrefix(ns, db), def)
}

func (t *Transaction) DelDbSequence(ctx context.Context, ns, db, sq string) error {
	return t.delDef(ctx, keys.Sequence(ns, db, sq), keys.SequencePrefix(ns, db))
}
