package transaction

import (
	"context"

	"github.com/pingcap-incubator/tinydb/kv/catalog"
	"github.com/pingcap-incubator/tinydb/kv/keys"
)

// Users and access methods exist at the root, on namespaces and on databases.

func (t *Transaction) AllRootUsers(ctx context.Context) (catalog.Users, error) {
	return allDefs[catalog.User, *catalog.User, catalog.Users](ctx, t, keys.RootUserPrefix())
}

func (t *Transaction) GetRootUser(ctx context.Context, us string) (*catalog.User, error) {
	return getDef[catalog.User](ctx, t, keys.RootUser(us), catalog.KindUser, us)
}

func (t *Transaction) PutRootUser(ctx context.Context, def *catalog.User) error {
	def.Base = catalog.BaseRoot
	return t.putDef(ctx, keys.RootUser(def.Name), keys.RootUserPrefix(), def)
}

func (t *Transaction) DelRootUser(ctx context.Context, us string) error {
	return t.delDef(ctx, keys.RootUser(us), keys.RootUserPrefix())
}

func (t *Transaction) AllNsUsers(ctx context.Context, ns string) (catalog.Users, error) {
	return allDefs[catalog.User, *catalog.User, catalog.Users](ctx, t, keys.NsUserPrefix(ns))
}

func (t *Transaction) GetNsUser(ctx context.Context, ns, us string) (*catalog.User, error) {
	return getDef[catalog.User](ctx, t, keys.NsUser(ns, us), catalog.KindUser, us)
}

func (t *Transaction) PutNsUser(ctx context.Context, ns string, def *catalog.User) error {
	def.Base = catalog.BaseNs
	return t.putDef(ctx, keys.NsUser(ns, def.Name), keys.NsUserPrefix(ns), def)
}

func (t *Transaction) DelNsUser(ctx context.Context, ns, us string) error {
	return t.delDef(ctx, keys.NsUser(ns, us), keys.NsUserPrefix(ns))
}

func (t *Transaction) AllDbUsers(ctx context.Context, ns, db string) (catalog.Users, error) {
	return allDefs[catalog.User, *catalog.User, catalog.Users](ctx, t, keys.DbUserPrefix(ns, db))
}

func (t *Transaction) GetDbUser(ctx context.Context, ns, db, us string) (*catalog.User, error) {
	return getDef[catalog.User](ctx, t, keys.DbUser(ns, db, us), catalog.KindUser, us)
}

func (t *Transaction) PutDbUser(ctx context.Context, ns, db string, def *catalog.User) error {
	def.Base = catalog.BaseDb
	return t.putDef(ctx, keys.DbUser(ns, db, def.Name), keys.DbUserPrefix(ns, db), def)
}

func (t *Transaction) DelDbUser(ctx context.Context, ns, db, us string) error {
	return t.delDef(ctx, keys.DbUser(ns, db, us), keys.DbUserPrefix(ns, db))
}

func (t *Transaction) AllRootAccesses(ctx context.Context) (catalog.Accesses, error) {
	return allDefs[catalog.Access, *catalog.Access, catalog.Accesses](ctx, t, keys.RootAccessPrefix())
}

func (t *Transaction) GetRootAccess(ctx context.Context, ac string) (*catalog.Access, error) {
	return getDef[catalog.Access](ctx, t, keys.RootAccess(ac), catalog.KindAccess, ac)
}

func (t *Transaction) PutRootAccess(ctx context.Context, def *catalog.Access) error {
	def.Base = catalog.BaseRoot
	return t.putDef(ctx, keys.RootAccess(def.Name), keys.RootAccessPrefix(), def)
}

func (t *Transaction) DelRootAccess(ctx context.Context, ac string) error {
	return t.delDef(ctx, keys.RootAccess(ac), keys.RootAccessPrefix())
}

func (t *Transaction) AllNsAccesses(ctx context.Context, ns string) (catalog.Accesses, error) {
	return allDefs[catalog.Access, *catalog.Access, catalog.Accesses](ctx, t, keys.NsAccessPrefix(ns))
}

func (t *Transaction) GetNsAccess(ctx context.Context, ns, ac string) (*catalog.Access, error) {
	return getDef[catalog.Access](ctx, t, keys.NsAccess(ns, ac), catalog.KindAccess, ac)
}

func (t *Transaction) PutNsAccess(ctx context.Context, ns string, def *catalog.Access) error {
	def.Base = catalog.BaseNs
	return t.putDef(ctx, keys.NsAccess(ns, def.Name), keys.NsAccessPrefix(ns), def)
}

func (t *Transaction) DelNsAccess(ctx context.Context, ns, ac string) error {
	return t.delDef(ctx, keys.NsAccess(ns, ac), keys.NsAccessPrefix(ns))
}

func (t *Transaction) AllDbAccesses(ctx context.Context, ns, db string) (catalog.Accesses, error) {
	return allDefs[catalog.Access, *catalog.Access, catalog.Accesses](ctx, t, keys.DbAccessPrefix(ns, db))
}

func (t *Transaction) GetDbAccess(ctx context.Context, ns, db, ac string) (*catalog.Access, error) {
	return getDef[catalog.Access](ctx, t, keys.DbAccess(ns, db, ac), catalog.KindAccess, ac)
}

func (t *Transaction) PutDbAccess(ctx context.Context, ns, db string, def *catalog.Access) error {
	def.Base = catalog.BaseDb
	return t.putDef(ctx, keys.DbAccess(ns, db, def.Name), keys.DbAccessPrefix(ns, db), def)
}

func (t *Transaction) DelDbAccess(ctx context.Context, ns, db, ac string) error {
	return t.delDef(ctx, keys.DbAccess(ns, db, ac), keys.DbAccessPrefix(ns, db))
}
