package transaction

import (
	"context"

	"github.com/pingcap-incubator/tinydb/kv/cache"
	"github.com/pingcap-incubator/tinydb/kv/catalog"
	"github.com/pingcap-incubator/tinydb/kv/keys"
	"github.com/pingcap-incubator/tinydb/kv/storage"
)

// definition is a pointer to a catalog object type.
type definition[T any] interface {
	*T
	catalog.Definition
}

// getDef reads the object stored under key through the transaction cache. A missing object is a NotFoundError of
// the given kind naming value.
func getDef[T any, P definition[T]](ctx context.Context, t *Transaction, key []byte, kind catalog.Kind,
	value string) (P, error) {
	if v, ok, err := cache.Get[P](t.cache, key); err != nil || ok {
		return v, err
	}
	val, err := t.tx.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if val == nil {
		return nil, notFound(kind, value)
	}
	v, err := catalog.Decode[T](val)
	if err != nil {
		return nil, err
	}
	t.cache.Set(key, P(v))
	return P(v), nil
}

// getAndCacheDef is getDef through the shared cache of the datastore.
func getAndCacheDef[T any, P definition[T]](ctx context.Context, t *Transaction, key []byte, kind catalog.Kind,
	value string) (P, error) {
	if t.shared != nil {
		if v, ok, err := cache.GetShared[P](t.shared, key); err != nil || ok {
			return v, err
		}
	}
	v, err := getDef[T, P](ctx, t, key, kind, value)
	if err != nil {
		return nil, err
	}
	if t.shared != nil && !t.clearedShared(key) {
		t.shared.Set(key, v)
	}
	return v, nil
}

// allDefs reads every object under prefix. The collection is cached under the prefix itself, which no single object
// key equals.
func allDefs[T any, P definition[T], C interface {
	~[]P
	catalog.Definition
}](ctx context.Context, t *Transaction, prefix []byte) (C, error) {
	if v, ok, err := cache.Get[C](t.cache, prefix); err != nil || ok {
		return v, err
	}
	var out C
	err := t.Stream(ctx, prefix, keys.Suffix(prefix), NoLimit, func(kv storage.KV) error {
		v, err := catalog.Decode[T](kv.Value)
		if err != nil {
			return err
		}
		out = append(out, P(v))
		return nil
	})
	if err != nil {
		return nil, err
	}
	t.cache.Set(prefix, out)
	return out, nil
}

// putDef stores def under key and clears the key and its collection from the caches.
func (t *Transaction) putDef(ctx context.Context, key, collection []byte, def catalog.Definition) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	val, err := catalog.Encode(def)
	if err != nil {
		return err
	}
	if err := t.tx.Set(ctx, key, val); err != nil {
		return err
	}
	t.clr(key)
	t.clr(collection)
	return nil
}

// delDef deletes the object under key and clears the key and its collection from the caches.
func (t *Transaction) delDef(ctx context.Context, key, collection []byte) error {
	if err := t.tx.Del(ctx, key); err != nil {
		return err
	}
	t.clr(key)
	t.clr(collection)
	return nil
}
