package transaction

import (
	"context"

	"github.com/google/uuid"

	"github.com/pingcap-incubator/tinydb/kv/catalog"
	"github.com/pingcap-incubator/tinydb/kv/keys"
	"github.com/pingcap-incubator/tinydb/kv/storage"
)

// Node records change under the feet of every node of the cluster, so they are read straight from storage and never
// cached.

func (t *Transaction) GetNode(ctx context.Context, id uuid.UUID) (*catalog.Node, error) {
	val, err := t.tx.Get(ctx, keys.Node(id))
	if err != nil {
		return nil, err
	}
	if val == nil {
		return nil, notFound(catalog.KindNode, id.String())
	}
	return catalog.Decode[catalog.Node](val)
}

func (t *Transaction) AllNodes(ctx context.Context) (catalog.Nodes, error) {
	return decodeAll[catalog.Node](ctx, t, keys.NodePrefix())
}

// SetNode creates or replaces a node record.
func (t *Transaction) SetNode(ctx context.Context, nd *catalog.Node) error {
	val, err := catalog.Encode(nd)
	if err != nil {
		return err
	}
	return t.tx.Set(ctx, keys.Node(nd.ID), val)
}

func (t *Transaction) DelNode(ctx context.Context, id uuid.UUID) error {
	return t.tx.Del(ctx, keys.Node(id))
}

// PutLive registers a live query, both under the node running it and under the table it watches.
func (t *Transaction) PutLive(ctx context.Context, lq *catalog.LiveQuery) error {
	val, err := catalog.Encode(lq)
	if err != nil {
		return err
	}
	if err := t.tx.Set(ctx, keys.NodeLive(lq.Node, lq.ID), val); err != nil {
		return err
	}
	if err := t.tx.Set(ctx, keys.TableLive(lq.NS, lq.DB, lq.TB, lq.ID), val); err != nil {
		return err
	}
	t.clr(keys.TableLivePrefix(lq.NS, lq.DB, lq.TB))
	return nil
}

// DelLive removes both registrations of a live query.
func (t *Transaction) DelLive(ctx context.Context, lq *catalog.LiveQuery) error {
	if err := t.tx.Del(ctx, keys.NodeLive(lq.Node, lq.ID)); err != nil {
		return err
	}
	if err := t.tx.Del(ctx, keys.TableLive(lq.NS, lq.DB, lq.TB, lq.ID)); err != nil {
		return err
	}
	t.clr(keys.TableLivePrefix(lq.NS, lq.DB, lq.TB))
	return nil
}

// AllNodeLives returns the live queries registered by a node.
func (t *Transaction) AllNodeLives(ctx context.Context, node uuid.UUID) (catalog.LiveQueries, error) {
	return decodeAll[catalog.LiveQuery](ctx, t, keys.NodeLivePrefix(node))
}

// AllTbLives returns the live queries watching a table. The list is cached for the transaction.
func (t *Transaction) AllTbLives(ctx context.Context, ns, db, tb string) (catalog.LiveQueries, error) {
	return allDefs[catalog.LiveQuery, *catalog.LiveQuery, catalog.LiveQueries](ctx, t, keys.TableLivePrefix(ns, db, tb))
}

func decodeAll[T any](ctx context.Context, t *Transaction, prefix []byte) ([]*T, error) {
	var out []*T
	beg, end := keys.Range(prefix)
	err := t.Stream(ctx, beg, end, NoLimit, func(kv storage.KV) error {
		v, err := catalog.Decode[T](kv.Value)
		if err != nil {
			return err
		}
		out = append(out, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
