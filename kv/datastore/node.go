package datastore

import (
	"context"

	"github.com/google/uuid"
	"github.com/pingcap/errors"

	"github.com/pingcap-incubator/tinydb/kv/catalog"
	"github.com/pingcap-incubator/tinydb/kv/transaction"
	"github.com/pingcap-incubator/tinydb/log"
)

var ErrNodeNotFound = errors.New("node not found")

// Bootstrap registers this node, then archives and removes expired nodes, including earlier incarnations of this
// process. Calling it again only refreshes the node's heartbeat.
func (ds *Datastore) Bootstrap(ctx context.Context) error {
	log.Infof("bootstrapping node %s", ds.id)
	if err := ds.InsertNode(ctx, ds.id); err != nil {
		return err
	}
	if err := ds.ExpireNodes(ctx); err != nil {
		return err
	}
	return ds.RemoveNodes(ctx)
}

// NodeMembershipUpdate refreshes the heartbeat of this node.
func (ds *Datastore) NodeMembershipUpdate(ctx context.Context) error {
	return ds.UpdateNode(ctx, ds.id)
}

// NodeMembershipExpire archives the nodes whose heartbeat is too old.
func (ds *Datastore) NodeMembershipExpire(ctx context.Context) error {
	return ds.ExpireNodes(ctx)
}

// NodeMembershipRemove deletes archived nodes and their live queries.
func (ds *Datastore) NodeMembershipRemove(ctx context.Context) error {
	return ds.RemoveNodes(ctx)
}

// InsertNode writes an active node record with the current time as heartbeat.
func (ds *Datastore) InsertNode(ctx context.Context, id uuid.UUID) error {
	return ds.run(ctx, transaction.Write, transaction.Optimistic, func(tx *transaction.Transaction) error {
		return tx.SetNode(ctx, &catalog.Node{ID: id, Heartbeat: ds.clock.Now()})
	})
}

// UpdateNode refreshes the heartbeat of a node. An archived node becomes active again.
func (ds *Datastore) UpdateNode(ctx context.Context, id uuid.UUID) error {
	return ds.InsertNode(ctx, id)
}

// ExpireNodes archives every active node whose last heartbeat is older than the membership expiry.
func (ds *Datastore) ExpireNodes(ctx context.Context) error {
	horizon := ds.clock.Now().Sub(ds.conf.NodeMembershipExpiry.Duration)
	return ds.run(ctx, transaction.Write, transaction.Optimistic, func(tx *transaction.Transaction) error {
		nds, err := tx.AllNodes(ctx)
		if err != nil {
			return err
		}
		for _, nd := range nds {
			if !nd.IsActive() || nd.Heartbeat >= horizon {
				continue
			}
			log.Infof("archiving expired node %s, last heartbeat %s", nd.ID, nd.Heartbeat.Time())
			if err := tx.SetNode(ctx, nd.Archive()); err != nil {
				return err
			}
			nodeCounter.WithLabelValues("expire").Inc()
		}
		return nil
	})
}

// RemoveNodes deletes every archived node together with the live queries it registered. Each node is removed in its
// own transaction.
func (ds *Datastore) RemoveNodes(ctx context.Context) error {
	var archived []uuid.UUID
	err := ds.run(ctx, transaction.Read, transaction.Optimistic, func(tx *transaction.Transaction) error {
		nds, err := tx.AllNodes(ctx)
		if err != nil {
			return err
		}
		for _, nd := range nds {
			if !nd.IsActive() {
				archived = append(archived, nd.ID)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, id := range archived {
		err := ds.run(ctx, transaction.Write, transaction.Optimistic, func(tx *transaction.Transaction) error {
			lqs, err := tx.AllNodeLives(ctx, id)
			if err != nil {
				return err
			}
			for _, lq := range lqs {
				if err := tx.DelLive(ctx, lq); err != nil {
					return err
				}
			}
			log.Infof("removing archived node %s with %d live queries", id, len(lqs))
			return tx.DelNode(ctx, id)
		})
		if err != nil {
			return err
		}
		nodeCounter.WithLabelValues("remove").Inc()
	}
	return nil
}

// Nodes lists every node of the cluster, archived ones included.
func (ds *Datastore) Nodes(ctx context.Context) (catalog.Nodes, error) {
	var nds catalog.Nodes
	err := ds.run(ctx, transaction.Read, transaction.Optimistic, func(tx *transaction.Transaction) error {
		var err error
		nds, err = tx.AllNodes(ctx)
		return err
	})
	return nds, err
}

func (ds *Datastore) Node(ctx context.Context, id uuid.UUID) (*catalog.Node, error) {
	var nd *catalog.Node
	err := ds.run(ctx, transaction.Read, transaction.Optimistic, func(tx *transaction.Transaction) error {
		var err error
		nd, err = tx.GetNode(ctx, id)
		if transaction.IsNotFound(err, catalog.KindNode) {
			return errors.Annotatef(ErrNodeNotFound, "node %s", id)
		}
		return err
	})
	return nd, err
}
