package datastore

import (
	"context"

	"github.com/google/uuid"
	"github.com/pingcap/errors"
)

type Action uint8

const (
	ActionCreate Action = iota
	ActionUpdate
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "CREATE"
	case ActionUpdate:
		return "UPDATE"
	case ActionDelete:
		return "DELETE"
	}
	return "UNKNOWN"
}

// Notification is sent to the consumer of a live query.
type Notification struct {
	ID     uuid.UUID
	Action Action
	Result map[string]interface{}
}

// Notifications returns the receiving side of the notification channel, nil unless WithNotifications was called.
func (ds *Datastore) Notifications() <-chan Notification {
	return ds.notifications
}

// notify queues n. A full channel blocks the sender until the consumer catches up or ctx ends.
func (ds *Datastore) notify(ctx context.Context, n Notification) error {
	if ds.notifications == nil {
		return nil
	}
	if !ds.capabilities.LiveQueryNotifications {
		return nil
	}
	select {
	case ds.notifications <- n:
		return nil
	case <-ctx.Done():
		return errors.Trace(ctx.Err())
	}
}
