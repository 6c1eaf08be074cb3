package datastore

import (
	"context"
	"io"

	"github.com/pingcap/errors"
	"golang.org/x/sync/errgroup"

	"github.com/pingcap-incubator/tinydb/kv/transaction"
)

// exportBacklog is the number of chunks the producer may run ahead of the writer.
const exportBacklog = 64

// Export writes a script recreating a database to w. It reads from a single read transaction.
func (ds *Datastore) Export(ctx context.Context, ns, db string, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	ch := make(chan []byte, exportBacklog)
	g, gctx := errgroup.WithContext(ctx)
	// the producer fails with a cancellation once the writer failed, so the write error is kept apart
	var werr error
	g.Go(func() error {
		defer close(ch)
		return ds.run(gctx, transaction.Read, transaction.Optimistic, func(tx *transaction.Transaction) error {
			return tx.Export(gctx, ns, db, ch)
		})
	})
	g.Go(func() error {
		for chunk := range ch {
			if _, err := w.Write(chunk); err != nil {
				werr = errors.Trace(err)
				cancel()
				// drain so the producer is not left blocked
				for range ch {
				}
				return werr
			}
		}
		return nil
	})
	err := g.Wait()
	if werr != nil {
		return werr
	}
	return err
}
