package datastore

import (
	"context"
	"fmt"
	"sync"

	"github.com/pingcap/errors"
	"golang.org/x/time/rate"

	"github.com/pingcap-incubator/tinydb/kv/catalog"
	"github.com/pingcap-incubator/tinydb/kv/keys"
	"github.com/pingcap-incubator/tinydb/kv/transaction"
	"github.com/pingcap-incubator/tinydb/kv/util/engine_util"
	"github.com/pingcap-incubator/tinydb/kv/util/worker"
	"github.com/pingcap-incubator/tinydb/log"
)

var (
	ErrIndexBuilding       = errors.New("index is already being built")
	ErrIndexBuilderStopped = errors.New("index builder is stopped")
)

type BuildState uint8

const (
	BuildQueued BuildState = iota
	BuildRunning
	BuildDone
	BuildFailed
)

func (s BuildState) String() string {
	switch s {
	case BuildQueued:
		return "queued"
	case BuildRunning:
		return "running"
	case BuildDone:
		return "done"
	case BuildFailed:
		return "failed"
	}
	return "unknown"
}

// BuildStatus is the progress of one index build.
type BuildStatus struct {
	State   BuildState
	Indexed int
	Err     error
}

type indexBuildTask struct {
	ns, db, tb, ix string
}

func (t *indexBuildTask) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", t.ns, t.db, t.tb, t.ix)
}

// IndexBuilder fills indexes defined on tables which already hold records. Builds run one at a time on a worker,
// each batch of records in its own transaction, and batches are paced by a limiter.
type IndexBuilder struct {
	ds      *Datastore
	limiter *rate.Limiter
	worker  *worker.Worker
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	stopped bool
	status  map[string]*BuildStatus
}

func newIndexBuilder(ds *Datastore) *IndexBuilder {
	limit := rate.Inf
	if ds.conf.IndexBuildRate > 0 {
		limit = rate.Limit(ds.conf.IndexBuildRate)
	}
	b := &IndexBuilder{
		ds:      ds,
		limiter: rate.NewLimiter(limit, 1),
		status:  make(map[string]*BuildStatus),
	}
	b.ctx, b.cancel = context.WithCancel(context.Background())
	b.worker = worker.NewWorker("index-builder", &b.wg)
	b.worker.Start(b)
	return b
}

// Build queues the build of an index. A build of the same index which has not finished yet fails with
// ErrIndexBuilding.
func (b *IndexBuilder) Build(ns, db, tb, ix string) error {
	task := &indexBuildTask{ns: ns, db: db, tb: tb, ix: ix}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return ErrIndexBuilderStopped
	}
	if st, ok := b.status[task.String()]; ok && (st.State == BuildQueued || st.State == BuildRunning) {
		return errors.Annotatef(ErrIndexBuilding, "index %s", task)
	}
	if err := b.worker.Submit(task); err != nil {
		return errors.Annotatef(err, "build index %s", task)
	}
	b.status[task.String()] = &BuildStatus{State: BuildQueued}
	indexBuildCounter.WithLabelValues("queued").Inc()
	return nil
}

// Status returns a copy of the progress of a build, false when the index was never queued.
func (b *IndexBuilder) Status(ns, db, tb, ix string) (BuildStatus, bool) {
	task := &indexBuildTask{ns: ns, db: db, tb: tb, ix: ix}
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.status[task.String()]
	if !ok {
		return BuildStatus{}, false
	}
	return *st, true
}

func (b *IndexBuilder) update(task *indexBuildTask, fn func(st *BuildStatus)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b.status[task.String()])
}

func (b *IndexBuilder) Handle(t worker.Task) {
	task := t.(*indexBuildTask)
	b.update(task, func(st *BuildStatus) { st.State = BuildRunning })
	log.Infof("building index %s", task)
	err := b.build(b.ctx, task)
	b.update(task, func(st *BuildStatus) {
		if err != nil {
			st.State, st.Err = BuildFailed, err
			return
		}
		st.State = BuildDone
	})
	if err != nil {
		log.Warnf("index build %s failed: %v", task, err)
		indexBuildCounter.WithLabelValues("failed").Inc()
		return
	}
	log.Infof("index %s built", task)
	indexBuildCounter.WithLabelValues("done").Inc()
}

func (b *IndexBuilder) build(ctx context.Context, task *indexBuildTask) error {
	beg, end := keys.Range(keys.RecordPrefix(task.ns, task.db, task.tb))
	for beg != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return errors.Trace(err)
		}
		var err error
		if beg, err = b.buildBatch(ctx, task, beg, end); err != nil {
			return err
		}
	}
	return nil
}

// buildBatch indexes the next batch of records from beg on and returns where the following batch starts, nil once
// the table is exhausted.
func (b *IndexBuilder) buildBatch(ctx context.Context, task *indexBuildTask, beg, end []byte) ([]byte, error) {
	tx, err := b.ds.Transaction(ctx, transaction.Write, transaction.Optimistic)
	if err != nil {
		return nil, err
	}
	next, n, err := indexBatch(ctx, tx, task, beg, end)
	if err != nil {
		if cerr := tx.Cancel(ctx); cerr != nil {
			log.Warnf("cancel transaction: %v", cerr)
		}
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	b.update(task, func(st *BuildStatus) { st.Indexed += n })
	return next, nil
}

func indexBatch(ctx context.Context, tx *transaction.Transaction, task *indexBuildTask, beg,
	end []byte) ([]byte, int, error) {
	ix, err := tx.GetAndCacheTbIndex(ctx, task.ns, task.db, task.tb, task.ix)
	if err != nil {
		return nil, 0, err
	}
	kvs, err := tx.Scan(ctx, beg, end, transaction.NormalFetchSize)
	if err != nil {
		return nil, 0, err
	}
	for _, kv := range kvs {
		rec, err := catalog.Decode[catalog.Record](kv.Value)
		if err != nil {
			return nil, 0, err
		}
		if err := tx.PutIndexEntry(ctx, task.ns, task.db, ix, rec); err != nil {
			return nil, 0, err
		}
	}
	if len(kvs) < transaction.NormalFetchSize {
		return nil, len(kvs), nil
	}
	return engine_util.NextKey(kvs[len(kvs)-1].Key), len(kvs), nil
}

// stop cancels the running build and waits for the worker to exit.
func (b *IndexBuilder) stop() {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	b.stopped = true
	b.mu.Unlock()
	b.cancel()
	b.worker.Stop()
	b.wg.Wait()
}
