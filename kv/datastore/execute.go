package datastore

import (
	"context"
	"time"

	"github.com/pingcap/errors"

	"github.com/pingcap-incubator/tinydb/kv/transaction"
	"github.com/pingcap-incubator/tinydb/log"
)

// ErrNoParser is returned by Execute when the datastore was built without a parser.
var ErrNoParser = errors.New("datastore has no query parser")

// Session identifies who runs statements and where.
type Session struct {
	NS   string
	DB   string
	User string
	// Guest sessions carry no authentication.
	Guest bool
}

// Variables are the parameters bound to a query.
type Variables map[string]interface{}

// Options is what a computation sees of the datastore while it runs.
type Options struct {
	Session      *Session
	Vars         Variables
	Strict       bool
	Auth         bool
	Capabilities *Capabilities
	// Notify queues a live query notification.
	Notify func(ctx context.Context, n Notification) error
}

// Computation is one statement produced by the query layer.
type Computation interface {
	// Writeable reports whether the statement needs a write transaction.
	Writeable() bool
	Compute(ctx context.Context, opt *Options, tx *transaction.Transaction) (interface{}, error)
}

// Query is a list of statements run in order.
type Query []Computation

// Parser turns query text into computations.
type Parser interface {
	Parse(text string) (Query, error)
}

// Response is the outcome of one statement.
type Response struct {
	Time   time.Duration
	Result interface{}
	Err    error
}

// Execute parses text and runs its statements.
func (ds *Datastore) Execute(ctx context.Context, text string, sess *Session, vars Variables) ([]Response, error) {
	if ds.parser == nil {
		return nil, ErrNoParser
	}
	q, err := ds.parser.Parse(text)
	if err != nil {
		return nil, errors.Annotate(err, "parse query")
	}
	return ds.Process(ctx, q, sess, vars)
}

// Process runs every statement of q in its own transaction. A failing statement does not stop the next ones, its
// error is reported in its response.
func (ds *Datastore) Process(ctx context.Context, q Query, sess *Session, vars Variables) ([]Response, error) {
	if err := ds.checkSession(sess); err != nil {
		return nil, err
	}
	ctx, cancel := withTimeout(ctx, ds.queryTimeout)
	defer cancel()
	opt := ds.options(sess, vars)
	out := make([]Response, 0, len(q))
	for _, c := range q {
		start := time.Now()
		res, err := ds.compute(ctx, opt, c, c.Writeable())
		out = append(out, Response{Time: time.Since(start), Result: res, Err: err})
	}
	return out, nil
}

// Compute runs a single statement in its own transaction.
func (ds *Datastore) Compute(ctx context.Context, c Computation, sess *Session, vars Variables) (interface{}, error) {
	if err := ds.checkSession(sess); err != nil {
		return nil, err
	}
	ctx, cancel := withTimeout(ctx, ds.queryTimeout)
	defer cancel()
	return ds.compute(ctx, ds.options(sess, vars), c, c.Writeable())
}

// Evaluate runs a statement in a read transaction whatever it declares, so it cannot change anything.
func (ds *Datastore) Evaluate(ctx context.Context, c Computation, sess *Session, vars Variables) (interface{}, error) {
	if err := ds.checkSession(sess); err != nil {
		return nil, err
	}
	ctx, cancel := withTimeout(ctx, ds.queryTimeout)
	defer cancel()
	return ds.compute(ctx, ds.options(sess, vars), c, false)
}

func (ds *Datastore) compute(ctx context.Context, opt *Options, c Computation, write bool) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Trace(err)
	}
	ctx, cancel := withTimeout(ctx, ds.txTimeout)
	defer cancel()
	var res interface{}
	err := ds.run(ctx, transaction.Writeable(write), transaction.Optimistic, func(tx *transaction.Transaction) error {
		var err error
		res, err = c.Compute(ctx, opt, tx)
		return err
	})
	if err != nil {
		log.Debugf("statement failed: %v", err)
		return nil, err
	}
	return res, nil
}

func (ds *Datastore) options(sess *Session, vars Variables) *Options {
	return &Options{
		Session:      sess,
		Vars:         vars,
		Strict:       ds.strict,
		Auth:         ds.auth,
		Capabilities: ds.capabilities,
		Notify:       ds.notify,
	}
}

func (ds *Datastore) checkSession(sess *Session) error {
	if sess == nil {
		return errors.New("no session")
	}
	if ds.auth && sess.Guest && !ds.capabilities.GuestAccess {
		return errors.Errorf("guest access to %s/%s is not allowed", sess.NS, sess.DB)
	}
	return nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
