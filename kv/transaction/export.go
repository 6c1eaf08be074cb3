package transaction

import (
	"context"
	"fmt"

	"github.com/pingcap-incubator/tinydb/kv/catalog"
)

// exporter writes the chunks of an export to a channel, giving up when the context ends.
type exporter struct {
	ctx context.Context
	ch  chan<- []byte
}

func (e *exporter) send(s string) error {
	select {
	case e.ch <- []byte(s):
		return nil
	case <-e.ctx.Done():
		return e.ctx.Err()
	}
}

func (e *exporter) section(title string) error {
	return e.send("-- ------------------------------\n-- " + title + "\n-- ------------------------------\n\n")
}

func (e *exporter) statement(s fmt.Stringer) error {
	return e.send(s.String() + ";\n")
}

func (e *exporter) definitions(title string, defs []fmt.Stringer) error {
	if len(defs) == 0 {
		return nil
	}
	if err := e.section(title); err != nil {
		return err
	}
	for _, d := range defs {
		if err := e.statement(d); err != nil {
			return err
		}
	}
	return e.send("\n")
}

func stringers[T fmt.Stringer](defs []T) []fmt.Stringer {
	out := make([]fmt.Stringer, len(defs))
	for i, d := range defs {
		out[i] = d
	}
	return out
}

// Export writes a script recreating database db to ch. Definitions come first: functions, users, access methods,
// params, analyzers, then every table with its fields, indexes and events. The records of all tables follow inside
// one transaction block, as UPDATE statements or RELATE statements for edges. Records are sent as they are read.
// Export does not close ch.
func (t *Transaction) Export(ctx context.Context, ns, db string, ch chan<- []byte) error {
	e := &exporter{ctx: ctx, ch: ch}
	if err := e.section("OPTION"); err != nil {
		return err
	}
	if err := e.send("OPTION IMPORT;\n\n"); err != nil {
		return err
	}

	fcs, err := t.AllDbFunctions(ctx, ns, db)
	if err != nil {
		return err
	}
	if err := e.definitions("FUNCTIONS", stringers(fcs)); err != nil {
		return err
	}
	uss, err := t.AllDbUsers(ctx, ns, db)
	if err != nil {
		return err
	}
	if err := e.definitions("USERS", stringers(uss)); err != nil {
		return err
	}
	acs, err := t.AllDbAccesses(ctx, ns, db)
	if err != nil {
		return err
	}
	if err := e.definitions("ACCESSES", stringers(acs)); err != nil {
		return err
	}
	pas, err := t.AllDbParams(ctx, ns, db)
	if err != nil {
		return err
	}
	if err := e.definitions("PARAMS", stringers(pas)); err != nil {
		return err
	}
	azs, err := t.AllDbAnalyzers(ctx, ns, db)
	if err != nil {
		return err
	}
	if err := e.definitions("ANALYZERS", stringers(azs)); err != nil {
		return err
	}

	tbs, err := t.AllTb(ctx, ns, db)
	if err != nil {
		return err
	}
	for _, tb := range tbs {
		if err := t.exportTable(ctx, e, ns, db, tb); err != nil {
			return err
		}
	}

	if err := e.section("TRANSACTION"); err != nil {
		return err
	}
	if err := e.send("BEGIN TRANSACTION;\n\n"); err != nil {
		return err
	}
	for _, tb := range tbs {
		if err := t.exportRecords(ctx, e, ns, db, tb.Name); err != nil {
			return err
		}
	}
	if err := e.section("TRANSACTION"); err != nil {
		return err
	}
	return e.send("COMMIT TRANSACTION;\n\n")
}

func (t *Transaction) exportTable(ctx context.Context, e *exporter, ns, db string, tb *catalog.Table) error {
	if err := e.section("TABLE: " + tb.Name); err != nil {
		return err
	}
	if err := e.statement(tb); err != nil {
		return err
	}
	if err := e.send("\n"); err != nil {
		return err
	}
	fds, err := t.AllTbFields(ctx, ns, db, tb.Name)
	if err != nil {
		return err
	}
	ixs, err := t.AllTbIndexes(ctx, ns, db, tb.Name)
	if err != nil {
		return err
	}
	evs, err := t.AllTbEvents(ctx, ns, db, tb.Name)
	if err != nil {
		return err
	}
	for _, group := range [][]fmt.Stringer{stringers(fds), stringers(ixs), stringers(evs)} {
		if len(group) == 0 {
			continue
		}
		for _, d := range group {
			if err := e.statement(d); err != nil {
				return err
			}
		}
		if err := e.send("\n"); err != nil {
			return err
		}
	}
	return nil
}

func (t *Transaction) exportRecords(ctx context.Context, e *exporter, ns, db, tb string) error {
	if err := e.section("TABLE DATA: " + tb); err != nil {
		return err
	}
	err := t.StreamRecords(ctx, ns, db, tb, func(rec *catalog.Record) error {
		s, err := rec.Statement()
		if err != nil {
			return err
		}
		return e.send(s + "\n")
	})
	if err != nil {
		return err
	}
	return e.send("\n")
}
