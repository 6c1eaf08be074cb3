package transaction

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pingcap/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pingcap-incubator/tinydb/kv/cache"
	"github.com/pingcap-incubator/tinydb/kv/catalog"
	"github.com/pingcap-incubator/tinydb/kv/changefeed"
	"github.com/pingcap-incubator/tinydb/kv/clock"
	"github.com/pingcap-incubator/tinydb/kv/keys"
	"github.com/pingcap-incubator/tinydb/kv/storage"
	"github.com/pingcap-incubator/tinydb/kv/storage/mem_storage"
)

func newTestFactory(t *testing.T) Factory {
	shared, err := cache.NewShared(64)
	require.Nil(t, err)
	return NewFactory(mem_storage.NewMemStorage(), clock.NewFakeClock(time.Unix(1000, 0)), shared)
}

func begin(t *testing.T, f Factory, typ TransactionType) *Transaction {
	tx, err := f.Transaction(context.Background(), typ, Optimistic)
	require.Nil(t, err)
	return tx
}

func TestReadonlyRejectsWrites(t *testing.T) {
	ctx := context.Background()
	f := newTestFactory(t)
	w := begin(t, f, Write)
	require.Nil(t, w.Set(ctx, []byte("k"), []byte("v")))
	require.Nil(t, w.Commit(ctx))

	r := begin(t, f, Read)
	err := r.Set(ctx, []byte("k"), []byte("x"))
	assert.True(t, storage.IsReadonly(err))
	assert.True(t, storage.IsReadonly(r.Delr(ctx, []byte("a"), []byte("z"), NoLimit)))
	assert.True(t, storage.IsReadonly(r.PutNs(ctx, &catalog.Namespace{Name: "n"})))
	val, err := r.Get(ctx, []byte("k"))
	require.Nil(t, err)
	assert.Equal(t, []byte("v"), val)
	require.Nil(t, r.Cancel(ctx))

	assert.True(t, r.Closed())
	_, err = r.Get(ctx, []byte("k"))
	assert.True(t, storage.IsFinished(err))
}

func TestRangeCompleteness(t *testing.T) {
	ctx := context.Background()
	f := newTestFactory(t)
	w := begin(t, f, Write)
	const n = 2*NormalFetchSize + 345
	for i := 0; i < n; i++ {
		require.Nil(t, w.Set(ctx, []byte(fmt.Sprintf("r/%06d", i)), []byte{1}))
	}
	require.Nil(t, w.Set(ctx, []byte("s/outside"), []byte{1}))
	require.Nil(t, w.Commit(ctx))

	r := begin(t, f, Read)
	defer r.Cancel(ctx)
	all, err := r.Getr(ctx, []byte("r/"), []byte("r0"), NoLimit)
	require.Nil(t, err)
	require.Len(t, all, n)
	for i, kv := range all {
		assert.Equal(t, fmt.Sprintf("r/%06d", i), string(kv.Key))
	}

	some, err := r.Getr(ctx, []byte("r/"), []byte("r0"), NormalFetchSize+1)
	require.Nil(t, err)
	assert.Len(t, some, NormalFetchSize+1)
}

func TestPrefixIsolation(t *testing.T) {
	ctx := context.Background()
	f := newTestFactory(t)
	w := begin(t, f, Write)
	for i := 0; i < NormalFetchSize+10; i++ {
		require.Nil(t, w.Set(ctx, []byte(fmt.Sprintf("ab%05d", i)), []byte{1}))
	}
	require.Nil(t, w.Set(ctx, []byte("a"), []byte{1}))
	require.Nil(t, w.Set(ctx, []byte("ac"), []byte{1}))

	got, err := w.Getp(ctx, []byte("ab"), NoLimit)
	require.Nil(t, err)
	assert.Len(t, got, NormalFetchSize+10)
	for _, kv := range got {
		assert.True(t, strings.HasPrefix(string(kv.Key), "ab"))
	}

	require.Nil(t, w.Delp(ctx, []byte("ab"), NoLimit))
	got, err = w.Getp(ctx, []byte("ab"), NoLimit)
	require.Nil(t, err)
	assert.Empty(t, got)
	rest, err := w.Getp(ctx, []byte("a"), NoLimit)
	require.Nil(t, err)
	assert.Len(t, rest, 2)
	require.Nil(t, w.Commit(ctx))
}

func TestStrictMode(t *testing.T) {
	ctx := context.Background()
	f := newTestFactory(t)

	strict := begin(t, f.WithStrict(true), Write)
	_, err := strict.AddTb(ctx, "test", "test", "missing_table")
	assert.True(t, IsNotFound(err, catalog.KindTable))
	require.Nil(t, strict.Cancel(ctx))

	lax := begin(t, f, Write)
	tb, err := lax.AddTb(ctx, "test", "test", "missing_table")
	require.Nil(t, err)
	assert.Equal(t, "missing_table", tb.Name)
	require.Nil(t, lax.Commit(ctx))

	r := begin(t, f, Read)
	defer r.Cancel(ctx)
	got, err := r.GetTb(ctx, "test", "test", "missing_table")
	require.Nil(t, err)
	assert.Equal(t, "missing_table", got.Name)
	_, err = r.GetNs(ctx, "test")
	assert.Nil(t, err)
	_, err = r.GetDb(ctx, "test", "test")
	assert.Nil(t, err)
	_, err = r.GetDb(ctx, "test", "other")
	assert.True(t, IsNotFound(err, catalog.KindDatabase))
	assert.Contains(t, err.Error(), "other")
}

func TestCatalogCacheCoherence(t *testing.T) {
	ctx := context.Background()
	f := newTestFactory(t)
	w := begin(t, f, Write)
	require.Nil(t, w.PutTbField(ctx, "n", "d", &catalog.Field{Name: "a", Table: "t"}))
	fds, err := w.AllTbFields(ctx, "n", "d", "t")
	require.Nil(t, err)
	require.Len(t, fds, 1)

	// writing a second field clears the cached collection
	require.Nil(t, w.PutTbField(ctx, "n", "d", &catalog.Field{Name: "b", Table: "t"}))
	fds, err = w.AllTbFields(ctx, "n", "d", "t")
	require.Nil(t, err)
	assert.Len(t, fds, 2)

	require.Nil(t, w.DelTbField(ctx, "n", "d", "t", "a"))
	_, err = w.GetTbField(ctx, "n", "d", "t", "a")
	assert.True(t, IsNotFound(err, catalog.KindField))
	require.Nil(t, w.Commit(ctx))

	// a cached read is not affected by a transaction committed later
	r := begin(t, f, Read)
	defer r.Cancel(ctx)
	before, err := r.GetTbField(ctx, "n", "d", "t", "b")
	require.Nil(t, err)
	w2 := begin(t, f, Write)
	require.Nil(t, w2.PutTbField(ctx, "n", "d", &catalog.Field{Name: "b", Table: "t", Type: "int"}))
	require.Nil(t, w2.Commit(ctx))
	after, err := r.GetTbField(ctx, "n", "d", "t", "b")
	require.Nil(t, err)
	assert.Same(t, before, after)
	assert.Equal(t, "", after.Type)
}

func TestSharedCacheInvalidatedOnCommit(t *testing.T) {
	ctx := context.Background()
	f := newTestFactory(t)
	w := begin(t, f, Write)
	require.Nil(t, w.PutDb(ctx, "n", &catalog.Database{Name: "d"}))
	require.Nil(t, w.Commit(ctx))

	r := begin(t, f, Read)
	db, err := r.GetAndCacheDb(ctx, "n", "d")
	require.Nil(t, err)
	assert.Nil(t, db.Changefeed)
	require.Nil(t, r.Cancel(ctx))

	w = begin(t, f, Write)
	require.Nil(t, w.PutDb(ctx, "n", &catalog.Database{Name: "d", Changefeed: &catalog.ChangefeedConfig{Expiry: time.Hour}}))
	require.Nil(t, w.Commit(ctx))

	r = begin(t, f, Read)
	defer r.Cancel(ctx)
	db, err = r.GetAndCacheDb(ctx, "n", "d")
	require.Nil(t, err)
	require.NotNil(t, db.Changefeed)
	assert.Equal(t, time.Hour, db.Changefeed.Expiry)
}

func TestCancelledWriteNotShared(t *testing.T) {
	ctx := context.Background()
	f := newTestFactory(t)
	w := begin(t, f, Write)
	require.Nil(t, w.PutNs(ctx, &catalog.Namespace{Name: "ghost"}))
	ns, err := w.GetAndCacheNs(ctx, "ghost")
	require.Nil(t, err)
	assert.Equal(t, "ghost", ns.Name)
	require.Nil(t, w.Cancel(ctx))

	r := begin(t, f, Read)
	defer r.Cancel(ctx)
	_, err = r.GetAndCacheNs(ctx, "ghost")
	assert.True(t, IsNotFound(err, catalog.KindNamespace))
}

func TestOptimisticConflict(t *testing.T) {
	ctx := context.Background()
	f := newTestFactory(t)
	a := begin(t, f, Write)
	b := begin(t, f, Write)
	require.Nil(t, a.Set(ctx, []byte("k"), []byte("a")))
	require.Nil(t, b.Set(ctx, []byte("k"), []byte("b")))
	errA := a.Commit(ctx)
	errB := b.Commit(ctx)
	assert.True(t, errA == nil || errB == nil)
	assert.False(t, errA == nil && errB == nil)
	assert.True(t, storage.IsConflict(errA) || storage.IsConflict(errB))

	r := begin(t, f, Read)
	defer r.Cancel(ctx)
	val, err := r.Get(ctx, []byte("k"))
	require.Nil(t, err)
	assert.Contains(t, []string{"a", "b"}, string(val))
}

func TestRecordsAndUniqueIndex(t *testing.T) {
	ctx := context.Background()
	f := newTestFactory(t)
	w := begin(t, f, Write)
	require.Nil(t, w.PutTbIndex(ctx, "n", "d", &catalog.Index{Name: "email", Table: "person", Cols: []string{"email"}, Unique: true}))
	alice := &catalog.Record{ID: catalog.Thing{TB: "person", ID: catalog.StringID("alice")},
		Content: map[string]interface{}{"email": "a@x"}}
	require.Nil(t, w.PutRecord(ctx, "n", "d", alice))
	bob := &catalog.Record{ID: catalog.Thing{TB: "person", ID: catalog.StringID("bob")},
		Content: map[string]interface{}{"email": "a@x"}}
	err := w.PutRecord(ctx, "n", "d", bob)
	assert.Equal(t, ErrIndexExists, errors.Cause(err))

	// rewriting alice with a new address frees the old one
	alice.Content["email"] = "alice@x"
	require.Nil(t, w.PutRecord(ctx, "n", "d", alice))
	require.Nil(t, w.PutRecord(ctx, "n", "d", bob))

	ix, err := w.GetTbIndex(ctx, "n", "d", "person", "email")
	require.Nil(t, err)
	vals, err := keys.AppendValue(nil, "a@x")
	require.Nil(t, err)
	ids, err := w.IndexLookup(ctx, "n", "d", ix, vals)
	require.Nil(t, err)
	assert.Equal(t, []catalog.ID{catalog.StringID("bob")}, ids)

	require.Nil(t, w.DelRecord(ctx, "n", "d", bob.ID))
	ids, err = w.IndexLookup(ctx, "n", "d", ix, vals)
	require.Nil(t, err)
	assert.Empty(t, ids)
	_, err = w.GetRecord(ctx, "n", "d", bob.ID)
	assert.True(t, IsNotFound(err, catalog.KindRecord))
	got, err := w.GetRecord(ctx, "n", "d", alice.ID)
	require.Nil(t, err)
	assert.Equal(t, "alice@x", got.Content["email"])
	require.Nil(t, w.Commit(ctx))
}

func TestChangefeedEntries(t *testing.T) {
	ctx := context.Background()
	f := newTestFactory(t)
	w := begin(t, f, Write)
	require.Nil(t, w.PutDb(ctx, "n", &catalog.Database{Name: "d"}))
	require.Nil(t, w.PutTb(ctx, "n", "d", &catalog.Table{Name: "t", Changefeed: &catalog.ChangefeedConfig{Expiry: time.Hour}}))
	require.Nil(t, w.Commit(ctx))

	for i := 0; i < 3; i++ {
		w = begin(t, f, Write)
		rec := &catalog.Record{ID: catalog.Thing{TB: "t", ID: catalog.IntID(int64(i))},
			Content: map[string]interface{}{"i": fmt.Sprint(i)}}
		require.Nil(t, w.PutRecord(ctx, "n", "d", rec))
		// tables without a change feed record nothing
		require.Nil(t, w.PutRecord(ctx, "n", "d", &catalog.Record{ID: catalog.Thing{TB: "quiet", ID: catalog.IntID(1)}}))
		require.Nil(t, w.Commit(ctx))
	}

	r := begin(t, f, Read)
	defer r.Cancel(ctx)
	sets, err := r.ChangesSince(ctx, "n", "d", "", clock.Versionstamp{}, 10)
	require.Nil(t, err)
	// the table definition and three record writes
	require.Len(t, sets, 4)
	assert.Equal(t, changefeed.MutationDef, sets[0].Tables[0].Mutations[0].Type)
	for i := 1; i < len(sets); i++ {
		assert.True(t, sets[i-1].Versionstamp.Compare(sets[i].Versionstamp) < 0)
		require.Len(t, sets[i].Tables, 1)
		assert.Equal(t, "t", sets[i].Tables[0].Table)
	}

	sets, err = r.ChangesSince(ctx, "n", "d", "t", sets[2].Versionstamp, 1)
	require.Nil(t, err)
	require.Len(t, sets, 1)
	assert.Equal(t, catalog.IntID(1), sets[0].Tables[0].Mutations[0].ID.ID)
}

func TestTimestampVersionstampMapping(t *testing.T) {
	ctx := context.Background()
	f := newTestFactory(t)
	w := begin(t, f, Write)
	vs5, err := w.SetTimestampForVersionstamp(ctx, 5, "n", "d")
	require.Nil(t, err)
	_, err = w.nextVersionstamp(ctx, "n", "d")
	require.Nil(t, err)
	vs10, err := w.SetTimestampForVersionstamp(ctx, 10, "n", "d")
	require.Nil(t, err)
	assert.True(t, vs5.Compare(vs10) < 0)

	_, err = w.SetTimestampForVersionstamp(ctx, 7, "n", "d")
	assert.Equal(t, ErrTimestampOrder, errors.Cause(err))
	// an equal timestamp keeps its first mapping
	_, err = w.nextVersionstamp(ctx, "n", "d")
	require.Nil(t, err)
	_, err = w.SetTimestampForVersionstamp(ctx, 10, "n", "d")
	assert.Equal(t, ErrTimestampOrder, errors.Cause(err))

	got, ok, err := w.GetVersionstampFromTimestamp(ctx, 9, "n", "d")
	require.Nil(t, err)
	require.True(t, ok)
	assert.Equal(t, vs5, got)
	got, ok, err = w.GetVersionstampFromTimestamp(ctx, 10, "n", "d")
	require.Nil(t, err)
	require.True(t, ok)
	assert.Equal(t, vs10, got)
	got, ok, err = w.GetVersionstampFromTimestamp(ctx, math.MaxUint64, "n", "d")
	require.Nil(t, err)
	require.True(t, ok)
	assert.Equal(t, vs10, got)
	_, ok, err = w.GetVersionstampFromTimestamp(ctx, 4, "n", "d")
	require.Nil(t, err)
	assert.False(t, ok)
	require.Nil(t, w.Commit(ctx))
}

func TestNodesAndLiveQueries(t *testing.T) {
	ctx := context.Background()
	f := newTestFactory(t)
	w := begin(t, f, Write)
	nd := &catalog.Node{ID: uuid.New(), Heartbeat: 10}
	require.Nil(t, w.SetNode(ctx, nd))
	lq := &catalog.LiveQuery{ID: uuid.New(), Node: nd.ID, NS: "n", DB: "d", TB: "t"}
	require.Nil(t, w.PutLive(ctx, lq))

	nds, err := w.AllNodes(ctx)
	require.Nil(t, err)
	require.Len(t, nds, 1)
	assert.Equal(t, nd.ID, nds[0].ID)
	lqs, err := w.AllNodeLives(ctx, nd.ID)
	require.Nil(t, err)
	require.Len(t, lqs, 1)
	tlqs, err := w.AllTbLives(ctx, "n", "d", "t")
	require.Nil(t, err)
	require.Len(t, tlqs, 1)

	require.Nil(t, w.DelLive(ctx, lq))
	tlqs, err = w.AllTbLives(ctx, "n", "d", "t")
	require.Nil(t, err)
	assert.Empty(t, tlqs)
	require.Nil(t, w.DelNode(ctx, nd.ID))
	_, err = w.GetNode(ctx, nd.ID)
	assert.True(t, IsNotFound(err, catalog.KindNode))
	require.Nil(t, w.Commit(ctx))
}

func TestExportOrdering(t *testing.T) {
	ctx := context.Background()
	f := newTestFactory(t)
	w := begin(t, f, Write)
	require.Nil(t, w.PutDbFunction(ctx, "n", "d", &catalog.Function{Name: "greet", Block: "{ RETURN 1; }"}))
	require.Nil(t, w.PutTb(ctx, "n", "d", &catalog.Table{Name: "person", Type: catalog.TableNormal}))
	require.Nil(t, w.PutTbField(ctx, "n", "d", &catalog.Field{Name: "age", Table: "person"}))
	require.Nil(t, w.PutTbField(ctx, "n", "d", &catalog.Field{Name: "name", Table: "person"}))
	require.Nil(t, w.PutTbIndex(ctx, "n", "d", &catalog.Index{Name: "by_name", Table: "person", Cols: []string{"name"}}))
	for i := 1; i <= 3; i++ {
		require.Nil(t, w.PutRecord(ctx, "n", "d", &catalog.Record{
			ID:      catalog.Thing{TB: "person", ID: catalog.IntID(int64(i))},
			Content: map[string]interface{}{"name": fmt.Sprint("p", i)},
		}))
	}
	require.Nil(t, w.Commit(ctx))

	r := begin(t, f, Read)
	defer r.Cancel(ctx)
	ch := make(chan []byte, 1024)
	require.Nil(t, r.Export(ctx, "n", "d", ch))
	close(ch)
	var b strings.Builder
	for chunk := range ch {
		b.Write(chunk)
	}
	out := b.String()

	order := []string{
		"DEFINE FUNCTION fn::greet",
		"DEFINE TABLE person",
		"DEFINE FIELD age ON person",
		"DEFINE FIELD name ON person",
		"DEFINE INDEX by_name ON person",
		"BEGIN TRANSACTION;",
		"-- TABLE DATA: person",
		"UPDATE person:1 CONTENT",
		"UPDATE person:2 CONTENT",
		"UPDATE person:3 CONTENT",
		"COMMIT TRANSACTION;",
	}
	last := -1
	for _, s := range order {
		i := strings.Index(out, s)
		require.True(t, i > last, "%q out of order in\n%s", s, out)
		last = i
	}
	assert.Equal(t, 1, strings.Count(out, "BEGIN TRANSACTION;"))
}

func TestExportStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := newTestFactory(t)
	r := begin(t, f, Read)
	defer r.Cancel(context.Background())
	cancel()
	err := r.Export(ctx, "n", "d", make(chan []byte))
	assert.Equal(t, context.Canceled, err)
}
