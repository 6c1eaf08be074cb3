package keys

import (
	"bytes"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pingcap-incubator/tinydb/kv/catalog"
	"github.com/pingcap-incubator/tinydb/kv/clock"
)

func within(key, prefix []byte) bool {
	beg, end := Range(prefix)
	return bytes.Compare(key, beg) >= 0 && (end == nil || bytes.Compare(key, end) < 0)
}

func TestScopeContainment(t *testing.T) {
	// "test" and "test2" share a byte prefix, their scopes must not overlap
	tb := TbPrefix("test", "test", "person")
	assert.True(t, within(Field("test", "test", "person", "age"), tb))
	assert.True(t, within(Record("test", "test", "person", catalog.IntID(1)), tb))
	assert.True(t, within(Record("test", "test", "person", catalog.IntID(1)), RecordPrefix("test", "test", "person")))
	assert.False(t, within(Record("test", "test", "person2", catalog.IntID(1)), tb))
	assert.False(t, within(Field("test", "test", "person", "age"), RecordPrefix("test", "test", "person")))

	assert.True(t, within(tb, DbPrefix("test", "test")))
	assert.False(t, within(tb, DbPrefix("test", "test2")))
	assert.False(t, within(DbPrefix("test2", "test"), NsPrefix("test")))
	assert.True(t, within(Change("test", "test", clock.VersionstampFromUint64(1), "person"), DbPrefix("test", "test")))
	assert.False(t, within(Change("test", "test", clock.VersionstampFromUint64(1), "person"), tb))

	assert.True(t, within(TableDef("test", "test", "person"), TableDefPrefix("test", "test")))
	assert.False(t, within(Function("test", "test", "person"), TableDefPrefix("test", "test")))
	assert.True(t, within(DatabaseDef("test", "test"), DatabaseDefPrefix("test")))
	assert.True(t, within(NamespaceDef("test"), NamespaceDefPrefix()))
	assert.False(t, within(NsUser("test", "root"), RootUserPrefix()))
	assert.False(t, within(Version(), NodePrefix()))
}

func TestFieldsOfSimilarTables(t *testing.T) {
	// names containing the separators or zero bytes stay inside their own scope
	names := []string{"a", "a!", "a*", "a\x00", "ab", "a\xff"}
	for _, x := range names {
		for _, y := range names {
			in := within(Field("n", "d", y, "f"), FieldPrefix("n", "d", x))
			assert.Equal(t, x == y, in, "%q in %q", y, x)
		}
	}
}

func TestRecordOrder(t *testing.T) {
	ids := []catalog.ID{
		catalog.StringID("b"),
		catalog.IntID(10),
		catalog.StringID("a"),
		catalog.IntID(-3),
		catalog.IntID(2),
		catalog.StringID("a\x00"),
	}
	keys := make([][]byte, len(ids))
	for i, id := range ids {
		keys[i] = Record("n", "d", "t", id)
	}
	sort.Slice(keys, func(i, j int) bool { return bytes.Compare(keys[i], keys[j]) < 0 })
	var got []string
	for _, k := range keys {
		th, err := DecodeRecord(k)
		require.Nil(t, err)
		assert.Equal(t, "t", th.TB)
		got = append(got, th.ID.String())
	}
	assert.Equal(t, []string{"-3", "2", "10", "a", "⟨a\x00⟩", "b"}, got)
}

func TestTimestampKeys(t *testing.T) {
	k1 := Timestamp("n", "d", 5)
	k2 := Timestamp("n", "d", 1000)
	assert.True(t, bytes.Compare(k1, k2) < 0)
	assert.True(t, within(k1, TimestampPrefix("n", "d")))
	ts, err := DecodeTimestamp(k2)
	require.Nil(t, err)
	assert.Equal(t, clock.Timestamp(1000), ts)
}

func TestChangeKeys(t *testing.T) {
	vs := clock.VersionstampFromUint64(7)
	key := Change("n", "d", vs, "person")
	got, tb, err := DecodeChange(key)
	require.Nil(t, err)
	assert.Equal(t, vs, got)
	assert.Equal(t, "person", tb)

	// everything older than vs sorts before ChangeAt(vs)
	older := Change("n", "d", clock.VersionstampFromUint64(6), "zzz")
	assert.True(t, bytes.Compare(older, ChangeAt("n", "d", vs)) < 0)
	assert.True(t, bytes.Compare(key, ChangeAt("n", "d", vs)) > 0)

	_, _, err = DecodeChange(Record("n", "d", "person", catalog.IntID(1)))
	assert.NotNil(t, err)
}

func TestNodeKeys(t *testing.T) {
	nd, lq := uuid.New(), uuid.New()
	got, err := DecodeNode(Node(nd))
	require.Nil(t, err)
	assert.Equal(t, nd, got)

	gotNd, gotLq, err := DecodeNodeLive(NodeLive(nd, lq))
	require.Nil(t, err)
	assert.Equal(t, nd, gotNd)
	assert.Equal(t, lq, gotLq)
	assert.True(t, within(NodeLive(nd, lq), NodeLivePrefix(nd)))

	_, err = DecodeNode(append(Node(nd), 0))
	assert.NotNil(t, err)
}

func TestIndexEntries(t *testing.T) {
	a, err := AppendValue(nil, "alice")
	require.Nil(t, err)
	b, err := AppendValue(nil, "bob")
	require.Nil(t, err)
	id := catalog.IntID(1)
	ka := IndexEntry("n", "d", "t", "email", a, &id)
	kb := IndexEntry("n", "d", "t", "email", b, nil)
	assert.True(t, bytes.Compare(ka, kb) < 0)
	assert.True(t, within(ka, IndexPrefix("n", "d", "t", "email")))
	assert.False(t, within(ka, RecordPrefix("n", "d", "t")))

	lo, _ := AppendValue(nil, int64(-1))
	hi, _ := AppendValue(nil, uint64(3))
	nul, _ := AppendValue(nil, nil)
	assert.True(t, bytes.Compare(lo, hi) < 0)
	assert.True(t, bytes.Compare(nul, lo) < 0)
	_, err = AppendValue(nil, map[string]interface{}{"a": 1})
	assert.Nil(t, err)
}
