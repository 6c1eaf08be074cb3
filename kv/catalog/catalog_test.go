package catalog

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip[T any](t *testing.T, v *T) {
	b, err := Encode(v)
	require.Nil(t, err)
	got, err := Decode[T](b)
	require.Nil(t, err)
	assert.Equal(t, v, got)
}

func TestRoundTrip(t *testing.T) {
	cf := &ChangefeedConfig{Expiry: time.Hour, StoreDiff: true}
	roundTrip(t, &Namespace{Name: "test", Comment: "a namespace"})
	roundTrip(t, &Database{Name: "test", Changefeed: cf})
	roundTrip(t, &Table{Name: "likes", Type: TableRelation, In: []string{"person"}, Out: []string{"post"}, Full: true, Changefeed: cf})
	roundTrip(t, &Field{Name: "age", Table: "person", Type: "int", Assert: "$value > 0", Readonly: true})
	roundTrip(t, &Index{Name: "by_email", Table: "person", Cols: []string{"email"}, Unique: true})
	roundTrip(t, &Event{Name: "audit", Table: "person", When: "$event = 'CREATE'", Then: []string{"CREATE log"}})
	roundTrip(t, &Function{Name: "greet", Args: []FunctionArg{{Name: "name", Type: "string"}}, Block: "{ RETURN $name; }"})
	roundTrip(t, &Param{Name: "limit", Value: "10"})
	roundTrip(t, &Analyzer{Name: "simple", Tokenizers: []string{"blank"}, Filters: []string{"lowercase"}})
	roundTrip(t, &User{Name: "root", Base: BaseRoot, Hash: "$argon2id$x", Roles: []string{"owner"}})
	roundTrip(t, &Access{Name: "api", Base: BaseDb, Type: AccessJwt, Algorithm: "HS512", Key: "secret", Duration: time.Hour})
	roundTrip(t, &LiveQuery{ID: uuid.New(), Node: uuid.New(), NS: "n", DB: "d", TB: "t", Expr: "SELECT * FROM t"})
	roundTrip(t, &Sequence{Name: "seq", Batch: 100, Start: -5})
	roundTrip(t, &Node{ID: uuid.New(), Heartbeat: 12345, Archived: true})
	roundTrip(t, &TaskLease{Owner: uuid.New(), Expiry: 99})
}

func TestRecordRoundTrip(t *testing.T) {
	rec := &Record{
		ID:      Thing{TB: "likes", ID: StringID("x")},
		Edge:    true,
		In:      &Thing{TB: "person", ID: IntID(1)},
		Out:     &Thing{TB: "post", ID: StringID("hello world")},
		Content: map[string]interface{}{"since": "2024", "nested": map[string]interface{}{"ok": true}},
	}
	b, err := Encode(rec)
	require.Nil(t, err)
	got, err := Decode[Record](b)
	require.Nil(t, err)
	assert.Equal(t, rec, got)
}

func TestIDString(t *testing.T) {
	assert.Equal(t, "42", IntID(42).String())
	assert.Equal(t, "tobie", StringID("tobie").String())
	assert.Equal(t, "⟨hello world⟩", StringID("hello world").String())
	assert.Equal(t, "⟨123⟩", StringID("123").String())
	assert.Equal(t, "person:tobie", Thing{TB: "person", ID: StringID("tobie")}.String())
}

func TestRecordStatement(t *testing.T) {
	rec := &Record{
		ID:      Thing{TB: "person", ID: IntID(1)},
		Content: map[string]interface{}{"name": "Tobie", "age": 30},
	}
	s, err := rec.Statement()
	require.Nil(t, err)
	assert.Equal(t, `UPDATE person:1 CONTENT {"age":30,"name":"Tobie"};`, s)

	edge := &Record{
		ID:      Thing{TB: "likes", ID: StringID("a")},
		Edge:    true,
		In:      &Thing{TB: "person", ID: IntID(1)},
		Out:     &Thing{TB: "post", ID: IntID(2)},
		Content: map[string]interface{}{},
	}
	s, err = edge.Statement()
	require.Nil(t, err)
	assert.Equal(t, `RELATE person:1 -> likes:a -> post:2 CONTENT {};`, s)

	// an edge flag without both ends is written as a plain record
	edge.Out = nil
	s, err = edge.Statement()
	require.Nil(t, err)
	assert.Equal(t, `UPDATE likes:a CONTENT {};`, s)
}

func TestDefineStatements(t *testing.T) {
	assert.Equal(t, `DEFINE NAMESPACE test COMMENT "main"`, (&Namespace{Name: "test", Comment: "main"}).String())
	assert.Equal(t, "DEFINE DATABASE test CHANGEFEED 1d INCLUDE ORIGINAL",
		(&Database{Name: "test", Changefeed: &ChangefeedConfig{Expiry: 24 * time.Hour, StoreDiff: true}}).String())
	assert.Equal(t, "DEFINE TABLE person TYPE NORMAL SCHEMAFULL CHANGEFEED 1h30m",
		(&Table{Name: "person", Type: TableNormal, Full: true, Changefeed: &ChangefeedConfig{Expiry: 90 * time.Minute}}).String())
	assert.Equal(t, "DEFINE TABLE likes TYPE RELATION IN person OUT post | comment SCHEMALESS",
		(&Table{Name: "likes", Type: TableRelation, In: []string{"person"}, Out: []string{"post", "comment"}}).String())
	assert.Equal(t, "DEFINE FIELD age ON person TYPE int ASSERT $value > 0",
		(&Field{Name: "age", Table: "person", Type: "int", Assert: "$value > 0"}).String())
	assert.Equal(t, "DEFINE INDEX by_email ON person FIELDS email, name UNIQUE",
		(&Index{Name: "by_email", Table: "person", Cols: []string{"email", "name"}, Unique: true}).String())
	assert.Equal(t, "DEFINE EVENT audit ON person WHEN true THEN (CREATE log), (UPDATE stats)",
		(&Event{Name: "audit", Table: "person", When: "true", Then: []string{"CREATE log", "UPDATE stats"}}).String())
	assert.Equal(t, "DEFINE FUNCTION fn::greet($name: string) -> string { RETURN $name; }",
		(&Function{Name: "greet", Args: []FunctionArg{{Name: "name", Type: "string"}}, Returns: "string", Block: "{ RETURN $name; }"}).String())
	assert.Equal(t, "DEFINE PARAM $limit VALUE 10", (&Param{Name: "limit", Value: "10"}).String())
	assert.Equal(t, `DEFINE USER root ON ROOT PASSHASH "h" ROLES OWNER`,
		(&User{Name: "root", Hash: "h", Roles: []string{"owner"}}).String())
	assert.Equal(t, `DEFINE ACCESS api ON DATABASE TYPE JWT ALGORITHM HS512 KEY "k" DURATION FOR SESSION 1h`,
		(&Access{Name: "api", Base: BaseDb, Algorithm: "HS512", Key: "k", Duration: time.Hour}).String())
	assert.Equal(t, "DEFINE ANALYZER simple TOKENIZERS blank,class FILTERS lowercase",
		(&Analyzer{Name: "simple", Tokenizers: []string{"blank", "class"}, Filters: []string{"lowercase"}}).String())
	assert.Equal(t, "DEFINE SEQUENCE seq BATCH 100 START 1", (&Sequence{Name: "seq", Batch: 100, Start: 1}).String())
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0s", FormatDuration(0))
	assert.Equal(t, "1w1d", FormatDuration(8*24*time.Hour))
	assert.Equal(t, "2m5s", FormatDuration(125*time.Second))
	assert.Equal(t, "1s500ms", FormatDuration(1500*time.Millisecond))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "namespace", KindNamespace.String())
	assert.Equal(t, "access method", KindAccess.String())
	assert.Equal(t, "unknown", Kind(200).String())
	assert.Equal(t, KindTable, Tables{}.Kind())
}
