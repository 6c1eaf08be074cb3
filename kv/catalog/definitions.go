package catalog

import (
	"time"

	"github.com/google/uuid"

	"github.com/pingcap-incubator/tinydb/kv/clock"
)

// ChangefeedConfig enables a change feed on a database or table.
type ChangefeedConfig struct {
	// Entries older than Expiry are garbage collected.
	Expiry time.Duration `cbor:"expiry"`
	// StoreDiff keeps the previous value of changed records.
	StoreDiff bool `cbor:"store_diff"`
}

type Namespace struct {
	Name    string `cbor:"name"`
	Comment string `cbor:"comment,omitempty"`
}

type Database struct {
	Name       string            `cbor:"name"`
	Comment    string            `cbor:"comment,omitempty"`
	Changefeed *ChangefeedConfig `cbor:"changefeed,omitempty"`
}

type TableType uint8

const (
	TableAny TableType = iota
	TableNormal
	TableRelation
)

type Table struct {
	Name string    `cbor:"name"`
	Type TableType `cbor:"type"`
	// In and Out restrict the tables a relation table connects.
	In         []string          `cbor:"in,omitempty"`
	Out        []string          `cbor:"out,omitempty"`
	Drop       bool              `cbor:"drop,omitempty"`
	Full       bool              `cbor:"full,omitempty"`
	Changefeed *ChangefeedConfig `cbor:"changefeed,omitempty"`
	Comment    string            `cbor:"comment,omitempty"`
}

// NewTable is the definition a table gets when it is created implicitly.
func NewTable(name string) *Table {
	return &Table{Name: name, Type: TableAny}
}

type Field struct {
	Name     string `cbor:"name"`
	Table    string `cbor:"table"`
	Type     string `cbor:"type,omitempty"`
	Default  string `cbor:"default,omitempty"`
	Value    string `cbor:"value,omitempty"`
	Assert   string `cbor:"assert,omitempty"`
	Readonly bool   `cbor:"readonly,omitempty"`
	Comment  string `cbor:"comment,omitempty"`
}

type Index struct {
	Name    string   `cbor:"name"`
	Table   string   `cbor:"table"`
	Cols    []string `cbor:"cols"`
	Unique  bool     `cbor:"unique,omitempty"`
	Comment string   `cbor:"comment,omitempty"`
}

type Event struct {
	Name    string   `cbor:"name"`
	Table   string   `cbor:"table"`
	When    string   `cbor:"when"`
	Then    []string `cbor:"then"`
	Comment string   `cbor:"comment,omitempty"`
}

type FunctionArg struct {
	Name string `cbor:"name"`
	Type string `cbor:"type"`
}

type Function struct {
	Name    string        `cbor:"name"`
	Args    []FunctionArg `cbor:"args,omitempty"`
	Block   string        `cbor:"block"`
	Returns string        `cbor:"returns,omitempty"`
	Comment string        `cbor:"comment,omitempty"`
}

type Param struct {
	Name    string `cbor:"name"`
	Value   string `cbor:"value"`
	Comment string `cbor:"comment,omitempty"`
}

type Analyzer struct {
	Name       string   `cbor:"name"`
	Function   string   `cbor:"function,omitempty"`
	Tokenizers []string `cbor:"tokenizers,omitempty"`
	Filters    []string `cbor:"filters,omitempty"`
	Comment    string   `cbor:"comment,omitempty"`
}

// Base is the level a user or access method is defined on.
type Base uint8

const (
	BaseRoot Base = iota
	BaseNs
	BaseDb
)

func (b Base) String() string {
	switch b {
	case BaseNs:
		return "NAMESPACE"
	case BaseDb:
		return "DATABASE"
	}
	return "ROOT"
}

type User struct {
	Name     string        `cbor:"name"`
	Base     Base          `cbor:"base"`
	Hash     string        `cbor:"hash"`
	Roles    []string      `cbor:"roles,omitempty"`
	Duration time.Duration `cbor:"duration,omitempty"`
	Comment  string        `cbor:"comment,omitempty"`
}

type AccessType uint8

const (
	AccessJwt AccessType = iota
	AccessRecord
)

type Access struct {
	Name      string        `cbor:"name"`
	Base      Base          `cbor:"base"`
	Type      AccessType    `cbor:"type"`
	Algorithm string        `cbor:"algorithm,omitempty"`
	Key       string        `cbor:"key,omitempty"`
	Signup    string        `cbor:"signup,omitempty"`
	Signin    string        `cbor:"signin,omitempty"`
	Duration  time.Duration `cbor:"duration,omitempty"`
	Comment   string        `cbor:"comment,omitempty"`
}

type LiveQuery struct {
	ID   uuid.UUID `cbor:"id"`
	Node uuid.UUID `cbor:"node"`
	NS   string    `cbor:"ns"`
	DB   string    `cbor:"db"`
	TB   string    `cbor:"tb"`
	Expr string    `cbor:"expr,omitempty"`
}

type Sequence struct {
	Name  string `cbor:"name"`
	Batch uint32 `cbor:"batch"`
	Start int64  `cbor:"start"`
}

// Node is a member of the cluster sharing the storage.
type Node struct {
	ID        uuid.UUID       `cbor:"id"`
	Heartbeat clock.Timestamp `cbor:"heartbeat"`
	Archived  bool            `cbor:"archived,omitempty"`
}

// IsActive reports whether the node is not archived.
func (n *Node) IsActive() bool {
	return !n.Archived
}

// Archive returns a copy of the node marked archived.
func (n *Node) Archive() *Node {
	return &Node{ID: n.ID, Heartbeat: n.Heartbeat, Archived: true}
}

// TaskLease grants one node the right to run a background task until Expiry.
type TaskLease struct {
	Owner  uuid.UUID       `cbor:"owner"`
	Expiry clock.Timestamp `cbor:"expiry"`
}

func (*Namespace) Kind() Kind { return KindNamespace }
func (*Database) Kind() Kind  { return KindDatabase }
func (*Table) Kind() Kind     { return KindTable }
func (*Field) Kind() Kind     { return KindField }
func (*Index) Kind() Kind     { return KindIndex }
func (*Event) Kind() Kind     { return KindEvent }
func (*Function) Kind() Kind  { return KindFunction }
func (*Param) Kind() Kind     { return KindParam }
func (*Analyzer) Kind() Kind  { return KindAnalyzer }
func (*User) Kind() Kind      { return KindUser }
func (*Access) Kind() Kind    { return KindAccess }
func (*LiveQuery) Kind() Kind { return KindLiveQuery }
func (*Sequence) Kind() Kind  { return KindSequence }
func (*Node) Kind() Kind      { return KindNode }

// Collections cached for the all_* accessors.
type (
	Namespaces  []*Namespace
	Databases   []*Database
	Tables      []*Table
	Fields      []*Field
	Indexes     []*Index
	Events      []*Event
	Functions   []*Function
	Params      []*Param
	Analyzers   []*Analyzer
	Users       []*User
	Accesses    []*Access
	LiveQueries []*LiveQuery
	Sequences   []*Sequence
	Nodes       []*Node
)

func (Namespaces) Kind() Kind  { return KindNamespace }
func (Databases) Kind() Kind   { return KindDatabase }
func (Tables) Kind() Kind      { return KindTable }
func (Fields) Kind() Kind      { return KindField }
func (Indexes) Kind() Kind     { return KindIndex }
func (Events) Kind() Kind      { return KindEvent }
func (Functions) Kind() Kind   { return KindFunction }
func (Params) Kind() Kind      { return KindParam }
func (Analyzers) Kind() Kind   { return KindAnalyzer }
func (Users) Kind() Kind       { return KindUser }
func (Accesses) Kind() Kind    { return KindAccess }
func (LiveQueries) Kind() Kind { return KindLiveQuery }
func (Sequences) Kind() Kind   { return KindSequence }
func (Nodes) Kind() Kind       { return KindNode }
