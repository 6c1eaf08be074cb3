// Package catalog defines the schema objects a datastore stores: namespaces, databases, tables and everything
// defined on them. Every object encodes to CBOR for storage and renders as the statement that defines it.
package catalog

// Kind enumerates the catalog objects.
type Kind uint8

const (
	KindNamespace Kind = iota + 1
	KindDatabase
	KindTable
	KindField
	KindIndex
	KindEvent
	KindFunction
	KindParam
	KindAnalyzer
	KindUser
	KindAccess
	KindLiveQuery
	KindSequence
	KindNode
	KindRecord
)

var kindNames = map[Kind]string{
	KindNamespace: "namespace",
	KindDatabase:  "database",
	KindTable:     "table",
	KindField:     "field",
	KindIndex:     "index",
	KindEvent:     "event",
	KindFunction:  "function",
	KindParam:     "param",
	KindAnalyzer:  "analyzer",
	KindUser:      "user",
	KindAccess:    "access method",
	KindLiveQuery: "live query",
	KindSequence:  "sequence",
	KindNode:      "node",
	KindRecord:    "record",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Definition is a decoded catalog object, or a collection of them. Definitions handed out by a cache are shared and
// must not be modified.
type Definition interface {
	Kind() Kind
}
