// Package changefeed records the mutations of tables and databases which have a change feed enabled.
//
// Mutations are buffered per table while a transaction runs and written at commit, one entry per table under a
// versionstamp shared by every table of the database the transaction touched.
package changefeed

import (
	"github.com/pingcap-incubator/tinydb/kv/catalog"
	"github.com/pingcap-incubator/tinydb/kv/clock"
)

type MutationType uint8

const (
	// MutationSet creates or replaces a record.
	MutationSet MutationType = iota + 1
	// MutationSetWithOriginal replaces a record and keeps its previous value.
	MutationSetWithOriginal
	MutationDel
	// MutationDelWithOriginal deletes a record and keeps its previous value.
	MutationDelWithOriginal
	// MutationDef redefines the table.
	MutationDef
)

func (t MutationType) String() string {
	switch t {
	case MutationSet:
		return "set"
	case MutationSetWithOriginal:
		return "set with original"
	case MutationDel:
		return "delete"
	case MutationDelWithOriginal:
		return "delete with original"
	case MutationDef:
		return "define table"
	}
	return "unknown"
}

type TableMutation struct {
	Type     MutationType           `cbor:"type"`
	ID       catalog.Thing          `cbor:"id"`
	Current  map[string]interface{} `cbor:"current,omitempty"`
	Previous map[string]interface{} `cbor:"previous,omitempty"`
	Def      *catalog.Table         `cbor:"def,omitempty"`
}

// TableMutations are the mutations of one table made by one transaction, in the order they were made.
type TableMutations struct {
	Table     string          `cbor:"table"`
	Mutations []TableMutation `cbor:"mutations"`
}

// ChangeSet groups the mutations recorded under one versionstamp.
type ChangeSet struct {
	Versionstamp clock.Versionstamp
	Tables       []TableMutations
}
