package catalog

import (
	"github.com/goccy/go-json"
	"github.com/pingcap/errors"
)

// Record is a row of a table. Records of relation tables are edges and carry the records they connect.
type Record struct {
	ID      Thing                  `cbor:"id"`
	Edge    bool                   `cbor:"edge,omitempty"`
	In      *Thing                 `cbor:"in,omitempty"`
	Out     *Thing                 `cbor:"out,omitempty"`
	Content map[string]interface{} `cbor:"content"`
}

func (*Record) Kind() Kind { return KindRecord }

// IsEdge reports whether the record connects two records.
func (r *Record) IsEdge() bool {
	return r.Edge && r.In != nil && r.Out != nil
}

// Statement renders the statement recreating the record: RELATE for edges, UPDATE otherwise.
func (r *Record) Statement() (string, error) {
	content, err := json.Marshal(r.Content)
	if err != nil {
		return "", errors.Annotatef(err, "render record %s", r.ID)
	}
	if r.IsEdge() {
		return "RELATE " + r.In.String() + " -> " + r.ID.String() + " -> " + r.Out.String() +
			" CONTENT " + string(content) + ";", nil
	}
	return "UPDATE " + r.ID.String() + " CONTENT " + string(content) + ";", nil
}
