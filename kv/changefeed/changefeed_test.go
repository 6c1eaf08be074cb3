package changefeed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pingcap-incubator/tinydb/kv/catalog"
)

func TestWriterBuffersPerTable(t *testing.T) {
	w := NewWriter()
	a := catalog.Thing{TB: "person", ID: catalog.StringID("a")}
	b := catalog.Thing{TB: "post", ID: catalog.IntID(1)}

	w.BufferRecordChange("n", "d", "person", a, nil, map[string]interface{}{"v": "1"}, false)
	w.BufferRecordChange("n", "d", "post", b, nil, map[string]interface{}{"v": "x"}, false)
	w.BufferRecordChange("n", "d", "person", a, map[string]interface{}{"v": "1"}, map[string]interface{}{"v": "2"}, true)
	w.BufferRecordChange("n", "d", "person", a, map[string]interface{}{"v": "2"}, nil, true)
	w.BufferTableChange("n", "d", "person", &catalog.Table{Name: "person"})
	assert.Equal(t, 5, w.Len())

	writes, err := w.Changes()
	require.Nil(t, err)
	require.Len(t, writes, 2)
	assert.Equal(t, "person", writes[0].TB)
	assert.Equal(t, "post", writes[1].TB)

	muts, err := Decode(writes[0].Value)
	require.Nil(t, err)
	assert.Equal(t, "person", muts.Table)
	require.Len(t, muts.Mutations, 4)
	assert.Equal(t, MutationSet, muts.Mutations[0].Type)
	assert.Equal(t, a, muts.Mutations[0].ID)
	assert.Equal(t, MutationSetWithOriginal, muts.Mutations[1].Type)
	assert.Equal(t, "1", muts.Mutations[1].Previous["v"])
	assert.Equal(t, MutationDelWithOriginal, muts.Mutations[2].Type)
	assert.Nil(t, muts.Mutations[2].Current)
	assert.Equal(t, MutationDef, muts.Mutations[3].Type)
	assert.Equal(t, "person", muts.Mutations[3].Def.Name)

	w.Reset()
	assert.Equal(t, 0, w.Len())
	writes, err = w.Changes()
	require.Nil(t, err)
	assert.Empty(t, writes)
}

func TestDeleteWithoutOriginal(t *testing.T) {
	w := NewWriter()
	id := catalog.Thing{TB: "t", ID: catalog.IntID(9)}
	w.BufferRecordChange("n", "d", "t", id, map[string]interface{}{"a": true}, nil, false)
	writes, err := w.Changes()
	require.Nil(t, err)
	muts, err := Decode(writes[0].Value)
	require.Nil(t, err)
	assert.Equal(t, MutationDel, muts.Mutations[0].Type)
	assert.Nil(t, muts.Mutations[0].Previous)
	assert.Equal(t, "delete", MutationDel.String())
}
