// Package keys lays out every row of the datastore in one ordered keyspace.
//
// Keys are built from a root byte, scope separators and memcomparable name segments:
//
//	/!v                          storage version
//	/!nd{node}                   cluster node
//	/${node}!lq{lq}              live query registered by a node
//	/!tl{task}                   task lease
//	/!us{user} /!ac{access}      root users and access methods
//	/!ns{ns}                     namespace definition
//	/*{ns}!us /*{ns}!ac /*{ns}!db
//	/*{ns}*{db}!fn !pa !tb !az !us !ac !sq !vs !ts{ts}
//	/*{ns}*{db}#{vs}*{tb}        change feed entry
//	/*{ns}*{db}*{tb}!fd !ix !ev !lq
//	/*{ns}*{db}*{tb}*{id}        record
//	/*{ns}*{db}*{tb}+{ix}{vals}  index entry
//
// Name segments never prefix one another, so the prefix of a scope bounds exactly the rows of that scope and
// [prefix, Suffix(prefix)) is the range to scan for them.
package keys

import (
	"github.com/google/uuid"
	"github.com/pingcap/errors"

	"github.com/pingcap-incubator/tinydb/kv/util/codec"
	"github.com/pingcap-incubator/tinydb/kv/util/engine_util"
)

const (
	rootByte   = '/'
	scopeByte  = '*'
	markerByte = '!'
	nodeByte   = '$'
	changeByte = '#'
	indexByte  = '+'
)

var ErrInvalidKey = errors.New("invalid key")

// Suffix is the exclusive upper bound of every key starting with prefix.
func Suffix(prefix []byte) []byte {
	return engine_util.PrefixEnd(prefix)
}

// Range returns the bounds of the scope starting with prefix.
func Range(prefix []byte) (beg, end []byte) {
	return prefix, Suffix(prefix)
}

func marker(b []byte, m string) []byte {
	b = append(b, markerByte)
	return append(b, m...)
}

func appendName(b []byte, name string) []byte {
	return codec.AppendString(b, name)
}

func rootMarker(m string) []byte {
	return marker([]byte{rootByte}, m)
}

// Version is the single key holding the storage format version.
func Version() []byte {
	return rootMarker("v")
}

func NodePrefix() []byte {
	return rootMarker("nd")
}

func Node(id uuid.UUID) []byte {
	return append(NodePrefix(), id[:]...)
}

func DecodeNode(key []byte) (uuid.UUID, error) {
	d := decoder{b: key}
	d.expect(rootByte)
	d.expectMarker("nd")
	id := d.uuid()
	return id, d.finish(key)
}

// NodeLivePrefix bounds the live queries registered by node.
func NodeLivePrefix(node uuid.UUID) []byte {
	b := append([]byte{rootByte, nodeByte}, node[:]...)
	return marker(b, "lq")
}

func NodeLive(node, lq uuid.UUID) []byte {
	return append(NodeLivePrefix(node), lq[:]...)
}

func DecodeNodeLive(key []byte) (node, lq uuid.UUID, err error) {
	d := decoder{b: key}
	d.expect(rootByte)
	d.expect(nodeByte)
	node = d.uuid()
	d.expectMarker("lq")
	lq = d.uuid()
	return node, lq, d.finish(key)
}

func TaskLease(task string) []byte {
	return appendName(rootMarker("tl"), task)
}

func RootUserPrefix() []byte {
	return rootMarker("us")
}

func RootUser(name string) []byte {
	return appendName(RootUserPrefix(), name)
}

func RootAccessPrefix() []byte {
	return rootMarker("ac")
}

func RootAccess(name string) []byte {
	return appendName(RootAccessPrefix(), name)
}

func NamespaceDefPrefix() []byte {
	return rootMarker("ns")
}

func NamespaceDef(ns string) []byte {
	return appendName(NamespaceDefPrefix(), ns)
}

type decoder struct {
	b   []byte
	err error
}

func (d *decoder) fail() {
	if d.err == nil {
		d.err = errors.WithStack(ErrInvalidKey)
	}
}

func (d *decoder) expect(c byte) {
	if d.err != nil {
		return
	}
	if len(d.b) == 0 || d.b[0] != c {
		d.fail()
		return
	}
	d.b = d.b[1:]
}

func (d *decoder) expectMarker(m string) {
	d.expect(markerByte)
	for i := 0; i < len(m); i++ {
		d.expect(m[i])
	}
}

func (d *decoder) name() string {
	if d.err != nil {
		return ""
	}
	rest, s, err := codec.DecodeString(d.b)
	if err != nil {
		d.err = errors.Annotate(ErrInvalidKey, err.Error())
		return ""
	}
	d.b = rest
	return s
}

func (d *decoder) raw(n int) []byte {
	if d.err != nil {
		return nil
	}
	if len(d.b) < n {
		d.fail()
		return nil
	}
	v := d.b[:n]
	d.b = d.b[n:]
	return v
}

func (d *decoder) uuid() uuid.UUID {
	var id uuid.UUID
	copy(id[:], d.raw(len(id)))
	return id
}

// finish reports the first error, or an error when bytes are left over.
func (d *decoder) finish(key []byte) error {
	if d.err == nil && len(d.b) != 0 {
		d.fail()
	}
	if d.err != nil {
		return errors.Annotatef(d.err, "key %q", key)
	}
	return nil
}
