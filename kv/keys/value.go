package keys

import (
	"math"

	"github.com/jgraettinger/cockroach-encoding/encoding"
	"github.com/pingcap/errors"

	"github.com/pingcap-incubator/tinydb/kv/catalog"
)

// Type tags keep values of different types apart and ordered by type first.
const (
	tagNull byte = iota
	tagFalse
	tagTrue
	tagInt
	tagFloat
	tagString
	tagOther
)

// AppendID appends the order preserving encoding of a record id. Integer ids sort before string ids.
func AppendID(b []byte, id catalog.ID) []byte {
	if id.IsInt() {
		return encoding.EncodeVarintAscending(append(b, tagInt), id.Int())
	}
	return encoding.EncodeStringAscending(append(b, tagString), id.Str())
}

// DecodeID decodes an id written by AppendID, returning the leftover bytes.
func DecodeID(b []byte) ([]byte, catalog.ID, error) {
	if len(b) == 0 {
		return nil, catalog.ID{}, errors.WithStack(ErrInvalidKey)
	}
	switch b[0] {
	case tagInt:
		rest, v, err := encoding.DecodeVarintAscending(b[1:])
		if err != nil {
			return nil, catalog.ID{}, errors.Trace(err)
		}
		return rest, catalog.IntID(v), nil
	case tagString:
		rest, v, err := encoding.DecodeBytesAscending(b[1:], nil)
		if err != nil {
			return nil, catalog.ID{}, errors.Trace(err)
		}
		return rest, catalog.StringID(string(v)), nil
	}
	return nil, catalog.ID{}, errors.Annotatef(ErrInvalidKey, "unknown id tag %d", b[0])
}

// AppendValue appends the order preserving encoding of an indexed value. Values are grouped by type, nulls first.
// Composite values are encoded as CBOR, their order is stable but not meaningful.
func AppendValue(b []byte, v interface{}) ([]byte, error) {
	switch x := v.(type) {
	case nil:
		return append(b, tagNull), nil
	case bool:
		if x {
			return append(b, tagTrue), nil
		}
		return append(b, tagFalse), nil
	case int:
		return encoding.EncodeVarintAscending(append(b, tagInt), int64(x)), nil
	case int32:
		return encoding.EncodeVarintAscending(append(b, tagInt), int64(x)), nil
	case int64:
		return encoding.EncodeVarintAscending(append(b, tagInt), x), nil
	case uint64:
		if x > math.MaxInt64 {
			return encoding.EncodeFloatAscending(append(b, tagFloat), float64(x)), nil
		}
		return encoding.EncodeVarintAscending(append(b, tagInt), int64(x)), nil
	case float64:
		return encoding.EncodeFloatAscending(append(b, tagFloat), x), nil
	case string:
		return encoding.EncodeStringAscending(append(b, tagString), x), nil
	}
	raw, err := catalog.Encode(v)
	if err != nil {
		return nil, err
	}
	return encoding.EncodeBytesAscending(append(b, tagOther), raw), nil
}

func appendUint64(b []byte, v uint64) []byte {
	return encoding.EncodeUint64Ascending(b, v)
}

func (d *decoder) uint64() uint64 {
	if d.err != nil {
		return 0
	}
	rest, v, err := encoding.DecodeUint64Ascending(d.b)
	if err != nil {
		d.err = errors.Annotate(ErrInvalidKey, err.Error())
		return 0
	}
	d.b = rest
	return v
}

func (d *decoder) id() catalog.ID {
	if d.err != nil {
		return catalog.ID{}
	}
	rest, id, err := DecodeID(d.b)
	if err != nil {
		d.err = err
		return catalog.ID{}
	}
	d.b = rest
	return id
}
