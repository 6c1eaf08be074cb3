package catalog

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/pingcap/errors"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	if encMode, err = cbor.CoreDetEncOptions().EncMode(); err != nil {
		panic(err)
	}
	decOpts := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]interface{}(nil)),
	}
	if decMode, err = decOpts.DecMode(); err != nil {
		panic(err)
	}
}

// Encode serializes a catalog object for storage. Encoding is deterministic.
func Encode(v interface{}) ([]byte, error) {
	b, err := encMode.Marshal(v)
	return b, errors.Annotatef(err, "encode %T", v)
}

// Decode deserializes a stored catalog object.
func Decode[T any](b []byte) (*T, error) {
	v := new(T)
	if err := decMode.Unmarshal(b, v); err != nil {
		return nil, errors.Annotatef(err, "decode %T", v)
	}
	return v, nil
}
