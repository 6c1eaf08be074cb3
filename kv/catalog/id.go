package catalog

import (
	"strconv"

	"github.com/fxamacker/cbor/v2"
	"github.com/pingcap/errors"
)

// ID identifies a record within its table. It is either an integer or a string.
type ID struct {
	num   int64
	str   string
	isNum bool
}

func IntID(n int64) ID {
	return ID{num: n, isNum: true}
}

func StringID(s string) ID {
	return ID{str: s}
}

func (id ID) IsInt() bool { return id.isNum }

func (id ID) Int() int64 { return id.num }

func (id ID) Str() string { return id.str }

// String renders the id as it appears after "table:".
func (id ID) String() string {
	if id.isNum {
		return strconv.FormatInt(id.num, 10)
	}
	if isPlainIdent(id.str) {
		return id.str
	}
	return "⟨" + id.str + "⟩"
}

func isPlainIdent(s string) bool {
	if s == "" {
		return false
	}
	digits := true
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			digits = false
		default:
			return false
		}
	}
	// an all-digit string would read back as a number
	return !digits
}

func (id ID) MarshalCBOR() ([]byte, error) {
	if id.isNum {
		return cbor.Marshal(id.num)
	}
	return cbor.Marshal(id.str)
}

func (id *ID) UnmarshalCBOR(data []byte) error {
	var v interface{}
	if err := cbor.Unmarshal(data, &v); err != nil {
		return errors.Trace(err)
	}
	switch x := v.(type) {
	case uint64:
		*id = IntID(int64(x))
	case int64:
		*id = IntID(x)
	case string:
		*id = StringID(x)
	default:
		return errors.Errorf("invalid record id of type %T", v)
	}
	return nil
}

// Thing is a table and record id pair, rendered as "table:id".
type Thing struct {
	TB string `cbor:"tb"`
	ID ID     `cbor:"id"`
}

func (t Thing) String() string {
	return t.TB + ":" + t.ID.String()
}
