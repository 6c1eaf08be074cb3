package clock

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"

	"github.com/pingcap/errors"
)

// VersionstampSize is the length of an encoded versionstamp: an 8 byte big endian counter and 2 bytes of user order.
const VersionstampSize = 10

// Versionstamp orders change-feed entries. Byte order equals the order of the counters.
type Versionstamp [VersionstampSize]byte

func VersionstampFromUint64(v uint64) Versionstamp {
	var vs Versionstamp
	binary.BigEndian.PutUint64(vs[:8], v)
	return vs
}

func VersionstampFromBytes(b []byte) (Versionstamp, error) {
	var vs Versionstamp
	if len(b) != VersionstampSize {
		return vs, errors.Errorf("invalid versionstamp length %d", len(b))
	}
	copy(vs[:], b)
	return vs, nil
}

func (vs Versionstamp) Uint64() uint64 {
	return binary.BigEndian.Uint64(vs[:8])
}

func (vs Versionstamp) Next() Versionstamp {
	return VersionstampFromUint64(vs.Uint64() + 1)
}

func (vs Versionstamp) Compare(other Versionstamp) int {
	return bytes.Compare(vs[:], other[:])
}

func (vs Versionstamp) String() string {
	return hex.EncodeToString(vs[:])
}
