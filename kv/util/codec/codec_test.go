package codec

import (
	"bytes"
	"testing"

	"github.com/pingcap/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeBytes(t *testing.T) {
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 0, 247}, EncodeBytes([]byte{}))
	assert.Equal(t, []byte{1, 2, 3, 0, 0, 0, 0, 0, 250}, EncodeBytes([]byte{1, 2, 3}))
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8, 255, 0, 0, 0, 0, 0, 0, 0, 0, 247},
		EncodeBytes([]byte{1, 2, 3, 4, 5, 6, 7, 8}))
}

func TestStringRoundTripAndOrder(t *testing.T) {
	words := []string{"", "a", "a\x00", "ab", "abcdefgh", "abcdefghi", "b"}
	var prev []byte
	for _, w := range words {
		enc := AppendString(nil, w)
		rest, got, err := DecodeString(append(enc, 0xAA))
		require.Nil(t, err)
		assert.Equal(t, w, got)
		assert.Equal(t, []byte{0xAA}, rest)
		if prev != nil {
			assert.True(t, bytes.Compare(prev, enc) < 0, "%q should sort before %q", prev, enc)
		}
		prev = enc
	}
}

func TestDecodeBytesRejectsGarbage(t *testing.T) {
	_, _, err := DecodeBytes([]byte{1, 2})
	assert.NotNil(t, err)
	_, _, err = DecodeBytes([]byte{1, 2, 3, 0, 0, 0, 0, 0, 200})
	assert.Equal(t, ErrInvalidEncoding, errors.Cause(err))
	// padding must be zero
	_, _, err = DecodeBytes([]byte{1, 2, 3, 0, 0, 0, 0, 9, 250})
	assert.Equal(t, ErrInvalidEncoding, errors.Cause(err))
}

func TestAppendBytesKeepsPrefix(t *testing.T) {
	prefix := []byte("/!ns")
	enc := AppendBytes(prefix, []byte("test"))
	assert.Equal(t, len(prefix)+EncodedLen(4), len(enc))
	assert.True(t, bytes.HasPrefix(enc, []byte("/!ns")))
	assert.Equal(t, []byte("/!ns"), prefix)
}
