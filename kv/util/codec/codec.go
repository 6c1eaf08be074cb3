// Package codec holds the memcomparable encoding used for names inside keys.
//
// Data is cut into groups of 8 bytes. The last group is padded with zeros and every group is followed by a marker
// byte, 0xFF minus the number of padding bytes. An empty input still produces one all padding group:
//
//	[]                       -> [0 0 0 0 0 0 0 0 247]
//	[1 2 3]                  -> [1 2 3 0 0 0 0 0 250]
//	[1 2 3 4 5 6 7 8]        -> [1 2 3 4 5 6 7 8 255 0 0 0 0 0 0 0 0 247]
//
// Encoded values sort like their inputs and none is a prefix of another, so a key can continue after one.
package codec

import (
	"github.com/pingcap/errors"
)

const (
	groupSize = 8
	maxMarker = byte(0xFF)
)

var ErrInvalidEncoding = errors.New("invalid memcomparable encoding")

// EncodedLen is the length of the encoding of n bytes.
func EncodedLen(n int) int {
	return (n/groupSize + 1) * (groupSize + 1)
}

// AppendBytes appends the encoding of data to b.
func AppendBytes(b, data []byte) []byte {
	if need := len(b) + EncodedLen(len(data)); cap(b) < need {
		grown := make([]byte, len(b), need)
		copy(grown, b)
		b = grown
	}
	for len(data) >= groupSize {
		b = append(b, data[:groupSize]...)
		b = append(b, maxMarker)
		data = data[groupSize:]
	}
	pad := groupSize - len(data)
	b = append(b, data...)
	for i := 0; i < pad; i++ {
		b = append(b, 0)
	}
	return append(b, maxMarker-byte(pad))
}

// EncodeBytes returns the encoding of data.
func EncodeBytes(data []byte) []byte {
	return AppendBytes(nil, data)
}

// DecodeBytes decodes one value from the front of b and returns the bytes after it.
func DecodeBytes(b []byte) (rest []byte, data []byte, err error) {
	data = make([]byte, 0, len(b))
	for {
		if len(b) < groupSize+1 {
			return nil, nil, errors.Annotatef(ErrInvalidEncoding, "%d bytes left", len(b))
		}
		group, marker := b[:groupSize], b[groupSize]
		b = b[groupSize+1:]
		pad := int(maxMarker - marker)
		if pad > groupSize {
			return nil, nil, errors.Annotatef(ErrInvalidEncoding, "marker %#x", marker)
		}
		data = append(data, group[:groupSize-pad]...)
		if pad == 0 {
			continue
		}
		for _, p := range group[groupSize-pad:] {
			if p != 0 {
				return nil, nil, errors.Annotatef(ErrInvalidEncoding, "padding byte %#x", p)
			}
		}
		return b, data, nil
	}
}

// AppendString appends the encoding of s to b.
func AppendString(b []byte, s string) []byte {
	return AppendBytes(b, []byte(s))
}

// DecodeString decodes a string written by AppendString, returning the leftover bytes.
func DecodeString(b []byte) ([]byte, string, error) {
	rest, data, err := DecodeBytes(b)
	if err != nil {
		return nil, "", err
	}
	return rest, string(data), nil
}
