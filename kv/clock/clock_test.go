package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestampArithmetic(t *testing.T) {
	ts := FromTime(time.Unix(100, 500*int64(time.Millisecond)))
	assert.Equal(t, Timestamp(100500), ts)
	assert.Equal(t, uint64(100), ts.Seconds())
	assert.Equal(t, Timestamp(130500), ts.Add(30*time.Second))
	assert.Equal(t, Timestamp(70500), ts.Sub(30*time.Second))
	assert.Equal(t, Timestamp(0), ts.Sub(time.Hour))
	assert.True(t, ts.Time().Equal(time.Unix(100, 500*int64(time.Millisecond))))
}

func TestFakeClock(t *testing.T) {
	c := NewFakeClock(time.Unix(10, 0))
	assert.Equal(t, Timestamp(10000), c.Now())
	c.Add(5 * time.Second)
	assert.Equal(t, Timestamp(15000), c.Now())
	c.Set(time.Unix(1, 0))
	assert.Equal(t, Timestamp(1000), c.Now())
}

func TestIncClock(t *testing.T) {
	c := NewIncClock(1000, time.Second)
	assert.Equal(t, Timestamp(1000), c.Now())
	assert.Equal(t, Timestamp(2000), c.Now())
}

func TestSystemClockMovesForward(t *testing.T) {
	c := NewSystemClock()
	a := c.Now()
	assert.True(t, a > FromTime(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, c.Now() >= a)
}

func TestVersionstamp(t *testing.T) {
	a := VersionstampFromUint64(1)
	b := a.Next()
	assert.Equal(t, uint64(2), b.Uint64())
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, "00000000000000010000", a.String())

	// byte order follows counter order across byte boundaries
	assert.Equal(t, -1, VersionstampFromUint64(255).Compare(VersionstampFromUint64(256)))

	vs, err := VersionstampFromBytes(b[:])
	require.Nil(t, err)
	assert.Equal(t, b, vs)
	_, err = VersionstampFromBytes([]byte{1, 2})
	assert.NotNil(t, err)
}
