package arcbuf

import (
	"testing"
	"testing/quick"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip[T, A any](t *testing.T, c Codec[T, A], v T) T {
	t.Helper()
	buf, err := ToBytes(c, v)
	require.NoError(t, err)
	out, err := Deserialize(c, buf)
	require.NoError(t, err)
	return out
}

func TestIntRoundTrip(t *testing.T) {
	assert.Equal(t, uint32(0xDEADBEEF), roundTrip[uint32, uint32](t, Uint32, 0xDEADBEEF))
	assert.Equal(t, int8(-5), roundTrip[int8, int8](t, Int8, -5))
	assert.Equal(t, int64(-1), roundTrip[int64, int64](t, Int64, -1))
	assert.Equal(t, uint16(0), roundTrip[uint16, uint16](t, Uint16, 0))
}

func TestIntAccessSignExtends(t *testing.T) {
	buf, err := ToBytes[int16, int16](Int16, -300)
	require.NoError(t, err)
	assert.Equal(t, int16(-300), Access[int16, int16](Int16, buf))
}

func TestIntQuick(t *testing.T) {
	condition := func(v int32) bool {
		buf, err := ToBytes[int32, int32](Int32, v)
		require.NoError(t, err)
		return Access[int32, int32](Int32, buf) == v
	}
	require.NoError(t, quick.Check(condition, &quick.Config{}))
}

func TestUint64Quick(t *testing.T) {
	condition := func(v uint64) bool {
		buf, err := ToBytes[uint64, uint64](Uint64, v)
		require.NoError(t, err)
		return Access[uint64, uint64](Uint64, buf) == v
	}
	require.NoError(t, quick.Check(condition, &quick.Config{}))
}

func TestFloatRoundTrip(t *testing.T) {
	assert.Equal(t, float32(12.13), roundTrip[float32, float32](t, Float32, 12.13))
	assert.Equal(t, float64(-1236.2), roundTrip[float64, float64](t, Float64, -1236.2))

	condition := func(v float64) bool {
		buf, err := ToBytes[float64, float64](Float64, v)
		require.NoError(t, err)
		return Access[float64, float64](Float64, buf) == v
	}
	require.NoError(t, quick.Check(condition, &quick.Config{}))
}

func TestBoolRoundTrip(t *testing.T) {
	assert.True(t, roundTrip[bool, bool](t, Bool, true))
	assert.False(t, roundTrip[bool, bool](t, Bool, false))
}

func TestIntCompareHashEq(t *testing.T) {
	assert.Equal(t, -1, Int32.Compare(-2, 3))
	assert.Equal(t, 1, Int32.Compare(3, -2))
	assert.Equal(t, 0, Int32.Compare(7, 7))

	assert.Equal(t, Uint32.Sum64(7), Uint32.Sum64(7))
	assert.NotEqual(t, Uint32.Sum64(7), Uint32.Sum64(8))
	assert.True(t, Uint32.Eq(7, 7))
	assert.False(t, Uint32.Eq(7, 8))
}

func TestTimeRoundTrip(t *testing.T) {
	want := time.Unix(1714000000, 123456789).UTC()
	ts := roundTrip[time.Time, time.Time](t, Time, want)
	assert.Equal(t, want, ts)
	assert.Equal(t, "UTC", ts.Location().String())
}
