package arcbuf

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSharedDedup(t *testing.T) {
	p := new(string)
	*p = "hello"
	q := new(string)
	*q = "hello"

	c := NewVec[*string, ArchivedShared[ArchivedString]](NewShared[string, ArchivedString](String))

	// Two handles to one value: the payload bytes appear once.
	buf, err := ToBytes[[]*string, ArchivedVec[ArchivedShared[ArchivedString]]](c, []*string{p, p})
	require.NoError(t, err)
	assert.Equal(t, 1, bytes.Count(buf, []byte("hello")))

	buf, err = ToBytes[[]*string, ArchivedVec[ArchivedShared[ArchivedString]]](c, []*string{p, p, q})
	require.NoError(t, err)

	// q is a distinct identity with equal bytes, so it archives separately.
	assert.Equal(t, 2, bytes.Count(buf, []byte("hello")))

	a := Access[[]*string, ArchivedVec[ArchivedShared[ArchivedString]]](c, buf)
	assert.Equal(t, a.At(0).Offset(), a.At(1).Offset())
	assert.NotEqual(t, a.At(0).Offset(), a.At(2).Offset())
	assert.Equal(t, "hello", a.At(1).Value().String())
}

func TestSharedIdentitySurvivesRoundTrip(t *testing.T) {
	p := new(uint64)
	*p = 42

	c := NewVec[*uint64, ArchivedShared[uint64]](NewShared[uint64, uint64](Uint64))
	buf, err := ToBytes[[]*uint64, ArchivedVec[ArchivedShared[uint64]]](c, []*uint64{p, p})
	require.NoError(t, err)

	out, err := Deserialize[[]*uint64, ArchivedVec[ArchivedShared[uint64]]](c, buf)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Same(t, out[0], out[1])

	*out[0] = 7
	assert.Equal(t, uint64(7), *out[1])
}

func TestSharedNil(t *testing.T) {
	c := NewShared[uint64, uint64](Uint64)
	_, err := ToBytes[*uint64, ArchivedShared[uint64]](c, nil)
	require.ErrorIs(t, err, ErrLayout)
}

func TestSharedChecked(t *testing.T) {
	p := new(uint32)
	*p = 5
	c := NewVec[*uint32, ArchivedShared[uint32]](NewShared[uint32, uint32](Uint32))
	buf, err := ToBytes[[]*uint32, ArchivedVec[ArchivedShared[uint32]]](c, []*uint32{p, p, p})
	require.NoError(t, err)
	_, err = AccessChecked[[]*uint32, ArchivedVec[ArchivedShared[uint32]]](c, buf)
	require.NoError(t, err)
}
