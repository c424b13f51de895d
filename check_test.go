package arcbuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckedTruncatedLength(t *testing.T) {
	buf, err := ToBytes[string, ArchivedString](String, "hello")
	require.NoError(t, err)

	// Inflate the length word so the data runs past the buffer.
	off := len(buf) - String.Size()
	buf[off+4] = 0xFF
	buf[off+5] = 0xFF

	_, err = AccessChecked[string, ArchivedString](String, buf)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestCheckedShortBuffer(t *testing.T) {
	_, err := AccessChecked[uint64, uint64](Uint64, []byte{1, 2, 3})
	require.ErrorIs(t, err, ErrMalformed)

	_, err = AccessChecked[uint64, uint64](Uint64, nil)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestCheckedMisalignedRoot(t *testing.T) {
	buf, err := ToBytes[string, ArchivedString](String, "hello")
	require.NoError(t, err)
	buf = append(buf, 0)

	_, err = AccessChecked[string, ArchivedString](String, buf)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestCheckedInvalidUTF8(t *testing.T) {
	buf, err := ToBytes[string, ArchivedString](String, string([]byte{0xFF, 0xFE, 0xFD, 0xFC}))
	require.NoError(t, err)

	_, err = AccessChecked[string, ArchivedString](String, buf)
	require.ErrorIs(t, err, ErrMalformed)
	assert.Contains(t, err.Error(), "UTF-8")
}

func TestCheckedInvalidBool(t *testing.T) {
	_, err := AccessChecked[bool, bool](Bool, []byte{2})
	require.ErrorIs(t, err, ErrMalformed)
}

func TestCheckedInvalidOptionTag(t *testing.T) {
	c := NewOption[uint32, uint32](Uint32)
	v := uint32(1)
	buf, err := ToBytes[*uint32, ArchivedOption[uint32]](c, &v)
	require.NoError(t, err)

	buf[len(buf)-c.Size()] = 2
	_, err = AccessChecked[*uint32, ArchivedOption[uint32]](c, buf)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestCheckedVecElementError(t *testing.T) {
	c := NewVec[string, ArchivedString](String)
	buf, err := ToBytes[[]string, ArchivedVec[ArchivedString]](c, []string{"ok", string([]byte{0x80})})
	require.NoError(t, err)

	_, err = AccessChecked[[]string, ArchivedVec[ArchivedString]](c, buf)
	require.ErrorIs(t, err, ErrMalformed)
	assert.Contains(t, err.Error(), "element 1")
}

func TestCheckedRelPtrOutOfRange(t *testing.T) {
	buf, err := ToBytes[string, ArchivedString](String, "hello")
	require.NoError(t, err)

	// Point the string data far past the end of the buffer.
	off := len(buf) - String.Size()
	ResolveRelPtr(Place{arena: buf, off: off, size: 4}, 0, 1<<20)

	_, err = AccessChecked[string, ArchivedString](String, buf)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestUncheckedAccessTrustsBuffer(t *testing.T) {
	buf, err := ToBytes[string, ArchivedString](String, string([]byte{0xFF}))
	require.NoError(t, err)

	// Unchecked access performs no validation at all.
	a := Access[string, ArchivedString](String, buf)
	assert.Equal(t, 1, a.Len())
}
