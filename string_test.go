package arcbuf

import (
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringRoundTrip(t *testing.T) {
	buf, err := ToBytes[string, ArchivedString](String, "hello")
	require.NoError(t, err)

	a := Access[string, ArchivedString](String, buf)
	assert.Equal(t, 5, a.Len())
	assert.Equal(t, "hello", a.String())
	assert.Equal(t, "hello", a.UnsafeString())
	assert.True(t, a.EqualBytes([]byte("hello")))

	out, err := Deserialize[string, ArchivedString](String, buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestStringEmpty(t *testing.T) {
	buf, err := ToBytes[string, ArchivedString](String, "")
	require.NoError(t, err)
	assert.Len(t, buf, String.Size())

	a, err := AccessChecked[string, ArchivedString](String, buf)
	require.NoError(t, err)
	assert.Equal(t, 0, a.Len())
	assert.Equal(t, "", a.String())
	assert.Nil(t, a.Bytes())
}

func TestStringBytesAliasBuffer(t *testing.T) {
	buf, err := ToBytes[string, ArchivedString](String, "azerty")
	require.NoError(t, err)
	b := Access[string, ArchivedString](String, buf).Bytes()
	require.Len(t, b, 6)
	buf[0] ^= 0xFF
	assert.NotEqual(t, byte('a'), b[0])
}

func TestStringCompareEq(t *testing.T) {
	buf, err := ToBytes[string, ArchivedString](String, "mango")
	require.NoError(t, err)
	a := Access[string, ArchivedString](String, buf)
	assert.Equal(t, 0, String.Compare("mango", a))
	assert.Equal(t, -1, String.Compare("apple", a))
	assert.Equal(t, 1, String.Compare("zebra", a))
	assert.True(t, String.Eq("mango", a))
	assert.False(t, String.Eq("mangos", a))
}

func TestStringQuick(t *testing.T) {
	condition := func(v string) bool {
		buf, err := ToBytes[string, ArchivedString](String, v)
		require.NoError(t, err)
		out, err := Deserialize[string, ArchivedString](String, buf)
		require.NoError(t, err)
		return out == v
	}
	require.NoError(t, quick.Check(condition, &quick.Config{}))
}
