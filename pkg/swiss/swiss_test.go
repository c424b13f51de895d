package swiss

import (
	"sort"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawbytedev/arcbuf"
)

func archiveStringMap(t *testing.T, entries []Entry[string, uint32]) (MapCodec[string, arcbuf.ArchivedString, uint32, uint32], []byte) {
	t.Helper()
	c := NewMap[string, arcbuf.ArchivedString, uint32, uint32](arcbuf.String, arcbuf.Uint32)
	buf, err := arcbuf.ToBytes[[]Entry[string, uint32], ArchivedMap[string, arcbuf.ArchivedString, uint32, uint32]](c, entries)
	require.NoError(t, err)
	return c, buf
}

func TestMapGet(t *testing.T) {
	entries := []Entry[string, uint32]{{"red", 1}, {"green", 2}, {"blue", 3}}
	c, buf := archiveStringMap(t, entries)

	m, err := arcbuf.AccessChecked[[]Entry[string, uint32], ArchivedMap[string, arcbuf.ArchivedString, uint32, uint32]](c, buf)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Len())

	for _, e := range entries {
		v, ok := m.Get(e.Key)
		require.True(t, ok, "key %q", e.Key)
		assert.Equal(t, e.Val, v)
	}
	_, ok := m.Get("purple")
	assert.False(t, ok)
	_, ok = m.Get("")
	assert.False(t, ok)

	assert.True(t, m.EqualEntries(entries, func(v uint32, a uint32) bool { return v == a }))
	assert.False(t, m.EqualEntries(entries[:2], nil))
}

func TestMapEmpty(t *testing.T) {
	c, buf := archiveStringMap(t, nil)
	assert.Len(t, buf, c.Size())

	m, err := arcbuf.AccessChecked[[]Entry[string, uint32], ArchivedMap[string, arcbuf.ArchivedString, uint32, uint32]](c, buf)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())
	_, ok := m.Get("anything")
	assert.False(t, ok)
}

// Capacity is derived from the entry count alone; the table always keeps at
// least one empty bucket and never exceeds the fixed load factor.
func TestMapCapacityBound(t *testing.T) {
	c := NewMap[uint32, uint32, uint32, uint32](arcbuf.Uint32, arcbuf.Uint32)
	for _, n := range []int{1, 2, 6, 7, 8, 55, 56, 57, 100} {
		entries := make([]Entry[uint32, uint32], n)
		for i := range entries {
			entries[i] = Entry[uint32, uint32]{Key: uint32(i), Val: uint32(i)}
		}
		buf, err := arcbuf.ToBytes[[]Entry[uint32, uint32], ArchivedMap[uint32, uint32, uint32, uint32]](c, entries)
		require.NoError(t, err)
		m := arcbuf.Access[[]Entry[uint32, uint32], ArchivedMap[uint32, uint32, uint32, uint32]](c, buf)

		assert.Equal(t, (n*LoadFactorDen+LoadFactorNum-1)/LoadFactorNum, m.Cap(), "n=%d", n)
		assert.GreaterOrEqual(t, LoadFactorNum*m.Cap(), LoadFactorDen*n, "n=%d", n)
		assert.Greater(t, m.Cap(), n, "n=%d", n)
	}
}

func TestMapRoundTrip(t *testing.T) {
	entries := []Entry[string, uint32]{{"a", 1}, {"bb", 2}, {"ccc", 3}}
	c, buf := archiveStringMap(t, entries)

	out, err := arcbuf.Deserialize[[]Entry[string, uint32], ArchivedMap[string, arcbuf.ArchivedString, uint32, uint32]](c, buf)
	require.NoError(t, err)
	require.Len(t, out, len(entries))

	// Table order is hash order; compare as sets.
	byKey := func(es []Entry[string, uint32]) []Entry[string, uint32] {
		s := append([]Entry[string, uint32](nil), es...)
		sort.Slice(s, func(i, j int) bool { return s[i].Key < s[j].Key })
		return s
	}
	assert.Equal(t, byKey(entries), byKey(out))
}

func TestMapQuick(t *testing.T) {
	c := NewMap[uint64, uint64, uint32, uint32](arcbuf.Uint64, arcbuf.Uint32)
	condition := func(src map[uint64]uint32) bool {
		entries := make([]Entry[uint64, uint32], 0, len(src))
		for k, v := range src {
			entries = append(entries, Entry[uint64, uint32]{Key: k, Val: v})
		}
		buf, err := arcbuf.ToBytes[[]Entry[uint64, uint32], ArchivedMap[uint64, uint64, uint32, uint32]](c, entries)
		require.NoError(t, err)
		m, err := arcbuf.AccessChecked[[]Entry[uint64, uint32], ArchivedMap[uint64, uint64, uint32, uint32]](c, buf)
		require.NoError(t, err)

		for k, v := range src {
			got, ok := m.Get(k)
			if !ok || got != v {
				return false
			}
		}
		for probe := uint64(1); probe <= 8; probe++ {
			k := probe * 0x9E3779B97F4A7C15
			if _, present := src[k]; present {
				continue
			}
			if _, ok := m.Get(k); ok {
				return false
			}
		}
		return true
	}
	require.NoError(t, quick.Check(condition, &quick.Config{}))
}

func TestMapCheckedCorruptCtrl(t *testing.T) {
	entries := []Entry[string, uint32]{{"a", 1}, {"b", 2}}
	c, buf := archiveStringMap(t, entries)

	off := len(buf) - c.Size()
	table := arcbuf.ReadRelPtr(buf, off)
	buf[table] = 0x90
	_, err := arcbuf.AccessChecked[[]Entry[string, uint32], ArchivedMap[string, arcbuf.ArchivedString, uint32, uint32]](c, buf)
	require.ErrorIs(t, err, arcbuf.ErrMalformed)
}

func TestMapCheckedCorruptCapacity(t *testing.T) {
	entries := []Entry[string, uint32]{{"a", 1}, {"b", 2}}
	c, buf := archiveStringMap(t, entries)

	off := len(buf) - c.Size()
	buf[off+8] = 0xFF
	_, err := arcbuf.AccessChecked[[]Entry[string, uint32], ArchivedMap[string, arcbuf.ArchivedString, uint32, uint32]](c, buf)
	require.ErrorIs(t, err, arcbuf.ErrMalformed)
}

func TestSet(t *testing.T) {
	c := NewSet[string, arcbuf.ArchivedString](arcbuf.String)
	keys := []string{"ant", "bee", "cow", "elk"}
	buf, err := arcbuf.ToBytes[[]string, ArchivedSet[string, arcbuf.ArchivedString]](c, keys)
	require.NoError(t, err)

	a, err := arcbuf.AccessChecked[[]string, ArchivedSet[string, arcbuf.ArchivedString]](c, buf)
	require.NoError(t, err)
	assert.Equal(t, 4, a.Len())
	for _, k := range keys {
		assert.True(t, a.Has(k), "key %q", k)
	}
	assert.False(t, a.Has("fox"))

	seen := 0
	a.Visit(func(k arcbuf.ArchivedString) bool {
		seen++
		return true
	})
	assert.Equal(t, 4, seen)

	out, err := arcbuf.Deserialize[[]string, ArchivedSet[string, arcbuf.ArchivedString]](c, buf)
	require.NoError(t, err)
	sort.Strings(out)
	assert.Equal(t, keys, out)
}

func BenchmarkMapGet(b *testing.B) {
	const n = 4096
	entries := make([]Entry[uint64, uint64], n)
	for i := range entries {
		entries[i] = Entry[uint64, uint64]{Key: uint64(i * 2), Val: uint64(i)}
	}
	c := NewMap[uint64, uint64, uint64, uint64](arcbuf.Uint64, arcbuf.Uint64)
	buf, err := arcbuf.ToBytes[[]Entry[uint64, uint64], ArchivedMap[uint64, uint64, uint64, uint64]](c, entries)
	if err != nil {
		b.Fatal(err)
	}
	m := arcbuf.Access[[]Entry[uint64, uint64], ArchivedMap[uint64, uint64, uint64, uint64]](c, buf)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = m.Get(uint64((i % n) * 2))
	}
}
