package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlignUp(t *testing.T) {
	assert.Equal(t, 0, AlignUp(0, 4))
	assert.Equal(t, 8, AlignUp(5, 4))
	assert.Equal(t, 8, AlignUp(8, 4))
	assert.Equal(t, 7, AlignUp(7, 1))
}

func TestIsAligned(t *testing.T) {
	assert.True(t, IsAligned(0, 8))
	assert.True(t, IsAligned(16, 8))
	assert.False(t, IsAligned(12, 8))
	assert.True(t, IsAligned(3, 1))
}

func TestUintWidths(t *testing.T) {
	b := make([]byte, 8)
	for _, width := range []int{1, 2, 4, 8} {
		x := uint64(0x1122334455667788) & (1<<(8*width) - 1)
		PutUint(b, x, width)
		assert.Equal(t, x, GetUint(b, width), "width %d", width)
	}
	PutUint(b, 0xAABB, 2)
	assert.Equal(t, byte(0xBB), b[0])
	assert.Equal(t, byte(0xAA), b[1])
}

func TestRawBytes(t *testing.T) {
	assert.Equal(t, []byte{1, 0, 2, 0}, RawBytes([]uint16{1, 2}))
	assert.Len(t, RawBytes([]uint64{1, 2, 3}), 24)
	assert.Nil(t, RawBytes([]uint32(nil)))
}
