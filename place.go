package arcbuf

import (
	"github.com/rawbytedev/arcbuf/internal/common"
)

// Place is a typed write target inside the output buffer: an arena plus an
// offset whose bytes are exactly one archived value's slot, correctly
// aligned. Places for sibling fields never overlap and each Place is
// written exactly once, so no field write races another.
type Place struct {
	arena []byte
	off   int
	size  int
}

// Pos is the absolute buffer offset of the place. Relative pointers are
// encoded against this.
func (p Place) Pos() int { return p.off }

// Bytes is the writable slot. len(Bytes()) == size.
func (p Place) Bytes() []byte { return p.arena[p.off : p.off+p.size] }

// Field subdivides the place into a non-overlapping sub-place for one
// field at the given relative offset.
func (p Place) Field(off, size int) Place {
	if off+size > p.size {
		panic("arcbuf: field place out of slot bounds")
	}
	return Place{arena: p.arena, off: p.off + off, size: size}
}

// PutUint writes the low width bytes of x at the relative offset, little
// endian.
func (p Place) PutUint(off int, x uint64, width int) {
	common.PutUint(p.arena[p.off+off:p.off+off+width], x, width)
}

// PutByte writes a single byte at the relative offset.
func (p Place) PutByte(off int, b byte) {
	p.arena[p.off+off] = b
}

// Zero clears the whole slot. Reserve already hands out zeroed places;
// this exists for codecs that reuse a place's padding bytes.
func (p Place) Zero() {
	b := p.Bytes()
	for i := range b {
		b[i] = 0
	}
}
