package arcbuf

import (
	"github.com/rawbytedev/arcbuf/internal/common"
)

// Archived pointers are signed 32-bit offsets from the pointer's own slot
// address to its pointee. The serializer caps buffers at MaxInt32, so the
// difference always fits. An offset of zero is the canonical encoding for
// empty pointees (the pointer aims at itself and nothing is read).

const relPtrSize = 4

// maxLen caps archived lengths: every length word in the format is a u32.
const maxLen = 1<<32 - 1

// ResolveRelPtr writes a relative pointer at field offset off inside p,
// aiming at the absolute buffer position target. The target must already
// be written, which is why pointee bytes always precede their pointer's
// resolve step.
func ResolveRelPtr(p Place, off int, target int) {
	rel := int32(target - (p.Pos() + off))
	p.PutUint(off, uint64(uint32(rel)), relPtrSize)
}

// ReadRelPtr follows the relative pointer stored at absolute position pos.
func ReadRelPtr(arena []byte, pos int) int {
	rel := int32(uint32(common.GetUint(arena[pos:], relPtrSize)))
	return pos + int(rel)
}
