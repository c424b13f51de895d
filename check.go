package arcbuf

import (
	"github.com/pkg/errors"

	"github.com/rawbytedev/arcbuf/internal/common"
)

// Checker is the structural validator used by checked access. It walks the
// archived object graph from the root, proving every read a codec's Access
// path would perform stays in bounds and aligned before that read happens.
type Checker struct {
	arena   []byte
	visited map[int]struct{} // shared payload offsets already validated
}

func newChecker(arena []byte) *Checker {
	return &Checker{arena: arena}
}

// Range fails unless [off, off+size) lies inside the arena and off is
// aligned to align.
func (ck *Checker) Range(off, size, align int) error {
	if off < 0 || size < 0 || off+size > len(ck.arena) {
		return errors.Wrapf(ErrMalformed, "range [%d,%d) outside buffer of %d bytes", off, off+size, len(ck.arena))
	}
	if !common.IsAligned(off, align) {
		return errors.Wrapf(ErrMalformed, "offset %d not aligned to %d", off, align)
	}
	return nil
}

// Visited records a shared payload offset, reporting whether it was already
// validated. Breaks cycles and avoids re-walking deduplicated payloads.
func (ck *Checker) Visited(off int) bool {
	if _, ok := ck.visited[off]; ok {
		return true
	}
	if ck.visited == nil {
		ck.visited = make(map[int]struct{})
	}
	ck.visited[off] = struct{}{}
	return false
}

// Failf builds a structural error at an offset.
func (ck *Checker) Failf(off int, format string, args ...any) error {
	return errors.Wrapf(ErrMalformed, "at offset %d: "+format, append([]any{off}, args...)...)
}
