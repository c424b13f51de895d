package arcbuf

import (
	"math"

	"github.com/rawbytedev/arcbuf/internal/common"
)

// Options controls serializer behaviour.
type Options struct {
	// MaxSize caps the output buffer in bytes. Zero means the default cap
	// of MaxInt32, which also guarantees every relative pointer fits in a
	// signed 32-bit offset.
	MaxSize int

	// UnsafePrimitives enables the bulk-copy fast path for slices of
	// fixed-width primitives: one aligned memcpy instead of per-element
	// serialize/resolve. Requires a little-endian host. The archived bytes
	// are identical to the generic path.
	UnsafePrimitives bool
}

// Serializer is the writer-and-allocator capability for one archive
// operation: an append-only byte sink with a single moving cursor, a
// scratch allocator for transient per-element resolver storage, and the
// serialize-side shared-pointer pool. Not safe for concurrent use; archive
// independent values from different goroutines with separate serializers.
type Serializer struct {
	Opts Options

	buf     []byte
	shared  map[uintptr]int // source identity -> payload offset
	scratch [][]Resolver    // freelist for Scratch/Release
	zero    [64]byte
}

func NewSerializer(opts Options) *Serializer {
	if opts.MaxSize == 0 || opts.MaxSize > math.MaxInt32 {
		opts.MaxSize = math.MaxInt32
	}
	return &Serializer{Opts: opts}
}

// Pos is the current write position.
func (s *Serializer) Pos() int { return len(s.buf) }

// Bytes is the buffer written so far.
func (s *Serializer) Bytes() []byte { return s.buf }

// Reset clears the buffer and both pools for reuse. Buffers returned by
// earlier Archive calls alias the old backing array and must not be kept.
func (s *Serializer) Reset() {
	s.buf = s.buf[:0]
	clear(s.shared)
}

// Write appends b and returns the offset it was written at.
func (s *Serializer) Write(b []byte) (int, error) {
	if len(s.buf)+len(b) > s.Opts.MaxSize {
		return 0, ErrBufferFull
	}
	off := len(s.buf)
	s.buf = append(s.buf, b...)
	return off, nil
}

// Align pads the buffer with zero bytes until the write position is a
// multiple of a, returning the aligned position.
func (s *Serializer) Align(a int) (int, error) {
	pad := common.AlignUp(len(s.buf), a) - len(s.buf)
	if len(s.buf)+pad > s.Opts.MaxSize {
		return 0, ErrBufferFull
	}
	for pad > 0 {
		n := min(pad, len(s.zero))
		s.buf = append(s.buf, s.zero[:n]...)
		pad -= n
	}
	return len(s.buf), nil
}

// Reserve aligns the cursor, appends size zero bytes and returns them as a
// Place. This is the only way slots come into existence.
func (s *Serializer) Reserve(size, align int) (Place, error) {
	off, err := s.Align(align)
	if err != nil {
		return Place{}, err
	}
	if off+size > s.Opts.MaxSize {
		return Place{}, ErrBufferFull
	}
	for i := 0; i < size; i++ {
		s.buf = append(s.buf, 0)
	}
	return Place{arena: s.buf, off: off, size: size}, nil
}

// Scratch hands out a resolver slice of length n without touching the main
// buffer. Pass it back to Release when the enclosing serialize step ends.
func (s *Serializer) Scratch(n int) []Resolver {
	if k := len(s.scratch); k > 0 {
		rs := s.scratch[k-1]
		s.scratch = s.scratch[:k-1]
		if cap(rs) >= n {
			return rs[:n]
		}
	}
	return make([]Resolver, n)
}

// Release returns a scratch slice to the freelist.
func (s *Serializer) Release(rs []Resolver) {
	clear(rs)
	s.scratch = append(s.scratch, rs[:0])
}

// SharedOffset implements serialize-side deduplication: the first call for
// an identity runs produce to write the payload and records its offset;
// later calls return the recorded offset without writing anything.
func (s *Serializer) SharedOffset(id uintptr, produce func() (int, error)) (int, error) {
	if off, ok := s.shared[id]; ok {
		return off, nil
	}
	off, err := produce()
	if err != nil {
		return 0, err
	}
	if s.shared == nil {
		s.shared = make(map[uintptr]int)
	}
	s.shared[id] = off
	return off, nil
}
