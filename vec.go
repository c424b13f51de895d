package arcbuf

import (
	"github.com/pkg/errors"

	"github.com/rawbytedev/arcbuf/internal/common"
)

// VecCodec archives a slice as an out-of-line run of element slots behind a
// relative pointer plus a length word. The slot is 8 bytes: rel(i32) +
// len(u32).
//
// Serialization of the run is two-pass: every element serializes first
// (resolvers collected into scratch storage), then the writer aligns for
// the element type and every element resolves into its sequential slot.
// Element i's resolve may depend on bytes written while serializing element
// i+1, so the passes cannot be fused.
type VecCodec[T, A any] struct {
	elem Codec[T, A]
}

type vecResolver struct {
	pos int
}

// NewVec builds the slice codec for an element codec.
func NewVec[T, A any](elem Codec[T, A]) VecCodec[T, A] {
	return VecCodec[T, A]{elem: elem}
}

func (VecCodec[T, A]) Size() int  { return 8 }
func (VecCodec[T, A]) Align() int { return 4 }

// stride is the distance between consecutive element slots.
func (c VecCodec[T, A]) stride() int {
	return common.AlignUp(c.elem.Size(), c.elem.Align())
}

func (c VecCodec[T, A]) Serialize(v []T, s *Serializer) (Resolver, error) {
	if len(v) == 0 {
		return vecResolver{}, nil
	}
	if len(v) > maxLen || len(v) > (1<<31)/c.stride() {
		return nil, errors.Wrapf(ErrLayout, "slice of %d elements", len(v))
	}

	// Copy-optimized fast path: bit-identical live and archived elements,
	// nothing to resolve per element.
	if s.Opts.UnsafePrimitives {
		if bulk, ok := any(c.elem).(bulkCodec[T]); ok {
			pos, err := s.Align(c.elem.Align())
			if err != nil {
				return nil, err
			}
			if _, err := s.Write(bulk.rawBytes(v)); err != nil {
				return nil, err
			}
			return vecResolver{pos: pos}, nil
		}
	}

	rs := s.Scratch(len(v))
	defer s.Release(rs)
	for i := range v {
		r, err := c.elem.Serialize(v[i], s)
		if err != nil {
			return nil, err
		}
		rs[i] = r
	}

	stride := c.stride()
	run, err := s.Reserve(len(v)*stride, c.elem.Align())
	if err != nil {
		return nil, err
	}
	for i := range v {
		c.elem.Resolve(v[i], rs[i], run.Field(i*stride, c.elem.Size()))
	}
	return vecResolver{pos: run.Pos()}, nil
}

func (c VecCodec[T, A]) Resolve(v []T, r Resolver, p Place) {
	vr := r.(vecResolver)
	if len(v) == 0 {
		ResolveRelPtr(p, 0, p.Pos())
	} else {
		ResolveRelPtr(p, 0, vr.pos)
	}
	p.PutUint(4, uint64(len(v)), 4)
}

func (c VecCodec[T, A]) Access(arena []byte, off int) ArchivedVec[A] {
	return ArchivedVec[A]{arena: arena, off: off, elem: c.elem, stride: c.stride()}
}

func (c VecCodec[T, A]) Deserialize(a ArchivedVec[A], d *Deserializer) ([]T, error) {
	n := a.Len()
	if n == 0 {
		return nil, nil
	}
	out := make([]T, n)
	for i := 0; i < n; i++ {
		v, err := c.elem.Deserialize(a.At(i), d)
		if err != nil {
			return nil, errors.Wrapf(err, "element %d", i)
		}
		out[i] = v
	}
	return out, nil
}

func (c VecCodec[T, A]) Check(arena []byte, off int, ck *Checker) error {
	n := int(common.GetUint(arena[off+4:], 4))
	if n == 0 {
		return nil
	}
	stride := c.stride()
	if n > (1<<31)/stride {
		return ck.Failf(off, "length %d overflows layout", n)
	}
	pos := ReadRelPtr(arena, off)
	if err := ck.Range(pos, n*stride, c.elem.Align()); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := c.elem.Check(arena, pos+i*stride, ck); err != nil {
			return errors.Wrapf(err, "element %d", i)
		}
	}
	return nil
}

// ArchivedVec is the zero-copy view of an archived slice.
type ArchivedVec[A any] struct {
	arena  []byte
	off    int
	elem   Viewer[A]
	stride int
}

func (a ArchivedVec[A]) Len() int {
	return int(common.GetUint(a.arena[a.off+4:], 4))
}

// At views element i in place.
func (a ArchivedVec[A]) At(i int) A {
	pos := ReadRelPtr(a.arena, a.off)
	return a.elem.Access(a.arena, pos+i*a.stride)
}

// Visit calls f for each element in index order until f returns false.
func (a ArchivedVec[A]) Visit(f func(i int, v A) bool) {
	n := a.Len()
	for i := 0; i < n; i++ {
		if !f(i, a.At(i)) {
			return
		}
	}
}
