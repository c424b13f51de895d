package arcbuf

import (
	"github.com/pkg/errors"
)

// BoxCodec archives a value out of line behind a relative pointer. The
// live type is unchanged; boxing only moves the archived bytes out of the
// parent's slot, which is how recursive and pointer-bearing structures
// break their layout cycles. The slot is a bare rel(i32): the pointee is
// sized, so no metadata word is needed.
type BoxCodec[T, A any] struct {
	elem Codec[T, A]
}

type boxResolver struct {
	pos int
}

func NewBox[T, A any](elem Codec[T, A]) BoxCodec[T, A] {
	return BoxCodec[T, A]{elem: elem}
}

func (BoxCodec[T, A]) Size() int  { return relPtrSize }
func (BoxCodec[T, A]) Align() int { return relPtrSize }

func (c BoxCodec[T, A]) Serialize(v T, s *Serializer) (Resolver, error) {
	r, err := c.elem.Serialize(v, s)
	if err != nil {
		return nil, err
	}
	p, err := s.Reserve(c.elem.Size(), c.elem.Align())
	if err != nil {
		return nil, err
	}
	c.elem.Resolve(v, r, p)
	return boxResolver{pos: p.Pos()}, nil
}

func (c BoxCodec[T, A]) Resolve(_ T, r Resolver, p Place) {
	ResolveRelPtr(p, 0, r.(boxResolver).pos)
}

func (c BoxCodec[T, A]) Access(arena []byte, off int) A {
	return c.elem.Access(arena, ReadRelPtr(arena, off))
}

func (c BoxCodec[T, A]) Deserialize(a A, d *Deserializer) (T, error) {
	return c.elem.Deserialize(a, d)
}

func (c BoxCodec[T, A]) Check(arena []byte, off int, ck *Checker) error {
	pos := ReadRelPtr(arena, off)
	if err := ck.Range(pos, c.elem.Size(), c.elem.Align()); err != nil {
		return errors.Wrap(err, "box pointee")
	}
	return c.elem.Check(arena, pos, ck)
}
