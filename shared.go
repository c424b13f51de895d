package arcbuf

import (
	"unsafe"

	"github.com/pkg/errors"
)

// SharedCodec archives a *T with deduplication: however many pointers share
// one heap value before archiving, the payload is written once and every
// occurrence archives as a relative pointer to it. On the way back, every
// occurrence of the same archived payload deserializes to the same
// allocation, so aliasing survives the round trip and a mutation through
// one handle is visible through the others.
type SharedCodec[T, A any] struct {
	elem Codec[T, A]
}

type sharedResolver struct {
	pos int
}

func NewShared[T, A any](elem Codec[T, A]) SharedCodec[T, A] {
	return SharedCodec[T, A]{elem: elem}
}

func (SharedCodec[T, A]) Size() int  { return relPtrSize }
func (SharedCodec[T, A]) Align() int { return relPtrSize }

func (c SharedCodec[T, A]) Serialize(v *T, s *Serializer) (Resolver, error) {
	if v == nil {
		return nil, errors.Wrap(ErrLayout, "nil shared pointer")
	}
	id := uintptr(unsafe.Pointer(v))
	pos, err := s.SharedOffset(id, func() (int, error) {
		r, err := c.elem.Serialize(*v, s)
		if err != nil {
			return 0, err
		}
		p, err := s.Reserve(c.elem.Size(), c.elem.Align())
		if err != nil {
			return 0, err
		}
		c.elem.Resolve(*v, r, p)
		return p.Pos(), nil
	})
	if err != nil {
		return nil, err
	}
	return sharedResolver{pos: pos}, nil
}

func (c SharedCodec[T, A]) Resolve(_ *T, r Resolver, p Place) {
	ResolveRelPtr(p, 0, r.(sharedResolver).pos)
}

func (c SharedCodec[T, A]) Access(arena []byte, off int) ArchivedShared[A] {
	pos := ReadRelPtr(arena, off)
	return ArchivedShared[A]{pos: pos, value: c.elem.Access(arena, pos)}
}

func (c SharedCodec[T, A]) Deserialize(a ArchivedShared[A], d *Deserializer) (*T, error) {
	v, err := d.SharedValue(a.pos, func() (any, error) {
		inner, err := c.elem.Deserialize(a.value, d)
		if err != nil {
			return nil, err
		}
		return &inner, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*T), nil
}

func (c SharedCodec[T, A]) Check(arena []byte, off int, ck *Checker) error {
	pos := ReadRelPtr(arena, off)
	if ck.Visited(pos) {
		return nil
	}
	if err := ck.Range(pos, c.elem.Size(), c.elem.Align()); err != nil {
		return errors.Wrap(err, "shared pointee")
	}
	return c.elem.Check(arena, pos, ck)
}

// ArchivedShared is the view of an archived shared pointer.
type ArchivedShared[A any] struct {
	pos   int
	value A
}

// Value views the shared payload in place.
func (a ArchivedShared[A]) Value() A { return a.value }

// Offset is the payload's buffer offset; two archived shared pointers to
// one source value report the same offset.
func (a ArchivedShared[A]) Offset() int { return a.pos }
