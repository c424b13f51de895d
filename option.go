package arcbuf

import (
	"github.com/rawbytedev/arcbuf/internal/common"
)

// OptionCodec archives a *T treated as an optional value: nil is None. The
// slot is a one-byte discriminant followed by the payload slot, padded so
// the payload stays aligned. A None slot keeps its payload bytes zero.
type OptionCodec[T, A any] struct {
	elem Codec[T, A]
}

func NewOption[T, A any](elem Codec[T, A]) OptionCodec[T, A] {
	return OptionCodec[T, A]{elem: elem}
}

func (c OptionCodec[T, A]) payloadOff() int {
	return common.AlignUp(1, c.elem.Align())
}

func (c OptionCodec[T, A]) Size() int {
	return common.AlignUp(c.payloadOff()+c.elem.Size(), c.Align())
}

func (c OptionCodec[T, A]) Align() int {
	return max(1, c.elem.Align())
}

func (c OptionCodec[T, A]) Serialize(v *T, s *Serializer) (Resolver, error) {
	if v == nil {
		return nil, nil
	}
	return c.elem.Serialize(*v, s)
}

func (c OptionCodec[T, A]) Resolve(v *T, r Resolver, p Place) {
	if v == nil {
		return
	}
	p.PutByte(0, 1)
	c.elem.Resolve(*v, r, p.Field(c.payloadOff(), c.elem.Size()))
}

func (c OptionCodec[T, A]) Access(arena []byte, off int) ArchivedOption[A] {
	a := ArchivedOption[A]{some: arena[off] != 0}
	if a.some {
		a.value = c.elem.Access(arena, off+c.payloadOff())
	}
	return a
}

func (c OptionCodec[T, A]) Deserialize(a ArchivedOption[A], d *Deserializer) (*T, error) {
	if !a.some {
		return nil, nil
	}
	v, err := c.elem.Deserialize(a.value, d)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (c OptionCodec[T, A]) Check(arena []byte, off int, ck *Checker) error {
	switch arena[off] {
	case 0:
		return nil
	case 1:
		return c.elem.Check(arena, off+c.payloadOff(), ck)
	default:
		return ck.Failf(off, "invalid option tag %#x", arena[off])
	}
}

// ArchivedOption is the view of an archived optional value.
type ArchivedOption[A any] struct {
	some  bool
	value A
}

func (a ArchivedOption[A]) IsSome() bool { return a.some }
func (a ArchivedOption[A]) IsNone() bool { return !a.some }

// Get returns the payload view; ok is false for None.
func (a ArchivedOption[A]) Get() (A, bool) {
	return a.value, a.some
}
