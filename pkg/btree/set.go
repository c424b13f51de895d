package btree

import (
	"github.com/rawbytedev/arcbuf"
)

// unitCodec archives nothing: the zero-size value slot of a set.
type unitCodec struct{}

func (unitCodec) Size() int  { return 0 }
func (unitCodec) Align() int { return 1 }

func (unitCodec) Serialize(struct{}, *arcbuf.Serializer) (arcbuf.Resolver, error) {
	return nil, nil
}

func (unitCodec) Resolve(struct{}, arcbuf.Resolver, arcbuf.Place) {}

func (unitCodec) Access([]byte, int) struct{} { return struct{}{} }

func (unitCodec) Deserialize(struct{}, *arcbuf.Deserializer) (struct{}, error) {
	return struct{}{}, nil
}

func (unitCodec) Check([]byte, int, *arcbuf.Checker) error { return nil }

// SetCodec archives an ordered set: the map layout with zero-size values.
// The live form is a []K in strictly increasing order.
type SetCodec[K, AK any] struct {
	m MapCodec[K, AK, struct{}, struct{}]
}

func NewSet[K, AK any](key arcbuf.Ordered[K, AK]) SetCodec[K, AK] {
	return SetCodec[K, AK]{m: NewMap[K, AK, struct{}, struct{}](key, unitCodec{})}
}

func (c SetCodec[K, AK]) Size() int  { return c.m.Size() }
func (c SetCodec[K, AK]) Align() int { return c.m.Align() }

func (c SetCodec[K, AK]) entries(v []K) []Entry[K, struct{}] {
	es := make([]Entry[K, struct{}], len(v))
	for i, k := range v {
		es[i].Key = k
	}
	return es
}

func (c SetCodec[K, AK]) Serialize(v []K, s *arcbuf.Serializer) (arcbuf.Resolver, error) {
	return c.m.Serialize(c.entries(v), s)
}

func (c SetCodec[K, AK]) Resolve(v []K, r arcbuf.Resolver, p arcbuf.Place) {
	c.m.Resolve(c.entries(v), r, p)
}

func (c SetCodec[K, AK]) Access(arena []byte, off int) ArchivedSet[K, AK] {
	return ArchivedSet[K, AK]{m: c.m.Access(arena, off)}
}

func (c SetCodec[K, AK]) Deserialize(a ArchivedSet[K, AK], d *arcbuf.Deserializer) ([]K, error) {
	es, err := c.m.Deserialize(a.m, d)
	if err != nil {
		return nil, err
	}
	out := make([]K, len(es))
	for i := range es {
		out[i] = es[i].Key
	}
	return out, nil
}

func (c SetCodec[K, AK]) Check(arena []byte, off int, ck *arcbuf.Checker) error {
	return c.m.Check(arena, off, ck)
}

// ArchivedSet is the zero-copy view of an archived ordered set.
type ArchivedSet[K, AK any] struct {
	m ArchivedMap[K, AK, struct{}, struct{}]
}

func (a ArchivedSet[K, AK]) Len() int { return a.m.Len() }

// Has reports membership with a raw-byte ordered search.
func (a ArchivedSet[K, AK]) Has(k K) bool {
	_, ok := a.m.Get(k)
	return ok
}

// Visit walks all keys in increasing order until f returns false.
func (a ArchivedSet[K, AK]) Visit(f func(k AK) bool) {
	a.m.Visit(func(k AK, _ struct{}) bool { return f(k) })
}
