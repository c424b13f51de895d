package arcbuf

import (
	"time"
)

// TimeCodec is a wrapper codec: it overrides the default archiving of
// time.Time with a fixed u64 of Unix nanoseconds, little-endian. Pick it
// per field the way any other codec is picked; the live type stays
// time.Time. Sub-nanosecond monotonic clock readings do not survive the
// round trip.
type TimeCodec struct{}

// Time is the ready-made time.Time codec.
var Time = TimeCodec{}

func (TimeCodec) Size() int  { return 8 }
func (TimeCodec) Align() int { return 8 }

func (TimeCodec) Serialize(v time.Time, s *Serializer) (Resolver, error) {
	return nil, nil
}

func (TimeCodec) Resolve(v time.Time, _ Resolver, p Place) {
	p.PutUint(0, uint64(v.UnixNano()), 8)
}

func (TimeCodec) Access(arena []byte, off int) time.Time {
	return time.Unix(0, int64(Uint64.Access(arena, off))).UTC()
}

func (TimeCodec) Deserialize(a time.Time, _ *Deserializer) (time.Time, error) {
	return a, nil
}

func (TimeCodec) Check(_ []byte, _ int, _ *Checker) error { return nil }
