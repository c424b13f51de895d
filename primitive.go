package arcbuf

import (
	"math"
	"unsafe"

	"github.com/cespare/xxhash/v2"

	"github.com/rawbytedev/arcbuf/internal/common"
)

// IntLike covers every fixed-width integer kind with an archived form.
type IntLike interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// IntCodec archives a fixed-width integer as its little-endian bytes. The
// archived view is the value itself: access is a single load.
type IntCodec[T IntLike] struct{}

func (IntCodec[T]) Size() int {
	var z T
	return int(unsafe.Sizeof(z))
}

func (IntCodec[T]) Align() int {
	var z T
	return int(unsafe.Sizeof(z))
}

func (IntCodec[T]) Serialize(v T, s *Serializer) (Resolver, error) {
	return nil, nil
}

func (c IntCodec[T]) Resolve(v T, _ Resolver, p Place) {
	p.PutUint(0, uint64(v), c.Size())
}

func (c IntCodec[T]) Access(arena []byte, off int) T {
	// Converting through uint64 truncates to the low bytes and
	// reinterprets, which sign-extends correctly for signed T.
	return T(common.GetUint(arena[off:], c.Size()))
}

func (IntCodec[T]) Deserialize(a T, _ *Deserializer) (T, error) {
	return a, nil
}

func (IntCodec[T]) Check(_ []byte, _ int, _ *Checker) error {
	return nil
}

func (IntCodec[T]) Compare(v, a T) int {
	switch {
	case v < a:
		return -1
	case v > a:
		return 1
	default:
		return 0
	}
}

func (c IntCodec[T]) Sum64(v T) uint64 {
	var b [8]byte
	common.PutUint(b[:], uint64(v), c.Size())
	return xxhash.Sum64(b[:c.Size()])
}

func (IntCodec[T]) Eq(v, a T) bool { return v == a }

// rawBytes is the copy-optimized path: the live slice's bytes already are
// the archived bytes on a little-endian host.
func (IntCodec[T]) rawBytes(vs []T) []byte {
	return common.RawBytes(vs)
}

// BoolCodec archives a bool as one byte, 0 or 1.
type BoolCodec struct{}

func (BoolCodec) Size() int  { return 1 }
func (BoolCodec) Align() int { return 1 }

func (BoolCodec) Serialize(v bool, s *Serializer) (Resolver, error) {
	return nil, nil
}

func (BoolCodec) Resolve(v bool, _ Resolver, p Place) {
	if v {
		p.PutByte(0, 1)
	}
}

func (BoolCodec) Access(arena []byte, off int) bool {
	return arena[off] != 0
}

func (BoolCodec) Deserialize(a bool, _ *Deserializer) (bool, error) {
	return a, nil
}

func (BoolCodec) Check(arena []byte, off int, ck *Checker) error {
	if arena[off] > 1 {
		return ck.Failf(off, "invalid bool byte %#x", arena[off])
	}
	return nil
}

func (BoolCodec) rawBytes(vs []bool) []byte {
	return common.RawBytes(vs)
}

// Float32Codec archives a float32 as its IEEE-754 bits, little-endian.
type Float32Codec struct{}

func (Float32Codec) Size() int  { return 4 }
func (Float32Codec) Align() int { return 4 }

func (Float32Codec) Serialize(v float32, s *Serializer) (Resolver, error) {
	return nil, nil
}

func (Float32Codec) Resolve(v float32, _ Resolver, p Place) {
	p.PutUint(0, uint64(math.Float32bits(v)), 4)
}

func (Float32Codec) Access(arena []byte, off int) float32 {
	return math.Float32frombits(uint32(common.GetUint(arena[off:], 4)))
}

func (Float32Codec) Deserialize(a float32, _ *Deserializer) (float32, error) {
	return a, nil
}

func (Float32Codec) Check(_ []byte, _ int, _ *Checker) error { return nil }

func (Float32Codec) rawBytes(vs []float32) []byte {
	return common.RawBytes(vs)
}

// Float64Codec archives a float64 as its IEEE-754 bits, little-endian.
type Float64Codec struct{}

func (Float64Codec) Size() int  { return 8 }
func (Float64Codec) Align() int { return 8 }

func (Float64Codec) Serialize(v float64, s *Serializer) (Resolver, error) {
	return nil, nil
}

func (Float64Codec) Resolve(v float64, _ Resolver, p Place) {
	p.PutUint(0, math.Float64bits(v), 8)
}

func (Float64Codec) Access(arena []byte, off int) float64 {
	return math.Float64frombits(common.GetUint(arena[off:], 8))
}

func (Float64Codec) Deserialize(a float64, _ *Deserializer) (float64, error) {
	return a, nil
}

func (Float64Codec) Check(_ []byte, _ int, _ *Checker) error { return nil }

func (Float64Codec) rawBytes(vs []float64) []byte {
	return common.RawBytes(vs)
}

// Ready-made codec values for the primitive kinds.
var (
	Uint8   = IntCodec[uint8]{}
	Uint16  = IntCodec[uint16]{}
	Uint32  = IntCodec[uint32]{}
	Uint64  = IntCodec[uint64]{}
	Int8    = IntCodec[int8]{}
	Int16   = IntCodec[int16]{}
	Int32   = IntCodec[int32]{}
	Int64   = IntCodec[int64]{}
	Float32 = Float32Codec{}
	Float64 = Float64Codec{}
	Bool    = BoolCodec{}
)
