package arcbuf

// Resolver carries per-value facts (out-of-line offsets) from the Serialize
// phase to the matching Resolve call. It is never stored in the buffer and
// is consumed exactly once, by the Resolve call for the same source value.
type Resolver any

// Viewer is the read-only half of a codec: enough to locate and reinterpret
// an archived value inside an arena. Container views hold a Viewer for
// their element type.
type Viewer[A any] interface {
	// Size is the byte size of the archived fixed-size slot.
	Size() int
	// Align is the required alignment of the slot. Power of two.
	Align() int
	// Access reinterprets the bytes at arena[off:off+Size()] as the
	// archived value. The arena must be well formed at off.
	Access(arena []byte, off int) A
}

// Codec describes how a live value of type T archives into a fixed-size
// slot viewed as A, and back.
//
// Serialize may append out-of-line data through s and must not write the
// value's own slot. Resolve writes exactly Size() bytes into p and must not
// append, allocate from the writer, or fail; anything fallible belongs in
// Serialize. Composite codecs resolve fields by subdividing p into
// non-overlapping field places.
type Codec[T, A any] interface {
	Viewer[A]

	Serialize(v T, s *Serializer) (Resolver, error)
	Resolve(v T, r Resolver, p Place)

	// Deserialize rebuilds an owned value from an archived view.
	Deserialize(a A, d *Deserializer) (T, error)

	// Check validates the archived value at off, recursing into anything
	// it points at. Called with bounds of the slot itself already checked.
	Check(arena []byte, off int, ck *Checker) error
}

// Ordered is a codec whose keys carry a total order usable directly on the
// archived form. Compare must agree with the live type's ordering; the
// ordered-container encoders rely on that agreement for raw-byte lookup.
type Ordered[T, A any] interface {
	Codec[T, A]

	// Compare orders a live value against an archived one: negative if
	// v sorts before a, zero if equal, positive if after.
	Compare(v T, a A) int
}

// Hashed is a codec whose keys hash identically from the live and archived
// forms. Sum64 must be buffer-stable: the same key hashes the same in every
// process that reads the buffer.
type Hashed[T, A any] interface {
	Codec[T, A]

	Sum64(v T) uint64
	// Eq reports whether a live key equals an archived one.
	Eq(v T, a A) bool
}

// bulkCodec is the copy-optimization fast path: element types whose live
// and archived representations are bit-identical may serialize a whole
// slice with one aligned byte copy. rawBytes aliases the live slice's
// backing array; the written result must be byte-identical to the generic
// per-element path.
type bulkCodec[T any] interface {
	rawBytes(vs []T) []byte
}
