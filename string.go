package arcbuf

import (
	"bytes"
	"strings"
	"unicode/utf8"
	"unsafe"

	"github.com/cespare/xxhash/v2"

	"github.com/rawbytedev/arcbuf/internal/common"
)

// StringCodec archives a string as an out-of-line byte run referenced by a
// relative pointer plus an explicit length word. The slot is 8 bytes:
// rel(i32) + len(u32). An empty string writes no pointee bytes and encodes
// a zero offset.
type StringCodec struct{}

type stringResolver struct {
	pos int
}

func (StringCodec) Size() int  { return 8 }
func (StringCodec) Align() int { return 4 }

func (StringCodec) Serialize(v string, s *Serializer) (Resolver, error) {
	if len(v) > maxLen {
		return nil, ErrLayout
	}
	if len(v) == 0 {
		return stringResolver{}, nil
	}
	pos, err := s.Write(unsafe.Slice(unsafe.StringData(v), len(v)))
	if err != nil {
		return nil, err
	}
	return stringResolver{pos: pos}, nil
}

func (StringCodec) Resolve(v string, r Resolver, p Place) {
	sr := r.(stringResolver)
	if len(v) == 0 {
		ResolveRelPtr(p, 0, p.Pos())
	} else {
		ResolveRelPtr(p, 0, sr.pos)
	}
	p.PutUint(4, uint64(len(v)), 4)
}

func (StringCodec) Access(arena []byte, off int) ArchivedString {
	return ArchivedString{arena: arena, off: off}
}

func (StringCodec) Deserialize(a ArchivedString, _ *Deserializer) (string, error) {
	return a.String(), nil
}

func (StringCodec) Check(arena []byte, off int, ck *Checker) error {
	n := int(common.GetUint(arena[off+4:], 4))
	if n == 0 {
		return nil
	}
	pos := ReadRelPtr(arena, off)
	if err := ck.Range(pos, n, 1); err != nil {
		return err
	}
	if !utf8.Valid(arena[pos : pos+n]) {
		return ck.Failf(pos, "string is not valid UTF-8")
	}
	return nil
}

func (StringCodec) Compare(v string, a ArchivedString) int {
	return strings.Compare(v, a.UnsafeString())
}

func (StringCodec) Sum64(v string) uint64 {
	return xxhash.Sum64String(v)
}

func (StringCodec) Eq(v string, a ArchivedString) bool {
	return v == a.UnsafeString()
}

// String is the ready-made string codec.
var String = StringCodec{}

// ArchivedString is the zero-copy view of an archived string.
type ArchivedString struct {
	arena []byte
	off   int
}

func (a ArchivedString) Len() int {
	return int(common.GetUint(a.arena[a.off+4:], 4))
}

// Bytes aliases the string's bytes inside the buffer without copying.
func (a ArchivedString) Bytes() []byte {
	n := a.Len()
	if n == 0 {
		return nil
	}
	pos := ReadRelPtr(a.arena, a.off)
	return a.arena[pos : pos+n : pos+n]
}

// String copies the bytes into an owned string.
func (a ArchivedString) String() string {
	return string(a.Bytes())
}

// UnsafeString aliases the buffer as a string without copying. The result
// is only valid while the buffer is alive and unmodified.
func (a ArchivedString) UnsafeString() string {
	b := a.Bytes()
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(&b[0], len(b))
}

// EqualBytes reports whether the archived string equals b.
func (a ArchivedString) EqualBytes(b []byte) bool {
	return bytes.Equal(a.Bytes(), b)
}
