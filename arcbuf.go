// Package arcbuf is a zero-copy archiving format: it turns in-memory values
// into a byte buffer that can be read back without a deserialization pass.
// The bytes themselves, reinterpreted through fixed layout rules, are the
// data structure.
//
// Every archivable type is described by a Codec value. Archiving is a two
// phase protocol: Serialize writes a value's out-of-line data (pointee bytes,
// slice elements) and returns a Resolver; Resolve then writes the value's
// fixed-size slot into a Place using that resolver. The split lets forward
// pointing structures be written in a single pass: by the time a slot is
// resolved, everything it points at already has a final offset.
//
// Buffers are relocatable. Archived pointers are signed offsets relative to
// their own slot address, never absolute addresses, so a buffer may be copied
// anywhere and stays valid. The root value's slot is the last thing resolved,
// so its offset is always len(buf)-rootSize; callers remember the root type
// out of band.
package arcbuf

import (
	"github.com/pkg/errors"
)

var (
	// ErrBufferFull is returned by the writer when MaxSize would be exceeded.
	ErrBufferFull = errors.New("arcbuf: buffer full")
	// ErrLayout is returned when a value's archived layout cannot be
	// computed (overflow, too many elements).
	ErrLayout = errors.New("arcbuf: invalid layout")
	// ErrMalformed is the base error for structural failures found by
	// checked access.
	ErrMalformed = errors.New("arcbuf: malformed buffer")
	// ErrUnsupported is returned by the reflection codec for field types it
	// cannot archive.
	ErrUnsupported = errors.New("arcbuf: unsupported type")
)

// Archive serializes and resolves v as the buffer root using s.
// The returned buffer is s's backing buffer; the root slot occupies its tail.
func Archive[T, A any](s *Serializer, c Codec[T, A], v T) ([]byte, error) {
	r, err := c.Serialize(v, s)
	if err != nil {
		return nil, err
	}
	p, err := s.Reserve(c.Size(), c.Align())
	if err != nil {
		return nil, err
	}
	c.Resolve(v, r, p)
	return s.Bytes(), nil
}

// ToBytes archives v with a fresh serializer and default options.
func ToBytes[T, A any](c Codec[T, A], v T) ([]byte, error) {
	return Archive(NewSerializer(Options{}), c, v)
}

// Access returns the zero-copy view of the buffer root without validating
// the buffer. The caller attests that buf was produced by Archive with the
// same codec; a malformed buffer causes unspecified reads, not errors.
func Access[T, A any](c Codec[T, A], buf []byte) A {
	return c.Access(buf, len(buf)-c.Size())
}

// AccessChecked validates the buffer's structure (bounds, alignment,
// offsets, text encoding) before returning the root view. Malformed input
// yields a descriptive error and never an out-of-range read.
func AccessChecked[T, A any](c Codec[T, A], buf []byte) (A, error) {
	var zero A
	off := len(buf) - c.Size()
	ck := newChecker(buf)
	if err := ck.Range(off, c.Size(), c.Align()); err != nil {
		return zero, errors.Wrap(err, "root")
	}
	if err := c.Check(buf, off, ck); err != nil {
		return zero, errors.Wrap(err, "root")
	}
	return c.Access(buf, off), nil
}

// Deserialize validates buf and rebuilds an owned value from its root.
// Shared pointers inside the buffer deserialize into shared allocations.
func Deserialize[T, A any](c Codec[T, A], buf []byte) (T, error) {
	var zero T
	a, err := AccessChecked(c, buf)
	if err != nil {
		return zero, err
	}
	return c.Deserialize(a, NewDeserializer())
}
