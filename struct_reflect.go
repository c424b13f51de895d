package arcbuf

import (
	"reflect"
	"time"

	"github.com/pkg/errors"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/rawbytedev/arcbuf/internal/common"
)

// StructCodec derives a composite codec for a flat struct type with
// reflection: exported fields of fixed-width primitive, string, []byte,
// primitive-slice or time.Time type archive in declaration order, each at
// an aligned offset inside the struct's slot. The per-type field plan is
// computed once and cached, so repeated archives only pay for the field
// loop. Code generation can replace this for hot types; the buffer layout
// is the same either way.
type StructCodec[T any] struct {
	plan *structPlan
}

// NewStruct builds (or fetches the cached) plan for T. T must be a struct
// type whose exported fields are all archivable; otherwise ErrUnsupported.
func NewStruct[T any]() (StructCodec[T], error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	pl, err := planFor(t)
	if err != nil {
		return StructCodec[T]{}, err
	}
	return StructCodec[T]{plan: pl}, nil
}

func (c StructCodec[T]) Size() int  { return c.plan.size }
func (c StructCodec[T]) Align() int { return c.plan.align }

type structResolver struct {
	rs []Resolver
}

func (c StructCodec[T]) Serialize(v T, s *Serializer) (Resolver, error) {
	rv := reflect.ValueOf(v)
	sr := structResolver{rs: make([]Resolver, len(c.plan.fields))}
	for i, f := range c.plan.fields {
		r, err := f.fc.serialize(rv.Field(f.idx), s)
		if err != nil {
			return nil, errors.Wrapf(err, "field %s", f.name)
		}
		sr.rs[i] = r
	}
	return sr, nil
}

func (c StructCodec[T]) Resolve(v T, r Resolver, p Place) {
	rv := reflect.ValueOf(v)
	sr := r.(structResolver)
	for i, f := range c.plan.fields {
		f.fc.resolve(rv.Field(f.idx), sr.rs[i], p.Field(f.off, f.fc.size()))
	}
}

func (c StructCodec[T]) Access(arena []byte, off int) ArchivedStruct {
	return ArchivedStruct{arena: arena, off: off, plan: c.plan}
}

func (c StructCodec[T]) Deserialize(a ArchivedStruct, d *Deserializer) (T, error) {
	var out T
	rv := reflect.ValueOf(&out).Elem()
	for _, f := range c.plan.fields {
		if err := f.fc.deserialize(a.arena, a.off+f.off, d, rv.Field(f.idx)); err != nil {
			return out, errors.Wrapf(err, "field %s", f.name)
		}
	}
	return out, nil
}

func (c StructCodec[T]) Check(arena []byte, off int, ck *Checker) error {
	for _, f := range c.plan.fields {
		if err := f.fc.check(arena, off+f.off, ck); err != nil {
			return errors.Wrapf(err, "field %s", f.name)
		}
	}
	return nil
}

// ArchivedStruct is the zero-copy view of a reflection-archived struct.
// Fields are addressed by name.
type ArchivedStruct struct {
	arena []byte
	off   int
	plan  *structPlan
}

// Field returns the field's view as an untyped value: int64/uint64 for
// integers, bool, float64, ArchivedString for strings, aliased []byte for
// byte slices, an owned slice for primitive slices, time.Time.
func (a ArchivedStruct) Field(name string) (any, bool) {
	i, ok := a.plan.byName[name]
	if !ok {
		return nil, false
	}
	f := a.plan.fields[i]
	return f.fc.view(a.arena, a.off+f.off), true
}

func (a ArchivedStruct) Uint(name string) uint64 {
	v, _ := a.Field(name)
	return v.(uint64)
}

func (a ArchivedStruct) Int(name string) int64 {
	v, _ := a.Field(name)
	return v.(int64)
}

func (a ArchivedStruct) Float(name string) float64 {
	v, _ := a.Field(name)
	return v.(float64)
}

func (a ArchivedStruct) Bool(name string) bool {
	v, _ := a.Field(name)
	return v.(bool)
}

func (a ArchivedStruct) String(name string) ArchivedString {
	v, _ := a.Field(name)
	return v.(ArchivedString)
}

func (a ArchivedStruct) Bytes(name string) []byte {
	v, _ := a.Field(name)
	return v.([]byte)
}

// ---- plans ----

type structPlan struct {
	size   int
	align  int
	fields []planField
	byName map[string]int
}

type planField struct {
	idx  int
	name string
	off  int
	fc   fieldCodec
}

var plans = xsync.NewMapOf[reflect.Type, *structPlan]()

var timeType = reflect.TypeOf(time.Time{})

func planFor(t reflect.Type) (*structPlan, error) {
	if t.Kind() != reflect.Struct {
		return nil, errors.Wrapf(ErrUnsupported, "%s is not a struct", t)
	}
	if pl, ok := plans.Load(t); ok {
		return pl, nil
	}
	pl := &structPlan{align: 1, byName: make(map[string]int)}
	off := 0
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" && !sf.Anonymous {
			continue // unexported
		}
		fc, err := fieldCodecFor(sf.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "field %s", sf.Name)
		}
		off = common.AlignUp(off, fc.align())
		pl.byName[sf.Name] = len(pl.fields)
		pl.fields = append(pl.fields, planField{idx: i, name: sf.Name, off: off, fc: fc})
		off += fc.size()
		pl.align = max(pl.align, fc.align())
	}
	pl.size = common.AlignUp(off, pl.align)
	plans.Store(t, pl)
	return pl, nil
}

func fieldCodecFor(t reflect.Type) (fieldCodec, error) {
	if t == timeType {
		return fcTime{}, nil
	}
	switch k := t.Kind(); k {
	case reflect.Bool:
		return fcBool{}, nil
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return fcInt{width: fixedWidth(k), signed: true}, nil
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return fcInt{width: fixedWidth(k)}, nil
	case reflect.Float32, reflect.Float64:
		return fcFloat{width: fixedWidth(k)}, nil
	case reflect.String:
		return fcString{}, nil
	case reflect.Slice:
		ek := t.Elem().Kind()
		if ek == reflect.Uint8 {
			return fcBytes{}, nil
		}
		if w := fixedWidth(ek); w > 0 {
			return fcPrimSlice{elem: t.Elem(), kind: ek, width: w}, nil
		}
		return nil, errors.Wrapf(ErrUnsupported, "slice of %s", t.Elem())
	default:
		return nil, errors.Wrapf(ErrUnsupported, "kind %s", k)
	}
}

// fixedWidth maps a fixed-size primitive kind to its archived byte width.
func fixedWidth(k reflect.Kind) int {
	switch k {
	case reflect.Bool, reflect.Int8, reflect.Uint8:
		return 1
	case reflect.Int16, reflect.Uint16:
		return 2
	case reflect.Int32, reflect.Uint32, reflect.Float32:
		return 4
	case reflect.Int64, reflect.Uint64, reflect.Float64:
		return 8
	default:
		return -1
	}
}

// fieldCodec is the reflection bridge to the two-phase protocol: same
// contract as Codec, operating on reflect.Values.
type fieldCodec interface {
	size() int
	align() int
	serialize(v reflect.Value, s *Serializer) (Resolver, error)
	resolve(v reflect.Value, r Resolver, p Place)
	deserialize(arena []byte, off int, d *Deserializer, dst reflect.Value) error
	check(arena []byte, off int, ck *Checker) error
	view(arena []byte, off int) any
}

type fcInt struct {
	width  int
	signed bool
}

func (f fcInt) size() int  { return f.width }
func (f fcInt) align() int { return f.width }

func (fcInt) serialize(reflect.Value, *Serializer) (Resolver, error) { return nil, nil }

func (f fcInt) resolve(v reflect.Value, _ Resolver, p Place) {
	if f.signed {
		p.PutUint(0, uint64(v.Int()), f.width)
	} else {
		p.PutUint(0, v.Uint(), f.width)
	}
}

func (f fcInt) load(arena []byte, off int) uint64 {
	return common.GetUint(arena[off:], f.width)
}

func (f fcInt) deserialize(arena []byte, off int, _ *Deserializer, dst reflect.Value) error {
	u := f.load(arena, off)
	if f.signed {
		// Shift through the top bit to sign-extend the stored width.
		dst.SetInt(int64(u) << (64 - 8*f.width) >> (64 - 8*f.width))
	} else {
		dst.SetUint(u)
	}
	return nil
}

func (fcInt) check([]byte, int, *Checker) error { return nil }

func (f fcInt) view(arena []byte, off int) any {
	u := f.load(arena, off)
	if f.signed {
		return int64(u) << (64 - 8*f.width) >> (64 - 8*f.width)
	}
	return u
}

type fcBool struct{}

func (fcBool) size() int  { return 1 }
func (fcBool) align() int { return 1 }

func (fcBool) serialize(reflect.Value, *Serializer) (Resolver, error) { return nil, nil }

func (fcBool) resolve(v reflect.Value, _ Resolver, p Place) {
	Bool.Resolve(v.Bool(), nil, p)
}

func (fcBool) deserialize(arena []byte, off int, _ *Deserializer, dst reflect.Value) error {
	dst.SetBool(arena[off] != 0)
	return nil
}

func (fcBool) check(arena []byte, off int, ck *Checker) error {
	return Bool.Check(arena, off, ck)
}

func (fcBool) view(arena []byte, off int) any { return arena[off] != 0 }

type fcFloat struct {
	width int
}

func (f fcFloat) size() int  { return f.width }
func (f fcFloat) align() int { return f.width }

func (fcFloat) serialize(reflect.Value, *Serializer) (Resolver, error) { return nil, nil }

func (f fcFloat) resolve(v reflect.Value, _ Resolver, p Place) {
	if f.width == 4 {
		Float32.Resolve(float32(v.Float()), nil, p)
	} else {
		Float64.Resolve(v.Float(), nil, p)
	}
}

func (f fcFloat) load(arena []byte, off int) float64 {
	if f.width == 4 {
		return float64(Float32.Access(arena, off))
	}
	return Float64.Access(arena, off)
}

func (f fcFloat) deserialize(arena []byte, off int, _ *Deserializer, dst reflect.Value) error {
	dst.SetFloat(f.load(arena, off))
	return nil
}

func (fcFloat) check([]byte, int, *Checker) error { return nil }

func (f fcFloat) view(arena []byte, off int) any { return f.load(arena, off) }

type fcString struct{}

func (fcString) size() int  { return String.Size() }
func (fcString) align() int { return String.Align() }

func (fcString) serialize(v reflect.Value, s *Serializer) (Resolver, error) {
	return String.Serialize(v.String(), s)
}

func (fcString) resolve(v reflect.Value, r Resolver, p Place) {
	String.Resolve(v.String(), r, p)
}

func (fcString) deserialize(arena []byte, off int, _ *Deserializer, dst reflect.Value) error {
	dst.SetString(String.Access(arena, off).String())
	return nil
}

func (fcString) check(arena []byte, off int, ck *Checker) error {
	return String.Check(arena, off, ck)
}

func (fcString) view(arena []byte, off int) any {
	return String.Access(arena, off)
}

type fcBytes struct{}

var bytesCodec = NewVec[uint8, uint8](Uint8)

func (fcBytes) size() int  { return bytesCodec.Size() }
func (fcBytes) align() int { return bytesCodec.Align() }

func (fcBytes) serialize(v reflect.Value, s *Serializer) (Resolver, error) {
	return bytesCodec.Serialize(v.Bytes(), s)
}

func (fcBytes) resolve(v reflect.Value, r Resolver, p Place) {
	bytesCodec.Resolve(v.Bytes(), r, p)
}

func rawVecBytes(arena []byte, off, width int) []byte {
	n := int(common.GetUint(arena[off+4:], 4))
	if n == 0 {
		return nil
	}
	pos := ReadRelPtr(arena, off)
	return arena[pos : pos+n*width : pos+n*width]
}

func (fcBytes) deserialize(arena []byte, off int, _ *Deserializer, dst reflect.Value) error {
	raw := rawVecBytes(arena, off, 1)
	if raw == nil {
		return nil
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	dst.SetBytes(out)
	return nil
}

func (fcBytes) check(arena []byte, off int, ck *Checker) error {
	return bytesCodec.Check(arena, off, ck)
}

func (fcBytes) view(arena []byte, off int) any {
	return rawVecBytes(arena, off, 1)
}

// fcPrimSlice archives a slice of fixed-width primitives through the
// generic per-element path, driven by reflection.
type fcPrimSlice struct {
	elem  reflect.Type
	kind  reflect.Kind
	width int
}

type primSliceResolver struct {
	pos int
}

func (fcPrimSlice) size() int  { return 8 }
func (fcPrimSlice) align() int { return 4 }

func (f fcPrimSlice) serialize(v reflect.Value, s *Serializer) (Resolver, error) {
	n := v.Len()
	if n == 0 {
		return primSliceResolver{}, nil
	}
	pos, err := s.Align(f.width)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		p, err := s.Reserve(f.width, f.width)
		if err != nil {
			return nil, err
		}
		e := v.Index(i)
		switch f.kind {
		case reflect.Bool:
			if e.Bool() {
				p.PutByte(0, 1)
			}
		case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			p.PutUint(0, uint64(e.Int()), f.width)
		case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			p.PutUint(0, e.Uint(), f.width)
		case reflect.Float32:
			Float32.Resolve(float32(e.Float()), nil, p)
		case reflect.Float64:
			Float64.Resolve(e.Float(), nil, p)
		}
	}
	return primSliceResolver{pos: pos}, nil
}

func (f fcPrimSlice) resolve(v reflect.Value, r Resolver, p Place) {
	pr := r.(primSliceResolver)
	if v.Len() == 0 {
		ResolveRelPtr(p, 0, p.Pos())
	} else {
		ResolveRelPtr(p, 0, pr.pos)
	}
	p.PutUint(4, uint64(v.Len()), 4)
}

func (f fcPrimSlice) deserialize(arena []byte, off int, _ *Deserializer, dst reflect.Value) error {
	n := int(common.GetUint(arena[off+4:], 4))
	if n == 0 {
		return nil
	}
	out := reflect.MakeSlice(dst.Type(), n, n)
	pos := ReadRelPtr(arena, off)
	for i := 0; i < n; i++ {
		f.setElem(out.Index(i), arena, pos+i*f.width)
	}
	dst.Set(out)
	return nil
}

func (f fcPrimSlice) setElem(dst reflect.Value, arena []byte, off int) {
	u := common.GetUint(arena[off:], f.width)
	switch f.kind {
	case reflect.Bool:
		dst.SetBool(u != 0)
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		dst.SetInt(int64(u) << (64 - 8*f.width) >> (64 - 8*f.width))
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		dst.SetUint(u)
	case reflect.Float32:
		dst.SetFloat(float64(Float32.Access(arena, off)))
	case reflect.Float64:
		dst.SetFloat(Float64.Access(arena, off))
	}
}

func (f fcPrimSlice) check(arena []byte, off int, ck *Checker) error {
	n := int(common.GetUint(arena[off+4:], 4))
	if n == 0 {
		return nil
	}
	if n > (1<<31)/f.width {
		return ck.Failf(off, "length %d overflows layout", n)
	}
	pos := ReadRelPtr(arena, off)
	return ck.Range(pos, n*f.width, f.width)
}

func (f fcPrimSlice) view(arena []byte, off int) any {
	n := int(common.GetUint(arena[off+4:], 4))
	out := reflect.MakeSlice(reflect.SliceOf(f.elem), n, n)
	if n > 0 {
		pos := ReadRelPtr(arena, off)
		for i := 0; i < n; i++ {
			f.setElem(out.Index(i), arena, pos+i*f.width)
		}
	}
	return out.Interface()
}

type fcTime struct{}

func (fcTime) size() int  { return Time.Size() }
func (fcTime) align() int { return Time.Align() }

func (fcTime) serialize(reflect.Value, *Serializer) (Resolver, error) { return nil, nil }

func (fcTime) resolve(v reflect.Value, _ Resolver, p Place) {
	Time.Resolve(v.Interface().(time.Time), nil, p)
}

func (fcTime) deserialize(arena []byte, off int, _ *Deserializer, dst reflect.Value) error {
	dst.Set(reflect.ValueOf(Time.Access(arena, off)))
	return nil
}

func (fcTime) check([]byte, int, *Checker) error { return nil }

func (fcTime) view(arena []byte, off int) any {
	return Time.Access(arena, off)
}
