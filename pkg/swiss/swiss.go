// Package swiss encodes hash maps and sets directly into archive buffers
// as open-addressing tables. The load factor is fixed at encode time, one
// control byte per bucket records occupancy and a hash fragment, and
// raw-byte lookup probes in the same deterministic order construction
// used. The table never resizes or rehashes: capacity and bucket
// assignment are immutable once archived.
package swiss

import (
	"github.com/pkg/errors"

	"github.com/rawbytedev/arcbuf"
	"github.com/rawbytedev/arcbuf/internal/common"
)

// Load factor 7/8: a bucket array of ceil(8n/7) slots. Dense, optimizing
// size over probe length; a design constant, not a knob.
const (
	LoadFactorNum = 7
	LoadFactorDen = 8
)

// emptyCtrl marks an unoccupied bucket. Occupied buckets store the top
// seven bits of the key's hash, always < 0x80.
const emptyCtrl = 0x80

// Entry is one key/value pair of the live map representation. Order is
// irrelevant; keys must be distinct.
type Entry[K, V any] struct {
	Key K
	Val V
}

// MapCodec archives a hash map. The slot is 12 bytes: table rel(i32) +
// len(u32) + cap(u32). The table itself is cap control bytes followed by
// cap padded entry slots. Keys hash with a buffer-stable function (the
// Hashed contract), so any process reading the buffer probes identically.
type MapCodec[K, AK, V, AV any] struct {
	key arcbuf.Hashed[K, AK]
	val arcbuf.Codec[V, AV]
	lay layout
}

func NewMap[K, AK, V, AV any](key arcbuf.Hashed[K, AK], val arcbuf.Codec[V, AV]) MapCodec[K, AK, V, AV] {
	return MapCodec[K, AK, V, AV]{
		key: key,
		val: val,
		lay: layoutFor(key.Size(), key.Align(), val.Size(), val.Align()),
	}
}

type layout struct {
	kSize, vSize int
	kvOff        int // value offset within an entry slot
	stride       int
	entryAlign   int
}

func layoutFor(kSize, kAlign, vSize, vAlign int) layout {
	var l layout
	l.kSize, l.vSize = kSize, vSize
	l.entryAlign = max(1, kAlign, vAlign)
	l.kvOff = common.AlignUp(kSize, max(1, vAlign))
	l.stride = common.AlignUp(l.kvOff+vSize, l.entryAlign)
	return l
}

// capacityFor is ceil(n / (7/8)) = ceil(8n/7). Always leaves at least one
// empty bucket, which bounds every probe sequence.
func capacityFor(n int) int {
	return (n*LoadFactorDen + LoadFactorNum - 1) / LoadFactorNum
}

// entriesOff is the table-relative offset of the entry array: control
// bytes first, padded up to entry alignment.
func (l layout) entriesOff(capacity int) int {
	return common.AlignUp(capacity, l.entryAlign)
}

func h2(h uint64) byte { return byte(h >> 57) }

type mapResolver struct {
	table    int
	capacity int
}

func (MapCodec[K, AK, V, AV]) Size() int  { return 12 }
func (MapCodec[K, AK, V, AV]) Align() int { return 4 }

func (c MapCodec[K, AK, V, AV]) Serialize(v []Entry[K, V], s *arcbuf.Serializer) (arcbuf.Resolver, error) {
	n := len(v)
	if n == 0 {
		return mapResolver{}, nil
	}
	if n > 1<<32-1 {
		return nil, errors.Errorf("swiss: map of %d entries exceeds length field", n)
	}

	// Phase one: out-of-line data for every key and value.
	krs := s.Scratch(n)
	defer s.Release(krs)
	vrs := s.Scratch(n)
	defer s.Release(vrs)
	for i := range v {
		kr, err := c.key.Serialize(v[i].Key, s)
		if err != nil {
			return nil, errors.Wrapf(err, "swiss: key %d", i)
		}
		vr, err := c.val.Serialize(v[i].Val, s)
		if err != nil {
			return nil, errors.Wrapf(err, "swiss: value %d", i)
		}
		krs[i], vrs[i] = kr, vr
	}

	// Bucket assignment: hash, then linear probe to the first free slot.
	capacity := capacityFor(n)
	hashes := make([]uint64, n)
	buckets := make([]int, capacity)
	for i := range buckets {
		buckets[i] = -1
	}
	for i := range v {
		h := c.key.Sum64(v[i].Key)
		hashes[i] = h
		idx := int(h % uint64(capacity))
		for buckets[idx] >= 0 {
			idx++
			if idx == capacity {
				idx = 0
			}
		}
		buckets[idx] = i
	}

	// Phase two: the table. Control bytes, then resolved entry slots.
	entriesOff := c.lay.entriesOff(capacity)
	table, err := s.Reserve(entriesOff+capacity*c.lay.stride, max(c.lay.entryAlign, 4))
	if err != nil {
		return nil, err
	}
	for idx, i := range buckets {
		if i < 0 {
			table.PutByte(idx, emptyCtrl)
			continue
		}
		table.PutByte(idx, h2(hashes[i]))
		slot := entriesOff + idx*c.lay.stride
		c.key.Resolve(v[i].Key, krs[i], table.Field(slot, c.lay.kSize))
		c.val.Resolve(v[i].Val, vrs[i], table.Field(slot+c.lay.kvOff, c.lay.vSize))
	}
	return mapResolver{table: table.Pos(), capacity: capacity}, nil
}

func (c MapCodec[K, AK, V, AV]) Resolve(v []Entry[K, V], r arcbuf.Resolver, p arcbuf.Place) {
	mr := r.(mapResolver)
	if len(v) == 0 {
		arcbuf.ResolveRelPtr(p, 0, p.Pos())
	} else {
		arcbuf.ResolveRelPtr(p, 0, mr.table)
	}
	p.PutUint(4, uint64(len(v)), 4)
	p.PutUint(8, uint64(mr.capacity), 4)
}

func (c MapCodec[K, AK, V, AV]) Access(arena []byte, off int) ArchivedMap[K, AK, V, AV] {
	return ArchivedMap[K, AK, V, AV]{arena: arena, off: off, c: c}
}

func (c MapCodec[K, AK, V, AV]) Deserialize(a ArchivedMap[K, AK, V, AV], d *arcbuf.Deserializer) ([]Entry[K, V], error) {
	out := make([]Entry[K, V], 0, a.Len())
	var visitErr error
	a.Visit(func(ak AK, av AV) bool {
		k, err := c.key.Deserialize(ak, d)
		if err != nil {
			visitErr = errors.Wrap(err, "swiss: key")
			return false
		}
		v, err := c.val.Deserialize(av, d)
		if err != nil {
			visitErr = errors.Wrap(err, "swiss: value")
			return false
		}
		out = append(out, Entry[K, V]{Key: k, Val: v})
		return true
	})
	if visitErr != nil {
		return nil, visitErr
	}
	return out, nil
}

func (c MapCodec[K, AK, V, AV]) Check(arena []byte, off int, ck *arcbuf.Checker) error {
	n := int(common.GetUint(arena[off+4:], 4))
	capacity := int(common.GetUint(arena[off+8:], 4))
	if n == 0 {
		return nil
	}
	if capacity < n || capacity > capacityFor(n) {
		return ck.Failf(off, "swiss table of %d entries with capacity %d", n, capacity)
	}
	table := arcbuf.ReadRelPtr(arena, off)
	entriesOff := c.lay.entriesOff(capacity)
	if err := ck.Range(table, entriesOff+capacity*c.lay.stride, max(c.lay.entryAlign, 4)); err != nil {
		return err
	}
	occupied := 0
	for idx := 0; idx < capacity; idx++ {
		ctrl := arena[table+idx]
		if ctrl == emptyCtrl {
			continue
		}
		if ctrl > emptyCtrl {
			return ck.Failf(table+idx, "invalid control byte %#x", ctrl)
		}
		occupied++
		slot := table + entriesOff + idx*c.lay.stride
		if err := c.key.Check(arena, slot, ck); err != nil {
			return errors.Wrapf(err, "bucket %d key", idx)
		}
		if err := c.val.Check(arena, slot+c.lay.kvOff, ck); err != nil {
			return errors.Wrapf(err, "bucket %d value", idx)
		}
	}
	if occupied != n {
		return ck.Failf(off, "swiss length %d but %d occupied buckets", n, occupied)
	}
	return nil
}

// ArchivedMap is the zero-copy view of an archived hash map.
type ArchivedMap[K, AK, V, AV any] struct {
	arena []byte
	off   int
	c     MapCodec[K, AK, V, AV]
}

func (m ArchivedMap[K, AK, V, AV]) Len() int {
	return int(common.GetUint(m.arena[m.off+4:], 4))
}

// Cap is the archived bucket capacity.
func (m ArchivedMap[K, AK, V, AV]) Cap() int {
	return int(common.GetUint(m.arena[m.off+8:], 4))
}

// Get probes for k exactly the way construction placed it: start at
// hash mod capacity, step linearly, stop at the first empty bucket or a
// control-byte and key match. At most capacity probes.
func (m ArchivedMap[K, AK, V, AV]) Get(k K) (AV, bool) {
	var zero AV
	capacity := m.Cap()
	if m.Len() == 0 || capacity == 0 {
		return zero, false
	}
	lay := m.c.lay
	table := arcbuf.ReadRelPtr(m.arena, m.off)
	entriesOff := lay.entriesOff(capacity)
	h := m.c.key.Sum64(k)
	want := h2(h)
	idx := int(h % uint64(capacity))
	for probes := 0; probes < capacity; probes++ {
		ctrl := m.arena[table+idx]
		if ctrl == emptyCtrl {
			return zero, false
		}
		if ctrl == want {
			slot := table + entriesOff + idx*lay.stride
			if m.c.key.Eq(k, m.c.key.Access(m.arena, slot)) {
				return m.c.val.Access(m.arena, slot+lay.kvOff), true
			}
		}
		idx++
		if idx == capacity {
			idx = 0
		}
	}
	return zero, false
}

// EqualEntries reports whether the archived map holds exactly the given
// live entries, in any order.
func (m ArchivedMap[K, AK, V, AV]) EqualEntries(entries []Entry[K, V], valEq func(v V, a AV) bool) bool {
	if m.Len() != len(entries) {
		return false
	}
	for _, e := range entries {
		av, ok := m.Get(e.Key)
		if !ok || !valEq(e.Val, av) {
			return false
		}
	}
	return true
}

// Visit walks all occupied buckets in table order.
func (m ArchivedMap[K, AK, V, AV]) Visit(f func(k AK, v AV) bool) {
	capacity := m.Cap()
	if m.Len() == 0 || capacity == 0 {
		return
	}
	lay := m.c.lay
	table := arcbuf.ReadRelPtr(m.arena, m.off)
	entriesOff := lay.entriesOff(capacity)
	for idx := 0; idx < capacity; idx++ {
		if m.arena[table+idx] == emptyCtrl {
			continue
		}
		slot := table + entriesOff + idx*lay.stride
		if !f(m.c.key.Access(m.arena, slot), m.c.val.Access(m.arena, slot+lay.kvOff)) {
			return
		}
	}
}
