// Package btree encodes ordered maps and sets directly into archive
// buffers as balanced, node-chunked search trees. Lookup runs on the raw
// bytes in O(log n) comparisons with zero allocation; no structure is ever
// rebuilt or rebalanced after encoding.
//
// The encoder consumes entries in strictly increasing key order and builds
// the tree bottom-up: leaves are written first so that every higher node
// can resolve relative pointers to children that already have final
// offsets. Balance falls out of construction; the archived form never
// mutates.
package btree

import (
	"github.com/pkg/errors"

	"github.com/rawbytedev/arcbuf"
	"github.com/rawbytedev/arcbuf/internal/common"
)

// Fanout is the fixed node capacity. A node holds up to Fanout entries
// (leaf) or up to Fanout children with their separator keys (internal).
const Fanout = 8

// Entry is one key/value pair of the live map representation. MapCodec
// archives a []Entry sorted by strictly increasing key; the slice is the
// ordered iterator the encoder trusts.
type Entry[K, V any] struct {
	Key K
	Val V
}

// MapCodec archives an ordered map. The slot is 12 bytes: root rel(i32) +
// len(u32) + height(u16) + pad. Keys must archive with an order that
// agrees with the live order (the Ordered contract); raw-byte lookup
// compares archived keys only.
type MapCodec[K, AK, V, AV any] struct {
	key arcbuf.Ordered[K, AK]
	val arcbuf.Codec[V, AV]
	lay layout
}

// NewMap builds the ordered map codec from a key codec and a value codec.
func NewMap[K, AK, V, AV any](key arcbuf.Ordered[K, AK], val arcbuf.Codec[V, AV]) MapCodec[K, AK, V, AV] {
	return MapCodec[K, AK, V, AV]{
		key: key,
		val: val,
		lay: layoutFor(key.Size(), key.Align(), val.Size(), val.Align()),
	}
}

// layout captures the node geometry for one key/value type pair.
type layout struct {
	kSize, vSize int

	// leaf nodes: count(u16), then entries of (key, value)
	leafHdr    int
	leafStride int
	kvOff      int
	leafAlign  int

	// internal nodes: count(u16), then entries of (key, child rel ptr)
	intHdr    int
	intStride int
	childOff  int
	intAlign  int
}

func layoutFor(kSize, kAlign, vSize, vAlign int) layout {
	var l layout
	l.kSize, l.vSize = kSize, vSize

	entryAlign := max(kAlign, vAlign)
	l.leafAlign = max(2, entryAlign)
	l.leafHdr = common.AlignUp(2, entryAlign)
	l.kvOff = common.AlignUp(kSize, vAlign)
	l.leafStride = common.AlignUp(l.kvOff+vSize, entryAlign)

	ieAlign := max(kAlign, 4)
	l.intAlign = max(2, ieAlign)
	l.intHdr = common.AlignUp(2, ieAlign)
	l.childOff = common.AlignUp(kSize, 4)
	l.intStride = common.AlignUp(l.childOff+4, ieAlign)
	return l
}

type mapResolver struct {
	root   int
	height int
}

func (MapCodec[K, AK, V, AV]) Size() int  { return 12 }
func (MapCodec[K, AK, V, AV]) Align() int { return 4 }

// childRef tracks a finished node while the level above is being built.
type childRef struct {
	pos   int // node offset in the buffer
	first int // index of the subtree's smallest entry
}

func (c MapCodec[K, AK, V, AV]) Serialize(v []Entry[K, V], s *arcbuf.Serializer) (arcbuf.Resolver, error) {
	n := len(v)
	if n == 0 {
		return mapResolver{}, nil
	}
	if n > 1<<32-1 {
		return nil, errors.Errorf("btree: map of %d entries exceeds length field", n)
	}

	// Phase one: serialize every key and value, collecting resolvers.
	krs := s.Scratch(n)
	defer s.Release(krs)
	vrs := s.Scratch(n)
	defer s.Release(vrs)
	for i := range v {
		kr, err := c.key.Serialize(v[i].Key, s)
		if err != nil {
			return nil, errors.Wrapf(err, "btree: key %d", i)
		}
		vr, err := c.val.Serialize(v[i].Val, s)
		if err != nil {
			return nil, errors.Wrapf(err, "btree: value %d", i)
		}
		krs[i], vrs[i] = kr, vr
	}

	// Phase two: leaves, in key order.
	level := make([]childRef, 0, (n+Fanout-1)/Fanout)
	for start := 0; start < n; start += Fanout {
		cnt := min(Fanout, n-start)
		node, err := s.Reserve(c.lay.leafHdr+cnt*c.lay.leafStride, c.lay.leafAlign)
		if err != nil {
			return nil, err
		}
		node.PutUint(0, uint64(cnt), 2)
		for j := 0; j < cnt; j++ {
			i := start + j
			slot := c.lay.leafHdr + j*c.lay.leafStride
			c.key.Resolve(v[i].Key, krs[i], node.Field(slot, c.lay.kSize))
			c.val.Resolve(v[i].Val, vrs[i], node.Field(slot+c.lay.kvOff, c.lay.vSize))
		}
		level = append(level, childRef{pos: node.Pos(), first: start})
	}

	// Higher levels, bottom-up, until a single root remains. Separator
	// keys are the smallest key of each child subtree; resolvers are
	// single-use, so separators re-serialize their out-of-line data.
	height := 1
	for len(level) > 1 {
		next := make([]childRef, 0, (len(level)+Fanout-1)/Fanout)
		for start := 0; start < len(level); start += Fanout {
			cnt := min(Fanout, len(level)-start)
			srs := s.Scratch(cnt)
			for j := 0; j < cnt; j++ {
				r, err := c.key.Serialize(v[level[start+j].first].Key, s)
				if err != nil {
					s.Release(srs)
					return nil, errors.Wrap(err, "btree: separator key")
				}
				srs[j] = r
			}
			node, err := s.Reserve(c.lay.intHdr+cnt*c.lay.intStride, c.lay.intAlign)
			if err != nil {
				s.Release(srs)
				return nil, err
			}
			node.PutUint(0, uint64(cnt), 2)
			for j := 0; j < cnt; j++ {
				slot := c.lay.intHdr + j*c.lay.intStride
				c.key.Resolve(v[level[start+j].first].Key, srs[j], node.Field(slot, c.lay.kSize))
				arcbuf.ResolveRelPtr(node, slot+c.lay.childOff, level[start+j].pos)
			}
			s.Release(srs)
			next = append(next, childRef{pos: node.Pos(), first: level[start].first})
		}
		level = next
		height++
	}

	return mapResolver{root: level[0].pos, height: height}, nil
}

func (c MapCodec[K, AK, V, AV]) Resolve(v []Entry[K, V], r arcbuf.Resolver, p arcbuf.Place) {
	mr := r.(mapResolver)
	if len(v) == 0 {
		arcbuf.ResolveRelPtr(p, 0, p.Pos())
	} else {
		arcbuf.ResolveRelPtr(p, 0, mr.root)
	}
	p.PutUint(4, uint64(len(v)), 4)
	p.PutUint(8, uint64(mr.height), 2)
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
			visitErr = errors.Wrap(err, "btree: key")
			return false
		}
		v, err := c.val.Deserialize(av, d)
		if err != nil {
			visitErr = errors.Wrap(err, "btree: value")
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
	height := int(common.GetUint(arena[off+8:], 2))
	if n == 0 {
		return nil
	}
	if height == 0 || height > 64 {
		return ck.Failf(off, "btree of %d entries with height %d", n, height)
	}
	root := arcbuf.ReadRelPtr(arena, off)
	seen, err := c.checkNode(arena, root, height, ck)
	if err != nil {
		return err
	}
	if seen != n {
		return ck.Failf(off, "btree length %d but %d reachable entries", n, seen)
	}
	return nil
}

func (c MapCodec[K, AK, V, AV]) checkNode(arena []byte, pos, level int, ck *arcbuf.Checker) (int, error) {
	hdr, stride, align := c.lay.intHdr, c.lay.intStride, c.lay.intAlign
	if level == 1 {
		hdr, stride, align = c.lay.leafHdr, c.lay.leafStride, c.lay.leafAlign
	}
	if err := ck.Range(pos, hdr, align); err != nil {
		return 0, err
	}
	cnt := int(common.GetUint(arena[pos:], 2))
	if cnt == 0 || cnt > Fanout {
		return 0, ck.Failf(pos, "node count %d", cnt)
	}
	if err := ck.Range(pos+hdr, cnt*stride, 1); err != nil {
		return 0, err
	}
	seen := 0
	for j := 0; j < cnt; j++ {
		slot := pos + hdr + j*stride
		if err := c.key.Check(arena, slot, ck); err != nil {
			return 0, errors.Wrapf(err, "node key %d", j)
		}
		if level == 1 {
			if err := c.val.Check(arena, slot+c.lay.kvOff, ck); err != nil {
				return 0, errors.Wrapf(err, "leaf value %d", j)
			}
			seen++
		} else {
			child := arcbuf.ReadRelPtr(arena, slot+c.lay.childOff)
			sub, err := c.checkNode(arena, child, level-1, ck)
			if err != nil {
				return 0, err
			}
			seen += sub
		}
	}
	return seen, nil
}
