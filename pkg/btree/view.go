package btree

import (
	"github.com/rawbytedev/arcbuf"
	"github.com/rawbytedev/arcbuf/internal/common"
)

// ArchivedMap is the zero-copy view of an archived ordered map. Lookups
// and traversal run directly on the buffer bytes.
type ArchivedMap[K, AK, V, AV any] struct {
	arena []byte
	off   int
	c     MapCodec[K, AK, V, AV]
}

func (m ArchivedMap[K, AK, V, AV]) Len() int {
	return int(common.GetUint(m.arena[m.off+4:], 4))
}

// Height is the number of node levels; 1 means the root is a leaf.
func (m ArchivedMap[K, AK, V, AV]) Height() int {
	return int(common.GetUint(m.arena[m.off+8:], 2))
}

func (m ArchivedMap[K, AK, V, AV]) nodeCount(pos int) int {
	return int(common.GetUint(m.arena[pos:], 2))
}

// Get finds the value archived under k, descending from the root with an
// ordered search inside each node. O(log n) comparisons, no allocation.
func (m ArchivedMap[K, AK, V, AV]) Get(k K) (AV, bool) {
	var zero AV
	if m.Len() == 0 {
		return zero, false
	}
	lay := m.c.lay
	pos := arcbuf.ReadRelPtr(m.arena, m.off)
	for level := m.Height(); level > 1; level-- {
		cnt := m.nodeCount(pos)
		// Greatest separator <= k; k below the subtree minimum is absent.
		lo, hi := 0, cnt // invariant: answer in [lo-1, hi-1]
		for lo < hi {
			mid := (lo + hi) / 2
			ak := m.c.key.Access(m.arena, pos+lay.intHdr+mid*lay.intStride)
			if m.c.key.Compare(k, ak) >= 0 {
				lo = mid + 1
			} else {
				hi = mid
			}
		}
		if lo == 0 {
			return zero, false
		}
		pos = arcbuf.ReadRelPtr(m.arena, pos+lay.intHdr+(lo-1)*lay.intStride+lay.childOff)
	}
	cnt := m.nodeCount(pos)
	lo, hi := 0, cnt
	for lo < hi {
		mid := (lo + hi) / 2
		slot := pos + lay.leafHdr + mid*lay.leafStride
		switch c := m.c.key.Compare(k, m.c.key.Access(m.arena, slot)); {
		case c == 0:
			return m.c.val.Access(m.arena, slot+lay.kvOff), true
		case c < 0:
			hi = mid
		default:
			lo = mid + 1
		}
	}
	return zero, false
}

// Visit walks all entries in key order, calling f until it returns false.
func (m ArchivedMap[K, AK, V, AV]) Visit(f func(k AK, v AV) bool) {
	if m.Len() == 0 {
		return
	}
	m.visitNode(arcbuf.ReadRelPtr(m.arena, m.off), m.Height(), f)
}

func (m ArchivedMap[K, AK, V, AV]) visitNode(pos, level int, f func(k AK, v AV) bool) bool {
	lay := m.c.lay
	cnt := m.nodeCount(pos)
	for j := 0; j < cnt; j++ {
		if level == 1 {
			slot := pos + lay.leafHdr + j*lay.leafStride
			if !f(m.c.key.Access(m.arena, slot), m.c.val.Access(m.arena, slot+lay.kvOff)) {
				return false
			}
		} else {
			child := arcbuf.ReadRelPtr(m.arena, pos+lay.intHdr+j*lay.intStride+lay.childOff)
			if !m.visitNode(child, level-1, f) {
				return false
			}
		}
	}
	return true
}

// EqualEntries reports whether the archived map holds exactly the given
// live entries in the same order.
func (m ArchivedMap[K, AK, V, AV]) EqualEntries(entries []Entry[K, V], valEq func(v V, a AV) bool) bool {
	if m.Len() != len(entries) {
		return false
	}
	i := 0
	equal := true
	m.Visit(func(ak AK, av AV) bool {
		e := entries[i]
		i++
		if m.c.key.Compare(e.Key, ak) != 0 || !valEq(e.Val, av) {
			equal = false
			return false
		}
		return true
	})
	return equal
}
