package systems

import (
	"github.com/dhconnelly/rtreego"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/ecotile/components"
)

// pointTolerance is the half-size of the box each point is stored as.
const pointTolerance = 1e-9

// R-tree branching bounds.
const (
	treeMinChildren = 8
	treeMaxChildren = 32
)

// nearestEntry is the R-tree record for one entity. The rect is fixed for
// the lifetime of the record so deletes can locate it.
type nearestEntry struct {
	e    ecs.Entity
	pos  components.Position
	rect rtreego.Rect
}

func (n *nearestEntry) Bounds() rtreego.Rect {
	return n.rect
}

func newNearestEntry(e ecs.Entity, p components.Position) *nearestEntry {
	return &nearestEntry{
		e:    e,
		pos:  p,
		rect: rtreego.Point{p.X, p.Y}.ToRect(pointTolerance),
	}
}

// NearestIndex answers closest-entity queries for one agent kind.
// Distances are Euclidean and do not fold across arena edges.
type NearestIndex struct {
	tree    *rtreego.Rtree
	entries map[ecs.Entity]*nearestEntry
}

// NewNearestIndex creates an empty index.
func NewNearestIndex() *NearestIndex {
	return &NearestIndex{
		tree:    rtreego.NewTree(2, treeMinChildren, treeMaxChildren),
		entries: make(map[ecs.Entity]*nearestEntry),
	}
}

// Len returns the number of indexed entities.
func (idx *NearestIndex) Len() int {
	return len(idx.entries)
}

// Insert adds e at p. Inserting an entity twice moves it.
func (idx *NearestIndex) Insert(e ecs.Entity, p components.Position) {
	if _, ok := idx.entries[e]; ok {
		idx.Move(e, p)
		return
	}
	entry := newNearestEntry(e, p)
	idx.entries[e] = entry
	idx.tree.Insert(entry)
}

// Move updates the indexed position of e.
func (idx *NearestIndex) Move(e ecs.Entity, p components.Position) {
	old, ok := idx.entries[e]
	if !ok {
		idx.Insert(e, p)
		return
	}
	if old.pos == p {
		return
	}
	idx.tree.Delete(old)
	entry := newNearestEntry(e, p)
	idx.entries[e] = entry
	idx.tree.Insert(entry)
}

// Remove drops e from the index. Unknown entities are ignored.
func (idx *NearestIndex) Remove(e ecs.Entity) {
	old, ok := idx.entries[e]
	if !ok {
		return
	}
	idx.tree.Delete(old)
	delete(idx.entries, e)
}

// Nearest returns the indexed entity closest to p, skipping exclude.
func (idx *NearestIndex) Nearest(p components.Position, exclude ecs.Entity) (ecs.Entity, bool) {
	if len(idx.entries) == 0 {
		return ecs.Entity{}, false
	}
	if _, self := idx.entries[exclude]; !self {
		if hit, ok := idx.tree.NearestNeighbor(rtreego.Point{p.X, p.Y}).(*nearestEntry); ok {
			return hit.e, true
		}
		return ecs.Entity{}, false
	}

	for _, s := range idx.tree.NearestNeighbors(2, rtreego.Point{p.X, p.Y}) {
		hit, ok := s.(*nearestEntry)
		if !ok || hit.e == exclude {
			continue
		}
		return hit.e, true
	}
	return ecs.Entity{}, false
}
