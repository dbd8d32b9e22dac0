package octant

import (
	"github.com/akmonengine/octant/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// Sub-sector slots, ordered like the sign bits of the octant (X, Y, Z)
const (
	XPositiveYPositiveZPositive = iota
	XPositiveYPositiveZNegative
	XPositiveYNegativeZPositive
	XPositiveYNegativeZNegative
	XNegativeYPositiveZPositive
	XNegativeYPositiveZNegative
	XNegativeYNegativeZPositive
	XNegativeYNegativeZNegative
)

type sectorID int32

type elementID int32

const noSector sectorID = -1

// sector is a node of the octree. It lives in the index arena and refers to its
// parent and children by handle. elements holds every element intersecting the extent,
// only leaves are linked back from the element record.
type sector struct {
	extent   actor.AABB
	depth    int
	slot     int
	parent   sectorID
	children [8]sectorID
	elements map[elementID]struct{}
	live     bool
}

func (s *sector) isLeaf() bool {
	return s.children[0] == noSector
}

func (s *sector) isRoot() bool {
	return s.parent == noSector
}

// SectorInfo is a read-only view of a sector
type SectorInfo struct {
	ID       int
	Extent   actor.AABB
	Depth    int
	Slot     int
	Leaf     bool
	Elements int
}

func (s *sector) info(id sectorID) SectorInfo {
	return SectorInfo{
		ID:       int(id),
		Extent:   s.extent,
		Depth:    s.depth,
		Slot:     s.slot,
		Leaf:     s.isLeaf(),
		Elements: len(s.elements),
	}
}

// childExtent computes the cube of a slot inside parent
func childExtent(parent actor.AABB, slot int) actor.AABB {
	half := parent.Width() * 0.5
	max := parent.Max

	if slot&4 != 0 {
		max[0] -= half
	}
	if slot&2 != 0 {
		max[1] -= half
	}
	if slot&1 != 0 {
		max[2] -= half
	}

	return actor.AABB{Min: max.Sub(mgl64.Vec3{half, half, half}), Max: max}
}

func (idx *Index) allocSector(extent actor.AABB, depth int, parent sectorID, slot int) sectorID {
	s := sector{
		extent:   extent,
		depth:    depth,
		slot:     slot,
		parent:   parent,
		children: [8]sectorID{noSector, noSector, noSector, noSector, noSector, noSector, noSector, noSector},
		live:     true,
	}

	if n := len(idx.freeSectors); n > 0 {
		id := idx.freeSectors[n-1]
		idx.freeSectors = idx.freeSectors[:n-1]

		s.elements = idx.sectors[id].elements
		clear(s.elements)
		idx.sectors[id] = s
		return id
	}

	s.elements = make(map[elementID]struct{})
	idx.sectors = append(idx.sectors, s)
	return sectorID(len(idx.sectors) - 1)
}

func (idx *Index) freeSector(id sectorID) {
	idx.sectors[id].live = false
	clear(idx.sectors[id].elements)
	idx.freeSectors = append(idx.freeSectors, id)
}

// subdivide turns a leaf into 8 children and redistributes its residents
func (idx *Index) subdivide(id sectorID) {
	var children [8]sectorID
	extent := idx.sectors[id].extent
	depth := idx.sectors[id].depth

	// allocSector may grow the arena, idx.sectors[id] is re-read afterwards
	for slot := range children {
		children[slot] = idx.allocSector(childExtent(extent, slot), depth+1, id, slot)
	}
	idx.sectors[id].children = children

	residents := make([]elementID, 0, len(idx.sectors[id].elements))
	for eid := range idx.sectors[id].elements {
		residents = append(residents, eid)
	}

	for _, eid := range residents {
		rec := &idx.records[eid]
		rec.leaves = removeSector(rec.leaves, id)
	}

	instrumentSubdivision(idx.config.Name)

	for _, eid := range residents {
		box := idx.records[eid].box
		for _, child := range children {
			idx.addElement(child, eid, box)
		}
	}
}

// collapse frees every descendant of id, which becomes a leaf again
func (idx *Index) collapse(id sectorID) {
	if idx.sectors[id].isLeaf() {
		return
	}

	children := idx.sectors[id].children
	for _, child := range children {
		idx.collapse(child)
		idx.freeSector(child)
	}

	for i := range idx.sectors[id].children {
		idx.sectors[id].children[i] = noSector
	}

	instrumentCollapse(idx.config.Name)
}

func removeSector(sectors []sectorID, id sectorID) []sectorID {
	for i, s := range sectors {
		if s == id {
			sectors[i] = sectors[len(sectors)-1]
			return sectors[:len(sectors)-1]
		}
	}
	return sectors
}
