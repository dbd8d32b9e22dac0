package octant

import (
	"slices"
	"sync"

	"github.com/akmonengine/octant/actor"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// record is the index side of an element: the box it was filed with and its leaves
type record struct {
	entity *actor.Entity
	box    actor.AABB
	leaves []sectorID
	seq    uint64
	live   bool
}

// Index is an octree over the world cube [-Boundary, Boundary]³.
// Mutations and iterations are serialized by a single lock per index.
type Index struct {
	mutex  sync.RWMutex
	config IndexConfig

	sectors     []sector
	freeSectors []sectorID
	root        sectorID

	records     []record
	freeRecords []elementID
	byEntity    map[uuid.UUID]elementID
	seq         uint64
}

// NewIndex creates an index with an empty root leaf. It fails on an invalid
// configuration, in which case no index is created.
func NewIndex(config IndexConfig) (*Index, error) {
	config, err := config.withDefaults()
	if err != nil {
		instrumentIndexError(config.Name, err)
		return nil, err
	}

	idx := &Index{config: config}
	idx.reset()

	logs.WithTag("index", config.Name).
		WithTag("boundary", config.Boundary).
		WithTag("max_elements", config.MaxElementsPerSector).
		Debug("octree index created")

	return idx, nil
}

func (idx *Index) reset() {
	hint := idx.config.ReserveHint

	idx.sectors = make([]sector, 0, 1+hint/max(1, idx.config.MaxElementsPerSector)*8)
	idx.freeSectors = idx.freeSectors[:0]
	idx.records = make([]record, 0, hint)
	idx.freeRecords = idx.freeRecords[:0]
	idx.byEntity = make(map[uuid.UUID]elementID, hint)

	b := idx.config.Boundary
	idx.root = idx.allocSector(actor.AABB{
		Min: mgl64.Vec3{-b, -b, -b},
		Max: mgl64.Vec3{b, b, b},
	}, 0, noSector, -1)

	instrumentIndexSize(idx.config.Name, 0, 1)
}

func (idx *Index) Config() IndexConfig {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	return idx.config
}

func (idx *Index) Boundary() float64 {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	return idx.config.Boundary
}

// Insert files the entity in every leaf its collision box intersects
func (idx *Index) Insert(entity *actor.Entity) error {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	if _, ok := idx.byEntity[entity.ID]; ok {
		return idx.reject(errors.New("element already in the index").
			WithType(ErrTypeDuplicateElement).
			WithTag("entity", entity.ID))
	}

	if err := idx.insert(entity); err != nil {
		return idx.reject(err)
	}

	idx.instrumentSize()
	return nil
}

// Update re-files an entity that moved. The previous leaves are released first so the
// entity is never registered twice.
func (idx *Index) Update(entity *actor.Entity) error {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	eid, ok := idx.byEntity[entity.ID]
	if !ok {
		return idx.reject(errors.New("element not in the index").
			WithType(ErrTypeUnknownElement).
			WithTag("entity", entity.ID))
	}

	if err := idx.update(eid); err != nil {
		return idx.reject(err)
	}

	idx.instrumentSize()
	return nil
}

// CheckLocation inserts the entity when it is new and updates it otherwise
func (idx *Index) CheckLocation(entity *actor.Entity) error {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	var err error
	if eid, ok := idx.byEntity[entity.ID]; ok {
		err = idx.update(eid)
	} else {
		err = idx.insert(entity)
	}
	if err != nil {
		return idx.reject(err)
	}

	idx.instrumentSize()
	return nil
}

// Erase removes the entity from every sector. Erasing an unknown entity is a reported no-op.
func (idx *Index) Erase(entity *actor.Entity) error {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	eid, ok := idx.byEntity[entity.ID]
	if !ok {
		return idx.reject(errors.New("element not in the index").
			WithType(ErrTypeUnknownElement).
			WithTag("entity", entity.ID))
	}

	previous := idx.detach(eid)
	idx.collapseEmpty(previous)

	delete(idx.byEntity, entity.ID)
	idx.records[eid] = record{}
	idx.freeRecords = append(idx.freeRecords, eid)

	idx.instrumentSize()
	return nil
}

// Contains reports whether the entity is still linked to at least one leaf
func (idx *Index) Contains(entity *actor.Entity) bool {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	eid, ok := idx.byEntity[entity.ID]
	return ok && len(idx.records[eid].leaves) > 0
}

func (idx *Index) Len() int {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	return len(idx.byEntity)
}

// Rebuild replaces the tree with a fresh root at the current boundary. With keepElements,
// every tracked entity is filed again at its current location.
func (idx *Index) Rebuild(keepElements bool) {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	idx.rebuild(keepElements)
}

// SetBoundary changes the world half width and rebuilds the tree
func (idx *Index) SetBoundary(boundary float64, keepElements bool) error {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	config := idx.config
	config.Boundary = boundary
	config, err := config.withDefaults()
	if err != nil {
		return idx.reject(err)
	}

	idx.config = config
	idx.rebuild(keepElements)
	return nil
}

func (idx *Index) rebuild(keepElements bool) {
	var entities []*actor.Entity
	if keepElements {
		entities = idx.elements()
	}

	idx.reset()

	for _, entity := range entities {
		if err := idx.insert(entity); err != nil {
			logs.Warn(errors.New("dropping element on rebuild").
				WithTag("index", idx.config.Name).
				Wrap(err))
		}
	}

	idx.instrumentSize()
	logs.WithTag("index", idx.config.Name).
		WithTag("elements", len(idx.byEntity)).
		Debug("octree index rebuilt")
}

// Elements returns the tracked entities in insertion order
func (idx *Index) Elements() []*actor.Entity {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	return idx.elements()
}

func (idx *Index) elements() []*actor.Entity {
	ids := make([]elementID, 0, len(idx.byEntity))
	for _, eid := range idx.byEntity {
		ids = append(ids, eid)
	}
	idx.sortBySequence(ids)

	entities := make([]*actor.Entity, len(ids))
	for i, eid := range ids {
		entities[i] = idx.records[eid].entity
	}
	return entities
}

// Query returns the entities whose current collision box overlaps region
func (idx *Index) Query(region actor.AABB) []*actor.Entity {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	found := make(map[elementID]struct{})
	idx.query(idx.root, region, found)

	ids := make([]elementID, 0, len(found))
	for eid := range found {
		ids = append(ids, eid)
	}
	idx.sortBySequence(ids)

	entities := make([]*actor.Entity, 0, len(ids))
	for _, eid := range ids {
		entity := idx.records[eid].entity
		if entity.CollisionBox().Overlaps(region) {
			entities = append(entities, entity)
		}
	}
	return entities
}

func (idx *Index) query(id sectorID, region actor.AABB, found map[elementID]struct{}) {
	s := &idx.sectors[id]
	if len(s.elements) == 0 || !s.extent.Overlaps(region) {
		return
	}

	if s.isLeaf() {
		for eid := range s.elements {
			found[eid] = struct{}{}
		}
		return
	}

	for _, child := range s.children {
		idx.query(child, region, found)
	}
}

// LeafSectorsOf returns the leaves the entity is linked to
func (idx *Index) LeafSectorsOf(entity *actor.Entity) []SectorInfo {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	eid, ok := idx.byEntity[entity.ID]
	if !ok {
		return nil
	}

	leaves := make([]SectorInfo, 0, len(idx.records[eid].leaves))
	for _, id := range idx.records[eid].leaves {
		leaves = append(leaves, idx.sectors[id].info(id))
	}
	slices.SortFunc(leaves, func(a, b SectorInfo) int { return a.ID - b.ID })
	return leaves
}

// MainSector returns the smallest sector fully containing the entity
func (idx *Index) MainSector(entity *actor.Entity) (SectorInfo, bool) {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	eid, ok := idx.byEntity[entity.ID]
	if !ok {
		return SectorInfo{}, false
	}

	box := idx.records[eid].box
	current := idx.root
	if !idx.sectors[current].extent.Contains(box) {
		return idx.sectors[current].info(current), true
	}

	for !idx.sectors[current].isLeaf() {
		next := noSector
		for _, child := range idx.sectors[current].children {
			if idx.sectors[child].extent.Contains(box) {
				next = child
				break
			}
		}
		if next == noSector {
			break
		}
		current = next
	}

	return idx.sectors[current].info(current), true
}

// Walk visits the sectors depth first. Returning false skips the children of a sector.
func (idx *Index) Walk(fn func(SectorInfo) bool) {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	idx.walk(idx.root, fn)
}

func (idx *Index) walk(id sectorID, fn func(SectorInfo) bool) {
	s := &idx.sectors[id]
	if !fn(s.info(id)) || s.isLeaf() {
		return
	}

	for _, child := range s.children {
		idx.walk(child, fn)
	}
}

// IndexStats describes the shape of the tree
type IndexStats struct {
	Name            string `json:"name"`
	Elements        int    `json:"elements"`
	Sectors         int    `json:"sectors"`
	Leaves          int    `json:"leaves"`
	MaxDepth        int    `json:"max_depth"`
	LeafMemberships int    `json:"leaf_memberships"`
}

// Stats gathers the counters under a single read lock
func (idx *Index) Stats() IndexStats {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	stats := IndexStats{Name: idx.config.Name, Elements: len(idx.byEntity)}
	idx.walk(idx.root, func(s SectorInfo) bool {
		stats.Sectors++
		stats.MaxDepth = max(stats.MaxDepth, s.Depth)
		if s.Leaf {
			stats.Leaves++
			stats.LeafMemberships += s.Elements
		}
		return true
	})
	return stats
}

func (idx *Index) insert(entity *actor.Entity) error {
	box := entity.CollisionBox()
	if !box.IsValid() {
		return errors.New("element volume is not finite").
			WithType(ErrTypeInvalidVolume).
			WithTag("entity", entity.ID)
	}

	if !idx.sectors[idx.root].extent.Overlaps(box) {
		return errors.New("element is outside the world boundary").
			WithType(ErrTypeOutOfBoundary).
			WithTag("entity", entity.ID).
			WithTag("boundary", idx.config.Boundary)
	}

	eid := idx.allocRecord(entity, box)
	idx.byEntity[entity.ID] = eid
	idx.addElement(idx.root, eid, box)
	return nil
}

func (idx *Index) update(eid elementID) error {
	rec := &idx.records[eid]
	box := rec.entity.CollisionBox()
	if !box.IsValid() {
		return errors.New("element volume is not finite").
			WithType(ErrTypeInvalidVolume).
			WithTag("entity", rec.entity.ID)
	}
	if !idx.sectors[idx.root].extent.Overlaps(box) {
		return errors.New("element is outside the world boundary").
			WithType(ErrTypeOutOfBoundary).
			WithTag("entity", rec.entity.ID).
			WithTag("boundary", idx.config.Boundary)
	}

	previous := idx.detach(eid)
	idx.records[eid].box = box
	idx.addElement(idx.root, eid, box)
	idx.collapseEmpty(previous)
	return nil
}

func (idx *Index) allocRecord(entity *actor.Entity, box actor.AABB) elementID {
	idx.seq++
	rec := record{entity: entity, box: box, seq: idx.seq, live: true}

	if n := len(idx.freeRecords); n > 0 {
		eid := idx.freeRecords[n-1]
		idx.freeRecords = idx.freeRecords[:n-1]
		idx.records[eid] = rec
		return eid
	}

	idx.records = append(idx.records, rec)
	return elementID(len(idx.records) - 1)
}

// addElement registers eid in id and, below it, in every sector its box intersects
func (idx *Index) addElement(id sectorID, eid elementID, box actor.AABB) {
	s := &idx.sectors[id]
	if !s.extent.Overlaps(box) {
		return
	}
	if _, ok := s.elements[eid]; ok {
		return
	}
	s.elements[eid] = struct{}{}

	if s.isLeaf() {
		if len(s.elements) > idx.config.MaxElementsPerSector && s.depth < idx.config.MaxDepth {
			idx.subdivide(id)
			return
		}

		rec := &idx.records[eid]
		rec.leaves = append(rec.leaves, id)
		return
	}

	children := s.children
	for _, child := range children {
		idx.addElement(child, eid, box)
	}
}

// detach unlinks eid from every sector and returns the leaves it was linked to
func (idx *Index) detach(eid elementID) []sectorID {
	rec := &idx.records[eid]
	previous := rec.leaves
	rec.leaves = nil

	for _, leaf := range previous {
		for id := leaf; id != noSector; id = idx.sectors[id].parent {
			s := &idx.sectors[id]
			if _, ok := s.elements[eid]; !ok {
				// Already removed through another leaf sharing this ancestor
				break
			}
			delete(s.elements, eid)
		}
	}

	return previous
}

// collapseEmpty merges the highest empty sub-tree above each given sector
func (idx *Index) collapseEmpty(sectors []sectorID) {
	if !idx.config.AutoCollapse {
		return
	}

	candidates := make(map[sectorID]struct{})
	for _, start := range sectors {
		top := noSector
		for id := start; id != noSector; id = idx.sectors[id].parent {
			s := &idx.sectors[id]
			if len(s.elements) != 0 {
				break
			}
			if !s.isLeaf() {
				top = id
			}
		}
		if top != noSector {
			candidates[top] = struct{}{}
		}
	}

	for id := range candidates {
		idx.collapse(id)
	}
}

func (idx *Index) sortBySequence(ids []elementID) {
	slices.SortFunc(ids, func(a, b elementID) int {
		sa, sb := idx.records[a].seq, idx.records[b].seq
		switch {
		case sa < sb:
			return -1
		case sa > sb:
			return 1
		default:
			return 0
		}
	})
}

func (idx *Index) reject(err error) error {
	instrumentIndexError(idx.config.Name, err)
	logs.WithTag("index", idx.config.Name).Debug(err)
	return err
}

func (idx *Index) instrumentSize() {
	instrumentIndexSize(idx.config.Name, len(idx.byEntity), len(idx.sectors)-len(idx.freeSectors))
}
