package octant

import (
	"github.com/akmonengine/octant/actor"
)

// SweepStats counts what one sweep did
type SweepStats struct {
	// Leaves is the number of non empty leaves visited
	Leaves int `json:"leaves"`
	// Pairs is the number of co-resident pairs considered
	Pairs int `json:"pairs"`
	// Tests is the number of pair tests delegated to a collider
	Tests int `json:"tests"`
	// Duplicates is the number of pairs already tested in another leaf
	Duplicates int `json:"duplicates"`
	// Skipped is the number of pairs that cannot interact
	Skipped int `json:"skipped"`
	// Collisions is the number of tests that found an overlap
	Collisions int `json:"collisions"`
}

func (s *SweepStats) add(other SweepStats) {
	s.Leaves += other.Leaves
	s.Pairs += other.Pairs
	s.Tests += other.Tests
	s.Duplicates += other.Duplicates
	s.Skipped += other.Skipped
	s.Collisions += other.Collisions
}

// Sweep runs the broad phase over an index: every pair of residents of every leaf is
// considered once and handed to the collider of its movable side. Colliders must have begun
// the tick beforehand so pairs shared by several leaves are tested only once.
// A colliding pair is pushed apart during the walk, so positions may no longer match the
// filed boxes until the moved entities are re-filed.
func Sweep(index *Index) SweepStats {
	index.mutex.RLock()
	defer index.mutex.RUnlock()

	var stats SweepStats
	residents := make([]elementID, 0, index.config.MaxElementsPerSector+1)
	index.sweepSector(index.root, &stats, &residents)

	instrumentSweep(index.config.Name, stats)
	return stats
}

func (idx *Index) sweepSector(id sectorID, stats *SweepStats, residents *[]elementID) {
	s := &idx.sectors[id]

	// No element here, we stop this branch
	if len(s.elements) == 0 {
		return
	}

	if !s.isLeaf() {
		for _, child := range s.children {
			idx.sweepSector(child, stats, residents)
		}
		return
	}

	stats.Leaves++

	ids := (*residents)[:0]
	for eid := range s.elements {
		ids = append(ids, eid)
	}
	idx.sortBySequence(ids)
	*residents = ids

	for i := 0; i < len(ids); i++ {
		entityA := idx.records[ids[i]].entity
		for j := i + 1; j < len(ids); j++ {
			stats.Pairs++
			testPair(entityA, idx.records[ids[j]].entity, stats)
		}
	}
}

// testPair applies the pair rules and delegates the overlap test to the initiating collider
func testPair(a, b *actor.Entity, stats *SweepStats) {
	aMovable, bMovable := a.IsMovable(), b.IsMovable()

	if !a.Deflector || !b.Deflector || (!aMovable && !bMovable) {
		stats.Skipped++
		return
	}
	if a.IsSimulationPaused() && b.IsSimulationPaused() {
		stats.Skipped++
		return
	}

	// The movable side initiates, between two movables the active one does
	initiator, other := a, b
	if !aMovable || (bMovable && a.IsSimulationPaused()) {
		initiator, other = b, a
	}

	collider := initiator.Collider()
	if collider.HasCollisionWith(other) {
		stats.Duplicates++
		return
	}

	if !other.IsMovable() {
		// Nothing can happen against a settled deflector, the pair is left unmarked
		if other.IsSimulationPaused() {
			stats.Skipped++
			return
		}

		collider.MarkTested(other)
		stats.Tests++
		if collider.CheckStatic(initiator, other) {
			stats.Collisions++
		}
		return
	}

	collider.MarkTested(other)
	other.Collider().MarkTested(initiator)
	stats.Tests++
	if collider.CheckMovable(initiator, other) {
		stats.Collisions++
	}
}
