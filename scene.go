package octant

import (
	"slices"

	"github.com/akmonengine/octant/actor"
	"github.com/akmonengine/octant/ground"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/go-gl/mathgl/mgl64"
)

const DEFAULT_WORKERS = 1

// TickStats describes what one Step did
type TickStats struct {
	Tick uint64 `json:"tick"`
	// Moved is the number of entities re-filed after moving
	Moved int `json:"moved"`
	// Dropped is the number of collisions left undrained by the previous tick
	Dropped  int        `json:"dropped"`
	Sweep    SweepStats `json:"sweep"`
	Clipped  int        `json:"clipped"`
	Resolved int        `json:"resolved"`
}

// Scene owns the entities of a world and the two indexes filing them: physics for
// deflectors, render for renderables. Its methods must be called from a single goroutine;
// the indexes can be queried concurrently.
type Scene struct {
	// List of all entities in the scene
	Entities []*actor.Entity
	Gravity  mgl64.Vec3
	Workers  int

	Events Events

	config  SceneConfig
	physics *Index
	render  *Index
	clipper Clipper

	moved  map[*actor.Entity]struct{}
	tick   uint64
	totals SweepStats
}

// NewScene creates a scene over the world cube [-Boundary, Boundary]³. An index with an
// invalid configuration is logged and left disabled, the rest of the scene keeps working.
func NewScene(config SceneConfig, g ground.Ground) *Scene {
	config.Workers = max(DEFAULT_WORKERS, config.Workers)

	s := &Scene{
		Gravity: config.Gravity,
		Workers: config.Workers,
		Events:  NewEvents(),
		config:  config,
		clipper: Clipper{
			Boundary:           config.Boundary,
			Ground:             g,
			CorrectionDistance: config.CorrectionDistance,
			Workers:            config.Workers,
		},
		moved: make(map[*actor.Entity]struct{}),
	}

	s.physics = newSceneIndex(config.Physics, config.Boundary, "physics")
	s.render = newSceneIndex(config.Render, config.Boundary, "render")
	return s
}

func newSceneIndex(config IndexConfig, boundary float64, name string) *Index {
	if config.Name == "" {
		config.Name = name
	}
	config.Boundary = boundary

	idx, err := NewIndex(config)
	if err != nil {
		logs.Warn(errors.New("spatial indexing disabled").
			WithTag("index", config.Name).
			Wrap(err))
		return nil
	}
	return idx
}

// Physics returns the index of deflectors, nil when disabled
func (s *Scene) Physics() *Index {
	return s.physics
}

// Render returns the index of renderables, nil when disabled
func (s *Scene) Render() *Index {
	return s.render
}

func (s *Scene) Boundary() float64 {
	return s.config.Boundary
}

func (s *Scene) Tick() uint64 {
	return s.tick
}

// Totals returns the sweep counters accumulated since the scene was created
func (s *Scene) Totals() SweepStats {
	return s.totals
}

// AddEntity adds an entity to the scene and files it in the indexes it belongs to.
// A movable is first brought back inside the world. Adding an entity twice is rejected
// and leaves the scene untouched.
func (s *Scene) AddEntity(entity *actor.Entity) error {
	if slices.Contains(s.Entities, entity) {
		return errors.New("entity already in the scene").
			WithType(ErrTypeDuplicateElement).
			WithTag("entity", entity.ID)
	}

	if entity.IsMovable() {
		s.clipper.Contain(entity)
	}

	if err := s.file(entity); err != nil {
		return err
	}

	s.Entities = append(s.Entities, entity)
	return nil
}

// RemoveEntity removes an entity from the scene and from both indexes
func (s *Scene) RemoveEntity(entity *actor.Entity) {
	k := -1
	for i, e := range s.Entities {
		if e == entity {
			k = i
			break
		}
	}

	if k != -1 {
		s.Entities = append(s.Entities[:k], s.Entities[k+1:]...)
	}

	s.unfile(entity)
	delete(s.moved, entity)
	s.Events.forget(entity)
}

// MoveEntity teleports an entity; it is re-filed at the next Step and woken up if movable
func (s *Scene) MoveEntity(entity *actor.Entity, position mgl64.Vec3) {
	entity.SetPosition(position)
	if entity.IsMovable() {
		entity.PauseSimulation(false)
	}
	s.moved[entity] = struct{}{}
}

// SetBoundary resizes the world. Movables are clipped into the new cube and both
// indexes are rebuilt with their elements.
func (s *Scene) SetBoundary(boundary float64) error {
	if !(boundary > 0) {
		return errors.New("world boundary must be positive").
			WithType(ErrTypeInvalidBoundary).
			WithTag("boundary", boundary)
	}

	s.config.Boundary = boundary
	s.clipper.Boundary = boundary

	for _, entity := range s.Entities {
		if entity.IsMovable() {
			s.clipper.Contain(entity)
		}
	}

	for _, idx := range []*Index{s.physics, s.render} {
		if idx == nil {
			continue
		}
		if err := idx.SetBoundary(boundary, true); err != nil {
			return err
		}
	}

	logs.WithTag("boundary", boundary).Info("world boundary changed")
	return nil
}

// Subscribe adds a listener for an event type
func (s *Scene) Subscribe(eventType EventType, listener EventListener) {
	s.Events.Subscribe(eventType, listener)
}

// Step advances the scene by dt: movables are integrated and re-filed, the physics index
// is swept, movables are clipped to the world, then every collision is resolved and dispatched.
// Every movable ends the tick inside the world.
func (s *Scene) Step(dt float64) TickStats {
	s.Workers = max(DEFAULT_WORKERS, s.Workers)
	s.clipper.Workers = s.Workers
	s.tick++
	stats := TickStats{Tick: s.tick}

	movables := s.movables()

	// Phase 1: leftovers of the previous tick are dropped
	for _, entity := range movables {
		stats.Dropped += entity.Collider().BeginTick()
	}
	if stats.Dropped > 0 {
		logs.WithTag("tick", s.tick).
			WithTag("collisions", stats.Dropped).
			Warn("undrained collisions dropped")
	}

	// Phase 2: integration
	s.integrate(dt, movables)

	// Phase 3: re-filing. A movable that left the world is clipped back first, it could
	// not be filed otherwise.
	world := actor.CubeAABB(mgl64.Vec3{}, s.config.Boundary)
	escaped := make(map[*actor.Entity]struct{})
	for entity := range s.moved {
		if entity.IsMovable() && !entity.CollisionBox().Overlaps(world) {
			s.clipper.ClipEntity(entity)
			escaped[entity] = struct{}{}
		}
		s.refile(entity)
		stats.Moved++
	}
	clear(s.moved)

	if s.physics != nil {
		// Phase 4: broad phase
		stats.Sweep = Sweep(s.physics)
		s.totals.add(stats.Sweep)
		for _, entity := range movables {
			// Pushed out of what they hit
			if entity.Collider().HasCollisions() {
				s.refile(entity)
			}
		}
	}

	// Phase 5: world limits
	remaining := make([]*actor.Entity, 0, len(movables))
	for _, entity := range movables {
		if _, ok := escaped[entity]; !ok {
			remaining = append(remaining, entity)
		}
	}
	clipped := s.clipper.Clip(remaining)
	for _, entity := range clipped {
		s.refile(entity)
	}
	stats.Clipped = len(clipped) + len(escaped)

	// Phase 6: resolution
	stats.Resolved = s.Events.resolveCollisions(s.tick, movables)

	s.trySleep(dt, movables)

	s.Events.processPauseEvents(s.tick, movables)
	s.Events.flush()

	return stats
}

func (s *Scene) movables() []*actor.Entity {
	movables := make([]*actor.Entity, 0, len(s.Entities))
	for _, entity := range s.Entities {
		if entity.IsMovable() {
			movables = append(movables, entity)
		}
	}
	return movables
}

type integrateJob struct {
	entity *actor.Entity
	moved  bool
}

func (s *Scene) integrate(dt float64, movables []*actor.Entity) {
	jobs := make([]*integrateJob, len(movables))
	for i, entity := range movables {
		jobs[i] = &integrateJob{entity: entity}
	}

	task(s.Workers, jobs, func(job *integrateJob) {
		job.moved = job.entity.Integrate(dt, s.Gravity)
	})

	for _, job := range jobs {
		if job.moved {
			s.moved[job.entity] = struct{}{}
		}
	}
}

// trySleep settles the movables slower than the threshold for a given duration
// this method is too simple to use a task, it slows down in multiple goroutines
func (s *Scene) trySleep(dt float64, movables []*actor.Entity) {
	for _, entity := range movables {
		if entity.IsSimulationPaused() {
			continue
		}
		entity.MovableTrait().TrySleep(dt, s.config.SleepTime, s.config.SleepThreshold)
	}
}

// indexesOf returns the enabled indexes the entity belongs to
func (s *Scene) indexesOf(entity *actor.Entity) []*Index {
	indexes := make([]*Index, 0, 2)
	if s.physics != nil && entity.Deflector {
		indexes = append(indexes, s.physics)
	}
	if s.render != nil && entity.Renderable {
		indexes = append(indexes, s.render)
	}
	return indexes
}

// file inserts the entity in its indexes. On failure only the inserts made here are undone.
func (s *Scene) file(entity *actor.Entity) error {
	indexes := s.indexesOf(entity)
	for i, idx := range indexes {
		if err := idx.Insert(entity); err != nil {
			for _, inserted := range indexes[:i] {
				_ = inserted.Erase(entity)
			}
			return err
		}
	}
	return nil
}

func (s *Scene) unfile(entity *actor.Entity) {
	for _, idx := range []*Index{s.physics, s.render} {
		if idx != nil && idx.Contains(entity) {
			_ = idx.Erase(entity)
		}
	}
}

// refile moves the entity to its new leaves. An entity that left the world is dropped
// from the index and the error is logged.
func (s *Scene) refile(entity *actor.Entity) {
	for _, idx := range s.indexesOf(entity) {
		s.checkLocation(idx, entity)
	}
}

func (s *Scene) checkLocation(idx *Index, entity *actor.Entity) {
	err := idx.CheckLocation(entity)
	if err == nil {
		return
	}

	if errors.IsType(err, ErrTypeOutOfBoundary) && idx.Contains(entity) {
		_ = idx.Erase(entity)
	}
	logs.Warn(errors.New("entity could not be re-filed").
		WithTag("index", idx.Config().Name).
		WithTag("entity", entity.Name).
		Wrap(err))
}
