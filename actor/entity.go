package actor

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// Entity is an object placed in the world. Its bounding volumes are stored relative to its
// position so moving the entity moves its world box and sphere.
type Entity struct {
	ID   uuid.UUID
	Name string

	// Renderable entities are filed in the render index
	Renderable bool
	// Deflector entities take part in the physics index, whether they move or not
	Deflector bool
	// SphereCollision selects the bounding sphere instead of the box for collision and clipping
	SphereCollision bool

	mutex    sync.RWMutex
	position mgl64.Vec3
	localBox AABB
	radius   float64

	movable *Movable
	// paused is only used by entities without a movable trait
	paused bool
}

// NewEntity creates a box entity. localBox is expressed relative to position.
func NewEntity(name string, position mgl64.Vec3, localBox AABB) *Entity {
	reach := mgl64.Vec3{
		math.Max(math.Abs(localBox.Min.X()), math.Abs(localBox.Max.X())),
		math.Max(math.Abs(localBox.Min.Y()), math.Abs(localBox.Max.Y())),
		math.Max(math.Abs(localBox.Min.Z()), math.Abs(localBox.Max.Z())),
	}

	return &Entity{
		ID:        uuid.New(),
		Name:      name,
		Deflector: true,
		position:  position,
		localBox:  localBox,
		radius:    reach.Len(),
	}
}

// NewSphereEntity creates an entity using its bounding sphere for collisions
func NewSphereEntity(name string, position mgl64.Vec3, radius float64) *Entity {
	e := NewEntity(name, position, CubeAABB(mgl64.Vec3{}, radius))
	e.radius = radius
	e.SphereCollision = true
	return e
}

// NewPointEntity creates an entity without volume
func NewPointEntity(name string, position mgl64.Vec3) *Entity {
	return NewEntity(name, position, AABB{})
}

func (e *Entity) Position() mgl64.Vec3 {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	return e.position
}

func (e *Entity) SetPosition(position mgl64.Vec3) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.position = position
}

// MoveBy translates the entity in world space
func (e *Entity) MoveBy(delta mgl64.Vec3) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.position = e.position.Add(delta)
}

func (e *Entity) MoveOnXAxisTo(x float64) { e.setAxis(0, x) }
func (e *Entity) MoveOnYAxisTo(y float64) { e.setAxis(1, y) }
func (e *Entity) MoveOnZAxisTo(z float64) { e.setAxis(2, z) }

// MoveOnAxisTo sets one world coordinate, axis is 0 for X, 1 for Y and 2 for Z
func (e *Entity) MoveOnAxisTo(axis int, value float64) { e.setAxis(axis, value) }

func (e *Entity) setAxis(axis int, value float64) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.position[axis] = value
}

func (e *Entity) LocalBox() AABB {
	return e.localBox
}

func (e *Entity) Radius() float64 {
	return e.radius
}

func (e *Entity) WorldBox() AABB {
	return e.localBox.Translate(e.Position())
}

func (e *Entity) WorldSphere() Sphere {
	return Sphere{Center: e.Position(), Radius: e.radius}
}

// CollisionBox is the world box used to file the entity: the sphere cube for sphere entities
func (e *Entity) CollisionBox() AABB {
	if e.SphereCollision {
		return e.WorldSphere().AABB()
	}
	return e.WorldBox()
}

// SetMovable attaches or detaches (nil) the movable trait
func (e *Entity) SetMovable(m *Movable) {
	e.movable = m
}

// MovableTrait returns nil for entities that never move on their own
func (e *Entity) MovableTrait() *Movable {
	return e.movable
}

func (e *Entity) IsMovable() bool {
	return e.movable != nil
}

func (e *Entity) IsSimulationPaused() bool {
	if e.movable != nil {
		return e.movable.paused
	}
	return e.paused
}

func (e *Entity) PauseSimulation(state bool) {
	if e.movable != nil {
		e.movable.Pause(state)
		return
	}
	e.paused = state
}

// Collider returns the collider of the movable trait, nil for static entities
func (e *Entity) Collider() *Collider {
	if e.movable == nil {
		return nil
	}
	return &e.movable.collider
}

// Integrate advances a movable, non paused entity by dt under gravity and reports whether it moved
func (e *Entity) Integrate(dt float64, gravity mgl64.Vec3) bool {
	m := e.movable
	if m == nil || m.paused {
		return false
	}

	delta := m.integrate(dt, gravity)
	if delta.ApproxEqual(mgl64.Vec3{}) {
		return false
	}

	e.MoveBy(delta)
	return true
}
