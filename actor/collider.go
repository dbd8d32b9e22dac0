package actor

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

type CollisionKind uint8

const (
	// CollisionKindGround is a contact with the ground surface under the entity
	CollisionKindGround CollisionKind = iota
	// CollisionKindBoundary is a contact with one face of the world cube
	CollisionKindBoundary
	// CollisionKindStatic is a contact with a deflector that does not move
	CollisionKindStatic
	// CollisionKindMovable is a contact with another movable entity
	CollisionKindMovable
)

func (k CollisionKind) String() string {
	switch k {
	case CollisionKindGround:
		return "ground"
	case CollisionKindBoundary:
		return "boundary"
	case CollisionKindStatic:
		return "static"
	case CollisionKindMovable:
		return "movable"
	default:
		return "unknown"
	}
}

// Collision is one event recorded during a tick
type Collision struct {
	Kind CollisionKind
	// Other is nil for ground and boundary collisions
	Other *Entity
	// Point is the world contact point
	Point mgl64.Vec3
	// Normal is the surface normal pushing the owner away from what it hit
	Normal mgl64.Vec3
}

// Collider accumulates the collisions of one movable entity during a tick.
// Events must be drained exactly once per tick; the tested set is cleared when the tick begins.
type Collider struct {
	collisions []Collision
	tested     map[uuid.UUID]struct{}
}

func newCollider() Collider {
	return Collider{
		collisions: make([]Collision, 0, 4),
		tested:     make(map[uuid.UUID]struct{}),
	}
}

func (c *Collider) AddCollision(kind CollisionKind, other *Entity, point, normal mgl64.Vec3) {
	c.collisions = append(c.collisions, Collision{Kind: kind, Other: other, Point: point, Normal: normal})
}

// HasCollisionWith reports whether the pair with other was already handled this tick
func (c *Collider) HasCollisionWith(other *Entity) bool {
	if other == nil {
		return false
	}
	_, ok := c.tested[other.ID]
	return ok
}

// MarkTested records that the pair with other was handled this tick
func (c *Collider) MarkTested(other *Entity) {
	if c.tested == nil {
		c.tested = make(map[uuid.UUID]struct{})
	}
	c.tested[other.ID] = struct{}{}
}

func (c *Collider) HasCollisions() bool {
	return len(c.collisions) > 0
}

// Collisions returns the events of the current tick, the slice must not be kept
func (c *Collider) Collisions() []Collision {
	return c.collisions
}

// BeginTick clears the tested set and returns how many events were left undrained
// by the previous tick. Those events are dropped.
func (c *Collider) BeginTick() int {
	clear(c.tested)

	stale := len(c.collisions)
	c.collisions = c.collisions[:0]
	return stale
}

// Drain returns the events of the tick and clears them
func (c *Collider) Drain() []Collision {
	if len(c.collisions) == 0 {
		return nil
	}

	events := make([]Collision, len(c.collisions))
	copy(events, c.collisions)
	c.collisions = c.collisions[:0]
	return events
}

// ResolveCollisions applies the events of the tick to self and drains them.
// Every normal contributes to a single deflection. A ground contact below the inertia
// threshold settles the entity, a hit from another movable wakes it up.
func (c *Collider) ResolveCollisions(self *Entity) []Collision {
	events := c.Drain()
	m := self.MovableTrait()
	if m == nil || len(events) == 0 {
		return events
	}

	var globalNormal mgl64.Vec3
	for _, collision := range events {
		globalNormal = globalNormal.Add(collision.Normal)

		switch collision.Kind {
		case CollisionKindGround:
			if m.Speed() <= InertiaThreshold && !m.AlwaysComputePhysics {
				m.Stop()
				m.Pause(true)
			}
		case CollisionKindMovable:
			// A settled movable hit by another one is simulated again
			m.Pause(false)
		}
	}

	m.Deflect(globalNormal, m.Bounciness)

	return events
}

// CheckStatic tests self against a deflector that does not move. On contact self is
// pushed out of other along the collision normal.
func (c *Collider) CheckStatic(self, other *Entity) bool {
	point, normal, depth, ok := intersect(self, other)
	if !ok {
		return false
	}

	self.MoveBy(normal.Mul(depth))
	c.AddCollision(CollisionKindStatic, other, point, normal)
	return true
}

// CheckMovable tests self against another movable, both colliders receive an event.
// On contact both are pushed apart, the lighter one moving the most.
func (c *Collider) CheckMovable(self, other *Entity) bool {
	point, normal, depth, ok := intersect(self, other)
	if !ok {
		return false
	}

	massA, massB := self.movable.Mass, other.movable.Mass
	total := massA + massB
	self.MoveBy(normal.Mul(depth * massB / total))
	other.MoveBy(normal.Mul(-depth * massA / total))

	c.AddCollision(CollisionKindMovable, other, point, normal)
	other.movable.collider.AddCollision(CollisionKindMovable, self, point, normal.Mul(-1))
	return true
}

// intersect returns the contact point, the normal pointing from b toward a and the
// penetration depth along that normal
func intersect(a, b *Entity) (mgl64.Vec3, mgl64.Vec3, float64, bool) {
	if a.SphereCollision && b.SphereCollision {
		sa, sb := a.WorldSphere(), b.WorldSphere()
		depth := sa.Overlap(sb)
		if depth <= 0 {
			return mgl64.Vec3{}, mgl64.Vec3{}, 0, false
		}

		direction := sa.Center.Sub(sb.Center)
		normal := mgl64.Vec3{0, 1, 0}
		if direction.Len() > 0 {
			normal = direction.Normalize()
		}

		return sb.Center.Add(normal.Mul(sb.Radius)), normal, depth, true
	}

	boxA, boxB := a.CollisionBox(), b.CollisionBox()
	overlap, ok := boxA.Intersection(boxB)
	if !ok {
		return mgl64.Vec3{}, mgl64.Vec3{}, 0, false
	}

	// Separate along the axis of least penetration
	size := overlap.Size()
	axis := 0
	for i := 1; i < 3; i++ {
		if size[i] < size[axis] {
			axis = i
		}
	}
	if size[axis] <= 0 {
		return mgl64.Vec3{}, mgl64.Vec3{}, 0, false
	}

	var normal mgl64.Vec3
	if boxA.Center()[axis] >= boxB.Center()[axis] {
		normal[axis] = 1
	} else {
		normal[axis] = -1
	}

	return overlap.Center(), normal, size[axis], true
}
