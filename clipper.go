package octant

import (
	"github.com/akmonengine/octant/actor"
	"github.com/akmonengine/octant/ground"
	"github.com/go-gl/mathgl/mgl64"
)

// Clipper keeps movable entities inside the world cube and above the ground
type Clipper struct {
	// Boundary is the half width of the world cube
	Boundary float64
	// Ground is optional
	Ground ground.Ground
	// CorrectionDistance is an extra gap left between the entity and what it was clipped against
	CorrectionDistance float64
	Workers            int
}

type clipJob struct {
	entity  *actor.Entity
	clipped bool
}

// Clip runs over every active movable of entities and returns the ones it moved.
// Each clip records a ground or boundary event on the entity collider.
func (c *Clipper) Clip(entities []*actor.Entity) []*actor.Entity {
	var jobs []*clipJob
	for _, entity := range entities {
		if entity.IsMovable() && !entity.IsSimulationPaused() {
			jobs = append(jobs, &clipJob{entity: entity})
		}
	}

	task(c.Workers, jobs, func(job *clipJob) {
		job.clipped = c.ClipEntity(job.entity)
	})

	var clipped []*actor.Entity
	for _, job := range jobs {
		if job.clipped {
			clipped = append(clipped, job.entity)
		}
	}
	return clipped
}

// ClipEntity clips one entity and records the events on its collider
func (c *Clipper) ClipEntity(entity *actor.Entity) bool {
	return c.clip(entity, entity.Collider())
}

// Contain clips one entity without recording any event
func (c *Clipper) Contain(entity *actor.Entity) bool {
	return c.clip(entity, nil)
}

func (c *Clipper) clip(entity *actor.Entity, collider *actor.Collider) bool {
	record := func(kind actor.CollisionKind, point, normal mgl64.Vec3) {
		instrumentClip(kind)
		if collider != nil {
			collider.AddCollision(kind, nil, point, normal)
		}
	}

	if entity.SphereCollision {
		return c.clipSphere(entity, record)
	}
	return c.clipBox(entity, record)
}

// clipSphere tests the distance from the center on each axis
func (c *Clipper) clipSphere(entity *actor.Entity, record func(actor.CollisionKind, mgl64.Vec3, mgl64.Vec3)) bool {
	clipped := false
	radius := entity.Radius()

	if c.Ground != nil {
		position := entity.Position()
		level := c.Ground.LevelAt(position)

		if position.Y()-radius <= level {
			entity.MoveOnYAxisTo(level + radius + c.CorrectionDistance)
			record(actor.CollisionKindGround, mgl64.Vec3{position.X(), level, position.Z()}, c.Ground.NormalAt(position))
			clipped = true
		}
	}

	limit := c.Boundary - radius - c.CorrectionDistance
	for axis := 0; axis < 3; axis++ {
		position := entity.Position()

		var normal mgl64.Vec3
		switch {
		case position[axis] > limit:
			entity.MoveOnAxisTo(axis, limit)
			normal[axis] = -1
		case position[axis] < -limit:
			entity.MoveOnAxisTo(axis, -limit)
			normal[axis] = 1
		default:
			continue
		}

		point := entity.Position()
		point[axis] = -normal[axis] * c.Boundary
		record(actor.CollisionKindBoundary, point, normal)
		clipped = true
	}

	return clipped
}

// clipBox uses the four bottom corners against the ground, the deepest one wins,
// and the box extents against the walls
func (c *Clipper) clipBox(entity *actor.Entity, record func(actor.CollisionKind, mgl64.Vec3, mgl64.Vec3)) bool {
	clipped := false

	if c.Ground != nil {
		var contact mgl64.Vec3
		deepest := 0.0
		found := false

		for _, corner := range entity.WorldBox().BottomCorners() {
			level := c.Ground.LevelAt(corner)
			distance := level - corner.Y()

			if distance >= 0 && (!found || distance > deepest) {
				contact = mgl64.Vec3{corner.X(), level, corner.Z()}
				deepest = distance
				found = true
			}
		}

		if found {
			entity.MoveBy(mgl64.Vec3{0, deepest + c.CorrectionDistance, 0})
			record(actor.CollisionKindGround, contact, c.Ground.NormalAt(contact))
			clipped = true
		}
	}

	for axis := 0; axis < 3; axis++ {
		box := entity.WorldBox()
		position := entity.Position()

		var normal mgl64.Vec3
		switch {
		case box.Max[axis] > c.Boundary:
			delta := box.Max[axis] - c.Boundary + c.CorrectionDistance
			entity.MoveOnAxisTo(axis, position[axis]-delta)
			normal[axis] = -1
		case box.Min[axis] < -c.Boundary:
			delta := -c.Boundary - box.Min[axis] + c.CorrectionDistance
			entity.MoveOnAxisTo(axis, position[axis]+delta)
			normal[axis] = 1
		default:
			continue
		}

		point := entity.WorldBox().Center()
		point[axis] = -normal[axis] * c.Boundary
		record(actor.CollisionKindBoundary, point, normal)
		clipped = true
	}

	return clipped
}
