package octant

import (
	"testing"

	"github.com/akmonengine/octant/actor"
	"github.com/akmonengine/octant/ground"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/require"
)

func newTestScene(t *testing.T, boundary float64, g ground.Ground) *Scene {
	config := DefaultSceneConfig(boundary)
	config.Gravity = mgl64.Vec3{}

	s := NewScene(config, g)
	require.NotNil(t, s.Physics())
	require.NotNil(t, s.Render())
	return s
}

func TestNewSceneDisablesInvalidIndex(t *testing.T) {
	config := DefaultSceneConfig(100)
	config.Physics.MaxDepth = MaxSupportedDepth + 1

	s := NewScene(config, nil)
	require.Nil(t, s.Physics())
	require.NotNil(t, s.Render())

	e := newMovableSphere("sphere", mgl64.Vec3{}, 1)
	e.Renderable = true
	require.NoError(t, s.AddEntity(e))
	require.True(t, s.Render().Contains(e))

	stats := s.Step(1.0 / 60)
	require.Equal(t, uint64(1), stats.Tick)
	require.Zero(t, stats.Sweep.Pairs)
}

func TestSceneAddEntity(t *testing.T) {
	s := newTestScene(t, 100, nil)

	t.Run("filed by role", func(t *testing.T) {
		deflector := newTestBox("wall", mgl64.Vec3{10, 0, 0}, 1)
		decoration := newTestBox("flag", mgl64.Vec3{-10, 0, 0}, 1)
		decoration.Deflector = false
		decoration.Renderable = true

		require.NoError(t, s.AddEntity(deflector))
		require.NoError(t, s.AddEntity(decoration))

		require.True(t, s.Physics().Contains(deflector))
		require.False(t, s.Render().Contains(deflector))
		require.False(t, s.Physics().Contains(decoration))
		require.True(t, s.Render().Contains(decoration))
		require.Len(t, s.Entities, 2)
	})

	t.Run("movable is brought inside", func(t *testing.T) {
		e := newMovableSphere("sphere", mgl64.Vec3{150, 0, 0}, 5)
		require.NoError(t, s.AddEntity(e))
		require.Equal(t, mgl64.Vec3{95, 0, 0}, e.Position())
		require.False(t, e.Collider().HasCollisions())
		require.True(t, s.Physics().Contains(e))
	})

	t.Run("added twice", func(t *testing.T) {
		count := len(s.Entities)
		wall := newTestBox("twice", mgl64.Vec3{0, 20, 0}, 1)
		wall.Renderable = true
		require.NoError(t, s.AddEntity(wall))

		err := s.AddEntity(wall)
		require.Error(t, err)
		require.True(t, errors.IsType(err, ErrTypeDuplicateElement))
		require.Len(t, s.Entities, count+1)
		require.True(t, s.Physics().Contains(wall))
		require.True(t, s.Render().Contains(wall))
	})

	t.Run("static outside is rejected", func(t *testing.T) {
		count := len(s.Entities)
		e := newTestBox("far", mgl64.Vec3{500, 0, 0}, 1)
		e.Renderable = true

		err := s.AddEntity(e)
		require.Error(t, err)
		require.True(t, errors.IsType(err, ErrTypeOutOfBoundary))
		require.Len(t, s.Entities, count)
		require.False(t, s.Render().Contains(e))
	})
}

func TestSceneRemoveEntity(t *testing.T) {
	s := newTestScene(t, 100, nil)
	e := newMovableSphere("sphere", mgl64.Vec3{}, 1)
	e.Renderable = true
	require.NoError(t, s.AddEntity(e))

	s.RemoveEntity(e)
	require.Empty(t, s.Entities)
	require.False(t, s.Physics().Contains(e))
	require.False(t, s.Render().Contains(e))

	// Removing twice is harmless
	s.RemoveEntity(e)
}

func TestSceneFallingSphereSettles(t *testing.T) {
	s := NewScene(DefaultSceneConfig(100), ground.NewFlatPlane(0))

	grounds := &eventCapture{}
	settles := &eventCapture{}
	s.Subscribe(GROUND_COLLISION, grounds.capture)
	s.Subscribe(ON_SETTLE, settles.capture)

	e := newMovableSphere("ball", mgl64.Vec3{0, 10, 0}, 1)
	require.NoError(t, s.AddEntity(e))

	for i := 0; i < 2000 && !e.IsSimulationPaused(); i++ {
		s.Step(1.0 / 60)
	}
	s.Step(1.0 / 60)

	require.True(t, e.IsSimulationPaused())
	require.InDelta(t, 1.0, e.Position().Y(), 1e-9)
	require.NotZero(t, grounds.count())
	require.Equal(t, 1, settles.count())
	require.False(t, e.Collider().HasCollisions())
}

func TestSceneMovablesBounceOffEachOther(t *testing.T) {
	s := newTestScene(t, 100, nil)
	capture := &eventCapture{}
	s.Subscribe(MOVABLE_COLLISION, capture.capture)

	a := newMovableSphere("a", mgl64.Vec3{-5, 0, 0}, 1)
	a.MovableTrait().Velocity = mgl64.Vec3{10, 0, 0}
	b := newMovableSphere("b", mgl64.Vec3{5, 0, 0}, 1)
	b.MovableTrait().Velocity = mgl64.Vec3{-10, 0, 0}
	require.NoError(t, s.AddEntity(a))
	require.NoError(t, s.AddEntity(b))

	for i := 0; i < 120; i++ {
		s.Step(1.0 / 60)
	}

	require.Equal(t, 2, capture.count())
	require.Less(t, a.MovableTrait().Velocity.X(), 0.0)
	require.Greater(t, b.MovableTrait().Velocity.X(), 0.0)
	require.Less(t, a.Position().X(), b.Position().X())
	require.Positive(t, s.Totals().Collisions)
}

func TestSceneMovableHitsWall(t *testing.T) {
	s := newTestScene(t, 100, nil)
	capture := &eventCapture{}
	s.Subscribe(STATIC_COLLISION, capture.capture)

	wall := newTestBox("wall", mgl64.Vec3{5, 0, 0}, 1)
	require.NoError(t, s.AddEntity(wall))

	e := newMovableBox("crate", mgl64.Vec3{}, 1)
	e.MovableTrait().Velocity = mgl64.Vec3{10, 0, 0}
	require.NoError(t, s.AddEntity(e))

	for i := 0; i < 60; i++ {
		s.Step(1.0 / 60)
	}

	require.NotZero(t, capture.count())
	require.Less(t, e.MovableTrait().Velocity.X(), 0.0)
	require.Less(t, e.WorldBox().Max.X(), wall.WorldBox().Min.X()+1e-9)
	require.Equal(t, mgl64.Vec3{5, 0, 0}, wall.Position())
}

func TestSceneBoundaryEvents(t *testing.T) {
	s := newTestScene(t, 100, nil)
	capture := &eventCapture{}
	s.Subscribe(BOUNDARY_COLLISION, capture.capture)

	e := newMovableSphere("sphere", mgl64.Vec3{90, 0, 0}, 5)
	e.MovableTrait().Velocity = mgl64.Vec3{60, 0, 0}
	require.NoError(t, s.AddEntity(e))

	stats := s.Step(1.0 / 10)
	require.Equal(t, 1, stats.Clipped)
	require.Equal(t, 1, stats.Resolved)
	require.Equal(t, 1, capture.count())
	require.Equal(t, 95.0, e.Position().X())
	require.Less(t, e.MovableTrait().Velocity.X(), 0.0)

	event := capture.events[0].(CollisionEvent)
	require.Same(t, e, event.Entity)
	require.Equal(t, mgl64.Vec3{-1, 0, 0}, event.Collision.Normal)
}

func TestSceneMovableLeavesWorldInOneTick(t *testing.T) {
	s := newTestScene(t, 10, nil)
	capture := &eventCapture{}
	s.Subscribe(BOUNDARY_COLLISION, capture.capture)

	e := newMovableSphere("bullet", mgl64.Vec3{}, 0.5)
	e.MovableTrait().Velocity = mgl64.Vec3{3000, 0, 0}
	require.NoError(t, s.AddEntity(e))

	stats := s.Step(1.0 / 60)
	require.Equal(t, 1, stats.Clipped)
	require.Equal(t, 1, stats.Resolved)
	require.Equal(t, 1, capture.count())
	require.Equal(t, 9.5, e.Position().X())
	require.True(t, s.Physics().Contains(e))
	require.Less(t, e.MovableTrait().Velocity.X(), 0.0)

	event := capture.events[0].(CollisionEvent)
	require.Equal(t, mgl64.Vec3{-1, 0, 0}, event.Collision.Normal)

	// Bounces through the opposite wall
	s.Step(1.0 / 60)
	require.Equal(t, 2, capture.count())
	require.Equal(t, -9.5, e.Position().X())
	require.True(t, s.Physics().Contains(e))
}

func TestSceneClipsRenderOnlyMovables(t *testing.T) {
	s := newTestScene(t, 10, nil)

	e := actor.NewPointEntity("marker", mgl64.Vec3{9, 0, 0})
	e.Deflector = false
	e.Renderable = true
	e.SetMovable(actor.NewMovable(1))
	e.MovableTrait().Velocity = mgl64.Vec3{120, 0, 0}
	require.NoError(t, s.AddEntity(e))

	s.Step(1.0 / 60)
	require.InDelta(t, 10.0, e.Position().X(), 1e-9)
	require.True(t, s.Render().Contains(e))
	require.False(t, s.Physics().Contains(e))
}

func TestSceneMoveEntity(t *testing.T) {
	s := newTestScene(t, 100, nil)
	e := newMovableSphere("sphere", mgl64.Vec3{50, 50, 50}, 1)
	e.Renderable = true
	require.NoError(t, s.AddEntity(e))
	e.PauseSimulation(true)

	s.MoveEntity(e, mgl64.Vec3{-50, -50, -50})
	require.False(t, e.IsSimulationPaused())

	stats := s.Step(1.0 / 60)
	require.Equal(t, 1, stats.Moved)

	region := actor.CubeAABB(mgl64.Vec3{-50, -50, -50}, 2)
	require.Equal(t, []*actor.Entity{e}, s.Physics().Query(region))
	require.Equal(t, []*actor.Entity{e}, s.Render().Query(region))
}

func TestSceneSetBoundary(t *testing.T) {
	s := newTestScene(t, 100, nil)
	e := newMovableSphere("sphere", mgl64.Vec3{80, 0, 0}, 1)
	require.NoError(t, s.AddEntity(e))

	err := s.SetBoundary(-1)
	require.True(t, errors.IsType(err, ErrTypeInvalidBoundary))
	require.Equal(t, 100.0, s.Boundary())

	require.NoError(t, s.SetBoundary(50))
	require.Equal(t, 50.0, s.Boundary())
	require.Equal(t, 50.0, s.Physics().Boundary())
	require.Equal(t, 50.0, s.Render().Boundary())
	require.Equal(t, mgl64.Vec3{49, 0, 0}, e.Position())
	require.True(t, s.Physics().Contains(e))
}

func TestSceneDropsUndrainedCollisions(t *testing.T) {
	s := newTestScene(t, 100, nil)
	e := newMovableSphere("sphere", mgl64.Vec3{}, 1)
	require.NoError(t, s.AddEntity(e))

	e.Collider().AddCollision(actor.CollisionKindBoundary, nil, mgl64.Vec3{}, mgl64.Vec3{1, 0, 0})

	stats := s.Step(1.0 / 60)
	require.Equal(t, 1, stats.Dropped)
	require.Zero(t, stats.Resolved)
}

func TestSceneWorkers(t *testing.T) {
	config := DefaultSceneConfig(100)
	config.Workers = 4
	s := NewScene(config, ground.NewFlatPlane(-100))

	var entities []*actor.Entity
	for i := 0; i < 64; i++ {
		e := newMovableSphere("sphere", mgl64.Vec3{float64(i*3 - 96), 50, 0}, 1)
		entities = append(entities, e)
		require.NoError(t, s.AddEntity(e))
	}

	for i := 0; i < 10; i++ {
		stats := s.Step(1.0 / 60)
		require.Equal(t, len(entities), stats.Moved)
	}
	require.Equal(t, uint64(10), s.Tick())

	for _, e := range entities {
		require.Less(t, e.Position().Y(), 50.0)
		require.True(t, s.Physics().Contains(e))
	}
}
