package octant

import (
	"testing"

	"github.com/akmonengine/octant/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// createTestMovable creates a movable sphere for event testing
func createTestMovable(name string, position mgl64.Vec3) *actor.Entity {
	e := actor.NewSphereEntity(name, position, 1.0)
	e.SetMovable(actor.NewMovable(1.0))
	return e
}

type eventCapture struct {
	events []Event
}

func (ec *eventCapture) capture(event Event) {
	ec.events = append(ec.events, event)
}

func (ec *eventCapture) count() int {
	return len(ec.events)
}

func (ec *eventCapture) hasEventType(eventType EventType) bool {
	for _, e := range ec.events {
		if e.Type() == eventType {
			return true
		}
	}
	return false
}

// =============================================================================
// Subscribe and Listeners Tests
// =============================================================================

func TestEvents_Subscribe(t *testing.T) {
	events := NewEvents()
	capture := &eventCapture{}

	events.Subscribe(BOUNDARY_COLLISION, capture.capture)

	if len(events.listeners[BOUNDARY_COLLISION]) != 1 {
		t.Errorf("Expected 1 listener for BOUNDARY_COLLISION, got %d", len(events.listeners[BOUNDARY_COLLISION]))
	}
}

func TestEvents_MultipleListeners(t *testing.T) {
	events := NewEvents()
	capture1 := &eventCapture{}
	capture2 := &eventCapture{}

	events.Subscribe(GROUND_COLLISION, capture1.capture)
	events.Subscribe(GROUND_COLLISION, capture2.capture)

	entity := createTestMovable("A", mgl64.Vec3{})
	entity.Collider().AddCollision(actor.CollisionKindGround, nil, mgl64.Vec3{}, mgl64.Vec3{0, 1, 0})

	events.resolveCollisions(1, []*actor.Entity{entity})
	events.flush()

	if capture1.count() != 1 {
		t.Errorf("Capture1 expected 1 event, got %d", capture1.count())
	}
	if capture2.count() != 1 {
		t.Errorf("Capture2 expected 1 event, got %d", capture2.count())
	}
}

func TestEvents_DifferentEventTypes(t *testing.T) {
	events := NewEvents()
	captureGround := &eventCapture{}
	captureMovable := &eventCapture{}

	events.Subscribe(GROUND_COLLISION, captureGround.capture)
	events.Subscribe(MOVABLE_COLLISION, captureMovable.capture)

	entity := createTestMovable("A", mgl64.Vec3{})
	entity.Collider().AddCollision(actor.CollisionKindBoundary, nil, mgl64.Vec3{}, mgl64.Vec3{-1, 0, 0})
	entity.Collider().AddCollision(actor.CollisionKindGround, nil, mgl64.Vec3{}, mgl64.Vec3{0, 1, 0})

	events.resolveCollisions(1, []*actor.Entity{entity})
	events.flush()

	if captureGround.count() != 1 {
		t.Errorf("Ground capture expected 1 event, got %d", captureGround.count())
	}
	if captureMovable.count() != 0 {
		t.Errorf("Movable capture expected 0 events, got %d", captureMovable.count())
	}
}

// =============================================================================
// resolveCollisions Tests
// =============================================================================

func TestEvents_ResolveDrainsColliders(t *testing.T) {
	events := NewEvents()

	entity := createTestMovable("A", mgl64.Vec3{})
	entity.Collider().AddCollision(actor.CollisionKindBoundary, nil, mgl64.Vec3{}, mgl64.Vec3{-1, 0, 0})

	resolved := events.resolveCollisions(1, []*actor.Entity{entity})
	if resolved != 1 {
		t.Errorf("Expected 1 resolved collision, got %d", resolved)
	}
	if entity.Collider().HasCollisions() {
		t.Error("Collider should be drained after resolution")
	}

	// A second resolution in the same tick has nothing left
	if resolved := events.resolveCollisions(1, []*actor.Entity{entity}); resolved != 0 {
		t.Errorf("Expected 0 resolved collisions, got %d", resolved)
	}
}

func TestEvents_ResolveSkipsStaticEntities(t *testing.T) {
	events := NewEvents()

	static := actor.NewEntity("wall", mgl64.Vec3{}, actor.CubeAABB(mgl64.Vec3{}, 1))
	if resolved := events.resolveCollisions(1, []*actor.Entity{static}); resolved != 0 {
		t.Errorf("Expected 0 resolved collisions, got %d", resolved)
	}
}

func TestEvents_CollisionEventCarriesTick(t *testing.T) {
	events := NewEvents()
	capture := &eventCapture{}
	events.Subscribe(STATIC_COLLISION, capture.capture)

	entity := createTestMovable("A", mgl64.Vec3{})
	wall := actor.NewEntity("wall", mgl64.Vec3{}, actor.CubeAABB(mgl64.Vec3{}, 1))
	entity.Collider().AddCollision(actor.CollisionKindStatic, wall, mgl64.Vec3{}, mgl64.Vec3{1, 0, 0})

	events.resolveCollisions(42, []*actor.Entity{entity})
	events.flush()

	if capture.count() != 1 {
		t.Fatalf("Expected 1 event, got %d", capture.count())
	}
	event, ok := capture.events[0].(CollisionEvent)
	if !ok {
		t.Fatalf("Expected CollisionEvent, got %T", capture.events[0])
	}
	if event.Tick != 42 || event.Entity != entity || event.Collision.Other != wall {
		t.Errorf("Unexpected event %+v", event)
	}
}

// =============================================================================
// Settle/Wake Tests
// =============================================================================

func TestEvents_SettleAndWake(t *testing.T) {
	events := NewEvents()
	capture := &eventCapture{}
	events.Subscribe(ON_SETTLE, capture.capture)
	events.Subscribe(ON_WAKE, capture.capture)

	entity := createTestMovable("A", mgl64.Vec3{})
	entities := []*actor.Entity{entity}

	// First pass only records the state
	events.processPauseEvents(1, entities)
	events.flush()
	if capture.count() != 0 {
		t.Fatalf("Expected no event on first pass, got %d", capture.count())
	}

	entity.PauseSimulation(true)
	events.processPauseEvents(2, entities)
	events.flush()
	if !capture.hasEventType(ON_SETTLE) {
		t.Error("Expected ON_SETTLE event")
	}

	entity.PauseSimulation(false)
	events.processPauseEvents(3, entities)
	events.flush()
	if !capture.hasEventType(ON_WAKE) {
		t.Error("Expected ON_WAKE event")
	}
	if capture.count() != 2 {
		t.Errorf("Expected 2 events, got %d", capture.count())
	}
}

func TestEvents_ForgetClearsState(t *testing.T) {
	events := NewEvents()
	entity := createTestMovable("A", mgl64.Vec3{})

	events.processPauseEvents(1, []*actor.Entity{entity})
	events.forget(entity)

	if _, ok := events.pausedStates[entity.ID]; ok {
		t.Error("Paused state should be forgotten")
	}
}

func TestEvents_FlushClearsBuffer(t *testing.T) {
	events := NewEvents()
	entity := createTestMovable("A", mgl64.Vec3{})
	entity.Collider().AddCollision(actor.CollisionKindGround, nil, mgl64.Vec3{}, mgl64.Vec3{0, 1, 0})

	events.resolveCollisions(1, []*actor.Entity{entity})
	events.flush()

	if len(events.buffer) != 0 {
		t.Errorf("Expected empty buffer after flush, got %d", len(events.buffer))
	}
}
