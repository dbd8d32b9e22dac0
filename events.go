package octant

import (
	"github.com/akmonengine/octant/actor"
	"github.com/google/uuid"
)

const (
	GROUND_COLLISION EventType = iota
	BOUNDARY_COLLISION
	STATIC_COLLISION
	MOVABLE_COLLISION
	ON_SETTLE
	ON_WAKE
)

type EventType uint8

// Event interface - all events implement this
type Event interface {
	Type() EventType
}

// CollisionEvent is emitted once per collision resolved on Entity
type CollisionEvent struct {
	Tick      uint64
	Entity    *actor.Entity
	Collision actor.Collision
}

func (e CollisionEvent) Type() EventType {
	switch e.Collision.Kind {
	case actor.CollisionKindGround:
		return GROUND_COLLISION
	case actor.CollisionKindBoundary:
		return BOUNDARY_COLLISION
	case actor.CollisionKindStatic:
		return STATIC_COLLISION
	default:
		return MOVABLE_COLLISION
	}
}

// SettleEvent is emitted when a movable gets its simulation paused
type SettleEvent struct {
	Tick   uint64
	Entity *actor.Entity
}

func (e SettleEvent) Type() EventType { return ON_SETTLE }

// WakeEvent is emitted when a settled movable is simulated again
type WakeEvent struct {
	Tick   uint64
	Entity *actor.Entity
}

func (e WakeEvent) Type() EventType { return ON_WAKE }

// EventListener - callback for events
type EventListener func(event Event)

// Events manager
type Events struct {
	// Listeners by event type
	listeners map[EventType][]EventListener

	// Event buffer to send at flush
	buffer []Event

	pausedStates map[uuid.UUID]bool
}

func NewEvents() Events {
	return Events{
		listeners:    make(map[EventType][]EventListener),
		buffer:       make([]Event, 0, 256),
		pausedStates: make(map[uuid.UUID]bool),
	}
}

// Subscribe adds a listener for an event type
func (e *Events) Subscribe(eventType EventType, listener EventListener) {
	e.listeners[eventType] = append(e.listeners[eventType], listener)
}

// resolveCollisions drains the collider of every movable, applies the collisions and
// buffers one event per collision. It returns the number of collisions resolved.
func (e *Events) resolveCollisions(tick uint64, entities []*actor.Entity) int {
	resolved := 0
	for _, entity := range entities {
		collider := entity.Collider()
		if collider == nil || !collider.HasCollisions() {
			continue
		}

		for _, collision := range collider.ResolveCollisions(entity) {
			e.buffer = append(e.buffer, CollisionEvent{Tick: tick, Entity: entity, Collision: collision})
			resolved++
		}
	}
	return resolved
}

// processPauseEvents compares the paused state of each movable with the previous tick
func (e *Events) processPauseEvents(tick uint64, entities []*actor.Entity) {
	for _, entity := range entities {
		if !entity.IsMovable() {
			continue
		}

		paused := entity.IsSimulationPaused()
		trackedState, exists := e.pausedStates[entity.ID]
		if !exists {
			e.pausedStates[entity.ID] = paused
			continue
		}

		if !trackedState && paused {
			e.buffer = append(e.buffer, SettleEvent{Tick: tick, Entity: entity})
		} else if trackedState && !paused {
			e.buffer = append(e.buffer, WakeEvent{Tick: tick, Entity: entity})
		}
		e.pausedStates[entity.ID] = paused
	}
}

func (e *Events) forget(entity *actor.Entity) {
	delete(e.pausedStates, entity.ID)
}

// flush sends all buffered events and clears the buffer
func (e *Events) flush() {
	for _, event := range e.buffer {
		if listeners, ok := e.listeners[event.Type()]; ok {
			for _, listener := range listeners {
				listener(event)
			}
		}
	}
	clear(e.buffer)
	e.buffer = e.buffer[:0]
}
