package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// InertiaThreshold is the impact speed (m/s) under which a grounded movable is settled
const InertiaThreshold = 0.5

// DefaultBounciness is used when deflecting on a surface
const DefaultBounciness = 0.75

// Movable is the trait of an entity that moves on its own
type Movable struct {
	Velocity mgl64.Vec3 // Linear velocity (m/s)
	Mass     float64
	// 0.0 - 1.0, typical : 0.01
	LinearDamping float64
	Bounciness    float64

	// AlwaysComputePhysics prevents the movable from ever being settled
	AlwaysComputePhysics bool

	SleepTimer float64

	accumulatedForce mgl64.Vec3
	paused           bool
	collider         Collider
}

// NewMovable creates a movable trait with the given mass
func NewMovable(mass float64) *Movable {
	if mass <= 0 {
		mass = 1.0
	}

	return &Movable{
		Mass:       mass,
		Bounciness: DefaultBounciness,
		collider:   newCollider(),
	}
}

func (m *Movable) Collider() *Collider {
	return &m.collider
}

func (m *Movable) Speed() float64 {
	return m.Velocity.Len()
}

func (m *Movable) IsMoving() bool {
	return m.Speed() > 0 || m.accumulatedForce.Len() > 0
}

func (m *Movable) IsPaused() bool {
	return m.paused
}

func (m *Movable) Pause(state bool) {
	if state && m.AlwaysComputePhysics {
		return
	}

	m.paused = state
	m.SleepTimer = 0.0
}

// AddForce in N, wakes the movable up
func (m *Movable) AddForce(force mgl64.Vec3) {
	m.Pause(false)
	m.accumulatedForce = m.accumulatedForce.Add(force)
}

// Stop completely stops the movement
func (m *Movable) Stop() {
	m.Velocity = mgl64.Vec3{}
	m.accumulatedForce = mgl64.Vec3{}
}

// Deflect reflects the part of the velocity going into the surface
func (m *Movable) Deflect(surfaceNormal mgl64.Vec3, bounciness float64) {
	if surfaceNormal.Len() == 0 {
		return
	}

	n := surfaceNormal.Normalize()
	into := m.Velocity.Dot(n)
	if into >= 0 {
		return
	}

	m.Velocity = m.Velocity.Sub(n.Mul((1.0 + bounciness) * into))
}

// TrySleep settles the movable once its speed stayed under speedThreshold for timeThreshold
func (m *Movable) TrySleep(dt float64, timeThreshold float64, speedThreshold float64) {
	if m.AlwaysComputePhysics {
		return
	}

	if m.Speed() < speedThreshold {
		m.SleepTimer += dt
		if m.SleepTimer >= timeThreshold {
			m.Stop()
			m.Pause(true)
		}
	} else {
		m.SleepTimer = 0.0
	}
}

// integrate returns the displacement over dt and updates the velocity
func (m *Movable) integrate(dt float64, gravity mgl64.Vec3) mgl64.Vec3 {
	acceleration := gravity.Add(m.accumulatedForce.Mul(1.0 / m.Mass))
	m.Velocity = m.Velocity.Add(acceleration.Mul(dt))
	m.Velocity = m.Velocity.Mul(math.Exp(-m.LinearDamping * dt))
	m.accumulatedForce = mgl64.Vec3{}

	return m.Velocity.Mul(dt)
}
