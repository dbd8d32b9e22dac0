// Package ground provides the surfaces the boundary clipper snaps entities onto.
package ground

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Ground is read, never mutated, by the clipper. Only the X and Z coordinates of the
// world position are used.
type Ground interface {
	LevelAt(position mgl64.Vec3) float64
	NormalAt(position mgl64.Vec3) mgl64.Vec3
}

// Plane represents an infinite plane
// The plane is defined by the equation: Normal · p + Distance = 0
// where Normal is the plane's normal vector (must be normalized)
type Plane struct {
	Normal   mgl64.Vec3
	Distance float64
}

// NewFlatPlane returns a horizontal plane at the given height
func NewFlatPlane(height float64) Plane {
	return Plane{Normal: mgl64.Vec3{0, 1, 0}, Distance: -height}
}

// LevelAt solves the plane equation for Y. A vertical plane has no level.
func (p Plane) LevelAt(position mgl64.Vec3) float64 {
	if p.Normal.Y() == 0 {
		return math.Inf(-1)
	}

	return -(p.Distance + p.Normal.X()*position.X() + p.Normal.Z()*position.Z()) / p.Normal.Y()
}

func (p Plane) NormalAt(mgl64.Vec3) mgl64.Vec3 {
	if p.Normal.Y() < 0 {
		return p.Normal.Mul(-1)
	}
	return p.Normal
}
