package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// AABB represents an axis-aligned bounding box
// Invariant: Min <= Max on every axis
type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// NewAABB builds a box from two opposite corners given in any order
func NewAABB(a, b mgl64.Vec3) AABB {
	return AABB{
		Min: mgl64.Vec3{math.Min(a[0], b[0]), math.Min(a[1], b[1]), math.Min(a[2], b[2])},
		Max: mgl64.Vec3{math.Max(a[0], b[0]), math.Max(a[1], b[1]), math.Max(a[2], b[2])},
	}
}

// CubeAABB returns the cube centered on center with the given half width
func CubeAABB(center mgl64.Vec3, halfWidth float64) AABB {
	h := mgl64.Vec3{halfWidth, halfWidth, halfWidth}
	return AABB{Min: center.Sub(h), Max: center.Add(h)}
}

// IsValid reports whether the box is finite and ordered on every axis
func (a AABB) IsValid() bool {
	for i := 0; i < 3; i++ {
		if math.IsNaN(a.Min[i]) || math.IsNaN(a.Max[i]) || math.IsInf(a.Min[i], 0) || math.IsInf(a.Max[i], 0) {
			return false
		}
		if a.Min[i] > a.Max[i] {
			return false
		}
	}
	return true
}

// ContainsPoint checks if a point is inside the AABB
func (a AABB) ContainsPoint(point mgl64.Vec3) bool {
	return point.X() >= a.Min.X() && point.X() <= a.Max.X() &&
		point.Y() >= a.Min.Y() && point.Y() <= a.Max.Y() &&
		point.Z() >= a.Min.Z() && point.Z() <= a.Max.Z()
}

// Contains checks if other lies completely inside the AABB, faces included
func (a AABB) Contains(other AABB) bool {
	return a.ContainsPoint(other.Min) && a.ContainsPoint(other.Max)
}

// Overlaps checks if two AABBs overlap
func (a AABB) Overlaps(other AABB) bool {
	// AABBs overlap if they overlap on all three axes
	return a.Max.X() >= other.Min.X() && a.Min.X() <= other.Max.X() &&
		a.Max.Y() >= other.Min.Y() && a.Min.Y() <= other.Max.Y() &&
		a.Max.Z() >= other.Min.Z() && a.Min.Z() <= other.Max.Z()
}

// Intersection returns the overlapping region of two boxes, ok is false when they are apart
func (a AABB) Intersection(other AABB) (AABB, bool) {
	if !a.Overlaps(other) {
		return AABB{}, false
	}

	return AABB{
		Min: mgl64.Vec3{math.Max(a.Min[0], other.Min[0]), math.Max(a.Min[1], other.Min[1]), math.Max(a.Min[2], other.Min[2])},
		Max: mgl64.Vec3{math.Min(a.Max[0], other.Max[0]), math.Min(a.Max[1], other.Max[1]), math.Min(a.Max[2], other.Max[2])},
	}, true
}

func (a AABB) Center() mgl64.Vec3 {
	return a.Min.Add(a.Max).Mul(0.5)
}

func (a AABB) Size() mgl64.Vec3 {
	return a.Max.Sub(a.Min)
}

// Width returns the size on the X axis, sectors are cubes so this is enough to describe them
func (a AABB) Width() float64 {
	return a.Max.X() - a.Min.X()
}

func (a AABB) Translate(offset mgl64.Vec3) AABB {
	return AABB{Min: a.Min.Add(offset), Max: a.Max.Add(offset)}
}

// BottomCorners returns the four corners of the lowest face (minimum Y)
func (a AABB) BottomCorners() [4]mgl64.Vec3 {
	return [4]mgl64.Vec3{
		{a.Max.X(), a.Min.Y(), a.Min.Z()},
		{a.Min.X(), a.Min.Y(), a.Min.Z()},
		{a.Min.X(), a.Min.Y(), a.Max.Z()},
		{a.Max.X(), a.Min.Y(), a.Max.Z()},
	}
}

// BoundingRadius is the radius of the sphere centered on the box center enclosing the box
func (a AABB) BoundingRadius() float64 {
	return a.Size().Len() * 0.5
}
