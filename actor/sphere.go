package actor

import "github.com/go-gl/mathgl/mgl64"

// Sphere is a world space bounding sphere
type Sphere struct {
	Center mgl64.Vec3
	Radius float64
}

// Overlap returns the penetration depth of two spheres, a value <= 0 means they are apart
func (s Sphere) Overlap(other Sphere) float64 {
	return (s.Radius + other.Radius) - s.Center.Sub(other.Center).Len()
}

func (s Sphere) Overlaps(other Sphere) bool {
	return s.Overlap(other) >= 0
}

// AABB returns the cube enclosing the sphere
func (s Sphere) AABB() AABB {
	return CubeAABB(s.Center, s.Radius)
}
