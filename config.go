package octant

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	DefaultMaxElementsPerSector = 32
	DefaultMaxDepth             = 10
	// MaxSupportedDepth keeps the smallest sector width well above float precision
	MaxSupportedDepth = 24
)

const (
	ErrTypeInvalidBoundary  = "invalid-boundary"
	ErrTypeInvalidDepth     = "invalid-depth"
	ErrTypeInvalidVolume    = "invalid-volume"
	ErrTypeOutOfBoundary    = "out-of-boundary"
	ErrTypeDuplicateElement = "duplicate-element"
	ErrTypeUnknownElement   = "unknown-element"
)

// IndexConfig is the configuration surface of an octree index
type IndexConfig struct {
	// Name labels logs and metrics, e.g. "physics" or "render"
	Name string
	// Boundary is the half width of the world cube, must be > 0
	Boundary float64
	// MaxElementsPerSector is the resident count a leaf may hold before it subdivides
	MaxElementsPerSector int
	// MaxDepth is the depth at which leaves stop subdividing
	MaxDepth int
	// AutoCollapse merges empty sub-trees back into a single leaf
	AutoCollapse bool
	// ReserveHint is the expected number of elements, used to pre-size storage
	ReserveHint int
}

// DefaultIndexConfig returns a configuration with the default split policy
func DefaultIndexConfig(name string, boundary float64) IndexConfig {
	return IndexConfig{
		Name:                 name,
		Boundary:             boundary,
		MaxElementsPerSector: DefaultMaxElementsPerSector,
		MaxDepth:             DefaultMaxDepth,
		AutoCollapse:         true,
	}
}

func (c IndexConfig) withDefaults() (IndexConfig, error) {
	if !(c.Boundary > 0) {
		return c, errors.New("world boundary must be positive").
			WithType(ErrTypeInvalidBoundary).
			WithTag("index", c.Name).
			WithTag("boundary", c.Boundary)
	}

	if c.MaxDepth < 0 || c.MaxDepth > MaxSupportedDepth {
		return c, errors.New("octree depth out of range").
			WithType(ErrTypeInvalidDepth).
			WithTag("index", c.Name).
			WithTag("max_depth", c.MaxDepth)
	}

	if c.MaxDepth == 0 {
		c.MaxDepth = DefaultMaxDepth
	}
	if c.MaxElementsPerSector <= 0 {
		c.MaxElementsPerSector = DefaultMaxElementsPerSector
	}
	if c.ReserveHint < 0 {
		c.ReserveHint = 0
	}
	return c, nil
}

// SceneConfig configures a Scene and the two indexes it owns
type SceneConfig struct {
	Boundary float64
	Gravity  mgl64.Vec3
	Workers  int

	Physics IndexConfig
	Render  IndexConfig

	// CorrectionDistance is an extra gap kept when clipping against the world
	CorrectionDistance float64

	// Settling policy of movables
	SleepTime      float64
	SleepThreshold float64
}

// DefaultSceneConfig returns a scene with earth gravity and both indexes enabled
func DefaultSceneConfig(boundary float64) SceneConfig {
	return SceneConfig{
		Boundary:       boundary,
		Gravity:        mgl64.Vec3{0, -9.81, 0},
		Workers:        DEFAULT_WORKERS,
		Physics:        DefaultIndexConfig("physics", boundary),
		Render:         DefaultIndexConfig("render", boundary),
		SleepTime:      0.1,
		SleepThreshold: 0.05,
	}
}
