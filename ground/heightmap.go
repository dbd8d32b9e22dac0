package ground

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// HeightMap is a regular grid of heights centered on the world origin.
// Samples between grid points are bilinearly interpolated, outside the grid the border is extended.
type HeightMap struct {
	Cols     int
	Rows     int
	CellSize float64
	Heights  []float64 // Row major, Rows*Cols
}

// NewHeightMap creates a flat height map
func NewHeightMap(cols, rows int, cellSize float64) *HeightMap {
	if cols < 2 {
		cols = 2
	}
	if rows < 2 {
		rows = 2
	}
	if cellSize <= 0 {
		cellSize = 1
	}

	return &HeightMap{
		Cols:     cols,
		Rows:     rows,
		CellSize: cellSize,
		Heights:  make([]float64, cols*rows),
	}
}

// GenerateNoise fills the map with deterministic value noise in [-amplitude, amplitude].
// period is the number of cells between two noise lattice points.
func (h *HeightMap) GenerateNoise(seed uint32, amplitude float64, period int) {
	if period < 1 {
		period = 1
	}

	for row := 0; row < h.Rows; row++ {
		for col := 0; col < h.Cols; col++ {
			fx := float64(col) / float64(period)
			fz := float64(row) / float64(period)
			x0, z0 := int32(math.Floor(fx)), int32(math.Floor(fz))
			tx, tz := smooth(fx-float64(x0)), smooth(fz-float64(z0))

			v00 := lattice(seed, x0, z0)
			v10 := lattice(seed, x0+1, z0)
			v01 := lattice(seed, x0, z0+1)
			v11 := lattice(seed, x0+1, z0+1)

			v := lerp(lerp(v00, v10, tx), lerp(v01, v11, tx), tz)
			h.Heights[row*h.Cols+col] = v * amplitude
		}
	}
}

func (h *HeightMap) Set(col, row int, height float64) {
	h.Heights[row*h.Cols+col] = height
}

func (h *HeightMap) at(col, row int) float64 {
	col = min(max(col, 0), h.Cols-1)
	row = min(max(row, 0), h.Rows-1)
	return h.Heights[row*h.Cols+col]
}

// gridCoordinates converts world X/Z to fractional grid coordinates
func (h *HeightMap) gridCoordinates(position mgl64.Vec3) (float64, float64) {
	halfWidth := float64(h.Cols-1) * h.CellSize * 0.5
	halfDepth := float64(h.Rows-1) * h.CellSize * 0.5

	gx := (position.X() + halfWidth) / h.CellSize
	gz := (position.Z() + halfDepth) / h.CellSize

	gx = math.Min(math.Max(gx, 0), float64(h.Cols-1))
	gz = math.Min(math.Max(gz, 0), float64(h.Rows-1))
	return gx, gz
}

func (h *HeightMap) LevelAt(position mgl64.Vec3) float64 {
	gx, gz := h.gridCoordinates(position)
	col, row := int(math.Floor(gx)), int(math.Floor(gz))
	tx, tz := gx-float64(col), gz-float64(row)

	top := lerp(h.at(col, row), h.at(col+1, row), tx)
	bottom := lerp(h.at(col, row+1), h.at(col+1, row+1), tx)
	return lerp(top, bottom, tz)
}

// NormalAt uses central differences over one cell
func (h *HeightMap) NormalAt(position mgl64.Vec3) mgl64.Vec3 {
	d := h.CellSize
	left := h.LevelAt(position.Sub(mgl64.Vec3{d, 0, 0}))
	right := h.LevelAt(position.Add(mgl64.Vec3{d, 0, 0}))
	back := h.LevelAt(position.Sub(mgl64.Vec3{0, 0, d}))
	front := h.LevelAt(position.Add(mgl64.Vec3{0, 0, d}))

	return mgl64.Vec3{left - right, 2 * d, back - front}.Normalize()
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func smooth(t float64) float64 {
	return t * t * (3 - 2*t)
}

// lattice maps a lattice point to [-1, 1]
func lattice(seed uint32, x, z int32) float64 {
	return float64(hash2(seed, x, z))/float64(math.MaxUint32)*2 - 1
}

// hash2 returns a stable hash for 2D integer coordinates + seed.
func hash2(seed uint32, x, z int32) uint32 {
	h := seed
	h ^= uint32(x) * 0x9e3779b1
	h ^= uint32(z) * 0x85ebca6b

	h ^= h >> 16
	h *= 0x7feb352d
	h ^= h >> 15
	h *= 0x846ca68b
	h ^= h >> 16
	return h
}
