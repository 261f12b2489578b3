package raster

import (
	"math"

	"github.com/paulmach/orb"
)

// Transform is an affine map from pixel (col, row) space to world (x, y)
// space:
//
//	x = A*col + C*row + E
//	y = B*col + D*row + F
//
// A north-up raster has B = C = 0, A the cell width and D the negated cell
// height, with (E, F) the world position of the upper-left corner.
type Transform struct {
	A float64
	B float64
	C float64
	D float64
	E float64
	F float64
}

// NorthUp returns the transform of a north-up grid whose upper-left corner
// is at (x0, y0) with square cells of the given size.
func NorthUp(x0, y0, cellSize float64) Transform {
	return Transform{
		A: cellSize, C: 0, E: x0,
		B: 0, D: -cellSize, F: y0,
	}
}

func (m Transform) Multiply(other Transform) Transform {
	return Transform{
		A: m.A*other.A + m.C*other.B,
		B: m.B*other.A + m.D*other.B,
		C: m.A*other.C + m.C*other.D,
		D: m.B*other.C + m.D*other.D,
		E: m.A*other.E + m.C*other.F + m.E,
		F: m.B*other.E + m.D*other.F + m.F,
	}
}

func (m Transform) transformX(x, y float64) float64 {
	return m.A*x + m.C*y + m.E
}

func (m Transform) transformY(x, y float64) float64 {
	return m.B*x + m.D*y + m.F
}

// TransformPoint maps pixel-space coordinates to world coordinates.
func (m Transform) TransformPoint(col, row float64) (float64, float64) {
	return m.transformX(col, row), m.transformY(col, row)
}

// PixelCenter returns the world coordinates of the centre of cell (col, row).
func (m Transform) PixelCenter(col, row int) (float64, float64) {
	return m.TransformPoint(float64(col)+0.5, float64(row)+0.5)
}

// Invert returns the inverse transform. The determinant must be non-zero.
func (m Transform) Invert() Transform {
	det := m.A*m.D - m.B*m.C
	return Transform{
		A: m.D / det,
		B: -m.B / det,
		C: -m.C / det,
		D: m.A / det,
		E: (m.C*m.F - m.D*m.E) / det,
		F: (m.B*m.E - m.A*m.F) / det,
	}
}

// Pixel maps world coordinates to fractional pixel coordinates.
func (m Transform) Pixel(x, y float64) (col, row float64) {
	return m.Invert().TransformPoint(x, y)
}

// Index returns the cell containing the world point (x, y).
func (m Transform) Index(x, y float64) (col, row int) {
	c, r := m.Pixel(x, y)
	return int(math.Floor(c)), int(math.Floor(r))
}

// Translate returns the transform of a raster whose pixel (0, 0) is pixel
// (col, row) of m.
func (m Transform) Translate(col, row int) Transform {
	return m.Multiply(Transform{
		A: 1, C: 0, E: float64(col),
		B: 0, D: 1, F: float64(row),
	})
}

// CellSize returns the world width and height of one cell.
func (m Transform) CellSize() (float64, float64) {
	return math.Hypot(m.A, m.B), math.Hypot(m.C, m.D)
}

// PixelBounds returns the world bounds covered by the half-open pixel range
// [col0, col1) x [row0, row1).
func (m Transform) PixelBounds(col0, row0, col1, row1 int) orb.Bound {
	x0, y0 := m.TransformPoint(float64(col0), float64(row0))
	bound := orb.Bound{Min: orb.Point{x0, y0}, Max: orb.Point{x0, y0}}
	for _, corner := range [][2]int{{col1, row0}, {col0, row1}, {col1, row1}} {
		x, y := m.TransformPoint(float64(corner[0]), float64(corner[1]))
		bound = bound.Extend(orb.Point{x, y})
	}
	return bound
}
