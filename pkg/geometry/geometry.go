package geometry

import (
	"math"
)

type Point struct {
	X float64
	Y float64
}

type Vector2 = Point

type LineSegment struct {
	A Point
	B Point
}

type Polyline []Point

func (a Vector2) Minus(b Vector2) Vector2 {
	return Vector2{
		X: a.X - b.X,
		Y: a.Y - b.Y,
	}
}

func (v Vector2) Magnitude() float64 {
	return math.Hypot(v.X, v.Y)
}

func (a Vector2) Dot(b Vector2) float64 {
	return a.X*b.X + a.Y*b.Y
}

func (a Vector2) CrossProductZ(b Vector2) float64 {
	return a.X*b.Y - a.Y*b.X
}

// Distance returns the distance between two points.
func (p Point) Distance(other Point) float64 {
	return math.Hypot(p.X-other.X, p.Y-other.Y)
}

// Midpoint returns the point halfway between p and other.
func (p Point) Midpoint(other Point) Point {
	return Point{X: (p.X + other.X) / 2, Y: (p.Y + other.Y) / 2}
}

// Projection locates p relative to the line through A and B.
//
// t is the position of the orthogonal projection of p along AB, with 0 at A
// and 1 at B; it is not clamped, so points beyond the endpoints extrapolate.
// signed is the perpendicular distance from p to the line, positive when p
// lies to the left of the direction A->B. For a degenerate segment t is 0
// and signed is the unsigned distance to A.
func (s LineSegment) Projection(p Point) (t, signed float64) {
	AB := s.B.Minus(s.A)
	AP := p.Minus(s.A)
	mAB := AB.Magnitude()
	if mAB == 0 {
		return 0, AP.Magnitude()
	}
	t = AP.Dot(AB) / (mAB * mAB)
	signed = AB.CrossProductZ(AP) / mAB
	return t, signed
}

// Length returns the total length of the polyline.
func (line Polyline) Length() float64 {
	total := 0.0
	for i := 1; i < len(line); i++ {
		total += line[i-1].Distance(line[i])
	}
	return total
}

// CumulativeLength returns, for every vertex, the arc length from the first
// vertex plus offset.
func (line Polyline) CumulativeLength(offset float64) []float64 {
	if len(line) == 0 {
		return nil
	}
	lengths := make([]float64, len(line))
	lengths[0] = offset
	for i := 1; i < len(line); i++ {
		lengths[i] = lengths[i-1] + line[i-1].Distance(line[i])
	}
	return lengths
}

// Reverse returns a copy of the polyline with the vertex order reversed.
func (line Polyline) Reverse() Polyline {
	reversed := make(Polyline, len(line))
	for i, p := range line {
		reversed[len(line)-1-i] = p
	}
	return reversed
}
