// Package axis holds the reference axis network: measured polylines along
// which swaths are laid out.
package axis

import (
	"errors"
	"fmt"

	"valleyswaths/pkg/geometry"
)

var ErrEmptyNetwork = errors.New("axis: empty reference network")

// Vertex is one measured vertex of a reference axis.
type Vertex struct {
	X    float64
	Y    float64
	M    float64
	Axis uint32
}

func (v Vertex) Point() geometry.Point {
	return geometry.Point{X: v.X, Y: v.Y}
}

// Segment is a consecutive vertex pair of the same axis.
type Segment struct {
	A Vertex
	B Vertex
}

func (s Segment) Midpoint() geometry.Point {
	return s.A.Point().Midpoint(s.B.Point())
}

func (s Segment) Line() geometry.LineSegment {
	return geometry.LineSegment{A: s.A.Point(), B: s.B.Point()}
}

// Axis is one reference polyline. Its measure starts at M0 at the first
// vertex of Line and grows with arc length.
type Axis struct {
	ID   uint32
	M0   float64
	Line geometry.Polyline
}

func (a Axis) Length() float64 {
	return a.Line.Length()
}

// Vertices returns the measured vertices of the axis. Consecutive duplicate
// points are dropped so that measure is strictly increasing.
func (a Axis) Vertices() []Vertex {
	var line geometry.Polyline
	for i, p := range a.Line {
		if i > 0 && p == line[len(line)-1] {
			continue
		}
		line = append(line, p)
	}
	measures := line.CumulativeLength(a.M0)
	vertices := make([]Vertex, len(line))
	for i, p := range line {
		vertices[i] = Vertex{X: p.X, Y: p.Y, M: measures[i], Axis: a.ID}
	}
	return vertices
}

// Network is a set of reference axes.
type Network struct {
	Axes []Axis
}

// Vertices returns the vertices of all axes, axis after axis.
func (n *Network) Vertices() []Vertex {
	var vertices []Vertex
	for _, a := range n.Axes {
		vertices = append(vertices, a.Vertices()...)
	}
	return vertices
}

// Empty reports whether the network has no segment at all.
func (n *Network) Empty() bool {
	for _, a := range n.Axes {
		if len(a.Vertices()) >= 2 {
			return false
		}
	}
	return true
}

// Segments pairs consecutive vertices. Pairs that span two axes are not
// segments and are left out.
func Segments(vertices []Vertex) []Segment {
	var segments []Segment
	for i := 1; i < len(vertices); i++ {
		a, b := vertices[i-1], vertices[i]
		if a.Axis != b.Axis {
			continue
		}
		segments = append(segments, Segment{A: a, B: b})
	}
	return segments
}

// Validate checks that measure increases strictly along every axis.
func Validate(vertices []Vertex) error {
	for i := 1; i < len(vertices); i++ {
		a, b := vertices[i-1], vertices[i]
		if a.Axis == b.Axis && b.M <= a.M {
			return fmt.Errorf("axis %d: measure not increasing at vertex %d (%g after %g)", b.Axis, i, b.M, a.M)
		}
	}
	return nil
}
