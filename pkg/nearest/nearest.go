// Package nearest computes, for every valid cell of a mask raster, the
// nearest reference axis, the measure of the cell projected onto that axis
// and its signed distance to it.
package nearest

import (
	"errors"

	"valleyswaths/pkg/axis"
	"valleyswaths/pkg/geometry"
	"valleyswaths/pkg/raster"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// NoData of the float rasters of a Field. Axis ids use 0.
const NoData = -99999

var ErrEmptyGeometry = errors.New("nearest: no axis segment to search")

// midpoint is a segment keyed by its midpoint in the k-d tree.
type midpoint struct {
	x, y    float64
	segment axis.Segment
}

func (p midpoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(midpoint)
	switch d {
	case 0:
		return p.x - q.x
	case 1:
		return p.y - q.y
	default:
		panic("illegal dimension")
	}
}

func (p midpoint) Dims() int { return 2 }

// Distance is squared euclidean distance.
func (p midpoint) Distance(c kdtree.Comparable) float64 {
	q := c.(midpoint)
	dx, dy := p.x-q.x, p.y-q.y
	return dx*dx + dy*dy
}

type midpoints []midpoint

func (p midpoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p midpoints) Len() int                              { return len(p) }
func (p midpoints) Pivot(d kdtree.Dim) int                { return plane{midpoints: p, Dim: d}.Pivot() }
func (p midpoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

type plane struct {
	kdtree.Dim
	midpoints
}

func (p plane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.midpoints[i].x < p.midpoints[j].x
	case 1:
		return p.midpoints[i].y < p.midpoints[j].y
	default:
		panic("illegal dimension")
	}
}
func (p plane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.midpoints = p.midpoints[start:end]
	return p
}
func (p plane) Swap(i, j int) {
	p.midpoints[i], p.midpoints[j] = p.midpoints[j], p.midpoints[i]
}

// Index is a k-d tree over the midpoints of the axis segments. It is
// immutable once built and safe for concurrent use.
type Index struct {
	tree *kdtree.Tree
	size int
}

// NewIndex indexes the segments formed by consecutive vertices. Vertex
// pairs belonging to different axes do not form a segment.
func NewIndex(vertices []axis.Vertex) (*Index, error) {
	segments := axis.Segments(vertices)
	if len(segments) == 0 {
		return nil, ErrEmptyGeometry
	}
	points := make(midpoints, len(segments))
	for i, s := range segments {
		m := s.Midpoint()
		points[i] = midpoint{x: m.X, y: m.Y, segment: s}
	}
	return &Index{tree: kdtree.New(points, false), size: len(points)}, nil
}

func (idx *Index) Len() int { return idx.size }

// Match is the projection of a point onto its nearest axis segment.
type Match struct {
	Axis     uint32
	Measure  float64
	Distance float64
}

// Nearest projects (x, y) onto the segment whose midpoint is closest. The
// projection extends past the segment ends. Axis is 0 when the segment
// endpoints disagree on their axis.
func (idx *Index) Nearest(x, y float64) Match {
	c, _ := idx.tree.Nearest(midpoint{x: x, y: y})
	s := c.(midpoint).segment
	t, signed := s.Line().Projection(geometry.Point{X: x, Y: y})
	m := Match{
		Measure:  s.A.M + t*(s.B.M-s.A.M),
		Distance: signed,
	}
	if s.A.Axis == s.B.Axis {
		m.Axis = s.A.Axis
	}
	return m
}

// Field holds the per cell results of Build. All rasters share the grid of
// the mask.
type Field struct {
	Axis     *raster.Raster
	Measure  *raster.Raster
	Distance *raster.Raster
}

// Empty reports whether no cell was assigned.
func (f *Field) Empty() bool {
	return f.Measure.Count() == 0
}

// Build evaluates every valid cell of mask at its cell centre. Cells where
// the mask is nodata are nodata in every output raster.
func (idx *Index) Build(mask *raster.Raster) *Field {
	f := &Field{
		Axis:     raster.Like(mask, raster.UInt32, 0),
		Measure:  raster.Like(mask, raster.Float32, NoData),
		Distance: raster.Like(mask, raster.Float32, NoData),
	}
	for row := 0; row < mask.Height; row++ {
		for col := 0; col < mask.Width; col++ {
			if !mask.Valid(col, row) {
				continue
			}
			x, y := mask.Transform.PixelCenter(col, row)
			m := idx.Nearest(x, y)
			f.Axis.Set(col, row, float64(m.Axis))
			f.Measure.Set(col, row, m.Measure)
			f.Distance.Set(col, row, m.Distance)
		}
	}
	return f
}
