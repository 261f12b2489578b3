package edit

import (
	"math"
	"sort"

	"valleyswaths/pkg/vectorize"

	"github.com/asim/quadtree"
	"github.com/paulmach/orb"
)

var zeroPoint = quadtree.NewPoint(0, 0, nil)

// Index finds the features whose bounds intersect a query box. Features are
// stored in a quadtree by the centre of their bounds; a query widens the box
// by the largest half extent of any feature, then tests the bounds exactly.
type Index struct {
	quadTree *quadtree.QuadTree
	features []vectorize.Feature
	bounds   []orb.Bound
	halfW    float64
	halfH    float64
	// overflow holds the features the quadtree refused
	overflow []int
}

func NewIndex(features []vectorize.Feature) *Index {
	ix := &Index{features: features, bounds: make([]orb.Bound, len(features))}
	if len(features) == 0 {
		return ix
	}
	var all orb.Bound
	for i, f := range features {
		b := f.Polygon.Bound()
		ix.bounds[i] = b
		if i == 0 {
			all = b
		} else {
			all = all.Union(b)
		}
		ix.halfW = math.Max(ix.halfW, (b.Max[0]-b.Min[0])/2)
		ix.halfH = math.Max(ix.halfH, (b.Max[1]-b.Min[1])/2)
	}

	center := all.Center()
	// Add a small margin to avoid dropping objects at the edges
	halfWidth := (all.Max[0]-all.Min[0])/2 + 10
	halfHeight := (all.Max[1]-all.Min[1])/2 + 10
	aabb := quadtree.NewAABB(
		quadtree.NewPoint(center[0], center[1], nil),
		quadtree.NewPoint(halfWidth, halfHeight, nil))
	ix.quadTree = quadtree.New(aabb, 0, nil)

	for i, b := range ix.bounds {
		ix.add(i, b.Center())
	}
	return ix
}

func (ix *Index) add(i int, c orb.Point) {
	point := quadtree.NewPoint(c[0], c[1], nil)
	points := ix.quadTree.KNearest(quadtree.NewAABB(point, zeroPoint), 1, nil)
	if len(points) > 0 {
		x, y := points[0].Coordinates()
		if x == c[0] && y == c[1] {
			// Several features share this centre
			ids := points[0].Data().(*[]int)
			*ids = append(*ids, i)
			return
		}
	}
	ids := &[]int{i}
	if !ix.quadTree.Insert(quadtree.NewPoint(c[0], c[1], ids)) {
		ix.overflow = append(ix.overflow, i)
	}
}

func (ix *Index) Len() int {
	return len(ix.features)
}

func (ix *Index) Feature(i int) vectorize.Feature {
	return ix.features[i]
}

// Search returns the indices of the features whose bounds intersect b, in
// increasing order.
func (ix *Index) Search(b orb.Bound) []int {
	if ix.quadTree == nil {
		return nil
	}
	center := b.Center()
	aabb := quadtree.NewAABB(
		quadtree.NewPoint(center[0], center[1], nil),
		quadtree.NewPoint((b.Max[0]-b.Min[0])/2+ix.halfW, (b.Max[1]-b.Min[1])/2+ix.halfH, nil))

	var found []int
	for _, point := range ix.quadTree.Search(aabb) {
		for _, i := range *point.Data().(*[]int) {
			if ix.bounds[i].Intersects(b) {
				found = append(found, i)
			}
		}
	}
	for _, i := range ix.overflow {
		if ix.bounds[i].Intersects(b) {
			found = append(found, i)
		}
	}
	sort.Ints(found)
	return found
}
