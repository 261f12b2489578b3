package vectorize

import (
	"image"
	"sort"

	"valleyswaths/pkg/raster"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// area2 returns twice the signed area of r in pixel space. Exterior rings
// traced by Trace are positive, holes negative.
func area2(r PixelRing) int {
	a := 0
	for i, p := range r {
		q := r[(i+1)%len(r)]
		a += p.X*q.Y - q.X*p.Y
	}
	return a
}

// SplitRing splits a ring that visits a corner more than once into simple
// rings. It plays the role of a zero-width buffer for pixel rings, whose
// only possible defect is touching themselves at a corner.
func SplitRing(r PixelRing) []PixelRing {
	seen := make(map[image.Point]int, len(r))
	for j, p := range r {
		i, ok := seen[p]
		if !ok {
			seen[p] = j
			continue
		}
		loop := append(PixelRing(nil), r[i:j]...)
		rest := append(append(PixelRing(nil), r[:i]...), r[j:]...)
		return append(SplitRing(loop), SplitRing(rest)...)
	}
	if len(r) < 3 {
		return nil
	}
	return []PixelRing{r}
}

// interiorPoint returns a point strictly inside the area enclosed by a hole
// ring, half a pixel from its first edge.
func interiorPoint(hole PixelRing) orb.Point {
	a, b := hole[0], hole[1%len(hole)]
	dx, dy := sign(b.X-a.X), sign(b.Y-a.Y)
	mx, my := float64(a.X+b.X)/2, float64(a.Y+b.Y)/2
	// the region lies right of the edge, the hole on its left
	return orb.Point{mx + 0.5*float64(dy), my - 0.5*float64(dx)}
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func pixelRing(r PixelRing) orb.Ring {
	ring := make(orb.Ring, 0, len(r)+1)
	for _, p := range r {
		ring = append(ring, orb.Point{float64(p.X), float64(p.Y)})
	}
	return append(ring, ring[0])
}

// PixelPolygon is an exterior ring with the holes it encloses.
type PixelPolygon struct {
	Exterior PixelRing
	Holes    []PixelRing
}

// Assemble repairs the rings of one region and groups them into polygons.
// Every hole is attached to the smallest exterior that encloses it; holes
// enclosed by no exterior are returned as polygons of their own.
func Assemble(rings []PixelRing) []PixelPolygon {
	var exteriors, holes []PixelRing
	for _, r := range rings {
		for _, part := range SplitRing(r) {
			switch a := area2(part); {
			case a > 0:
				exteriors = append(exteriors, part)
			case a < 0:
				holes = append(holes, part)
			}
		}
	}
	sort.SliceStable(exteriors, func(i, j int) bool { return area2(exteriors[i]) < area2(exteriors[j]) })

	polygons := make([]PixelPolygon, len(exteriors))
	outlines := make([]orb.Ring, len(exteriors))
	for i, e := range exteriors {
		polygons[i].Exterior = e
		outlines[i] = pixelRing(e)
	}
	var orphans []PixelPolygon
	for _, h := range holes {
		p := interiorPoint(h)
		found := false
		for i := range outlines {
			if planar.RingContains(outlines[i], p) {
				polygons[i].Holes = append(polygons[i].Holes, h)
				found = true
				break
			}
		}
		if !found {
			orphans = append(orphans, PixelPolygon{Exterior: reverse(h)})
		}
	}
	return append(polygons, orphans...)
}

func reverse(r PixelRing) PixelRing {
	out := make(PixelRing, len(r))
	for i, p := range r {
		out[len(r)-1-i] = p
	}
	return out
}

// World maps a pixel polygon through transform. Vertices stay on cell
// corners. Exteriors are returned counter-clockwise and holes clockwise.
func (p PixelPolygon) World(transform raster.Transform) orb.Polygon {
	toWorld := func(r PixelRing, want orb.Orientation) orb.Ring {
		ring := make(orb.Ring, 0, len(r)+1)
		for _, v := range r {
			x, y := transform.TransformPoint(float64(v.X), float64(v.Y))
			ring = append(ring, orb.Point{x, y})
		}
		ring = append(ring, ring[0])
		if ring.Orientation() != want {
			ring.Reverse()
		}
		return ring
	}
	polygon := orb.Polygon{toWorld(p.Exterior, orb.CCW)}
	for _, h := range p.Holes {
		polygon = append(polygon, toWorld(h, orb.CW))
	}
	return polygon
}

// Area returns the area of p in pixels.
func (p PixelPolygon) Area() float64 {
	a := area2(p.Exterior)
	for _, h := range p.Holes {
		a += area2(h)
	}
	return float64(a) / 2
}
