package vectorize

import "image"

// Directions of pixel edges, in pixel space where rows grow downward.
const (
	east = iota
	south
	west
	north
)

var steps = [4]image.Point{{1, 0}, {0, 1}, {-1, 0}, {0, -1}}

// PixelRing is a closed ring of pixel corner coordinates. The first vertex
// is not repeated at the end.
type PixelRing []image.Point

// edgeOwner returns the cell bordered by the edge leaving corner (x, y) in
// direction d. Edges are oriented so that their cell is on the same side
// for every direction.
func edgeOwner(x, y, d int) (int, int) {
	switch d {
	case east:
		return x, y
	case south:
		return x - 1, y
	case west:
		return x - 1, y - 1
	default:
		return x, y - 1
	}
}

// Trace follows the boundaries of every region as rings of pixel corners.
// Regions are traced so that diagonal neighbours stay in one ring, which
// matches an 8-connected labelling: at a corner shared by two diagonal
// cells of the region the ring turns toward the other cell. A region that
// touches itself at a corner yields a ring visiting that corner twice.
//
// Rings are returned per label, in scan order of their first edge.
func Trace(regions *Regions) map[int32][]PixelRing {
	w, h := regions.Width, regions.Height
	stride := w + 1
	edges := make([]uint8, stride*(h+1))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			l := regions.At(x, y)
			if l == 0 {
				continue
			}
			if regions.At(x, y-1) != l {
				edges[x+y*stride] |= 1 << east
			}
			if regions.At(x+1, y) != l {
				edges[x+1+y*stride] |= 1 << south
			}
			if regions.At(x, y+1) != l {
				edges[x+1+(y+1)*stride] |= 1 << west
			}
			if regions.At(x-1, y) != l {
				edges[x+(y+1)*stride] |= 1 << north
			}
		}
	}

	rings := make(map[int32][]PixelRing)
	for v := range edges {
		for d := 0; d < 4; d++ {
			if edges[v]&(1<<d) == 0 {
				continue
			}
			x, y := v%stride, v/stride
			l := regions.At(edgeOwner(x, y, d))
			rings[l] = append(rings[l], follow(regions, edges, stride, x, y, d, l))
		}
	}
	return rings
}

func follow(regions *Regions, edges []uint8, stride, x0, y0, d0 int, l int32) PixelRing {
	var ring PixelRing
	x, y, d := x0, y0, d0
	for {
		edges[x+y*stride] &^= 1 << d
		ring = append(ring, image.Point{X: x, Y: y})
		x, y = x+steps[d].X, y+steps[d].Y

		// candidate edges leaving the new corner for the same region
		var candidates []int
		for nd := 0; nd < 4; nd++ {
			open := edges[x+y*stride]&(1<<nd) != 0 || (x == x0 && y == y0 && nd == d0)
			if !open {
				continue
			}
			if cx, cy := edgeOwner(x, y, nd); regions.At(cx, cy) != l {
				continue
			}
			candidates = append(candidates, nd)
		}
		next := -1
		switch len(candidates) {
		case 0:
		case 1:
			next = candidates[0]
		default:
			left := (d + 3) % 4
			next = candidates[0]
			for _, c := range candidates {
				if c == left {
					next = c
				}
			}
		}
		if next < 0 || (x == x0 && y == y0 && next == d0) {
			break
		}
		d = next
	}
	return dropCollinear(ring)
}

// dropCollinear removes vertices lying on a straight run, including the
// first vertex when the ring closes along a straight line.
func dropCollinear(ring PixelRing) PixelRing {
	if len(ring) < 4 {
		return ring
	}
	out := make(PixelRing, 0, len(ring))
	n := len(ring)
	for i, p := range ring {
		a, b := ring[(i+n-1)%n], ring[(i+1)%n]
		if (a.X == p.X && p.X == b.X) || (a.Y == p.Y && p.Y == b.Y) {
			continue
		}
		out = append(out, p)
	}
	return out
}
