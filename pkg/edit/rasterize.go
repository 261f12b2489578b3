package edit

import (
	"image"
	"image/draw"

	"valleyswaths/pkg/raster"

	"github.com/paulmach/orb"
	"golang.org/x/image/vector"
)

// coverageThreshold is the least alpha of a set cell.
const coverageThreshold = 0x80

// Rasterize draws polygons on a width x height grid whose pixel to world
// mapping is transform. A cell is set when its 8-bit coverage is at least
// 128/255, just over half of the cell; a cell covered exactly half way may
// land on either side. Overlapping polygons add up. Holes are cut out
// whatever the orientation of their rings.
func Rasterize(polygons []orb.Polygon, transform raster.Transform, width, height int) []bool {
	mask := make([]bool, width*height)
	if width <= 0 || height <= 0 || len(polygons) == 0 {
		return mask
	}
	inverse := transform.Invert()
	z := vector.NewRasterizer(width, height)
	z.DrawOp = draw.Src

	drawRing := func(ring orb.Ring, want orb.Orientation) {
		if len(ring) < 4 {
			return
		}
		at := func(i int) orb.Point { return ring[i] }
		if ring.Orientation() != want {
			n := len(ring)
			at = func(i int) orb.Point { return ring[n-1-i] }
		}
		for i := 0; i < len(ring); i++ {
			p := at(i)
			col, row := inverse.TransformPoint(p[0], p[1])
			if i == 0 {
				z.MoveTo(float32(col), float32(row))
			} else {
				z.LineTo(float32(col), float32(row))
			}
		}
		z.ClosePath()
	}
	for _, polygon := range polygons {
		for i, ring := range polygon {
			if i == 0 {
				drawRing(ring, orb.CCW)
			} else {
				drawRing(ring, orb.CW)
			}
		}
	}

	dst := image.NewAlpha(image.Rect(0, 0, width, height))
	z.Draw(dst, dst.Bounds(), image.Opaque, image.Point{})
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			mask[col+row*width] = dst.Pix[col+row*dst.Stride] >= coverageThreshold
		}
	}
	return mask
}
