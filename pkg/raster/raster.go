// Package raster holds single-band georeferenced grids and the windowed,
// boundless reads the swath stages are built on.
package raster

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// DType is the on-disk sample type of a raster.
type DType uint8

const (
	Float32 DType = iota + 1
	UInt32
	UInt8
)

func (d DType) String() string {
	switch d {
	case Float32:
		return "float32"
	case UInt32:
		return "uint32"
	case UInt8:
		return "uint8"
	default:
		return "unknown"
	}
}

// Raster is a single band grid. Samples are held as float64 in row-major
// order regardless of DType; DType only controls encoding.
type Raster struct {
	Width     int
	Height    int
	Data      []float64
	NoData    float64
	DType     DType
	Transform Transform
	SRID      int
}

// New returns a raster filled with nodata.
func New(width, height int, dtype DType, nodata float64, transform Transform) *Raster {
	r := &Raster{
		Width:     width,
		Height:    height,
		Data:      make([]float64, width*height),
		NoData:    nodata,
		DType:     dtype,
		Transform: transform,
	}
	r.Fill(nodata)
	return r
}

// Like returns a nodata-filled raster with the same shape, transform and
// SRID as r.
func Like(r *Raster, dtype DType, nodata float64) *Raster {
	out := New(r.Width, r.Height, dtype, nodata, r.Transform)
	out.SRID = r.SRID
	return out
}

func (r *Raster) Fill(v float64) {
	for i := range r.Data {
		r.Data[i] = v
	}
}

func (r *Raster) Index(col, row int) int {
	return col + row*r.Width
}

func (r *Raster) In(col, row int) bool {
	return col >= 0 && col < r.Width && row >= 0 && row < r.Height
}

func (r *Raster) At(col, row int) float64 {
	return r.Data[col+row*r.Width]
}

func (r *Raster) Set(col, row int, v float64) {
	r.Data[col+row*r.Width] = v
}

// IsNoData reports whether v is the nodata value of r. NaN nodata matches
// NaN samples.
func (r *Raster) IsNoData(v float64) bool {
	if math.IsNaN(r.NoData) {
		return math.IsNaN(v)
	}
	return v == r.NoData
}

// Valid reports whether cell (col, row) holds data.
func (r *Raster) Valid(col, row int) bool {
	return !r.IsNoData(r.At(col, row))
}

// Count returns the number of cells holding data.
func (r *Raster) Count() int {
	n := 0
	for _, v := range r.Data {
		if !r.IsNoData(v) {
			n++
		}
	}
	return n
}

// Bounds returns the world extent of the raster.
func (r *Raster) Bounds() orb.Bound {
	return r.Transform.PixelBounds(0, 0, r.Width, r.Height)
}

// Clone returns a deep copy of r.
func (r *Raster) Clone() *Raster {
	out := *r
	out.Data = make([]float64, len(r.Data))
	copy(out.Data, r.Data)
	return &out
}

// Window is a pixel-space rectangle of a raster. It may extend past the
// raster edges.
type Window struct {
	ColOff int
	RowOff int
	Width  int
	Height int
}

func (w Window) Empty() bool {
	return w.Width <= 0 || w.Height <= 0
}

func (w Window) String() string {
	return fmt.Sprintf("window(%d,%d %dx%d)", w.ColOff, w.RowOff, w.Width, w.Height)
}

// snap absorbs floating point noise from world-to-pixel conversions of
// bounds that were themselves derived from pixel edges.
const snap = 1e-6

// WindowFromBounds returns the smallest pixel window of the grid described
// by transform that covers bounds. The transform must be north-up.
func WindowFromBounds(bounds orb.Bound, transform Transform) Window {
	c0, r0 := transform.Pixel(bounds.Min[0], bounds.Max[1])
	c1, r1 := transform.Pixel(bounds.Max[0], bounds.Min[1])
	if c0 > c1 {
		c0, c1 = c1, c0
	}
	if r0 > r1 {
		r0, r1 = r1, r0
	}
	col0 := int(math.Floor(c0 + snap))
	row0 := int(math.Floor(r0 + snap))
	col1 := int(math.Ceil(c1 - snap))
	row1 := int(math.Ceil(r1 - snap))
	return Window{ColOff: col0, RowOff: row0, Width: col1 - col0, Height: row1 - row0}
}

// ReadWindow copies the window out of r. Cells of the window that fall
// outside r are filled with nodata rather than failing.
func (r *Raster) ReadWindow(w Window) *Raster {
	width, height := w.Width, w.Height
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	out := New(width, height, r.DType, r.NoData, r.Transform.Translate(w.ColOff, w.RowOff))
	out.SRID = r.SRID
	for row := 0; row < height; row++ {
		srcRow := row + w.RowOff
		if srcRow < 0 || srcRow >= r.Height {
			continue
		}
		for col := 0; col < width; col++ {
			srcCol := col + w.ColOff
			if srcCol < 0 || srcCol >= r.Width {
				continue
			}
			out.Data[col+row*width] = r.Data[srcCol+srcRow*r.Width]
		}
	}
	return out
}

// Paste copies src into r where src holds data. src must share r's grid
// orientation and cell size; offset is derived from the two transforms.
func (r *Raster) Paste(src *Raster) {
	x0, y0 := src.Transform.TransformPoint(0.5, 0.5)
	c, rw := r.Transform.Index(x0, y0)
	for row := 0; row < src.Height; row++ {
		dstRow := row + rw
		if dstRow < 0 || dstRow >= r.Height {
			continue
		}
		for col := 0; col < src.Width; col++ {
			dstCol := col + c
			if dstCol < 0 || dstCol >= r.Width {
				continue
			}
			v := src.Data[col+row*src.Width]
			if src.IsNoData(v) {
				continue
			}
			r.Data[dstCol+dstRow*r.Width] = v
		}
	}
}
