package nearest_test

import (
	"math"
	"testing"

	"valleyswaths/pkg/axis"
	"valleyswaths/pkg/nearest"
	"valleyswaths/pkg/raster"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func straightAxis() []axis.Vertex {
	return []axis.Vertex{
		{X: 0, Y: 0, M: 0, Axis: 1},
		{X: 1000, Y: 0, M: 1000, Axis: 1},
	}
}

func TestNearestStraightLine(t *testing.T) {
	idx, err := nearest.NewIndex(straightAxis())
	if err != nil {
		t.Fatal(err)
	}
	got := idx.Nearest(500, 5)
	want := nearest.Match{Axis: 1, Measure: 500, Distance: 5}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("Nearest(500, 5) incorrect: %s", diff)
	}
	right := idx.Nearest(250, -3)
	if right.Distance >= 0 {
		t.Errorf("point right of the axis has distance %g, want negative", right.Distance)
	}
}

func TestNearestExtrapolates(t *testing.T) {
	idx, err := nearest.NewIndex(straightAxis())
	if err != nil {
		t.Fatal(err)
	}
	got := idx.Nearest(1100, 0)
	if math.Abs(got.Measure-1100) > 1e-9 {
		t.Errorf("measure past the axis end = %g, want 1100", got.Measure)
	}
	got = idx.Nearest(-20, 1)
	if math.Abs(got.Measure+20) > 1e-9 {
		t.Errorf("measure before the axis start = %g, want -20", got.Measure)
	}
}

func TestNearestPicksClosestSegment(t *testing.T) {
	vertices := []axis.Vertex{
		{X: 0, Y: 0, M: 0, Axis: 1},
		{X: 100, Y: 0, M: 100, Axis: 1},
		{X: 100, Y: 100, M: 200, Axis: 1},
		// a second axis far away; the pair (100,100)-(500,0) is not a segment
		{X: 500, Y: 0, M: 0, Axis: 2},
		{X: 500, Y: 100, M: 100, Axis: 2},
	}
	idx, err := nearest.NewIndex(vertices)
	if err != nil {
		t.Fatal(err)
	}
	if idx.Len() != 3 {
		t.Errorf("Len() = %d, want 3", idx.Len())
	}
	cases := []struct {
		x, y float64
		want nearest.Match
	}{
		{50, 10, nearest.Match{Axis: 1, Measure: 50, Distance: 10}},
		{110, 60, nearest.Match{Axis: 1, Measure: 160, Distance: -10}},
		{490, 50, nearest.Match{Axis: 2, Measure: 50, Distance: 10}},
	}
	for _, c := range cases {
		got := idx.Nearest(c.x, c.y)
		if diff := cmp.Diff(c.want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
			t.Errorf("Nearest(%g, %g) incorrect: %s", c.x, c.y, diff)
		}
		if got.Axis == 0 {
			t.Errorf("Nearest(%g, %g) returned axis 0 on a single-axis segment", c.x, c.y)
		}
	}
}

func TestNewIndexEmpty(t *testing.T) {
	if _, err := nearest.NewIndex(nil); err != nearest.ErrEmptyGeometry {
		t.Errorf("NewIndex(nil) error = %v", err)
	}
	// two vertices of different axes never form a segment
	_, err := nearest.NewIndex([]axis.Vertex{{X: 0, Axis: 1}, {X: 1, M: 1, Axis: 2}})
	if err != nearest.ErrEmptyGeometry {
		t.Errorf("NewIndex(cross-axis pair) error = %v", err)
	}
}

func TestBuild(t *testing.T) {
	idx, err := nearest.NewIndex(straightAxis())
	if err != nil {
		t.Fatal(err)
	}
	// 3x2 cells of 10 m, upper-left corner at (480, 10)
	mask := raster.New(3, 2, raster.UInt8, 0, raster.NorthUp(480, 10, 10))
	mask.Fill(1)
	mask.Set(2, 1, 0)

	f := idx.Build(mask)
	if f.Empty() {
		t.Fatal("field is empty")
	}
	if f.Axis.Valid(2, 1) || f.Measure.Valid(2, 1) || f.Distance.Valid(2, 1) {
		t.Errorf("masked cell carries data")
	}
	wantMeasure := []float64{485, 495, 505, 485, 495, nearest.NoData}
	if diff := cmp.Diff(wantMeasure, f.Measure.Data, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("measure incorrect: %s", diff)
	}
	wantDistance := []float64{5, 5, 5, -5, -5, nearest.NoData}
	if diff := cmp.Diff(wantDistance, f.Distance.Data, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("distance incorrect: %s", diff)
	}
	if f.Axis.DType != raster.UInt32 || f.Measure.DType != raster.Float32 {
		t.Errorf("unexpected dtypes %s, %s", f.Axis.DType, f.Measure.DType)
	}
}

func TestBuildNoValidCells(t *testing.T) {
	idx, err := nearest.NewIndex(straightAxis())
	if err != nil {
		t.Fatal(err)
	}
	mask := raster.New(4, 4, raster.UInt8, 0, raster.NorthUp(0, 0, 1))
	if f := idx.Build(mask); !f.Empty() {
		t.Errorf("field of an empty mask is not empty")
	}
}
