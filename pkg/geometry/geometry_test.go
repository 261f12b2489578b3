package geometry

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestProjection(t *testing.T) {
	tests := []struct {
		segment LineSegment
		p       Point
		t       float64
		signed  float64
	}{
		{
			segment: LineSegment{A: Point{X: 0, Y: 0}, B: Point{X: 1000, Y: 0}},
			p:       Point{X: 500, Y: 5},
			t:       0.5,
			signed:  5,
		},
		{
			segment: LineSegment{A: Point{X: 0, Y: 0}, B: Point{X: 1000, Y: 0}},
			p:       Point{X: 250, Y: -3},
			t:       0.25,
			signed:  -3,
		},
		{
			// beyond B: extrapolated, not clamped
			segment: LineSegment{A: Point{X: 0, Y: 0}, B: Point{X: 10, Y: 0}},
			p:       Point{X: 15, Y: 1},
			t:       1.5,
			signed:  1,
		},
		{
			segment: LineSegment{A: Point{X: 0, Y: 0}, B: Point{X: 0, Y: 10}},
			p:       Point{X: 2, Y: 5},
			t:       0.5,
			signed:  -2,
		},
		{
			segment: LineSegment{A: Point{X: 1, Y: 1}, B: Point{X: 1, Y: 1}},
			p:       Point{X: 4, Y: 5},
			t:       0,
			signed:  5,
		},
	}

	opt := cmp.Comparer(func(x, y float64) bool {
		return math.Abs(x-y) < 0.00001
	})

	for i, test := range tests {
		gotT, gotSigned := test.segment.Projection(test.p)
		if diff := cmp.Diff([]float64{test.t, test.signed}, []float64{gotT, gotSigned}, opt); diff != "" {
			t.Errorf("Test %d - Projection(%v) incorrect output: %s", i, test.p, diff)
		}
	}
}

func TestCumulativeLength(t *testing.T) {
	line := Polyline{{X: 0, Y: 0}, {X: 3, Y: 4}, {X: 3, Y: 10}}
	got := line.CumulativeLength(100)
	want := []float64{100, 105, 111}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CumulativeLength incorrect output: %s", diff)
	}
	if line.Length() != 11 {
		t.Errorf("Length() = %g, want 11", line.Length())
	}
}

func TestReverse(t *testing.T) {
	line := Polyline{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 1}}
	want := Polyline{{X: 2, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: 0}}
	if diff := cmp.Diff(want, line.Reverse()); diff != "" {
		t.Errorf("Reverse incorrect output: %s", diff)
	}
}
