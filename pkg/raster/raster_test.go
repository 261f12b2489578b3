package raster_test

import (
	"bytes"
	"errors"
	"io/fs"
	"math"
	"path/filepath"
	"testing"

	"valleyswaths/pkg/raster"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
)

func TestTransformRoundTrip(t *testing.T) {
	tr := raster.NorthUp(1000, 2000, 5)
	x, y := tr.PixelCenter(3, 4)
	if x != 1017.5 || y != 1977.5 {
		t.Fatalf("PixelCenter(3, 4) = %g, %g", x, y)
	}
	col, row := tr.Index(x, y)
	if col != 3 || row != 4 {
		t.Fatalf("Index(%g, %g) = %d, %d; want 3, 4", x, y, col, row)
	}
	inv := tr.Invert()
	c, r := inv.TransformPoint(1000, 2000)
	if math.Abs(c) > 1e-9 || math.Abs(r) > 1e-9 {
		t.Fatalf("inverse of origin = %g, %g", c, r)
	}
}

func TestWindowFromBounds(t *testing.T) {
	tr := raster.NorthUp(0, 100, 1)
	tests := []struct {
		bounds orb.Bound
		want   raster.Window
	}{
		{
			bounds: orb.Bound{Min: orb.Point{10, 80}, Max: orb.Point{20, 90}},
			want:   raster.Window{ColOff: 10, RowOff: 10, Width: 10, Height: 10},
		},
		{
			bounds: orb.Bound{Min: orb.Point{10.5, 80.2}, Max: orb.Point{19.5, 89.9}},
			want:   raster.Window{ColOff: 10, RowOff: 10, Width: 10, Height: 10},
		},
		{
			bounds: orb.Bound{Min: orb.Point{-5, 95}, Max: orb.Point{5, 105}},
			want:   raster.Window{ColOff: -5, RowOff: -5, Width: 10, Height: 10},
		},
		{
			bounds: orb.Bound{Min: orb.Point{3, 50}, Max: orb.Point{3, 50}},
			want:   raster.Window{ColOff: 3, RowOff: 50, Width: 0, Height: 0},
		},
	}
	for i, test := range tests {
		got := raster.WindowFromBounds(test.bounds, tr)
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("Test %d - WindowFromBounds incorrect output: %s", i, diff)
		}
	}
}

func TestReadWindowBoundless(t *testing.T) {
	r := raster.New(3, 2, raster.UInt32, 0, raster.NorthUp(0, 2, 1))
	copy(r.Data, []float64{1, 2, 3, 4, 5, 6})

	got := r.ReadWindow(raster.Window{ColOff: -1, RowOff: 1, Width: 3, Height: 2})
	want := []float64{0, 4, 5, 0, 0, 0}
	if diff := cmp.Diff(want, got.Data); diff != "" {
		t.Errorf("ReadWindow data incorrect: %s", diff)
	}
	x, y := got.Transform.TransformPoint(0, 0)
	if x != -1 || y != 1 {
		t.Errorf("window origin = %g, %g; want -1, 1", x, y)
	}
}

func TestPaste(t *testing.T) {
	dst := raster.New(4, 4, raster.Float32, -1, raster.NorthUp(0, 4, 1))
	src := raster.New(2, 2, raster.Float32, -1, raster.NorthUp(2, 2, 1))
	copy(src.Data, []float64{1, -1, 3, 4})
	dst.Paste(src)
	want := []float64{
		-1, -1, -1, -1,
		-1, -1, -1, -1,
		-1, -1, 1, -1,
		-1, -1, 3, 4,
	}
	if diff := cmp.Diff(want, dst.Data); diff != "" {
		t.Errorf("Paste incorrect: %s", diff)
	}
}

func TestCodecRoundTrip(t *testing.T) {
	for _, dtype := range []raster.DType{raster.Float32, raster.UInt32, raster.UInt8} {
		r := raster.New(4, 3, dtype, 0, raster.NorthUp(100, 200, 2.5))
		r.SRID = 2154
		for i := range r.Data {
			r.Data[i] = float64(i * 3)
		}
		var buf bytes.Buffer
		if err := raster.Encode(&buf, r); err != nil {
			t.Fatalf("%v: Encode: %s", dtype, err)
		}
		got, err := raster.Decode(&buf)
		if err != nil {
			t.Fatalf("%v: Decode: %s", dtype, err)
		}
		if diff := cmp.Diff(r, got); diff != "" {
			t.Errorf("%v: round trip mismatch: %s", dtype, diff)
		}
	}
}

func TestCodecNaNNoData(t *testing.T) {
	r := raster.New(2, 2, raster.Float32, math.NaN(), raster.NorthUp(0, 0, 1))
	r.Set(1, 1, 7.25)
	var buf bytes.Buffer
	if err := raster.Encode(&buf, r); err != nil {
		t.Fatal(err)
	}
	got, err := raster.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(got.NoData) || got.Count() != 1 || got.At(1, 1) != 7.25 {
		t.Errorf("unexpected decoded raster: nodata=%g count=%d", got.NoData, got.Count())
	}
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "tile.vsr")
	var store raster.FileStore
	if store.Exists(path) {
		t.Fatalf("unexpected file at %s", path)
	}
	if _, err := store.Read(path); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Read of missing raster returned %v", err)
	}
	r := raster.New(2, 2, raster.UInt32, 0, raster.NorthUp(0, 2, 1))
	r.Set(0, 0, 42)
	if err := store.Write(path, r); err != nil {
		t.Fatal(err)
	}
	got, err := store.Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(r, got); diff != "" {
		t.Errorf("FileStore round trip mismatch: %s", diff)
	}
}

func TestMemStoreMissing(t *testing.T) {
	store := raster.NewMemStore()
	if _, err := store.Read("nope"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Read of missing raster returned %v", err)
	}
}
