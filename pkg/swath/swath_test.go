package swath_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"valleyswaths/pkg/axis"
	"valleyswaths/pkg/geometry"
	"valleyswaths/pkg/pool"
	"valleyswaths/pkg/raster"
	"valleyswaths/pkg/swath"
	"valleyswaths/pkg/tileset"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
)

func bound(x0, y0, x1, y1 float64) orb.Bound {
	return orb.Bound{Min: orb.Point{x0, y0}, Max: orb.Point{x1, y1}}
}

func TestMergeBounds(t *testing.T) {
	k := swath.Key{Axis: 1, Swath: 3}
	a := swath.Attributes{k: {Measure: 500, Bounds: bound(0, 0, 10, 10)}}
	b := swath.Attributes{k: {Measure: 500, Bounds: bound(5, 5, 15, 15)}}
	if err := a.Merge(b); err != nil {
		t.Fatal(err)
	}
	want := swath.Attribute{Measure: 500, Bounds: bound(0, 0, 15, 15)}
	if diff := cmp.Diff(want, a[k]); diff != "" {
		t.Errorf("merged attribute incorrect: %s", diff)
	}
}

func TestMergeCommutative(t *testing.T) {
	parts := []swath.Attributes{
		{
			{Axis: 1, Swath: 1}: {Measure: 100, Bounds: bound(0, 0, 10, 10)},
			{Axis: 1, Swath: 2}: {Measure: 300, Bounds: bound(10, 0, 20, 10)},
		},
		{
			{Axis: 1, Swath: 2}: {Measure: 300, Bounds: bound(15, -5, 30, 5)},
			{Axis: 2, Swath: 1}: {Measure: 100, Bounds: bound(100, 100, 110, 110)},
		},
		{
			{Axis: 1, Swath: 1}: {Measure: 100, Bounds: bound(-10, 2, 1, 3)},
		},
	}
	forward, err := swath.Aggregate(parts[0], parts[1], parts[2])
	if err != nil {
		t.Fatal(err)
	}
	backward, err := swath.Aggregate(parts[2], parts[1], parts[0])
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(forward, backward); diff != "" {
		t.Errorf("merge depends on order: %s", diff)
	}
	if diff := cmp.Diff([]uint32{1, 2}, forward.Axes()); diff != "" {
		t.Errorf("Axes incorrect: %s", diff)
	}
}

func TestMergeInconsistent(t *testing.T) {
	k := swath.Key{Axis: 1, Swath: 3}
	a := swath.Attributes{k: {Measure: 500, Bounds: bound(0, 0, 1, 1)}}
	err := a.Merge(swath.Attributes{k: {Measure: 700, Bounds: bound(0, 0, 1, 1)}})
	if !errors.Is(err, swath.ErrInconsistentKey) {
		t.Errorf("Merge error = %v, want ErrInconsistentKey", err)
	}
}

func TestTableRoundTrip(t *testing.T) {
	attrs := swath.Attributes{
		{Axis: 1, Swath: 3}: {Measure: 500, Bounds: bound(495.5, 0.25, 505, 10)},
		{Axis: 2, Swath: 1}: {Measure: 100.1, Bounds: bound(1e6, 6.5e6, 1.0001e6, 6.5001e6)},
	}
	table := swath.NewTable(attrs, 200, "mask", "refaxis")
	var buf bytes.Buffer
	if err := swath.WriteTable(&buf, table); err != nil {
		t.Fatal(err)
	}
	got, err := swath.ReadTable(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(table, got); diff != "" {
		t.Errorf("table round trip incorrect: %s", diff)
	}
	if diff := cmp.Diff(attrs, got.Attributes()); diff != "" {
		t.Errorf("attributes round trip incorrect: %s", diff)
	}
	if n := len(got.Axis(2)); n != 1 {
		t.Errorf("len(Axis(2)) = %d, want 1", n)
	}

	path := filepath.Join(t.TempDir(), "table.json")
	if err := swath.SaveTable(path, table); err != nil {
		t.Fatal(err)
	}
	loaded, err := swath.LoadTable(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.RunID != table.RunID {
		t.Errorf("run id %s, want %s", loaded.RunID, table.RunID)
	}
	if _, err := swath.LoadTable(filepath.Join(t.TempDir(), "nope.json")); !errors.Is(err, swath.ErrMissingInput) {
		t.Errorf("LoadTable(missing) error = %v", err)
	}
}

func testEnv(t *testing.T, g *tileset.Grid) (swath.Context, *raster.MemStore) {
	t.Helper()
	datasets := swath.DefaultDatasets()
	resolver := &tileset.Resolver{
		WorkDir: t.TempDir(),
		Datasets: map[string]tileset.Dataset{
			datasets.Mask:     {},
			datasets.Distance: {},
			datasets.Measure:  {},
			datasets.Nearest:  {},
			datasets.Swaths:   {},
		},
	}
	store := raster.NewMemStore()
	return swath.Context{
		SRID:     2154,
		Catalog:  g,
		Resolver: resolver,
		Store:    store,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, store
}

func straightNetwork() *axis.Network {
	return &axis.Network{Axes: []axis.Axis{
		{ID: 1, Line: geometry.Polyline{{X: 0, Y: 0}, {X: 1000, Y: 0}}},
	}}
}

func writeMask(t *testing.T, env swath.Context, store *raster.MemStore, row, col int) {
	t.Helper()
	g := env.Catalog.(*tileset.Grid)
	mask := raster.New(g.TileWidth, g.TileHeight, raster.UInt8, 0, g.Transform(row, col))
	mask.Fill(1)
	path, err := env.Resolver.TilePath(swath.DefaultDatasets().Mask, row, col, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Write(path, mask); err != nil {
		t.Fatal(err)
	}
}

func TestTileStraightLine(t *testing.T) {
	// one 10 m cell centred on (500, 5)
	g := &tileset.Grid{MinX: 495, MaxY: 10, Resolution: 10, TileWidth: 1, TileHeight: 1, Rows: 1, Cols: 1}
	env, store := testEnv(t, g)
	writeMask(t, env, store, 0, 0)

	d, err := swath.NewDiscretizer(env, straightNetwork(), swath.Options{Datasets: swath.DefaultDatasets(), MDelta: 200})
	if err != nil {
		t.Fatal(err)
	}
	res, err := d.Tile(context.Background(), 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := swath.Attributes{
		{Axis: 1, Swath: 3}: {Measure: 500, Bounds: bound(495, 0, 505, 10)},
	}
	if diff := cmp.Diff(want, res.Attributes); diff != "" {
		t.Errorf("tile attributes incorrect: %s", diff)
	}

	ds := swath.DefaultDatasets()
	read := func(name string) *raster.Raster {
		path, err := env.Resolver.TilePath(name, 0, 0, nil)
		if err != nil {
			t.Fatal(err)
		}
		r, err := store.Read(path)
		if err != nil {
			t.Fatal(err)
		}
		return r
	}
	if got := read(ds.Swaths).At(0, 0); got != 3 {
		t.Errorf("swath id = %g, want 3", got)
	}
	if got := read(ds.Nearest).At(0, 0); got != 1 {
		t.Errorf("nearest axis = %g, want 1", got)
	}
	if got := read(ds.Distance).At(0, 0); got != 5 {
		t.Errorf("distance = %g, want 5", got)
	}
	if got := read(ds.Measure).At(0, 0); got != 500 {
		t.Errorf("measure = %g, want 500", got)
	}
}

func TestTileMissingMask(t *testing.T) {
	g := &tileset.Grid{MinX: 0, MaxY: 10, Resolution: 10, TileWidth: 1, TileHeight: 1, Rows: 1, Cols: 1}
	env, _ := testEnv(t, g)
	d, err := swath.NewDiscretizer(env, straightNetwork(), swath.Options{Datasets: swath.DefaultDatasets(), MDelta: 200})
	if err != nil {
		t.Fatal(err)
	}
	res, err := d.Tile(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("missing mask is not an error: %v", err)
	}
	if !res.Empty() {
		t.Errorf("result of a missing tile is not empty: %+v", res)
	}
}

func TestDiscretize(t *testing.T) {
	// ten tiles of 10x2 cells of 10 m along y = 0..20
	g := &tileset.Grid{MinX: 0, MaxY: 20, Resolution: 10, TileWidth: 10, TileHeight: 2, Rows: 1, Cols: 10}
	env, store := testEnv(t, g)
	for _, col := range []int{1, 2, 3} {
		writeMask(t, env, store, 0, col)
	}
	d, err := swath.NewDiscretizer(env, straightNetwork(), swath.Options{Datasets: swath.DefaultDatasets(), MDelta: 200})
	if err != nil {
		t.Fatal(err)
	}
	var last int
	attrs, report, err := d.Discretize(context.Background(), pool.New(4), func(done, total int) { last = done })
	if err != nil {
		t.Fatal(err)
	}
	if last != 10 {
		t.Errorf("progress reached %d, want 10", last)
	}
	if diff := cmp.Diff(swath.Report{Processed: 10, Empty: 7}, report); diff != "" {
		t.Errorf("report incorrect: %s", diff)
	}
	// tiles 1..3 cover x 100..400: swath 1 is [0, 200), swath 2 is [200, 400)
	want := swath.Attributes{
		{Axis: 1, Swath: 1}: {Measure: 100, Bounds: bound(100, 0, 200, 20)},
		{Axis: 1, Swath: 2}: {Measure: 300, Bounds: bound(200, 0, 400, 20)},
	}
	if diff := cmp.Diff(want, attrs); diff != "" {
		t.Errorf("attributes incorrect: %s", diff)
	}
}

func TestNewDiscretizerEmptyNetwork(t *testing.T) {
	g := &tileset.Grid{Resolution: 1, TileWidth: 1, TileHeight: 1, Rows: 1, Cols: 1}
	env, store := testEnv(t, g)
	writeMask(t, env, store, 0, 0)

	// a single point axis has no segment either
	networks := []*axis.Network{
		{},
		{Axes: []axis.Axis{{ID: 1, Line: geometry.Polyline{{X: 0, Y: 0}}}}},
	}
	for _, n := range networks {
		d, err := swath.NewDiscretizer(env, n, swath.Options{Datasets: swath.DefaultDatasets(), MDelta: 100})
		if err != nil {
			t.Fatalf("empty network: %v", err)
		}
		res, err := d.Tile(context.Background(), 0, 0)
		if err != nil || !res.Empty() {
			t.Errorf("Tile = %+v, %v, want an empty result", res, err)
		}
		attrs, report, err := d.Discretize(context.Background(), pool.New(1), nil)
		if err != nil {
			t.Fatal(err)
		}
		if len(attrs) != 0 {
			t.Errorf("attributes = %v, want none", attrs)
		}
		if diff := cmp.Diff(swath.Report{Processed: 1, Empty: 1}, report); diff != "" {
			t.Errorf("report incorrect: %s", diff)
		}
	}
}
