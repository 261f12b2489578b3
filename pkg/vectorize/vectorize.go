// Package vectorize turns swath rasters into polygons.
//
// For one swath of one axis, the cells of a window around the swath are
// classified into states (outside, outer, talweg, inner), the outer cells
// reachable from the talweg are promoted to inner, and the regions of equal
// state are traced as polygons in world coordinates.
package vectorize

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"valleyswaths/pkg/pool"
	"valleyswaths/pkg/raster"
	"valleyswaths/pkg/swath"
	"valleyswaths/pkg/tileset"

	"github.com/paulmach/orb"
)

// DefaultJitter is the continuity jitter, in cells.
const DefaultJitter = 0.4

// Feature is one polygon of a swath with its attributes.
type Feature struct {
	Polygon orb.Polygon
	Axis    uint32
	Swath   uint32
	Value   uint8
	Measure float64
}

// Shape is a polygon of cells sharing one state value.
type Shape struct {
	Polygon orb.Polygon
	Value   uint8
}

// Shapes traces the 8-connected regions of equal value of state, a UInt8
// raster whose nodata cells are left out. Outlines follow the cell edges.
func Shapes(state *raster.Raster) []Shape {
	values := make([]uint8, len(state.Data))
	for i, v := range state.Data {
		values[i] = uint8(v)
	}
	nodata := uint8(state.NoData)
	regions := Label(values, state.Width, state.Height, Eight, func(v uint8) bool { return v == nodata })
	rings := Trace(regions)

	var shapes []Shape
	for l := int32(1); l <= int32(regions.Count()); l++ {
		for _, p := range Assemble(rings[l]) {
			shapes = append(shapes, Shape{Polygon: p.World(state.Transform), Value: regions.Values[l]})
		}
	}
	return shapes
}

type Options struct {
	Datasets swath.Datasets
	// Jitter scales the per cell cost perturbation of the continuity pass.
	Jitter float64
}

// Vectorizer builds the polygons of swaths from the tiled rasters written
// by the discretizer.
type Vectorizer struct {
	env     swath.Context
	opts    Options
	nearest *tileset.Mosaic
	swaths  *tileset.Mosaic
	talweg  *tileset.Mosaic
}

func NewVectorizer(env swath.Context, opts Options) *Vectorizer {
	return &Vectorizer{
		env:     env,
		opts:    opts,
		nearest: env.Mosaic(opts.Datasets.Nearest, raster.UInt32, 0, nil),
		swaths:  env.Mosaic(opts.Datasets.Swaths, raster.UInt32, 0, nil),
		talweg:  env.Mosaic(opts.Datasets.Talweg, raster.Float32, swath.NoData, nil),
	}
}

func (v *Vectorizer) logger() *slog.Logger {
	if v.env.Logger == nil {
		return slog.Default()
	}
	return v.env.Logger
}

// State reads the window covering bounds and classifies its cells for swath
// k. The returned raster is nil when the window has no area.
func (v *Vectorizer) State(k swath.Key, bounds orb.Bound) (*raster.Raster, error) {
	window := raster.WindowFromBounds(bounds, v.env.Catalog.GridTransform())
	if window.Empty() {
		return nil, nil
	}
	nearest, err := v.nearest.ReadWindow(window)
	if err != nil {
		return nil, fmt.Errorf("read nearest axis: %w", err)
	}
	ids, err := v.swaths.ReadWindow(window)
	if err != nil {
		return nil, fmt.Errorf("read swaths: %w", err)
	}
	talweg, err := v.talweg.ReadWindow(window)
	if err != nil {
		return nil, fmt.Errorf("read talweg distance: %w", err)
	}

	state := raster.Like(nearest, raster.UInt8, float64(StateOutside))
	for i := range state.Data {
		if nearest.Data[i] != float64(k.Axis) || ids.Data[i] != float64(k.Swath) {
			continue
		}
		state.Data[i] = float64(StateOuter)
		if d := talweg.Data[i]; !talweg.IsNoData(d) && d == 0 {
			state.Data[i] = float64(StateTalweg)
		}
	}
	return state, nil
}

// Swath returns the polygons of swath k. A swath whose window has no area
// is logged and yields no feature.
func (v *Vectorizer) Swath(ctx context.Context, k swath.Key, a swath.Attribute) ([]Feature, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	state, err := v.State(k, a.Bounds)
	if err != nil {
		return nil, err
	}
	if state == nil {
		v.logger().Warn("degenerate swath window",
			slog.Int("axis", int(k.Axis)),
			slog.Int("swath", int(k.Swath)),
			slog.Any("bounds", a.Bounds))
		return nil, nil
	}

	cells := make([]uint8, len(state.Data))
	for i, s := range state.Data {
		cells[i] = uint8(s)
	}
	Continuity(cells, state.Width, state.Height, v.opts.Jitter)
	for i, s := range cells {
		state.Data[i] = float64(s)
	}

	var features []Feature
	for _, s := range Shapes(state) {
		features = append(features, Feature{
			Polygon: s.Polygon,
			Axis:    k.Axis,
			Swath:   k.Swath,
			Value:   s.Value,
			Measure: a.Measure,
		})
	}
	return features, nil
}

// VectorizeAll vectorizes every swath of attrs on p. Features come back
// sorted by axis and swath whatever the completion order.
func (v *Vectorizer) VectorizeAll(ctx context.Context, p *pool.Pool, attrs swath.Attributes, progress pool.Progress) ([]Feature, swath.Report, error) {
	keys := attrs.Keys()
	tasks := make([]pool.Task[[]Feature], len(keys))
	for i, k := range keys {
		k, a := k, attrs[k]
		tasks[i] = func(ctx context.Context) ([]Feature, error) {
			return v.Swath(ctx, k, a)
		}
	}

	perSwath := make([][]Feature, len(keys))
	var report swath.Report
	err := pool.Drain(pool.MapUnordered(ctx, p, tasks), len(tasks), progress, func(r pool.Result[[]Feature]) error {
		report.Processed++
		if len(r.Value) == 0 {
			report.Empty++
		}
		perSwath[r.Index] = r.Value
		return nil
	})
	report.Failed = len(tasks) - report.Processed
	report.Log(v.logger(), "vectorize")

	var features []Feature
	for _, fs := range perSwath {
		features = append(features, fs...)
	}
	sort.SliceStable(features, func(i, j int) bool {
		if features[i].Axis != features[j].Axis {
			return features[i].Axis < features[j].Axis
		}
		return features[i].Swath < features[j].Swath
	})
	return features, report, err
}
