package swath

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"valleyswaths/pkg/axis"
	"valleyswaths/pkg/nearest"
	"valleyswaths/pkg/pool"
	"valleyswaths/pkg/raster"
)

// NoData of the float output rasters. Id rasters use 0.
const NoData = nearest.NoData

// Options of a discretization run.
type Options struct {
	Datasets Datasets
	// MDelta is the measure length of one swath.
	MDelta float64
	// DistanceFactor scales distances before they are written.
	DistanceFactor float64
}

// TileResult is what a tile worker found. An empty result means the tile
// has no mask or no cell near an axis; it is not an error.
type TileResult struct {
	Row        int
	Col        int
	Attributes Attributes
	Cells      int
}

func (r TileResult) Empty() bool {
	return r.Cells == 0
}

// Discretizer assigns every mask cell to a swath of its nearest axis. The
// k-d index and breakpoints are computed once from the whole network and
// shared by all tile workers.
type Discretizer struct {
	env    Context
	opts   Options
	index  *nearest.Index
	breaks axis.Breakpoints
}

// NewDiscretizer indexes network. A network without any segment is not an
// error: it is logged once and every tile comes out empty.
func NewDiscretizer(env Context, network *axis.Network, opts Options) (*Discretizer, error) {
	if opts.MDelta <= 0 {
		return nil, fmt.Errorf("mdelta must be positive, got %g", opts.MDelta)
	}
	if opts.DistanceFactor == 0 {
		opts.DistanceFactor = 1
	}
	if network.Empty() {
		env.logger().Warn("reference network has no axis segment, every tile will be empty",
			slog.Int("axes", len(network.Axes)))
		return &Discretizer{env: env, opts: opts}, nil
	}
	index, err := nearest.NewIndex(network.Vertices())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDegenerateGeometry, err)
	}
	breaks, err := axis.NewBreakpoints(network, opts.MDelta)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDegenerateGeometry, err)
	}
	return &Discretizer{env: env, opts: opts, index: index, breaks: breaks}, nil
}

func (d *Discretizer) Breakpoints() axis.Breakpoints {
	return d.breaks
}

// Tile processes one tile: it builds the nearest axis field of the mask
// tile, digitizes measures into swath ids and writes the four output
// rasters of the tile.
func (d *Discretizer) Tile(ctx context.Context, row, col int) (TileResult, error) {
	result := TileResult{Row: row, Col: col}
	if err := ctx.Err(); err != nil {
		return result, err
	}
	if d.index == nil {
		return result, nil
	}
	log := d.env.logger().With(slog.Int("row", row), slog.Int("col", col))

	maskPath, err := d.env.Resolver.TilePath(d.opts.Datasets.Mask, row, col, nil)
	if err != nil {
		return result, err
	}
	if !d.env.Store.Exists(maskPath) {
		log.Debug("no mask tile", slog.String("path", maskPath))
		return result, nil
	}
	mask, err := d.env.Store.Read(maskPath)
	if err != nil {
		return result, fmt.Errorf("read mask: %w", err)
	}
	if mask.SRID == 0 {
		mask.SRID = d.env.SRID
	}

	field := d.index.Build(mask)
	swaths := raster.Like(mask, raster.UInt32, 0)
	extents := make(map[Key]image.Rectangle)
	for r := 0; r < mask.Height; r++ {
		for c := 0; c < mask.Width; c++ {
			ax := uint32(field.Axis.At(c, r))
			if ax == 0 || !field.Measure.Valid(c, r) {
				continue
			}
			id := d.breaks.Digitize(field.Measure.At(c, r))
			if id == 0 {
				continue
			}
			swaths.Set(c, r, float64(id))
			k := Key{Axis: ax, Swath: id}
			cell := image.Rect(c, r, c+1, r+1)
			if ext, ok := extents[k]; ok {
				extents[k] = ext.Union(cell)
			} else {
				extents[k] = cell
			}
			result.Cells++
		}
	}

	result.Attributes = make(Attributes, len(extents))
	for k, ext := range extents {
		result.Attributes[k] = Attribute{
			Measure: d.breaks.Measure(k.Swath),
			Bounds:  mask.Transform.PixelBounds(ext.Min.X, ext.Min.Y, ext.Max.X, ext.Max.Y),
		}
	}

	distance := field.Distance
	if d.opts.DistanceFactor != 1 {
		for i, v := range distance.Data {
			if !distance.IsNoData(v) {
				distance.Data[i] = v * d.opts.DistanceFactor
			}
		}
	}
	outputs := []struct {
		name string
		r    *raster.Raster
	}{
		{d.opts.Datasets.Distance, distance},
		{d.opts.Datasets.Measure, field.Measure},
		{d.opts.Datasets.Nearest, field.Axis},
		{d.opts.Datasets.Swaths, swaths},
	}
	for _, out := range outputs {
		path, err := d.env.Resolver.TilePath(out.name, row, col, nil)
		if err != nil {
			return result, err
		}
		if err := d.env.Store.Write(path, out.r); err != nil {
			return result, fmt.Errorf("%w: %s: %w", ErrIOConflict, path, err)
		}
	}
	log.Debug("tile discretized", slog.Int("cells", result.Cells), slog.Int("swaths", len(result.Attributes)))
	return result, nil
}

// Discretize runs Tile over every tile of the catalog and folds the tile
// attributes. Failed tiles are counted and their errors joined after all
// tiles finished; an inconsistent key stops the fold and is returned alone.
func (d *Discretizer) Discretize(ctx context.Context, p *pool.Pool, progress pool.Progress) (Attributes, Report, error) {
	tiles := d.env.Catalog.Tiles()
	tasks := make([]pool.Task[TileResult], len(tiles))
	for i, tile := range tiles {
		row, col := tile.Row, tile.Col
		tasks[i] = func(ctx context.Context) (TileResult, error) {
			return d.Tile(ctx, row, col)
		}
	}

	attrs := make(Attributes)
	var report Report
	var fatal error
	err := pool.Drain(pool.MapUnordered(ctx, p, tasks), len(tasks), progress, func(r pool.Result[TileResult]) error {
		report.Processed++
		if r.Value.Empty() {
			report.Empty++
			return nil
		}
		if fatal != nil {
			return nil
		}
		if err := attrs.Merge(r.Value.Attributes); err != nil {
			fatal = err
		}
		return nil
	})
	if fatal != nil {
		return nil, report, fatal
	}
	report.Failed = countJoined(err)
	report.Log(d.env.logger(), "discretize")
	return attrs, report, err
}

// countJoined returns the number of errors joined in err.
func countJoined(err error) int {
	if err == nil {
		return 0
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return len(j.Unwrap())
	}
	return 1
}
