// Package edit commits manual edits of the swath polygon layer back to the
// swath rasters.
package edit

import (
	"context"
	"fmt"
	"log/slog"

	"valleyswaths/pkg/pool"
	"valleyswaths/pkg/swath"
	"valleyswaths/pkg/tileset"
	"valleyswaths/pkg/vectorize"

	"github.com/paulmach/orb"
)

type Options struct {
	Datasets swath.Datasets
	// SieveThreshold is the smallest rasterized region kept, in cells.
	SieveThreshold int
}

// Committer clears the swath cells covered by the polygons of one axis that
// are not inner swath. Polygons of other axes and inner polygons are
// ignored.
type Committer struct {
	env   swath.Context
	opts  Options
	axis  uint32
	index *Index
}

// Rejected reports whether f, a feature of the edited layer, marks cells of
// axis to remove from its swath.
func Rejected(f vectorize.Feature, axis uint32) bool {
	return f.Axis == axis && f.Value != vectorize.StateInner
}

func NewCommitter(env swath.Context, features []vectorize.Feature, axis uint32, opts Options) *Committer {
	if opts.SieveThreshold <= 0 {
		opts.SieveThreshold = DefaultSieveThreshold
	}
	var rejected []vectorize.Feature
	for _, f := range features {
		if Rejected(f, axis) {
			rejected = append(rejected, f)
		}
	}
	return &Committer{env: env, opts: opts, axis: axis, index: NewIndex(rejected)}
}

func (c *Committer) logger() *slog.Logger {
	if c.env.Logger == nil {
		return slog.Default()
	}
	return c.env.Logger
}

// CommitTile applies the edits to one tile and returns the number of cells
// set to nodata. A tile without swath raster is skipped. Cells of the tile
// assigned to another axis are left alone when the nearest axis raster of
// the tile exists.
func (c *Committer) CommitTile(ctx context.Context, tile tileset.Tile) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	log := c.logger().With(slog.Int("row", tile.Row), slog.Int("col", tile.Col))

	found := c.index.Search(tile.Bounds)
	if len(found) == 0 {
		return 0, nil
	}
	swathsPath, err := c.env.Resolver.TilePath(c.opts.Datasets.Swaths, tile.Row, tile.Col, nil)
	if err != nil {
		return 0, err
	}
	if !c.env.Store.Exists(swathsPath) {
		log.Debug("no swath tile", slog.String("path", swathsPath))
		return 0, nil
	}
	swaths, err := c.env.Store.Read(swathsPath)
	if err != nil {
		return 0, fmt.Errorf("read swaths: %w", err)
	}

	nearestPath, err := c.env.Resolver.TilePath(c.opts.Datasets.Nearest, tile.Row, tile.Col, nil)
	if err != nil {
		return 0, err
	}
	var owner []float64
	if c.env.Store.Exists(nearestPath) {
		nearest, err := c.env.Store.Read(nearestPath)
		if err != nil {
			return 0, fmt.Errorf("read nearest axis: %w", err)
		}
		if nearest.Width != swaths.Width || nearest.Height != swaths.Height {
			return 0, fmt.Errorf("%w: nearest axis tile is %dx%d, swath tile %dx%d",
				swath.ErrIOConflict, nearest.Width, nearest.Height, swaths.Width, swaths.Height)
		}
		owner = nearest.Data
	}

	polygons := make([]orb.Polygon, len(found))
	for i, f := range found {
		polygons[i] = c.index.Feature(f).Polygon
	}
	mask := Rasterize(polygons, swaths.Transform, swaths.Width, swaths.Height)
	mask = Sieve(mask, swaths.Width, swaths.Height, c.opts.SieveThreshold)

	cleared := 0
	for i, m := range mask {
		if !m || swaths.IsNoData(swaths.Data[i]) {
			continue
		}
		if owner != nil && owner[i] != float64(c.axis) {
			continue
		}
		swaths.Data[i] = swaths.NoData
		cleared++
	}
	if cleared == 0 {
		return 0, nil
	}
	if err := c.env.Store.Write(swathsPath, swaths); err != nil {
		return 0, fmt.Errorf("%w: %s: %w", swath.ErrIOConflict, swathsPath, err)
	}
	log.Debug("edits committed", slog.Int("cleared", cleared), slog.Int("polygons", len(found)))
	return cleared, nil
}

// CommitAll runs CommitTile over every tile of the catalog.
func (c *Committer) CommitAll(ctx context.Context, p *pool.Pool, progress pool.Progress) (swath.Report, error) {
	tiles := c.env.Catalog.Tiles()
	tasks := make([]pool.Task[int], len(tiles))
	for i, tile := range tiles {
		tile := tile
		tasks[i] = func(ctx context.Context) (int, error) {
			return c.CommitTile(ctx, tile)
		}
	}

	var report swath.Report
	err := pool.Drain(pool.MapUnordered(ctx, p, tasks), len(tasks), progress, func(r pool.Result[int]) error {
		report.Processed++
		if r.Value == 0 {
			report.Empty++
		}
		return nil
	})
	report.Failed = len(tasks) - report.Processed
	report.Log(c.logger(), "update")
	return report, err
}
