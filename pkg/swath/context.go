package swath

import (
	"context"
	"fmt"
	"log/slog"

	"valleyswaths/pkg/raster"
	"valleyswaths/pkg/tileset"
)

// Context bundles the collaborators shared by every stage of a run. It is
// built once and never modified.
type Context struct {
	SRID     int
	Catalog  tileset.Catalog
	Resolver *tileset.Resolver
	Store    raster.Store
	Logger   *slog.Logger
}

// Datasets names the logical datasets read and written by the stages.
type Datasets struct {
	Mask      string `yaml:"mask"`
	Reference string `yaml:"reference"`
	Talweg    string `yaml:"talweg"`
	Distance  string `yaml:"distance"`
	Measure   string `yaml:"measure"`
	Nearest   string `yaml:"nearest"`
	Swaths    string `yaml:"swaths"`
	Table     string `yaml:"table"`
	Polygons  string `yaml:"polygons"`
}

func DefaultDatasets() Datasets {
	return Datasets{
		Mask:      "mask",
		Reference: "refaxis",
		Talweg:    "talweg_distance",
		Distance:  "axis_distance",
		Measure:   "axis_measure",
		Nearest:   "axis_nearest",
		Swaths:    "swaths",
		Table:     "swaths_table",
		Polygons:  "swaths_polygons",
	}
}

func (c Context) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// Mosaic returns a reader over the tiles of dataset name.
func (c Context) Mosaic(name string, dtype raster.DType, nodata float64, params tileset.Params) *tileset.Mosaic {
	return &tileset.Mosaic{
		Catalog: c.Catalog,
		Store:   c.Store,
		Path: func(row, col int) (string, error) {
			return c.Resolver.TilePath(name, row, col, params)
		},
		DType:  dtype,
		NoData: nodata,
	}
}

// Report counts the outcome of a batch.
type Report struct {
	Processed int
	Empty     int
	Failed    int
}

func (r Report) String() string {
	return fmt.Sprintf("processed=%d empty=%d failed=%d", r.Processed, r.Empty, r.Failed)
}

// Log writes one summary line for stage.
func (r Report) Log(logger *slog.Logger, stage string) {
	level := slog.LevelInfo
	if r.Failed > 0 {
		level = slog.LevelWarn
	}
	logger.Log(context.Background(), level, "stage finished",
		slog.String("stage", stage),
		slog.Int("processed", r.Processed),
		slog.Int("empty", r.Empty),
		slog.Int("failed", r.Failed))
}
