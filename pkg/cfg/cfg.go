// Package cfg holds the run configuration: where the workspace lives, how
// the study area is tiled, and the parameters of the swath stages.
package cfg

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"valleyswaths/pkg/edit"
	"valleyswaths/pkg/raster"
	"valleyswaths/pkg/swath"
	"valleyswaths/pkg/tileset"
	"valleyswaths/pkg/vectorize"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Workspace Workspace                  `yaml:"workspace"`
	SRID      int                        `yaml:"srid"`
	Tileset   Tileset                    `yaml:"tileset"`
	Datasets  map[string]tileset.Dataset `yaml:"datasets"`
	Swath     Swath                      `yaml:"swath"`
	// Workers is the size of the worker pool; 0 uses one worker per CPU.
	Workers int     `yaml:"workers"`
	Logging Logging `yaml:"logging"`
}

type Workspace struct {
	WorkDir   string `yaml:"workdir"`
	OutputDir string `yaml:"outputdir"`
	TileDir   string `yaml:"tiledir"`
}

// Tileset is a regular north-up tiling anchored at (MinX, MaxY). Tile sizes
// are in cells.
type Tileset struct {
	MinX       float64 `yaml:"minx"`
	MaxY       float64 `yaml:"maxy"`
	Resolution float64 `yaml:"resolution"`
	TileWidth  int     `yaml:"tile_width"`
	TileHeight int     `yaml:"tile_height"`
	Rows       int     `yaml:"rows"`
	Cols       int     `yaml:"cols"`
	// TileList optionally names a file of row,col lines restricting the
	// tiles processed. Relative paths are taken from the work directory.
	TileList string `yaml:"tile_list"`
}

type Swath struct {
	MDelta         float64        `yaml:"mdelta"`
	DistanceFactor float64        `yaml:"distance_factor"`
	Jitter         float64        `yaml:"jitter"`
	SieveThreshold int            `yaml:"sieve_threshold"`
	MeasureFromEnd bool           `yaml:"measure_from_end"`
	Datasets       swath.Datasets `yaml:"datasets"`
}

type Logging struct {
	Level string `yaml:"level"`
}

func Defaults() Config {
	names := swath.DefaultDatasets()
	return Config{
		Workspace: Workspace{WorkDir: "."},
		Tileset: Tileset{
			Resolution: 5,
			TileWidth:  1000,
			TileHeight: 1000,
		},
		Datasets: map[string]tileset.Dataset{
			names.Mask:      {},
			names.Reference: {Filename: "refaxis.geojson"},
			names.Talweg:    {},
			names.Distance:  {},
			names.Measure:   {},
			names.Nearest:   {},
			names.Swaths:    {},
			names.Table:     {Filename: "swaths.json"},
			names.Polygons:  {Filename: "swaths_polygons.geojson"},
		},
		Swath: Swath{
			MDelta:         200,
			DistanceFactor: 1,
			Jitter:         vectorize.DefaultJitter,
			SieveThreshold: edit.DefaultSieveThreshold,
			// reference lines are drawn from the source downstream
			MeasureFromEnd: true,
			Datasets:       names,
		},
		Logging: Logging{Level: "info"},
	}
}

// Read decodes a YAML configuration over the defaults. Unknown keys are
// rejected. The result is not validated.
func Read(r io.Reader) (Config, error) {
	c := Defaults()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return c, fmt.Errorf("config: %w", err)
	}
	return c, nil
}

// Load reads and validates the configuration file at path.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	c, err := Read(f)
	if err != nil {
		return c, err
	}
	return c, c.Validate()
}

func (c Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return level, fmt.Errorf("logging.level: %w", err)
	}
	return level, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}
	t := c.Tileset
	check(t.Resolution > 0, "tileset.resolution must be positive, got %g", t.Resolution)
	check(t.TileWidth > 0 && t.TileHeight > 0, "tileset tile size must be positive, got %dx%d", t.TileWidth, t.TileHeight)
	check(t.TileList != "" || (t.Rows > 0 && t.Cols > 0), "tileset needs rows and cols or a tile_list")

	s := c.Swath
	check(s.MDelta > 0, "swath.mdelta must be positive, got %g", s.MDelta)
	check(s.DistanceFactor > 0, "swath.distance_factor must be positive, got %g", s.DistanceFactor)
	check(s.Jitter >= 0, "swath.jitter must not be negative, got %g", s.Jitter)
	check(s.SieveThreshold >= 0, "swath.sieve_threshold must not be negative, got %d", s.SieveThreshold)
	for _, name := range []string{
		s.Datasets.Mask, s.Datasets.Reference, s.Datasets.Talweg,
		s.Datasets.Distance, s.Datasets.Measure, s.Datasets.Nearest,
		s.Datasets.Swaths, s.Datasets.Table, s.Datasets.Polygons,
	} {
		_, ok := c.Datasets[name]
		check(ok, "swath dataset %q is not declared in datasets", name)
	}
	check(c.Workers >= 0, "workers must not be negative, got %d", c.Workers)
	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Grid builds the tiling, reading the tile list when one is set.
func (c Config) Grid() (*tileset.Grid, error) {
	t := c.Tileset
	g := &tileset.Grid{
		MinX:       t.MinX,
		MaxY:       t.MaxY,
		Resolution: t.Resolution,
		TileWidth:  t.TileWidth,
		TileHeight: t.TileHeight,
		Rows:       t.Rows,
		Cols:       t.Cols,
	}
	if t.TileList != "" {
		path := t.TileList
		if !filepath.IsAbs(path) {
			path = filepath.Join(c.Workspace.WorkDir, path)
		}
		list, err := tileset.LoadTileList(path)
		if err != nil {
			return nil, fmt.Errorf("%w: tile list: %w", swath.ErrMissingInput, err)
		}
		g.List = list
	}
	return g, nil
}

func (c Config) Resolver() *tileset.Resolver {
	datasets := make(map[string]tileset.Dataset, len(c.Datasets))
	for name, d := range c.Datasets {
		datasets[name] = d
	}
	return &tileset.Resolver{
		WorkDir:   c.Workspace.WorkDir,
		OutputDir: c.Workspace.OutputDir,
		TileDir:   c.Workspace.TileDir,
		Datasets:  datasets,
	}
}

// Logger returns a text logger writing to w at the configured level.
func (c Config) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := c.LogLevel()
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// Context builds the shared run context over the file system.
func (c Config) Context(logger *slog.Logger) (swath.Context, error) {
	g, err := c.Grid()
	if err != nil {
		return swath.Context{}, err
	}
	return swath.Context{
		SRID:     c.SRID,
		Catalog:  g,
		Resolver: c.Resolver(),
		Store:    raster.FileStore{},
		Logger:   logger,
	}, nil
}

func (c Config) DiscretizeOptions() swath.Options {
	return swath.Options{
		Datasets:       c.Swath.Datasets,
		MDelta:         c.Swath.MDelta,
		DistanceFactor: c.Swath.DistanceFactor,
	}
}

func (c Config) VectorizeOptions() vectorize.Options {
	return vectorize.Options{Datasets: c.Swath.Datasets, Jitter: c.Swath.Jitter}
}

func (c Config) EditOptions() edit.Options {
	return edit.Options{Datasets: c.Swath.Datasets, SieveThreshold: c.Swath.SieveThreshold}
}
