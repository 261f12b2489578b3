package axis

import (
	"fmt"
	"io"
	"os"
	"sort"

	"valleyswaths/pkg/geometry"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Feature properties read from a reference axis layer.
const (
	PropertyAxis = "AXIS"
	PropertyM0   = "M0"
)

// LoadOptions control how axis features become measured axes.
type LoadOptions struct {
	// FromEnd measures from the last vertex of each line instead of the first.
	FromEnd bool
}

// Read parses a GeoJSON FeatureCollection of LineString (or single part
// MultiLineString) features. Each feature carries a unique integer AXIS
// property and an optional M0 measure offset. Axes are returned sorted by id.
func Read(r io.Reader, opts LoadOptions) (*Network, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("reference axes: %w", err)
	}
	n := &Network{}
	seen := make(map[int]bool)
	for i, f := range fc.Features {
		id := f.Properties.MustInt(PropertyAxis, 0)
		if id <= 0 {
			return nil, fmt.Errorf("reference axes: feature %d: missing or invalid %s", i, PropertyAxis)
		}
		if seen[id] {
			return nil, fmt.Errorf("reference axes: feature %d: duplicate axis %d", i, id)
		}
		seen[id] = true
		if f.Geometry == nil {
			return nil, fmt.Errorf("reference axes: feature %d: no geometry", i)
		}
		m0 := f.Properties.MustFloat64(PropertyM0, 0)
		var ls orb.LineString
		switch g := f.Geometry.(type) {
		case orb.LineString:
			ls = g
		case orb.MultiLineString:
			if len(g) != 1 {
				return nil, fmt.Errorf("reference axes: feature %d: multi-part axis with %d parts", i, len(g))
			}
			ls = g[0]
		default:
			return nil, fmt.Errorf("reference axes: feature %d: unsupported geometry %s", i, f.Geometry.GeoJSONType())
		}
		line := make(geometry.Polyline, len(ls))
		for j, p := range ls {
			line[j] = geometry.Point{X: p[0], Y: p[1]}
		}
		if opts.FromEnd {
			line = line.Reverse()
		}
		n.Axes = append(n.Axes, Axis{ID: uint32(id), M0: m0, Line: line})
	}
	sort.SliceStable(n.Axes, func(i, j int) bool { return n.Axes[i].ID < n.Axes[j].ID })
	if err := Validate(n.Vertices()); err != nil {
		return nil, err
	}
	return n, nil
}

// Load reads a reference axis layer from a file.
func Load(path string, opts LoadOptions) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f, opts)
}
