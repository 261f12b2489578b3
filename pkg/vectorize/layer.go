package vectorize

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Attribute names of the polygon layer.
const (
	PropertyGID   = "GID"
	PropertyAxis  = "AXIS"
	PropertyValue = "VALUE"
	PropertyM     = "M"
)

// Collection builds the GeoJSON layer of features. GID carries the swath id
// and M the representative measure rounded to 0.01.
func Collection(features []Feature) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range features {
		gf := geojson.NewFeature(f.Polygon)
		gf.Properties[PropertyGID] = int(f.Swath)
		gf.Properties[PropertyAxis] = int(f.Axis)
		gf.Properties[PropertyValue] = int(f.Value)
		gf.Properties[PropertyM] = math.Round(f.Measure*100) / 100
		fc.Append(gf)
	}
	return fc
}

func WriteLayer(w io.Writer, features []Feature) error {
	data, err := json.Marshal(Collection(features))
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// SaveLayer writes the layer to path in one go.
func SaveLayer(path string, features []Feature) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteLayer(f, features); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func intProperty(p geojson.Properties, key string) (int, error) {
	switch v := p[key].(type) {
	case float64:
		return int(v), nil
	case int:
		return v, nil
	case nil:
		return 0, fmt.Errorf("missing property %s", key)
	default:
		return 0, fmt.Errorf("property %s is a %T, not a number", key, v)
	}
}

// ReadLayer parses a polygon layer. MultiPolygon features are split into
// one feature per polygon.
func ReadLayer(r io.Reader) ([]Feature, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("polygon layer: %w", err)
	}
	var features []Feature
	for i, gf := range fc.Features {
		gid, err := intProperty(gf.Properties, PropertyGID)
		if err != nil {
			return nil, fmt.Errorf("polygon layer: feature %d: %w", i, err)
		}
		ax, err := intProperty(gf.Properties, PropertyAxis)
		if err != nil {
			return nil, fmt.Errorf("polygon layer: feature %d: %w", i, err)
		}
		value, err := intProperty(gf.Properties, PropertyValue)
		if err != nil {
			return nil, fmt.Errorf("polygon layer: feature %d: %w", i, err)
		}
		f := Feature{
			Axis:    uint32(ax),
			Swath:   uint32(gid),
			Value:   uint8(value),
			Measure: gf.Properties.MustFloat64(PropertyM, 0),
		}
		switch g := gf.Geometry.(type) {
		case orb.Polygon:
			f.Polygon = g
			features = append(features, f)
		case orb.MultiPolygon:
			for _, p := range g {
				f.Polygon = p
				features = append(features, f)
			}
		default:
			return nil, fmt.Errorf("polygon layer: feature %d: geometry is not a polygon", i)
		}
	}
	return features, nil
}

func LoadLayer(path string) ([]Feature, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadLayer(f)
}
