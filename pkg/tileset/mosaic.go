package tileset

import (
	"errors"
	"io/fs"

	"valleyswaths/pkg/raster"

	"github.com/paulmach/orb"
)

// Mosaic reads world windows of a tiled dataset as if it were one raster.
// Tiles that are absent read as nodata.
type Mosaic struct {
	Catalog Catalog
	Store   raster.Store
	// Path returns the file of tile (row, col).
	Path   func(row, col int) (string, error)
	DType  raster.DType
	NoData float64
}

// Read returns the cells of the tileset grid covering bounds.
func (m *Mosaic) Read(bounds orb.Bound) (*raster.Raster, error) {
	grid := m.Catalog.GridTransform()
	return m.ReadWindow(raster.WindowFromBounds(bounds, grid))
}

// ReadWindow returns a window of the tileset grid. The window may extend
// past the tiled area.
func (m *Mosaic) ReadWindow(w raster.Window) (*raster.Raster, error) {
	grid := m.Catalog.GridTransform()
	out := raster.New(max(w.Width, 0), max(w.Height, 0), m.DType, m.NoData, grid.Translate(w.ColOff, w.RowOff))
	if w.Empty() {
		return out, nil
	}
	for _, tile := range Intersecting(m.Catalog, out.Bounds()) {
		path, err := m.Path(tile.Row, tile.Col)
		if err != nil {
			return nil, err
		}
		r, err := m.Store.Read(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if out.SRID == 0 {
			out.SRID = r.SRID
		}
		if r.NoData != m.NoData {
			for i, v := range r.Data {
				if r.IsNoData(v) {
					r.Data[i] = m.NoData
				}
			}
			r.NoData = m.NoData
		}
		out.Paste(r)
	}
	return out, nil
}
