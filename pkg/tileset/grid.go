// Package tileset maps logical datasets and tile coordinates to files, and
// describes the regular tiling of the study area.
package tileset

import (
	"bufio"
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"valleyswaths/pkg/raster"

	"github.com/paulmach/orb"
)

// Tile is one cell of the tiling.
type Tile struct {
	Row int
	Col int
	// Pixels is the tile extent in the pixel grid of the whole tileset.
	Pixels image.Rectangle
	// Bounds is the tile extent in world coordinates.
	Bounds orb.Bound
}

// Catalog enumerates the tiles covering a domain.
type Catalog interface {
	Tiles() []Tile
	Tile(row, col int) Tile
	Index(x, y float64) (row, col int)
	// Transform returns the pixel-to-world transform of the tile at
	// (row, col).
	Transform(row, col int) raster.Transform
	// GridTransform returns the transform of the whole tileset grid.
	GridTransform() raster.Transform
}

// Grid is a regular, north-up tiling anchored at its upper-left corner.
type Grid struct {
	MinX       float64
	MaxY       float64
	Resolution float64
	TileWidth  int
	TileHeight int
	Rows       int
	Cols       int
	// List, when non-empty, restricts Tiles to the given tiles.
	List [][2]int
}

func (g *Grid) Tile(row, col int) Tile {
	x0 := col * g.TileWidth
	y0 := row * g.TileHeight
	pixels := image.Rect(x0, y0, x0+g.TileWidth, y0+g.TileHeight)
	return Tile{
		Row:    row,
		Col:    col,
		Pixels: pixels,
		Bounds: g.GridTransform().PixelBounds(pixels.Min.X, pixels.Min.Y, pixels.Max.X, pixels.Max.Y),
	}
}

func (g *Grid) Tiles() []Tile {
	var tiles []Tile
	if len(g.List) > 0 {
		for _, rc := range g.List {
			tiles = append(tiles, g.Tile(rc[0], rc[1]))
		}
		return tiles
	}
	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Cols; col++ {
			tiles = append(tiles, g.Tile(row, col))
		}
	}
	return tiles
}

// Index returns the tile containing the world point (x, y).
func (g *Grid) Index(x, y float64) (row, col int) {
	row = int(math.Floor((g.MaxY - y) / (g.Resolution * float64(g.TileHeight))))
	col = int(math.Floor((x - g.MinX) / (g.Resolution * float64(g.TileWidth))))
	return row, col
}

func (g *Grid) GridTransform() raster.Transform {
	return raster.NorthUp(g.MinX, g.MaxY, g.Resolution)
}

func (g *Grid) Transform(row, col int) raster.Transform {
	return g.GridTransform().Translate(col*g.TileWidth, row*g.TileHeight)
}

// Intersecting returns the tiles of the catalog whose bounds intersect b.
func Intersecting(c Catalog, b orb.Bound) []Tile {
	var tiles []Tile
	for _, tile := range c.Tiles() {
		if tile.Bounds.Intersects(b) {
			tiles = append(tiles, tile)
		}
	}
	return tiles
}

// ReadTileList parses one "row,col" pair per line. Blank lines and lines
// starting with '#' are ignored.
func ReadTileList(r io.Reader) ([][2]int, error) {
	var tiles [][2]int
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		parts := strings.Split(text, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("tile list line %d: expected row,col, got %q", line, text)
		}
		row, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("tile list line %d: %w", line, err)
		}
		col, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("tile list line %d: %w", line, err)
		}
		tiles = append(tiles, [2]int{row, col})
	}
	return tiles, scanner.Err()
}

// LoadTileList reads a tile list file.
func LoadTileList(path string) ([][2]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadTileList(f)
}
