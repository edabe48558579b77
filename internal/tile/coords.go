// Package tile covers XYZ tile addressing and the raster base-layer catalog.
package tile

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// Coords addresses one Web Mercator tile.
type Coords struct {
	Z uint32
	X uint32
	Y uint32
}

// String formats c as "z{z}_x{x}_y{y}", the key used in logs and test names.
func (c Coords) String() string {
	return fmt.Sprintf("z%d_x%d_y%d", c.Z, c.X, c.Y)
}

// Tile returns the maptile.Tile for this coordinate
func (c Coords) Tile() maptile.Tile {
	return maptile.New(c.X, c.Y, maptile.Zoom(c.Z))
}

// Bound returns the WGS84 bound of the tile.
func (c Coords) Bound() orb.Bound {
	return c.Tile().Bound()
}

// Valid reports whether x and y lie inside the zoom level's grid.
func (c Coords) Valid() bool {
	if c.Z > 24 {
		return false
	}
	n := uint32(1) << c.Z
	return c.X < n && c.Y < n
}

func NewCoords(z, x, y uint32) Coords {
	return Coords{Z: z, X: x, Y: y}
}

// ParseCoords is the inverse of String. Non-canonical input such as leading
// zeros is rejected.
func ParseCoords(s string) (Coords, error) {
	var c Coords
	_, err := fmt.Sscanf(s, "z%d_x%d_y%d", &c.Z, &c.X, &c.Y)
	if err != nil {
		return c, fmt.Errorf("invalid tile coordinate format: %s", s)
	}
	if c.String() != s {
		return Coords{}, fmt.Errorf("invalid tile coordinate format: %s", s)
	}
	return c, nil
}

// TilesInBBox lists every tile touching bbox ([minLon, minLat, maxLon,
// maxLat]) for each zoom in [zoomMin, zoomMax], zoom by zoom, column by
// column.
func TilesInBBox(bbox [4]float64, zoomMin, zoomMax int) []Coords {
	out := make([]Coords, 0, TileCount(bbox, zoomMin, zoomMax))
	for z := zoomMin; z <= zoomMax; z++ {
		sp := spanAt(bbox, z)
		for x := sp.x0; x <= sp.x1; x++ {
			for y := sp.y0; y <= sp.y1; y++ {
				out = append(out, Coords{Z: uint32(z), X: x, Y: y})
			}
		}
	}
	return out
}

// TileCount is len(TilesInBBox(...)) without building the slice.
func TileCount(bbox [4]float64, zoomMin, zoomMax int) int {
	n := 0
	for z := zoomMin; z <= zoomMax; z++ {
		n += spanAt(bbox, z).size()
	}
	return n
}

// span is an inclusive column and row range at one zoom.
type span struct {
	x0, x1, y0, y1 uint32
}

func (s span) size() int {
	return int(s.x1-s.x0+1) * int(s.y1-s.y0+1)
}

func spanAt(bbox [4]float64, z int) span {
	zoom := maptile.Zoom(z)
	sw := maptile.At(orb.Point{bbox[0], bbox[1]}, zoom)
	ne := maptile.At(orb.Point{bbox[2], bbox[3]}, zoom)
	// rows count southwards, so the north-east corner has the smaller y
	return span{
		x0: min(sw.X, ne.X), x1: max(sw.X, ne.X),
		y0: min(sw.Y, ne.Y), y1: max(sw.Y, ne.Y),
	}
}
