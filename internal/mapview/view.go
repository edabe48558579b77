package mapview

import (
	"math"

	"github.com/paulmach/orb"
)

// CompactBreakpoint is the viewport width below which the compact preset
// and compact label sizes apply.
const CompactBreakpoint = 768

// Zoom limits and step for the zoom commands.
const (
	MinZoom  = 8.0
	MaxZoom  = 19.0
	ZoomStep = 1.0
)

// worldTileSize is the size in pixels of the whole world at zoom 0.
const worldTileSize = 256

// ViewState is the viewport centre (lon, lat) and fractional zoom.
type ViewState struct {
	Center orb.Point `json:"center"`
	Zoom   float64   `json:"zoom"`
}

var (
	// WidePreset frames the city on tablet and desktop widths.
	WidePreset = ViewState{Center: orb.Point{10.76, 59.92}, Zoom: 11.5}
	// CompactPreset frames the city on phone widths.
	CompactPreset = ViewState{Center: orb.Point{10.76, 59.91}, Zoom: 10.6}
)

// IsCompact reports whether width falls in the compact class.
func IsCompact(width int) bool {
	return width < CompactBreakpoint
}

// Preset returns the preset view for a viewport width.
func Preset(width int) ViewState {
	if IsCompact(width) {
		return CompactPreset
	}
	return WidePreset
}

// Projection maps lon/lat to viewport pixels with Web Mercator at a
// fractional zoom. Pixel (0,0) is the top-left corner of the viewport.
type Projection struct {
	View   ViewState
	Width  int
	Height int
}

func (p Projection) scale() float64 {
	return worldTileSize * math.Pow(2, p.View.Zoom)
}

// world maps lon/lat to global pixel space at the projection's zoom.
func (p Projection) world(pt orb.Point) (float64, float64) {
	s := p.scale()
	x := (pt.Lon() + 180.0) / 360.0 * s

	latRad := pt.Lat() * math.Pi / 180.0
	mercY := math.Log(math.Tan(math.Pi/4.0 + latRad/2.0))
	y := (1.0 - mercY/math.Pi) / 2.0 * s
	return x, y
}

// ToPixel maps lon/lat to viewport pixels.
func (p Projection) ToPixel(pt orb.Point) (float64, float64) {
	x, y := p.world(pt)
	cx, cy := p.world(p.View.Center)
	return x - cx + float64(p.Width)/2, y - cy + float64(p.Height)/2
}

// ToLonLat maps viewport pixels back to lon/lat.
func (p Projection) ToLonLat(x, y float64) orb.Point {
	cx, cy := p.world(p.View.Center)
	gx := x - float64(p.Width)/2 + cx
	gy := y - float64(p.Height)/2 + cy

	s := p.scale()
	lon := gx/s*360.0 - 180.0
	lat := 180.0 / math.Pi * math.Atan(math.Sinh(math.Pi*(1-2*gy/s)))
	return orb.Point{lon, lat}
}

// Bound returns the lon/lat bound visible in the viewport.
func (p Projection) Bound() orb.Bound {
	nw := p.ToLonLat(0, 0)
	se := p.ToLonLat(float64(p.Width), float64(p.Height))
	return orb.Bound{Min: orb.Point{nw.Lon(), se.Lat()}, Max: orb.Point{se.Lon(), nw.Lat()}}
}
