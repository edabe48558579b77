package mapview

import (
	"math"

	"github.com/MeKo-Tech/bydelskart/internal/tile"
)

// TileMode tells whether the base layer follows the theme.
type TileMode string

const (
	// TileAuto swaps the base layer between the light and dark default
	// whenever the theme changes.
	TileAuto TileMode = "auto"
	// TileManual pins the user's choice. It is never left again.
	TileManual TileMode = "manual"
)

// Commands is the control surface offered to the host.
type Commands interface {
	ZoomIn()
	ZoomOut()
	ResetView()
	SetTileLayer(key tile.LayerKey) bool
}

var _ Commands = (*Renderer)(nil)

// ZoomIn zooms one step towards MaxZoom. No-op at the bound.
func (r *Renderer) ZoomIn() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed || r.view.Zoom >= MaxZoom {
		return
	}
	v := r.view
	v.Zoom = math.Min(v.Zoom+ZoomStep, MaxZoom)
	r.setViewLocked(v)
}

// ZoomOut zooms one step towards MinZoom. No-op at the bound.
func (r *Renderer) ZoomOut() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed || r.view.Zoom <= MinZoom {
		return
	}
	v := r.view
	v.Zoom = math.Max(v.Zoom-ZoomStep, MinZoom)
	r.setViewLocked(v)
}

// ResetView returns to the preset for the current width. Selection is left
// to the host.
func (r *Renderer) ResetView() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return
	}
	r.setViewLocked(Preset(r.width))
}

// Pan moves the view by a pixel offset, as a drag gesture would.
func (r *Renderer) Pan(dx, dy float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return
	}
	p := r.projectionLocked()
	v := r.view
	v.Center = p.ToLonLat(float64(r.width)/2+dx, float64(r.height)/2+dy)
	r.setViewLocked(v)
}

// SetView moves the viewport, clamping the zoom to the allowed range.
func (r *Renderer) SetView(v ViewState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return
	}
	v.Zoom = math.Max(MinZoom, math.Min(MaxZoom, v.Zoom))
	r.setViewLocked(v)
}

// SetTileLayer installs the layer for key and pins the tile mode to manual,
// even when key names the current layer. Unknown keys are rejected and
// change nothing.
func (r *Renderer) SetTileLayer(key tile.LayerKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return false
	}
	l, ok := r.catalog.Layer(key)
	if !ok {
		r.log().Warn("unknown tile layer", "key", key)
		return false
	}
	r.tileMode = TileManual
	r.activeKey = key
	r.base = l
	r.baseSwaps++
	r.rebuildLocked()
	return true
}

// SetTheme switches between light and dark. In auto mode the base layer
// follows the theme; in manual mode it is left alone. Vector layers are
// rebuilt either way.
func (r *Renderer) SetTheme(dark bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed || r.dark == dark {
		return
	}
	r.dark = dark
	if r.tileMode == TileAuto {
		r.base = r.catalog.Default(dark)
		r.baseSwaps++
	}
	r.rebuildLocked()
}

// Dark reports the current theme.
func (r *Renderer) Dark() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dark
}

// TileState returns the tile mode, the active layer key and the installed
// base layer.
func (r *Renderer) TileState() (TileMode, tile.LayerKey, tile.Layer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tileMode, r.activeKey, r.base
}
