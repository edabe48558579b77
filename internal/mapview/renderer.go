package mapview

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/MeKo-Tech/bydelskart/internal/district"
	"github.com/MeKo-Tech/bydelskart/internal/geography"
	"github.com/MeKo-Tech/bydelskart/internal/style"
	"github.com/MeKo-Tech/bydelskart/internal/tile"
)

// DefaultHeight is used when Options.Height is unset.
const DefaultHeight = 600

// Host receives the renderer's outbound notifications. Calls are made
// without any renderer lock held, so a host may call back into the renderer.
type Host interface {
	DistrictSelected(d district.District)
	BackgroundClicked()
}

// HostFuncs adapts plain functions to Host. Nil fields are ignored.
type HostFuncs struct {
	OnDistrictSelected  func(d district.District)
	OnBackgroundClicked func()
}

func (h HostFuncs) DistrictSelected(d district.District) {
	if h.OnDistrictSelected != nil {
		h.OnDistrictSelected(d)
	}
}

func (h HostFuncs) BackgroundClicked() {
	if h.OnBackgroundClicked != nil {
		h.OnBackgroundClicked()
	}
}

// Loader supplies the geography; *geography.Store implements it.
type Loader interface {
	Load(ctx context.Context) (*geography.Data, error)
}

// Options configures a Renderer.
type Options struct {
	Districts *district.Collection
	Catalog   *tile.Catalog
	Host      Host
	Dark      bool
	Width     int
	Height    int
	// Selected is the initial selection, if any.
	Selected *district.District
	// OnChange is called after changes that happen outside a caller's
	// request: the geography arriving and debounced layout.
	OnChange    func()
	LayoutDelay time.Duration
	Logger      *slog.Logger
}

// Renderer owns one map instance: viewport, base tile layer, polygon and
// label layers, hover and selection state. It is safe for concurrent use.
type Renderer struct {
	mu sync.Mutex

	districts *district.Collection
	catalog   *tile.Catalog
	host      Host
	onChange  func()
	logger    *slog.Logger

	width, height int
	compact       bool
	view          ViewState
	proj          *Projection // size cache, nil after resize

	dark      bool
	tileMode  TileMode
	activeKey tile.LayerKey
	base      tile.Layer
	baseSwaps int

	data     *geography.Data
	shapes   []*Shape
	markers  []*Marker
	rebuilds int
	hovered  *Shape
	selected *district.District

	layout   *Debouncer
	disposed bool
}

// New creates a renderer framed on the preset for opts.Width with the
// theme's default base layer installed.
func New(opts Options) *Renderer {
	if opts.Districts == nil {
		opts.Districts = district.NewCollection(nil)
	}
	if opts.Catalog == nil {
		opts.Catalog = tile.NewCatalog("")
	}
	if opts.Host == nil {
		opts.Host = HostFuncs{}
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.LayoutDelay <= 0 {
		opts.LayoutDelay = DefaultLayoutDelay
	}

	r := &Renderer{
		districts: opts.Districts,
		catalog:   opts.Catalog,
		host:      opts.Host,
		onChange:  opts.OnChange,
		logger:    opts.Logger,
		width:     opts.Width,
		height:    opts.Height,
		compact:   IsCompact(opts.Width),
		view:      Preset(opts.Width),
		dark:      opts.Dark,
		tileMode:  TileAuto,
		activeKey: tile.DefaultLayer,
		base:      opts.Catalog.Default(opts.Dark),
	}
	if opts.Selected != nil {
		d := *opts.Selected
		r.selected = &d
	}
	r.layout = NewDebouncer(opts.LayoutDelay, r.layoutSettled)
	return r
}

func (r *Renderer) log() *slog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return slog.Default()
}

// ErrDisposed is returned by Load when the renderer was disposed before the
// geography arrived.
var ErrDisposed = errors.New("renderer disposed")

// Mount starts loading the geography in the background. The returned
// channel is closed once the result has been applied or discarded.
func (r *Renderer) Mount(ctx context.Context, loader Loader) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := r.Load(ctx, loader); err == nil && r.onChange != nil {
			r.onChange()
		}
	}()
	return done
}

// Load fetches the geography and applies it. It blocks until the loader
// returns.
func (r *Renderer) Load(ctx context.Context, loader Loader) error {
	data, err := loader.Load(ctx)
	return r.applyGeography(data, err)
}

func (r *Renderer) applyGeography(data *geography.Data, err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.disposed {
		r.log().Debug("geography arrived after dispose, discarding")
		return ErrDisposed
	}
	if err != nil {
		r.log().Warn("geography unavailable, map stays tiles-only", "error", err)
		return err
	}
	r.data = data
	r.rebuildLocked()
	return nil
}

// Ready reports whether the geography has been applied.
func (r *Renderer) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data != nil
}

// Dispose marks the renderer dead. Pending loads and timers become no-ops.
func (r *Renderer) Dispose() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return
	}
	r.disposed = true
	r.layout.Stop()
	r.shapes = nil
	r.markers = nil
	r.hovered = nil
}

// Disposed reports whether Dispose has been called.
func (r *Renderer) Disposed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disposed
}

// rebuildLocked discards both vector layers and builds them again from the
// geography. Hover state does not survive a rebuild.
func (r *Renderer) rebuildLocked() {
	if r.data == nil || r.disposed {
		return
	}
	r.hovered = nil

	shapes := make([]*Shape, 0, len(r.data.Polygons))
	for _, p := range r.data.Polygons {
		s := &Shape{Name: p.Name, Geometry: p.Geometry, Bound: p.Bound}
		if d, ok := r.districts.ByName(p.Name); ok {
			s.District = d
			s.Resolved = true
		} else {
			r.log().Debug("polygon name matches no district", "name", p.Name)
		}
		s.Style = style.PolygonStyle(r.polygonInput(s))
		shapes = append(shapes, s)
	}

	markers := make([]*Marker, 0, len(r.data.Labels))
	for _, l := range r.data.Labels {
		d, ok := r.districts.ByName(l.Name)
		if !ok {
			r.log().Debug("label name matches no district", "name", l.Name)
			continue
		}
		if d.Aggregate() {
			continue
		}
		m := &Marker{District: d, Point: l.Point}
		m.Style = style.LabelStyle(r.labelInput(d))
		markers = append(markers, m)
	}

	r.shapes = shapes
	r.markers = markers
	r.rebuilds++
}

// restyleLocked recomputes styles in place, keeping the current hover.
func (r *Renderer) restyleLocked() {
	for _, s := range r.shapes {
		in := r.polygonInput(s)
		s.Style = style.PolygonStyle(in)
		if s == r.hovered {
			if hs, ok := style.HoverStyle(in); ok {
				s.Style = hs
			}
		}
	}
	for _, m := range r.markers {
		m.Style = style.LabelStyle(r.labelInput(m.District))
	}
}

func (r *Renderer) isSelected(d district.District) bool {
	return r.selected != nil && r.selected.Name == d.Name
}

func (r *Renderer) polygonInput(s *Shape) style.PolygonInput {
	return style.PolygonInput{
		Dark:        r.dark,
		Overlay:     r.activeKey.Overlay(),
		Resolved:    s.Resolved,
		Selected:    s.Resolved && r.isSelected(s.District),
		AnySelected: r.selected != nil,
		PriceChange: s.District.PriceChange,
	}
}

func (r *Renderer) labelInput(d district.District) style.LabelInput {
	return style.LabelInput{
		Dark:        r.dark,
		Selected:    r.isSelected(d),
		AnySelected: r.selected != nil,
		Compact:     r.compact,
	}
}

// SetSelected feeds the host's selection back in. Styles update in place.
func (r *Renderer) SetSelected(d *district.District) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d == nil {
		r.selected = nil
	} else {
		sel := *d
		r.selected = &sel
	}
	r.restyleLocked()
}

// Selected returns the current selection.
func (r *Renderer) Selected() (district.District, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.selected == nil {
		return district.District{}, false
	}
	return *r.selected, true
}

// Resize records a new viewport size. Crossing the compact breakpoint resets
// the view to the new class's preset.
func (r *Renderer) Resize(width, height int) {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		return
	}
	if height <= 0 {
		height = r.height
	}
	r.width, r.height = width, height
	r.proj = nil

	if c := IsCompact(width); c != r.compact {
		r.compact = c
		r.view = Preset(width)
		r.restyleLocked()
		r.log().Debug("viewport class changed", "width", width, "compact", c)
	}
	r.mu.Unlock()

	r.layout.Trigger()
}

// layoutSettled runs once per burst of resizes.
func (r *Renderer) layoutSettled() {
	r.mu.Lock()
	dead := r.disposed
	r.mu.Unlock()
	if !dead && r.onChange != nil {
		r.onChange()
	}
}

// Projection returns the current viewport projection.
func (r *Renderer) Projection() Projection {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.projectionLocked()
}

func (r *Renderer) projectionLocked() Projection {
	if r.proj == nil {
		r.proj = &Projection{View: r.view, Width: r.width, Height: r.height}
	}
	return *r.proj
}

func (r *Renderer) setViewLocked(v ViewState) {
	r.view = v
	r.proj = nil
}

// View returns the current view.
func (r *Renderer) View() ViewState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view
}

// Scene returns a snapshot of the current map state.
func (r *Renderer) Scene() Scene {
	r.mu.Lock()
	defer r.mu.Unlock()

	sc := Scene{
		View:         r.view,
		Width:        r.width,
		Height:       r.height,
		Compact:      r.compact,
		Dark:         r.dark,
		TileMode:     r.tileMode,
		ActiveLayer:  r.activeKey,
		Base:         r.base,
		BaseTemplate: r.catalog.Template(r.base),
		Ready:        r.data != nil,
		Polygons:     make([]PolygonView, 0, len(r.shapes)),
		Labels:       make([]LabelView, 0, len(r.markers)),
	}
	if r.selected != nil {
		sc.Selected = r.selected.ID
	}
	for _, s := range r.shapes {
		pv := PolygonView{
			Name:     s.Name,
			Geometry: s.Geometry,
			Style:    s.Style,
			Hovered:  s.Hovered,
			Selected: s.Resolved && r.isSelected(s.District),
		}
		if s.Resolved {
			pv.DistrictID = s.District.ID
		}
		sc.Polygons = append(sc.Polygons, pv)
	}
	for _, m := range r.markers {
		sc.Labels = append(sc.Labels, LabelView{
			DistrictID: m.District.ID,
			Text:       m.Text(),
			Point:      m.Point,
			Style:      m.Style,
		})
	}
	sortLabels(sc.Labels)
	return sc
}

// Rebuilds returns how many times the vector layers have been rebuilt.
func (r *Renderer) Rebuilds() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rebuilds
}

// BaseSwaps returns how many times the base tile layer has been replaced.
func (r *Renderer) BaseSwaps() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.baseSwaps
}
