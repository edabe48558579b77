package mapview

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MeKo-Tech/bydelskart/internal/district"
	"github.com/MeKo-Tech/bydelskart/internal/geography"
	"github.com/MeKo-Tech/bydelskart/internal/style"
	"github.com/MeKo-Tech/bydelskart/internal/tile"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(minLon, minLat, maxLon, maxLat float64) orb.Polygon {
	return orb.Polygon{orb.Ring{
		{minLon, minLat}, {maxLon, minLat}, {maxLon, maxLat}, {minLon, maxLat}, {minLon, minLat},
	}}
}

func polygon(name string, g orb.Polygon) geography.Polygon {
	return geography.Polygon{Name: name, Geometry: g, Bound: g.Bound()}
}

// testData has two resolvable districts side by side, one polygon with an
// unknown name and labels well away from the polygons.
func testData() *geography.Data {
	return &geography.Data{
		Polygons: []geography.Polygon{
			polygon("Frogner", square(10.70, 59.91, 10.74, 59.93)),
			polygon("Sentrum", square(10.74, 59.91, 10.78, 59.93)),
			polygon("Marka", square(10.60, 59.95, 10.64, 59.97)),
		},
		Labels: []geography.Label{
			{Name: "Frogner", Point: orb.Point{10.70, 59.89}},
			{Name: "Sentrum", Point: orb.Point{10.80, 59.89}},
			{Name: "Oslo (Totalt)", Point: orb.Point{10.75, 59.87}},
			{Name: "Marka", Point: orb.Point{10.62, 59.98}},
		},
	}
}

type staticLoader struct {
	data *geography.Data
	err  error
}

func (l staticLoader) Load(context.Context) (*geography.Data, error) {
	return l.data, l.err
}

type recordingHost struct {
	mu         sync.Mutex
	selected   []string
	background int
}

func (h *recordingHost) DistrictSelected(d district.District) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.selected = append(h.selected, d.Name)
}

func (h *recordingHost) BackgroundClicked() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.background++
}

func newMounted(t *testing.T, opts Options) *Renderer {
	t.Helper()
	if opts.Districts == nil {
		opts.Districts = district.Oslo()
	}
	if opts.Width == 0 {
		opts.Width = 1024
	}
	r := New(opts)
	<-r.Mount(context.Background(), staticLoader{data: testData()})
	require.True(t, r.Ready())
	return r
}

func mustDistrict(t *testing.T, name string) district.District {
	t.Helper()
	d, ok := district.Oslo().ByName(name)
	require.True(t, ok, name)
	return d
}

func pixelOf(r *Renderer, pt orb.Point) (float64, float64) {
	return r.Projection().ToPixel(pt)
}

func polygonStyle(t *testing.T, r *Renderer, name string) PolygonView {
	t.Helper()
	pv, ok := r.Scene().Polygon(name)
	require.True(t, ok, name)
	return pv
}

func TestPresetByWidth(t *testing.T) {
	assert.Equal(t, CompactPreset, Preset(767))
	assert.Equal(t, WidePreset, Preset(768))
	assert.Equal(t, WidePreset, Preset(1440))

	assert.Equal(t, CompactPreset, New(Options{Width: 375}).View())
	assert.Equal(t, WidePreset, New(Options{Width: 1280}).View())
}

func TestProjectionRoundTrip(t *testing.T) {
	p := Projection{View: WidePreset, Width: 1024, Height: 768}

	x, y := p.ToPixel(WidePreset.Center)
	assert.InDelta(t, 512, x, 1e-6)
	assert.InDelta(t, 384, y, 1e-6)

	pt := orb.Point{10.70, 59.95}
	x, y = p.ToPixel(pt)
	back := p.ToLonLat(x, y)
	assert.InDelta(t, pt.Lon(), back.Lon(), 1e-9)
	assert.InDelta(t, pt.Lat(), back.Lat(), 1e-9)

	b := p.Bound()
	assert.True(t, b.Contains(WidePreset.Center))
}

func TestMountBuildsLayers(t *testing.T) {
	r := newMounted(t, Options{})
	sc := r.Scene()

	require.Len(t, sc.Polygons, 3)
	assert.Equal(t, 1, r.Rebuilds())

	frogner := mustDistrict(t, "Frogner")
	pv, _ := sc.Polygon("Frogner")
	assert.Equal(t, "frogner", pv.DistrictID)
	assert.Equal(t, style.ChoroplethColor(frogner.PriceChange), pv.Style.FillColor)

	// unknown names keep the default style and no district
	marka, _ := sc.Polygon("Marka")
	assert.Empty(t, marka.DistrictID)
	assert.Equal(t, style.PolygonStyle(style.PolygonInput{}), marka.Style)

	// no label for the aggregate or for unknown names
	require.Len(t, sc.Labels, 2)
	for _, l := range sc.Labels {
		assert.NotEqual(t, district.AggregateID, l.DistrictID)
	}
	assert.Equal(t, "FROGNER", sc.Labels[0].Text)
}

func TestMountFailureLeavesTilesOnly(t *testing.T) {
	changed := false
	r := New(Options{Width: 1024, OnChange: func() { changed = true }})
	<-r.Mount(context.Background(), staticLoader{err: errors.New("boom")})

	sc := r.Scene()
	assert.False(t, sc.Ready)
	assert.Empty(t, sc.Polygons)
	assert.Empty(t, sc.Labels)
	assert.Equal(t, tile.LayerBlue, sc.Base.Key)
	assert.False(t, changed)
}

func TestHoverSingleTarget(t *testing.T) {
	r := newMounted(t, Options{})
	frogner := mustDistrict(t, "Frogner")
	sentrum := mustDistrict(t, "Sentrum")

	r.PointerEnter("Frogner")
	assert.Equal(t, style.HoverColor(frogner.PriceChange), polygonStyle(t, r, "Frogner").Style.FillColor)

	// enter B without a leave for A
	r.PointerEnter("Sentrum")
	name, ok := r.Hovered()
	require.True(t, ok)
	assert.Equal(t, "Sentrum", name)

	a := polygonStyle(t, r, "Frogner")
	assert.False(t, a.Hovered)
	assert.Equal(t, style.ChoroplethColor(frogner.PriceChange), a.Style.FillColor)
	assert.Equal(t, style.HoverColor(sentrum.PriceChange), polygonStyle(t, r, "Sentrum").Style.FillColor)

	// a late leave for A must not disturb B
	r.PointerLeave("Frogner")
	name, ok = r.Hovered()
	require.True(t, ok)
	assert.Equal(t, "Sentrum", name)
	assert.True(t, polygonStyle(t, r, "Sentrum").Hovered)

	r.PointerLeave("Sentrum")
	_, ok = r.Hovered()
	assert.False(t, ok)
	assert.Equal(t, style.ChoroplethColor(sentrum.PriceChange), polygonStyle(t, r, "Sentrum").Style.FillColor)

	hovered := 0
	for _, p := range r.Scene().Polygons {
		if p.Hovered {
			hovered++
		}
	}
	assert.Zero(t, hovered)
}

func TestHoverIgnoresUnresolved(t *testing.T) {
	r := newMounted(t, Options{})
	r.PointerEnter("Marka")
	_, ok := r.Hovered()
	assert.False(t, ok)
}

func TestPointerMove(t *testing.T) {
	r := newMounted(t, Options{})

	r.PointerMove(pixelOf(r, orb.Point{10.72, 59.92}))
	name, ok := r.Hovered()
	require.True(t, ok)
	assert.Equal(t, "Frogner", name)

	r.PointerMove(pixelOf(r, orb.Point{10.76, 59.92}))
	name, _ = r.Hovered()
	assert.Equal(t, "Sentrum", name)
	assert.False(t, polygonStyle(t, r, "Frogner").Hovered)

	// over an unresolved polygon counts as background
	r.PointerMove(pixelOf(r, orb.Point{10.62, 59.96}))
	_, ok = r.Hovered()
	assert.False(t, ok)

	r.PointerEnter("Frogner")
	r.PointerOut()
	_, ok = r.Hovered()
	assert.False(t, ok)
}

func TestHoverSuppressedWhenSelected(t *testing.T) {
	r := newMounted(t, Options{})
	frogner := mustDistrict(t, "Frogner")
	r.SetSelected(&frogner)
	selected := polygonStyle(t, r, "Frogner").Style

	r.PointerEnter("Frogner")
	assert.Equal(t, selected, polygonStyle(t, r, "Frogner").Style)
}

func TestSelectionRestylesInPlace(t *testing.T) {
	r := newMounted(t, Options{})
	before := r.Rebuilds()
	frogner := mustDistrict(t, "Frogner")
	sentrum := mustDistrict(t, "Sentrum")

	r.SetSelected(&frogner)
	sc := r.Scene()
	assert.Equal(t, "frogner", sc.Selected)

	pv, _ := sc.Polygon("Frogner")
	assert.True(t, pv.Selected)
	ts := style.ThemeStyles(false)
	assert.Equal(t, ts.Fill.Selected, pv.Style.FillColor)

	other, _ := sc.Polygon("Sentrum")
	assert.Equal(t, style.ChoroplethColor(sentrum.PriceChange), other.Style.FillColor)
	assert.InDelta(t, ts.Dim.FillOpacity, other.Style.FillOpacity, 1e-9)

	// selected label paints last
	last := sc.Labels[len(sc.Labels)-1]
	assert.Equal(t, "frogner", last.DistrictID)
	assert.Equal(t, style.SelectedLabelZ, last.Style.ZIndex)

	r.SetSelected(nil)
	assert.Empty(t, r.Scene().Selected)
	assert.Equal(t, before, r.Rebuilds())
}

func TestHoverSurvivesSelectionElsewhere(t *testing.T) {
	r := newMounted(t, Options{})
	sentrum := mustDistrict(t, "Sentrum")
	frogner := mustDistrict(t, "Frogner")

	r.PointerEnter("Sentrum")
	r.SetSelected(&frogner)

	pv := polygonStyle(t, r, "Sentrum")
	assert.True(t, pv.Hovered)
	assert.Equal(t, style.HoverColor(sentrum.PriceChange), pv.Style.FillColor)
}

func TestClick(t *testing.T) {
	host := &recordingHost{}
	r := newMounted(t, Options{Host: host})

	assert.True(t, r.Click(pixelOf(r, orb.Point{10.72, 59.92})))
	assert.False(t, r.Click(pixelOf(r, orb.Point{10.50, 59.80})))
	// unresolved polygon falls through to the background
	assert.False(t, r.Click(pixelOf(r, orb.Point{10.62, 59.96})))

	x, y := pixelOf(r, orb.Point{10.80, 59.89})
	assert.True(t, r.Click(x+2, y+2))

	assert.True(t, r.ClickLabel("Frogner"))
	assert.False(t, r.ClickLabel("Oslo (Totalt)"))
	assert.True(t, r.ClickDistrict("Sentrum"))
	assert.False(t, r.ClickDistrict("Marka"))

	host.mu.Lock()
	defer host.mu.Unlock()
	assert.Equal(t, []string{"Frogner", "Sentrum", "Frogner", "Sentrum"}, host.selected)
	assert.Equal(t, 2, host.background)
}

func TestHostMayReenter(t *testing.T) {
	var r *Renderer
	r = newMounted(t, Options{Host: HostFuncs{
		OnDistrictSelected: func(d district.District) { r.SetSelected(&d) },
	}})
	require.True(t, r.ClickDistrict("Frogner"))
	d, ok := r.Selected()
	require.True(t, ok)
	assert.Equal(t, "Frogner", d.Name)
}

func TestTileLayerManualIsSticky(t *testing.T) {
	r := newMounted(t, Options{})
	rebuilds := r.Rebuilds()

	require.True(t, r.SetTileLayer(tile.LayerBlue))
	mode, key, base := r.TileState()
	assert.Equal(t, TileManual, mode)
	assert.Equal(t, tile.LayerBlue, key)
	assert.False(t, base.Dark)
	assert.Equal(t, rebuilds+1, r.Rebuilds())

	swaps := r.BaseSwaps()
	r.SetTheme(true)
	r.SetTheme(false)
	r.SetTheme(true)

	mode, key, base = r.TileState()
	assert.Equal(t, TileManual, mode)
	assert.Equal(t, tile.LayerBlue, key)
	assert.False(t, base.Dark)
	assert.Equal(t, swaps, r.BaseSwaps())
	assert.Equal(t, rebuilds+4, r.Rebuilds())

	// dark label colours apply even though the base stayed
	assert.Equal(t, style.ThemeStyles(true).Label.Color, r.Scene().Labels[0].Style.Color)
}

func TestTileLayerAutoFollowsTheme(t *testing.T) {
	r := newMounted(t, Options{})

	r.SetTheme(true)
	mode, key, base := r.TileState()
	assert.Equal(t, TileAuto, mode)
	assert.Equal(t, tile.LayerBlue, key)
	assert.True(t, base.Dark)

	// same theme again is a no-op
	rebuilds := r.Rebuilds()
	r.SetTheme(true)
	assert.Equal(t, rebuilds, r.Rebuilds())

	r.SetTheme(false)
	_, _, base = r.TileState()
	assert.False(t, base.Dark)
	assert.Equal(t, 2, r.BaseSwaps())
}

func TestUnknownTileLayerIsRejected(t *testing.T) {
	r := newMounted(t, Options{})
	assert.False(t, r.SetTileLayer("satellite"))
	mode, key, _ := r.TileState()
	assert.Equal(t, TileAuto, mode)
	assert.Equal(t, tile.LayerBlue, key)
	assert.Zero(t, r.BaseSwaps())
}

func TestOverlayLayerHidesPolygons(t *testing.T) {
	r := newMounted(t, Options{})
	frogner := mustDistrict(t, "Frogner")
	r.SetSelected(&frogner)

	require.True(t, r.SetTileLayer(tile.LayerSnapmap))
	for _, p := range r.Scene().Polygons {
		assert.Equal(t, style.Invisible, p.Style, p.Name)
	}

	r.PointerEnter("Sentrum")
	assert.Equal(t, style.Invisible, polygonStyle(t, r, "Sentrum").Style)

	// labels are still shown
	assert.Len(t, r.Scene().Labels, 2)
}

func TestLeavingOverlayLayerRestoresStyles(t *testing.T) {
	r := newMounted(t, Options{})
	frogner := mustDistrict(t, "Frogner")
	sentrum := mustDistrict(t, "Sentrum")
	r.SetSelected(&frogner)

	require.True(t, r.SetTileLayer(tile.LayerSnapmap))
	require.Equal(t, style.Invisible, polygonStyle(t, r, "Frogner").Style)

	require.True(t, r.SetTileLayer(tile.LayerBlue))
	assert.Equal(t, style.PolygonStyle(style.PolygonInput{
		Resolved:    true,
		Selected:    true,
		AnySelected: true,
		PriceChange: frogner.PriceChange,
	}), polygonStyle(t, r, "Frogner").Style)
	assert.Equal(t, style.PolygonStyle(style.PolygonInput{
		Resolved:    true,
		AnySelected: true,
		PriceChange: sentrum.PriceChange,
	}), polygonStyle(t, r, "Sentrum").Style)
	assert.Equal(t, style.ChoroplethColor(sentrum.PriceChange), polygonStyle(t, r, "Sentrum").Style.FillColor)
}

func TestThemeToggleKeepsSelection(t *testing.T) {
	r := newMounted(t, Options{})
	frogner := mustDistrict(t, "Frogner")
	r.SetSelected(&frogner)

	r.SetTheme(true)
	d, ok := r.Selected()
	require.True(t, ok)
	assert.Equal(t, "frogner", d.ID)

	pv := polygonStyle(t, r, "Frogner")
	assert.True(t, pv.Selected)
	assert.Equal(t, style.PolygonStyle(style.PolygonInput{
		Dark:        true,
		Resolved:    true,
		Selected:    true,
		AnySelected: true,
		PriceChange: frogner.PriceChange,
	}), pv.Style)

	r.SetTheme(false)
	d, ok = r.Selected()
	require.True(t, ok)
	assert.Equal(t, "frogner", d.ID)
}

func TestThemeToggleLeavesOverlayLayerInstalled(t *testing.T) {
	r := newMounted(t, Options{})
	require.True(t, r.SetTileLayer(tile.LayerSnapmap))
	swaps := r.BaseSwaps()

	r.SetTheme(true)
	r.SetTheme(false)
	r.SetTheme(true)

	mode, key, base := r.TileState()
	assert.Equal(t, TileManual, mode)
	assert.Equal(t, tile.LayerSnapmap, key)
	assert.Equal(t, tile.LayerSnapmap, base.Key)
	assert.Equal(t, swaps, r.BaseSwaps())
	for _, p := range r.Scene().Polygons {
		assert.Equal(t, style.Invisible, p.Style, p.Name)
	}
}

func TestDarkThemeFixedFill(t *testing.T) {
	r := newMounted(t, Options{Dark: true})
	ts := style.ThemeStyles(true)
	_, _, base := r.TileState()
	assert.True(t, base.Dark)
	assert.Equal(t, ts.Fill.Default, polygonStyle(t, r, "Frogner").Style.FillColor)
	assert.Equal(t, ts.Fill.Default, polygonStyle(t, r, "Sentrum").Style.FillColor)
}

func TestZoomBounds(t *testing.T) {
	r := New(Options{Width: 1024})
	for i := 0; i < 20; i++ {
		r.ZoomIn()
	}
	assert.InDelta(t, MaxZoom, r.View().Zoom, 1e-9)
	r.ZoomIn()
	assert.InDelta(t, MaxZoom, r.View().Zoom, 1e-9)

	for i := 0; i < 20; i++ {
		r.ZoomOut()
	}
	assert.InDelta(t, MinZoom, r.View().Zoom, 1e-9)

	r.ResetView()
	assert.Equal(t, WidePreset, r.View())
}

func TestResetViewKeepsSelection(t *testing.T) {
	r := newMounted(t, Options{})
	frogner := mustDistrict(t, "Frogner")
	r.SetSelected(&frogner)
	r.ZoomIn()
	r.Pan(100, -40)
	require.NotEqual(t, WidePreset, r.View())

	r.ResetView()
	assert.Equal(t, WidePreset, r.View())
	_, ok := r.Selected()
	assert.True(t, ok)
}

func TestPan(t *testing.T) {
	r := New(Options{Width: 1024, Height: 768})
	before := r.Projection()
	r.Pan(100, 0)
	after := r.View().Center

	want := before.ToLonLat(612, 384)
	assert.InDelta(t, want.Lon(), after.Lon(), 1e-9)
	assert.InDelta(t, want.Lat(), after.Lat(), 1e-9)
}

func TestResizeWidthClass(t *testing.T) {
	r := newMounted(t, Options{Width: 1024})
	r.ZoomIn()
	zoomed := r.View()

	// same class keeps the user's view
	r.Resize(900, 0)
	assert.Equal(t, zoomed, r.View())
	assert.Equal(t, 900, r.Projection().Width)

	r.Resize(500, 0)
	assert.Equal(t, CompactPreset, r.View())
	assert.True(t, r.Scene().Compact)
	assert.InDelta(t, 10, r.Scene().Labels[0].Style.FontSize, 1e-9)

	r.ZoomOut()
	r.Resize(1200, 800)
	assert.Equal(t, WidePreset, r.View())
	assert.Equal(t, 800, r.Projection().Height)
}

func TestResizeDebounced(t *testing.T) {
	var calls atomic.Int32
	r := New(Options{
		Width:       1024,
		LayoutDelay: 20 * time.Millisecond,
		OnChange:    func() { calls.Add(1) },
	})
	for w := 1000; w > 900; w -= 10 {
		r.Resize(w, 0)
	}
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

type gatedLoader struct {
	release chan struct{}
}

func (l gatedLoader) Load(ctx context.Context) (*geography.Data, error) {
	<-l.release
	return testData(), nil
}

func TestDisposeBeforeLoad(t *testing.T) {
	var changed atomic.Bool
	r := New(Options{
		Districts: district.Oslo(),
		Width:     1024,
		OnChange:  func() { changed.Store(true) },
	})
	loader := gatedLoader{release: make(chan struct{})}
	done := r.Mount(context.Background(), loader)

	r.Dispose()
	close(loader.release)
	<-done

	assert.True(t, r.Disposed())
	assert.False(t, r.Ready())
	assert.Empty(t, r.Scene().Polygons)
	assert.False(t, changed.Load())

	// commands after dispose are ignored
	assert.False(t, r.SetTileLayer(tile.LayerDark))
	assert.False(t, r.Click(1, 1))
}

func TestDebouncerStop(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(10*time.Millisecond, func() { calls.Add(1) })
	d.Trigger()
	d.Stop()
	d.Trigger()
	time.Sleep(40 * time.Millisecond)
	assert.Zero(t, calls.Load())
}

func TestSetViewClampsZoom(t *testing.T) {
	r := New(Options{Width: 1024})
	r.SetView(ViewState{Center: orb.Point{10.7, 59.9}, Zoom: 25})
	assert.Equal(t, ViewState{Center: orb.Point{10.7, 59.9}, Zoom: MaxZoom}, r.View())

	r.SetView(ViewState{Center: orb.Point{10.7, 59.9}, Zoom: 2})
	assert.InDelta(t, MinZoom, r.View().Zoom, 1e-9)
}

func TestLoadAfterDispose(t *testing.T) {
	r := New(Options{Width: 1024})
	r.Dispose()
	err := r.Load(context.Background(), staticLoader{data: testData()})
	require.ErrorIs(t, err, ErrDisposed)
}

func TestClickSelectsAndDimsNeighbour(t *testing.T) {
	data := &geography.Data{
		Polygons: []geography.Polygon{
			polygon("Frogner", square(10.70, 59.91, 10.74, 59.93)),
			polygon("Ullern", square(10.64, 59.91, 10.70, 59.93)),
		},
	}
	var r *Renderer
	var picked []district.District
	r = New(Options{
		Districts: district.Oslo(),
		Width:     1024,
		Host: HostFuncs{OnDistrictSelected: func(d district.District) {
			picked = append(picked, d)
			r.SetSelected(&d)
		}},
	})
	<-r.Mount(context.Background(), staticLoader{data: data})

	require.True(t, r.Click(pixelOf(r, orb.Point{10.72, 59.92})))
	require.Len(t, picked, 1)
	assert.Equal(t, mustDistrict(t, "Frogner"), picked[0])

	ts := style.ThemeStyles(false)
	frogner := polygonStyle(t, r, "Frogner")
	assert.True(t, frogner.Selected)
	assert.Equal(t, ts.Border.SelectedColor, frogner.Style.Color)

	ullern := polygonStyle(t, r, "Ullern")
	assert.False(t, ullern.Selected)
	assert.InDelta(t, ts.Dim.FillOpacity, ullern.Style.FillOpacity, 1e-9)
	assert.InDelta(t, ts.Dim.BorderOpacity, ullern.Style.Opacity, 1e-9)
}

func TestReselectLeavesOneSelected(t *testing.T) {
	r := newMounted(t, Options{})
	frogner := mustDistrict(t, "Frogner")
	sentrum := mustDistrict(t, "Sentrum")

	r.SetSelected(&frogner)
	r.SetSelected(&sentrum)

	sc := r.Scene()
	var selected []string
	for _, pv := range sc.Polygons {
		if pv.Selected {
			selected = append(selected, pv.Name)
		}
	}
	assert.Equal(t, []string{"Sentrum"}, selected)

	pv, _ := sc.Polygon("Frogner")
	assert.Equal(t, style.PolygonStyle(style.PolygonInput{
		Resolved:    true,
		AnySelected: true,
		PriceChange: frogner.PriceChange,
	}), pv.Style)
}
