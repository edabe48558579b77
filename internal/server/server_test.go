package server

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/MeKo-Tech/bydelskart/assets"
	"github.com/MeKo-Tech/bydelskart/internal/district"
	"github.com/MeKo-Tech/bydelskart/internal/geography"
	"github.com/MeKo-Tech/bydelskart/internal/mbtiles"
	"github.com/MeKo-Tech/bydelskart/internal/overlay"
	"github.com/MeKo-Tech/bydelskart/internal/tile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCache struct {
	mu    sync.Mutex
	tiles map[string][]byte
	puts  int
}

func newMemCache() *memCache {
	return &memCache{tiles: make(map[string][]byte)}
}

func (m *memCache) Get(variant string, c tile.Coords) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.tiles[variant+"/"+c.String()]
	if !ok {
		return nil, mbtiles.ErrTileNotFound
	}
	return data, nil
}

func (m *memCache) Put(variant string, c tile.Coords, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tiles[variant+"/"+c.String()] = data
	m.puts++
	return nil
}

func newTestServer(t *testing.T, cache TileCache) *Server {
	t.Helper()
	s, err := New(Config{
		Districts:   district.Oslo(),
		Catalog:     tile.NewCatalog("test-token"),
		Geography:   assets.Geography(),
		GeoBasePath: "/data",
		Loader:      geography.NewStore(geography.FSSource{FS: assets.Geography()}, nil),
		Tiles: OverlayTilesConfig{
			Cache:         cache,
			BaseTileSize:  64,
			MaxConcurrent: 2,
		},
	})
	require.NoError(t, err)
	return s
}

func do(s http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestParseTilePath(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		wantOK     bool
		wantVar    overlay.Variant
		wantCoords tile.Coords
		wantSuffix string
	}{
		{name: "light", path: "/tiles/light/z13_x4340_y2382.png", wantOK: true,
			wantCoords: tile.NewCoords(13, 4340, 2382)},
		{name: "dark retina", path: "/tiles/dark/z13_x4340_y2382@2x.png", wantOK: true,
			wantVar: overlay.Variant{Dark: true}, wantCoords: tile.NewCoords(13, 4340, 2382), wantSuffix: "@2x"},
		{name: "selected", path: "/tiles/light.frogner/z0_x0_y0.png", wantOK: true,
			wantVar: overlay.Variant{Selected: "frogner"}},
		{name: "wrong prefix", path: "/tile/light/z0_x0_y0.png"},
		{name: "no variant", path: "/tiles/z0_x0_y0.png"},
		{name: "nested variant", path: "/tiles/light/extra/z0_x0_y0.png"},
		{name: "unknown theme", path: "/tiles/sepia/z0_x0_y0.png"},
		{name: "not png", path: "/tiles/light/z0_x0_y0.jpg"},
		{name: "out of grid", path: "/tiles/light/z1_x2_y0.png"},
		{name: "padded number", path: "/tiles/light/z01_x0_y0.png"},
		{name: "garbage", path: "/tiles/light/hello.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, c, suffix, ok := parseTilePath(tt.path)
			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				return
			}
			assert.Equal(t, tt.wantVar, v)
			assert.Equal(t, tt.wantCoords, c)
			assert.Equal(t, tt.wantSuffix, suffix)
		})
	}
}

func TestTileSizeForSuffix(t *testing.T) {
	assert.Equal(t, 256, tileSizeForSuffix(256, ""))
	assert.Equal(t, 512, tileSizeForSuffix(256, "@2x"))
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestHealthz(t *testing.T) {
	rec := do(newTestServer(t, nil), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestGeographyResources(t *testing.T) {
	s := newTestServer(t, nil)
	for _, name := range []string{geography.PolygonsResource, geography.LabelsResource} {
		t.Run(name, func(t *testing.T) {
			rec := do(s, http.MethodGet, "/data/"+name, "")
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))
			assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Contains(t, rec.Body.String(), "FeatureCollection")
		})
	}

	rec := do(s, http.MethodGet, "/"+geography.PolygonsResource, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNormalizeBase(t *testing.T) {
	assert.Equal(t, "/", normalizeBase(""))
	assert.Equal(t, "/data/", normalizeBase("data"))
	assert.Equal(t, "/data/", normalizeBase("/data/"))
}

func TestDistricts(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(s, http.MethodGet, "/api/districts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var all []district.District
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all, 17)

	rec = do(s, http.MethodGet, "/api/districts/frogner", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var d struct {
		district.District
		Comparison *district.Comparison `json:"comparison"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Equal(t, "Frogner", d.Name)
	require.NotNil(t, d.Comparison)
	assert.Equal(t, district.Compare(d.District), *d.Comparison)

	rec = do(s, http.MethodGet, "/api/districts/oslo", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "comparison")

	rec = do(s, http.MethodGet, "/api/districts/atlantis", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEstimate(t *testing.T) {
	s := newTestServer(t, nil)
	frogner, _ := district.Oslo().ByID("frogner")
	want, err := district.Estimate(frogner, district.Leilighet, 60, district.StandardNormal)
	require.NoError(t, err)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"ok", `{"districtId":"frogner","type":"Leilighet","area":60,"standard":"Standard"}`, http.StatusOK},
		{"default standard", `{"districtId":"frogner","type":"Leilighet","area":60}`, http.StatusOK},
		{"bad area", `{"districtId":"frogner","type":"Leilighet","area":0}`, http.StatusBadRequest},
		{"bad type", `{"districtId":"frogner","type":"Slott","area":60}`, http.StatusUnprocessableEntity},
		{"unknown district", `{"districtId":"atlantis","type":"Leilighet","area":60}`, http.StatusNotFound},
		{"unknown field", `{"districtId":"frogner","rooms":3}`, http.StatusBadRequest},
		{"not json", `area=60`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(s, http.MethodPost, "/api/estimate", tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.status != http.StatusOK {
				return
			}
			var resp estimateResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, want, resp.Value)
			assert.Equal(t, "Frogner", resp.District)
			assert.Equal(t, district.Preposition("Frogner"), resp.Preposition)
		})
	}

	rec := do(s, http.MethodGet, "/api/estimate", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestLayers(t *testing.T) {
	rec := do(newTestServer(t, nil), http.MethodGet, "/api/layers", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var layers []layerView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &layers))
	require.Len(t, layers, len(tile.Keys)+1)
	for _, l := range layers {
		assert.Contains(t, l.URL, "access_token=test-token")
		assert.Contains(t, l.URL, "{z}/{x}/{y}")
	}
	assert.True(t, layers[len(layers)-1].Dark)
}

func TestCheck(t *testing.T) {
	rec := do(newTestServer(t, nil), http.MethodGet, "/api/check", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var rep geography.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.True(t, rep.OK())
}

func TestTilesRenderOnDemandAndCache(t *testing.T) {
	cache := newMemCache()
	s := newTestServer(t, cache)
	path := "/tiles/light/z11_x1085_y595.png"

	rec := do(s, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))

	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 1, cache.puts)

	again := do(s, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, again.Code)
	assert.Equal(t, rec.Body.Bytes(), again.Body.Bytes())
	assert.Equal(t, 1, cache.puts)

	st := s.Tiles().Status()
	assert.Equal(t, int64(1), st.TotalRendered)
	assert.Equal(t, int64(1), st.CacheHits)
	assert.True(t, st.Cached)
	assert.Zero(t, st.ActiveRenders)
}

func TestTilesRetinaUsesDoubleSize(t *testing.T) {
	cache := newMemCache()
	rec := do(newTestServer(t, cache), http.MethodGet, "/tiles/dark/z11_x1085_y595@2x.png", "")
	require.Equal(t, http.StatusOK, rec.Code)

	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dx())

	_, err = cache.Get("dark@2x", tile.NewCoords(11, 1085, 595))
	assert.NoError(t, err)
}

func TestTilesRejectUnknown(t *testing.T) {
	s := newTestServer(t, nil)
	for _, p := range []string{
		"/tiles/light.atlantis/z11_x1085_y595.png",
		"/tiles/sepia/z11_x1085_y595.png",
		"/tiles/light/z11_x1085.png",
	} {
		rec := do(s, http.MethodGet, p, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, p)
	}
	assert.Zero(t, s.Tiles().Status().TotalRendered)
}

func TestTilesPreflight(t *testing.T) {
	rec := do(newTestServer(t, nil), http.MethodOptions, "/tiles/light/z0_x0_y0.png", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "GET, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestTileStatusEndpoint(t *testing.T) {
	rec := do(newTestServer(t, nil), http.MethodGet, "/api/tiles/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var st TileStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, 2, st.MaxConcurrent)
	assert.False(t, st.Cached)
}

func TestTilesUseMBTilesCache(t *testing.T) {
	ts, err := mbtiles.Create(t.TempDir()+"/overlay.mbtiles", mbtiles.Metadata{
		Name: "test", Format: "png", DefaultVariant: "light",
	})
	require.NoError(t, err)
	defer ts.Close()

	c := tile.NewCoords(11, 1085, 595)
	require.NoError(t, ts.Put("light", c, []byte("cached")))
	require.NoError(t, ts.Flush())

	s := newTestServer(t, ts)
	rec := do(s, http.MethodGet, "/tiles/light/"+c.String()+".png", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cached", rec.Body.String())
	assert.Zero(t, s.Tiles().Status().TotalRendered)
}
