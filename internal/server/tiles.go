package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MeKo-Tech/bydelskart/internal/district"
	"github.com/MeKo-Tech/bydelskart/internal/mapview"
	"github.com/MeKo-Tech/bydelskart/internal/mbtiles"
	"github.com/MeKo-Tech/bydelskart/internal/overlay"
	"github.com/MeKo-Tech/bydelskart/internal/tile"
)

// TileCache stores encoded overlay tiles. *mbtiles.Tileset implements it.
type TileCache interface {
	Get(variant string, c tile.Coords) ([]byte, error)
	Put(variant string, c tile.Coords, data []byte) error
}

// OverlayTilesConfig configures overlay tile serving.
type OverlayTilesConfig struct {
	Districts *district.Collection
	Loader    mapview.Loader
	// Cache is consulted first and filled on render. Optional.
	Cache        TileCache
	CacheControl string
	// BaseTileSize is the size of plain tiles. @2x requests render double
	// and are cached under their own variant key.
	BaseTileSize  int
	MaxConcurrent int
	RenderTimeout time.Duration
	Compression   string
}

// OverlayTiles serves /tiles/{variant}/z{z}_x{x}_y{y}[@2x].png, rendering
// missing tiles on demand.
type OverlayTiles struct {
	cfg       OverlayTilesConfig
	logger    *slog.Logger
	sem       chan struct{}
	locks     sync.Map
	renderers sync.Map // tile size -> *overlay.Renderer

	activeRenders atomic.Int32
	totalRendered atomic.Int64
	totalFailed   atomic.Int64
	cacheHits     atomic.Int64
}

// TileStatus is the JSON body of the status endpoint.
type TileStatus struct {
	ActiveRenders int   `json:"active_renders"`
	TotalRendered int64 `json:"total_rendered"`
	TotalFailed   int64 `json:"total_failed"`
	CacheHits     int64 `json:"cache_hits"`
	MaxConcurrent int   `json:"max_concurrent"`
	Cached        bool  `json:"cached"`
}

// NewOverlayTiles validates cfg and fills defaults.
func NewOverlayTiles(cfg OverlayTilesConfig, logger *slog.Logger) (*OverlayTiles, error) {
	if cfg.Districts == nil || cfg.Loader == nil {
		return nil, errors.New("overlay tiles need districts and a geography loader")
	}
	if _, err := rasterCompression(cfg.Compression); err != nil {
		return nil, err
	}
	if cfg.BaseTileSize <= 0 {
		cfg.BaseTileSize = overlay.DefaultTileSize
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if cfg.RenderTimeout <= 0 {
		cfg.RenderTimeout = 30 * time.Second
	}
	if cfg.CacheControl == "" {
		cfg.CacheControl = "public, max-age=3600"
	}
	return &OverlayTiles{
		cfg:    cfg,
		logger: logger,
		sem:    make(chan struct{}, cfg.MaxConcurrent),
	}, nil
}

// Handler returns the tile handler.
func (t *OverlayTiles) Handler() http.Handler {
	return http.HandlerFunc(t.serveTile)
}

// Status returns render counters.
func (t *OverlayTiles) Status() TileStatus {
	return TileStatus{
		ActiveRenders: int(t.activeRenders.Load()),
		TotalRendered: t.totalRendered.Load(),
		TotalFailed:   t.totalFailed.Load(),
		CacheHits:     t.cacheHits.Load(),
		MaxConcurrent: t.cfg.MaxConcurrent,
		Cached:        t.cfg.Cache != nil,
	}
}

// StatusHandler returns an HTTP handler for the status endpoint (JSON).
func (t *OverlayTiles) StatusHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusOK, t.Status())
	})
}

func (t *OverlayTiles) serveTile(w http.ResponseWriter, r *http.Request) {
	variant, coords, suffix, ok := parseTilePath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if variant.Selected != "" {
		if _, ok := t.cfg.Districts.ByID(variant.Selected); !ok {
			http.NotFound(w, r)
			return
		}
	}

	key := variant.String() + suffix
	if data, ok := t.cached(key, coords); ok {
		t.writePNG(w, data)
		return
	}

	mu := t.getLock(key + "/" + coords.String())
	mu.Lock()
	defer mu.Unlock()

	if data, ok := t.cached(key, coords); ok {
		t.writePNG(w, data)
		return
	}

	select {
	case t.sem <- struct{}{}:
		defer func() { <-t.sem }()
	case <-r.Context().Done():
		http.Error(w, "request cancelled", http.StatusRequestTimeout)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), t.cfg.RenderTimeout)
	defer cancel()

	start := time.Now()
	t.activeRenders.Add(1)
	data, err := t.getRenderer(tileSizeForSuffix(t.cfg.BaseTileSize, suffix)).RenderPNG(ctx, variant, coords)
	t.activeRenders.Add(-1)
	if err != nil {
		t.totalFailed.Add(1)
		t.log().Error("failed to render tile", "variant", key, "coords", coords.String(), "error", err)
		http.Error(w, fmt.Sprintf("failed to render tile %s: %v", coords.String()+suffix, err), http.StatusBadGateway)
		return
	}
	t.totalRendered.Add(1)
	t.log().Debug("tile rendered on demand", "variant", key, "coords", coords.String(), "ms", time.Since(start).Milliseconds())

	if t.cfg.Cache != nil {
		if err := t.cfg.Cache.Put(key, coords, data); err != nil {
			t.log().Warn("failed to cache tile", "variant", key, "coords", coords.String(), "error", err)
		}
	}
	t.writePNG(w, data)
}

func (t *OverlayTiles) cached(key string, c tile.Coords) ([]byte, bool) {
	if t.cfg.Cache == nil {
		return nil, false
	}
	data, err := t.cfg.Cache.Get(key, c)
	if err != nil {
		if !errors.Is(err, mbtiles.ErrTileNotFound) {
			t.log().Warn("tile cache read failed", "variant", key, "coords", c.String(), "error", err)
		}
		return nil, false
	}
	t.cacheHits.Add(1)
	return data, true
}

func (t *OverlayTiles) writePNG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", t.cfg.CacheControl)
	if _, err := w.Write(data); err != nil {
		t.log().Debug("failed to write tile response", "error", err)
	}
}

func (t *OverlayTiles) getRenderer(size int) *overlay.Renderer {
	if v, ok := t.renderers.Load(size); ok {
		return v.(*overlay.Renderer)
	}
	level, _ := rasterCompression(t.cfg.Compression)
	r := overlay.NewRenderer(overlay.Options{
		Districts:   t.cfg.Districts,
		Loader:      t.cfg.Loader,
		TileSize:    size,
		Compression: level,
		Logger:      t.logger,
	})
	actual, _ := t.renderers.LoadOrStore(size, r)
	return actual.(*overlay.Renderer)
}

func (t *OverlayTiles) getLock(key string) *sync.Mutex {
	if v, ok := t.locks.Load(key); ok {
		return v.(*sync.Mutex)
	}
	mu := &sync.Mutex{}
	actual, _ := t.locks.LoadOrStore(key, mu)
	return actual.(*sync.Mutex)
}

func (t *OverlayTiles) log() *slog.Logger {
	if t.logger != nil {
		return t.logger
	}
	return slog.Default()
}

// parseTilePath splits /tiles/light.frogner/z13_x4340_y2382@2x.png into its
// variant, coordinates and size suffix.
func parseTilePath(requestPath string) (overlay.Variant, tile.Coords, string, bool) {
	rest, ok := strings.CutPrefix(requestPath, "/tiles/")
	if !ok {
		return overlay.Variant{}, tile.Coords{}, "", false
	}
	dir, base := path.Split(rest)
	dir = strings.TrimSuffix(dir, "/")
	if dir == "" || strings.Contains(dir, "/") {
		return overlay.Variant{}, tile.Coords{}, "", false
	}
	variant, err := overlay.ParseVariant(dir)
	if err != nil {
		return overlay.Variant{}, tile.Coords{}, "", false
	}

	name, ok := strings.CutSuffix(base, ".png")
	if !ok {
		return overlay.Variant{}, tile.Coords{}, "", false
	}
	suffix := ""
	if n, ok := strings.CutSuffix(name, "@2x"); ok {
		suffix = "@2x"
		name = n
	}

	coords, err := tile.ParseCoords(name)
	if err != nil || !coords.Valid() {
		return overlay.Variant{}, tile.Coords{}, "", false
	}
	return variant, coords, suffix, true
}

func tileSizeForSuffix(base int, suffix string) int {
	if suffix == "@2x" {
		return base * 2
	}
	return base
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Debug("failed to encode response", "error", err)
	}
}
