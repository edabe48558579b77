// Package server is the HTTP backend of the map host page.
package server

import (
	"errors"
	"image/png"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/MeKo-Tech/bydelskart/internal/district"
	"github.com/MeKo-Tech/bydelskart/internal/geography"
	"github.com/MeKo-Tech/bydelskart/internal/mapview"
	"github.com/MeKo-Tech/bydelskart/internal/raster"
	"github.com/MeKo-Tech/bydelskart/internal/session"
	"github.com/MeKo-Tech/bydelskart/internal/tile"
)

// Config wires the server's collaborators.
type Config struct {
	Districts *district.Collection
	Catalog   *tile.Catalog
	// Geography holds the two geography resources, served below GeoBasePath.
	Geography   fs.FS
	GeoBasePath string
	// Loader supplies parsed geography to map sessions and tile rendering.
	Loader mapview.Loader
	Tiles  OverlayTilesConfig
	Logger *slog.Logger
}

// Server routes the host page API.
type Server struct {
	cfg   Config
	tiles *OverlayTiles
	mux   *http.ServeMux
}

// New builds the server and its routes.
func New(cfg Config) (*Server, error) {
	if cfg.Districts == nil || cfg.Catalog == nil || cfg.Geography == nil || cfg.Loader == nil {
		return nil, errors.New("server needs districts, catalog, geography and loader")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	cfg.GeoBasePath = normalizeBase(cfg.GeoBasePath)

	tc := cfg.Tiles
	tc.Districts = cfg.Districts
	tc.Loader = cfg.Loader
	tiles, err := NewOverlayTiles(tc, cfg.Logger.With("component", "tiles"))
	if err != nil {
		return nil, err
	}

	s := &Server{cfg: cfg, tiles: tiles, mux: http.NewServeMux()}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	base := s.cfg.GeoBasePath
	s.mux.Handle("GET "+base+geography.PolygonsResource, withCORS(s.geographyResource(geography.PolygonsResource)))
	s.mux.Handle("GET "+base+geography.LabelsResource, withCORS(s.geographyResource(geography.LabelsResource)))

	s.mux.HandleFunc("GET /api/districts", s.handleDistricts)
	s.mux.HandleFunc("GET /api/districts/{id}", s.handleDistrict)
	s.mux.HandleFunc("POST /api/estimate", s.handleEstimate)
	s.mux.HandleFunc("GET /api/layers", s.handleLayers)
	s.mux.HandleFunc("GET /api/check", s.handleCheck)
	s.mux.Handle("GET /api/tiles/status", s.tiles.StatusHandler())

	s.mux.Handle("/tiles/", withCORS(s.tiles.Handler()))
	s.mux.Handle("GET /ws", session.Handler(session.Config{
		Districts: s.cfg.Districts,
		Catalog:   s.cfg.Catalog,
		Loader:    s.cfg.Loader,
		Logger:    s.cfg.Logger.With("component", "session"),
	}))
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Tiles exposes the overlay tile handler for status reporting.
func (s *Server) Tiles() *OverlayTiles {
	return s.tiles
}

func (s *Server) geographyResource(name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := fs.ReadFile(s.cfg.Geography, name)
		if err != nil {
			s.cfg.Logger.Error("failed to read geography resource", "name", name, "error", err)
			http.Error(w, "geography unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/geo+json")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		_, _ = w.Write(data)
	})
}

func normalizeBase(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}

func rasterCompression(s string) (png.CompressionLevel, error) {
	if s == "" {
		return png.DefaultCompression, nil
	}
	return raster.ParseCompression(s)
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
