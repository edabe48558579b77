package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/MeKo-Tech/bydelskart/internal/mbtiles"
	"github.com/MeKo-Tech/bydelskart/internal/overlay"
	"github.com/MeKo-Tech/bydelskart/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve geography, district data, overlay tiles and map sessions",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Listen address (host:port)")
	serveCmd.Flags().String("geo-base", "/data/", "Base path the geography resources are served under")
	serveCmd.Flags().String("tiles-db", "", "MBTiles database used as overlay tile cache (created if missing)")
	serveCmd.Flags().Int("max-concurrent-renders", runtime.NumCPU(), "Max concurrent overlay tile renders (default: number of CPUs)")
	serveCmd.Flags().Duration("render-timeout", 30*time.Second, "Timeout per tile render")
	serveCmd.Flags().String("cache-control", "public, max-age=3600", "Cache-Control header for served tiles")
	serveCmd.Flags().Int("tile-size", overlay.DefaultTileSize, "Base tile size in pixels (@2x requests render double)")
	serveCmd.Flags().String("png-compression", "default", "PNG compression (default, speed, best, none)")

	mustBind := func(key string, name string) {
		if err := viper.BindPFlag(key, serveCmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}

	mustBind("serve.addr", "addr")
	mustBind("serve.geo_base", "geo-base")
	mustBind("serve.tiles_db", "tiles-db")
	mustBind("serve.max_concurrent_renders", "max-concurrent-renders")
	mustBind("serve.render_timeout", "render-timeout")
	mustBind("serve.cache_control", "cache-control")
	mustBind("serve.tile_size", "tile-size")
	mustBind("serve.png_compression", "png-compression")
}

func runServe(cmd *cobra.Command, args []string) error {
	in, err := loadMapInputs()
	if err != nil {
		return err
	}

	addr := viper.GetString("serve.addr")
	tilesDB := viper.GetString("serve.tiles_db")
	maxConc := viper.GetInt("serve.max_concurrent_renders")

	var cache server.TileCache
	if tilesDB != "" {
		ts, err := mbtiles.Create(tilesDB, overlayMetadata(osloBBox, 10, 16))
		if err != nil {
			return fmt.Errorf("failed to open tile cache: %w", err)
		}
		// Served tiles become visible to readers once flushed.
		ts.SetBatchSize(1)
		defer func() {
			if err := ts.Close(); err != nil {
				logger.Error("failed to close tile cache", "error", err)
			}
		}()
		cache = ts
	}

	srv, err := server.New(server.Config{
		Districts:   in.districts,
		Catalog:     in.catalog,
		Geography:   in.geo,
		GeoBasePath: viper.GetString("serve.geo_base"),
		Loader:      in.store,
		Tiles: server.OverlayTilesConfig{
			Cache:         cache,
			CacheControl:  viper.GetString("serve.cache_control"),
			BaseTileSize:  viper.GetInt("serve.tile_size"),
			MaxConcurrent: maxConc,
			RenderTimeout: viper.GetDuration("serve.render_timeout"),
			Compression:   viper.GetString("serve.png_compression"),
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	logger.Info("map server listening",
		"addr", addr,
		"geo_base", viper.GetString("serve.geo_base"),
		"tiles_db", tilesDB,
		"max_concurrent_renders", maxConc,
	)

	// Warm the shared geography so the first client does not pay for it.
	go func() {
		if _, err := in.store.Load(ctx); err == nil {
			logger.Info("geography ready")
		}
	}()

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("Received interrupt signal, shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}
