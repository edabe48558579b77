package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	"github.com/MeKo-Tech/bydelskart/internal/district"
	"github.com/MeKo-Tech/bydelskart/internal/mbtiles"
	"github.com/MeKo-Tech/bydelskart/internal/overlay"
	"github.com/MeKo-Tech/bydelskart/internal/raster"
	"github.com/MeKo-Tech/bydelskart/internal/tile"
	"github.com/MeKo-Tech/bydelskart/internal/worker"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// osloBBox covers the municipality including Marka.
var osloBBox = [4]float64{10.48, 59.80, 10.96, 60.14}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Pre-render choropleth overlay tiles into an MBTiles database",
	Long: `Export renders the district overlay for every tile of a bounding box and
zoom range. Each theme is rendered once without a selection and, with
--selections, once per selected district. Tiles are keyed by variant
("light", "dark", "light.frogner", ...).`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("bbox", "", "Bounding box: minLon,minLat,maxLon,maxLat (default: Oslo)")
	exportCmd.Flags().Int("zoom-min", 10, "Minimum zoom level")
	exportCmd.Flags().Int("zoom-max", 13, "Maximum zoom level")
	exportCmd.Flags().String("variants", "", "Comma-separated variants to render (default: light,dark)")
	exportCmd.Flags().Bool("selections", false, "Also render every selected-district variant")
	exportCmd.Flags().String("output-file", "overlay.mbtiles", "Output MBTiles file")
	exportCmd.Flags().Int("tile-size", overlay.DefaultTileSize, "Tile size in pixels")
	exportCmd.Flags().String("png-compression", "default", "PNG compression (default, speed, best, none)")
	exportCmd.Flags().IntP("workers", "w", 0, "Number of parallel workers (default: number of CPUs)")
	exportCmd.Flags().Bool("progress", true, "Show progress bar")
	exportCmd.Flags().Bool("allow-failures", false, "Keep the tileset even if some tiles fail")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"export.bbox", "bbox"},
		{"export.zoom_min", "zoom-min"},
		{"export.zoom_max", "zoom-max"},
		{"export.variants", "variants"},
		{"export.selections", "selections"},
		{"export.output_file", "output-file"},
		{"export.tile_size", "tile-size"},
		{"export.png_compression", "png-compression"},
		{"export.workers", "workers"},
		{"export.progress", "progress"},
		{"export.allow_failures", "allow-failures"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, exportCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runExport(cmd *cobra.Command, args []string) error {
	in, err := loadMapInputs()
	if err != nil {
		return err
	}

	bbox := osloBBox
	if s := viper.GetString("export.bbox"); s != "" {
		if bbox, err = parseBBox(s); err != nil {
			return fmt.Errorf("invalid bbox: %w", err)
		}
	}
	zoomMin := viper.GetInt("export.zoom_min")
	zoomMax := viper.GetInt("export.zoom_max")
	if zoomMin < 0 || zoomMax > 22 {
		return fmt.Errorf("zoom range must lie within 0-22")
	}
	if zoomMin > zoomMax {
		return fmt.Errorf("--zoom-min (%d) must be <= --zoom-max (%d)", zoomMin, zoomMax)
	}
	level, err := raster.ParseCompression(viper.GetString("export.png_compression"))
	if err != nil {
		return err
	}
	workers := viper.GetInt("export.workers")
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	renderer := overlay.NewRenderer(overlay.Options{
		Districts:   in.districts,
		Loader:      in.store,
		TileSize:    viper.GetInt("export.tile_size"),
		Compression: level,
		Logger:      logger.With("component", "overlay"),
	})

	variants := renderer.Variants(viper.GetBool("export.selections"))
	if s := viper.GetString("export.variants"); s != "" {
		if variants, err = parseVariants(s, in.districts); err != nil {
			return err
		}
	}

	coords := tile.TilesInBBox(bbox, zoomMin, zoomMax)
	tasks := worker.Tasks(variants, coords)
	outputFile := viper.GetString("export.output_file")

	logger.Info("Starting overlay export",
		"bbox", fmt.Sprintf("%.4f,%.4f,%.4f,%.4f", bbox[0], bbox[1], bbox[2], bbox[3]),
		"zoom_range", fmt.Sprintf("%d-%d", zoomMin, zoomMax),
		"tiles", len(coords),
		"variants", len(variants),
		"tasks", len(tasks),
		"workers", workers,
		"output_file", outputFile,
	)

	ts, err := mbtiles.Create(outputFile, overlayMetadata(bbox, zoomMin, zoomMax))
	if err != nil {
		return fmt.Errorf("failed to create MBTiles tileset: %w", err)
	}
	defer ts.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	progress := worker.NewProgress(os.Stderr, len(tasks), viper.GetBool("export.progress"))
	pool := worker.New(worker.Config{
		Workers:    workers,
		Renderer:   renderer,
		Sink:       ts,
		OnProgress: progress.Callback(),
	})

	results := pool.Run(ctx, tasks)
	progress.Done()

	failed := worker.Failed(results)
	for _, r := range failed {
		logger.Error("Tile render failed", "variant", r.Task.Variant.String(), "coords", r.Task.Coords.String(), "error", r.Err)
	}
	logger.Info(progress.Summary())

	if err := ts.Flush(); err != nil {
		return fmt.Errorf("failed to flush MBTiles: %w", err)
	}
	if ctx.Err() != nil {
		return fmt.Errorf("export interrupted after %d of %d tiles", len(results), len(tasks))
	}
	if len(failed) > 0 {
		if !viper.GetBool("export.allow_failures") {
			return fmt.Errorf("%d tiles failed to render", len(failed))
		}
		logger.Warn("Some tiles failed to render, but continuing due to --allow-failures flag", "failed_count", len(failed))
	}

	logger.Info("MBTiles export complete", "output_file", outputFile)
	return nil
}

func overlayMetadata(bbox [4]float64, zoomMin, zoomMax int) mbtiles.Metadata {
	return mbtiles.Metadata{
		Name:    "Bydelskart",
		Format:  "png",
		MinZoom: zoomMin,
		MaxZoom: zoomMax,
		Bounds:  bbox,
		Center: [3]float64{
			(bbox[0] + bbox[2]) / 2,
			(bbox[1] + bbox[3]) / 2,
			float64((zoomMin + zoomMax) / 2),
		},
		Attribution:    "Bydelsgrenser: Oslo kommune",
		Description:    "Oslo district price development overlay",
		Type:           "overlay",
		Version:        "1.0",
		DefaultVariant: overlay.Variant{}.String(),
	}
}

// parseVariants parses "light,dark.frogner" and checks selected ids against
// the district table.
func parseVariants(s string, districts *district.Collection) ([]overlay.Variant, error) {
	var out []overlay.Variant
	seen := make(map[overlay.Variant]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := overlay.ParseVariant(part)
		if err != nil {
			return nil, err
		}
		if v.Selected != "" {
			if _, ok := districts.ByID(v.Selected); !ok {
				return nil, fmt.Errorf("%w: unknown district %q", overlay.ErrUnknownVariant, v.Selected)
			}
		}
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no variants in %q", s)
	}
	return out, nil
}

// parseBBox parses a bounding box string "minLon,minLat,maxLon,maxLat" into [4]float64.
func parseBBox(s string) ([4]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return [4]float64{}, fmt.Errorf("expected 4 comma-separated values, got %d", len(parts))
	}

	var bbox [4]float64
	for i, part := range parts {
		val, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return [4]float64{}, fmt.Errorf("invalid number at position %d: %w", i, err)
		}
		bbox[i] = val
	}

	if bbox[0] >= bbox[2] {
		return [4]float64{}, fmt.Errorf("minLon (%.4f) must be < maxLon (%.4f)", bbox[0], bbox[2])
	}
	if bbox[1] >= bbox[3] {
		return [4]float64{}, fmt.Errorf("minLat (%.4f) must be < maxLat (%.4f)", bbox[1], bbox[3])
	}

	return bbox, nil
}
