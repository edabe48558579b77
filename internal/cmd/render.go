package cmd

import (
	"context"
	"fmt"
	"image"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/bydelskart/internal/district"
	"github.com/MeKo-Tech/bydelskart/internal/mapview"
	"github.com/MeKo-Tech/bydelskart/internal/raster"
	"github.com/MeKo-Tech/bydelskart/internal/tile"
	"github.com/paulmach/orb"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a PNG snapshot of the map viewport",
	Long: `Render draws the district polygons and labels for one viewport the way the
interactive map shows them. Selection, theme, tile layer and zoom are applied
as map commands before drawing. With --base the snapshot is composited over a
base map image of the same size; with --fetch-base the tiles of the map's
installed base layer are downloaded and stitched underneath instead.`,
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringP("output", "o", "map.png", "Output PNG file")
	renderCmd.Flags().Int("width", 1024, "Viewport width in pixels")
	renderCmd.Flags().Int("height", mapview.DefaultHeight, "Viewport height in pixels")
	renderCmd.Flags().Bool("dark", false, "Use the dark theme")
	renderCmd.Flags().String("select", "", "District id to select")
	renderCmd.Flags().String("layer", "", "Tile layer to pick (blue, snapmap, dark)")
	renderCmd.Flags().Int("zoom-steps", 0, "Zoom in (positive) or out (negative) this many steps")
	renderCmd.Flags().String("center", "", "View centre as lon,lat (default: the width's preset)")
	renderCmd.Flags().String("base", "", "Base map PNG to composite under the districts")
	renderCmd.Flags().Bool("fetch-base", false, "Download the active base layer's tiles and composite the districts over them")
	renderCmd.Flags().String("png-compression", "default", "PNG compression (default, speed, best, none)")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"render.output", "output"},
		{"render.width", "width"},
		{"render.height", "height"},
		{"render.dark", "dark"},
		{"render.select", "select"},
		{"render.layer", "layer"},
		{"render.zoom_steps", "zoom-steps"},
		{"render.center", "center"},
		{"render.base", "base"},
		{"render.fetch_base", "fetch-base"},
		{"render.png_compression", "png-compression"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, renderCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

// renderSettings are the map commands replayed before a snapshot.
type renderSettings struct {
	Width, Height int
	Dark          bool
	Select        string
	Layer         string
	ZoomSteps     int
	Center        *orb.Point
	// BaseMap, when set, draws the map's installed base layer under the
	// districts.
	BaseMap *raster.BaseMap
}

func runRender(cmd *cobra.Command, args []string) error {
	in, err := loadMapInputs()
	if err != nil {
		return err
	}

	settings := renderSettings{
		Width:     viper.GetInt("render.width"),
		Height:    viper.GetInt("render.height"),
		Dark:      viper.GetBool("render.dark"),
		Select:    viper.GetString("render.select"),
		Layer:     viper.GetString("render.layer"),
		ZoomSteps: viper.GetInt("render.zoom_steps"),
	}
	if s := viper.GetString("render.center"); s != "" {
		pt, err := parseCenter(s)
		if err != nil {
			return fmt.Errorf("invalid center: %w", err)
		}
		settings.Center = &pt
	}
	level, err := raster.ParseCompression(viper.GetString("render.png_compression"))
	if err != nil {
		return err
	}

	var base image.Image
	if path := viper.GetString("render.base"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open base image: %w", err)
		}
		base, err = raster.DecodePNG(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("failed to decode base image %s: %w", path, err)
		}
		settings.Width, settings.Height = base.Bounds().Dx(), base.Bounds().Dy()
	} else if viper.GetBool("render.fetch_base") {
		settings.BaseMap = &raster.BaseMap{Catalog: in.catalog, Client: &http.Client{Timeout: 30 * time.Second}}
	}

	img, err := renderSnapshot(cmd.Context(), in, settings)
	if err != nil {
		return err
	}
	if base != nil {
		if img, err = raster.CompositeOver(base, img); err != nil {
			return err
		}
	}

	output := viper.GetString("render.output")
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", output, err)
	}
	if err := raster.EncodePNG(f, img, level); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", output, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}

	logger.Info("Map rendered", "output", output, "width", settings.Width, "height", settings.Height,
		"dark", settings.Dark, "selected", settings.Select)
	return nil
}

// renderSnapshot builds a map, replays the settings as commands and paints
// the resulting scene.
func renderSnapshot(ctx context.Context, in mapInputs, s renderSettings) (*image.NRGBA, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var selected *district.District
	if s.Select != "" {
		d, ok := in.districts.ByID(s.Select)
		if !ok {
			return nil, fmt.Errorf("unknown district %q", s.Select)
		}
		selected = &d
	}

	m := mapview.New(mapview.Options{
		Districts: in.districts,
		Catalog:   in.catalog,
		Dark:      s.Dark,
		Width:     s.Width,
		Height:    s.Height,
		Selected:  selected,
		Logger:    logger,
	})
	defer m.Dispose()

	if err := m.Load(ctx, in.store); err != nil {
		return nil, fmt.Errorf("failed to load geography: %w", err)
	}

	if s.Layer != "" {
		key, ok := tile.ParseLayerKey(s.Layer)
		if !ok || !m.SetTileLayer(key) {
			return nil, fmt.Errorf("unknown tile layer %q", s.Layer)
		}
	}
	if s.Center != nil {
		m.SetView(mapview.ViewState{Center: *s.Center, Zoom: m.View().Zoom})
	}
	for i := 0; i < s.ZoomSteps; i++ {
		m.ZoomIn()
	}
	for i := 0; i > s.ZoomSteps; i-- {
		m.ZoomOut()
	}

	proj := m.Projection()
	img := raster.NewPainter(proj).Paint(m.Scene())
	if s.BaseMap == nil {
		return img, nil
	}
	_, _, layer := m.TileState()
	base, err := s.BaseMap.Fetch(ctx, layer, proj)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch base layer %s: %w", layer.Name, err)
	}
	return raster.CompositeOver(base, img)
}

// parseCenter parses "lon,lat".
func parseCenter(s string) (orb.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return orb.Point{}, fmt.Errorf("expected lon,lat, got %q", s)
	}
	var pt orb.Point
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return orb.Point{}, fmt.Errorf("invalid number at position %d: %w", i, err)
		}
		pt[i] = v
	}
	if pt[0] < -180 || pt[0] > 180 || pt[1] < -85 || pt[1] > 85 {
		return orb.Point{}, fmt.Errorf("centre %v out of range", pt)
	}
	return pt, nil
}
