// Package overlay renders the district layer as transparent XYZ tiles that
// can be stacked on any base map.
package overlay

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"strings"

	"github.com/MeKo-Tech/bydelskart/internal/district"
	"github.com/MeKo-Tech/bydelskart/internal/mapview"
	"github.com/MeKo-Tech/bydelskart/internal/raster"
	"github.com/MeKo-Tech/bydelskart/internal/tile"
)

// DefaultTileSize matches the base layers' 512 px tiles.
const DefaultTileSize = 512

// ErrUnknownVariant is returned for malformed variants and unknown
// selected districts.
var ErrUnknownVariant = errors.New("unknown overlay variant")

// Variant is one styling of the overlay: the theme and an optional selected
// district.
type Variant struct {
	Dark     bool
	Selected string // district ID, empty for no selection
}

// String renders the variant as used in tile paths: "light", "dark",
// "light.frogner".
func (v Variant) String() string {
	s := "light"
	if v.Dark {
		s = "dark"
	}
	if v.Selected != "" {
		s += "." + v.Selected
	}
	return s
}

// ParseVariant is the inverse of Variant.String. It does not check that the
// selected district exists.
func ParseVariant(s string) (Variant, error) {
	theme, sel, _ := strings.Cut(s, ".")
	var v Variant
	switch theme {
	case "light":
	case "dark":
		v.Dark = true
	default:
		return Variant{}, fmt.Errorf("%w: %q", ErrUnknownVariant, s)
	}
	if strings.Contains(s, ".") && sel == "" {
		return Variant{}, fmt.Errorf("%w: %q", ErrUnknownVariant, s)
	}
	v.Selected = sel
	return v, nil
}

// Options configures a Renderer.
type Options struct {
	Districts   *district.Collection
	Loader      mapview.Loader
	TileSize    int
	Compression png.CompressionLevel
	Logger      *slog.Logger
}

// Renderer paints overlay tiles.
type Renderer struct {
	districts *district.Collection
	loader    mapview.Loader
	size      int
	level     png.CompressionLevel
	logger    *slog.Logger
}

// NewRenderer creates an overlay renderer.
func NewRenderer(opts Options) *Renderer {
	if opts.TileSize <= 0 {
		opts.TileSize = DefaultTileSize
	}
	return &Renderer{
		districts: opts.Districts,
		loader:    opts.Loader,
		size:      opts.TileSize,
		level:     opts.Compression,
		logger:    opts.Logger,
	}
}

func (r *Renderer) log() *slog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return slog.Default()
}

// TileSize returns the tile edge length in pixels.
func (r *Renderer) TileSize() int {
	return r.size
}

// Variants lists every variant: both themes without selection, then both
// themes with each non-aggregate district selected when withSelections is
// set.
func (r *Renderer) Variants(withSelections bool) []Variant {
	out := []Variant{{}, {Dark: true}}
	if !withSelections {
		return out
	}
	for _, d := range r.districts.All() {
		if d.Aggregate() {
			continue
		}
		out = append(out, Variant{Selected: d.ID}, Variant{Dark: true, Selected: d.ID})
	}
	return out
}

// Render paints one tile of a variant.
func (r *Renderer) Render(ctx context.Context, v Variant, c tile.Coords) (*image.NRGBA, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid tile %s", c)
	}

	opts := mapview.Options{
		Districts: r.districts,
		Dark:      v.Dark,
		Width:     r.size,
		Height:    r.size,
		Logger:    r.logger,
	}
	if v.Selected != "" {
		d, ok := r.districts.ByID(v.Selected)
		if !ok {
			return nil, fmt.Errorf("%w: no district %q", ErrUnknownVariant, v.Selected)
		}
		opts.Selected = &d
	}

	m := mapview.New(opts)
	defer m.Dispose()
	if err := m.Load(ctx, r.loader); err != nil {
		return nil, fmt.Errorf("failed to load geography: %w", err)
	}

	img := raster.NewPainter(raster.TileProjection(c, r.size)).Paint(m.Scene())
	r.log().Debug("rendered overlay tile", "variant", v.String(), "tile", c.String())
	return img, nil
}

// RenderPNG paints one tile and encodes it.
func (r *Renderer) RenderPNG(ctx context.Context, v Variant, c tile.Coords) ([]byte, error) {
	img, err := r.Render(ctx, v, c)
	if err != nil {
		return nil, err
	}
	return raster.PNGBytes(img, r.level)
}
