package raster

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // Mapbox styles may serve JPEG tiles
	"io"
	"math"
	"net/http"
	neturl "net/url"

	"github.com/MeKo-Tech/bydelskart/internal/mapview"
	"github.com/MeKo-Tech/bydelskart/internal/tile"
	"github.com/paulmach/orb"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"
)

// maxMercatorLat is the latitude of the top edge of the Web Mercator world.
const maxMercatorLat = 85.0511287798066

// BaseMap stitches raster tiles of one layer into a viewport-sized image.
type BaseMap struct {
	Catalog *tile.Catalog
	Client  *http.Client
	// Parallel bounds concurrent tile downloads. Zero means 4.
	Parallel int
}

// Fetch downloads every tile of layer that intersects the projection's
// viewport and draws them scaled to the projection's fractional zoom. Any
// failed tile fails the whole image.
func (b *BaseMap) Fetch(ctx context.Context, layer tile.Layer, proj mapview.Projection) (*image.NRGBA, error) {
	client := b.Client
	if client == nil {
		client = http.DefaultClient
	}
	tileSize := layer.TileSize
	if tileSize <= 0 {
		tileSize = 256
	}

	// The template zoom is chosen so that a tile is drawn at 1x to 2x.
	z := int(math.Floor(proj.View.Zoom)) + layer.ZoomOffset
	z = max(0, min(z, layer.MaxZoom))
	drawn := 256 * math.Pow(2, proj.View.Zoom-float64(z))
	n := 1 << z

	ox, oy := proj.ToPixel(orb.Point{-180, maxMercatorLat})
	x0 := int(math.Floor(-ox / drawn))
	x1 := int(math.Floor((float64(proj.Width) - ox) / drawn))
	y0 := max(0, int(math.Floor(-oy/drawn)))
	y1 := min(n-1, int(math.Floor((float64(proj.Height)-oy)/drawn)))

	dst := image.NewNRGBA(image.Rect(0, 0, proj.Width, proj.Height))
	var order [][2]int
	for x := x0; x <= x1; x++ {
		for y := y0; y <= y1; y++ {
			order = append(order, [2]int{x, y})
		}
	}
	imgs := make([]image.Image, len(order))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, b.parallel()))
	for i, xy := range order {
		// columns wrap around the antimeridian
		tx := ((xy[0] % n) + n) % n
		url := b.Catalog.URL(layer, z, tx, xy[1])
		g.Go(func() error {
			img, err := fetchTile(gctx, client, url)
			if err != nil {
				return err
			}
			imgs[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i, xy := range order {
		left := ox + float64(xy[0])*drawn
		top := oy + float64(xy[1])*drawn
		r := image.Rect(int(math.Floor(left)), int(math.Floor(top)),
			int(math.Ceil(left+drawn)), int(math.Ceil(top+drawn)))
		src := imgs[i]
		draw.BiLinear.Scale(dst, r, src, src.Bounds(), draw.Src, nil)
	}
	return dst, nil
}

func (b *BaseMap) parallel() int {
	if b.Parallel > 0 {
		return b.Parallel
	}
	return 4
}

func fetchTile(ctx context.Context, client *http.Client, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build tile request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		// the URL carries the access token, keep it out of errors
		var uerr *neturl.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, fmt.Errorf("failed to fetch base tile: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch base tile: status %s", resp.Status)
	}
	img, _, err := image.Decode(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to decode base tile: %w", err)
	}
	return img, nil
}
