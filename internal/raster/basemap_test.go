package raster

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/MeKo-Tech/bydelskart/internal/tile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidTilePNG(t *testing.T, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 256, 256))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestBaseMapFetchCoversViewport(t *testing.T) {
	red := color.NRGBA{R: 255, A: 255}
	body := solidTilePNG(t, red)

	var mu sync.Mutex
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path+"?"+r.URL.RawQuery)
		mu.Unlock()
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	layer := tile.Layer{Template: srv.URL + "/{z}/{x}/{y}.png?t={token}", TileSize: 256, MaxZoom: 19}
	bm := &BaseMap{Catalog: tile.NewCatalog("secret"), Client: srv.Client()}

	img, err := bm.Fetch(context.Background(), layer, testProjection())
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 200, 200), img.Bounds())

	for _, p := range []image.Point{{0, 0}, {199, 0}, {100, 100}, {0, 199}, {199, 199}} {
		assert.Equal(t, red, img.NRGBAAt(p.X, p.Y), "pixel %v", p)
	}

	require.NotEmpty(t, paths)
	assert.LessOrEqual(t, len(paths), 4, "a 200px viewport touches at most 2x2 tiles")
	for _, p := range paths {
		assert.True(t, strings.HasPrefix(p, "/12/"), p)
		assert.True(t, strings.HasSuffix(p, "?t=secret"), p)
	}
}

func TestBaseMapFetchFailsOnBadTile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	layer := tile.Layer{Template: srv.URL + "/{z}/{x}/{y}?access_token={token}", TileSize: 256, MaxZoom: 19}
	bm := &BaseMap{Catalog: tile.NewCatalog("secret"), Client: srv.Client()}

	_, err := bm.Fetch(context.Background(), layer, testProjection())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.NotContains(t, err.Error(), "secret")
}
