package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MeKo-Tech/bydelskart/assets"
	"github.com/MeKo-Tech/bydelskart/internal/geography"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeographySourceFromURL(t *testing.T) {
	srv := httptest.NewServer(http.StripPrefix("/kart/data", http.FileServerFS(assets.Geography())))
	defer srv.Close()

	src, err := geographySource(srv.URL+"/kart/data", nil)
	require.NoError(t, err)
	assert.IsType(t, &geography.HTTPSource{}, src)

	data, err := geography.NewStore(src, nil).Load(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, data.Polygons)
	assert.NotEmpty(t, data.Labels)
}

func TestGeographySourceDefaultsToFS(t *testing.T) {
	src, err := geographySource("", assets.Geography())
	require.NoError(t, err)
	assert.IsType(t, geography.FSSource{}, src)

	_, err = geographySource("http://[::1", nil)
	assert.ErrorContains(t, err, "invalid geo-url")
}
