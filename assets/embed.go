// Package assets bundles the sample Oslo district geography.
package assets

import (
	"embed"
	"io/fs"
)

// NOTE: go:embed patterns must not use ".." and must be relative to this
// file, so the geography lives under assets/geo.
//
//go:embed geo/*.geojson
var geoFS embed.FS

// Geography returns the bundled geography resources at the root of the
// returned file system (oslo_bydeler.geojson, oslo_label_points.geojson).
func Geography() fs.FS {
	sub, err := fs.Sub(geoFS, "geo")
	if err != nil {
		panic(err)
	}
	return sub
}
