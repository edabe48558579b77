// Package mbtiles stores rendered overlay tiles in an MBTiles database.
//
// A tileset holds several overlay variants. Tiles of every variant live in
// the variant_tiles table; the standard tiles view exposes the default
// variant, so MBTiles viewers see a regular single-layer tileset.
package mbtiles

import (
	"fmt"
	"strconv"
	"strings"
)

// Metadata contains MBTiles metadata fields.
type Metadata struct {
	Name        string // Human-readable tileset identifier
	Format      string // Tile data type (png, jpg, webp, pbf)
	Attribution string
	Description string
	Type        string // "baselayer" or "overlay"
	Version     string
	Bounds      [4]float64
	Center      [3]float64
	MinZoom     int
	MaxZoom     int
	// DefaultVariant is the variant exposed through the tiles view.
	DefaultVariant string
}

// ToMap converts Metadata to a map for database insertion.
func (m Metadata) ToMap() map[string]string {
	result := make(map[string]string)

	set := func(k, v string) {
		if v != "" {
			result[k] = v
		}
	}
	set("name", m.Name)
	set("format", m.Format)
	set("attribution", m.Attribution)
	set("description", m.Description)
	set("type", m.Type)
	set("version", m.Version)
	set("default_variant", m.DefaultVariant)

	if m.MinZoom > 0 {
		result["minzoom"] = strconv.Itoa(m.MinZoom)
	}
	if m.MaxZoom > 0 {
		result["maxzoom"] = strconv.Itoa(m.MaxZoom)
	}
	if m.Bounds != [4]float64{} {
		result["bounds"] = fmt.Sprintf("%.6f,%.6f,%.6f,%.6f",
			m.Bounds[0], m.Bounds[1], m.Bounds[2], m.Bounds[3])
	}
	if m.Center != [3]float64{} {
		result["center"] = fmt.Sprintf("%.6f,%.6f,%d",
			m.Center[0], m.Center[1], int(m.Center[2]))
	}

	return result
}

// metadataFromMap parses the metadata table. Malformed numbers are left at
// their zero value.
func metadataFromMap(kv map[string]string) Metadata {
	meta := Metadata{
		Name:           kv["name"],
		Format:         kv["format"],
		Attribution:    kv["attribution"],
		Description:    kv["description"],
		Type:           kv["type"],
		Version:        kv["version"],
		DefaultVariant: kv["default_variant"],
	}
	if i, err := strconv.Atoi(kv["minzoom"]); err == nil {
		meta.MinZoom = i
	}
	if i, err := strconv.Atoi(kv["maxzoom"]); err == nil {
		meta.MaxZoom = i
	}
	parseFloats(kv["bounds"], meta.Bounds[:])
	parseFloats(kv["center"], meta.Center[:])
	return meta
}

func parseFloats(s string, dst []float64) {
	parts := strings.Split(s, ",")
	if len(parts) != len(dst) {
		return
	}
	for i, part := range parts {
		if f, err := strconv.ParseFloat(strings.TrimSpace(part), 64); err == nil {
			dst[i] = f
		}
	}
}
