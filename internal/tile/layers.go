package tile

import (
	"strconv"
	"strings"
)

// LayerKey names a base-map style the user can pick.
type LayerKey string

const (
	// LayerBlue is the default coloured style.
	LayerBlue LayerKey = "blue"
	// LayerSnapmap is the overlay-only style: district polygons are hidden so
	// the raster imagery shows through.
	LayerSnapmap LayerKey = "snapmap"
	// LayerDark is the stock dark style.
	LayerDark LayerKey = "dark"
)

// DefaultLayer is the layer installed before the user picks one.
const DefaultLayer = LayerBlue

// Keys lists the selectable layers in menu order.
var Keys = []LayerKey{LayerBlue, LayerSnapmap, LayerDark}

// ParseLayerKey resolves a key from user input.
func ParseLayerKey(s string) (LayerKey, bool) {
	k := LayerKey(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Keys {
		if k == known {
			return k, true
		}
	}
	return "", false
}

// Overlay reports whether k hides the polygon layer's fill and stroke.
func (k LayerKey) Overlay() bool {
	return k == LayerSnapmap
}

// Layer is one raster tile source.
type Layer struct {
	Key        LayerKey `json:"key"`
	Name       string   `json:"name"`
	Template   string   `json:"template"` // {z}/{x}/{y} and {token} placeholders
	MaxZoom    int      `json:"maxZoom"`
	TileSize   int      `json:"tileSize"`
	ZoomOffset int      `json:"zoomOffset"`
	// Dark marks the dark-theme variant of the default layer.
	Dark bool `json:"dark,omitempty"`
}

const mapboxStyles = "https://api.mapbox.com/styles/v1/"

func mapboxLayer(key LayerKey, name, style string) Layer {
	return Layer{
		Key:        key,
		Name:       name,
		Template:   mapboxStyles + style + "/tiles/{z}/{x}/{y}@2x?access_token={token}",
		MaxZoom:    19,
		TileSize:   512,
		ZoomOffset: -1,
	}
}

var (
	builtinLayers = map[LayerKey]Layer{
		LayerBlue:    mapboxLayer(LayerBlue, "Blue", "drskjelde/cmlqiffkq000301qpb4r778e7"),
		LayerSnapmap: mapboxLayer(LayerSnapmap, "Snapmap", "drskjelde/cmkm3e0hv00it01sd4ddd4syy"),
		LayerDark:    mapboxLayer(LayerDark, "Dark", "mapbox/dark-v11"),
	}
	defaultDarkLayer = func() Layer {
		l := mapboxLayer(LayerBlue, "Blue (dark)", "drskjelde/cmlqhxlot000401sdfh3a2ktd")
		l.Dark = true
		return l
	}()
)

// Catalog resolves layer keys to concrete tile sources bound to an access
// token.
type Catalog struct {
	token string
}

// NewCatalog returns a catalog that fills {token} with token.
func NewCatalog(token string) *Catalog {
	return &Catalog{token: token}
}

// Layer returns the source for key.
func (c *Catalog) Layer(key LayerKey) (Layer, bool) {
	l, ok := builtinLayers[key]
	return l, ok
}

// Default returns the default layer for the theme: the blue style in light
// mode and its dark variant in dark mode.
func (c *Catalog) Default(dark bool) Layer {
	if dark {
		return defaultDarkLayer
	}
	return builtinLayers[DefaultLayer]
}

// All returns every selectable layer in menu order.
func (c *Catalog) All() []Layer {
	out := make([]Layer, 0, len(Keys))
	for _, k := range Keys {
		out = append(out, builtinLayers[k])
	}
	return out
}

// URL expands the layer template for one tile.
func (c *Catalog) URL(l Layer, z, x, y int) string {
	r := strings.NewReplacer(
		"{z}", strconv.Itoa(z),
		"{x}", strconv.Itoa(x),
		"{y}", strconv.Itoa(y),
		"{token}", c.token,
	)
	return r.Replace(l.Template)
}

// Template returns the layer template with the token filled in and the tile
// placeholders left for the client.
func (c *Catalog) Template(l Layer) string {
	return strings.ReplaceAll(l.Template, "{token}", c.token)
}
