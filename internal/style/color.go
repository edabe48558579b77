// Package style computes the visual style of district polygons and labels
// from theme, selection, hover and tile-layer state. Everything here is a
// pure function of its inputs.
package style

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

// Color is an sRGB colour with a fractional alpha in [0,1], kept as a float so
// CSS values like rgba(59,130,246,0.05) round-trip exactly.
type Color struct {
	R, G, B uint8
	A       float64
}

// Transparent is the fully transparent colour.
var Transparent = Color{}

// RGB returns an opaque colour.
func RGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b, A: 1}
}

// WithAlpha returns c with its alpha multiplied by a.
func (c Color) WithAlpha(a float64) Color {
	c.A = clamp01(c.A * a)
	return c
}

// NRGBA converts to an image/color value for rasterization.
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(math.Round(clamp01(c.A) * 255))}
}

// IsTransparent reports whether nothing would be painted with c.
func (c Color) IsTransparent() bool {
	return c.A <= 0
}

// String renders the colour as CSS: #RRGGBB when opaque, rgba(...) otherwise.
func (c Color) String() string {
	switch {
	case c == Transparent:
		return "transparent"
	case c.A >= 1:
		return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
	default:
		return fmt.Sprintf("rgba(%d,%d,%d,%s)", c.R, c.G, c.B, strconv.FormatFloat(c.A, 'f', -1, 64))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Color) UnmarshalText(b []byte) error {
	parsed, err := ParseColor(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseColor accepts #RGB, #RRGGBB, rgb(r,g,b), rgba(r,g,b,a) and "transparent".
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch {
	case s == "transparent":
		return Transparent, nil
	case strings.HasPrefix(s, "#"):
		return parseHex(s[1:])
	case strings.HasPrefix(s, "rgba(") && strings.HasSuffix(s, ")"):
		return parseFunc(s[len("rgba("):len(s)-1], 4)
	case strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")"):
		return parseFunc(s[len("rgb("):len(s)-1], 3)
	}
	return Color{}, fmt.Errorf("unsupported colour %q", s)
}

// MustParse is ParseColor for package-level tables.
func MustParse(s string) Color {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

func parseHex(h string) (Color, error) {
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return Color{}, fmt.Errorf("invalid hex colour #%s", h)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid hex colour #%s: %w", h, err)
	}
	return RGB(uint8(v>>16), uint8(v>>8), uint8(v)), nil
}

func parseFunc(args string, n int) (Color, error) {
	parts := strings.Split(args, ",")
	if len(parts) != n {
		return Color{}, fmt.Errorf("expected %d components, got %d", n, len(parts))
	}
	var rgb [3]uint8
	for i := 0; i < 3; i++ {
		v, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil || v < 0 || v > 255 {
			return Color{}, fmt.Errorf("invalid colour component %q", parts[i])
		}
		rgb[i] = uint8(v)
	}
	c := RGB(rgb[0], rgb[1], rgb[2])
	if n == 4 {
		a, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil || a < 0 || a > 1 {
			return Color{}, fmt.Errorf("invalid alpha %q", parts[3])
		}
		c.A = a
	}
	return c, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
