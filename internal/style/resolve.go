package style

import "fmt"

// Path is the computed style of one district polygon.
type Path struct {
	FillColor   Color   `json:"fillColor"`
	FillOpacity float64 `json:"fillOpacity"`
	Color       Color   `json:"color"` // stroke
	Weight      float64 `json:"weight"`
	Opacity     float64 `json:"opacity"` // stroke
}

// EffectiveFill is the fill colour with fill opacity folded into alpha.
func (p Path) EffectiveFill() Color {
	return p.FillColor.WithAlpha(p.FillOpacity)
}

// EffectiveStroke is the stroke colour with stroke opacity folded into alpha.
func (p Path) EffectiveStroke() Color {
	if p.Weight <= 0 {
		return Transparent
	}
	return p.Color.WithAlpha(p.Opacity)
}

// Invisible is the path style used while the overlay-only tile layer is
// active.
var Invisible = Path{
	FillColor: Transparent,
	Color:     Transparent,
}

// PolygonInput is everything a polygon's style depends on.
type PolygonInput struct {
	Dark        bool
	Overlay     bool // overlay-only tile layer active
	Resolved    bool // polygon name matched a district
	Selected    bool
	AnySelected bool
	PriceChange float64
}

// PolygonStyle resolves the baseline (non-hover) style of a polygon:
// overlay layer first, then selection, then the light choropleth, then the
// dark fixed fill.
func PolygonStyle(in PolygonInput) Path {
	if in.Overlay {
		return Invisible
	}

	ts := ThemeStyles(in.Dark)

	if in.Selected && in.Resolved {
		fillOpacity := 1.0
		if ts.UseChoropleth {
			fillOpacity = 0.4
		}
		return Path{
			FillColor:   ts.Fill.Selected,
			FillOpacity: fillOpacity,
			Color:       ts.Border.SelectedColor,
			Weight:      ts.Border.SelectedWeight,
			Opacity:     1,
		}
	}

	if ts.UseChoropleth && in.Resolved {
		p := Path{
			FillColor:   ChoroplethColor(in.PriceChange),
			FillOpacity: 0.4,
			Color:       ts.Border.Color,
			Weight:      ts.Border.Weight,
			Opacity:     ts.Border.Opacity,
		}
		if in.AnySelected {
			p.FillOpacity = ts.Dim.FillOpacity
			p.Opacity = ts.Dim.BorderOpacity
		}
		return p
	}

	p := Path{
		FillColor:   ts.Fill.Default,
		FillOpacity: 1,
		Color:       ts.Border.Color,
		Weight:      ts.Border.Weight,
		Opacity:     1,
	}
	if in.AnySelected {
		p.FillOpacity = ts.Dim.FillOpacity
		p.Opacity = ts.Dim.BorderOpacity
	}
	return p
}

// HoverStyle returns the hover style of a polygon. ok is false when hover
// must leave the polygon untouched: overlay layer active, polygon selected,
// or polygon not resolved to a district.
func HoverStyle(in PolygonInput) (p Path, ok bool) {
	if in.Overlay || in.Selected || !in.Resolved {
		return Path{}, false
	}
	ts := ThemeStyles(in.Dark)
	if ts.UseChoropleth {
		return Path{
			FillColor:   HoverColor(in.PriceChange),
			FillOpacity: 0.55,
			Color:       ts.Border.SelectedColor,
			Weight:      ts.Border.SelectedWeight,
			Opacity:     1,
		}, true
	}
	return Path{
		FillColor:   ts.Fill.Hover,
		FillOpacity: 1,
		Color:       ts.Border.SelectedColor,
		Weight:      ts.Border.SelectedWeight,
		Opacity:     1,
	}, true
}

// Label z-index bands; the selected label always stacks above the rest.
const (
	LabelZ         = 1000
	SelectedLabelZ = 2000
)

// Label is the computed style of a positioned district label.
type Label struct {
	Color         Color    `json:"color"`
	Shadow        []Shadow `json:"shadow"`
	FontWeight    int      `json:"fontWeight"`
	FontSize      float64  `json:"fontSize"`      // px
	LetterSpacing float64  `json:"letterSpacing"` // em
	Opacity       float64  `json:"opacity"`
	ZIndex        int      `json:"zIndex"`
	Uppercase     bool     `json:"uppercase"`
}

// LabelInput is everything a label's style depends on.
type LabelInput struct {
	Dark        bool
	Selected    bool
	AnySelected bool
	Compact     bool // narrow viewport
}

// LabelStyle mirrors PolygonStyle's selected/dimmed/theme branching for text.
func LabelStyle(in LabelInput) Label {
	ts := ThemeStyles(in.Dark)
	l := Label{
		Color:         ts.Label.Color,
		Shadow:        ts.Label.Shadow,
		FontWeight:    600,
		FontSize:      11,
		LetterSpacing: 0.08,
		Opacity:       1,
		ZIndex:        LabelZ,
		Uppercase:     true,
	}
	if in.Compact {
		l.FontSize = 10
		l.LetterSpacing = 0.06
	}
	switch {
	case in.Selected:
		l.Color = ts.Label.SelectedColor
		l.Shadow = ts.Label.SelectedShadow
		l.FontWeight = 700
		l.FontSize++
		l.ZIndex = SelectedLabelZ
	case in.AnySelected:
		l.Opacity = ts.Dim.LabelOpacity
	}
	return l
}

// CSSShadow renders a shadow list as a CSS text-shadow value.
func CSSShadow(shadows []Shadow) string {
	out := ""
	for i, s := range shadows {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%gpx %gpx %gpx %s", s.OffsetX, s.OffsetY, s.Blur, s.Color)
	}
	return out
}
