package mapview

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/MeKo-Tech/bydelskart/internal/district"
	"github.com/MeKo-Tech/bydelskart/internal/style"
	"github.com/MeKo-Tech/bydelskart/internal/tile"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Shape is one polygon of the polygon layer.
type Shape struct {
	Name     string
	District district.District
	Resolved bool // Name matched a district; unresolved shapes are inert
	Geometry orb.Geometry
	Bound    orb.Bound
	Style    style.Path
	Hovered  bool
}

// Contains reports whether pt lies inside the shape.
func (s *Shape) Contains(pt orb.Point) bool {
	if !s.Bound.Contains(pt) {
		return false
	}
	switch g := s.Geometry.(type) {
	case orb.Polygon:
		return planar.PolygonContains(g, pt)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(g, pt)
	}
	return false
}

// Marker is one label of the label layer, anchored at its top-left corner.
type Marker struct {
	District district.District
	Point    orb.Point
	Style    style.Label
}

// Text is the label text as rendered.
func (m *Marker) Text() string {
	if m.Style.Uppercase {
		return strings.ToUpper(m.District.Name)
	}
	return m.District.Name
}

// box returns the approximate pixel extent of the label for hit-testing.
func (m *Marker) box(p Projection) (x0, y0, x1, y1 float64) {
	x0, y0 = p.ToPixel(m.Point)
	n := float64(utf8.RuneCountInString(m.District.Name))
	w := n * m.Style.FontSize * (0.62 + m.Style.LetterSpacing)
	h := m.Style.FontSize * 1.2
	return x0, y0, x0 + w, y0 + h
}

// PolygonView is a read-only snapshot of a shape.
type PolygonView struct {
	Name       string       `json:"name"`
	DistrictID string       `json:"districtId,omitempty"`
	Geometry   orb.Geometry `json:"-"`
	Style      style.Path   `json:"style"`
	Hovered    bool         `json:"hovered,omitempty"`
	Selected   bool         `json:"selected,omitempty"`
}

// LabelView is a read-only snapshot of a marker.
type LabelView struct {
	DistrictID string      `json:"districtId"`
	Text       string      `json:"text"`
	Point      orb.Point   `json:"point"`
	Style      style.Label `json:"style"`
}

// Scene is an immutable snapshot of everything the map would paint.
type Scene struct {
	View         ViewState     `json:"view"`
	Width        int           `json:"width"`
	Height       int           `json:"height"`
	Compact      bool          `json:"compact"`
	Dark         bool          `json:"dark"`
	TileMode     TileMode      `json:"tileMode"`
	ActiveLayer  tile.LayerKey `json:"activeLayer"`
	Base         tile.Layer    `json:"base"`
	BaseTemplate string        `json:"baseTemplate"`
	Ready        bool          `json:"ready"`
	Selected     string        `json:"selected,omitempty"`
	Polygons     []PolygonView `json:"polygons"`
	// Labels are in paint order: ascending z-index, the selected label last.
	Labels []LabelView `json:"labels"`
}

// Projection returns the scene's viewport projection.
func (s Scene) Projection() Projection {
	return Projection{View: s.View, Width: s.Width, Height: s.Height}
}

// Polygon returns the polygon view with the given name.
func (s Scene) Polygon(name string) (PolygonView, bool) {
	for _, p := range s.Polygons {
		if p.Name == name {
			return p, true
		}
	}
	return PolygonView{}, false
}

func sortLabels(labels []LabelView) {
	sort.SliceStable(labels, func(i, j int) bool {
		return labels[i].Style.ZIndex < labels[j].Style.ZIndex
	})
}
