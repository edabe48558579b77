// Package raster paints map scenes to images.
package raster

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/MeKo-Tech/bydelskart/internal/mapview"
	"github.com/MeKo-Tech/bydelskart/internal/style"
	"github.com/MeKo-Tech/bydelskart/internal/tile"
	"github.com/paulmach/orb"
	"golang.org/x/image/vector"
)

// Painter rasterizes polygons and labels through a viewport projection.
type Painter struct {
	proj    mapview.Projection
	canvasW int
	canvasH int
}

// NewPainter creates a painter for the given projection. The canvas has the
// projection's width and height.
func NewPainter(proj mapview.Projection) *Painter {
	return &Painter{proj: proj, canvasW: proj.Width, canvasH: proj.Height}
}

// TileProjection returns the projection that frames one XYZ tile on a
// canvas of size pixels.
func TileProjection(c tile.Coords, size int) mapview.Projection {
	n := math.Pow(2, float64(c.Z))
	lon := (float64(c.X)+0.5)/n*360.0 - 180.0
	lat := 180.0 / math.Pi * math.Atan(math.Sinh(math.Pi*(1-2*(float64(c.Y)+0.5)/n)))

	return mapview.Projection{
		View: mapview.ViewState{
			Center: orb.Point{lon, lat},
			Zoom:   float64(c.Z) + math.Log2(float64(size)/256.0),
		},
		Width:  size,
		Height: size,
	}
}

// Paint renders the polygon layer with the label layer on top.
func (p *Painter) Paint(sc mapview.Scene) *image.NRGBA {
	polys := p.PaintPolygons(sc.Polygons)
	labels := p.PaintLabels(sc.Labels)
	alphaOver(polys, labels)
	return polys
}

// PaintPolygons renders every polygon with its fill and stroke.
func (p *Painter) PaintPolygons(polys []mapview.PolygonView) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, p.canvasW, p.canvasH))
	for i := range polys {
		p.paintPolygon(dst, &polys[i])
	}
	return dst
}

func (p *Painter) paintPolygon(dst *image.NRGBA, pv *mapview.PolygonView) {
	fill := pv.Style.EffectiveFill()
	stroke := pv.Style.EffectiveStroke()

	var polys []orb.Polygon
	switch g := pv.Geometry.(type) {
	case orb.Polygon:
		polys = []orb.Polygon{g}
	case orb.MultiPolygon:
		polys = g
	default:
		return
	}

	if !fill.IsTransparent() {
		for _, poly := range polys {
			p.fillPolygon(dst, poly, fill)
		}
	}
	if !stroke.IsTransparent() {
		mask := image.NewAlpha(dst.Bounds())
		for _, poly := range polys {
			for _, ring := range poly {
				p.strokeRing(mask, ring, pv.Style.Weight)
			}
		}
		draw.DrawMask(dst, dst.Bounds(), image.NewUniform(stroke.NRGBA()), image.Point{}, mask, image.Point{}, draw.Over)
	}
}

func (p *Painter) fillPolygon(dst *image.NRGBA, poly orb.Polygon, c style.Color) {
	if len(poly) == 0 {
		return
	}

	ras := vector.NewRasterizer(p.canvasW, p.canvasH)

	for _, ring := range poly {
		if len(ring) < 3 {
			continue
		}
		first := true
		for _, pt := range ring {
			x, y := p.proj.ToPixel(pt)
			fx := float32(x)
			fy := float32(y)
			if first {
				ras.MoveTo(fx, fy)
				first = false
			} else {
				ras.LineTo(fx, fy)
			}
		}
		ras.ClosePath()
	}

	ras.Draw(dst, dst.Bounds(), image.NewUniform(c.NRGBA()), image.Point{})
}

// strokeRing marks the outline of ring into mask. Overlapping discs share
// one coverage value so translucent strokes do not darken at joints.
func (p *Painter) strokeRing(mask *image.Alpha, ring orb.Ring, width float64) {
	if len(ring) < 2 || width <= 0 {
		return
	}
	radius := width / 2.0
	step := 0.75
	if width >= 5 {
		step = 0.9
	}

	for i := 0; i < len(ring)-1; i++ {
		x0, y0 := p.proj.ToPixel(ring[i])
		x1, y1 := p.proj.ToPixel(ring[i+1])

		dx := x1 - x0
		dy := y1 - y0
		segLen := math.Hypot(dx, dy)
		if segLen == 0 {
			p.drawDisc(mask, x0, y0, radius)
			continue
		}

		steps := int(math.Ceil(segLen / step))
		for s := 0; s <= steps; s++ {
			t := float64(s) / float64(steps)
			p.drawDisc(mask, x0+dx*t, y0+dy*t, radius)
		}
	}
}

func (p *Painter) drawDisc(mask *image.Alpha, cx, cy float64, radius float64) {
	// sub-pixel strokes still cover the pixel they pass through
	r2 := math.Max(radius*radius, 0.5)

	minX := max(int(math.Floor(cx-radius)), 0)
	maxX := min(int(math.Ceil(cx+radius)), p.canvasW-1)
	minY := max(int(math.Floor(cy-radius)), 0)
	maxY := min(int(math.Ceil(cy+radius)), p.canvasH-1)

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			dx := (float64(x) + 0.5) - cx
			dy := (float64(y) + 0.5) - cy
			if dx*dx+dy*dy <= r2 {
				mask.SetAlpha(x, y, color.Alpha{A: 255})
			}
		}
	}
}
