package raster

import (
	"image"
	"image/draw"
	"math"

	"github.com/MeKo-Tech/bydelskart/internal/mapview"
	"github.com/MeKo-Tech/bydelskart/internal/style"
	"github.com/disintegration/gift"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// labelFace is the only face available without shipping font files. Font
// size and weight from the label style are therefore approximated.
var labelFace font.Face = basicfont.Face7x13

// PaintLabels renders labels in the given order, each with its shadow
// layers under the text.
func (p *Painter) PaintLabels(labels []mapview.LabelView) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, p.canvasW, p.canvasH))
	for i := range labels {
		p.paintLabel(dst, &labels[i])
	}
	return dst
}

func (p *Painter) paintLabel(dst *image.NRGBA, l *mapview.LabelView) {
	fx, fy := p.proj.ToPixel(l.Point)
	x, y := int(math.Floor(fx)), int(math.Floor(fy))

	m := labelFace.Metrics()
	adv := font.MeasureString(labelFace, l.Text).Ceil()
	margin := shadowMargin(l.Style.Shadow)

	// Work on the label's own box; labels anchored off-canvas still spill in.
	box := image.Rect(x-margin, y-margin, x+adv+margin, y+m.Height.Ceil()+margin)
	if !box.Overlaps(dst.Bounds()) {
		return
	}

	text := image.NewAlpha(box)
	d := &font.Drawer{
		Dst:  text,
		Src:  image.Opaque,
		Face: labelFace,
		Dot:  fixed.P(x, y+m.Ascent.Ceil()),
	}
	d.DrawString(l.Text)
	if emptyAlpha(text) {
		return
	}

	// shadows paint back to front, the first listed ends up on top
	for i := len(l.Style.Shadow) - 1; i >= 0; i-- {
		s := l.Style.Shadow[i]
		mask, mp := shadowMask(text, s)
		c := s.Color.WithAlpha(l.Style.Opacity)
		off := image.Pt(int(math.Round(s.OffsetX)), int(math.Round(s.OffsetY)))
		draw.DrawMask(dst, box.Add(off), image.NewUniform(c.NRGBA()), image.Point{}, mask, mp, draw.Over)
	}

	c := l.Style.Color.WithAlpha(l.Style.Opacity)
	draw.DrawMask(dst, box, image.NewUniform(c.NRGBA()), image.Point{}, text, box.Min, draw.Over)
}

// shadowMargin is how far shadows may reach beyond the glyph box.
func shadowMargin(shadows []style.Shadow) int {
	margin := 1
	for _, s := range shadows {
		reach := int(math.Ceil(1.5*s.Blur+math.Abs(s.OffsetX)+math.Abs(s.OffsetY))) + 1
		margin = max(margin, reach)
	}
	return margin
}

// shadowMask blurs the text coverage the way a CSS text-shadow blur radius
// would, with sigma at half the radius. The returned point is the mask
// origin matching the text box's top-left corner.
func shadowMask(text *image.Alpha, s style.Shadow) (image.Image, image.Point) {
	if s.Blur <= 0 {
		return text, text.Bounds().Min
	}
	g := gift.New(gift.GaussianBlur(float32(s.Blur / 2)))
	dst := image.NewNRGBA(g.Bounds(text.Bounds()))
	g.Draw(dst, text)
	return dst, dst.Bounds().Min
}

func emptyAlpha(a *image.Alpha) bool {
	for _, v := range a.Pix {
		if v != 0 {
			return false
		}
	}
	return true
}
