package raster

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
)

// CompositeOver stacks layers bottom-to-top over base using alpha blending.
// Every layer must match the base bounds; nil layers are skipped.
func CompositeOver(base image.Image, layers ...image.Image) (*image.NRGBA, error) {
	if base == nil {
		return nil, fmt.Errorf("base image is required")
	}
	bounds := base.Bounds()
	dst := image.NewNRGBA(bounds)
	draw.Draw(dst, bounds, base, bounds.Min, draw.Src)

	for i, layer := range layers {
		if layer == nil {
			continue
		}
		if layer.Bounds() != bounds {
			return nil, fmt.Errorf("layer %d bounds %v do not match base %v", i, layer.Bounds(), bounds)
		}
		alphaOver(dst, layer)
	}
	return dst, nil
}

func alphaOver(dst *image.NRGBA, src image.Image) {
	bounds := dst.Bounds()

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			s := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			if s.A == 0 {
				continue
			}

			d := dst.NRGBAAt(x, y)

			sa := float64(s.A) / 255.0
			da := float64(d.A) / 255.0

			outA := sa + da*(1.0-sa)
			if outA == 0 {
				dst.SetNRGBA(x, y, color.NRGBA{})
				continue
			}

			blend := func(srcVal, dstVal uint8) uint8 {
				srcPremult := float64(srcVal) * sa
				dstPremult := float64(dstVal) * da
				outPremult := srcPremult + dstPremult*(1.0-sa)
				return uint8(math.Round(outPremult / outA))
			}

			dst.SetNRGBA(x, y, color.NRGBA{
				R: blend(s.R, d.R),
				G: blend(s.G, d.G),
				B: blend(s.B, d.B),
				A: uint8(math.Round(outA * 255.0)),
			})
		}
	}
}
