package style

// Lightness returns the HSL lightness of c in [0..255]: the midpoint of its
// brightest and darkest channel. Ramp validation only needs this component.
func (c Color) Lightness() uint8 {
	hi := max(c.R, c.G, c.B)
	lo := min(c.R, c.G, c.B)
	return uint8((int(hi) + int(lo)) / 2)
}
