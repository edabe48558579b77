package style

import (
	"errors"
	"fmt"
)

// Step binds a colour to the lower bound of a bin.
type Step struct {
	Threshold float64
	Color     Color
}

// Ramp is a choropleth step function: contiguous left-closed bins ordered by
// ascending threshold, with colours ordered by increasing intensity.
type Ramp struct {
	Steps []Step
	// Max is the hover colour of the top bin, darker than its colour.
	Max Color
}

// DefaultRamp colours districts by year-over-year price change in percent.
var DefaultRamp = Ramp{
	Steps: []Step{
		{Threshold: 0, Color: MustParse("#93C5FD")},
		{Threshold: 2, Color: MustParse("#60A5FA")},
		{Threshold: 3, Color: MustParse("#3B82F6")},
		{Threshold: 4, Color: MustParse("#2563EB")},
		{Threshold: 5, Color: MustParse("#1D4ED8")},
		{Threshold: 6, Color: MustParse("#1E40AF")},
	},
	Max: MustParse("#1E3A8A"),
}

// Index returns the bin of v: the greatest threshold <= v, or 0 when v lies
// below every threshold. The top bin is unbounded above.
func (r Ramp) Index(v float64) int {
	for i := len(r.Steps) - 1; i >= 0; i-- {
		if v >= r.Steps[i].Threshold {
			return i
		}
	}
	return 0
}

// Color returns the choropleth colour of v.
func (r Ramp) Color(v float64) Color {
	if len(r.Steps) == 0 {
		return Transparent
	}
	return r.Steps[r.Index(v)].Color
}

// Hover returns the colour one step up from v's bin, or Max from the top bin.
func (r Ramp) Hover(v float64) Color {
	if len(r.Steps) == 0 {
		return r.Max
	}
	i := r.Index(v)
	if i < len(r.Steps)-1 {
		return r.Steps[i+1].Color
	}
	return r.Max
}

// Validate checks that thresholds ascend strictly and that every step, and
// finally Max, is strictly darker than the one before it. Hover relies on
// this ordering.
func (r Ramp) Validate() error {
	if len(r.Steps) == 0 {
		return errors.New("ramp has no steps")
	}
	for i := 1; i < len(r.Steps); i++ {
		prev, cur := r.Steps[i-1], r.Steps[i]
		if cur.Threshold <= prev.Threshold {
			return fmt.Errorf("step %d: threshold %v not above %v", i, cur.Threshold, prev.Threshold)
		}
		if cur.Color.Lightness() >= prev.Color.Lightness() {
			return fmt.Errorf("step %d: colour %s not darker than %s", i, cur.Color, prev.Color)
		}
	}
	top := r.Steps[len(r.Steps)-1].Color
	if r.Max.Lightness() >= top.Lightness() {
		return fmt.Errorf("max colour %s not darker than top step %s", r.Max, top)
	}
	return nil
}

// ChoroplethColor maps a price change onto DefaultRamp.
func ChoroplethColor(priceChange float64) Color {
	return DefaultRamp.Color(priceChange)
}

// HoverColor is ChoroplethColor one step darker.
func HoverColor(priceChange float64) Color {
	return DefaultRamp.Hover(priceChange)
}
