package district

import (
	"errors"
	"fmt"
	"math"
)

// BoligType is the kind of dwelling being valued.
type BoligType string

const (
	Leilighet    BoligType = "Leilighet"
	Rekkehus     BoligType = "Rekkehus"
	Tomannsbolig BoligType = "Tomannsbolig"
	Enebolig     BoligType = "Enebolig"
)

// Standard is the condition of the dwelling.
type Standard string

const (
	Renoveringsbehov Standard = "Renoveringsbehov"
	StandardNormal   Standard = "Standard"
	Oppgradert       Standard = "Oppgradert"
)

// BoligTypeFactors scale the district price per square metre.
var BoligTypeFactors = map[BoligType]float64{
	Leilighet:    1.00,
	Rekkehus:     0.92,
	Tomannsbolig: 0.88,
	Enebolig:     0.85,
}

// StandardFactors adjust the base value up or down.
var StandardFactors = map[Standard]float64{
	StandardNormal:   0.00,
	Oppgradert:       0.08,
	Renoveringsbehov: -0.10,
}

// ErrInvalidArea is returned for non-positive or non-finite areas.
var ErrInvalidArea = errors.New("area must be a positive number of square metres")

// Estimate returns the naive valuation in NOK:
// area * pricePerSqm * typeFactor * (1 + standardFactor), rounded.
func Estimate(d District, t BoligType, area float64, s Standard) (int64, error) {
	if area <= 0 || math.IsNaN(area) || math.IsInf(area, 0) {
		return 0, ErrInvalidArea
	}
	tf, ok := BoligTypeFactors[t]
	if !ok {
		return 0, fmt.Errorf("unknown dwelling type %q", t)
	}
	sf, ok := StandardFactors[s]
	if !ok {
		return 0, fmt.Errorf("unknown standard %q", s)
	}
	base := area * d.PricePerSqm * tf
	return int64(math.Round(base * (1 + sf))), nil
}
