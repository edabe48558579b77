package district

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Rating grades one metric for display: good, middling or weak.
type Rating string

const (
	RatingGreen  Rating = "green"
	RatingYellow Rating = "yellow"
	RatingRed    Rating = "red"
)

// MetricComparison sets one district metric against the city average.
type MetricComparison struct {
	// Diff is district minus city, in the metric's display unit.
	Diff           float64 `json:"diff"`
	Preposition    string  `json:"preposition"`
	Interpretation string  `json:"interpretation"`
	Summary        string  `json:"summary"`
	Rating         Rating  `json:"rating"`
}

// Comparison is the stats panel for one district.
type Comparison struct {
	PriceTrend   MetricComparison `json:"priceTrend"`
	DaysOnMarket MetricComparison `json:"daysOnMarket"`
	MedianPrice  MetricComparison `json:"medianPrice"`
	SqmPrice     MetricComparison `json:"sqmPrice"`
}

// Compare grades d against CityAverage. Small differences count as level
// with the city: 0.1 percentage points of trend, 2 days on market, 0.2
// million of median price and 1000 NOK per square metre.
func Compare(d District) Comparison {
	return Comparison{
		PriceTrend:   compareTrend(d.PriceChange),
		DaysOnMarket: compareDays(d.AvgDaysOnMarket),
		MedianPrice:  compareMedian(d.MedianPrice),
		SqmPrice:     compareSqm(d.PricePerSqm),
	}
}

func compareTrend(v float64) MetricComparison {
	avg := CityAverage.PriceTrend
	m := MetricComparison{Diff: round1(v - avg), Rating: grade(v >= 2.5, v >= 1.5)}
	switch {
	case m.Diff > 0.1:
		m.Preposition, m.Interpretation = "over", "Sterkere prisvekst enn byen for øvrig."
	case m.Diff < -0.1:
		m.Preposition, m.Interpretation = "under", "Svakere prisvekst enn byen for øvrig."
	default:
		m.Preposition, m.Interpretation = "på linje med", "Normal prisvekst."
	}
	ref := fmt.Sprintf("Oslo-snittet (%s%%)", num(avg))
	if math.Abs(m.Diff) > 0.1 {
		sign := ""
		if m.Diff > 0 {
			sign = "+"
		}
		m.Summary = fmt.Sprintf("%s%s prosentpoeng %s %s. %s", sign, num(m.Diff), m.Preposition, ref, m.Interpretation)
	} else {
		m.Summary = fmt.Sprintf("På linje med %s. %s", ref, m.Interpretation)
	}
	return m
}

func compareDays(v int) MetricComparison {
	avg := CityAverage.DaysOnMarket
	diff := v - avg
	m := MetricComparison{Diff: float64(diff), Rating: grade(v <= 18, v <= 24)}
	switch {
	case diff < -2:
		m.Preposition, m.Interpretation = "raskere enn", "Svært likvid marked."
	case diff > 2:
		m.Preposition, m.Interpretation = "tregere enn", "Lavere etterspørsel."
	default:
		m.Preposition, m.Interpretation = "på nivå med", "Normal etterspørsel."
	}
	ref := fmt.Sprintf("Oslo-snittet (%d dager)", avg)
	if diff < -2 || diff > 2 {
		m.Summary = fmt.Sprintf("%d dager %s %s. %s", abs(diff), m.Preposition, ref, m.Interpretation)
	} else {
		m.Summary = fmt.Sprintf("På nivå med %s. %s", ref, m.Interpretation)
	}
	return m
}

func compareMedian(nok float64) MetricComparison {
	avg := CityAverage.MedianPrice
	m := MetricComparison{Diff: round1(nok/1e6 - avg), Rating: grade(nok >= 7e6, nok >= 4.5e6)}
	switch {
	case m.Diff > 1.0:
		m.Preposition, m.Interpretation = "over", "Betydelig høyere prisnivå."
	case m.Diff > 0.2:
		m.Preposition, m.Interpretation = "over", "Høyere prisnivå."
	case m.Diff < -0.2:
		m.Preposition, m.Interpretation = "under", "Lavere prisnivå."
	default:
		m.Preposition, m.Interpretation = "på nivå med", "Normalt prisnivå."
	}
	ref := fmt.Sprintf("Oslo-snittet (%s mill.)", num(avg))
	if math.Abs(m.Diff) > 0.2 {
		m.Summary = fmt.Sprintf("%s mill. kr %s %s. %s", num(math.Abs(m.Diff)), m.Preposition, ref, m.Interpretation)
	} else {
		m.Summary = fmt.Sprintf("På nivå med %s. %s", ref, m.Interpretation)
	}
	return m
}

func compareSqm(v float64) MetricComparison {
	avg := CityAverage.AvgSqmPrice
	m := MetricComparison{Diff: math.Round(v - avg), Rating: grade(v >= 110000, v >= 75000)}
	switch {
	case m.Diff > 1000:
		m.Preposition, m.Interpretation = "over", "Høyere prisnivå enn byen for øvrig."
	case m.Diff < -1000:
		m.Preposition, m.Interpretation = "under", "Rimeligere område."
	default:
		m.Preposition, m.Interpretation = "på nivå med", "Normalt prisnivå."
	}
	ref := fmt.Sprintf("Oslo-snittet (%s kr/m²)", thousands(int64(avg)))
	if math.Abs(m.Diff) > 1000 {
		m.Summary = fmt.Sprintf("%s kr/m² %s %s. %s", thousands(int64(math.Abs(m.Diff))), m.Preposition, ref, m.Interpretation)
	} else {
		m.Summary = fmt.Sprintf("På nivå med %s. %s", ref, m.Interpretation)
	}
	return m
}

func grade(green, yellow bool) Rating {
	switch {
	case green:
		return RatingGreen
	case yellow:
		return RatingYellow
	default:
		return RatingRed
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// thousands groups digits in threes with spaces, the Norwegian way.
func thousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
