// Package district holds the read-only district market table the map is
// coloured by.
package district

import (
	"fmt"
)

// District is one administrative sub-area of the city with its market metrics.
// Name must match the name property of the district's geometry exactly.
type District struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	PriceChange     float64 `json:"priceChange"` // percent, drives the choropleth ramp
	PricePerSqm     float64 `json:"pricePerSqm"`
	MedianPrice     float64 `json:"medianPrice"`
	AvgDaysOnMarket int     `json:"avgDaysOnMarket"`
	Lat             float64 `json:"lat"` // centroid, fallback only
	Lng             float64 `json:"lng"`
}

// Aggregate reports whether the record is the city-wide total rather than a
// real district. Aggregates are never labelled on the map.
func (d District) Aggregate() bool {
	return d.ID == AggregateID
}

// AggregateID is the id of the city-wide pseudo district.
const AggregateID = "oslo"

// Collection is an ordered set of districts looked up by exact name.
type Collection struct {
	items  []District
	byName map[string]int
	byID   map[string]int
}

// NewCollection indexes the given districts. Later duplicates of a name or id
// shadow nothing: the first occurrence wins and Validate reports the clash.
func NewCollection(items []District) *Collection {
	c := &Collection{
		items:  append([]District(nil), items...),
		byName: make(map[string]int, len(items)),
		byID:   make(map[string]int, len(items)),
	}
	for i, d := range c.items {
		if _, ok := c.byName[d.Name]; !ok {
			c.byName[d.Name] = i
		}
		if _, ok := c.byID[d.ID]; !ok {
			c.byID[d.ID] = i
		}
	}
	return c
}

// ByName resolves a geometry name to its district. Matching is exact, no
// case folding or diacritic normalization.
func (c *Collection) ByName(name string) (District, bool) {
	if c == nil {
		return District{}, false
	}
	i, ok := c.byName[name]
	if !ok {
		return District{}, false
	}
	return c.items[i], true
}

// ByID returns the district with the given id.
func (c *Collection) ByID(id string) (District, bool) {
	if c == nil {
		return District{}, false
	}
	i, ok := c.byID[id]
	if !ok {
		return District{}, false
	}
	return c.items[i], true
}

// All returns a copy of the districts in table order.
func (c *Collection) All() []District {
	if c == nil {
		return nil
	}
	return append([]District(nil), c.items...)
}

// Names returns the district names in table order.
func (c *Collection) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, len(c.items))
	for i, d := range c.items {
		names[i] = d.Name
	}
	return names
}

// Len returns the number of districts.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.items)
}

// Validate checks that names and ids are unique and non-empty.
func (c *Collection) Validate() error {
	seenName := make(map[string]bool, len(c.items))
	seenID := make(map[string]bool, len(c.items))
	for _, d := range c.items {
		if d.Name == "" || d.ID == "" {
			return fmt.Errorf("district %q/%q: id and name are required", d.ID, d.Name)
		}
		if seenName[d.Name] {
			return fmt.Errorf("duplicate district name %q", d.Name)
		}
		if seenID[d.ID] {
			return fmt.Errorf("duplicate district id %q", d.ID)
		}
		seenName[d.Name] = true
		seenID[d.ID] = true
	}
	return nil
}

// onPrepositionNames take "på" rather than "i" in Norwegian.
var onPrepositionNames = map[string]bool{
	"Grünerløkka":    true,
	"Frogner":        true,
	"Sagene":         true,
	"St. Hanshaugen": true,
}

// Preposition returns the locative preposition used before a district name.
func Preposition(name string) string {
	if onPrepositionNames[name] {
		return "på"
	}
	return "i"
}
