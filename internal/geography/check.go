package geography

import "github.com/MeKo-Tech/bydelskart/internal/district"

// Resolver looks a district up by its exact display name.
type Resolver interface {
	Resolves(name string) bool
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(name string) bool

// Resolves implements Resolver.
func (f ResolverFunc) Resolves(name string) bool { return f(name) }

// Report lists the name mismatches between geography and the district table.
// Mismatched features silently lose interactivity and labels on the map.
type Report struct {
	UnresolvedPolygons []string `json:"unresolvedPolygons"`
	UnresolvedLabels   []string `json:"unresolvedLabels"`
	MissingGeometry    []string `json:"missingGeometry"`
}

// OK reports whether every geometry and label name resolves.
func (r Report) OK() bool {
	return len(r.UnresolvedPolygons) == 0 && len(r.UnresolvedLabels) == 0
}

// CheckNames compares feature names with the district names. names lists
// the districts expected to have a boundary.
func CheckNames(data *Data, r Resolver, names []string) Report {
	var rep Report
	if data == nil {
		return rep
	}
	withGeometry := make(map[string]bool, len(data.Polygons))
	for _, p := range data.Polygons {
		withGeometry[p.Name] = true
		if !r.Resolves(p.Name) {
			rep.UnresolvedPolygons = append(rep.UnresolvedPolygons, p.Name)
		}
	}
	for _, l := range data.Labels {
		if !r.Resolves(l.Name) {
			rep.UnresolvedLabels = append(rep.UnresolvedLabels, l.Name)
		}
	}
	for _, n := range names {
		if !withGeometry[n] {
			rep.MissingGeometry = append(rep.MissingGeometry, n)
		}
	}
	return rep
}

// CheckDistricts runs CheckNames against a district table. The aggregate
// entry is not expected to have a boundary.
func CheckDistricts(data *Data, districts *district.Collection) Report {
	var names []string
	for _, d := range districts.All() {
		if !d.Aggregate() {
			names = append(names, d.Name)
		}
	}
	return CheckNames(data, ResolverFunc(func(name string) bool {
		_, ok := districts.ByName(name)
		return ok
	}), names)
}
