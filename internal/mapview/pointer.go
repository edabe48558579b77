package mapview

import (
	"github.com/MeKo-Tech/bydelskart/internal/district"
	"github.com/MeKo-Tech/bydelskart/internal/style"
)

// shapeLocked returns the first resolved shape with the given name.
func (r *Renderer) shapeLocked(name string) *Shape {
	for _, s := range r.shapes {
		if s.Resolved && s.Name == name {
			return s
		}
	}
	return nil
}

// shapeAtLocked hit-tests viewport pixels against resolved shapes, topmost
// first.
func (r *Renderer) shapeAtLocked(x, y float64) *Shape {
	pt := r.projectionLocked().ToLonLat(x, y)
	for i := len(r.shapes) - 1; i >= 0; i-- {
		s := r.shapes[i]
		if s.Resolved && s.Contains(pt) {
			return s
		}
	}
	return nil
}

// markerAtLocked hit-tests viewport pixels against labels in reverse paint
// order.
func (r *Renderer) markerAtLocked(x, y float64) *Marker {
	p := r.projectionLocked()
	var hit *Marker
	for _, m := range r.markers {
		x0, y0, x1, y1 := m.box(p)
		if x < x0 || x > x1 || y < y0 || y > y1 {
			continue
		}
		if hit == nil || m.Style.ZIndex >= hit.Style.ZIndex {
			hit = m
		}
	}
	return hit
}

// enterLocked makes s the hover target. A previous target that never got
// its leave event is reset first.
func (r *Renderer) enterLocked(s *Shape) {
	if r.hovered != nil && r.hovered != s {
		r.leaveLocked(r.hovered)
	}
	r.hovered = s
	s.Hovered = true
	if hs, ok := style.HoverStyle(r.polygonInput(s)); ok {
		s.Style = hs
	}
}

// leaveLocked clears the hover if s is the current target.
func (r *Renderer) leaveLocked(s *Shape) {
	if r.hovered != s {
		return
	}
	r.hovered = nil
	s.Hovered = false
	s.Style = style.PolygonStyle(r.polygonInput(s))
}

// PointerEnter handles the pointer entering the polygon of the named
// district. Unresolved names are ignored.
func (r *Renderer) PointerEnter(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return
	}
	if s := r.shapeLocked(name); s != nil {
		r.enterLocked(s)
	}
}

// PointerLeave handles the pointer leaving the named polygon. It does
// nothing unless that polygon is the current hover target.
func (r *Renderer) PointerLeave(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return
	}
	if s := r.shapeLocked(name); s != nil {
		r.leaveLocked(s)
	}
}

// PointerMove hit-tests a pointer position and turns it into leave and
// enter transitions.
func (r *Renderer) PointerMove(x, y float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return
	}
	s := r.shapeAtLocked(x, y)
	if s == r.hovered {
		return
	}
	if r.hovered != nil {
		r.leaveLocked(r.hovered)
	}
	if s != nil {
		r.enterLocked(s)
	}
}

// PointerOut handles the pointer leaving the map entirely.
func (r *Renderer) PointerOut() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.hovered != nil {
		r.leaveLocked(r.hovered)
	}
}

// Hovered returns the name of the current hover target.
func (r *Renderer) Hovered() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.hovered == nil {
		return "", false
	}
	return r.hovered.Name, true
}

// Click handles a click at viewport pixels. Labels are tested before
// polygons. A hit on a resolved district is consumed and reported with
// DistrictSelected; anything else reaches the background and is reported
// with BackgroundClicked.
func (r *Renderer) Click(x, y float64) bool {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		return false
	}
	var (
		d   district.District
		hit bool
	)
	if m := r.markerAtLocked(x, y); m != nil {
		d, hit = m.District, true
	} else if s := r.shapeAtLocked(x, y); s != nil {
		d, hit = s.District, true
	}
	host := r.host
	r.mu.Unlock()

	if hit {
		host.DistrictSelected(d)
		return true
	}
	host.BackgroundClicked()
	return false
}

// ClickDistrict handles a click delivered directly to the named polygon.
func (r *Renderer) ClickDistrict(name string) bool {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		return false
	}
	s := r.shapeLocked(name)
	host := r.host
	r.mu.Unlock()

	if s == nil {
		return false
	}
	host.DistrictSelected(s.District)
	return true
}

// ClickLabel handles a click delivered directly to the named label.
func (r *Renderer) ClickLabel(name string) bool {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		return false
	}
	var d *district.District
	for _, m := range r.markers {
		if m.District.Name == name {
			dd := m.District
			d = &dd
			break
		}
	}
	host := r.host
	r.mu.Unlock()

	if d == nil {
		return false
	}
	host.DistrictSelected(*d)
	return true
}
