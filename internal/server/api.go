package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MeKo-Tech/bydelskart/internal/district"
	"github.com/MeKo-Tech/bydelskart/internal/geography"
	"github.com/MeKo-Tech/bydelskart/internal/tile"
)

type estimateRequest struct {
	DistrictID string             `json:"districtId"`
	Type       district.BoligType `json:"type"`
	Area       float64            `json:"area"`
	Standard   district.Standard  `json:"standard"`
}

type estimateResponse struct {
	DistrictID  string `json:"districtId"`
	District    string `json:"district"`
	Preposition string `json:"preposition"`
	Value       int64  `json:"value"`
}

type layerView struct {
	tile.Layer
	URL string `json:"url"`
}

type apiError struct {
	Error string `json:"error"`
}

func (s *Server) handleDistricts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Districts.All())
}

func (s *Server) handleDistrict(w http.ResponseWriter, r *http.Request) {
	d, ok := s.cfg.Districts.ByID(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, apiError{Error: "unknown district"})
		return
	}
	view := districtView{District: d}
	if !d.Aggregate() {
		c := district.Compare(d)
		view.Comparison = &c
	}
	writeJSON(w, http.StatusOK, view)
}

// districtView is one district with its comparison against the city. The
// city aggregate carries no comparison.
type districtView struct {
	district.District
	Comparison *district.Comparison `json:"comparison,omitempty"`
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var req estimateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid request body"})
		return
	}
	d, ok := s.cfg.Districts.ByID(req.DistrictID)
	if !ok {
		writeJSON(w, http.StatusNotFound, apiError{Error: "unknown district"})
		return
	}
	if req.Standard == "" {
		req.Standard = district.StandardNormal
	}
	value, err := district.Estimate(d, req.Type, req.Area, req.Standard)
	if err != nil {
		status := http.StatusBadRequest
		if !errors.Is(err, district.ErrInvalidArea) {
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, apiError{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, estimateResponse{
		DistrictID:  d.ID,
		District:    d.Name,
		Preposition: district.Preposition(d.Name),
		Value:       value,
	})
}

func (s *Server) handleLayers(w http.ResponseWriter, r *http.Request) {
	layers := s.cfg.Catalog.All()
	out := make([]layerView, 0, len(layers)+1)
	for _, l := range layers {
		out = append(out, layerView{Layer: l, URL: s.cfg.Catalog.Template(l)})
	}
	dark := s.cfg.Catalog.Default(true)
	out = append(out, layerView{Layer: dark, URL: s.cfg.Catalog.Template(dark)})
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	data, err := s.cfg.Loader.Load(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, apiError{Error: "geography unavailable"})
		return
	}
	rep := geography.CheckDistricts(data, s.cfg.Districts)
	status := http.StatusOK
	if !rep.OK() {
		status = http.StatusConflict
	}
	writeJSON(w, status, rep)
}
