// Package geography loads the two static district datasets: polygon
// boundaries and label anchor points.
package geography

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"golang.org/x/sync/errgroup"
)

const (
	// PolygonsResource holds one polygon feature per district.
	PolygonsResource = "oslo_bydeler.geojson"
	// LabelsResource holds one point feature per district.
	LabelsResource = "oslo_label_points.geojson"
	// NameProperty carries the district display name on every feature.
	NameProperty = "BYDELSNAVN"
)

// Polygon is one district boundary.
type Polygon struct {
	Name     string
	Geometry orb.Geometry // orb.Polygon or orb.MultiPolygon
	Bound    orb.Bound
}

// Label is one district label anchor.
type Label struct {
	Name  string
	Point orb.Point // lon, lat
}

// Data is the immutable pair of datasets. It is never mutated after Load.
type Data struct {
	Polygons []Polygon
	Labels   []Label
}

// Store loads geography once and shares the result with every map instance
// reading from it.
type Store struct {
	src    Source
	logger *slog.Logger

	start sync.Once
	done  chan struct{}
	data  *Data
	err   error
	ready atomic.Bool
}

// NewStore creates a store reading from src.
func NewStore(src Source, logger *slog.Logger) *Store {
	return &Store{src: src, logger: logger, done: make(chan struct{})}
}

// Load fetches both datasets concurrently and parses them. The first call
// starts the fetch; every call waits for its result. The fetch runs on a
// context detached from the caller's cancellation, so a caller that gives
// up only abandons its own wait. Failure of either fetch cancels the other.
// There is no retry.
func (s *Store) Load(ctx context.Context) (*Data, error) {
	s.start.Do(func() {
		go s.run(context.WithoutCancel(ctx))
	})
	select {
	case <-s.done:
		return s.data, s.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Store) run(ctx context.Context) {
	defer close(s.done)
	s.data, s.err = s.load(ctx)
	if s.err != nil {
		s.log().Error("failed to load geography", "error", s.err)
		return
	}
	s.ready.Store(true)
	s.log().Debug("geography loaded", "polygons", len(s.data.Polygons), "labels", len(s.data.Labels))
}

// Ready reports whether a load has completed successfully.
func (s *Store) Ready() bool {
	return s.ready.Load()
}

func (s *Store) load(ctx context.Context) (*Data, error) {
	if s.src == nil {
		return nil, errors.New("no geography source configured")
	}

	var polygonsRaw, labelsRaw []byte
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b, err := s.src.Fetch(gctx, PolygonsResource)
		polygonsRaw = b
		return err
	})
	g.Go(func() error {
		b, err := s.src.Fetch(gctx, LabelsResource)
		labelsRaw = b
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	polygons, err := ParsePolygons(polygonsRaw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", PolygonsResource, err)
	}
	labels, err := ParseLabels(labelsRaw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", LabelsResource, err)
	}
	return &Data{Polygons: polygons, Labels: labels}, nil
}

func (s *Store) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

// ParsePolygons decodes a polygon feature collection. Features that are not
// (multi)polygons are rejected.
func ParsePolygons(raw []byte) ([]Polygon, error) {
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feature collection: %w", err)
	}
	out := make([]Polygon, 0, len(fc.Features))
	for i, f := range fc.Features {
		switch f.Geometry.(type) {
		case orb.Polygon, orb.MultiPolygon:
		default:
			return nil, fmt.Errorf("feature %d: expected Polygon or MultiPolygon, got %T", i, f.Geometry)
		}
		out = append(out, Polygon{
			Name:     featureName(f),
			Geometry: f.Geometry,
			Bound:    f.Geometry.Bound(),
		})
	}
	return out, nil
}

// ParseLabels decodes a point feature collection with [lng, lat] coordinates.
func ParseLabels(raw []byte) ([]Label, error) {
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feature collection: %w", err)
	}
	out := make([]Label, 0, len(fc.Features))
	for i, f := range fc.Features {
		p, ok := f.Geometry.(orb.Point)
		if !ok {
			return nil, fmt.Errorf("feature %d: expected Point, got %T", i, f.Geometry)
		}
		out = append(out, Label{Name: featureName(f), Point: p})
	}
	return out, nil
}

func featureName(f *geojson.Feature) string {
	if f.Properties == nil {
		return ""
	}
	return f.Properties.MustString(NameProperty, "")
}
