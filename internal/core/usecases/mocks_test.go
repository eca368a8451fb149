package usecases_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/NB11/air-pollution-poster-fair/internal/core/domain"
)

func pointGeom(lng, lat float64) orb.Point { return orb.Point{lng, lat} }

// ---- Mock sources ----

type mockBoundsSource struct {
	mu      sync.Mutex
	calls   int
	fetchFn func(ctx context.Context, city, year string) (*domain.BoundsDescriptor, error)
}

func (m *mockBoundsSource) FetchBounds(ctx context.Context, city, year string) (*domain.BoundsDescriptor, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.fetchFn != nil {
		return m.fetchFn(ctx, city, year)
	}
	return testDescriptor(city, year), nil
}

func (m *mockBoundsSource) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockRasterSource struct {
	mu      sync.Mutex
	calls   int
	fetchFn func(ctx context.Context, key domain.LayerKey, colormap string) (*domain.RasterGrid, error)
}

func (m *mockRasterSource) FetchGrid(ctx context.Context, key domain.LayerKey, colormap string) (*domain.RasterGrid, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.fetchFn != nil {
		return m.fetchFn(ctx, key, colormap)
	}
	return testGrid(), nil
}

func (m *mockRasterSource) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockStationSource struct {
	mu        sync.Mutex
	predCalls int
	consCalls int
	predFn    func(ctx context.Context, city string, p domain.Pollutant, year, month string) (*geojson.FeatureCollection, error)
	consFn    func(ctx context.Context, p domain.Pollutant) (*geojson.FeatureCollection, error)
}

func (m *mockStationSource) FetchPredictions(ctx context.Context, city string, p domain.Pollutant, year, month string) (*geojson.FeatureCollection, error) {
	m.mu.Lock()
	m.predCalls++
	m.mu.Unlock()
	if m.predFn != nil {
		return m.predFn(ctx, city, p, year, month)
	}
	return nil, domain.ErrFetchUnavailable
}

func (m *mockStationSource) FetchConsolidated(ctx context.Context, p domain.Pollutant) (*geojson.FeatureCollection, error) {
	m.mu.Lock()
	m.consCalls++
	m.mu.Unlock()
	if m.consFn != nil {
		return m.consFn(ctx, p)
	}
	return nil, domain.ErrFetchUnavailable
}

func (m *mockStationSource) predCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.predCalls
}

func (m *mockStationSource) consCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.consCalls
}

// ---- Fake rendering surface ----

type surfaceOp struct {
	Kind   string // addSource | removeSource | addLayer | removeLayer | paint
	ID     string
	Before string
}

// fakeSurface records every mutation and enforces unique ids, so duplicate
// source/layer materializations fail the test that caused them.
type fakeSurface struct {
	mu      sync.Mutex
	ops     []surfaceOp
	sources map[string]bool
	layers  map[string]bool
	geojson map[string]*geojson.FeatureCollection
	paints  map[string]any
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{
		sources: make(map[string]bool),
		layers:  make(map[string]bool),
		geojson: make(map[string]*geojson.FeatureCollection),
		paints:  make(map[string]any),
	}
}

func (f *fakeSurface) AddImageSource(ctx context.Context, id string, img *domain.DecodedImage, corners domain.DisplayCorners) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sources[id] {
		return fmt.Errorf("duplicate source %q", id)
	}
	f.sources[id] = true
	f.ops = append(f.ops, surfaceOp{Kind: "addSource", ID: id})
	return nil
}

func (f *fakeSurface) AddGeoJSONSource(ctx context.Context, id string, fc *geojson.FeatureCollection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sources[id] {
		return fmt.Errorf("duplicate source %q", id)
	}
	f.sources[id] = true
	f.geojson[id] = fc
	f.ops = append(f.ops, surfaceOp{Kind: "addSource", ID: id})
	return nil
}

func (f *fakeSurface) RemoveSource(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.sources[id] {
		return fmt.Errorf("remove of missing source %q", id)
	}
	delete(f.sources, id)
	delete(f.geojson, id)
	f.ops = append(f.ops, surfaceOp{Kind: "removeSource", ID: id})
	return nil
}

func (f *fakeSurface) AddLayer(ctx context.Context, id, sourceID, layerType, beforeID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.layers[id] {
		return fmt.Errorf("duplicate layer %q", id)
	}
	if !f.sources[sourceID] {
		return fmt.Errorf("layer %q bound to missing source %q", id, sourceID)
	}
	f.layers[id] = true
	f.ops = append(f.ops, surfaceOp{Kind: "addLayer", ID: id, Before: beforeID})
	return nil
}

func (f *fakeSurface) RemoveLayer(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.layers[id] {
		return fmt.Errorf("remove of missing layer %q", id)
	}
	delete(f.layers, id)
	f.ops = append(f.ops, surfaceOp{Kind: "removeLayer", ID: id})
	return nil
}

func (f *fakeSurface) SetPaintProperty(ctx context.Context, layerID, name string, value any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paints[layerID+"/"+name] = value
	f.ops = append(f.ops, surfaceOp{Kind: "paint", ID: layerID})
	return nil
}

func (f *fakeSurface) HasLayer(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.layers[id]
}

func (f *fakeSurface) HasSource(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sources[id]
}

func (f *fakeSurface) opsSnapshot() []surfaceOp {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]surfaceOp(nil), f.ops...)
}

func (f *fakeSurface) featuresIn(sourceID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	fc := f.geojson[sourceID]
	if fc == nil {
		return 0
	}
	return len(fc.Features)
}

// ---- Shared fixtures ----

func testDescriptor(city, year string) *domain.BoundsDescriptor {
	return &domain.BoundsDescriptor{
		City: city,
		Year: year,
		Coordinates: [][]float64{
			{11.22, 44.55}, {11.44, 44.55}, {11.44, 44.40}, {11.22, 44.40},
		},
		Pollutants: map[string]domain.PollutantScale{
			"NO2": {VMin: 0, VMax: 50, Colormap: "inferno"},
		},
	}
}

func testGrid() *domain.RasterGrid {
	return &domain.RasterGrid{
		BandCount: 3,
		Width:     2,
		Height:    2,
		Bands: [][]float64{
			{0, 50, 100, 150},
			{10, 60, 110, 160},
			{20, 70, 120, 170},
		},
	}
}

func stationFeature(id, period string) *geojson.Feature {
	f := geojson.NewFeature(pointGeom(11.3, 44.5))
	f.Properties = geojson.Properties{
		domain.PropStationID:   id,
		domain.PropPeriodKey:   period,
		domain.PropGroundTruth: 21.5,
	}
	return f
}
