package usecases

import (
	"context"
	"log/slog"
	"sync"

	"github.com/paulmach/orb/geojson"

	"github.com/NB11/air-pollution-poster-fair/internal/core/domain"
	"github.com/NB11/air-pollution-poster-fair/internal/core/ports"
)

// StationService loads and filters the station point-feature overlay.
// Consolidated per-pollutant collections are cached for the process
// lifetime; the source data is static per session.
type StationService struct {
	source  ports.StationSource
	surface ports.MapSurface

	mu           sync.Mutex
	consolidated map[domain.Pollutant]*geojson.FeatureCollection
}

// NewStationService creates a new StationService.
func NewStationService(source ports.StationSource, surface ports.MapSurface) *StationService {
	return &StationService{
		source:       source,
		surface:      surface,
		consolidated: make(map[domain.Pollutant]*geojson.FeatureCollection),
	}
}

// Load materializes the overlay for one (city, pollutant, year, month).
// The control sentinel removes any existing overlay. A missing per-period
// prediction file falls back to the consolidated per-pollutant collection
// filtered by period key. An empty result removes the overlay rather than
// leaving a stale layer.
func (s *StationService) Load(ctx context.Context, city string, p domain.Pollutant, year, month string) error {
	if p.IsSentinel() {
		return s.removeOverlay(ctx)
	}

	fc, err := s.source.FetchPredictions(ctx, city, p, year, month)
	if err != nil {
		fc = s.consolidatedFiltered(ctx, p, year+"-"+month)
	}

	return s.materialize(ctx, fc)
}

// ShowAll unions the latest feature per unique station across all
// pollutants' consolidated files, bypassing the period filter. Fetches run
// concurrently; each writes a disjoint cache slot and the merge reads them
// only after every fetch has settled.
func (s *StationService) ShowAll(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, p := range domain.Pollutants {
		wg.Add(1)
		go func(p domain.Pollutant) {
			defer wg.Done()
			s.consolidatedFor(ctx, p)
		}(p)
	}
	wg.Wait()

	union := geojson.NewFeatureCollection()
	seen := make(map[string]bool)
	for _, p := range domain.Pollutants {
		s.mu.Lock()
		fc := s.consolidated[p]
		s.mu.Unlock()
		if fc == nil {
			continue
		}
		for _, f := range fc.Features {
			id := domain.StationID(f)
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			union.Append(f)
		}
	}

	return s.materialize(ctx, union)
}

// Remove tears down the overlay if present.
func (s *StationService) Remove(ctx context.Context) error {
	return s.removeOverlay(ctx)
}

// consolidatedFor returns the cached per-pollutant collection, fetching it
// on first use. A failed fetch is treated as "feature absent" and leaves
// the slot empty for a later retry.
func (s *StationService) consolidatedFor(ctx context.Context, p domain.Pollutant) *geojson.FeatureCollection {
	s.mu.Lock()
	if fc, ok := s.consolidated[p]; ok {
		s.mu.Unlock()
		return fc
	}
	s.mu.Unlock()

	fc, err := s.source.FetchConsolidated(ctx, p)
	if err != nil {
		slog.Debug("consolidated stations unavailable", "pollutant", p, "error", err)
		return nil
	}

	s.mu.Lock()
	s.consolidated[p] = fc
	s.mu.Unlock()
	return fc
}

func (s *StationService) consolidatedFiltered(ctx context.Context, p domain.Pollutant, periodKey string) *geojson.FeatureCollection {
	fc := s.consolidatedFor(ctx, p)
	if fc == nil {
		return nil
	}
	out := geojson.NewFeatureCollection()
	for _, f := range fc.Features {
		if domain.FeaturePeriod(f) == periodKey {
			out.Append(f)
		}
	}
	return out
}

func (s *StationService) materialize(ctx context.Context, fc *geojson.FeatureCollection) error {
	if fc == nil || len(fc.Features) == 0 {
		return s.removeOverlay(ctx)
	}

	if s.surface.HasLayer(stationLayerID) {
		if err := s.surface.RemoveLayer(ctx, stationLayerID); err != nil {
			return err
		}
	}
	if s.surface.HasSource(stationSourceID) {
		if err := s.surface.RemoveSource(ctx, stationSourceID); err != nil {
			return err
		}
	}

	if err := s.surface.AddGeoJSONSource(ctx, stationSourceID, fc); err != nil {
		return err
	}
	return s.surface.AddLayer(ctx, stationLayerID, stationSourceID, "circle", "")
}

func (s *StationService) removeOverlay(ctx context.Context) error {
	if s.surface.HasLayer(stationLayerID) {
		if err := s.surface.RemoveLayer(ctx, stationLayerID); err != nil {
			return err
		}
	}
	if s.surface.HasSource(stationSourceID) {
		if err := s.surface.RemoveSource(ctx, stationSourceID); err != nil {
			return err
		}
	}
	return nil
}
