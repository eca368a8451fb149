package usecases_test

import (
	"context"
	"testing"

	"github.com/paulmach/orb/geojson"

	"github.com/NB11/air-pollution-poster-fair/internal/core/domain"
	"github.com/NB11/air-pollution-poster-fair/internal/core/usecases"
)

func TestStationService_PreferredSource(t *testing.T) {
	src := &mockStationSource{
		predFn: func(ctx context.Context, city string, p domain.Pollutant, year, month string) (*geojson.FeatureCollection, error) {
			fc := geojson.NewFeatureCollection()
			fc.Append(stationFeature("st-1", year+"-"+month))
			fc.Append(stationFeature("st-2", year+"-"+month))
			return fc, nil
		},
	}
	surface := newFakeSurface()
	svc := usecases.NewStationService(src, surface)

	if err := svc.Load(context.Background(), "Bologna", domain.PollutantNO2, "2024", "03"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if src.consCount() != 0 {
		t.Errorf("preferred source succeeded; consolidated fetches = %d, want 0", src.consCount())
	}
	if n := surface.featuresIn("ground-truth-stations"); n != 2 {
		t.Errorf("overlay features = %d, want 2", n)
	}
}

func TestStationService_FallbackFilter(t *testing.T) {
	src := &mockStationSource{
		// prediction file is absent
		predFn: func(ctx context.Context, city string, p domain.Pollutant, year, month string) (*geojson.FeatureCollection, error) {
			return nil, domain.ErrFetchUnavailable
		},
		consFn: func(ctx context.Context, p domain.Pollutant) (*geojson.FeatureCollection, error) {
			fc := geojson.NewFeatureCollection()
			fc.Append(stationFeature("st-1", "2024-02"))
			fc.Append(stationFeature("st-2", "2024-03"))
			fc.Append(stationFeature("st-3", "2024-04"))
			return fc, nil
		},
	}
	surface := newFakeSurface()
	svc := usecases.NewStationService(src, surface)

	if err := svc.Load(context.Background(), "Bologna", domain.PollutantNO2, "2024", "03"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if src.consCount() != 1 {
		t.Errorf("consolidated fetches = %d, want 1", src.consCount())
	}
	if n := surface.featuresIn("ground-truth-stations"); n != 1 {
		t.Errorf("overlay features = %d, want exactly the 2024-03 match", n)
	}
}

func TestStationService_ConsolidatedCached(t *testing.T) {
	src := &mockStationSource{
		consFn: func(ctx context.Context, p domain.Pollutant) (*geojson.FeatureCollection, error) {
			fc := geojson.NewFeatureCollection()
			fc.Append(stationFeature("st-1", "2024-03"))
			return fc, nil
		},
	}
	svc := usecases.NewStationService(src, newFakeSurface())
	ctx := context.Background()

	_ = svc.Load(ctx, "Bologna", domain.PollutantNO2, "2024", "03")
	_ = svc.Load(ctx, "Bologna", domain.PollutantNO2, "2024", "04")

	if src.consCount() != 1 {
		t.Errorf("consolidated file should be fetched once, got %d", src.consCount())
	}
}

func TestStationService_EmptyResultRemovesOverlay(t *testing.T) {
	full := &mockStationSource{
		predFn: func(ctx context.Context, city string, p domain.Pollutant, year, month string) (*geojson.FeatureCollection, error) {
			if month == "03" {
				fc := geojson.NewFeatureCollection()
				fc.Append(stationFeature("st-1", year+"-"+month))
				return fc, nil
			}
			return geojson.NewFeatureCollection(), nil
		},
	}
	surface := newFakeSurface()
	svc := usecases.NewStationService(full, surface)
	ctx := context.Background()

	_ = svc.Load(ctx, "Bologna", domain.PollutantNO2, "2024", "03")
	if !surface.HasLayer("ground-truth-stations-layer") {
		t.Fatal("overlay should be materialized for month 03")
	}

	_ = svc.Load(ctx, "Bologna", domain.PollutantNO2, "2024", "05")
	if surface.HasLayer("ground-truth-stations-layer") || surface.HasSource("ground-truth-stations") {
		t.Error("empty feature set must remove the overlay, not leave a stale layer")
	}
}

func TestStationService_ControlSentinelRemoves(t *testing.T) {
	src := &mockStationSource{
		predFn: func(ctx context.Context, city string, p domain.Pollutant, year, month string) (*geojson.FeatureCollection, error) {
			fc := geojson.NewFeatureCollection()
			fc.Append(stationFeature("st-1", year+"-"+month))
			return fc, nil
		},
	}
	surface := newFakeSurface()
	svc := usecases.NewStationService(src, surface)
	ctx := context.Background()

	_ = svc.Load(ctx, "Bologna", domain.PollutantNO2, "2024", "03")
	before := src.predCount()

	if err := svc.Load(ctx, "Bologna", domain.PollutantCtrl, "2024", "03"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.predCount() != before {
		t.Error("control sentinel must not fetch anything")
	}
	if surface.HasLayer("ground-truth-stations-layer") {
		t.Error("control sentinel must remove the overlay")
	}
}

func TestStationService_ShowAllDeduplicates(t *testing.T) {
	src := &mockStationSource{
		consFn: func(ctx context.Context, p domain.Pollutant) (*geojson.FeatureCollection, error) {
			fc := geojson.NewFeatureCollection()
			switch p {
			case domain.PollutantNO2:
				fc.Append(stationFeature("st-1", "2024-01"))
				fc.Append(stationFeature("st-2", "2024-01"))
			case domain.PollutantO3:
				fc.Append(stationFeature("st-2", "2024-02")) // duplicate station
				fc.Append(stationFeature("st-3", "2024-02"))
			default:
				return nil, domain.ErrFetchUnavailable
			}
			return fc, nil
		},
	}
	surface := newFakeSurface()
	svc := usecases.NewStationService(src, surface)

	if err := svc.ShowAll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if n := surface.featuresIn("ground-truth-stations"); n != 3 {
		t.Errorf("union features = %d, want 3 unique stations", n)
	}
}
