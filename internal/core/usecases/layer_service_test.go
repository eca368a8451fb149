package usecases_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/NB11/air-pollution-poster-fair/internal/core/domain"
	"github.com/NB11/air-pollution-poster-fair/internal/core/usecases"
)

type harness struct {
	bounds   *mockBoundsSource
	rasters  *mockRasterSource
	stations *mockStationSource
	surface  *fakeSurface
	svc      *usecases.LayerService
}

func newHarness() *harness {
	h := &harness{
		bounds:   &mockBoundsSource{},
		rasters:  &mockRasterSource{},
		stations: &mockStationSource{},
		surface:  newFakeSurface(),
	}
	stationSvc := usecases.NewStationService(h.stations, h.surface)
	h.svc = usecases.NewLayerService(
		usecases.NewBoundsService(h.bounds),
		h.rasters,
		stationSvc,
		h.surface,
		nil,
	)
	return h
}

func key(city string, p domain.Pollutant, year, month string) domain.LayerKey {
	return domain.LayerKey{City: city, Pollutant: p, Year: year, Month: month}
}

func TestClassify(t *testing.T) {
	loaded := key("Bologna", domain.PollutantNO2, "2024", "02")
	stateLoaded := domain.NewViewState()
	stateLoaded.Loaded = &loaded

	tests := []struct {
		name  string
		state domain.ViewState
		req   domain.LayerKey
		want  domain.TransitionPath
	}{
		{"ctrl", stateLoaded, key("Bologna", domain.PollutantCtrl, "2024", "02"), domain.TransitionOpacityControl},
		{"no data", stateLoaded, key("Bologna", domain.PollutantNone, "2024", "02"), domain.TransitionTeardown},
		{"month change", stateLoaded, key("Bologna", domain.PollutantNO2, "2024", "03"), domain.TransitionFast},
		{"pollutant change", stateLoaded, key("Bologna", domain.PollutantO3, "2024", "02"), domain.TransitionCold},
		{"city change", stateLoaded, key("Milano", domain.PollutantNO2, "2024", "02"), domain.TransitionCold},
		{"year change", stateLoaded, key("Bologna", domain.PollutantNO2, "2025", "02"), domain.TransitionCold},
		{"nothing loaded", domain.NewViewState(), key("Bologna", domain.PollutantNO2, "2024", "02"), domain.TransitionCold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := usecases.Classify(tt.state, tt.req); got != tt.want {
				t.Errorf("Classify = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLayerService_ColdThenFastPath(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	path, err := h.svc.Apply(ctx, key("Bologna", domain.PollutantNO2, "2024", "02"))
	if err != nil {
		t.Fatalf("cold apply: %v", err)
	}
	if path != domain.TransitionCold {
		t.Fatalf("first request path = %v, want cold", path)
	}

	boundsBefore := h.bounds.callCount()
	rasterBefore := h.rasters.callCount()
	stationBefore := h.stations.predCount()

	path, err = h.svc.Apply(ctx, key("Bologna", domain.PollutantNO2, "2024", "03"))
	if err != nil {
		t.Fatalf("fast apply: %v", err)
	}
	if path != domain.TransitionFast {
		t.Fatalf("month change path = %v, want fast", path)
	}

	if h.bounds.callCount() != boundsBefore || h.rasters.callCount() != rasterBefore {
		t.Errorf("fast path fetched: bounds %d->%d rasters %d->%d",
			boundsBefore, h.bounds.callCount(), rasterBefore, h.rasters.callCount())
	}
	if h.stations.predCount() != stationBefore+1 {
		t.Errorf("fast path station attempts = %d, want exactly 1",
			h.stations.predCount()-stationBefore)
	}

	st := h.svc.State()
	if st.Loaded == nil || st.Loaded.Month != "03" {
		t.Errorf("LoadedState = %+v, want month 03", st.Loaded)
	}
}

func TestLayerService_ColdPathSwapsPair(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	if _, err := h.svc.Apply(ctx, key("Bologna", domain.PollutantNO2, "2024", "02")); err != nil {
		t.Fatal(err)
	}
	// fakeSurface rejects duplicate ids, so a second materialization that
	// did not tear down first would error here.
	if _, err := h.svc.Apply(ctx, key("Bologna", domain.PollutantO3, "2024", "02")); err != nil {
		t.Fatalf("pollutant change: %v", err)
	}

	removedBeforeAdd := false
	var seenRemove bool
	for _, op := range h.surface.opsSnapshot() {
		if op.ID != "pollution-raster-layer" {
			continue
		}
		if op.Kind == "removeLayer" {
			seenRemove = true
		}
		if op.Kind == "addLayer" && seenRemove {
			removedBeforeAdd = true
		}
	}
	if !removedBeforeAdd {
		t.Error("previous raster layer must be removed before the new one is added")
	}

	if !h.surface.HasLayer("pollution-raster-layer") || !h.surface.HasSource("pollution-raster") {
		t.Error("exactly one current source/layer pair should remain")
	}
}

func TestLayerService_RasterInsertedBelowStations(t *testing.T) {
	h := newHarness()
	h.stations.predFn = func(ctx context.Context, city string, p domain.Pollutant, year, month string) (*geojson.FeatureCollection, error) {
		fc := geojson.NewFeatureCollection()
		fc.Append(stationFeature("st-1", year+"-"+month))
		return fc, nil
	}
	ctx := context.Background()

	// First apply materializes both raster and stations.
	if _, err := h.svc.Apply(ctx, key("Bologna", domain.PollutantNO2, "2024", "02")); err != nil {
		t.Fatal(err)
	}
	// Second cold apply happens with a station layer already present.
	if _, err := h.svc.Apply(ctx, key("Bologna", domain.PollutantO3, "2024", "02")); err != nil {
		t.Fatal(err)
	}

	var lastRasterAdd surfaceOp
	for _, op := range h.surface.opsSnapshot() {
		if op.Kind == "addLayer" && op.ID == "pollution-raster-layer" {
			lastRasterAdd = op
		}
	}
	if lastRasterAdd.Before != "ground-truth-stations-layer" {
		t.Errorf("raster layer inserted before %q, want below the station layer", lastRasterAdd.Before)
	}
}

func TestLayerService_FailedFetchKeepsState(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	if _, err := h.svc.Apply(ctx, key("Bologna", domain.PollutantNO2, "2024", "02")); err != nil {
		t.Fatal(err)
	}

	h.rasters.fetchFn = func(ctx context.Context, k domain.LayerKey, colormap string) (*domain.RasterGrid, error) {
		return nil, domain.ErrFetchUnavailable
	}

	if _, err := h.svc.Apply(ctx, key("Milano", domain.PollutantNO2, "2024", "02")); err == nil {
		t.Fatal("expected a recoverable error")
	}

	st := h.svc.State()
	if st.Loaded == nil || st.Loaded.City != "Bologna" {
		t.Errorf("failed cold path must not mutate LoadedState, got %+v", st.Loaded)
	}
	if !h.surface.HasLayer("pollution-raster-layer") {
		t.Error("previous layer must remain displayed")
	}
}

func TestLayerService_OpacityControlMode(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	if _, err := h.svc.Apply(ctx, key("Bologna", domain.PollutantNO2, "2024", "02")); err != nil {
		t.Fatal(err)
	}

	rasterBefore := h.rasters.callCount()
	path, err := h.svc.Apply(ctx, key("Bologna", domain.PollutantCtrl, "2024", "02"))
	if err != nil {
		t.Fatal(err)
	}
	if path != domain.TransitionOpacityControl {
		t.Fatalf("path = %v", path)
	}
	if h.rasters.callCount() != rasterBefore {
		t.Error("entering control mode must not fetch")
	}

	st := h.svc.State()
	if !st.OpacityControl || st.Slider != domain.PercentSlider {
		t.Errorf("state = %+v, want percent slider in control mode", st)
	}

	// Leaving control mode restores the month domain.
	if _, err := h.svc.Apply(ctx, key("Bologna", domain.PollutantNO2, "2024", "04")); err != nil {
		t.Fatal(err)
	}
	st = h.svc.State()
	if st.OpacityControl || st.Slider != domain.MonthSlider {
		t.Errorf("state after leaving control = %+v, want month slider", st)
	}
}

func TestLayerService_NoDataTearsDown(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	if _, err := h.svc.Apply(ctx, key("Bologna", domain.PollutantNO2, "2024", "02")); err != nil {
		t.Fatal(err)
	}
	stationBefore := h.stations.predCount()

	path, err := h.svc.Apply(ctx, key("Bologna", domain.PollutantNone, "2024", "02"))
	if err != nil {
		t.Fatal(err)
	}
	if path != domain.TransitionTeardown {
		t.Fatalf("path = %v", path)
	}
	if h.surface.HasLayer("pollution-raster-layer") || h.surface.HasSource("pollution-raster") {
		t.Error("no-data request must remove the raster pair")
	}
	if h.svc.State().Loaded != nil {
		t.Error("LoadedState must be cleared")
	}
	if h.stations.predCount() != stationBefore {
		t.Error("no-data request must not touch the station overlay")
	}
}

func TestLayerService_ShowAllSuppressesStationLoad(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	if err := h.svc.SetShowAllStations(ctx, true); err != nil {
		t.Fatal(err)
	}
	predBefore := h.stations.predCount()

	if _, err := h.svc.Apply(ctx, key("Bologna", domain.PollutantNO2, "2024", "02")); err != nil {
		t.Fatal(err)
	}
	if h.stations.predCount() != predBefore {
		t.Error("per-period station loading must be suppressed in show-all mode")
	}
}

func TestLayerService_SetOpacityClamped(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	if err := h.svc.SetOpacity(ctx, 1.7); err != nil {
		t.Fatal(err)
	}
	if got := h.svc.State().Opacity; got != 1 {
		t.Errorf("opacity = %v, want clamped to 1", got)
	}
	if err := h.svc.SetOpacity(ctx, -0.3); err != nil {
		t.Fatal(err)
	}
	if got := h.svc.State().Opacity; got != 0 {
		t.Errorf("opacity = %v, want clamped to 0", got)
	}
}

func TestLayerService_StartOpacityOption(t *testing.T) {
	build := func(opts ...usecases.LayerOption) *usecases.LayerService {
		surface := newFakeSurface()
		return usecases.NewLayerService(
			usecases.NewBoundsService(&mockBoundsSource{}),
			&mockRasterSource{},
			usecases.NewStationService(&mockStationSource{}, surface),
			surface,
			nil,
			opts...,
		)
	}

	if got := build(usecases.WithStartOpacity(0.55)).State().Opacity; got != 0.55 {
		t.Errorf("opacity = %v, want 0.55", got)
	}
	// Out-of-range values keep the built-in default.
	if got := build(usecases.WithStartOpacity(1.5)).State().Opacity; got != domain.DefaultOpacity {
		t.Errorf("opacity = %v, want default %v", got, domain.DefaultOpacity)
	}
}

func TestLayerService_StaleCompletionDropped(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	release := make(chan struct{})
	h.rasters.fetchFn = func(ctx context.Context, k domain.LayerKey, colormap string) (*domain.RasterGrid, error) {
		if k.City == "Milano" {
			<-release
		}
		return testGrid(), nil
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		// Initiated first, completes last.
		_, _ = h.svc.Apply(ctx, key("Milano", domain.PollutantNO2, "2024", "01"))
	}()

	// Make sure the slow request holds its generation before the next one.
	for h.rasters.callCount() == 0 {
		time.Sleep(time.Millisecond)
	}

	if _, err := h.svc.Apply(ctx, key("Bologna", domain.PollutantNO2, "2024", "02")); err != nil {
		t.Fatal(err)
	}

	close(release)
	wg.Wait()

	st := h.svc.State()
	if st.Loaded == nil || st.Loaded.City != "Bologna" {
		t.Errorf("final state must reflect the most recently initiated request, got %+v", st.Loaded)
	}
	if !h.surface.HasLayer("pollution-raster-layer") {
		t.Error("current layer must remain materialized")
	}
}
