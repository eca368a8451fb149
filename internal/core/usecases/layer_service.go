package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/NB11/air-pollution-poster-fair/internal/core/domain"
	"github.com/NB11/air-pollution-poster-fair/internal/core/ports"
)

// Fixed ids for the "current" raster slot and the station overlay on the
// rendering surface.
const (
	rasterSourceID  = "pollution-raster"
	rasterLayerID   = "pollution-raster-layer"
	stationSourceID = "ground-truth-stations"
	stationLayerID  = "ground-truth-stations-layer"
)

// rasterOpacityProp is the paint property driving raster transparency.
const rasterOpacityProp = "raster-opacity"

// LayerService is the view-state machine: given a requested (city,
// pollutant, year, month) or an opacity change it decides what to fetch,
// what to materialize on the surface, what to evict, and what to leave
// untouched. It owns the single ViewState instance.
type LayerService struct {
	bounds   *BoundsService
	rasters  ports.RasterSource
	stations *StationService
	surface  ports.MapSurface
	events   ports.EventPublisher // optional

	mu    sync.Mutex
	state domain.ViewState
	// latestGen identifies the most recently initiated request. A
	// cold-path completion whose generation no longer matches is stale
	// and must not touch the surface or the view state.
	latestGen uint64
}

// LayerOption configures a LayerService at construction time.
type LayerOption func(*LayerService)

// WithStartOpacity overrides the startup raster opacity. Values outside
// [0,1] are ignored in favor of the built-in default.
func WithStartOpacity(v float64) LayerOption {
	return func(s *LayerService) {
		if v >= 0 && v <= 1 {
			s.state.Opacity = v
		}
	}
}

// NewLayerService creates the machine in the Idle state.
func NewLayerService(
	bounds *BoundsService,
	rasters ports.RasterSource,
	stations *StationService,
	surface ports.MapSurface,
	events ports.EventPublisher,
	opts ...LayerOption,
) *LayerService {
	s := &LayerService{
		bounds:   bounds,
		rasters:  rasters,
		stations: stations,
		surface:  surface,
		events:   events,
		state:    domain.NewViewState(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// State returns a copy of the current view state.
func (s *LayerService) State() domain.ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Classify is the pure transition table: it maps (state, request) to the
// path Apply will take, with no side effects.
func Classify(state domain.ViewState, req domain.LayerKey) domain.TransitionPath {
	switch {
	case req.Pollutant == domain.PollutantCtrl:
		return domain.TransitionOpacityControl
	case req.Pollutant == domain.PollutantNone:
		return domain.TransitionTeardown
	case state.Loaded != nil && state.Loaded.SamePlacement(req):
		return domain.TransitionFast
	default:
		return domain.TransitionCold
	}
}

// Apply runs one transition. The request is captured by value here and
// carried through to completion; it is never re-read from shared state
// after a suspension point.
func (s *LayerService) Apply(ctx context.Context, req domain.LayerKey) (domain.TransitionPath, error) {
	s.mu.Lock()
	s.latestGen++
	gen := s.latestGen
	path := Classify(s.state, req)
	leavingControl := s.state.OpacityControl && path != domain.TransitionOpacityControl

	switch path {
	case domain.TransitionOpacityControl:
		s.state.OpacityControl = true
		s.state.Slider = domain.PercentSlider
		opacity := s.state.Opacity
		loaded := s.state.Loaded != nil
		s.mu.Unlock()
		if loaded {
			if err := s.surface.SetPaintProperty(ctx, rasterLayerID, rasterOpacityProp, opacity); err != nil {
				return path, err
			}
		}
		s.publish(ctx, path, nil)
		return path, nil

	case domain.TransitionTeardown:
		if leavingControl {
			s.restoreSliderLocked()
		}
		s.state.Loaded = nil
		s.mu.Unlock()
		if err := s.teardownRaster(ctx); err != nil {
			return path, err
		}
		s.publish(ctx, path, nil)
		return path, nil

	case domain.TransitionFast:
		if leavingControl {
			s.restoreSliderLocked()
		}
		key := req
		s.state.Loaded = &key
		opacity := s.state.Opacity
		suppressStations := s.state.ShowAllStations
		s.mu.Unlock()
		if leavingControl {
			if err := s.surface.SetPaintProperty(ctx, rasterLayerID, rasterOpacityProp, opacity); err != nil {
				return path, err
			}
		}
		s.loadStations(ctx, req, suppressStations)
		s.publish(ctx, path, &key)
		return path, nil

	default: // cold path
		if leavingControl {
			s.restoreSliderLocked()
		}
		suppressStations := s.state.ShowAllStations
		s.mu.Unlock()
		if err := s.materialize(ctx, req, gen); err != nil {
			return path, err
		}
		s.loadStations(ctx, req, suppressStations)
		key := req
		s.publish(ctx, path, &key)
		return path, nil
	}
}

// SetOpacity clamps and stores the shared opacity and re-applies it to
// whichever layer is currently materialized.
func (s *LayerService) SetOpacity(ctx context.Context, v float64) error {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}

	s.mu.Lock()
	s.state.Opacity = v
	loaded := s.state.Loaded != nil
	s.mu.Unlock()

	if loaded {
		return s.surface.SetPaintProperty(ctx, rasterLayerID, rasterOpacityProp, v)
	}
	return nil
}

// SetShowAllStations toggles the global station overlay. Enabling it
// replaces the per-period overlay with the all-stations union; disabling
// it reloads the overlay for the current key, or removes it when nothing
// is loaded.
func (s *LayerService) SetShowAllStations(ctx context.Context, enabled bool) error {
	s.mu.Lock()
	s.state.ShowAllStations = enabled
	loaded := s.state.Loaded
	s.mu.Unlock()

	if enabled {
		return s.stations.ShowAll(ctx)
	}
	if loaded != nil {
		return s.stations.Load(ctx, loaded.City, loaded.Pollutant, loaded.Year, loaded.Month)
	}
	return s.stations.Remove(ctx)
}

// materialize runs the cold path: resolve bounds, fetch and decode the
// raster, then atomically swap the current source/layer pair. The previous
// pair is torn down before the new one is added so the fixed ids never
// exist twice. A failure before the swap leaves the previous layer and
// LoadedState untouched.
func (s *LayerService) materialize(ctx context.Context, req domain.LayerKey, gen uint64) error {
	corners, desc, err := s.bounds.Resolve(ctx, req.City, req.Year)
	if err != nil {
		return err
	}

	scale := desc.Scale(req.Pollutant)
	grid, err := s.rasters.FetchGrid(ctx, req, scale.Colormap)
	if err != nil {
		return fmt.Errorf("raster %s: %w", req.AssetFile(scale.Colormap, "webp"), err)
	}

	img, err := DecodeRaster(grid, domain.DecodeOptions{})
	if err != nil {
		return err
	}

	s.mu.Lock()
	if gen != s.latestGen {
		// A newer request was initiated while this one was fetching;
		// its outcome wins and this completion is dropped.
		s.mu.Unlock()
		slog.Debug("stale layer materialization dropped",
			"city", req.City, "pollutant", req.Pollutant, "month", req.Month)
		return nil
	}
	opacity := s.state.Opacity
	s.mu.Unlock()

	if err := s.teardownRaster(ctx); err != nil {
		return err
	}

	if err := s.surface.AddImageSource(ctx, rasterSourceID, img, corners); err != nil {
		return err
	}

	// Stations stay visually on top: insert the raster directly below the
	// overlay layer when one exists.
	before := ""
	if s.surface.HasLayer(stationLayerID) {
		before = stationLayerID
	}
	if err := s.surface.AddLayer(ctx, rasterLayerID, rasterSourceID, "raster", before); err != nil {
		return err
	}
	if err := s.surface.SetPaintProperty(ctx, rasterLayerID, rasterOpacityProp, opacity); err != nil {
		return err
	}

	s.mu.Lock()
	if gen == s.latestGen {
		key := req
		s.state.Loaded = &key
	}
	s.mu.Unlock()
	return nil
}

func (s *LayerService) teardownRaster(ctx context.Context) error {
	if s.surface.HasLayer(rasterLayerID) {
		if err := s.surface.RemoveLayer(ctx, rasterLayerID); err != nil {
			return err
		}
	}
	if s.surface.HasSource(rasterSourceID) {
		if err := s.surface.RemoveSource(ctx, rasterSourceID); err != nil {
			return err
		}
	}
	return nil
}

// restoreSliderLocked leaves opacity-control mode. Caller holds s.mu.
func (s *LayerService) restoreSliderLocked() {
	s.state.OpacityControl = false
	s.state.Slider = domain.MonthSlider
}

// loadStations triggers the overlay load for the resolved key unless the
// global overlay is active. Overlay failures degrade to "no overlay" and
// never abort the transition.
func (s *LayerService) loadStations(ctx context.Context, req domain.LayerKey, suppressed bool) {
	if suppressed {
		return
	}
	if err := s.stations.Load(ctx, req.City, req.Pollutant, req.Year, req.Month); err != nil {
		slog.Warn("station overlay load failed",
			"pollutant", req.Pollutant, "period", req.PeriodKey(), "error", err)
	}
}

func (s *LayerService) publish(ctx context.Context, path domain.TransitionPath, key *domain.LayerKey) {
	if s.events == nil {
		return
	}
	_ = s.events.PublishTransition(ctx, &domain.TransitionEvent{
		Path: path,
		Key:  key,
		At:   time.Now(),
	})
}
