package http

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/NB11/air-pollution-poster-fair/internal/core/domain"
	"github.com/NB11/air-pollution-poster-fair/internal/pkg/metrics"
)

// CityInfo describes one selectable city.
type CityInfo struct {
	Name    string   `json:"name"`
	Years   []string `json:"years"`
	Default bool     `json:"default"`
}

// ListCitiesHandler returns the selectable cities and years.
func ListCitiesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cities := make([]CityInfo, 0, len(deps.Config.View.Cities))
		for _, name := range deps.Config.View.Cities {
			cities = append(cities, CityInfo{
				Name:    name,
				Years:   deps.Config.View.Years,
				Default: name == deps.Config.View.DefaultCity,
			})
		}
		c.Set("Cache-Control", "public, max-age=3600")
		return c.JSON(fiber.Map{"cities": cities})
	}
}

// PollutantInfo is the published display metadata for one pollutant.
type PollutantInfo struct {
	Name     string  `json:"name"`
	VMin     float64 `json:"vmin"`
	VMax     float64 `json:"vmax"`
	Colormap string  `json:"colormap"`
	Unit     string  `json:"unit"`
}

// ListPollutantsHandler returns the displayable pollutants with their
// fallback scales.
func ListPollutantsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		out := make([]PollutantInfo, 0, len(domain.Pollutants))
		for _, p := range domain.Pollutants {
			s := p.DefaultScale()
			out = append(out, PollutantInfo{
				Name:     string(p),
				VMin:     s.VMin,
				VMax:     s.VMax,
				Colormap: s.Colormap,
				Unit:     p.DisplayUnit(),
			})
		}
		c.Set("Cache-Control", "public, max-age=3600")
		return c.JSON(fiber.Map{"pollutants": out})
	}
}

// BoundsResponse is the resolved placement and scales for a (city, year).
type BoundsResponse struct {
	City       string                           `json:"city"`
	Year       string                           `json:"year"`
	Corners    domain.DisplayCorners            `json:"corners"` // TL, TR, BR, BL
	Pollutants map[string]domain.PollutantScale `json:"pollutants"`
}

// CityBoundsHandler resolves the bounds descriptor for a city and year.
func CityBoundsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		city := c.Params("city")
		year := c.Query("year", deps.Config.View.Years[0])

		if !deps.Config.HasCity(city) {
			return errNotFound(c, "unknown city: "+city)
		}
		if !deps.Config.HasYear(year) {
			return errBadRequest(c, "unknown year: "+year)
		}

		corners, desc, err := deps.Bounds.Resolve(c.UserContext(), city, year)
		if err != nil {
			if errors.Is(err, domain.ErrBoundsUnavailable) {
				return errUnavailable(c, "bounds unavailable for "+city+"/"+year)
			}
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=3600")
		return c.JSON(BoundsResponse{
			City:       desc.City,
			Year:       desc.Year,
			Corners:    corners,
			Pollutants: desc.Pollutants,
		})
	}
}

// ViewStateHandler returns the current view state.
func ViewStateHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("Cache-Control", "no-cache")
		return c.JSON(deps.Layers.State())
	}
}

// layerRequest is the body of POST /v1/view/layer.
type layerRequest struct {
	City      string `json:"city"`
	Pollutant string `json:"pollutant"`
	Year      string `json:"year"`
	Month     string `json:"month"`
}

// normalizeMonth accepts "3", "03", or 3 and returns the zero-padded form.
func normalizeMonth(raw string) (string, error) {
	m, err := strconv.Atoi(raw)
	if err != nil || m < 1 || m > 12 {
		return "", fmt.Errorf("month must be 1-12, got %q", raw)
	}
	return fmt.Sprintf("%02d", m), nil
}

// ApplyLayerHandler runs one view-state transition.
func ApplyLayerHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req layerRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		p := domain.Pollutant(req.Pollutant)
		if !p.Valid() {
			return errBadRequest(c, "unknown pollutant: "+req.Pollutant)
		}

		key := domain.LayerKey{Pollutant: p}
		if !p.IsSentinel() {
			if !deps.Config.HasCity(req.City) {
				return errBadRequest(c, "unknown city: "+req.City)
			}
			if !deps.Config.HasYear(req.Year) {
				return errBadRequest(c, "unknown year: "+req.Year)
			}
			month, err := normalizeMonth(req.Month)
			if err != nil {
				return errBadRequest(c, err.Error())
			}
			key.City = req.City
			key.Year = req.Year
			key.Month = month
		}

		path, err := deps.Layers.Apply(c.UserContext(), key)
		if err != nil {
			metrics.TransitionErrors.WithLabelValues(string(path)).Inc()
			if errors.Is(err, domain.ErrBoundsUnavailable) || errors.Is(err, domain.ErrFetchUnavailable) {
				return errUnavailable(c, err.Error())
			}
			return errInternal(c, err.Error())
		}
		metrics.TransitionsTotal.WithLabelValues(string(path)).Inc()

		return c.JSON(fiber.Map{
			"path":  path,
			"state": deps.Layers.State(),
		})
	}
}

// opacityRequest is the body of POST /v1/view/opacity.
type opacityRequest struct {
	Opacity float64 `json:"opacity"`
}

// SetOpacityHandler updates the shared raster opacity.
func SetOpacityHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req opacityRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		if err := deps.Layers.SetOpacity(c.UserContext(), req.Opacity); err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(fiber.Map{"state": deps.Layers.State()})
	}
}

// stationsToggleRequest is the body of POST /v1/view/stations.
type stationsToggleRequest struct {
	ShowAll bool `json:"show_all"`
}

// ShowAllStationsHandler toggles the global station overlay.
func ShowAllStationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req stationsToggleRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		if err := deps.Layers.SetShowAllStations(c.UserContext(), req.ShowAll); err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(fiber.Map{"state": deps.Layers.State()})
	}
}

// StationDTO is one station observation with display-unit conversion
// applied. Raw gas measurements are stored in ppb; particulates pass
// through unchanged.
type StationDTO struct {
	StationID    string   `json:"station_id"`
	Lon          float64  `json:"lon"`
	Lat          float64  `json:"lat"`
	PeriodKey    string   `json:"period_key,omitempty"`
	GroundTruth  *float64 `json:"ground_truth,omitempty"`
	Predicted    *float64 `json:"predicted,omitempty"`
	DisplayValue *float64 `json:"display_value,omitempty"`
	DisplayUnit  string   `json:"display_unit"`
}

// ListStationsHandler returns station observations for one (city,
// pollutant, year, month), falling back to the consolidated collection
// filtered by period when the per-period prediction file is missing.
func ListStationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		city := c.Query("city")
		year := c.Query("year")
		rawMonth := c.Query("month")
		p := domain.Pollutant(c.Query("pollutant"))

		if !p.Valid() || p.IsSentinel() {
			return errBadRequest(c, "pollutant must be one of NO2, O3, SO2, PM2.5, PM10")
		}
		if !deps.Config.HasCity(city) {
			return errBadRequest(c, "unknown city: "+city)
		}
		if !deps.Config.HasYear(year) {
			return errBadRequest(c, "unknown year: "+year)
		}
		month, err := normalizeMonth(rawMonth)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		ctx := c.UserContext()
		period := year + "-" + month

		fc, err := deps.Stations.FetchPredictions(ctx, city, p, year, month)
		if err != nil {
			all, cErr := deps.Stations.FetchConsolidated(ctx, p)
			if cErr != nil {
				// Neither source has data for this selection.
				c.Set("Cache-Control", "public, max-age=300")
				return c.JSON(fiber.Map{"stations": []StationDTO{}, "period": period})
			}
			filtered := geojsonFilterPeriod(all, period)
			fc = filtered
		}

		out := make([]StationDTO, 0, len(fc.Features))
		for _, f := range fc.Features {
			pt, ok := f.Geometry.(orb.Point)
			if !ok {
				continue
			}
			dto := StationDTO{
				StationID:   domain.StationID(f),
				Lon:         pt[0],
				Lat:         pt[1],
				PeriodKey:   domain.FeaturePeriod(f),
				DisplayUnit: p.DisplayUnit(),
			}
			if v, ok := domain.GroundTruth(f); ok {
				dto.GroundTruth = &v
				display := p.DisplayValue(v)
				dto.DisplayValue = &display
			}
			if v, ok := domain.Predicted(f); ok {
				dto.Predicted = &v
			}
			out = append(out, dto)
		}

		c.Set("Cache-Control", "public, max-age=300")
		return c.JSON(fiber.Map{"stations": out, "period": period})
	}
}

// geojsonFilterPeriod keeps the features whose period key matches.
func geojsonFilterPeriod(fc *geojson.FeatureCollection, period string) *geojson.FeatureCollection {
	out := geojson.NewFeatureCollection()
	for _, f := range fc.Features {
		if domain.FeaturePeriod(f) == period {
			out.Append(f)
		}
	}
	return out
}
