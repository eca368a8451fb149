package domain

import "fmt"

// LayerKey identifies one materializable raster layer.
type LayerKey struct {
	City      string    `json:"city"`
	Pollutant Pollutant `json:"pollutant"`
	Year      string    `json:"year"`
	Month     string    `json:"month"` // "01".."12"
}

// Equal reports whether two keys identify the same layer.
func (k LayerKey) Equal(o LayerKey) bool { return k == o }

// SamePlacement reports whether o shares city, pollutant, and year with k.
// A request that only changes the month of the current placement is served
// without any bounds or raster fetch.
func (k LayerKey) SamePlacement(o LayerKey) bool {
	return k.City == o.City && k.Pollutant == o.Pollutant && k.Year == o.Year
}

// PeriodKey returns the "YYYY-MM" key matching station observations to the
// displayed month.
func (k LayerKey) PeriodKey() string {
	return k.Year + "-" + k.Month
}

// AssetFile returns the raster asset file name for this key:
// {pollutant_with_dot_replaced_by_underscore}_month{MM}_{colormap}.{ext}.
func (k LayerKey) AssetFile(colormap, ext string) string {
	return fmt.Sprintf("%s_month%s_%s.%s", k.Pollutant.AssetName(), k.Month, colormap, ext)
}

// SliderRange is the numeric domain the UI slider currently covers.
type SliderRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

var (
	// MonthSlider is the normal-mode slider domain (months 1-12).
	MonthSlider = SliderRange{Min: 1, Max: 12}
	// PercentSlider is the opacity-control slider domain (0-100 %).
	PercentSlider = SliderRange{Min: 0, Max: 100}
)

// DefaultOpacity is the startup raster opacity.
const DefaultOpacity = 0.9

// ViewState records what is currently materialized on the rendering
// surface. It is owned by the layer state machine; other components read it
// to decide whether a request is a no-op.
type ViewState struct {
	// Loaded is the key currently materialized, or nil when no raster
	// layer is on the surface.
	Loaded *LayerKey `json:"loaded,omitempty"`
	// Opacity in [0,1], shared between normal and opacity-control mode.
	Opacity float64 `json:"opacity"`
	// OpacityControl is true while the slider drives opacity instead of
	// month selection.
	OpacityControl bool `json:"opacity_control"`
	// ShowAllStations suppresses per-period station loading while the
	// global overlay is active.
	ShowAllStations bool `json:"show_all_stations"`
	// Slider is the active slider domain.
	Slider SliderRange `json:"slider"`
}

// NewViewState returns the startup state.
func NewViewState() ViewState {
	return ViewState{Opacity: DefaultOpacity, Slider: MonthSlider}
}
