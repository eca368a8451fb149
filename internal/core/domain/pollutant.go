package domain

import "strings"

// Pollutant identifies one displayable pollutant dimension, or one of the
// two sentinel selections the UI can request.
type Pollutant string

const (
	PollutantNO2  Pollutant = "NO2"
	PollutantO3   Pollutant = "O3"
	PollutantSO2  Pollutant = "SO2"
	PollutantPM25 Pollutant = "PM2.5"
	PollutantPM10 Pollutant = "PM10"

	// PollutantCtrl switches the slider into opacity-control mode.
	PollutantCtrl Pollutant = "CTRL"
	// PollutantNone is the "no data" selection: tear down the current layer.
	PollutantNone Pollutant = "none"
)

// Pollutants lists the concrete (non-sentinel) pollutants in display order.
var Pollutants = []Pollutant{
	PollutantNO2, PollutantO3, PollutantSO2, PollutantPM25, PollutantPM10,
}

// Valid reports whether p is a known pollutant or sentinel.
func (p Pollutant) Valid() bool {
	switch p {
	case PollutantNO2, PollutantO3, PollutantSO2, PollutantPM25, PollutantPM10,
		PollutantCtrl, PollutantNone:
		return true
	}
	return false
}

// IsSentinel reports whether p is one of the control selections rather than
// a materializable pollutant.
func (p Pollutant) IsSentinel() bool {
	return p == PollutantCtrl || p == PollutantNone
}

// AssetName returns the pollutant name as it appears in asset file names,
// with dots replaced by underscores (PM2.5 -> PM2_5).
func (p Pollutant) AssetName() string {
	return strings.ReplaceAll(string(p), ".", "_")
}

// DefaultScale returns the fallback display scale used when a bounds
// descriptor carries no entry for the pollutant. Values mirror the scales
// the preparation pipeline bakes into the raster assets.
func (p Pollutant) DefaultScale() PollutantScale {
	switch p {
	case PollutantNO2:
		return PollutantScale{VMin: 0, VMax: 50, Colormap: DefaultColormap}
	case PollutantO3:
		return PollutantScale{VMin: 20, VMax: 80, Colormap: DefaultColormap}
	case PollutantSO2:
		return PollutantScale{VMin: 0, VMax: 10, Colormap: DefaultColormap}
	case PollutantPM25:
		return PollutantScale{VMin: 0, VMax: 35, Colormap: DefaultColormap}
	case PollutantPM10:
		return PollutantScale{VMin: 0, VMax: 50, Colormap: DefaultColormap}
	}
	return PollutantScale{VMin: 0, VMax: 1, Colormap: DefaultColormap}
}

// conversionFactor is the ppb -> µg/m³ factor applied at display time.
// Particulate matter is already reported in µg/m³ and passes through.
func (p Pollutant) conversionFactor() float64 {
	switch p {
	case PollutantNO2:
		return 1.88
	case PollutantO3:
		return 1.96
	case PollutantSO2:
		return 2.62
	}
	return 1
}

// DisplayValue converts a raw station measurement to the display unit.
func (p Pollutant) DisplayValue(v float64) float64 {
	return v * p.conversionFactor()
}

// DisplayUnit returns the unit shown next to converted station values.
func (p Pollutant) DisplayUnit() string { return "µg/m³" }
