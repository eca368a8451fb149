package domain

import "github.com/paulmach/orb/geojson"

// Property names on station features, as written by the preparation
// pipeline.
const (
	PropStationID   = "station_id"
	PropPeriodKey   = "period_key"
	PropGroundTruth = "ground_truth_value"
	PropPredicted   = "predicted_value"
)

// StationID returns the feature's station identifier, or "" when absent.
func StationID(f *geojson.Feature) string {
	if f == nil || f.Properties == nil {
		return ""
	}
	if s, ok := f.Properties[PropStationID].(string); ok {
		return s
	}
	return ""
}

// FeaturePeriod returns the feature's "YYYY-MM" period key, or "" when absent.
func FeaturePeriod(f *geojson.Feature) string {
	if f == nil || f.Properties == nil {
		return ""
	}
	if s, ok := f.Properties[PropPeriodKey].(string); ok {
		return s
	}
	return ""
}

// GroundTruth returns the feature's observed value.
func GroundTruth(f *geojson.Feature) (float64, bool) {
	return numericProp(f, PropGroundTruth)
}

// Predicted returns the feature's model prediction, when present.
func Predicted(f *geojson.Feature) (float64, bool) {
	return numericProp(f, PropPredicted)
}

func numericProp(f *geojson.Feature, key string) (float64, bool) {
	if f == nil || f.Properties == nil {
		return 0, false
	}
	switch v := f.Properties[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}
