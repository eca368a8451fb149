package assets

import (
	"context"
	"fmt"

	"github.com/paulmach/orb/geojson"

	"github.com/NB11/air-pollution-poster-fair/internal/core/domain"
	"github.com/NB11/air-pollution-poster-fair/internal/pkg/geospatial"
)

// FetchPredictions loads the per-city prediction collection already scoped
// to one (pollutant, year, month) period.
func (c *Client) FetchPredictions(ctx context.Context, city string, p domain.Pollutant, year, month string) (*geojson.FeatureCollection, error) {
	path := fmt.Sprintf("%s/%s/predictions/stations_%s_%s_%s.geojson", city, year, p.AssetName(), year, month)
	return c.fetchCollection(ctx, path)
}

// FetchConsolidated loads the per-pollutant ground-truth collection
// covering all cities and periods.
func (c *Client) FetchConsolidated(ctx context.Context, p domain.Pollutant) (*geojson.FeatureCollection, error) {
	path := fmt.Sprintf("ground_truth_stations/stations_%s.geojson", p.AssetName())
	return c.fetchCollection(ctx, path)
}

// fetchCollection retrieves a GeoJSON file and normalizes its coordinate
// reference to geographic. Station files produced by older pipeline runs
// carry Web-Mercator coordinates.
func (c *Client) fetchCollection(ctx context.Context, path string) (*geojson.FeatureCollection, error) {
	data, err := c.fetch(ctx, path, "stations")
	if err != nil {
		return nil, err
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %v: %w", path, err, domain.ErrDecodeFailure)
	}
	return geospatial.DetectAndReproject(fc), nil
}
