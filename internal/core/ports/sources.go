package ports

import (
	"context"

	"github.com/paulmach/orb/geojson"

	"github.com/NB11/air-pollution-poster-fair/internal/core/domain"
)

// BoundsSource retrieves the consolidated per-(city, year) bounds
// descriptor from the asset tree.
type BoundsSource interface {
	FetchBounds(ctx context.Context, city, year string) (*domain.BoundsDescriptor, error)
}

// RasterSource retrieves and unpacks one raster asset into band arrays.
type RasterSource interface {
	FetchGrid(ctx context.Context, key domain.LayerKey, colormap string) (*domain.RasterGrid, error)
}

// StationSource retrieves station point-feature overlays.
type StationSource interface {
	// FetchPredictions loads the per-city prediction file already scoped
	// to one (pollutant, year, month) period.
	FetchPredictions(ctx context.Context, city string, p domain.Pollutant, year, month string) (*geojson.FeatureCollection, error)

	// FetchConsolidated loads the per-pollutant ground-truth collection
	// covering all periods.
	FetchConsolidated(ctx context.Context, p domain.Pollutant) (*geojson.FeatureCollection, error)
}
