package ports

import (
	"context"

	"github.com/paulmach/orb/geojson"

	"github.com/NB11/air-pollution-poster-fair/internal/core/domain"
)

// MapSurface is the rendering surface the engine mutates. Implementations
// wrap a third-party map display's primitive operations; the engine never
// depends on anything beyond these.
type MapSurface interface {
	AddImageSource(ctx context.Context, id string, img *domain.DecodedImage, corners domain.DisplayCorners) error
	AddGeoJSONSource(ctx context.Context, id string, fc *geojson.FeatureCollection) error
	RemoveSource(ctx context.Context, id string) error

	// AddLayer places a layer bound to sourceID. A non-empty beforeID
	// inserts the layer directly below that layer.
	AddLayer(ctx context.Context, id, sourceID, layerType, beforeID string) error
	RemoveLayer(ctx context.Context, id string) error

	SetPaintProperty(ctx context.Context, layerID, name string, value any) error

	HasLayer(id string) bool
	HasSource(id string) bool
}

// CacheService provides read-through caching for fetched asset bytes.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// EventPublisher publishes view-state events to a message broker.
type EventPublisher interface {
	PublishTransition(ctx context.Context, ev *domain.TransitionEvent) error
	PublishBroadcast(ctx context.Context, data []byte) error
}
