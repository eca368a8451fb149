package http

import (
	"github.com/nats-io/nats.go"

	"github.com/NB11/air-pollution-poster-fair/internal/adapters/surface"
	"github.com/NB11/air-pollution-poster-fair/internal/core/ports"
	"github.com/NB11/air-pollution-poster-fair/internal/core/usecases"
	"github.com/NB11/air-pollution-poster-fair/internal/pkg/config"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Layers   *usecases.LayerService
	Bounds   *usecases.BoundsService
	Stations ports.StationSource
	Surface  *surface.Hub
	NATS     *nats.Conn
	Cache    ports.CacheService
	Config   *config.Config
}
