package usecases

import (
	"context"
	"fmt"
	"sync"

	"github.com/NB11/air-pollution-poster-fair/internal/core/domain"
	"github.com/NB11/air-pollution-poster-fair/internal/core/ports"
)

// BoundsService resolves display corner coordinates for a (city, year)
// from the consolidated descriptor, with a single-entry cache. Within one
// browsing session month-to-month and pollutant-to-pollutant switches reuse
// the same bounds repeatedly; switching city or year invalidates by simple
// overwrite.
type BoundsService struct {
	source ports.BoundsSource

	mu         sync.Mutex
	cacheKey   string
	corners    domain.DisplayCorners
	descriptor *domain.BoundsDescriptor
}

// NewBoundsService creates a new BoundsService.
func NewBoundsService(source ports.BoundsSource) *BoundsService {
	return &BoundsService{source: source}
}

// Resolve returns the four display corners and the descriptor they came
// from. On a cache hit no network access happens.
func (s *BoundsService) Resolve(ctx context.Context, city, year string) (domain.DisplayCorners, *domain.BoundsDescriptor, error) {
	key := cityOrDefault(city) + year

	s.mu.Lock()
	if s.cacheKey == key && s.descriptor != nil {
		c, d := s.corners, s.descriptor
		s.mu.Unlock()
		return c, d, nil
	}
	s.mu.Unlock()

	desc, err := s.source.FetchBounds(ctx, city, year)
	if err != nil {
		return domain.DisplayCorners{}, nil, fmt.Errorf("%w: %s/%s: %v",
			domain.ErrBoundsUnavailable, cityOrDefault(city), year, err)
	}

	corners, ok := desc.Corners()
	if !ok {
		return domain.DisplayCorners{}, nil, fmt.Errorf("%w: %s/%s: descriptor lacks 4 corner coordinates",
			domain.ErrBoundsUnavailable, cityOrDefault(city), year)
	}

	s.mu.Lock()
	s.cacheKey = key
	s.corners = corners
	s.descriptor = desc
	s.mu.Unlock()

	return corners, desc, nil
}

func cityOrDefault(city string) string {
	if city == "" {
		return "default"
	}
	return city
}
