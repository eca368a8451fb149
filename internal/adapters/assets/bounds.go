package assets

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/NB11/air-pollution-poster-fair/internal/core/domain"
)

// FetchBounds retrieves and parses the consolidated bounds descriptor for a
// (city, year) asset directory.
func (c *Client) FetchBounds(ctx context.Context, city, year string) (*domain.BoundsDescriptor, error) {
	path := fmt.Sprintf("%s/%s/bounds.json", city, year)
	data, err := c.fetch(ctx, path, "bounds")
	if err != nil {
		return nil, err
	}

	var desc domain.BoundsDescriptor
	if err := json.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("parse %s: %v: %w", path, err, domain.ErrDecodeFailure)
	}
	return &desc, nil
}
