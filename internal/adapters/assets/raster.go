package assets

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"time"

	"github.com/gen2brain/webp"

	"github.com/NB11/air-pollution-poster-fair/internal/core/domain"
	"github.com/NB11/air-pollution-poster-fair/internal/pkg/metrics"
)

// FetchGrid retrieves one raster asset and unpacks it into per-band numeric
// arrays. The tree stores pre-rendered RGB images, so the grid always
// carries three 8-bit bands.
func (c *Client) FetchGrid(ctx context.Context, key domain.LayerKey, colormap string) (*domain.RasterGrid, error) {
	path := fmt.Sprintf("%s/%s/%s", key.City, key.Year, key.AssetFile(colormap, c.ext))
	data, err := c.fetch(ctx, path, "raster")
	if err != nil {
		return nil, err
	}

	start := time.Now()
	img, err := decodeImage(data, c.ext)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %v: %w", path, err, domain.ErrDecodeFailure)
	}
	grid := gridFromImage(img)
	metrics.RasterDecodeDuration.Observe(time.Since(start).Seconds())

	return grid, nil
}

// decodeImage decodes raster bytes in the given format.
func decodeImage(data []byte, format string) (image.Image, error) {
	r := bytes.NewReader(data)
	switch format {
	case "webp":
		return webp.Decode(r)
	case "png":
		return png.Decode(r)
	default:
		return nil, fmt.Errorf("unsupported raster format %q", format)
	}
}

// gridFromImage flattens an image into three row-major band arrays holding
// the 8-bit R, G, B channel values.
func gridFromImage(img image.Image) *domain.RasterGrid {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	bands := make([][]float64, 3)
	for i := range bands {
		bands[i] = make([]float64, w*h)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			i := y*w + x
			bands[0][i] = float64(r >> 8)
			bands[1][i] = float64(g >> 8)
			bands[2][i] = float64(bl >> 8)
		}
	}

	return &domain.RasterGrid{BandCount: 3, Width: w, Height: h, Bands: bands}
}
