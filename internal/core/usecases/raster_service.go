package usecases

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/NB11/air-pollution-poster-fair/internal/core/domain"
)

// DecodeRaster turns a fetched multi-band grid into a normalized RGBA
// buffer suitable for display. Band selection and the normalization range
// follow the display contract: a single shared range is used for all three
// channels so relative brightness across channels is preserved, and alpha
// is fully opaque for every pixel.
func DecodeRaster(grid *domain.RasterGrid, opts domain.DecodeOptions) (*domain.DecodedImage, error) {
	if grid == nil || grid.Width <= 0 || grid.Height <= 0 {
		return nil, fmt.Errorf("%w: empty raster grid", domain.ErrDecodeFailure)
	}
	if len(grid.Bands) < grid.BandCount || grid.BandCount == 0 {
		return nil, fmt.Errorf("%w: descriptor lists %d bands, %d present",
			domain.ErrDecodeFailure, grid.BandCount, len(grid.Bands))
	}

	n := grid.Width * grid.Height
	for i := 0; i < grid.BandCount; i++ {
		if len(grid.Bands[i]) != n {
			return nil, fmt.Errorf("%w: band %d has %d samples, want %d",
				domain.ErrDecodeFailure, i, len(grid.Bands[i]), n)
		}
	}

	bands, err := selectBands(grid, opts.BandIndices)
	if err != nil {
		return nil, err
	}

	rng := resolveRange(bands, opts.Range)
	width := rng.Width()

	pixels := make([]byte, n*4)
	for i := 0; i < n; i++ {
		for c := 0; c < 3; c++ {
			v := math.Round((bands[c][i] - rng.Min) / width * 255)
			if v < 0 {
				v = 0
			} else if v > 255 {
				v = 255
			}
			pixels[i*4+c] = byte(v)
		}
		pixels[i*4+3] = 255
	}

	return &domain.DecodedImage{Pixels: pixels, Width: grid.Width, Height: grid.Height}, nil
}

// selectBands picks the three display bands: explicit selection first, then
// the first three bands (extra bands beyond three are ignored with a
// warning), then a single band replicated. A 2-band grid is anomalous and
// falls back to band 0 replicated.
func selectBands(grid *domain.RasterGrid, indices *[3]int) ([3][]float64, error) {
	var out [3][]float64

	if indices != nil {
		for i, idx := range indices {
			if idx < 0 || idx >= grid.BandCount {
				return out, fmt.Errorf("%w: band index %d out of range [0,%d)",
					domain.ErrDecodeFailure, idx, grid.BandCount)
			}
			out[i] = grid.Bands[idx]
		}
		return out, nil
	}

	switch {
	case grid.BandCount >= 3:
		if grid.BandCount > 3 {
			slog.Warn("raster carries extra bands, using first three",
				"bands", grid.BandCount)
		}
		out[0], out[1], out[2] = grid.Bands[0], grid.Bands[1], grid.Bands[2]
	case grid.BandCount == 1:
		out[0], out[1], out[2] = grid.Bands[0], grid.Bands[0], grid.Bands[0]
	default:
		slog.Warn("anomalous raster band count, replicating band 0",
			"bands", grid.BandCount)
		out[0], out[1], out[2] = grid.Bands[0], grid.Bands[0], grid.Bands[0]
	}
	return out, nil
}

// resolveRange returns the explicit range when supplied, otherwise the
// min/max across the concatenation of the three selected bands.
func resolveRange(bands [3][]float64, explicit *domain.NormalizationRange) domain.NormalizationRange {
	if explicit != nil {
		return *explicit
	}
	min, max := math.Inf(1), math.Inf(-1)
	for _, b := range bands {
		for _, v := range b {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
	}
	return domain.NormalizationRange{Min: min, Max: max}
}
