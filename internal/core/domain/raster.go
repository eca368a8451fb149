package domain

// RasterGrid is a fetched multi-band raster, one numeric array per band in
// row-major order. It lives only within one decode-and-display operation.
type RasterGrid struct {
	BandCount int
	Width     int
	Height    int
	Bands     [][]float64
}

// NormalizationRange maps raw band values onto the 0-255 channel range.
// After resolution Max > Min always holds; a degenerate range is forced to
// width 1 so that normalization never divides by zero.
type NormalizationRange struct {
	Min float64
	Max float64
}

// Width returns max-min floored to 1.
func (r NormalizationRange) Width() float64 {
	w := r.Max - r.Min
	if w <= 0 {
		return 1
	}
	return w
}

// DecodeOptions selects bands and the normalization range for a decode.
// Both fields are optional.
type DecodeOptions struct {
	// BandIndices picks exactly three source bands for R, G, B.
	BandIndices *[3]int
	// Range overrides the auto-computed shared normalization range.
	Range *NormalizationRange
}

// DecodedImage is a flat RGBA byte buffer ready for encoding to a
// displayable image resource. Alpha is fully opaque for every pixel.
type DecodedImage struct {
	Pixels []byte // len = Width*Height*4, row-major RGBA
	Width  int
	Height int
}
