package domain

// DefaultColormap is assumed when a bounds descriptor omits one.
const DefaultColormap = "inferno"

// LonLat is a single geographic coordinate pair (WGS 84).
type LonLat struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// DisplayCorners holds the four display corner coordinates of a raster in
// the fixed order top-left, top-right, bottom-right, bottom-left. Every
// consumer relies on this ordering; reordering silently corrupts placement.
type DisplayCorners [4]LonLat

// PollutantScale is the published display range and colormap for one
// pollutant within a (city, year) asset directory.
type PollutantScale struct {
	VMin     float64 `json:"vmin"`
	VMax     float64 `json:"vmax"`
	Colormap string  `json:"colormap"`
}

// BoundsDescriptor is the consolidated per-(city, year) descriptor produced
// by the data-preparation pipeline.
type BoundsDescriptor struct {
	City        string                    `json:"city"`
	Year        string                    `json:"year"`
	Coordinates [][]float64               `json:"coordinates"`
	Pollutants  map[string]PollutantScale `json:"pollutants"`
}

// Corners extracts the four display corners from the raw coordinate array.
// ok is false when the descriptor does not carry exactly 4 well-formed pairs.
func (b *BoundsDescriptor) Corners() (DisplayCorners, bool) {
	var c DisplayCorners
	if len(b.Coordinates) != 4 {
		return c, false
	}
	for i, pair := range b.Coordinates {
		if len(pair) < 2 {
			return c, false
		}
		c[i] = LonLat{Lon: pair[0], Lat: pair[1]}
	}
	return c, true
}

// Scale returns the descriptor's scale for p, falling back to the
// pollutant's built-in default when the descriptor has no entry.
func (b *BoundsDescriptor) Scale(p Pollutant) PollutantScale {
	if s, ok := b.Pollutants[string(p)]; ok {
		if s.Colormap == "" {
			s.Colormap = DefaultColormap
		}
		return s
	}
	return p.DefaultScale()
}
