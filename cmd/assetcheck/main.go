// assetcheck walks the configured asset tree and reports whether every
// (city, year) has a parseable bounds descriptor and a decodable raster for
// each pollutant. Run it after publishing a new batch of rasters.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/NB11/air-pollution-poster-fair/internal/adapters/assets"
	"github.com/NB11/air-pollution-poster-fair/internal/core/domain"
	"github.com/NB11/air-pollution-poster-fair/internal/pkg/config"
)

func main() {
	cfg, err := config.Load("airmap-assetcheck")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	client := assets.New(cfg.Assets.BaseURL,
		time.Duration(cfg.Assets.TimeoutSeconds)*time.Second,
		assets.WithRasterExtension(cfg.Assets.RasterExt))

	ctx := context.Background()
	failures := 0

	for _, city := range cfg.View.Cities {
		for _, year := range cfg.View.Years {
			failures += checkCity(ctx, client, city, year)
		}
	}

	if failures > 0 {
		fmt.Printf("\n%d check(s) failed\n", failures)
		os.Exit(1)
	}
	fmt.Println("\nall checks passed")
}

func checkCity(ctx context.Context, client *assets.Client, city, year string) int {
	desc, err := client.FetchBounds(ctx, city, year)
	if err != nil {
		fmt.Printf("FAIL %s/%s bounds: %v\n", city, year, err)
		return 1
	}

	if _, ok := desc.Corners(); !ok {
		fmt.Printf("FAIL %s/%s: descriptor does not hold 4 corner coordinates\n", city, year)
		return 1
	}
	fmt.Printf("OK   %s/%s bounds\n", city, year)

	failures := 0
	for _, p := range domain.Pollutants {
		scale := desc.Scale(p)
		key := domain.LayerKey{City: city, Pollutant: p, Year: year, Month: "01"}
		if _, err := client.FetchGrid(ctx, key, scale.Colormap); err != nil {
			fmt.Printf("FAIL %s/%s %s raster: %v\n", city, year, p, err)
			failures++
			continue
		}
		fmt.Printf("OK   %s/%s %s raster\n", city, year, p)
	}
	return failures
}
