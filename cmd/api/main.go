package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/NB11/air-pollution-poster-fair/internal/adapters/assets"
	"github.com/NB11/air-pollution-poster-fair/internal/adapters/http"
	natsadapter "github.com/NB11/air-pollution-poster-fair/internal/adapters/nats"
	"github.com/NB11/air-pollution-poster-fair/internal/adapters/surface"
	"github.com/NB11/air-pollution-poster-fair/internal/adapters/valkey"
	"github.com/NB11/air-pollution-poster-fair/internal/core/ports"
	"github.com/NB11/air-pollution-poster-fair/internal/core/usecases"
	"github.com/NB11/air-pollution-poster-fair/internal/pkg/config"
	"github.com/NB11/air-pollution-poster-fair/internal/pkg/logging"
	"github.com/NB11/air-pollution-poster-fair/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("airmap-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup("airmap-api", logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	// Cache
	var cache ports.CacheService
	if cfg.Valkey.Enabled {
		vk, err := valkey.New(cfg.Valkey.Addr)
		if err != nil {
			slog.Warn("valkey unavailable, serving without asset cache", "error", err)
		} else {
			defer vk.Close()
			cache = vk
		}
	}

	// Asset tree client; serves bounds, rasters, and station collections.
	assetOpts := []assets.Option{assets.WithRasterExtension(cfg.Assets.RasterExt)}
	if cache != nil {
		assetOpts = append(assetOpts, assets.WithCache(cache, cfg.Assets.CacheTTLSeconds))
	}
	client := assets.New(cfg.Assets.BaseURL,
		time.Duration(cfg.Assets.TimeoutSeconds)*time.Second, assetOpts...)

	// NATS: JetStream transition log plus the plain-core surface relay.
	var events ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, transitions will not be published", "error", err)
	} else {
		defer pub.Close()
		events = pub
	}

	hub := surface.NewHub(events)

	if sub, err := natsadapter.NewSubscriber(cfg.NATS.URL); err != nil {
		slog.Warn("nats subscriber unavailable, surface ops will not converge across instances", "error", err)
	} else {
		defer sub.Close()
		if err := sub.SubscribeSurfaceOps(hub.Relay); err != nil {
			slog.Warn("surface op subscription failed", "error", err)
		}
	}

	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats health conn unavailable", "error", err)
	}

	// Services
	boundsSvc := usecases.NewBoundsService(client)
	stationSvc := usecases.NewStationService(client, hub)
	layerSvc := usecases.NewLayerService(boundsSvc, client, stationSvc, hub, events,
		usecases.WithStartOpacity(cfg.View.DefaultOpacity))

	deps := &http.Dependencies{
		Layers:   layerSvc,
		Bounds:   boundsSvc,
		Stations: client,
		Surface:  hub,
		NATS:     natsConn,
		Cache:    cache,
		Config:   cfg,
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024,
		AppName:      "AirMap API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "http://localhost:3000, http://localhost:5173",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
		MaxAge:       3600,
	}))

	http.SetupRoutes(app, deps)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
