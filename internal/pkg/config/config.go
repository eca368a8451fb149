package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Assets    AssetsConfig    `mapstructure:"assets"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	View      ViewConfig      `mapstructure:"view"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

// AssetsConfig locates the prepared data tree (bounds descriptors, raster
// images, station collections) served as static files.
type AssetsConfig struct {
	BaseURL         string `mapstructure:"base_url"`
	RasterExt       string `mapstructure:"raster_ext"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
	CacheTTLSeconds int    `mapstructure:"cache_ttl_seconds"`
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr    string `mapstructure:"addr"`
	Enabled bool   `mapstructure:"enabled"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// ViewConfig enumerates the selectable cities and years and the startup
// raster opacity.
type ViewConfig struct {
	Cities         []string `mapstructure:"cities"`
	Years          []string `mapstructure:"years"`
	DefaultCity    string   `mapstructure:"default_city"`
	DefaultOpacity float64  `mapstructure:"default_opacity"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("assets.base_url", "http://localhost:9000/data")
	v.SetDefault("assets.raster_ext", "webp")
	v.SetDefault("assets.timeout_seconds", 10)
	v.SetDefault("assets.cache_ttl_seconds", 3600)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("valkey.enabled", true)
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("view.cities", []string{"Bologna", "Frascati", "Milano"})
	v.SetDefault("view.years", []string{"2024", "2025"})
	v.SetDefault("view.default_city", "Bologna")
	v.SetDefault("view.default_opacity", 0.9)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: AIRMAP_ASSETS_BASE_URL → assets.base_url
	v.SetEnvPrefix("AIRMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Assets.BaseURL == "" {
		errs = append(errs, "assets.base_url is required")
	}
	if c.Assets.RasterExt != "webp" && c.Assets.RasterExt != "png" {
		errs = append(errs, fmt.Sprintf("assets.raster_ext must be webp or png, got %q", c.Assets.RasterExt))
	}
	if c.Assets.TimeoutSeconds <= 0 {
		errs = append(errs, "assets.timeout_seconds must be positive")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Enabled && c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required when valkey is enabled")
	}
	if len(c.View.Cities) == 0 {
		errs = append(errs, "view.cities must not be empty")
	}
	if len(c.View.Years) == 0 {
		errs = append(errs, "view.years must not be empty")
	}
	if c.View.DefaultOpacity < 0 || c.View.DefaultOpacity > 1 {
		errs = append(errs, fmt.Sprintf("view.default_opacity must be in [0,1], got %g", c.View.DefaultOpacity))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// HasCity reports whether city is one of the configured selections.
func (c *Config) HasCity(city string) bool {
	for _, want := range c.View.Cities {
		if want == city {
			return true
		}
	}
	return false
}

// HasYear reports whether year is one of the configured selections.
func (c *Config) HasYear(year string) bool {
	for _, want := range c.View.Years {
		if want == year {
			return true
		}
	}
	return false
}
