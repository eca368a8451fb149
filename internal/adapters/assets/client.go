package assets

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/NB11/air-pollution-poster-fair/internal/core/domain"
	"github.com/NB11/air-pollution-poster-fair/internal/core/ports"
	"github.com/NB11/air-pollution-poster-fair/internal/pkg/metrics"
)

var tracer = otel.Tracer("airmap/assets")

// Client fetches prepared map assets (bounds descriptors, raster images,
// station collections) from a static HTTP tree, with an optional
// read-through byte cache in front of it.
type Client struct {
	base  string
	ext   string
	http  *http.Client
	cache ports.CacheService
	ttl   int
}

// Option configures a Client.
type Option func(*Client)

// WithCache enables read-through caching of fetched asset bytes.
func WithCache(c ports.CacheService, ttlSeconds int) Option {
	return func(cl *Client) {
		cl.cache = c
		cl.ttl = ttlSeconds
	}
}

// WithRasterExtension overrides the raster asset file extension.
func WithRasterExtension(ext string) Option {
	return func(cl *Client) { cl.ext = ext }
}

// New creates an asset client rooted at baseURL.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		base: baseURL,
		ext:  "webp",
		http: &http.Client{Timeout: timeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// fetch retrieves one asset by tree-relative path. A 404 maps to
// domain.ErrFetchUnavailable so callers can treat the asset as absent.
func (c *Client) fetch(ctx context.Context, path, kind string) (data []byte, err error) {
	ctx, span := tracer.Start(ctx, "assets.fetch")
	span.SetAttributes(attribute.String("asset.path", path), attribute.String("asset.kind", kind))
	defer func() {
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if c.cache != nil {
		if data, err := c.cache.Get(ctx, "asset:"+path); err == nil && data != nil {
			metrics.CacheHits.WithLabelValues(kind).Inc()
			return data, nil
		}
		metrics.CacheMisses.WithLabelValues(kind).Inc()
	}

	url := c.base + "/" + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", url, err)
	}

	metrics.AssetFetchesTotal.WithLabelValues(kind).Inc()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.AssetFetchErrors.WithLabelValues(kind).Inc()
		return nil, fmt.Errorf("fetch %s: %w", path, domain.ErrFetchUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		metrics.AssetFetchErrors.WithLabelValues(kind).Inc()
		return nil, fmt.Errorf("fetch %s: %w", path, domain.ErrFetchUnavailable)
	}
	if resp.StatusCode != http.StatusOK {
		metrics.AssetFetchErrors.WithLabelValues(kind).Inc()
		return nil, fmt.Errorf("fetch %s: status %d: %w", path, resp.StatusCode, domain.ErrFetchUnavailable)
	}

	data, err = io.ReadAll(resp.Body)
	if err != nil {
		metrics.AssetFetchErrors.WithLabelValues(kind).Inc()
		return nil, fmt.Errorf("read %s: %w", path, domain.ErrFetchUnavailable)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, "asset:"+path, data, c.ttl); err != nil {
			slog.Warn("asset cache write failed", "path", path, "error", err)
		}
	}
	return data, nil
}
