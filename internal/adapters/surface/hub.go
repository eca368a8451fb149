// Package surface implements ports.MapSurface as a WebSocket hub: every
// mutation the engine performs is mirrored as a JSON operation to all
// connected map clients, which apply it to their local map display.
package surface

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/gen2brain/webp"
	"github.com/gofiber/websocket/v2"
	"github.com/paulmach/orb/geojson"

	"github.com/NB11/air-pollution-poster-fair/internal/core/domain"
	"github.com/NB11/air-pollution-poster-fair/internal/core/ports"
	"github.com/NB11/air-pollution-poster-fair/internal/pkg/metrics"
)

// rasterQuality is the lossy WebP quality for raster sources pushed to
// clients. The assets are small enough that 90 keeps artifacts invisible.
const rasterQuality = 90

// op is one surface mutation on the wire.
type op struct {
	Op       string          `json:"op"` // add_source | remove_source | add_layer | remove_layer | set_paint
	ID       string          `json:"id"`
	Source   json.RawMessage `json:"source,omitempty"`
	SourceID string          `json:"source_id,omitempty"`
	Type     string          `json:"type,omitempty"`
	Before   string          `json:"before,omitempty"`
	Name     string          `json:"name,omitempty"`
	Value    any             `json:"value,omitempty"`
}

// envelope wraps an op for cross-instance fan-out. The origin tag lets an
// instance drop the echo of its own publishes.
type envelope struct {
	Origin string          `json:"origin"`
	Op     json.RawMessage `json:"op"`
}

type layerRecord struct {
	id       string
	sourceID string
	typ      string
}

// Hub tracks the materialized surface state and fans mutations out to
// connected clients. A client that connects mid-session receives a replay
// of the current state first.
type Hub struct {
	events   ports.EventPublisher // optional cross-instance fan-out
	instance string

	mu      sync.RWMutex
	sources map[string]json.RawMessage
	layers  map[string]layerRecord
	order   []string // layer ids bottom-first
	paints  map[string]map[string]any
	clients map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// NewHub creates a hub. events may be nil when running single-instance.
func NewHub(events ports.EventPublisher) *Hub {
	return &Hub{
		events:   events,
		instance: newInstanceID(),
		sources:  make(map[string]json.RawMessage),
		layers:   make(map[string]layerRecord),
		paints:   make(map[string]map[string]any),
		clients:  make(map[*wsClient]struct{}),
	}
}

func newInstanceID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

var _ ports.MapSurface = (*Hub)(nil)

// AddImageSource registers a positioned raster image source.
func (h *Hub) AddImageSource(ctx context.Context, id string, img *domain.DecodedImage, corners domain.DisplayCorners) error {
	url, err := encodeDataURL(img)
	if err != nil {
		return fmt.Errorf("encode image source %s: %w", id, err)
	}

	coords := make([][2]float64, 4)
	for i, c := range corners {
		coords[i] = [2]float64{c.Lon, c.Lat}
	}
	payload, err := json.Marshal(map[string]any{
		"type":        "image",
		"url":         url,
		"coordinates": coords,
	})
	if err != nil {
		return err
	}
	return h.addSource(ctx, id, payload)
}

// AddGeoJSONSource registers a vector source from a feature collection.
func (h *Hub) AddGeoJSONSource(ctx context.Context, id string, fc *geojson.FeatureCollection) error {
	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode geojson source %s: %w", id, err)
	}
	payload, err := json.Marshal(map[string]any{
		"type": "geojson",
		"data": json.RawMessage(data),
	})
	if err != nil {
		return err
	}
	return h.addSource(ctx, id, payload)
}

func (h *Hub) addSource(ctx context.Context, id string, payload json.RawMessage) error {
	h.mu.Lock()
	if _, exists := h.sources[id]; exists {
		h.mu.Unlock()
		return fmt.Errorf("source %s already present", id)
	}
	h.sources[id] = payload
	h.mu.Unlock()

	return h.broadcast(ctx, op{Op: "add_source", ID: id, Source: payload})
}

// RemoveSource drops a source. Layers bound to it must be removed first.
func (h *Hub) RemoveSource(ctx context.Context, id string) error {
	h.mu.Lock()
	if _, exists := h.sources[id]; !exists {
		h.mu.Unlock()
		return fmt.Errorf("source %s not present", id)
	}
	for _, l := range h.layers {
		if l.sourceID == id {
			h.mu.Unlock()
			return fmt.Errorf("source %s still referenced by layer %s", id, l.id)
		}
	}
	delete(h.sources, id)
	h.mu.Unlock()

	return h.broadcast(ctx, op{Op: "remove_source", ID: id})
}

// AddLayer places a layer bound to sourceID, below beforeID when given.
func (h *Hub) AddLayer(ctx context.Context, id, sourceID, layerType, beforeID string) error {
	h.mu.Lock()
	if _, exists := h.layers[id]; exists {
		h.mu.Unlock()
		return fmt.Errorf("layer %s already present", id)
	}
	if _, exists := h.sources[sourceID]; !exists {
		h.mu.Unlock()
		return fmt.Errorf("layer %s references unknown source %s", id, sourceID)
	}

	pos := len(h.order)
	if beforeID != "" {
		found := false
		for i, other := range h.order {
			if other == beforeID {
				pos, found = i, true
				break
			}
		}
		if !found {
			h.mu.Unlock()
			return fmt.Errorf("layer %s: before target %s not present", id, beforeID)
		}
	}
	h.order = append(h.order, "")
	copy(h.order[pos+1:], h.order[pos:])
	h.order[pos] = id
	h.layers[id] = layerRecord{id: id, sourceID: sourceID, typ: layerType}
	h.mu.Unlock()

	return h.broadcast(ctx, op{Op: "add_layer", ID: id, SourceID: sourceID, Type: layerType, Before: beforeID})
}

// RemoveLayer drops a layer and its paint state.
func (h *Hub) RemoveLayer(ctx context.Context, id string) error {
	h.mu.Lock()
	if _, exists := h.layers[id]; !exists {
		h.mu.Unlock()
		return fmt.Errorf("layer %s not present", id)
	}
	delete(h.layers, id)
	delete(h.paints, id)
	for i, other := range h.order {
		if other == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
	h.mu.Unlock()

	return h.broadcast(ctx, op{Op: "remove_layer", ID: id})
}

// SetPaintProperty updates one paint property on an existing layer.
func (h *Hub) SetPaintProperty(ctx context.Context, layerID, name string, value any) error {
	h.mu.Lock()
	if _, exists := h.layers[layerID]; !exists {
		h.mu.Unlock()
		return fmt.Errorf("layer %s not present", layerID)
	}
	if h.paints[layerID] == nil {
		h.paints[layerID] = make(map[string]any)
	}
	h.paints[layerID][name] = value
	h.mu.Unlock()

	return h.broadcast(ctx, op{Op: "set_paint", ID: layerID, Name: name, Value: value})
}

// HasLayer reports whether the layer is currently materialized.
func (h *Hub) HasLayer(id string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.layers[id]
	return ok
}

// HasSource reports whether the source is currently materialized.
func (h *Hub) HasSource(id string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.sources[id]
	return ok
}

// Attach registers a connected client, replays the current state to it,
// and blocks reading (and discarding) messages until the peer goes away.
func (h *Hub) Attach(conn *websocket.Conn) {
	c := &wsClient{conn: conn}

	for _, data := range h.snapshot() {
		if err := c.send(data); err != nil {
			return
		}
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	metrics.ActiveWebSockets.Inc()

	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		metrics.ActiveWebSockets.Dec()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Relay forwards an enveloped operation from another instance to local
// clients without touching local state. The echo of this instance's own
// publishes is dropped so clients never see an op twice.
func (h *Hub) Relay(data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil || len(env.Op) == 0 {
		slog.Debug("surface relay dropped malformed message", "error", err)
		return
	}
	if env.Origin == h.instance {
		return
	}
	h.fanOut(env.Op)
}

// fanOut writes one op to every locally connected client.
func (h *Hub) fanOut(data []byte) {
	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.send(data); err != nil {
			slog.Debug("surface write failed", "error", err)
		}
	}
}

// snapshot renders the current state as an ordered op replay: sources
// first, then layers bottom-up, then paint properties.
func (h *Hub) snapshot() [][]byte {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var ops []op
	for id, payload := range h.sources {
		ops = append(ops, op{Op: "add_source", ID: id, Source: payload})
	}
	for _, id := range h.order {
		l := h.layers[id]
		ops = append(ops, op{Op: "add_layer", ID: l.id, SourceID: l.sourceID, Type: l.typ})
	}
	for layerID, props := range h.paints {
		for name, value := range props {
			ops = append(ops, op{Op: "set_paint", ID: layerID, Name: name, Value: value})
		}
	}

	out := make([][]byte, 0, len(ops))
	for _, o := range ops {
		data, err := json.Marshal(o)
		if err != nil {
			continue
		}
		out = append(out, data)
	}
	return out
}

func (h *Hub) broadcast(ctx context.Context, o op) error {
	data, err := json.Marshal(o)
	if err != nil {
		return err
	}

	h.fanOut(data)

	if h.events != nil {
		wrapped, err := json.Marshal(envelope{Origin: h.instance, Op: data})
		if err != nil {
			return err
		}
		if err := h.events.PublishBroadcast(ctx, wrapped); err != nil {
			slog.Warn("surface broadcast publish failed", "op", o.Op, "error", err)
		}
	}
	return nil
}

// encodeDataURL packs the decoded RGBA buffer into a lossy WebP data URL.
func encodeDataURL(img *domain.DecodedImage) (string, error) {
	if len(img.Pixels) != img.Width*img.Height*4 {
		return "", fmt.Errorf("pixel buffer length %d does not match %dx%d", len(img.Pixels), img.Width, img.Height)
	}
	nrgba := &image.NRGBA{
		Pix:    img.Pixels,
		Stride: img.Width * 4,
		Rect:   image.Rect(0, 0, img.Width, img.Height),
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, nrgba, webp.Options{Quality: rasterQuality}); err != nil {
		return "", err
	}
	return "data:image/webp;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
