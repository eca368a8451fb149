package http

import (
	"log/slog"

	"github.com/gofiber/websocket/v2"
)

// WebSocketHandler attaches a connected map client to the surface hub. The
// hub replays the current surface state, then streams every mutation the
// engine performs until the peer disconnects. Cross-instance fan-out goes
// through NATS and reaches local clients via the hub relay, so the handler
// itself needs no subscription.
func WebSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		remoteAddr := c.RemoteAddr().String()
		slog.Info("map client connected", "remote", remoteAddr)

		deps.Surface.Attach(c)

		slog.Info("map client disconnected", "remote", remoteAddr)
	}
}
