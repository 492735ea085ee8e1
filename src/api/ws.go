package api

import (
	"strings"

	"github.com/fasthttp/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
	"github.com/zontana/chatwire/config"
	"github.com/zontana/chatwire/src/hub"
)

// WSHandler returns a raw fasthttp handler for WebSocket upgrades.
// Registered at the "/ws" path on the fasthttp server directly, since
// Fiber v3 does not expose *fasthttp.RequestCtx.
func WSHandler(h *hub.Hub, cfg *config.SocketConfig, logger zerolog.Logger) fasthttp.RequestHandler {
	upgrader := websocket.FastHTTPUpgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
	}

	return func(ctx *fasthttp.RequestCtx) {
		upgrade := string(ctx.Request.Header.Peek("Upgrade"))
		if !strings.EqualFold(upgrade, "websocket") {
			ctx.SetStatusCode(fasthttp.StatusUpgradeRequired)
			ctx.SetBodyString(`{"error":"upgrade_required","message":"WebSocket upgrade required"}`)
			return
		}

		clientID := uuid.New().String()

		err := upgrader.Upgrade(ctx, func(conn *websocket.Conn) {
			client := hub.NewClient(clientID, &fasthttpConn{conn}, h, cfg.SendBufferSize)
			h.Register(client)
			go client.WritePump()
			client.ReadPump()
		})
		if err != nil {
			logger.Error().Err(err).Msg("websocket upgrade failed")
		}
	}
}

// fasthttpConn wraps fasthttp/websocket.Conn to satisfy types.Conn.
type fasthttpConn struct {
	conn *websocket.Conn
}

func (f *fasthttpConn) WriteJSON(v any) error { return f.conn.WriteJSON(v) }
func (f *fasthttpConn) ReadJSON(v any) error  { return f.conn.ReadJSON(v) }
func (f *fasthttpConn) Close() error          { return f.conn.Close() }
