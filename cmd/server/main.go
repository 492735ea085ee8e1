package main

import (
	"fmt"
	"os"

	"github.com/gofiber/fiber/v3"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
	"github.com/zontana/chatwire/config"
	"github.com/zontana/chatwire/src/api"
	"github.com/zontana/chatwire/src/bridge"
	"github.com/zontana/chatwire/src/chat"
	"github.com/zontana/chatwire/src/hub"
	"github.com/zontana/chatwire/src/store"
)

func main() {
	_ = godotenv.Load()

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	srvCfg := config.ServerConfigFromEnv()
	sockCfg := config.SocketConfigFromEnv()

	st, err := openStore(srvCfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("store init failed")
	}

	h := hub.New(logger)
	go h.Run()
	defer h.Stop()

	svc := chat.NewService(h, st, logger)
	initBridge(svc, logger)

	app := fiber.New()
	handler := &api.Handler{Store: st, Service: svc, Hub: h, Logger: logger}
	handler.Register(app)

	wsHandler := api.WSHandler(h, sockCfg, logger)
	appHandler := app.Handler()

	// Fiber v3 does not expose *fasthttp.RequestCtx, so the WebSocket
	// upgrade is mounted on the fasthttp server directly and everything
	// else falls through to the Fiber app.
	server := &fasthttp.Server{
		Handler: func(ctx *fasthttp.RequestCtx) {
			if string(ctx.Path()) == "/ws" {
				wsHandler(ctx)
				return
			}
			appHandler(ctx)
		},
		Concurrency: sockCfg.MaxConnections,
	}

	addr := fmt.Sprintf(":%d", srvCfg.Port)
	logger.Info().Str("addr", addr).Msg("server listening")
	if err := server.ListenAndServe(addr); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

// openStore connects to MySQL when a DSN is configured; otherwise the
// server runs on the in-memory store, which is enough for local development.
func openStore(cfg *config.ServerConfig, logger zerolog.Logger) (store.Store, error) {
	if cfg.DBDSN == "" {
		logger.Warn().Msg("DB_DSN not set, using in-memory store")
		return store.NewMemoryStore(), nil
	}
	gs, err := store.Open(cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	return gs, nil
}

// initBridge tries to start the Redis pub/sub bridge. If Redis is not
// reachable, the server runs in standalone mode.
func initBridge(svc *chat.Service, logger zerolog.Logger) {
	cfg := bridge.RedisConfigFromEnv()
	rb := bridge.NewRedisBridge(cfg, svc, logger)

	if err := rb.Start(); err != nil {
		logger.Warn().Err(err).Msg("redis bridge unavailable, running standalone")
		return
	}

	svc.SetBridge(rb)
	logger.Info().Str("redis_addr", cfg.Addr).Msg("redis bridge connected")
}
