package main

import (
	"context"

	"github.com/pairly/pairly-backend/internal/app"
	"github.com/pairly/pairly-backend/internal/cache"
	"github.com/pairly/pairly-backend/internal/config"
	"github.com/pairly/pairly-backend/internal/db"
	"github.com/pairly/pairly-backend/internal/logger"
	"github.com/pairly/pairly-backend/internal/server"
	"github.com/pairly/pairly-backend/internal/service/admin"
	"github.com/pairly/pairly-backend/internal/service/matchmaking"
	"github.com/pairly/pairly-backend/internal/service/moderation"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.Init(cfg)
	log := logger.L()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}

	appCtx := app.New(database, redisCache, log, cfg)
	mod := moderation.NewService(appCtx)

	registrars := []server.Registrar{
		matchmaking.NewRegistrar(appCtx, mod),
		admin.NewRegistrar(appCtx, mod),
	}

	if cfg.App.ENV == "development" {
		if err := db.SeedDemoData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	addr := cfg.HTTP.Host + ":" + cfg.HTTP.Port
	log.Info("starting HTTP server", "addr", addr)

	if err := server.StartHTTPServer(cfg, registrars...); err != nil {
		log.Error("failed to start HTTP server", "err", err)
	}
}
