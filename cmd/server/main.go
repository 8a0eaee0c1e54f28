// Command server runs the consultation booking web tier.
//
//	@title			Consultation Booking Web API
//	@version		1.0
//	@description	Session-aware web tier for consultation bookings and payments.
//	@BasePath		/
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/cbs/consultation-web/internal/api"
	"github.com/cbs/consultation-web/internal/api/handler"
	"github.com/cbs/consultation-web/internal/api/middleware"
	"github.com/cbs/consultation-web/internal/core/ports"
	"github.com/cbs/consultation-web/internal/core/service"
	"github.com/cbs/consultation-web/internal/infrastructure/apiclient"
	mongostore "github.com/cbs/consultation-web/internal/infrastructure/db/mongo"
	redisstore "github.com/cbs/consultation-web/internal/infrastructure/db/redis"
	"github.com/cbs/consultation-web/internal/infrastructure/memory"
	"github.com/cbs/consultation-web/internal/infrastructure/queue"
	"github.com/cbs/consultation-web/internal/pkg/config"
	"github.com/cbs/consultation-web/pkg/logger"
)

const (
	startupTimeout  = 30 * time.Second
	shutdownTimeout = 15 * time.Second
)

func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.Pretty(),
		Service: "consultation-web",
	})
	log.Info().Str("env", cfg.Env).Str("backend", cfg.API.BaseURL).Msg("starting")

	startupCtx, startupCancel := context.WithTimeout(context.Background(), startupTimeout)
	defer startupCancel()

	// Background work (audit writers) lives until shutdown.
	runCtx, stop := context.WithCancel(context.Background())
	defer stop()

	health := map[string]handler.Pinger{}

	// ── Session store ────────────────────────────────────────────────────
	var (
		stores ports.SessionStores
		lock   ports.TransitionLock
	)
	switch cfg.Session.Store {
	case config.StoreRedis:
		rdb, err := redisstore.Connect(startupCtx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		must(log, err, "connect to redis")
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Error().Err(err).Msg("close redis")
			}
		}()
		stores = redisstore.NewSessionStores(rdb, cfg.Session.TTL, logger.Component("session_store"))
		lock = redisstore.NewTransitionLock(rdb, logger.Component("transition_lock"))
		health["redis"] = handler.RedisPinger(rdb)
	default:
		log.Warn().Msg("using in-memory session store; sessions are lost on restart")
		stores = memory.NewSessionStores(cfg.Session.TTL)
		lock = memory.NewTransitionLock()
	}

	// ── Audit trail ──────────────────────────────────────────────────────
	var (
		audit      ports.AuthEventRecorder
		dispatcher *queue.Dispatcher
	)
	if cfg.Audit.Enabled {
		client, db, err := mongostore.Connect(startupCtx, mongostore.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			AppName:  "consultation-web",
		})
		must(log, err, "connect to mongo")
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(ctx); err != nil {
				log.Error().Err(err).Msg("disconnect mongo")
			}
		}()

		repo := mongostore.NewAuthEventRepository(db, cfg.Audit.Retention)
		must(log, repo.EnsureIndexes(startupCtx), "ensure audit indexes")

		dispatcher = queue.NewDispatcher(cfg.Audit.Workers, repo, logger.Component("audit"))
		dispatcher.Start(runCtx)
		audit = dispatcher
		health["mongodb"] = handler.MongoPinger(db)
	}

	// ── Backend client ───────────────────────────────────────────────────
	client := apiclient.New(apiclient.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		RateLimit: cfg.API.RateLimit,
		RateBurst: cfg.API.RateBurst,
	}, nil, logger.Component("apiclient"))

	var verifier ports.TokenVerifier = service.NewRoleVerifier(client)
	if cfg.JWTSecret != "" {
		verifier = middleware.NewJWTVerifier(cfg.JWTSecret)
	}

	// ── HTTP server ──────────────────────────────────────────────────────
	e := api.NewRouter(api.Deps{
		Config:   cfg,
		Stores:   stores,
		Lock:     lock,
		API:      client,
		Verifier: verifier,
		Audit:    audit,
		Health:   health,
		Log:      logger.Component("http"),
	})

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-serverErr:
		log.Error().Err(err).Msg("server error")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}

	// Drain queued audit events before the database connection closes.
	stop()
	if dispatcher != nil {
		dispatcher.Wait()
	}
	log.Info().Msg("server stopped")
}

// must aborts startup when err is non-nil.
func must(log zerolog.Logger, err error, what string) {
	if err != nil {
		log.Fatal().Err(err).Msg(what)
	}
}
