package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sealgate/internal/access"
	"sealgate/internal/eventbus"
	"sealgate/internal/events"
	"sealgate/internal/platform/config"
	"sealgate/internal/platform/httpserver"
	"sealgate/internal/platform/logger"
	"sealgate/internal/platform/redis"
	"sealgate/internal/sealing"
	"sealgate/internal/storage"
	httptransport "sealgate/internal/transport/http"

	"github.com/jackc/pgx/v5/pgxpool"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal services.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Broker health drives both bus selection at startup and reconnects at
	// runtime.
	probe := eventbus.BrokerProbe(cfg.Broker.URL, cfg.Broker.ProbeTimeout)
	monitor := eventbus.NewHealthMonitor(probe, cfg.Broker.HealthTTL, cfg.Broker.ProbeInterval, log)
	go monitor.Run(ctx)

	broker := eventbus.NewAMQPBroker(cfg.Broker.URL, cfg.Broker.DialTimeout)
	resilient := eventbus.NewResilientBus(broker, cfg.Broker.Exchange, monitor, cfg.Broker.ConsumerPoll, log)
	bus := eventbus.Select(ctx, monitor, resilient, cfg.Broker.SelectTimeout, log)

	var (
		docs     storage.Store = storage.NewFilesystem(cfg.Storage.Root)
		resolver storage.SpaceResolver
	)
	if cfg.DB.URL != "" {
		pool, err := pgxpool.New(ctx, cfg.DB.URL)
		if err != nil {
			log.Error("connecting to postgres failed", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		pgStore := storage.NewPostgresStore(docs, pool)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			log.Error("preparing documents schema failed", "error", err)
			os.Exit(1)
		}
		docs = pgStore
		resolver = storage.NewPostgresResolver(pool)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory document ownership")
		resolver = storage.NewInMemoryResolver()
	}

	var (
		grantStore  access.GrantStore
		storeHealth httptransport.StoreReadiness
	)
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("connecting to redis failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		grantStore = access.NewRedisGrantStore(redisClient.Client)
		storeHealth = redisClient
		log.Info("using redis grant store")
	} else {
		grantStore = access.NewInMemoryGrantStore()
		log.Info("using in-memory grant store")
	}

	sealer, err := access.NewSealer(cfg.Access.PayloadKey)
	if err != nil {
		log.Error("invalid access payload key", "error", err)
		os.Exit(1)
	}
	cache := access.NewCache(grantStore, docs, log)
	gateway := access.NewGateway(sealer, cache, resolver, docs, log)

	signer, err := sealing.NewCertificateSigner(cfg.Sealing.KeystorePath, cfg.Sealing.KeystorePassword)
	if err != nil {
		log.Error("loading seal keystore failed", "error", err)
		os.Exit(1)
	}
	pipeline := sealing.NewPipeline(
		docs, resolver,
		sealing.NewPDFStamper(), signer,
		sealer, cache, bus,
		cfg.Access.GrantTTL, log,
	)

	bus.Subscribe(events.KeyDocumentReadyToSeal, pipeline.HandleReadyToSeal)
	bus.Subscribe(events.KeySecureAccessRequested, gateway.HandleAccessRequested)

	handler := httptransport.NewHandler(cache, monitor, storeHealth, log)
	srv := httpserver.New(cfg.Server, httptransport.NewRouter(handler))

	go func() {
		log.Info("sealgate listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "error", err)
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	if closer, ok := bus.(interface{ Close() }); ok {
		closer.Close()
	}
	monitor.Stop()
}
