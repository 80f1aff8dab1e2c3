// Command server runs the directory read API.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	redis "github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"github.com/TravelMesh/read_layer/internal/config"
	"github.com/TravelMesh/read_layer/internal/guarantee"
	"github.com/TravelMesh/read_layer/internal/httpapi"
	"github.com/TravelMesh/read_layer/internal/ledger"
	"github.com/TravelMesh/read_layer/internal/records"
	"github.com/TravelMesh/read_layer/internal/storage"
	"github.com/TravelMesh/read_layer/pkg/logger"
)

func main() {
	// A missing .env is fine; the environment may be set by the platform.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logLevel := logger.ParseLevel(cfg.LogLevel)
	rootLog := logger.New("server", os.Stderr, logLevel)

	registry := storage.NewRegistry()
	httpAdapter := storage.NewHTTPAdapter(storage.HTTPConfig{
		Timeout:        cfg.OffChainTimeout,
		RequestsPerSec: cfg.OffChainRateLimit,
	}, logger.New("storage.http", os.Stderr, logLevel))

	var webAdapter storage.Adapter = httpAdapter
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("parse REDIS_URL: %v", err)
		}
		webAdapter = storage.NewRedisCache(
			httpAdapter, redis.NewClient(redisOpts), cfg.CacheTTL,
			logger.New("storage.rediscache", os.Stderr, logLevel))
		rootLog.Info("off-chain document cache enabled")
	}
	registry.Register("https", webAdapter)
	registry.Register("http", webAdapter)

	memoryAdapter := storage.NewMemoryAdapter()
	registry.Register("in-memory", memoryAdapter)

	hotelDesc := records.Hotel()
	airlineDesc := records.Airline()

	hotelResolver := storage.NewResolver(registry, hotelDesc.PlainLinks, logger.New("storage.resolver", os.Stderr, logLevel))
	hotels := ledger.NewMemoryDirectory(hotelResolver)
	airlineResolver := storage.NewResolver(registry, airlineDesc.PlainLinks, logger.New("storage.resolver", os.Stderr, logLevel))
	airlines := ledger.NewMemoryDirectory(airlineResolver)

	if cfg.SeedPath != "" {
		if err := loadSeed(cfg.SeedPath, memoryAdapter, hotels, airlines); err != nil {
			log.Fatalf("seed: %v", err)
		}
		rootLog.WithField("path", cfg.SeedPath).Info("seed data loaded")
	}

	verifier := guarantee.NewVerifier(cfg.GuaranteeKey, logger.New("guarantee", os.Stderr, logLevel))
	if verifier.Enabled() {
		rootLog.Info("guarantee verification enabled")
	} else {
		rootLog.Warn("GUARANTEE_HMAC_KEY not set; trustworthiness checks disabled")
	}

	handler := httpapi.NewHandler(httpapi.Options{
		BaseURL:            cfg.BaseURL,
		SchemaPath:         cfg.SchemaPath,
		DataFormatVersions: cfg.DataFormatVersions,
		DefaultPageSize:    cfg.DefaultPageSize,
		RequestTimeout:     cfg.RequestTimeout,
		Verifier:           verifier,
		Log:                logger.New("httpapi", os.Stderr, logLevel),
		Kinds: []httpapi.Kind{
			{
				Base:      "/hotels",
				Resolver:  records.NewResolver(hotelDesc, logger.New("records.hotel", os.Stderr, logLevel)),
				Directory: hotels,
			},
			{
				Base:       "/airlines",
				Resolver:   records.NewResolver(airlineDesc, logger.New("records.airline", os.Stderr, logLevel)),
				Directory:  airlines,
				Concurrent: true,
			},
		},
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		rootLog.WithField("port", cfg.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	rootLog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		rootLog.WithError(err).Error("shutdown failed")
	}
}
