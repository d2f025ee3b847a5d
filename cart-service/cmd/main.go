package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/tomoca-dev/Tomo-web/cart-service/internal/config"
	carthttp "github.com/tomoca-dev/Tomo-web/cart-service/internal/http"
	"github.com/tomoca-dev/Tomo-web/cart-service/internal/service"
	"github.com/tomoca-dev/Tomo-web/cart-service/internal/storage"
	"github.com/tomoca-dev/Tomo-web/pkg/logger"
	"github.com/tomoca-dev/Tomo-web/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New(logger.Options{Service: "cart-service"})
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logger.New(logger.Options{Service: "cart-service", Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	ctx := context.Background()
	st, closeStorage, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("storage", cfg.Storage).Msg("failed to open cart storage")
	}
	defer closeStorage()

	svc, err := service.NewCartService(st, service.Options{
		Namespace:    cfg.Namespace,
		MaxOpenCarts: cfg.MaxOpenCarts,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create cart service")
	}

	router := carthttp.NewRouter(
		carthttp.NewCartHandler(svc, cfg.RequestTimeout),
		metrics.New("cart_service"),
		log,
		carthttp.RouterConfig{
			RequestTimeout:     cfg.RequestTimeout,
			MaxRequestBodySize: cfg.MaxRequestBodySize,
		},
	)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Str("storage", cfg.Storage).Msg("cart service starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("server exited")
}

func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storage.Storage, func(), error) {
	switch cfg.Storage {
	case config.StorageRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		log.Info().Str("addr", cfg.RedisAddr).Msg("redis ping succeeded")
		return storage.NewRedisStorage(client, cfg.TTL), func() { _ = client.Close() }, nil

	case config.StorageMongo:
		db, err := storage.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("db", cfg.MongoDBName).Msg("connected to MongoDB")
		closeFn := func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = db.Client().Disconnect(disconnectCtx)
		}
		return storage.NewMongoStorage(db), closeFn, nil

	default:
		log.Warn().Msg("using in-memory cart storage; carts are lost on restart")
		return storage.NewMemoryStorage(), func() {}, nil
	}
}
