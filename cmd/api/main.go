//	@title			Negroni Relay API
//	@version		1.0
//	@description	Echo relay and prepared-message provider for the negroni.work mini app.
//
//	@host		localhost:8080
//	@BasePath	/

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/negroni/relay/internal/blob"
	"github.com/negroni/relay/internal/config"
	"github.com/negroni/relay/internal/logger"
	"github.com/negroni/relay/internal/metrics"
	appMiddleware "github.com/negroni/relay/internal/middleware"
	"github.com/negroni/relay/internal/prepared"
	"github.com/negroni/relay/internal/relay"
	"github.com/negroni/relay/internal/server"
	"github.com/negroni/relay/internal/storage"
	"github.com/negroni/relay/internal/telegram"

	_ "github.com/negroni/relay/docs/swagger"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.L

	store, err := newStorage(cfg)
	if err != nil {
		log.Error("blob storage init failed", slog.Any("error", err))
		os.Exit(1)
	}

	obs, err := metrics.NewPrometheusObserver("relay", prometheus.DefaultRegisterer)
	if err != nil {
		log.Error("metrics init failed", slog.Any("error", err))
		os.Exit(1)
	}

	// The provider stays unconfigured (503) without a bot token.
	var preparer prepared.Preparer
	if cfg.TelegramEnabled() {
		bot, err := telegram.New(cfg.TelegramBotToken, cfg.TelegramAPIEndpoint, log)
		if err != nil {
			log.Error("telegram init failed", slog.Any("error", err))
			os.Exit(1)
		}
		preparer = bot
	} else {
		log.Warn("TELEGRAM_BOT_TOKEN not set, /prepare will answer 503")
	}

	// Wire dependencies: storage → service → handler
	signer := blob.NewSigner(cfg.BlobSecret, cfg.PublicBaseURL)
	prepareSvc := prepared.NewService(store, signer, preparer, cfg.BlobTTL, obs)

	router := server.NewRouter(server.Deps{
		Logger:  log,
		CORS:    appMiddleware.NewCORSPolicy(cfg.AllowedOrigins, cfg.DefaultOrigin),
		Relay:   relay.NewHandler(cfg.MaxUploadBytes, obs),
		Prepare: prepared.NewHandler(prepareSvc, cfg.MaxUploadBytes, obs),
		Blob:    blob.NewHandler(signer, store),
		Metrics: promhttp.Handler(),
		Swagger: !cfg.IsProduction(),
	})

	srv := server.New(":"+cfg.Port, router)

	// Start server in goroutine; wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("server listening", slog.String("port", cfg.Port), slog.String("env", cfg.AppEnv),
			slog.Int64("max_upload_bytes", cfg.MaxUploadBytes), slog.String("storage", cfg.StorageBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	<-quit
	log.Info("shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("forced shutdown", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped")
}

func newStorage(cfg *config.Config) (storage.Storage, error) {
	switch cfg.StorageBackend {
	case "minio":
		return storage.NewMinioStorage(
			cfg.StorageEndpoint,
			cfg.StorageAccessKey,
			cfg.StorageSecretKey,
			cfg.StorageBucket,
			cfg.StorageUseSSL,
		)
	default:
		return storage.NewMemoryStorage(cfg.BlobCacheSize, cfg.BlobTTL), nil
	}
}
