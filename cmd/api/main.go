package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/safar/license-store/internal/api"
	"github.com/safar/license-store/internal/auth"
	"github.com/safar/license-store/internal/cache"
	"github.com/safar/license-store/internal/config"
	"github.com/safar/license-store/internal/database"
	"github.com/safar/license-store/internal/logging"
	"github.com/safar/license-store/internal/notify"
	"github.com/safar/license-store/internal/pricing"
	"github.com/safar/license-store/internal/ratelimit"
	"github.com/safar/license-store/internal/service"
	"github.com/safar/license-store/internal/storage"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Load config: %v", err)
	}

	logger := logging.New(cfg.Log)

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		logger.Fatalf("Connect to database: %v", err)
	}
	defer db.Close()

	logger.Info("Connected to database successfully")

	rates, err := pricing.LoadRates(cfg.Pricing.RatesFile)
	if err != nil {
		logger.Fatalf("Load exchange rates: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var idem cache.Idempotency = cache.Disabled{}
	if cfg.Redis.URL != "" {
		client, err := cache.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			logger.Fatalf("Connect to redis: %v", err)
		}
		defer client.Close()
		idem = cache.NewRedisIdempotency(client, cfg.Redis.IdempotencyTTL)
		logger.Info("Idempotency cache enabled")
	}

	var sender notify.Sender = notify.LogSender{Logger: logger}
	if cfg.SMTP.Enabled() {
		sender = notify.NewSMTPSender(cfg.SMTP)
	} else {
		logger.Warn("SMTP not configured, notifications will only be logged")
	}
	mailer := notify.NewAsyncSender(sender, logger, cfg.Notify.Timeout)

	uploader, err := storage.NewLocalUploader(cfg.Storage.UploadDir, cfg.Storage.PublicBaseURL)
	if err != nil {
		logger.Fatalf("Prepare upload directory: %v", err)
	}

	services := service.New(service.Deps{
		DB:         db,
		Logger:     logger,
		Notifier:   mailer,
		Uploader:   uploader,
		Rates:      rates,
		AdminEmail: cfg.Notify.AdminEmail,
	})

	limiter := ratelimit.New(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	limiter.StartCleanup(time.Minute, 10*time.Minute, ctx.Done())

	handler := api.NewRouter(api.Config{
		DB:             db,
		Services:       services,
		Verifier:       auth.NewHMACVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Idempotency:    idem,
		Limiter:        limiter,
		Logger:         logger,
		UploadDir:      uploader.Dir(),
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Graceful shutdown failed")
	}
	mailer.Wait()
}
