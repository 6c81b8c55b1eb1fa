package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rentcal/internal/app/middleware"
	"rentcal/internal/app/wiring"
	"rentcal/internal/infra/broker/kafka"
	"rentcal/internal/infra/config"
	"rentcal/internal/infra/export"
	"rentcal/internal/infra/export/ics"
	ginserver "rentcal/internal/infra/http/gin"
	"rentcal/internal/infra/obs"
	infraoutbox "rentcal/internal/infra/outbox"
	"rentcal/internal/infra/storage/s3"
	"rentcal/internal/infra/validation"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	logger := obs.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	backend, err := openStorage(ctx, cfg, logger)
	if err != nil {
		logger.Error("storage init failed", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer backend.close()

	var producer infraoutbox.Producer = infraoutbox.LogProducer{Logger: logger}
	if len(cfg.KafkaBrokers) > 0 {
		p, err := kafka.NewProducer(cfg.KafkaBrokers, nil, logger)
		if err != nil {
			logger.Error("kafka producer init failed", "error", err)
			os.Exit(1)
		}
		defer p.Close()
		producer = p
	}
	worker := &infraoutbox.Worker{
		Store:       backend.outbox,
		Producer:    producer,
		Logger:      logger,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Backoff:     cfg.RetryBackoff,
	}

	buses := wiring.Build(wiring.Deps{
		Factory:     backend.factory,
		Idempotency: backend.idempotency,
		Validator:   validation.New(),
		Authorizer:  middleware.NewListingAllowlist(cfg.Listings),
		Flusher:     worker,
		Renderer:    ics.Renderer{},
		Now:         time.Now,
		Location:    cfg.Timezone,
		Logger:      logger,
	})

	if err := loadFixtures(ctx, cfg.FixturesPath, buses.Commands, logger); err != nil {
		logger.Warn("fixtures load failed", "error", err, "path", cfg.FixturesPath)
	}

	go func() {
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("outbox worker stopped", "error", err)
		}
	}()

	if len(cfg.KafkaBrokers) > 0 {
		consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, nil, kafka.BookingHandler{
			Commands: buses.Commands,
			Inbox:    backend.inbox,
			Logger:   logger,
		}, logger)
		if err != nil {
			logger.Error("kafka consumer init failed", "error", err)
			os.Exit(1)
		}
		defer consumer.Close()
		go func() {
			if err := consumer.Run(ctx, []string{cfg.BookingTopic}); err != nil {
				logger.Error("booking consumer stopped", "error", err)
			}
		}()
	}

	checks := map[string]obs.Check{}
	if backend.ping != nil {
		checks["store"] = backend.ping
	}
	if cfg.FeedCron != "" {
		publisher, err := s3.NewFeedPublisher(s3.Options{
			Endpoint:      cfg.S3Endpoint,
			UseSSL:        cfg.S3UseSSL,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Bucket:        cfg.S3Bucket,
			PublicBaseURL: cfg.S3PublicURL,
		}, logger)
		if err != nil {
			logger.Error("feed publisher init failed", "error", err)
			os.Exit(1)
		}
		checks["feeds"] = publisher.Ping
		scheduler := &export.Scheduler{
			Queries:   buses.Queries,
			Publisher: publisher,
			Listings:  cfg.Listings,
			Spec:      cfg.FeedCron,
			Location:  cfg.Timezone,
			Logger:    logger,
		}
		go func() {
			if err := scheduler.Run(ctx); err != nil {
				logger.Error("feed scheduler stopped", "error", err)
			}
		}()
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Checks: checks}, ginserver.Handlers{
		Calendar: ginserver.CalendarHandler{Commands: buses.Commands, Queries: buses.Queries, Logger: logger},
		Settings: ginserver.SettingsHandler{Commands: buses.Commands, Queries: buses.Queries, Logger: logger},
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "driver", cfg.StoreDriver)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}
