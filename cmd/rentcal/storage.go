package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rentcal/internal/app/middleware"
	"rentcal/internal/app/uow"
	"rentcal/internal/infra/broker/kafka"
	"rentcal/internal/infra/config"
	mongostore "rentcal/internal/infra/db/mongo"
	"rentcal/internal/infra/db/postgres"
	"rentcal/internal/infra/obs"
	infraoutbox "rentcal/internal/infra/outbox"
	"rentcal/internal/infra/storage/memory"
)

// storage is everything one store driver provides to the application.
type storage struct {
	factory     uow.UoWFactory
	idempotency middleware.IdempotencyStore
	inbox       kafka.Inbox
	outbox      infraoutbox.Store
	ping        obs.Check
	close       func()
}

func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		return openMongo(ctx, cfg, logger)
	case config.DriverPostgres:
		return openPostgres(ctx, cfg, logger)
	default:
		store := memory.NewStore()
		logger.Info("using in-memory store")
		return storage{
			factory:     memory.Factory{Store: store},
			idempotency: memory.NewIdempotencyStore(cfg.IdempotencyTTL),
			inbox:       memory.NewInbox(),
			outbox:      store.Outbox,
			close:       func() {},
		}, nil
	}
}

func openMongo(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage, error) {
	client, err := mongostore.New(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return storage{}, err
	}
	closeClient := func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Close(closeCtx); err != nil {
			logger.Warn("mongo disconnect failed", "error", err)
		}
	}
	if err := client.EnsureIndexes(ctx); err != nil {
		closeClient()
		return storage{}, err
	}
	box, err := infraoutbox.NewMongoStore(ctx, client.DB)
	if err != nil {
		closeClient()
		return storage{}, fmt.Errorf("mongo: outbox: %w", err)
	}
	idem, err := mongostore.NewIdempotencyStore(ctx, client.DB, cfg.IdempotencyTTL)
	if err != nil {
		closeClient()
		return storage{}, err
	}
	logger.Info("using mongo store", "database", cfg.MongoDB)
	return storage{
		factory:     mongostore.Factory{DB: client.DB, Outbox: box},
		idempotency: idem,
		inbox:       mongostore.NewInbox(client.DB, cfg.KafkaGroupID),
		outbox:      box,
		ping:        client.Ping,
		close:       closeClient,
	}, nil
}

func openPostgres(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage, error) {
	store, err := postgres.Open(ctx, cfg.PostgresURL, cfg.PostgresTablePrefix)
	if err != nil {
		return storage{}, err
	}
	logger.Info("using postgres store", "table_prefix", cfg.PostgresTablePrefix)
	return storage{
		factory:     postgres.Factory{Store: store},
		idempotency: store.Idempotency(cfg.IdempotencyTTL),
		inbox:       store.Inbox(cfg.KafkaGroupID),
		outbox:      store.Outbox(),
		ping:        store.Ping,
		close:       store.Close,
	}, nil
}
