// Package app assembles the ledger's store and event publisher from
// configuration for the API server and the CLI.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/josh-kwaku/chatledger/internal/config"
	"github.com/josh-kwaku/chatledger/internal/domain"
	"github.com/josh-kwaku/chatledger/internal/events"
	"github.com/josh-kwaku/chatledger/internal/repository"
)

type Store interface {
	Load(ctx context.Context, chatID int64) (*domain.GroupState, error)
	Update(ctx context.Context, chatID int64, fn func(*domain.GroupState) error) error
	Ping(ctx context.Context) error
}

type Publisher interface {
	Publish(ctx context.Context, event domain.LedgerEvent) error
	Close() error
}

// Number of one-second waits for the database before giving up.
const connectAttempts = 30

// OpenStore returns the configured group store and a function releasing
// its resources.
func OpenStore(ctx context.Context, cfg *config.Config) (Store, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		slog.Warn("using in-memory ledger store, state is lost on restart")
		return repository.NewMemoryGroupStore(cfg.LockTimeout), func() {}, nil

	case config.StorePostgres:
		db, err := connectDB(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("OpenStore: %w", err)
		}
		if err := repository.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("OpenStore: %w", err)
		}
		closeDB := func() {
			if err := db.Close(); err != nil {
				slog.Error("failed to close database", "error", err)
			}
		}
		return repository.NewPostgresGroupStore(db, cfg.LockTimeout), closeDB, nil

	default:
		return nil, nil, fmt.Errorf("OpenStore: unknown store driver %q", cfg.StoreDriver)
	}
}

func NewPublisher(cfg *config.Config) Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		return events.NoopPublisher{}
	}
	slog.Info("publishing ledger events to kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
}

func connectDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	pool := repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	}

	var err error
	for i := range connectAttempts {
		var db *sql.DB
		if db, err = repository.NewPostgresDB(ctx, cfg.DatabaseURL, pool); err == nil {
			return db, nil
		}
		slog.Info("waiting for database", "attempt", i+1, "error", err)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("connectDB: %w", ctx.Err())
		case <-time.After(time.Second):
		}
	}
	return nil, fmt.Errorf("connectDB: gave up after %d attempts: %w", connectAttempts, err)
}
