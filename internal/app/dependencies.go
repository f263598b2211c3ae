package app

import (
	"context"

	"github.com/go-faster/errors"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderengine/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/orderengine/internal/health"
	"github.com/vladislavdragonenkov/orderengine/internal/storage/memory"
	"github.com/vladislavdragonenkov/orderengine/internal/storage/postgres"
)

// runtimeDependencies — репозитории и проверки, зависящие от драйвера хранилища.
type runtimeDependencies struct {
	repo           domain.OrderRepository
	timelineRepo   domain.TimelineRepository
	outboxRepo     domain.OutboxRepository
	usageCounter   domain.DiscountUsageCounter
	storageChecker healthcheck.Checker
	closeFn        func() error
}

func (d runtimeDependencies) close() error {
	if d.closeFn == nil {
		return nil
	}
	return d.closeFn()
}

// initRuntimeDependencies создаёт хранилище по cfg.StorageDriver.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (runtimeDependencies, error) {
	switch cfg.StorageDriver {
	case "", StorageDriverMemory:
		logger.Info("using in-memory storage")
		return runtimeDependencies{
			repo:         memory.NewOrderRepository(),
			timelineRepo: memory.NewTimelineRepository(),
			outboxRepo:   memory.NewOutboxRepository(),
			usageCounter: memory.NewDiscountUsageCounter(),
			storageChecker: healthcheck.NewSimpleChecker("storage", func(context.Context) error {
				return nil
			}),
		}, nil
	case StorageDriverPostgres:
		return initPostgresDependencies(ctx, cfg, logger)
	default:
		return runtimeDependencies{}, errors.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

func initPostgresDependencies(ctx context.Context, cfg Config, logger *log.Entry) (runtimeDependencies, error) {
	if cfg.PostgresDSN == "" {
		return runtimeDependencies{}, errors.New("postgres dsn is required")
	}

	store, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return runtimeDependencies{}, errors.Wrap(err, "open postgres")
	}

	if cfg.PostgresAutoMigrate {
		if err := store.MigrateUp(ctx, 0); err != nil {
			_ = store.Close()
			return runtimeDependencies{}, errors.Wrap(err, "apply migrations")
		}
		status, err := store.Status(ctx)
		if err != nil {
			_ = store.Close()
			return runtimeDependencies{}, errors.Wrap(err, "migration status")
		}
		logger.WithFields(log.Fields{
			"version": status.Version,
			"applied": status.Applied,
		}).Info("postgres migrations are up to date")
	}

	logger.Info("using postgres storage")
	return runtimeDependencies{
		repo:           postgres.NewOrderRepository(store),
		timelineRepo:   postgres.NewTimelineRepository(store),
		outboxRepo:     postgres.NewOutboxRepository(store),
		usageCounter:   postgres.NewDiscountUsageCounter(store),
		storageChecker: healthcheck.NewStorageChecker("postgres", store),
		closeFn:        store.Close,
	}, nil
}
