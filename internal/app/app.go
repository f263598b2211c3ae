// Package app собирает сервис: хранилище по драйверу, движок заказов,
// HTTP API, outbox-воркер, метрики и gRPC health.
package app

import (
	"context"
	"net"
	"net/http"

	"github.com/go-faster/errors"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	healthcheck "github.com/vladislavdragonenkov/orderengine/internal/health"
	"github.com/vladislavdragonenkov/orderengine/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/orderengine/internal/metrics"
	"github.com/vladislavdragonenkov/orderengine/internal/service/inventory"
	"github.com/vladislavdragonenkov/orderengine/internal/service/orders"
	"github.com/vladislavdragonenkov/orderengine/internal/service/outbox"
	"github.com/vladislavdragonenkov/orderengine/internal/service/payment"
	"github.com/vladislavdragonenkov/orderengine/internal/transport/httpapi"
	"github.com/vladislavdragonenkov/orderengine/internal/version"
)

// Run запускает сервис и блокируется до отмены ctx или падения одного из серверов.
// При штатной остановке возвращает ctx.Err().
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.close(); err != nil {
			logger.WithError(err).Warn("failed to close storage")
		}
	}()

	// Без Kafka сервис остаётся рабочим: события уходят в лог.
	producer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)
	defer closeKafka(producer, logger)

	engine := newEngine(cfg, deps)

	workerCtx, stopWorker := context.WithCancel(ctx)
	workerDone := make(chan struct{})
	worker := newOutboxWorker(cfg, deps, producer)
	go func() {
		defer close(workerDone)
		worker.Run(workerCtx)
	}()
	defer func() {
		stopWorker()
		<-workerDone
	}()

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("storage", deps.storageChecker)
	healthHandler.RegisterChecker("outbox", healthcheck.NewOutboxBacklogChecker(
		"outbox", deps.outboxRepo, cfg.OutboxMaxPending, cfg.OutboxMaxAge))
	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)
	defer shutdownHTTP(metricsSrv, logger)

	apiListener, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return errors.Wrap(err, "listen http api")
	}
	grpcListener, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		_ = apiListener.Close()
		return errors.Wrap(err, "listen grpc")
	}

	apiSrv := &http.Server{
		Handler:           httpapi.NewRouter(httpapi.NewHandler(engine, logger.WithField("layer", "http"))),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	grpcServer, healthServer := newGRPCServer(logger)

	errCh := make(chan error, 2)
	go func() {
		logger.Infof("HTTP API слушает %s", apiListener.Addr())
		if err := apiSrv.Serve(apiListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- errors.Wrap(err, "http api")
		}
	}()
	go func() {
		logger.Infof("gRPC health сервер слушает %s", grpcListener.Addr())
		if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- errors.Wrap(err, "grpc")
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем серверы")
		stopGRPC(grpcServer, healthServer, logger)
		shutdownHTTP(apiSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		stopGRPC(grpcServer, healthServer, logger)
		shutdownHTTP(apiSrv, logger)
		return err
	}
}

func newEngine(cfg Config, deps runtimeDependencies) *orders.Engine {
	// Платёжный шлюз и склад — заглушки; реальные клиенты подключаются через те же порты.
	return orders.NewEngine(deps.repo,
		orders.WithTimeline(deps.timelineRepo),
		orders.WithOutbox(deps.outboxRepo),
		orders.WithPaymentGateway(payment.NewMockGateway()),
		orders.WithInventory(inventory.NewThresholdChecker(inventory.DefaultMaxQuantity)),
		orders.WithUsageCounter(deps.usageCounter),
		orders.WithMetrics(metrics.NewEngineMetrics()),
		orders.WithLogger(log.WithField("component", "order-engine")),
		orders.WithDefaultCurrency(cfg.DefaultCurrency),
	)
}

func newOutboxWorker(cfg Config, deps runtimeDependencies, producer *kafka.Producer) *outbox.Worker {
	logger := log.WithField("component", "outbox-worker")
	publisher, dlq := outboxPublishers(producer, cfg.KafkaTopic, logger)

	opts := []outbox.Option{
		outbox.WithLogger(logger),
		outbox.WithPollInterval(cfg.OutboxPollInterval),
		outbox.WithBatchSize(cfg.OutboxBatchSize),
		outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
		outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
	}
	if dlq != nil {
		opts = append(opts, outbox.WithDLQPublisher(dlq))
	}
	return outbox.NewWorker(deps.outboxRepo, publisher, opts...)
}
