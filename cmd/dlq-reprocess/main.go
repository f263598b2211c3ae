package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/go-faster/errors"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderengine/internal/messaging/kafka"
)

const (
	defaultReplayLimit = 100
	defaultIdleTimeout = 2 * time.Second
	brokersEnv         = "OMS_KAFKA_BROKERS"
)

type config struct {
	brokers []string
	opts    kafka.ReplayOptions
}

type replayDependencies struct {
	client   kafka.OffsetClient
	consumer kafka.PartitionConsumerSource
	producer *kafka.Producer
	close    func()
}

var newReplayDependencies = func(cfg config) (replayDependencies, error) {
	consumerConfig := sarama.NewConfig()
	consumerConfig.Consumer.Return.Errors = true

	client, err := sarama.NewClient(cfg.brokers, consumerConfig)
	if err != nil {
		return replayDependencies{}, errors.Wrap(err, "create kafka client")
	}

	consumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		_ = client.Close()
		return replayDependencies{}, errors.Wrap(err, "create kafka consumer")
	}

	deps := replayDependencies{
		client:   client,
		consumer: kafka.SaramaConsumer{Consumer: consumer},
	}

	if cfg.opts.Execute {
		producer, err := kafka.NewProducer(cfg.brokers, "dlq-reprocess")
		if err != nil {
			_ = consumer.Close()
			_ = client.Close()
			return replayDependencies{}, errors.Wrap(err, "create kafka producer")
		}
		deps.producer = producer
	}

	deps.close = func() {
		if deps.producer != nil {
			_ = deps.producer.Close()
		}
		_ = consumer.Close()
		_ = client.Close()
	}
	return deps, nil
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)

	cfg, err := readConfig(os.Args[1:], os.Stderr)
	if err != nil {
		fail("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		fail("dlq replay failed: %v", err)
	}
}

func readConfig(args []string, output io.Writer) (config, error) {
	var (
		brokersRaw string
		cfg        config
	)

	fs := flag.NewFlagSet("dlq-reprocess", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&brokersRaw, "brokers", "", "Kafka brokers as comma-separated list (fallback: "+brokersEnv+")")
	fs.StringVar(&cfg.opts.SourceTopic, "source-topic", kafka.TopicDeadLetterQueue, "DLQ source topic")
	fs.StringVar(&cfg.opts.TargetTopic, "target-topic", kafka.TopicOrderEvents, "target topic for replay")
	fs.IntVar(&cfg.opts.Limit, "limit", defaultReplayLimit, "max number of messages to scan/replay")
	fs.BoolVar(&cfg.opts.Execute, "execute", false, "execute replay; default is dry-run")
	fs.BoolVar(&cfg.opts.FromNewest, "from-newest", false, "scan latest messages first (bounded by limit)")
	fs.DurationVar(&cfg.opts.IdleTimeout, "idle-timeout", defaultIdleTimeout, "idle timeout per partition")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	if strings.TrimSpace(brokersRaw) == "" {
		brokersRaw = os.Getenv(brokersEnv)
	}

	cfg.brokers = parseBrokers(brokersRaw)
	if len(cfg.brokers) == 0 {
		return config{}, errors.Errorf("kafka brokers are required (-brokers or %s)", brokersEnv)
	}
	if strings.TrimSpace(cfg.opts.SourceTopic) == "" {
		return config{}, errors.New("source-topic is required")
	}
	if strings.TrimSpace(cfg.opts.TargetTopic) == "" {
		return config{}, errors.New("target-topic is required")
	}
	if cfg.opts.Limit <= 0 {
		return config{}, errors.New("limit must be > 0")
	}
	if cfg.opts.IdleTimeout <= 0 {
		return config{}, errors.New("idle-timeout must be > 0")
	}

	return cfg, nil
}

func parseBrokers(raw string) []string {
	chunks := strings.Split(raw, ",")
	brokers := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		broker := strings.TrimSpace(chunk)
		if broker == "" {
			continue
		}
		brokers = append(brokers, broker)
	}
	return brokers
}

func run(ctx context.Context, cfg config) error {
	logger := log.WithField("component", "dlq-reprocess")
	logger.WithFields(log.Fields{
		"source_topic": cfg.opts.SourceTopic,
		"target_topic": cfg.opts.TargetTopic,
		"limit":        cfg.opts.Limit,
		"execute":      cfg.opts.Execute,
		"from_newest":  cfg.opts.FromNewest,
	}).Info("starting dlq replay")

	deps, err := newReplayDependencies(cfg)
	if err != nil {
		return err
	}
	if deps.close != nil {
		defer deps.close()
	}

	replayer := kafka.NewReplayer(deps.client, deps.consumer, deps.producer, logger)
	_, err = replayer.Run(ctx, cfg.opts)
	return err
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
