package kafka

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/go-faster/errors"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderengine/internal/domain"
)

const (
	defaultReplayLimit       = 100
	defaultReplayIdleTimeout = 2 * time.Second
)

// OffsetClient — часть sarama.Client, нужная для обхода партиций.
type OffsetClient interface {
	GetOffset(topic string, partition int32, time int64) (int64, error)
	Partitions(topic string) ([]int32, error)
}

// PartitionConsumer — часть sarama.PartitionConsumer.
type PartitionConsumer interface {
	Messages() <-chan *sarama.ConsumerMessage
	Errors() <-chan *sarama.ConsumerError
	Close() error
}

// PartitionConsumerSource открывает чтение партиции с заданного offset.
type PartitionConsumerSource interface {
	ConsumePartition(topic string, partition int32, offset int64) (PartitionConsumer, error)
}

// SaramaConsumer адаптирует sarama.Consumer к PartitionConsumerSource.
type SaramaConsumer struct {
	Consumer sarama.Consumer
}

// ConsumePartition открывает sarama partition consumer.
func (c SaramaConsumer) ConsumePartition(topic string, partition int32, offset int64) (PartitionConsumer, error) {
	pc, err := c.Consumer.ConsumePartition(topic, partition, offset)
	if err != nil {
		return nil, err
	}
	return pc, nil
}

// ReplayOptions задаёт, что и куда переиграть из DLQ.
type ReplayOptions struct {
	SourceTopic string
	TargetTopic string
	// Limit ограничивает число просмотренных сообщений по всем партициям.
	Limit int
	// Execute=false — dry-run: кандидаты только логируются.
	Execute bool
	// FromNewest начинает с последних Limit сообщений каждой партиции.
	FromNewest  bool
	IdleTimeout time.Duration
}

func (o ReplayOptions) withDefaults() ReplayOptions {
	if strings.TrimSpace(o.SourceTopic) == "" {
		o.SourceTopic = TopicDeadLetterQueue
	}
	if strings.TrimSpace(o.TargetTopic) == "" {
		o.TargetTopic = TopicOrderEvents
	}
	if o.Limit <= 0 {
		o.Limit = defaultReplayLimit
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = defaultReplayIdleTimeout
	}
	return o
}

// ReplayStats — итог прохода по DLQ.
type ReplayStats struct {
	Processed int
	Replayed  int
	Skipped   int
}

func (s *ReplayStats) add(other ReplayStats) {
	s.Processed += other.Processed
	s.Replayed += other.Replayed
	s.Skipped += other.Skipped
}

// Replayer читает DLQ и возвращает исходные события заказа в рабочий topic.
type Replayer struct {
	client   OffsetClient
	consumer PartitionConsumerSource
	producer *Producer
	logger   *log.Entry
	now      func() time.Time
}

// NewReplayer создаёт Replayer. producer может быть nil для dry-run.
func NewReplayer(client OffsetClient, consumer PartitionConsumerSource, producer *Producer, logger *log.Entry) *Replayer {
	if logger == nil {
		logger = log.WithField("component", "dlq-replay")
	}
	return &Replayer{
		client:   client,
		consumer: consumer,
		producer: producer,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run просматривает партиции source topic по возрастанию номера, пока не исчерпан Limit.
func (r *Replayer) Run(ctx context.Context, opts ReplayOptions) (ReplayStats, error) {
	opts = opts.withDefaults()

	var stats ReplayStats
	if r.client == nil || r.consumer == nil {
		return stats, errors.New("kafka client and consumer are required")
	}
	if opts.Execute && r.producer == nil {
		return stats, errors.New("producer is required in execute mode")
	}

	partitions, err := r.client.Partitions(opts.SourceTopic)
	if err != nil {
		return stats, errors.Wrapf(err, "get partitions for topic %s", opts.SourceTopic)
	}
	if len(partitions) == 0 {
		r.logger.WithField("topic", opts.SourceTopic).Warn("source topic has no partitions")
		return stats, nil
	}
	sort.Slice(partitions, func(i, j int) bool { return partitions[i] < partitions[j] })

	for _, partition := range partitions {
		if stats.Processed >= opts.Limit {
			break
		}
		partitionStats, err := r.replayPartition(ctx, opts, partition, opts.Limit-stats.Processed)
		stats.add(partitionStats)
		if err != nil {
			return stats, err
		}
	}

	mode := "dry-run"
	if opts.Execute {
		mode = "execute"
	}
	r.logger.WithFields(log.Fields{
		"mode":      mode,
		"processed": stats.Processed,
		"replayed":  stats.Replayed,
		"skipped":   stats.Skipped,
	}).Info("dlq replay finished")

	return stats, nil
}

func (r *Replayer) replayPartition(ctx context.Context, opts ReplayOptions, partition int32, limit int) (ReplayStats, error) {
	var stats ReplayStats

	oldest, err := r.client.GetOffset(opts.SourceTopic, partition, sarama.OffsetOldest)
	if err != nil {
		return stats, errors.Wrapf(err, "get oldest offset for partition %d", partition)
	}
	newest, err := r.client.GetOffset(opts.SourceTopic, partition, sarama.OffsetNewest)
	if err != nil {
		return stats, errors.Wrapf(err, "get newest offset for partition %d", partition)
	}
	if newest <= oldest {
		return stats, nil
	}

	start := oldest
	if opts.FromNewest {
		start = max(newest-int64(limit), oldest)
	}

	pc, err := r.consumer.ConsumePartition(opts.SourceTopic, partition, start)
	if err != nil {
		return stats, errors.Wrapf(err, "consume partition %d", partition)
	}
	defer func() { _ = pc.Close() }()

	idle := time.NewTimer(opts.IdleTimeout)
	defer idle.Stop()

	for stats.Processed < limit {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case consumerErr := <-pc.Errors():
			if consumerErr != nil {
				return stats, errors.Wrapf(consumerErr, "partition %d consumer error", partition)
			}
		case msg, ok := <-pc.Messages():
			if !ok || msg == nil || msg.Offset >= newest {
				return stats, nil
			}
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(opts.IdleTimeout)

			stats.Processed++
			if err := r.replayMessage(opts, msg); err != nil {
				if errors.Is(err, ErrNotReplayable) {
					stats.Skipped++
					r.logger.WithError(err).WithFields(log.Fields{
						"partition": msg.Partition,
						"offset":    msg.Offset,
					}).Warn("skip dlq message")
					continue
				}
				return stats, err
			}
			stats.Replayed++

			if msg.Offset+1 >= newest {
				return stats, nil
			}
		case <-idle.C:
			return stats, nil
		}
	}

	return stats, nil
}

func (r *Replayer) replayMessage(opts ReplayOptions, msg *sarama.ConsumerMessage) error {
	envelope, err := ExtractReplay(msg.Value)
	if err != nil {
		return err
	}
	envelope.PublishedAt = r.now()

	key := envelope.AggregateID
	if key == "" {
		key = envelope.ID
	}

	if !opts.Execute {
		r.logger.WithFields(log.Fields{
			"partition":    msg.Partition,
			"offset":       msg.Offset,
			"target_topic": opts.TargetTopic,
			"key":          key,
			"event_type":   envelope.EventType,
		}).Info("dlq replay candidate")
		return nil
	}

	if err := r.producer.PublishEvent(opts.TargetTopic, key, envelope, envelope.Headers()); err != nil {
		return errors.Wrapf(err, "replay %s", envelope.ID)
	}
	return nil
}

// ErrNotReplayable — сообщение DLQ не содержит исходного события.
var ErrNotReplayable = errors.New("dlq message is not replayable")

// ExtractReplay разворачивает сообщение DLQ: конверт с domain.DeadLetter внутри.
// Возвращает конверт исходного события; ошибка ErrNotReplayable означает,
// что сообщение нужно пропустить.
func ExtractReplay(value []byte) (Envelope, error) {
	var outer Envelope
	if err := json.Unmarshal(value, &outer); err != nil {
		return Envelope{}, errors.Wrap(ErrNotReplayable, "decode dlq envelope")
	}
	if len(outer.Payload) == 0 || string(outer.Payload) == "null" {
		return Envelope{}, errors.Wrap(ErrNotReplayable, "dlq envelope has no payload")
	}

	var dead domain.DeadLetter
	if err := json.Unmarshal(outer.Payload, &dead); err != nil {
		return Envelope{}, errors.Wrap(ErrNotReplayable, "decode dead letter")
	}
	if len(dead.Payload) == 0 || string(dead.Payload) == "null" {
		return Envelope{}, errors.Wrap(ErrNotReplayable, "dead letter does not contain original payload")
	}

	return Envelope{
		ID:            firstNonEmpty(dead.OutboxID, outer.ID),
		AggregateType: firstNonEmpty(dead.AggregateType, outer.AggregateType),
		AggregateID:   firstNonEmpty(dead.AggregateID, outer.AggregateID),
		EventType:     firstNonEmpty(dead.EventType, outer.EventType),
		Payload:       dead.Payload,
		CreatedAt:     outer.CreatedAt,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
