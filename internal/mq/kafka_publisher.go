package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	pkglog "github.com/weiawesome/pdf-thumbnail/pkg/log"
)

const (
	headerEventType   = "event-type"
	headerContentType = "content-type"

	eventTypeThumbnailProcessed = "thumbnail.processed"
)

// PublisherConfig configures the thumbnail-processed producer.
type PublisherConfig struct {
	Brokers      string
	Topic        string
	Acks         string
	Linger       time.Duration
	FlushTimeout time.Duration
	// Partitions > 0 creates Topic on startup when it does not exist yet.
	Partitions int
}

func (c PublisherConfig) withDefaults() PublisherConfig {
	if c.Acks == "" {
		c.Acks = "1"
	}
	if c.Linger <= 0 {
		c.Linger = 5 * time.Millisecond
	}
	if c.FlushTimeout <= 0 {
		c.FlushTimeout = 5 * time.Second
	}
	return c
}

func (c PublisherConfig) producerConfig() *kafka.ConfigMap {
	return &kafka.ConfigMap{
		"bootstrap.servers": c.Brokers,
		"acks":              c.Acks,
		"linger.ms":         int(c.Linger / time.Millisecond),
	}
}

// KafkaPublisher implements EventPublisher using confluent-kafka-go.
type KafkaPublisher struct {
	producer *kafka.Producer
	cfg      PublisherConfig
	reports  chan struct{}
	failed   atomic.Int64
}

// NewKafkaPublisher creates a producer for thumbnail-processed events.
func NewKafkaPublisher(cfg PublisherConfig) (*KafkaPublisher, error) {
	cfg = cfg.withDefaults()
	l := pkglog.L()

	if cfg.Partitions > 0 {
		if err := createTopic(cfg.Brokers, cfg.Topic, cfg.Partitions); err != nil {
			l.Warn().Err(err).Str("topic", cfg.Topic).Msg("could not create processed-events topic")
		}
	}

	p, err := kafka.NewProducer(cfg.producerConfig())
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	kp := &KafkaPublisher{
		producer: p,
		cfg:      cfg,
		reports:  make(chan struct{}),
	}
	go kp.watchDeliveries()

	l.Info().Str("topic", cfg.Topic).Str("acks", cfg.Acks).Msg("kafka publisher ready")
	return kp, nil
}

func createTopic(brokers, topic string, partitions int) error {
	admin, err := kafka.NewAdminClient(&kafka.ConfigMap{"bootstrap.servers": brokers})
	if err != nil {
		return fmt.Errorf("create admin client: %w", err)
	}
	defer admin.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results, err := admin.CreateTopics(ctx, []kafka.TopicSpecification{{
		Topic:             topic,
		NumPartitions:     partitions,
		ReplicationFactor: 1,
	}})
	if err != nil {
		return err
	}
	for _, r := range results {
		if code := r.Error.Code(); code != kafka.ErrNoError && code != kafka.ErrTopicAlreadyExists {
			return fmt.Errorf("topic %s: %v", r.Topic, r.Error)
		}
	}
	return nil
}

// watchDeliveries drains the producer's event channel until Close.
func (kp *KafkaPublisher) watchDeliveries() {
	defer close(kp.reports)
	l := pkglog.L()

	for e := range kp.producer.Events() {
		switch ev := e.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				kp.failed.Add(1)
				l.Error().Err(ev.TopicPartition.Error).
					Str(pkglog.FieldKey, string(ev.Key)).
					Msg("thumbnail processed event not delivered")
			}
		case kafka.Error:
			l.Warn().Err(ev).Msg("kafka producer error")
		}
	}
}

// newMessage encodes event for topic. The key is the source object so
// events for one object stay on one partition.
func newMessage(topic string, event *ThumbnailProcessedEvent) (*kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode thumbnail processed event: %w", err)
	}

	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(event.Source.Bucket + "/" + event.Source.Key),
		Value:          value,
		Headers: []kafka.Header{
			{Key: headerEventType, Value: []byte(eventTypeThumbnailProcessed)},
			{Key: headerContentType, Value: []byte("application/json")},
		},
	}, nil
}

// PublishThumbnailProcessed enqueues event. Delivery is asynchronous;
// failures are logged and their total is reported on Close.
func (kp *KafkaPublisher) PublishThumbnailProcessed(ctx context.Context, event *ThumbnailProcessedEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := newMessage(kp.cfg.Topic, event)
	if err != nil {
		return err
	}
	if err := kp.producer.Produce(msg, nil); err != nil {
		return fmt.Errorf("produce to %s: %w", kp.cfg.Topic, err)
	}
	return nil
}

// Close waits up to FlushTimeout for queued events, then releases the
// producer. Events still queued after the timeout are reported as an error.
func (kp *KafkaPublisher) Close() error {
	pending := kp.producer.Flush(int(kp.cfg.FlushTimeout / time.Millisecond))
	kp.producer.Close()
	<-kp.reports

	if n := kp.failed.Load(); n > 0 {
		l := pkglog.L()
		l.Warn().Int64("failed", n).Str("topic", kp.cfg.Topic).Msg("thumbnail processed events rejected by broker")
	}
	if pending > 0 {
		return fmt.Errorf("%d thumbnail processed events not flushed within %s", pending, kp.cfg.FlushTimeout)
	}
	return nil
}
