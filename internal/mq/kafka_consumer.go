package mq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	pkglog "github.com/weiawesome/pdf-thumbnail/pkg/log"
)

// KafkaConsumer implements EventConsumer using confluent-kafka-go.
type KafkaConsumer struct {
	consumer   *kafka.Consumer
	topic      string
	dispatcher *Dispatcher
	doneCh     chan struct{}
}

// NewKafkaConsumer creates a new Kafka consumer for bucket notifications.
func NewKafkaConsumer(brokers, topic, groupID string, dispatcher *Dispatcher) (*KafkaConsumer, error) {
	c, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":  brokers,
		"group.id":           groupID,
		"auto.offset.reset":  "latest",
		"enable.auto.commit": true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}

	return &KafkaConsumer{
		consumer:   c,
		topic:      topic,
		dispatcher: dispatcher,
		doneCh:     make(chan struct{}),
	}, nil
}

// Start subscribes and consumes in a background goroutine.
func (kc *KafkaConsumer) Start(ctx context.Context) error {
	if err := kc.consumer.Subscribe(kc.topic, nil); err != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", kc.topic, err)
	}

	l := pkglog.L()
	l.Info().Str("topic", kc.topic).Msg("bucket notification consumer started")

	go kc.consumeLoop(ctx)

	return nil
}

func (kc *KafkaConsumer) consumeLoop(ctx context.Context) {
	l := pkglog.L()
	defer close(kc.doneCh)

	for {
		select {
		case <-ctx.Done():
			l.Info().Msg("bucket notification consumer shutting down")
			return
		default:
			msg, err := kc.consumer.ReadMessage(100 * time.Millisecond)
			if err != nil {
				var kerr kafka.Error
				if errors.As(err, &kerr) && kerr.Code() == kafka.ErrTimedOut {
					continue
				}
				l.Error().Err(err).Msg("kafka consumer error")
				continue
			}
			// In-flight conversions finish even after the shutdown signal.
			_ = kc.dispatcher.Dispatch(context.WithoutCancel(ctx), msg.Value)
		}
	}
}

// Close waits for the consume loop to drain, then closes the Kafka client.
// ctx passed to Start must already be cancelled.
func (kc *KafkaConsumer) Close() error {
	<-kc.doneCh
	if err := kc.consumer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka consumer: %w", err)
	}
	return nil
}
