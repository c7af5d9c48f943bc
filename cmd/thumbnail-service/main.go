package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/weiawesome/pdf-thumbnail/internal/app"
	"github.com/weiawesome/pdf-thumbnail/internal/config"
	"github.com/weiawesome/pdf-thumbnail/internal/metrics"
	"github.com/weiawesome/pdf-thumbnail/internal/mq"
	"github.com/weiawesome/pdf-thumbnail/internal/server"
	pkglog "github.com/weiawesome/pdf-thumbnail/pkg/log"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	app.InitLogging(cfg, "pdf-thumbnail-service")
	l := pkglog.L()
	l.Info().Msg("pdf-thumbnail-service starting")

	collector := metrics.New()

	pipeline, err := app.New(context.Background(), cfg, collector)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to initialise pipeline")
	}

	// Processed events are optional.
	var publisher mq.EventPublisher = mq.NopPublisher{}
	if cfg.Kafka.ProducerTopic != "" {
		publisher, err = mq.NewKafkaPublisher(mq.PublisherConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.ProducerTopic,
			Acks:         cfg.Kafka.ProducerAcks,
			Linger:       cfg.Kafka.ProducerLinger,
			FlushTimeout: cfg.Kafka.FlushTimeout,
			Partitions:   cfg.Kafka.TopicPartitions,
		})
		if err != nil {
			l.Fatal().Err(err).Msg("failed to init kafka publisher")
		}
	}

	dispatcher := mq.NewDispatcher(pipeline.Handler, publisher, mq.Filter{
		EventNames: cfg.Kafka.EventNameFilters,
		KeyPrefix:  cfg.Kafka.PrefixFilter,
	})

	consumer, err := mq.NewKafkaConsumer(cfg.Kafka.Brokers, cfg.Kafka.ConsumerTopic, cfg.Kafka.ConsumerGroupID, dispatcher)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to init kafka consumer")
	}

	srv := server.New(cfg.Server.Addr, l, collector)
	srv.Start()

	ctx, cancel := context.WithCancel(context.Background())

	if err := consumer.Start(ctx); err != nil {
		l.Fatal().Err(err).Msg("failed to start consumer")
	}

	// Block until SIGINT / SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	l.Info().Msg("shutting down: waiting for in-flight conversions to complete")
	cancel()

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		consumer.Close()
		publisher.Close()
		pipeline.Close()
	}()

	select {
	case <-shutdownDone:
		l.Info().Msg("shutdown complete")
	case <-time.After(30 * time.Second):
		l.Warn().Msg("shutdown timed out after 30s")
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error().Err(err).Msg("http server shutdown failed")
	}
}
