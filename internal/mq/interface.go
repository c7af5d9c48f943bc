package mq

import (
	"context"
	"time"

	"github.com/weiawesome/pdf-thumbnail/internal/handler"
)

// ObjectRef identifies a stored object by its bucket and key.
type ObjectRef struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// ThumbnailProcessedEvent is published after all thumbnails of a source
// object were written.
type ThumbnailProcessedEvent struct {
	Source     ObjectRef   `json:"source"`
	Thumbnails []ObjectRef `json:"thumbnails"`
	Timestamp  int64       `json:"timestamp"`
}

// NewThumbnailProcessedEvent builds the event for a handled record.
func NewThumbnailProcessedEvent(out handler.Outcome, now time.Time) *ThumbnailProcessedEvent {
	thumbs := make([]ObjectRef, 0, len(out.Thumbnails))
	for _, k := range out.Thumbnails {
		thumbs = append(thumbs, ObjectRef{Bucket: out.DestinationBucket, Key: k})
	}
	return &ThumbnailProcessedEvent{
		Source:     ObjectRef{Bucket: out.SourceBucket, Key: out.SourceKey},
		Thumbnails: thumbs,
		Timestamp:  now.Unix(),
	}
}

// RecordHandler is the business-logic callback injected into the consumer.
type RecordHandler interface {
	Handle(ctx context.Context, records []handler.Record) (handler.Result, error)
}

// EventConsumer abstracts the Kafka consumer for bucket notifications.
type EventConsumer interface {
	Start(ctx context.Context) error
	Close() error
}

// EventPublisher abstracts the Kafka producer for thumbnail-processed events.
type EventPublisher interface {
	PublishThumbnailProcessed(ctx context.Context, event *ThumbnailProcessedEvent) error
	Close() error
}

// NopPublisher drops every event. Used when no producer topic is configured.
type NopPublisher struct{}

func (NopPublisher) PublishThumbnailProcessed(context.Context, *ThumbnailProcessedEvent) error {
	return nil
}

func (NopPublisher) Close() error { return nil }
