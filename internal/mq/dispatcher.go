package mq

import (
	"context"
	"time"

	"github.com/google/uuid"

	pkglog "github.com/weiawesome/pdf-thumbnail/pkg/log"
)

// Dispatcher turns one notification message into handler calls and
// processed events. It holds no Kafka state so it can run without a broker.
type Dispatcher struct {
	handler   RecordHandler
	publisher EventPublisher
	filter    Filter
	now       func() time.Time
}

// NewDispatcher creates a Dispatcher. A nil publisher publishes nothing.
func NewDispatcher(h RecordHandler, p EventPublisher, f Filter) *Dispatcher {
	if p == nil {
		p = NopPublisher{}
	}
	return &Dispatcher{handler: h, publisher: p, filter: f, now: time.Now}
}

// Dispatch handles one message value. Errors are logged and returned; the
// consumer keeps going either way.
func (d *Dispatcher) Dispatch(ctx context.Context, value []byte) error {
	ctx = pkglog.WithRequestID(ctx, uuid.NewString())
	l := pkglog.Ctx(ctx)

	records, err := ParseRecords(value, d.filter)
	if err != nil {
		l.Error().Err(err).Msg("failed to parse bucket notification")
		return err
	}
	if len(records) == 0 {
		return nil
	}

	l.Info().Int("records", len(records)).Msg("received bucket notification")

	res, err := d.handler.Handle(ctx, records)

	for _, out := range res.Processed {
		if perr := d.publisher.PublishThumbnailProcessed(ctx, NewThumbnailProcessedEvent(out, d.now())); perr != nil {
			l.Error().Err(perr).
				Str(pkglog.FieldBucket, out.SourceBucket).
				Str(pkglog.FieldKey, out.SourceKey).
				Msg("failed to publish thumbnail processed event")
		}
	}

	if err != nil {
		l.Error().Err(err).Int("failed", res.Failed).Msg("failed to handle bucket notification")
	}
	return err
}
