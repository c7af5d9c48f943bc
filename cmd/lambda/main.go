// Command lambda is the AWS Lambda entry point: it turns S3 object-created
// notifications into PNG thumbnails of the first PDF page.
package main

import (
	"context"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"

	"github.com/weiawesome/pdf-thumbnail/internal/app"
	"github.com/weiawesome/pdf-thumbnail/internal/config"
	"github.com/weiawesome/pdf-thumbnail/internal/handler"
	pkglog "github.com/weiawesome/pdf-thumbnail/pkg/log"
)

// recordHandler is the part of handler.Handler an invocation drives.
type recordHandler interface {
	Handle(ctx context.Context, records []handler.Record) (handler.Result, error)
}

// invoker adapts S3 notifications to the record handler. A nil error tells
// the runtime the invocation is done; any error fails it.
type invoker struct {
	handler recordHandler
}

// setup runs once per cold start, before the first invocation.
func setup() *invoker {
	initStart := time.Now()

	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	app.InitLogging(cfg, "pdf-thumbnail-lambda")
	l := pkglog.L()

	pipeline, err := app.New(context.Background(), cfg, nil)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to initialise pipeline")
	}

	l.Info().Dur("init", time.Since(initStart)).Msg("cold start complete")
	return &invoker{handler: pipeline.Handler}
}

// toRecords extracts bucket and raw key from every notification record.
func toRecords(event events.S3Event) []handler.Record {
	records := make([]handler.Record, 0, len(event.Records))
	for _, r := range event.Records {
		records = append(records, handler.Record{
			Bucket: r.S3.Bucket.Name,
			Key:    r.S3.Object.Key,
		})
	}
	return records
}

func (i *invoker) handle(ctx context.Context, event events.S3Event) error {
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		ctx = pkglog.WithRequestID(ctx, lc.AwsRequestID)
	}

	_, err := i.handler.Handle(ctx, toRecords(event))
	return err
}

func main() {
	lambda.Start(setup().handle)
}
