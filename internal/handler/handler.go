// Package handler adapts object-created notifications to thumbnail jobs.
package handler

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	apperrors "github.com/weiawesome/pdf-thumbnail/internal/errors"
	"github.com/weiawesome/pdf-thumbnail/internal/metrics"
	"github.com/weiawesome/pdf-thumbnail/internal/resolver"
	"github.com/weiawesome/pdf-thumbnail/internal/thumbnail"
	pkglog "github.com/weiawesome/pdf-thumbnail/pkg/log"
)

// Record is one object-created notification. Key is raw as delivered by the
// event source: percent-encoded, with '+' standing for a space.
type Record struct {
	Bucket string
	Key    string
}

// Outcome describes a record that produced thumbnails.
type Outcome struct {
	SourceBucket      string
	SourceKey         string
	DestinationBucket string
	Thumbnails        []string
}

// Result summarises one Handle call.
type Result struct {
	Processed []Outcome
	Skipped   int
	Failed    int
}

// Generator is the part of thumbnail.Thumbnailer the handler drives.
type Generator interface {
	GenerateAll(ctx context.Context, srcBucket, srcKey, dstBucket string, spec thumbnail.ResolutionSpec) ([]string, error)
}

// Options configure a Handler.
type Options struct {
	Resolutions thumbnail.ResolutionSpec
	// SkipInvalidType logs and skips records whose key has no extension or a
	// non-PDF extension instead of failing the invocation.
	SkipInvalidType bool
}

// Handler resolves the destination of each record and fans out its jobs.
type Handler struct {
	resolver  resolver.Resolver
	generator Generator
	opts      Options
	metrics   *metrics.Collector
}

// New creates a Handler. m may be nil.
func New(r resolver.Resolver, g Generator, opts Options, m *metrics.Collector) *Handler {
	return &Handler{resolver: r, generator: g, opts: opts, metrics: m}
}

// DecodeKey turns an event key into the object key: '+' becomes a space and
// percent escapes are decoded.
func DecodeKey(raw string) (string, error) {
	key, err := url.QueryUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("decode key %q: %w", raw, err)
	}
	return key, nil
}

// Handle processes records in order. Every record is attempted; the returned
// error joins the failures of all records that did not succeed.
func (h *Handler) Handle(ctx context.Context, records []Record) (Result, error) {
	var (
		res  Result
		errs []error
	)

	for _, rec := range records {
		out, err := h.handleRecord(ctx, rec)
		switch {
		case err == nil:
			res.Processed = append(res.Processed, out)
			h.metrics.IncEvent(metrics.StatusSuccess)
		case h.opts.SkipInvalidType && apperrors.IsInvalidType(err):
			res.Skipped++
			h.metrics.IncEvent(metrics.StatusSkipped)
		default:
			res.Failed++
			h.metrics.IncEvent(metrics.StatusFailed)
			errs = append(errs, err)
		}
	}

	return res, apperrors.Join(errs...)
}

func (h *Handler) handleRecord(ctx context.Context, rec Record) (Outcome, error) {
	l := pkglog.Ctx(ctx)

	key, err := DecodeKey(rec.Key)
	if err != nil {
		l.Error().Err(err).Str(pkglog.FieldBucket, rec.Bucket).Msg("Unable to decode object key")
		return Outcome{}, err
	}

	dst, err := h.resolver.Resolve(ctx, rec.Bucket)
	if err != nil {
		l.Error().Err(err).
			Str(pkglog.FieldBucket, rec.Bucket).
			Str(pkglog.FieldKey, key).
			Msgf("Unable to resolve destination bucket for %s", rec.Bucket)
		return Outcome{}, err
	}

	keys, err := h.generator.GenerateAll(ctx, rec.Bucket, key, dst, h.opts.Resolutions)
	if err != nil {
		ev := l.Error()
		if h.opts.SkipInvalidType && apperrors.IsInvalidType(err) {
			ev = l.Info()
		}
		ev.Err(err).
			Str(pkglog.FieldBucket, rec.Bucket).
			Str(pkglog.FieldKey, key).
			Str(pkglog.FieldDstBucket, dst).
			Strs("written", keys).
			Msgf("Unable to create thumbnails for %s/%s and upload to %s due to an error", rec.Bucket, key, dst)
		return Outcome{}, err
	}

	l.Info().
		Str(pkglog.FieldBucket, rec.Bucket).
		Str(pkglog.FieldKey, key).
		Str(pkglog.FieldDstBucket, dst).
		Strs("thumbnails", keys).
		Msgf("Successfully created thumbnails for %s/%s and uploaded to %s: %s", rec.Bucket, key, dst, strings.Join(keys, ", "))

	return Outcome{
		SourceBucket:      rec.Bucket,
		SourceKey:         key,
		DestinationBucket: dst,
		Thumbnails:        keys,
	}, nil
}
