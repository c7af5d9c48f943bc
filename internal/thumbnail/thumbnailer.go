// Package thumbnail turns PDF objects into PNG thumbnails of their first page.
//
// Every failure Generate returns carries an error kind. Storage errors from
// the download step are wrapped as DownloadFailed rather than passed through
// bare; the storage error stays in the chain, so errors.Is against it (for
// example storage.ErrNotFound) still matches.
package thumbnail

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	apperrors "github.com/weiawesome/pdf-thumbnail/internal/errors"
	"github.com/weiawesome/pdf-thumbnail/internal/metrics"
	"github.com/weiawesome/pdf-thumbnail/internal/rasterizer"
	pkglog "github.com/weiawesome/pdf-thumbnail/pkg/log"
	"github.com/weiawesome/pdf-thumbnail/pkg/storage"
)

// Options tune key naming and output post-processing.
type Options struct {
	Naming    Naming
	MaxWidth  int
	MaxHeight int
}

// Thumbnailer runs validate, download, convert and upload for a job.
type Thumbnailer struct {
	store      storage.ObjectStore
	rasterizer rasterizer.Rasterizer
	naming     Naming
	fit        *Fitter
	metrics    *metrics.Collector
}

// New creates a Thumbnailer. m may be nil.
func New(store storage.ObjectStore, r rasterizer.Rasterizer, opts Options, m *metrics.Collector) *Thumbnailer {
	return &Thumbnailer{
		store:      store,
		rasterizer: r,
		naming:     opts.Naming,
		fit:        NewFitter(opts.MaxWidth, opts.MaxHeight),
		metrics:    m,
	}
}

// Naming returns the key naming used by GenerateAll.
func (t *Thumbnailer) Naming() Naming {
	return t.naming
}

// Validate checks a job without touching storage.
func Validate(job Job) error {
	if job.SourceBucket == job.DestinationBucket {
		return apperrors.Newf(apperrors.KindSameBucket,
			"destination bucket must not match source bucket %s", job.SourceBucket)
	}

	i := strings.LastIndex(job.SourceKey, ".")
	if i < 0 {
		return apperrors.Newf(apperrors.KindUnknownFileType,
			"unable to infer document type for key %s", job.SourceKey)
	}

	if ext := job.SourceKey[i+1:]; ext != inputExtension {
		return apperrors.Newf(apperrors.KindWrongFileType,
			"unsupported document type %q for key %s", ext, job.SourceKey)
	}

	return nil
}

// Generate produces one thumbnail. Nothing is written unless every step
// before upload succeeds.
func (t *Thumbnailer) Generate(ctx context.Context, job Job) error {
	err := t.generate(ctx, job)
	if err != nil {
		t.metrics.IncJob(metrics.StatusFailed)
		return err
	}
	t.metrics.IncJob(metrics.StatusSuccess)
	return nil
}

func (t *Thumbnailer) generate(ctx context.Context, job Job) error {
	l := pkglog.Ctx(ctx).With().
		Str(pkglog.FieldBucket, job.SourceBucket).
		Str(pkglog.FieldKey, job.SourceKey).
		Str(pkglog.FieldDstBucket, job.DestinationBucket).
		Str(pkglog.FieldDstKey, job.DestinationKey).
		Int(pkglog.FieldResolution, job.Resolution).
		Logger()

	if err := Validate(job); err != nil {
		return err
	}

	// 1. Download.
	pdf, err := t.download(ctx, job.SourceBucket, job.SourceKey)
	if err != nil {
		return err
	}
	l.Debug().Int(pkglog.FieldBytes, len(pdf)).Msg("downloaded source")

	// 2. Convert.
	start := time.Now()
	png, err := t.rasterizer.Rasterize(ctx, pdf, job.Resolution)
	elapsed := time.Since(start)
	t.metrics.ObserveConversion(elapsed)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindConversion) {
			return err
		}
		return apperrors.Wrap(err, apperrors.KindConversion, "rasterize "+job.SourceKey)
	}

	png, err = t.fit.Apply(png)
	if err != nil {
		return err
	}
	l.Debug().Int(pkglog.FieldBytes, len(png)).Dur(pkglog.FieldDuration, elapsed).Msg("rasterized first page")

	// 3. Upload.
	if err := t.store.Put(ctx, job.DestinationBucket, job.DestinationKey,
		bytes.NewReader(png), int64(len(png)), contentTypePNG); err != nil {
		return apperrors.Wrap(err, apperrors.KindUpload,
			fmt.Sprintf("put %s/%s", job.DestinationBucket, job.DestinationKey))
	}

	l.Debug().Msg("uploaded thumbnail")
	return nil
}

func (t *Thumbnailer) download(ctx context.Context, bucket, key string) ([]byte, error) {
	rc, err := t.store.Get(ctx, bucket, key)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindDownload, fmt.Sprintf("get %s/%s", bucket, key))
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindDownload, fmt.Sprintf("read %s/%s", bucket, key))
	}
	return data, nil
}
