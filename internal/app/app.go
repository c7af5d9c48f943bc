// Package app wires configuration into a ready-to-use thumbnail pipeline.
package app

import (
	"context"
	"fmt"

	"github.com/weiawesome/pdf-thumbnail/internal/config"
	apperrors "github.com/weiawesome/pdf-thumbnail/internal/errors"
	"github.com/weiawesome/pdf-thumbnail/internal/handler"
	"github.com/weiawesome/pdf-thumbnail/internal/metrics"
	"github.com/weiawesome/pdf-thumbnail/internal/rasterizer"
	"github.com/weiawesome/pdf-thumbnail/internal/resolver"
	"github.com/weiawesome/pdf-thumbnail/internal/thumbnail"
	pkglog "github.com/weiawesome/pdf-thumbnail/pkg/log"
	"github.com/weiawesome/pdf-thumbnail/pkg/storage"
)

// App holds the pipeline components built from one Config.
type App struct {
	Config      *config.Config
	Store       storage.ObjectStore
	Rasterizer  *rasterizer.Ghostscript
	Resolver    resolver.Resolver
	Thumbnailer *thumbnail.Thumbnailer
	Handler     *handler.Handler
	Metrics     *metrics.Collector

	closeResolver func() error
}

// InitLogging initialises the global logger for service.
func InitLogging(cfg *config.Config, service string) {
	pkglog.Init(pkglog.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Level == "debug",
		ServiceName: service,
	})
}

// New builds every component. m may be nil.
func New(ctx context.Context, cfg *config.Config, m *metrics.Collector) (*App, error) {
	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindConfig, fmt.Sprintf("init %s storage", cfg.Storage.Type))
	}

	res, closeResolver, err := resolver.New(ctx, cfg.Destination, cfg.AWS.Region)
	if err != nil {
		return nil, err
	}

	gs := rasterizer.NewGhostscript(cfg.Ghostscript)

	th := thumbnail.New(store, gs, thumbnail.Options{
		Naming: thumbnail.Naming{
			Prefix: cfg.Thumbnail.OutputPrefix,
			Suffix: cfg.Thumbnail.Suffix,
		},
		MaxWidth:  cfg.Thumbnail.MaxWidth,
		MaxHeight: cfg.Thumbnail.MaxHeight,
	}, m)

	h := handler.New(res, th, handler.Options{
		Resolutions:     ResolutionSpec(cfg.Thumbnail),
		SkipInvalidType: cfg.Handler.SkipInvalidType,
	}, m)

	l := pkglog.L()
	l.Info().
		Str("storage", cfg.Storage.Type).
		Str("destination", cfg.Destination.String()).
		Str("ghostscript", cfg.Ghostscript.Path).
		Msg("thumbnail pipeline initialised")

	return &App{
		Config:        cfg,
		Store:         store,
		Rasterizer:    gs,
		Resolver:      res,
		Thumbnailer:   th,
		Handler:       h,
		Metrics:       m,
		closeResolver: closeResolver,
	}, nil
}

// ResolutionSpec maps thumbnail config to the fan-out spec.
func ResolutionSpec(cfg config.ThumbnailConfig) thumbnail.ResolutionSpec {
	if len(cfg.Resolutions) > 0 {
		return thumbnail.NamedResolutions(cfg.Resolutions)
	}
	return thumbnail.SingleResolution(cfg.Resolution)
}

// Close releases backend connections.
func (a *App) Close() error {
	if a.closeResolver == nil {
		return nil
	}
	return a.closeResolver()
}
