package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned (wrapped) when the requested object does not exist.
var ErrNotFound = errors.New("object not found")

// ObjectStore defines the object operations the thumbnail pipeline needs.
// Buckets are passed per call because the source bucket comes from the
// triggering event and the destination bucket may be resolved at runtime.
// Implementations must be safe for concurrent use.
type ObjectStore interface {
	// Get retrieves the content of bucket/key.
	// The caller is responsible for closing the returned ReadCloser.
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)

	// Put stores content from the reader at bucket/key.
	// The size parameter is the expected content size (-1 if unknown).
	Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error

	// Exists checks if bucket/key exists.
	Exists(ctx context.Context, bucket, key string) (bool, error)
}

// Config selects and configures an ObjectStore backend.
type Config struct {
	Type  string      `mapstructure:"type"` // "s3", "minio", "local"
	S3    S3Config    `mapstructure:"s3"`
	MinIO MinIOConfig `mapstructure:"minio"`
	Local LocalConfig `mapstructure:"local"`
}

// New builds the ObjectStore selected by cfg.Type.
func New(ctx context.Context, cfg Config) (ObjectStore, error) {
	switch cfg.Type {
	case "", "s3":
		return NewS3Storage(ctx, cfg.S3)
	case "minio":
		return NewMinIOStorage(cfg.MinIO)
	case "local":
		return NewLocalStorage(cfg.Local)
	default:
		return nil, errors.New("unknown storage type: " + cfg.Type)
	}
}
