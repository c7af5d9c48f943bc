package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/weiawesome/pdf-thumbnail/internal/errors"
)

func fromYAML(t *testing.T, doc string) (*Config, error) {
	t.Helper()
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(doc)))
	return FromViper(v)
}

func TestDefaults(t *testing.T) {
	cfg, err := fromYAML(t, "destination:\n  bucket: thumbs\n")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "us-west-1", cfg.AWS.Region)
	assert.Equal(t, "s3", cfg.Storage.Type)
	assert.Equal(t, "us-west-1", cfg.Storage.S3.Region)
	assert.Equal(t, 72, cfg.Thumbnail.Resolution)
	assert.Empty(t, cfg.Thumbnail.Resolutions)
	assert.Equal(t, "-thumbnail", cfg.Thumbnail.Suffix)
	assert.Equal(t, "/usr/bin/gs", cfg.Ghostscript.Path)
	assert.Equal(t, "SourceBucket", cfg.Destination.SourceAttribute)
	assert.Equal(t, "DestinationBucket", cfg.Destination.DestinationAttribute)
	assert.False(t, cfg.Handler.SkipInvalidType)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, []string{"s3:ObjectCreated:Put", "s3:ObjectCreated:CompleteMultipartUpload"}, cfg.Kafka.EventNameFilters)
	assert.Equal(t, 3*time.Second, cfg.Destination.Redis.ReadTimeout)
	assert.Equal(t, 10, cfg.Destination.Redis.PoolSize)
	assert.Equal(t, 5*time.Second, cfg.Kafka.FlushTimeout)
	assert.Equal(t, 5*time.Millisecond, cfg.Kafka.ProducerLinger)

	mode, err := cfg.Destination.Mode()
	require.NoError(t, err)
	assert.Equal(t, DestinationFixed, mode)
}

func TestDestinationVariants(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		mode    DestinationMode
		wantErr error
	}{
		{name: "fixed", doc: "destination:\n  bucket: thumbs\n", mode: DestinationFixed},
		{name: "lookup", doc: "destination:\n  table: routes\n", mode: DestinationLookup},
		{name: "neither", doc: "log:\n  level: debug\n", wantErr: ErrNoDestination},
		{name: "both", doc: "destination:\n  bucket: thumbs\n  table: routes\n", wantErr: ErrAmbiguousDestination},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := fromYAML(t, tt.doc)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.True(t, apperrors.IsKind(err, apperrors.KindConfig))
				return
			}
			require.NoError(t, err)
			mode, err := cfg.Destination.Mode()
			require.NoError(t, err)
			assert.Equal(t, tt.mode, mode)
		})
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "zero resolution", doc: "destination:\n  bucket: b\nthumbnail:\n  resolution: 0\n"},
		{name: "negative resolution", doc: "destination:\n  bucket: b\nthumbnail:\n  resolution: -5\n"},
		{name: "non-positive map entry", doc: "destination:\n  bucket: b\nthumbnail:\n  resolutions:\n    -small: 0\n"},
		{name: "negative max width", doc: "destination:\n  bucket: b\nthumbnail:\n  max_width: -1\n"},
		{name: "unknown backend", doc: "destination:\n  table: t\n  backend: etcd\n"},
		{name: "unknown storage", doc: "destination:\n  bucket: b\nstorage:\n  type: ftp\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fromYAML(t, tt.doc)
			require.Error(t, err)
			assert.True(t, apperrors.IsKind(err, apperrors.KindConfig))
		})
	}
}

func TestResolutionsFromYAML(t *testing.T) {
	cfg, err := fromYAML(t, "destination:\n  bucket: b\nthumbnail:\n  resolutions:\n    -small: 36\n    -large: 150\n")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"-small": 36, "-large": 150}, cfg.Thumbnail.Resolutions)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DESTINATION_TABLE", "routes")
	t.Setenv("DESTINATION_BACKEND", "redis")
	t.Setenv("THUMBNAIL_RESOLUTIONS", "-small=36, -large=150")
	t.Setenv("HANDLER_SKIP_INVALID_TYPE", "true")
	t.Setenv("AWS_REGION", "eu-central-1")
	t.Setenv("KAFKA_FLUSH_TIMEOUT", "750ms")

	cfg, err := fromYAML(t, "log:\n  level: warn\n")
	require.NoError(t, err)

	assert.Equal(t, "routes", cfg.Destination.Table)
	assert.Equal(t, BackendRedis, cfg.Destination.Backend)
	assert.Equal(t, "routes:", cfg.Destination.Redis.KeyPrefix)
	assert.Equal(t, map[string]int{"-small": 36, "-large": 150}, cfg.Thumbnail.Resolutions)
	assert.True(t, cfg.Handler.SkipInvalidType)
	assert.Equal(t, "eu-central-1", cfg.Storage.S3.Region)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 750*time.Millisecond, cfg.Kafka.FlushTimeout)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service.yaml")
	require.NoError(t, os.WriteFile(path, []byte("destination:\n  bucket: thumbs\nghostscript:\n  path: /opt/gs\n"), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "thumbs", cfg.Destination.Bucket)
	assert.Equal(t, "/opt/gs", cfg.Ghostscript.Path)
}

func TestRedisKeyPrefix(t *testing.T) {
	cfg, err := fromYAML(t, "destination:\n  table: routes\n  backend: redis\n")
	require.NoError(t, err)
	assert.Equal(t, "routes:", cfg.Destination.Redis.KeyPrefix)

	cfg, err = fromYAML(t, "destination:\n  table: routes\n  backend: redis\n  redis:\n    key_prefix: thumbs/\n")
	require.NoError(t, err)
	assert.Equal(t, "thumbs/", cfg.Destination.Redis.KeyPrefix)

	cfg, err = fromYAML(t, "destination:\n  bucket: thumbs\n")
	require.NoError(t, err)
	assert.Empty(t, cfg.Destination.Redis.KeyPrefix)
}

func TestFoldedSuffixes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("destination:\n  bucket: b\nthumbnail:\n  resolutions:\n    -Low: 26\n    -high: 72\n    -Mid: 36\n"), 0o644))

	assert.Equal(t, []string{"-Low", "-Mid"}, FoldedSuffixes(path))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"-low": 26, "-high": 72, "-mid": 36}, cfg.Thumbnail.Resolutions)

	lower := filepath.Join(dir, "lower.yaml")
	require.NoError(t, os.WriteFile(lower, []byte("thumbnail:\n  resolutions:\n    -low: 26\n"), 0o644))
	assert.Empty(t, FoldedSuffixes(lower))

	assert.Nil(t, FoldedSuffixes(""))
	assert.Nil(t, FoldedSuffixes(filepath.Join(dir, "missing.yaml")))
}

func TestParseResolutions(t *testing.T) {
	tests := []struct {
		in      string
		want    map[string]int
		wantErr bool
	}{
		{in: "", want: map[string]int{}},
		{in: "-s=36", want: map[string]int{"-s": 36}},
		{in: "-s=36,,-l=150,", want: map[string]int{"-s": 36, "-l": 150}},
		{in: "-s", wantErr: true},
		{in: "-s=abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseResolutions(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDestinationString(t *testing.T) {
	assert.Equal(t, "fixed(thumbs)", DestinationConfig{Bucket: "thumbs"}.String())
	assert.Equal(t, "invalid", DestinationConfig{}.String())
}
