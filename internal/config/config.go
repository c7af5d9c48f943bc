package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	apperrors "github.com/weiawesome/pdf-thumbnail/internal/errors"
	"github.com/weiawesome/pdf-thumbnail/internal/rasterizer"
	pkgconfig "github.com/weiawesome/pdf-thumbnail/pkg/config"
	pkglog "github.com/weiawesome/pdf-thumbnail/pkg/log"
	"github.com/weiawesome/pdf-thumbnail/pkg/storage"
)

// Destination lookup backends.
const (
	BackendDynamoDB = "dynamodb"
	BackendRedis    = "redis"
)

var (
	ErrNoDestination        = errors.New("neither destination.bucket nor destination.table is configured")
	ErrAmbiguousDestination = errors.New("destination.bucket and destination.table are mutually exclusive")
)

type Config struct {
	Log         LogConfig         `mapstructure:"log"`
	AWS         AWSConfig         `mapstructure:"aws"`
	Storage     storage.Config    `mapstructure:"storage"`
	Destination DestinationConfig `mapstructure:"destination"`
	Thumbnail   ThumbnailConfig   `mapstructure:"thumbnail"`
	Ghostscript rasterizer.Config `mapstructure:"ghostscript"`
	Handler     HandlerConfig     `mapstructure:"handler"`
	Kafka       KafkaConfig       `mapstructure:"kafka"`
	Server      ServerConfig      `mapstructure:"server"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type AWSConfig struct {
	Region string `mapstructure:"region"`
}

// DestinationConfig selects where thumbnails go. Exactly one of Bucket
// (fixed destination) or Table (lookup keyed by source bucket) must be set.
type DestinationConfig struct {
	Bucket               string         `mapstructure:"bucket"`
	Table                string         `mapstructure:"table"`
	Backend              string         `mapstructure:"backend"`
	SourceAttribute      string         `mapstructure:"source_attribute"`
	DestinationAttribute string         `mapstructure:"destination_attribute"`
	DynamoDB             DynamoDBConfig `mapstructure:"dynamodb"`
	Redis                RedisConfig    `mapstructure:"redis"`
}

type DynamoDBConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// RedisConfig configures the redis lookup backend. Table followed by ":" is
// used as the key prefix when KeyPrefix is empty.
type RedisConfig struct {
	Address      string        `mapstructure:"address"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
	PoolSize     int           `mapstructure:"pool_size"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DestinationMode is the tag of the destination variant.
type DestinationMode int

const (
	DestinationFixed DestinationMode = iota
	DestinationLookup
)

// Mode reports which destination variant is configured.
func (d DestinationConfig) Mode() (DestinationMode, error) {
	switch {
	case d.Bucket != "" && d.Table != "":
		return 0, ErrAmbiguousDestination
	case d.Bucket != "":
		return DestinationFixed, nil
	case d.Table != "":
		return DestinationLookup, nil
	default:
		return 0, ErrNoDestination
	}
}

// ThumbnailConfig describes the thumbnails produced per source object.
// When Resolutions is non-empty it replaces Resolution: one thumbnail is
// written per entry, named with the entry's key as suffix.
type ThumbnailConfig struct {
	Resolution   int            `mapstructure:"resolution"`
	Resolutions  map[string]int `mapstructure:"resolutions"`
	Suffix       string         `mapstructure:"suffix"`
	OutputPrefix string         `mapstructure:"output_prefix"`
	MaxWidth     int            `mapstructure:"max_width"`
	MaxHeight    int            `mapstructure:"max_height"`
}

type HandlerConfig struct {
	SkipInvalidType bool `mapstructure:"skip_invalid_type"`
}

type KafkaConfig struct {
	Brokers          string        `mapstructure:"brokers"`
	ConsumerTopic    string        `mapstructure:"consumer_topic"`
	ConsumerGroupID  string        `mapstructure:"consumer_group_id"`
	ProducerTopic    string        `mapstructure:"producer_topic"`
	ProducerAcks     string        `mapstructure:"producer_acks"`
	ProducerLinger   time.Duration `mapstructure:"producer_linger"`
	FlushTimeout     time.Duration `mapstructure:"flush_timeout"`
	TopicPartitions  int           `mapstructure:"topic_partitions"`
	EventNameFilters []string      `mapstructure:"event_name_filters"`
	PrefixFilter     string        `mapstructure:"prefix_filter"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load reads ./config/config.yaml (optional) and the environment.
func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}

// LoadFile reads the given config file and the environment.
func LoadFile(path string) (*Config, error) {
	v, err := pkgconfig.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}

// FromViper applies defaults and env bindings to v, decodes and validates.
func FromViper(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	bindEnv(v)

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		resolutionsHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindConfig, "decode config")
	}

	if cfg.Storage.S3.Region == "" {
		cfg.Storage.S3.Region = cfg.AWS.Region
	}
	if cfg.Destination.Redis.KeyPrefix == "" && cfg.Destination.Table != "" {
		cfg.Destination.Redis.KeyPrefix = cfg.Destination.Table + ":"
	}

	if _, fromEnv := os.LookupEnv(resolutionsEnv); !fromEnv {
		if folded := FoldedSuffixes(v.ConfigFileUsed()); len(folded) > 0 {
			l := pkglog.L()
			l.Warn().Strs("suffixes", folded).
				Msg("thumbnail.resolutions keys are lowercased when read from a config file; set " + resolutionsEnv + " to keep their case")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("aws.region", "us-west-1")
	v.SetDefault("storage.type", "s3")
	v.SetDefault("storage.local.base_path", "./data/storage")
	v.SetDefault("destination.backend", BackendDynamoDB)
	v.SetDefault("destination.source_attribute", "SourceBucket")
	v.SetDefault("destination.destination_attribute", "DestinationBucket")
	v.SetDefault("destination.redis.address", "localhost:6379")
	v.SetDefault("destination.redis.pool_size", 10)
	v.SetDefault("destination.redis.read_timeout", "3s")
	v.SetDefault("destination.redis.write_timeout", "3s")
	v.SetDefault("thumbnail.resolution", 72)
	v.SetDefault("thumbnail.suffix", "-thumbnail")
	v.SetDefault("ghostscript.path", rasterizer.DefaultGhostscriptPath)
	v.SetDefault("handler.skip_invalid_type", false)
	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.consumer_topic", "minio-events")
	v.SetDefault("kafka.consumer_group_id", "pdf-thumbnail")
	v.SetDefault("kafka.producer_topic", "thumbnail-processed")
	v.SetDefault("kafka.producer_acks", "1")
	v.SetDefault("kafka.producer_linger", "5ms")
	v.SetDefault("kafka.flush_timeout", "5s")
	v.SetDefault("kafka.topic_partitions", 1)
	v.SetDefault("kafka.event_name_filters", []string{"s3:ObjectCreated:Put", "s3:ObjectCreated:CompleteMultipartUpload"})
	v.SetDefault("server.addr", ":8080")
}

func bindEnv(v *viper.Viper) {
	v.BindEnv("log.level", "LOG_LEVEL")
	v.BindEnv("aws.region", "AWS_REGION")
	v.BindEnv("storage.type", "STORAGE_TYPE")
	v.BindEnv("storage.s3.endpoint", "S3_ENDPOINT")
	v.BindEnv("storage.s3.region", "S3_REGION")
	v.BindEnv("storage.s3.access_key_id", "S3_ACCESS_KEY_ID")
	v.BindEnv("storage.s3.secret_access_key", "S3_SECRET_ACCESS_KEY")
	v.BindEnv("storage.s3.use_path_style", "S3_USE_PATH_STYLE")
	v.BindEnv("storage.minio.endpoint", "MINIO_ENDPOINT")
	v.BindEnv("storage.minio.access_key", "MINIO_ACCESS_KEY")
	v.BindEnv("storage.minio.secret_key", "MINIO_SECRET_KEY")
	v.BindEnv("storage.local.base_path", "STORAGE_LOCAL_BASE_PATH")
	v.BindEnv("destination.bucket", "DESTINATION_BUCKET")
	v.BindEnv("destination.table", "DESTINATION_TABLE")
	v.BindEnv("destination.backend", "DESTINATION_BACKEND")
	v.BindEnv("destination.source_attribute", "DESTINATION_SOURCE_ATTRIBUTE")
	v.BindEnv("destination.destination_attribute", "DESTINATION_DESTINATION_ATTRIBUTE")
	v.BindEnv("destination.dynamodb.endpoint", "DYNAMODB_ENDPOINT")
	v.BindEnv("destination.redis.address", "REDIS_ADDRESS")
	v.BindEnv("destination.redis.password", "REDIS_PASSWORD")
	v.BindEnv("thumbnail.resolution", "THUMBNAIL_RESOLUTION")
	v.BindEnv("thumbnail.resolutions", resolutionsEnv)
	v.BindEnv("thumbnail.suffix", "THUMBNAIL_SUFFIX")
	v.BindEnv("thumbnail.output_prefix", "THUMBNAIL_OUTPUT_PREFIX")
	v.BindEnv("thumbnail.max_width", "THUMBNAIL_MAX_WIDTH")
	v.BindEnv("thumbnail.max_height", "THUMBNAIL_MAX_HEIGHT")
	v.BindEnv("ghostscript.path", "GHOSTSCRIPT_PATH")
	v.BindEnv("handler.skip_invalid_type", "HANDLER_SKIP_INVALID_TYPE")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("kafka.consumer_topic", "KAFKA_CONSUMER_TOPIC")
	v.BindEnv("kafka.consumer_group_id", "KAFKA_CONSUMER_GROUP_ID")
	v.BindEnv("kafka.producer_topic", "KAFKA_PRODUCER_TOPIC")
	v.BindEnv("kafka.producer_acks", "KAFKA_PRODUCER_ACKS")
	v.BindEnv("kafka.flush_timeout", "KAFKA_FLUSH_TIMEOUT")
	v.BindEnv("kafka.event_name_filters", "KAFKA_EVENT_NAME_FILTERS")
	v.BindEnv("kafka.prefix_filter", "KAFKA_PREFIX_FILTER")
	v.BindEnv("server.addr", "SERVER_ADDR")
}

// Validate checks the invariants the rest of the service relies on.
func (c *Config) Validate() error {
	mode, err := c.Destination.Mode()
	if err != nil {
		return apperrors.Wrap(err, apperrors.KindConfig, "destination")
	}

	if mode == DestinationLookup {
		switch c.Destination.Backend {
		case BackendDynamoDB:
			if c.Destination.SourceAttribute == "" || c.Destination.DestinationAttribute == "" {
				return apperrors.New(apperrors.KindConfig, "destination attribute names must not be empty")
			}
		case BackendRedis:
		default:
			return apperrors.Newf(apperrors.KindConfig, "unknown destination.backend %q", c.Destination.Backend)
		}
	}

	if len(c.Thumbnail.Resolutions) == 0 {
		if c.Thumbnail.Resolution <= 0 {
			return apperrors.Newf(apperrors.KindConfig, "thumbnail.resolution must be positive, got %d", c.Thumbnail.Resolution)
		}
	}
	for suffix, res := range c.Thumbnail.Resolutions {
		if res <= 0 {
			return apperrors.Newf(apperrors.KindConfig, "thumbnail.resolutions[%q] must be positive, got %d", suffix, res)
		}
	}

	if c.Thumbnail.MaxWidth < 0 || c.Thumbnail.MaxHeight < 0 {
		return apperrors.New(apperrors.KindConfig, "thumbnail.max_width and thumbnail.max_height must not be negative")
	}

	switch c.Storage.Type {
	case "s3", "minio", "local":
	default:
		return apperrors.Newf(apperrors.KindConfig, "unknown storage.type %q", c.Storage.Type)
	}

	return nil
}

// String renders the destination variant for startup logs.
func (d DestinationConfig) String() string {
	mode, err := d.Mode()
	if err != nil {
		return "invalid"
	}
	if mode == DestinationFixed {
		return "fixed(" + d.Bucket + ")"
	}
	return fmt.Sprintf("lookup(%s:%s, %s -> %s)", d.Backend, d.Table, d.SourceAttribute, d.DestinationAttribute)
}
