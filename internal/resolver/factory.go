package resolver

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/redis/go-redis/v9"

	"github.com/weiawesome/pdf-thumbnail/internal/config"
	apperrors "github.com/weiawesome/pdf-thumbnail/internal/errors"
	"github.com/weiawesome/pdf-thumbnail/pkg/storage"
)

// New builds the resolver for a validated destination config. The returned
// close func releases backend connections and is never nil.
func New(ctx context.Context, cfg config.DestinationConfig, region string) (Resolver, func() error, error) {
	noop := func() error { return nil }

	mode, err := cfg.Mode()
	if err != nil {
		return nil, noop, apperrors.Wrap(err, apperrors.KindConfig, "destination")
	}

	if mode == config.DestinationFixed {
		return NewStatic(cfg.Bucket), noop, nil
	}

	switch cfg.Backend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:         cfg.Redis.Address,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		return NewRedis(client, cfg.Redis.KeyPrefix), client.Close, nil

	case config.BackendDynamoDB, "":
		awsCfg, err := storage.LoadAWSConfig(ctx, region, cfg.DynamoDB.AccessKeyID, cfg.DynamoDB.SecretAccessKey)
		if err != nil {
			return nil, noop, apperrors.Wrap(err, apperrors.KindConfig, "dynamodb client")
		}

		var opts []func(*dynamodb.Options)
		if cfg.DynamoDB.Endpoint != "" {
			opts = append(opts, func(o *dynamodb.Options) {
				o.BaseEndpoint = aws.String(cfg.DynamoDB.Endpoint)
			})
		}

		client := dynamodb.NewFromConfig(awsCfg, opts...)
		return NewDynamoDB(client, cfg.Table, cfg.SourceAttribute, cfg.DestinationAttribute), noop, nil

	default:
		return nil, noop, apperrors.Newf(apperrors.KindConfig, "unknown destination backend %q", cfg.Backend)
	}
}
