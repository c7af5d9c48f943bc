package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/weiawesome/pdf-thumbnail/internal/errors"
)

// RedisAPI is the subset of redis.UniversalClient used for lookups.
type RedisAPI interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// Redis resolves destinations from plain string keys
// "<prefix><source bucket>" -> "<destination bucket>".
type Redis struct {
	client    RedisAPI
	keyPrefix string
}

// NewRedis creates a Redis resolver.
func NewRedis(client RedisAPI, keyPrefix string) *Redis {
	return &Redis{client: client, keyPrefix: keyPrefix}
}

// Resolve reads the destination bucket stored for sourceBucket.
func (r *Redis) Resolve(ctx context.Context, sourceBucket string) (string, error) {
	key := r.keyPrefix + sourceBucket

	bucket, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", apperrors.Newf(apperrors.KindDestinationResolution,
			"no destination registered for bucket %s (key %s)", sourceBucket, key)
	}
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.KindDestinationResolution, fmt.Sprintf("get %s", key))
	}
	if bucket == "" {
		return "", apperrors.Newf(apperrors.KindDestinationResolution, "empty destination at key %s", key)
	}

	return bucket, nil
}
