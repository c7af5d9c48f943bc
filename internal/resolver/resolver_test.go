package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/pdf-thumbnail/internal/config"
	apperrors "github.com/weiawesome/pdf-thumbnail/internal/errors"
)

type fakeDynamo struct {
	item  map[string]types.AttributeValue
	err   error
	input *dynamodb.GetItemInput
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &dynamodb.GetItemOutput{Item: f.item}, nil
}

type fakeRedis struct {
	values map[string]string
	err    error
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func TestStatic(t *testing.T) {
	r := NewStatic("thumbs")
	for _, src := range []string{"a", "b", ""} {
		dst, err := r.Resolve(context.Background(), src)
		require.NoError(t, err)
		assert.Equal(t, "thumbs", dst)
	}
}

func TestDynamoDBResolve(t *testing.T) {
	f := &fakeDynamo{item: map[string]types.AttributeValue{
		"DestinationBucket": &types.AttributeValueMemberS{Value: "thumbs"},
	}}
	r := NewDynamoDB(f, "routes", "SourceBucket", "DestinationBucket")

	dst, err := r.Resolve(context.Background(), "uploads")
	require.NoError(t, err)
	assert.Equal(t, "thumbs", dst)

	require.NotNil(t, f.input)
	assert.Equal(t, "routes", *f.input.TableName)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "uploads"}, f.input.Key["SourceBucket"])
	assert.Equal(t, "#dst", *f.input.ProjectionExpression)
	assert.Equal(t, "DestinationBucket", f.input.ExpressionAttributeNames["#dst"])
	assert.Nil(t, f.input.ConsistentRead)
}

func TestDynamoDBResolveFailures(t *testing.T) {
	boom := errors.New("throttled")

	tests := []struct {
		name string
		fake *fakeDynamo
	}{
		{name: "missing item", fake: &fakeDynamo{}},
		{name: "missing attribute", fake: &fakeDynamo{item: map[string]types.AttributeValue{
			"SourceBucket": &types.AttributeValueMemberS{Value: "uploads"},
		}}},
		{name: "empty attribute", fake: &fakeDynamo{item: map[string]types.AttributeValue{
			"DestinationBucket": &types.AttributeValueMemberS{Value: ""},
		}}},
		{name: "wrong attribute type", fake: &fakeDynamo{item: map[string]types.AttributeValue{
			"DestinationBucket": &types.AttributeValueMemberBOOL{Value: true},
		}}},
		{name: "access error", fake: &fakeDynamo{err: boom}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewDynamoDB(tt.fake, "routes", "SourceBucket", "DestinationBucket")
			_, err := r.Resolve(context.Background(), "uploads")
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrDestinationResolution)
			if tt.fake.err != nil {
				assert.ErrorIs(t, err, boom)
			}
		})
	}
}

func TestRedisResolve(t *testing.T) {
	f := &fakeRedis{values: map[string]string{"routes:uploads": "thumbs", "routes:blank": ""}}
	r := NewRedis(f, "routes:")

	dst, err := r.Resolve(context.Background(), "uploads")
	require.NoError(t, err)
	assert.Equal(t, "thumbs", dst)

	_, err = r.Resolve(context.Background(), "unknown")
	assert.ErrorIs(t, err, apperrors.ErrDestinationResolution)

	_, err = r.Resolve(context.Background(), "blank")
	assert.ErrorIs(t, err, apperrors.ErrDestinationResolution)
}

func TestRedisResolveError(t *testing.T) {
	boom := errors.New("connection refused")
	r := NewRedis(&fakeRedis{err: boom}, "")

	_, err := r.Resolve(context.Background(), "uploads")
	assert.ErrorIs(t, err, apperrors.ErrDestinationResolution)
	assert.ErrorIs(t, err, boom)
}

func TestNewStaticFromConfig(t *testing.T) {
	r, closeFn, err := New(context.Background(), config.DestinationConfig{Bucket: "thumbs"}, "us-west-1")
	require.NoError(t, err)
	defer closeFn()

	assert.IsType(t, &Static{}, r)
}

func TestNewRedisFromConfig(t *testing.T) {
	r, closeFn, err := New(context.Background(), config.DestinationConfig{
		Table:   "routes",
		Backend: config.BackendRedis,
		Redis:   config.RedisConfig{Address: "localhost:6379", KeyPrefix: "routes:"},
	}, "us-west-1")
	require.NoError(t, err)
	defer closeFn()

	assert.IsType(t, &Redis{}, r)
}

func TestNewRejectsInvalidDestination(t *testing.T) {
	_, closeFn, err := New(context.Background(), config.DestinationConfig{}, "us-west-1")
	require.NotNil(t, closeFn)
	assert.ErrorIs(t, err, config.ErrNoDestination)

	_, _, err = New(context.Background(), config.DestinationConfig{Table: "t", Backend: "etcd"}, "us-west-1")
	assert.True(t, apperrors.IsKind(err, apperrors.KindConfig))
}
