package resolver

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	apperrors "github.com/weiawesome/pdf-thumbnail/internal/errors"
)

// DynamoDBAPI is the subset of *dynamodb.Client used for lookups.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// DynamoDB resolves destinations through a point read on a mapping table
// whose hash key is the source bucket name.
type DynamoDB struct {
	client          DynamoDBAPI
	table           string
	sourceAttr      string
	destinationAttr string
}

// NewDynamoDB creates a DynamoDB resolver.
func NewDynamoDB(client DynamoDBAPI, table, sourceAttr, destinationAttr string) *DynamoDB {
	return &DynamoDB{
		client:          client,
		table:           table,
		sourceAttr:      sourceAttr,
		destinationAttr: destinationAttr,
	}
}

// Resolve reads the destination attribute of the item keyed by sourceBucket.
func (d *DynamoDB) Resolve(ctx context.Context, sourceBucket string) (string, error) {
	key, err := attributevalue.Marshal(sourceBucket)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.KindDestinationResolution, "marshal lookup key")
	}

	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:                aws.String(d.table),
		Key:                      map[string]types.AttributeValue{d.sourceAttr: key},
		ProjectionExpression:     aws.String("#dst"),
		ExpressionAttributeNames: map[string]string{"#dst": d.destinationAttr},
	})
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.KindDestinationResolution,
			fmt.Sprintf("get item %s=%s from %s", d.sourceAttr, sourceBucket, d.table))
	}

	if len(out.Item) == 0 {
		return "", apperrors.Newf(apperrors.KindDestinationResolution,
			"no destination registered for bucket %s in %s", sourceBucket, d.table)
	}

	av, ok := out.Item[d.destinationAttr]
	if !ok {
		return "", apperrors.Newf(apperrors.KindDestinationResolution,
			"item for bucket %s has no %s attribute", sourceBucket, d.destinationAttr)
	}

	var bucket string
	if err := attributevalue.Unmarshal(av, &bucket); err != nil {
		return "", apperrors.Wrap(err, apperrors.KindDestinationResolution,
			fmt.Sprintf("decode %s for bucket %s", d.destinationAttr, sourceBucket))
	}
	if bucket == "" {
		return "", apperrors.Newf(apperrors.KindDestinationResolution,
			"empty %s for bucket %s", d.destinationAttr, sourceBucket)
	}

	return bucket, nil
}
