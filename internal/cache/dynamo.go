package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoStore.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// dynamoItem is the table's item shape. ttl is epoch seconds and drives
// DynamoDB's TTL sweeper.
type dynamoItem struct {
	CacheKey string `dynamodbav:"cacheKey"`
	Email    string `dynamodbav:"email"`
	TTL      int64  `dynamodbav:"ttl"`
}

// DynamoStore is a Store backed by a DynamoDB table with hash key cacheKey.
type DynamoStore struct {
	api   DynamoAPI
	table string
	now   func() time.Time
}

// NewDynamoStore creates a DynamoStore over table.
func NewDynamoStore(api DynamoAPI, table string) *DynamoStore {
	return &DynamoStore{api: api, table: table, now: time.Now}
}

func (s *DynamoStore) key(k string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"cacheKey": &types.AttributeValueMemberS{Value: k},
	}
}

// Get reads the item for key. Items whose ttl has passed count as misses
// since the TTL sweeper may lag by hours.
func (s *DynamoStore) Get(ctx context.Context, key string) (string, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       s.key(key),
	})
	if err != nil {
		return "", fmt.Errorf("dynamodb get item: %w", err)
	}
	if len(out.Item) == 0 {
		return "", ErrMiss
	}

	var item dynamoItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return "", fmt.Errorf("decode cache item: %w", err)
	}
	if item.TTL > 0 && s.now().Unix() >= item.TTL {
		return "", ErrMiss
	}
	return item.Email, nil
}

func (s *DynamoStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	item, err := attributevalue.MarshalMap(dynamoItem{
		CacheKey: key,
		Email:    value,
		TTL:      s.now().Add(ttl).Unix(),
	})
	if err != nil {
		return fmt.Errorf("encode cache item: %w", err)
	}
	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("dynamodb put item: %w", err)
	}
	return nil
}

func (s *DynamoStore) Delete(ctx context.Context, key string) error {
	_, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       s.key(key),
	})
	if err != nil {
		return fmt.Errorf("dynamodb delete item: %w", err)
	}
	return nil
}

// Ping checks that the table is reachable by reading a sentinel key.
func (s *DynamoStore) Ping(ctx context.Context) error {
	_, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       s.key("__health__"),
	})
	return err
}
